package track

import (
	"runtime/debug"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Leaks remembers the allocation stack and time of every live payload,
// which makes "who never released this" answerable. It captures a stack
// per allocation, so install it in tests and soak runs rather than on hot
// production paths.
type Leaks struct {
	mu   sync.RWMutex
	live map[uint64]leakEntry
}

type leakEntry struct {
	stack []byte
	since time.Time
}

// NewLeaks creates an empty leak tracker.
func NewLeaks() *Leaks {
	return &Leaks{live: make(map[uint64]leakEntry)}
}

// Allocated implements rc.Tracer.
func (l *Leaks) Allocated(id uint64) {
	e := leakEntry{stack: debug.Stack(), since: time.Now()}
	l.mu.Lock()
	l.live[id] = e
	l.mu.Unlock()
}

// Released implements rc.Tracer. Release alone does not retire the
// bookkeeping, so the entry stays until Freed.
func (l *Leaks) Released(uint64, any) {}

// Freed implements rc.Tracer.
func (l *Leaks) Freed(id uint64) {
	l.mu.Lock()
	delete(l.live, id)
	l.mu.Unlock()
}

// Pending returns the number of payloads allocated and not yet freed.
func (l *Leaks) Pending() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.live)
}

// LogPending writes one warning per live payload, oldest first, with the
// stack it was allocated at, and returns the number of entries written.
// A nil log only counts.
func (l *Leaks) LogPending(log *zap.Logger) int {
	type pending struct {
		id uint64
		e  leakEntry
	}

	l.mu.RLock()
	list := make([]pending, 0, len(l.live))
	for id, e := range l.live {
		list = append(list, pending{id: id, e: e})
	}
	l.mu.RUnlock()

	sort.Slice(list, func(i, j int) bool { return list[i].e.since.Before(list[j].e.since) })
	if log != nil {
		for _, p := range list {
			log.Warn("unreleased payload",
				zap.Uint64("id", p.id),
				zap.Duration("age", time.Since(p.e.since)),
				zap.ByteString("allocated_at", p.e.stack))
		}
	}
	return len(list)
}
