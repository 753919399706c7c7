// Package soak drives a configurable churn of owners, observers, cache
// lookups and pooled loans over shared payloads, to shake races and leaks
// out of the counting machinery. A run settles when every payload it
// allocated has been freed again; anything else is a defect worth a
// failing exit.
package soak

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"go.uber.org/atomic"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/nspcc-dev/refs/pkg/cache"
	"github.com/nspcc-dev/refs/pkg/config"
	"github.com/nspcc-dev/refs/pkg/pool"
	"github.com/nspcc-dev/refs/pkg/rc"
	"github.com/nspcc-dev/refs/pkg/track"
)

// ErrUnsettled is returned by Run when payloads remain unfreed after the
// churn has drained.
var ErrUnsettled = errors.New("unreleased payloads remain after drain")

const payloadBlobSize = 64

// payload is what the workers fight over. The blob gives the deleter
// something to clear.
type payload struct {
	seq  uint64
	blob []byte
}

// slot is one cell of the shared ring. The lock only guards the handle
// field; the counters behind the handles need no help.
type slot struct {
	mu sync.Mutex
	s  *rc.Shared[payload]
}

// swap installs n and returns the previous occupant.
func (sl *slot) swap(n *rc.Shared[payload]) *rc.Shared[payload] {
	sl.mu.Lock()
	old := sl.s
	sl.s = n
	sl.mu.Unlock()
	return old
}

// clone takes an owning handle of the current occupant.
func (sl *slot) clone() *rc.Shared[payload] {
	sl.mu.Lock()
	defer sl.mu.Unlock()
	return sl.s.Clone()
}

// observe derives a weak observer of the current occupant.
func (sl *slot) observe() *rc.Weak[payload] {
	sl.mu.Lock()
	defer sl.mu.Unlock()
	return sl.s.Weak()
}

// Runner owns the state of one soak run.
type Runner struct {
	cfg      config.SoakConfiguration
	log      *zap.Logger
	counters *track.Counters
	leaks    *track.Leaks
	cache    *cache.Cache[uint64, payload]
	pool     *pool.Pool[payload]
	slots    []slot
	seq      *atomic.Uint64
	ops      *atomic.Int64
}

// Result sums up one soak run.
type Result struct {
	Ops      int64
	Duration time.Duration
	Counters track.Snapshot
	Cache    cache.Stats
	Leaked   int64
}

// New creates a Runner for the given workload.
func New(cfg config.SoakConfiguration, log *zap.Logger) (*Runner, error) {
	if log == nil {
		return nil, errors.New("logger is a required parameter")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	c, err := cache.New[uint64, payload](cfg.CacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create cache: %w", err)
	}
	r := &Runner{
		cfg:      cfg,
		log:      log,
		counters: track.NewCounters(),
		cache:    c,
		slots:    make([]slot, cfg.Slots),
		seq:      atomic.NewUint64(0),
		ops:      atomic.NewInt64(0),
	}
	if cfg.TrackLeaks {
		r.leaks = track.NewLeaks()
	}
	r.pool = pool.New(
		func() *payload { return &payload{blob: make([]byte, payloadBlobSize)} },
		func(p *payload) { p.seq = 0 },
		updatePoolLoansMetric,
	)
	return r, nil
}

// Run seeds the ring, lets the workers churn until the configured duration
// or ctx ends, drains everything and checks that the lifetime counters
// settled. The process-wide tracer is taken over for the duration of the
// run and restored afterwards.
func (r *Runner) Run(ctx context.Context) (Result, error) {
	tr := rc.Tracer(r.counters)
	if r.leaks != nil {
		tr = track.Multi(r.counters, r.leaks)
	}
	prev := rc.SetTracer(tr)
	defer rc.SetTracer(prev)

	r.log.Info("starting soak run",
		zap.Int("workers", r.cfg.Workers),
		zap.Int("slots", r.cfg.Slots),
		zap.Int("cacheSize", r.cfg.CacheSize),
		zap.Duration("duration", r.cfg.Duration),
		zap.Bool("trackLeaks", r.leaks != nil))

	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, r.cfg.Duration)
	defer cancel()

	reporter := track.NewReporter(r.counters, r.log, r.cfg.ReportInterval)
	go reporter.Run()

	seedRnd := rand.New(rand.NewSource(start.UnixNano()))
	for i := range r.slots {
		r.slots[i].swap(r.mint(seedRnd)).Release()
	}

	var eg errgroup.Group
	for i := 0; i < r.cfg.Workers; i++ {
		seed := start.UnixNano() + int64(i)
		eg.Go(func() error {
			r.churn(ctx, rand.New(rand.NewSource(seed)))
			return nil
		})
	}
	_ = eg.Wait()
	reporter.Shutdown()
	r.drain()

	res := Result{
		Ops:      r.ops.Load(),
		Duration: time.Since(start),
		Counters: r.counters.Snapshot(),
		Cache:    r.cache.Stats(),
		Leaked:   r.counters.Live(),
	}
	if !r.counters.Settled() {
		if r.leaks != nil {
			r.leaks.LogPending(r.log)
		}
		return res, fmt.Errorf("%w: %d live", ErrUnsettled, res.Leaked)
	}
	r.log.Info("soak run settled",
		zap.Int64("ops", res.Ops),
		zap.Duration("elapsed", res.Duration),
		zap.Int64("payloads", res.Counters.Allocated),
		zap.Int64("cacheHits", res.Cache.Hits),
		zap.Int64("cacheMisses", res.Cache.Misses))
	return res, nil
}

// mint produces a fresh payload under shared ownership, every so often
// loaning one from the pool instead of allocating.
func (r *Runner) mint(rnd *rand.Rand) *rc.Shared[payload] {
	if rnd.Intn(4) == 0 {
		s := r.pool.GetShared()
		s.Value().seq = r.seq.Inc()
		return s
	}
	p := &payload{seq: r.seq.Inc(), blob: make([]byte, payloadBlobSize)}
	return rc.NewShared(p, func(pl *payload) { pl.blob = nil })
}

func (r *Runner) cacheKey(seq uint64) uint64 {
	// Fold keys so lookups have a chance to hit.
	return seq % uint64(r.cfg.CacheSize*2)
}

func (r *Runner) churn(ctx context.Context, rnd *rand.Rand) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}
		sl := &r.slots[rnd.Intn(len(r.slots))]
		switch rnd.Intn(7) {
		case 0: // replace the occupant
			sl.swap(r.mint(rnd)).Release()
		case 1: // share and read
			c := sl.clone()
			if c.Valid() {
				_ = c.Value().seq
			}
			c.Release()
		case 2: // observe, then try to come back
			w := sl.observe()
			if s, ok := w.Lock(); ok {
				_ = s.Value().seq
				s.Release()
			}
			w.Release()
		case 3: // publish to the weak cache
			c := sl.clone()
			if c.Valid() {
				r.cache.Put(r.cacheKey(c.Value().seq), c)
			}
			c.Release()
		case 4: // look a payload up
			if s, ok := r.cache.Get(r.cacheKey(rnd.Uint64())); ok {
				_ = s.Value().seq
				s.Release()
			}
		case 5: // exclusive loan from the pool
			u := r.pool.Get()
			u.Value().seq = r.seq.Inc()
			u.Release()
		case 6: // alias a field of the occupant
			c := sl.clone()
			if c.Valid() {
				a := rc.Alias(c, &c.Value().seq)
				_ = *a.Value()
				a.Release()
			}
			c.Release()
		}
		r.ops.Inc()
		incSoakOpsMetric()
	}
}

// drain empties the ring and the cache. With the workers gone this drops
// the last references, so afterwards the counters either settle or name a
// genuine leak.
func (r *Runner) drain() {
	for i := range r.slots {
		r.slots[i].swap(nil).Release()
	}
	r.cache.Purge()
}
