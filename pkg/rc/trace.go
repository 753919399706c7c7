package rc

import "sync/atomic"

// Tracer observes payload lifetime events. Implementations must be safe
// for concurrent use; callbacks run synchronously on the goroutine driving
// the transition, so they have to be quick and must not touch handles over
// the payload they are being told about.
type Tracer interface {
	// Allocated fires once per tracked payload, right after a handle takes
	// ownership of it.
	Allocated(id uint64)
	// Released fires when the payload has been released. recovered carries
	// the value recovered from a panicking deleter and is nil on a clean
	// release.
	Released(id uint64, recovered any)
	// Freed fires once per tracked payload, when its ownership bookkeeping
	// is gone. For shared payloads it always follows Released; a payload
	// detached from a Unique is Freed without having been Released.
	Freed(id uint64)
}

var (
	tracer atomic.Pointer[Tracer]
	lastID atomic.Uint64
)

// SetTracer installs t as the process-wide lifetime tracer and returns the
// previous one; nil disables tracing. Tracing is off by default and costs
// one atomic load per lifetime event while it stays off.
func SetTracer(t Tracer) Tracer {
	var p *Tracer
	if t != nil {
		p = &t
	}
	old := tracer.Swap(p)
	if old == nil {
		return nil
	}
	return *old
}

func loadTracer() Tracer {
	if p := tracer.Load(); p != nil {
		return *p
	}
	return nil
}

// allocID tags a freshly owned payload for the installed tracer. The zero
// id means tracing was off at that moment; such payloads stay invisible to
// tracers installed later.
func allocID() uint64 {
	t := loadTracer()
	if t == nil {
		return 0
	}
	id := lastID.Add(1)
	t.Allocated(id)
	return id
}

func traceReleased(id uint64, recovered any) {
	if id == 0 {
		return
	}
	if t := loadTracer(); t != nil {
		t.Released(id, recovered)
	}
}

func traceFreed(id uint64) {
	if id == 0 {
		return
	}
	if t := loadTracer(); t != nil {
		t.Freed(id)
	}
}
