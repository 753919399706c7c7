// Package track provides lifetime accounting on top of rc handles: an
// aggregate counter set exported through prometheus, a leak tracker that
// remembers where every still-live payload was allocated and a periodic
// logging reporter. Any of them can be installed via rc.SetTracer, alone
// or combined with Multi.
package track

import (
	"go.uber.org/atomic"

	"github.com/nspcc-dev/refs/pkg/rc"
)

// Counters aggregates payload lifetime events and mirrors them into the
// prometheus metrics of this package. One instance can serve any number of
// goroutines.
type Counters struct {
	allocated atomic.Int64
	released  atomic.Int64
	freed     atomic.Int64
	failed    atomic.Int64
}

// Snapshot is a point-in-time copy of Counters values. Under concurrent
// churn the fields are each exact, but not taken at one common instant.
type Snapshot struct {
	Allocated int64
	Released  int64
	Freed     int64
	Failed    int64
}

// NewCounters creates a ready-to-install Counters.
func NewCounters() *Counters {
	return &Counters{}
}

// Allocated implements rc.Tracer.
func (c *Counters) Allocated(uint64) {
	c.allocated.Inc()
	updateAllocatedMetrics()
}

// Released implements rc.Tracer.
func (c *Counters) Released(_ uint64, recovered any) {
	c.released.Inc()
	failed := recovered != nil
	if failed {
		c.failed.Inc()
	}
	updateReleasedMetrics(failed)
}

// Freed implements rc.Tracer.
func (c *Counters) Freed(uint64) {
	c.freed.Inc()
	updateFreedMetrics()
}

// Snapshot returns the current counter values.
func (c *Counters) Snapshot() Snapshot {
	return Snapshot{
		Allocated: c.allocated.Load(),
		Released:  c.released.Load(),
		Freed:     c.freed.Load(),
		Failed:    c.failed.Load(),
	}
}

// Live returns the number of payloads allocated and not yet freed.
func (c *Counters) Live() int64 {
	return c.allocated.Load() - c.freed.Load()
}

// Settled reports whether every payload allocated so far has been freed
// again. A drained system settles; a settled system with Live creeping up
// afterwards is leaking.
func (c *Counters) Settled() bool {
	return c.Live() == 0
}

type multiTracer []rc.Tracer

func (m multiTracer) Allocated(id uint64) {
	for _, t := range m {
		t.Allocated(id)
	}
}

func (m multiTracer) Released(id uint64, recovered any) {
	for _, t := range m {
		t.Released(id, recovered)
	}
}

func (m multiTracer) Freed(id uint64) {
	for _, t := range m {
		t.Freed(id)
	}
}

// Multi combines tracers into one that fans every event out in argument
// order. Nil entries are skipped; with nothing left it returns nil, which
// rc.SetTracer treats as disabling tracing.
func Multi(ts ...rc.Tracer) rc.Tracer {
	flat := make(multiTracer, 0, len(ts))
	for _, t := range ts {
		if t != nil {
			flat = append(flat, t)
		}
	}
	switch len(flat) {
	case 0:
		return nil
	case 1:
		return flat[0]
	}
	return flat
}
