// Package pool loans reusable objects out as ownership handles. The
// handle's deleter is the return path: when the last owner releases its
// handle, the object is cleaned and put back for the next Get. Recycling
// therefore needs no discipline beyond the one the handles already
// impose.
package pool

import (
	"sync"

	"go.uber.org/atomic"

	"github.com/nspcc-dev/refs/pkg/rc"
)

// Pool hands out objects of one type, backed by sync.Pool, so idle objects
// may be dropped by the runtime at any time and loaned ones are never
// touched.
type Pool[T any] struct {
	inner      sync.Pool
	reset      func(*T)
	inUse      *atomic.Int64
	lenUpdateF func(int)
}

// New creates a Pool producing objects with ctor and cleaning them with
// reset before reuse. A nil ctor means plain new(T), a nil reset skips
// cleaning. lenMetricsUpdater, when given, is called with the number of
// loaned objects after every loan and return.
func New[T any](ctor func() *T, reset func(*T), lenMetricsUpdater func(int)) *Pool[T] {
	if ctor == nil {
		ctor = func() *T { return new(T) }
	}
	p := &Pool[T]{
		reset:      reset,
		inUse:      atomic.NewInt64(0),
		lenUpdateF: lenMetricsUpdater,
	}
	p.inner.New = func() any { return ctor() }
	return p
}

// Get loans an object out exclusively. Releasing the handle returns the
// object to the pool; detaching keeps it out of circulation for good, and
// such objects still count as in use.
func (p *Pool[T]) Get() *rc.Unique[T] {
	return rc.NewUnique(p.take(), p.put)
}

// GetShared loans an object out under shared ownership. The object comes
// back once the last owner, clones and successful weak upgrades included,
// lets go.
func (p *Pool[T]) GetShared() *rc.Shared[T] {
	return rc.NewShared(p.take(), p.put)
}

// InUse returns the number of objects currently loaned out.
func (p *Pool[T]) InUse() int {
	return int(p.inUse.Load())
}

func (p *Pool[T]) take() *T {
	v := p.inner.Get().(*T)
	n := p.inUse.Inc()
	if p.lenUpdateF != nil {
		p.lenUpdateF(int(n))
	}
	return v
}

// put is the deleter of every loaned handle. A panicking reset is counted
// by the release machinery and the object is dropped instead of reused.
func (p *Pool[T]) put(v *T) {
	if p.reset != nil {
		p.reset(v)
	}
	p.inner.Put(v)
	n := p.inUse.Dec()
	if p.lenUpdateF != nil {
		p.lenUpdateF(int(n))
	}
}
