package rc

// Weak observes a payload without owning it. It keeps the cell alive, so
// Expired and Lock stay safe to call after every strong owner is gone, but
// it never delays the payload's release. The zero value is an empty
// observer.
type Weak[T any] struct {
	_ noCopy
	c *cell
	v *T
}

// Expired reports whether the payload is already gone. Empty observers are
// expired. A false result is advisory only: the last owner may release
// between Expired and any later call, so use Lock when the payload is
// actually needed.
func (w *Weak[T]) Expired() bool {
	if w == nil || w.c == nil {
		return true
	}
	return w.c.strong() == 0
}

// Lock upgrades the observer to an owning handle. The upgrade and the
// expiry check are one atomic step, so a true result guarantees the
// payload stays alive until the returned handle is released, no matter
// what the other owners do meanwhile. On an expired or empty observer it
// reports false and the handle is empty.
func (w *Weak[T]) Lock() (*Shared[T], bool) {
	if w == nil || w.c == nil || !w.c.tryRetain() {
		return &Shared[T]{}, false
	}
	return &Shared[T]{c: w.c, v: w.v}, true
}

// Clone mints another observer of the same payload. Cloning an empty
// observer yields an empty observer.
func (w *Weak[T]) Clone() *Weak[T] {
	if w == nil || w.c == nil {
		return &Weak[T]{}
	}
	w.c.weakRetain()
	return &Weak[T]{c: w.c, v: w.v}
}

// Release drops the observer and empties it. The cell itself is freed once
// the last observer of an already-released payload lets go. Idempotent per
// observer.
func (w *Weak[T]) Release() {
	if w == nil || w.c == nil {
		return
	}
	c := w.c
	w.c, w.v = nil, nil
	c.weakRelease()
}

// Valid reports whether the observer is attached to a cell. Unlike
// Expired it says nothing about the payload, only about this handle.
func (w *Weak[T]) Valid() bool {
	return w != nil && w.c != nil
}
