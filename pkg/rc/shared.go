package rc

// Shared is a copyable owner of a reference-counted payload. Every live
// Shared holds one strong reference to its cell; the payload is released,
// through the deleter given at construction, when the last one is gone.
// The zero value is an empty handle.
type Shared[T any] struct {
	_ noCopy
	c *cell
	v *T
}

// NewShared takes shared ownership of v. del releases the payload once the
// last owner is gone; nil is fine for payloads with no cleanup beyond
// garbage collection. A nil v yields an empty handle rather than counted
// ownership of nothing.
func NewShared[T any](v *T, del func(*T)) *Shared[T] {
	if v == nil {
		return &Shared[T]{}
	}
	return &Shared[T]{c: newCell(eraseDel(v, del)), v: v}
}

// eraseDel binds the typed deleter to its payload so the cell can hold it
// without knowing T.
func eraseDel[T any](v *T, del func(*T)) func() {
	if del == nil {
		return nil
	}
	return func() { del(v) }
}

// Clone mints a new handle sharing ownership with s. Cloning an empty
// handle yields another empty handle.
func (s *Shared[T]) Clone() *Shared[T] {
	if s == nil || s.c == nil {
		return &Shared[T]{}
	}
	s.c.retain()
	return &Shared[T]{c: s.c, v: s.v}
}

// Release drops this handle's stake and empties it. The release of the
// last owner runs the deleter, exactly once even when owners release
// concurrently. Release is idempotent per handle, so deferring it and
// releasing early are both fine.
func (s *Shared[T]) Release() {
	if s == nil || s.c == nil {
		return
	}
	c := s.c
	s.c, s.v = nil, nil
	c.release()
}

// Move transfers ownership into a fresh handle and empties s. The counters
// are untouched.
func (s *Shared[T]) Move() *Shared[T] {
	if s == nil || s.c == nil {
		return &Shared[T]{}
	}
	n := &Shared[T]{c: s.c, v: s.v}
	s.c, s.v = nil, nil
	return n
}

// Value returns the payload. It panics with ErrNilHandle on an empty
// handle; use Valid to check first. The payload is guaranteed alive for as
// long as this handle keeps its stake.
func (s *Shared[T]) Value() *T {
	if s == nil || s.c == nil {
		panic(ErrNilHandle)
	}
	return s.v
}

// Valid reports whether the handle currently holds a stake in a payload.
func (s *Shared[T]) Valid() bool {
	return s != nil && s.c != nil
}

// UseCount returns the number of strong owners of the payload, this handle
// included, or 0 for an empty handle. Informational: the value can be
// stale as soon as it is read when other owners run concurrently.
func (s *Shared[T]) UseCount() int {
	if s == nil || s.c == nil {
		return 0
	}
	return int(s.c.strong())
}

// WeakCount returns the number of weak observers of the payload, with the
// same staleness caveat as UseCount.
func (s *Shared[T]) WeakCount() int {
	if s == nil || s.c == nil {
		return 0
	}
	return int(s.c.observers())
}

// Reset re-points the handle: the current stake is dropped (releasing the
// payload if this was the last owner) and, for a non-nil v, a fresh cell
// is set up exactly like NewShared does. Resetting an empty handle to nil
// is a no-op.
func (s *Shared[T]) Reset(v *T, del func(*T)) {
	if s == nil {
		return
	}
	s.Release()
	if v != nil {
		s.c, s.v = newCell(eraseDel(v, del)), v
	}
}

// Weak derives an observer of s's payload. It never extends the payload's
// lifetime, only the cell's. An empty handle yields an empty observer.
func (s *Shared[T]) Weak() *Weak[T] {
	if s == nil || s.c == nil {
		return &Weak[T]{}
	}
	s.c.weakRetain()
	return &Weak[T]{c: s.c, v: s.v}
}

// Alias returns a handle that shares ownership bookkeeping with s but
// exposes sub instead of the owned payload, the usual case being a field
// of it. The alias keeps the whole payload alive; sub must stay valid for
// as long as the payload does. Aliasing an empty handle or a nil sub
// yields an empty handle.
func Alias[T, U any](s *Shared[T], sub *U) *Shared[U] {
	if s == nil || s.c == nil || sub == nil {
		return &Shared[U]{}
	}
	s.c.retain()
	return &Shared[U]{c: s.c, v: sub}
}
