package rc

// Unique is a move-only exclusive owner of a payload. There is no counting
// behind it and no observer can attach to it; at most one live handle owns
// the payload, which is released deterministically when that handle is
// released or reset. The zero value is an empty handle.
type Unique[T any] struct {
	_    noCopy
	v    *T
	drop func()
	id   uint64
}

// NewUnique takes exclusive ownership of v. del releases the payload when
// the handle lets go of it; nil is fine for payloads with no cleanup
// beyond garbage collection. A nil v yields an empty handle.
func NewUnique[T any](v *T, del func(*T)) *Unique[T] {
	if v == nil {
		return &Unique[T]{}
	}
	return &Unique[T]{v: v, drop: eraseDel(v, del), id: allocID()}
}

// Move transfers ownership into a fresh handle and empties u.
func (u *Unique[T]) Move() *Unique[T] {
	if u == nil || u.v == nil {
		return &Unique[T]{}
	}
	n := &Unique[T]{v: u.v, drop: u.drop, id: u.id}
	u.v, u.drop, u.id = nil, nil, 0
	return n
}

// Release destroys the payload now and empties the handle. The deleter
// runs at most once however often Release is called; a panic inside it is
// swallowed and reported through the tracer, never propagated.
func (u *Unique[T]) Release() {
	if u == nil || u.v == nil {
		return
	}
	drop, id := u.drop, u.id
	u.v, u.drop, u.id = nil, nil, 0
	var recovered any
	if drop != nil {
		recovered = runDrop(drop)
	}
	traceReleased(id, recovered)
	traceFreed(id)
}

// Detach relinquishes ownership without destroying the payload: the raw
// pointer is handed back to the caller, who owns it from here on, the
// deleter is discarded and the handle becomes empty. Returns nil on an
// empty handle.
func (u *Unique[T]) Detach() *T {
	if u == nil || u.v == nil {
		return nil
	}
	v, id := u.v, u.id
	u.v, u.drop, u.id = nil, nil, 0
	traceFreed(id)
	return v
}

// Reset destroys the current payload, if any, and optionally adopts a new
// one exactly as NewUnique would. Resetting an empty handle to nil is a
// no-op.
func (u *Unique[T]) Reset(v *T, del func(*T)) {
	if u == nil {
		return
	}
	u.Release()
	if v != nil {
		u.v, u.drop, u.id = v, eraseDel(v, del), allocID()
	}
}

// Value returns the payload. It panics with ErrNilHandle on an empty
// handle; use Valid to check first.
func (u *Unique[T]) Value() *T {
	if u == nil || u.v == nil {
		panic(ErrNilHandle)
	}
	return u.v
}

// Valid reports whether the handle owns a payload.
func (u *Unique[T]) Valid() bool {
	return u != nil && u.v != nil
}
