// Package rc provides reference-counted ownership handles for arbitrary
// payloads: Unique for exclusive ownership, Shared for counted shared
// ownership and Weak for non-owning observation with a checked upgrade.
//
// Handles are created by constructors and passed around as pointers. A
// handle instance is not safe for concurrent use itself (Clone first and
// hand the clone over), but the counters behind any number of handles are:
// clones of the same payload can be retained, released and upgraded from
// any goroutine. Payload contents get no protection from this package.
//
// Copying a handle value would share the counters without having taken a
// stake in them, so the handle types embed a lock-like marker making go vet
// flag such copies.
package rc

import (
	"errors"
	"sync/atomic"
)

// ErrNilHandle is the panic value of a dereference through an empty handle.
// An empty handle is a programming error at the point of use, the same way
// a nil pointer dereference is: check Valid first.
var ErrNilHandle = errors.New("dereference of empty handle")

// Counter misuse is fatal: the counts are trusted to free the payload
// exactly once, so once they are off there is nothing sane left to do.
var (
	errCountOverflow  = errors.New("reference count overflow")
	errCountUnderflow = errors.New("reference count underflow")
)

// Layout of the cell state word: strong owners in the low 32 bits, weak
// observers in the high 32 bits. One word means every lifetime transition
// is a single atomic read-modify-write, leaving no window between "check
// strong" and "bump strong" for an upgrade to race with the last release.
const (
	strongMask = 1<<32 - 1
	weakUnit   = 1 << 32
)

// cell is the control block shared by every handle to one payload. The
// typed payload pointer lives in the handles; the cell keeps only counts
// and the type-erased deleter, which is what lets differently-typed
// aliases of one payload share a single cell.
//
// All strong owners together hold one implicit weak unit, released only
// after the deleter has finished. The word therefore hits zero exactly
// once, and never before the payload is fully released.
type cell struct {
	state atomic.Uint64

	// drop releases the payload. It is run exactly once, by the release
	// that takes the strong count to zero, and nil when the payload needs
	// no cleanup beyond garbage collection.
	drop func()

	// id tags the cell for the installed Tracer, zero when tracing was off
	// at allocation time.
	id uint64
}

func newCell(drop func()) *cell {
	c := &cell{drop: drop}
	c.state.Store(weakUnit | 1)
	c.id = allocID()
	return c
}

// retain adds a strong owner. The caller must already hold one, so the
// count is known to be nonzero.
func (c *cell) retain() {
	if c.state.Add(1)&strongMask == 0 {
		panic(errCountOverflow)
	}
}

// tryRetain adds a strong owner only if at least one still exists, as a
// single compare-and-swap. It reports whether the payload was still alive.
// This is the weak-upgrade primitive: a true result means the payload
// cannot be released before the new stake is dropped.
func (c *cell) tryRetain() bool {
	for {
		s := c.state.Load()
		if s&strongMask == 0 {
			return false
		}
		if s&strongMask == strongMask {
			panic(errCountOverflow)
		}
		if c.state.CompareAndSwap(s, s+1) {
			return true
		}
	}
}

// release drops a strong owner. The release that zeroes the strong count
// runs the deleter and then returns the implicit weak unit, which retires
// the cell unless observers remain.
func (c *cell) release() {
	s := c.state.Add(^uint64(0))
	if s&strongMask == strongMask {
		panic(errCountUnderflow)
	}
	if s&strongMask != 0 {
		return
	}
	var recovered any
	if c.drop != nil {
		recovered = runDrop(c.drop)
		c.drop = nil
	}
	traceReleased(c.id, recovered)
	c.weakRelease()
}

// weakRetain adds a weak observer.
func (c *cell) weakRetain() {
	if c.state.Add(weakUnit)>>32 == 0 {
		panic(errCountOverflow)
	}
}

// weakRelease drops a weak unit. The drop that zeroes the whole word
// retires the cell; the memory itself is garbage collected, so retirement
// is only visible through the tracer.
func (c *cell) weakRelease() {
	s := c.state.Add(^uint64(weakUnit - 1))
	if s>>32 == strongMask {
		panic(errCountUnderflow)
	}
	if s != 0 {
		return
	}
	traceFreed(c.id)
}

func (c *cell) strong() uint32 {
	return uint32(c.state.Load() & strongMask)
}

// observers returns the number of weak observers, with the implicit unit
// held by live strong owners filtered out. Like the strong count it can be
// stale as soon as it is read.
func (c *cell) observers() uint32 {
	s := c.state.Load()
	w := uint32(s >> 32)
	if s&strongMask != 0 {
		w--
	}
	return w
}

// runDrop fences the deleter: a panic at what is conceptually destructor
// stage must not escape into whichever unrelated Release happened to come
// last. The recovered value is handed to the tracer instead.
func runDrop(drop func()) (recovered any) {
	defer func() {
		recovered = recover()
	}()
	drop()
	return nil
}

// noCopy makes go vet's copylocks check flag value copies of the handle
// types.
type noCopy struct{}

func (*noCopy) Lock()   {}
func (*noCopy) Unlock() {}
