package rc

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/atomic"
)

func TestSharedClone(t *testing.T) {
	dropped := 0
	v := 42
	a := NewShared(&v, func(*int) { dropped++ })
	require.Equal(t, 1, a.UseCount())
	require.Equal(t, 42, *a.Value())

	b := a.Clone()
	require.Equal(t, 2, a.UseCount())
	require.Equal(t, 2, b.UseCount())
	require.Same(t, a.Value(), b.Value())

	b.Release()
	require.Equal(t, 1, a.UseCount())
	require.Equal(t, 0, dropped)

	a.Release()
	require.Equal(t, 1, dropped)
	require.False(t, a.Valid())
}

func TestSharedCountMatchesHandles(t *testing.T) {
	v := "payload"
	handles := []*Shared[string]{NewShared(&v, nil)}
	for i := 0; i < 9; i++ {
		handles = append(handles, handles[i].Clone())
		require.Equal(t, len(handles), handles[0].UseCount())
	}
	for len(handles) > 1 {
		handles[len(handles)-1].Release()
		handles = handles[:len(handles)-1]
		require.Equal(t, len(handles), handles[0].UseCount())
	}
	handles[0].Release()
	require.Equal(t, 0, handles[0].UseCount())
}

func TestSharedRelease(t *testing.T) {
	dropped := 0
	v := 7
	s := NewShared(&v, func(*int) { dropped++ })
	s.Release()
	require.Equal(t, 1, dropped)
	require.False(t, s.Valid())
	require.Equal(t, 0, s.UseCount())
	// Second release of the same handle changes nothing.
	s.Release()
	require.Equal(t, 1, dropped)
}

func TestSharedValueEmpty(t *testing.T) {
	s := &Shared[int]{}
	require.PanicsWithValue(t, ErrNilHandle, func() { s.Value() })

	v := 1
	p := NewShared(&v, nil)
	p.Release()
	require.PanicsWithValue(t, ErrNilHandle, func() { p.Value() })
}

func TestSharedMove(t *testing.T) {
	dropped := 0
	v := 3
	s := NewShared(&v, func(*int) { dropped++ })
	m := s.Move()
	require.False(t, s.Valid())
	require.PanicsWithValue(t, ErrNilHandle, func() { s.Value() })
	require.Equal(t, 1, m.UseCount())
	require.Equal(t, 3, *m.Value())

	m.Release()
	require.Equal(t, 1, dropped)
	require.False(t, s.Move().Valid())
}

func TestSharedReset(t *testing.T) {
	first, second := 0, 0
	v1, v2 := 1, 2
	s := NewShared(&v1, func(*int) { first++ })
	s.Reset(&v2, func(*int) { second++ })
	require.Equal(t, 1, first)
	require.Equal(t, 1, s.UseCount())
	require.Equal(t, 2, *s.Value())

	s.Reset(nil, nil)
	require.Equal(t, 1, second)
	require.False(t, s.Valid())
	// Resetting an empty handle is a no-op.
	s.Reset(nil, nil)
	require.Equal(t, 1, first)
	require.Equal(t, 1, second)
	require.Equal(t, 0, s.UseCount())
}

func TestSharedResetDetaches(t *testing.T) {
	dropped := 0
	v := 1
	a := NewShared(&v, func(*int) { dropped++ })
	b := a.Clone()
	a.Reset(nil, nil)
	// Another owner is still around, so the payload survives.
	require.Equal(t, 0, dropped)
	require.Equal(t, 1, b.UseCount())
	b.Release()
	require.Equal(t, 1, dropped)
}

func TestSharedNilPayload(t *testing.T) {
	s := NewShared[int](nil, func(*int) { t.Fatal("deleter on empty handle") })
	require.False(t, s.Valid())
	require.Equal(t, 0, s.UseCount())
	require.Equal(t, 0, s.WeakCount())
	s.Release()
}

func TestSharedDeleterPanic(t *testing.T) {
	v := 1
	s := NewShared(&v, func(*int) { panic("deleter failed") })
	w := s.Weak()
	require.NotPanics(t, s.Release)
	// The cell survives the failure and observers see it expired.
	require.True(t, w.Expired())
	w.Release()
}

type blob struct {
	name string
	data []byte
}

func TestAlias(t *testing.T) {
	dropped := 0
	s := NewShared(&blob{name: "alias", data: []byte{1, 2, 3}}, func(*blob) { dropped++ })
	n := Alias(s, &s.Value().name)
	require.Equal(t, 2, s.UseCount())
	require.Equal(t, 2, n.UseCount())
	require.Equal(t, "alias", *n.Value())

	s.Release()
	// The alias keeps the whole payload alive, not just the field.
	require.Equal(t, 0, dropped)
	require.Equal(t, "alias", *n.Value())
	n.Release()
	require.Equal(t, 1, dropped)

	v := 1
	live := NewShared(&v, nil)
	require.False(t, Alias(live, (*int)(nil)).Valid())
	live.Release()
	require.False(t, Alias(live, &v).Valid())
}

func TestSharedConcurrent(t *testing.T) {
	const workers = 16
	const rounds = 1000

	dropped := atomic.NewInt64(0)
	v := 42
	s := NewShared(&v, func(*int) { dropped.Inc() })

	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		c := s.Clone()
		go func() {
			defer wg.Done()
			for j := 0; j < rounds; j++ {
				cc := c.Clone()
				assert.Equal(t, 42, *cc.Value())
				w := cc.Weak()
				cc.Release()
				w.Release()
			}
			c.Release()
		}()
	}
	wg.Wait()
	require.EqualValues(t, 0, dropped.Load())
	require.Equal(t, 1, s.UseCount())
	require.Equal(t, 0, s.WeakCount())
	s.Release()
	require.EqualValues(t, 1, dropped.Load())
}
