package track

import (
	"testing"

	"github.com/nspcc-dev/refs/pkg/rc"
	"github.com/stretchr/testify/require"
)

func installTracer(t *testing.T, tr rc.Tracer) {
	prev := rc.SetTracer(tr)
	t.Cleanup(func() { rc.SetTracer(prev) })
}

func TestCounters(t *testing.T) {
	c := NewCounters()
	installTracer(t, c)

	v := 1
	s := rc.NewShared(&v, func(*int) {})
	w := s.Weak()
	require.EqualValues(t, 1, c.Live())
	require.False(t, c.Settled())

	s.Release()
	snap := c.Snapshot()
	require.EqualValues(t, 1, snap.Allocated)
	require.EqualValues(t, 1, snap.Released)
	require.EqualValues(t, 0, snap.Freed)
	require.EqualValues(t, 0, snap.Failed)
	// The weak observer still pins the bookkeeping.
	require.False(t, c.Settled())

	w.Release()
	require.True(t, c.Settled())
	require.EqualValues(t, 1, c.Snapshot().Freed)
}

func TestCountersFailedRelease(t *testing.T) {
	c := NewCounters()
	installTracer(t, c)

	v := 1
	s := rc.NewShared(&v, func(*int) { panic("cleanup failed") })
	require.NotPanics(t, s.Release)
	snap := c.Snapshot()
	require.EqualValues(t, 1, snap.Released)
	require.EqualValues(t, 1, snap.Failed)
	require.True(t, c.Settled())
}

func TestMulti(t *testing.T) {
	a, b := NewCounters(), NewCounters()
	require.Nil(t, Multi())
	require.Nil(t, Multi(nil, nil))
	// A single survivor is returned as is.
	require.Same(t, a, Multi(nil, a))

	installTracer(t, Multi(a, b))
	v := 1
	rc.NewShared(&v, nil).Release()
	require.EqualValues(t, 1, a.Snapshot().Allocated)
	require.EqualValues(t, 1, b.Snapshot().Allocated)
	require.True(t, a.Settled())
	require.True(t, b.Settled())
}
