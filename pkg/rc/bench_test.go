package rc

import "testing"

func BenchmarkNewShared(b *testing.B) {
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		v := i
		NewShared(&v, nil).Release()
	}
}

func BenchmarkSharedClone(b *testing.B) {
	v := 42
	s := NewShared(&v, nil)
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		s.Clone().Release()
	}
}

func BenchmarkSharedCloneParallel(b *testing.B) {
	v := 42
	s := NewShared(&v, nil)
	b.ReportAllocs()
	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			s.Clone().Release()
		}
	})
}

func BenchmarkWeakLock(b *testing.B) {
	v := 42
	s := NewShared(&v, nil)
	w := s.Weak()
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		c, _ := w.Lock()
		c.Release()
	}
}
