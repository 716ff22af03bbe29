package lfmap

import (
	"fmt"
	"testing"
)

// newBenchLockFree and newBenchLocking build maps pre-populated with n
// keys, used by both the read-heavy and write-heavy benchmarks below so
// the comparison starts from equivalent states.
func newBenchLockFree(b *testing.B, n int) *Map[int, int] {
	b.Helper()
	m, err := NewMap[int, int](WithHasher[int](intHasher{}))
	if err != nil {
		b.Fatal(err)
	}
	for i := 0; i < n; i++ {
		m.PutIfMatch(i, i, false, EmptyOrDeadMatch[int]())
	}
	return m
}

func newBenchLocking(n int) *lockingMap[int, int] {
	lm := newLockingMap[int, int](intHasher{}, 64)
	for i := 0; i < n; i++ {
		lm.Put(i, i)
	}
	return lm
}

func BenchmarkReadHeavy(b *testing.B) {
	const n = 10000
	for _, workers := range []int{1, 4, 16} {
		b.Run(fmt.Sprintf("lockfree/workers=%d", workers), func(b *testing.B) {
			m := newBenchLockFree(b, n)
			b.SetParallelism(workers)
			b.RunParallel(func(pb *testing.PB) {
				i := 0
				for pb.Next() {
					m.Lookup(i % n)
					i++
				}
			})
		})
		b.Run(fmt.Sprintf("locking/workers=%d", workers), func(b *testing.B) {
			lm := newBenchLocking(n)
			b.SetParallelism(workers)
			b.RunParallel(func(pb *testing.PB) {
				i := 0
				for pb.Next() {
					lm.Get(i % n)
					i++
				}
			})
		})
	}
}

func BenchmarkWriteHeavy(b *testing.B) {
	const n = 10000
	for _, workers := range []int{1, 4, 16} {
		b.Run(fmt.Sprintf("lockfree/workers=%d", workers), func(b *testing.B) {
			m := newBenchLockFree(b, n)
			b.SetParallelism(workers)
			b.RunParallel(func(pb *testing.PB) {
				i := 0
				for pb.Next() {
					m.PutIfMatch(i%n, i, false, AnyMatch[int]())
					i++
				}
			})
		})
		b.Run(fmt.Sprintf("locking/workers=%d", workers), func(b *testing.B) {
			lm := newBenchLocking(n)
			b.SetParallelism(workers)
			b.RunParallel(func(pb *testing.PB) {
				i := 0
				for pb.Next() {
					lm.Put(i%n, i)
					i++
				}
			})
		})
	}
}

func BenchmarkChurnHeavy(b *testing.B) {
	const n = 2000
	for _, workers := range []int{1, 4, 16} {
		b.Run(fmt.Sprintf("lockfree/workers=%d", workers), func(b *testing.B) {
			m := newBenchLockFree(b, n)
			b.SetParallelism(workers)
			b.RunParallel(func(pb *testing.PB) {
				i := 0
				for pb.Next() {
					k := i % n
					m.PutIfMatch(k, 0, true, AliveMatch[int]())
					m.PutIfMatch(k, k, false, EmptyOrDeadMatch[int]())
					i++
				}
			})
		})
		b.Run(fmt.Sprintf("locking/workers=%d", workers), func(b *testing.B) {
			lm := newBenchLocking(n)
			b.SetParallelism(workers)
			b.RunParallel(func(pb *testing.PB) {
				i := 0
				for pb.Next() {
					k := i % n
					lm.Remove(k)
					lm.PutIfAbsent(k, k)
					i++
				}
			})
		})
	}
}
