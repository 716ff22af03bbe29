package lfmap

import "sync"

// lockingMap is a segmented, mutex-guarded map: sharding a map into N
// independently-locked segments so unrelated keys don't contend on one
// global mutex, generalized to Go generics. It is not part of the
// public API; it exists as the write-locking baseline the benchmarks
// in bench_test.go measure the lock-free Map against.
type lockingMap[K comparable, V any] struct {
	mask     uint32
	segments []*lockingSegment[K, V]
	hasher   Hasher[K]
}

type lockingSegment[K comparable, V any] struct {
	mu sync.RWMutex
	m  map[K]V
}

// newLockingMap builds a segmented locking map with segmentCount
// segments (rounded up to a power of two), sharding by the low bits of
// the hasher's hash after its high half is XOR-folded into them.
func newLockingMap[K comparable, V any](hasher Hasher[K], segmentCount int) *lockingMap[K, V] {
	n := nextPow2Int(segmentCount)
	lm := &lockingMap[K, V]{
		mask:     uint32(n - 1),
		segments: make([]*lockingSegment[K, V], n),
		hasher:   hasher,
	}
	for i := range lm.segments {
		lm.segments[i] = &lockingSegment[K, V]{m: make(map[K]V)}
	}
	return lm
}

func (lm *lockingMap[K, V]) segmentFor(k K) *lockingSegment[K, V] {
	h := lm.hasher.Hash(k)
	h ^= h >> 16
	return lm.segments[h&lm.mask]
}

func (lm *lockingMap[K, V]) Get(k K) (V, bool) {
	seg := lm.segmentFor(k)
	seg.mu.RLock()
	defer seg.mu.RUnlock()
	v, ok := seg.m[k]
	return v, ok
}

func (lm *lockingMap[K, V]) Put(k K, v V) (old V, hadOld bool) {
	seg := lm.segmentFor(k)
	seg.mu.Lock()
	defer seg.mu.Unlock()
	old, hadOld = seg.m[k]
	seg.m[k] = v
	return old, hadOld
}

func (lm *lockingMap[K, V]) PutIfAbsent(k K, v V) (old V, hadOld bool) {
	seg := lm.segmentFor(k)
	seg.mu.Lock()
	defer seg.mu.Unlock()
	old, hadOld = seg.m[k]
	if !hadOld {
		seg.m[k] = v
	}
	return old, hadOld
}

func (lm *lockingMap[K, V]) Remove(k K) (old V, removed bool) {
	seg := lm.segmentFor(k)
	seg.mu.Lock()
	defer seg.mu.Unlock()
	old, removed = seg.m[k]
	if removed {
		delete(seg.m, k)
	}
	return old, removed
}

func (lm *lockingMap[K, V]) Len() int {
	n := 0
	for _, seg := range lm.segments {
		seg.mu.RLock()
		n += len(seg.m)
		seg.mu.RUnlock()
	}
	return n
}
