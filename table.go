package lfmap

import (
	"sync/atomic"
	"time"

	uatomic "go.uber.org/atomic"
)

// table is one generation of the map's backing array plus its
// migration bookkeeping. Tables form a singly-linked chain via next as
// the migration engine installs successors; the Map holds an atomic
// pointer to whichever table is currently "top".
type table[K comparable, V comparable] struct {
	slots   []slot[K, V]
	lenMask uint32

	// sizeCounter is shared by every table descended from the one that
	// first allocated it, so the live-key count survives a chain of
	// migrations; slotsCounter is fresh per table.
	sizeCounter  *scalableCounter
	slotsCounter *scalableCounter

	next atomic.Pointer[table[K, V]]

	claimedChunk uatomic.Uint32
	copyDone     uatomic.Uint32
	resizers     uatomic.Int32

	chunkSize int

	// boxedTombstone is this table's shared boxed-tombstone singleton,
	// allocated once per table so every migration copier on this table
	// compares by identity.
	boxedTombstone *valueState[V]

	m *Map[K, V]
}

func newTable[K comparable, V comparable](m *Map[K, V], length int, sizeCounter *scalableCounter) *table[K, V] {
	length = nextPow2(length)
	if sizeCounter == nil {
		sizeCounter = newScalableCounter()
	}
	t := &table[K, V]{
		slots:          make([]slot[K, V], length),
		lenMask:        uint32(length - 1),
		sizeCounter:    sizeCounter,
		slotsCounter:   newScalableCounter(),
		chunkSize:      m.chunkSize,
		boxedTombstone: &valueState[V]{kind: vkBoxedTombstone},
		m:              m,
	}
	return t
}

func (t *table[K, V]) length() int { return len(t.slots) }

// nextTable returns the successor table, or nil if none has been
// installed yet. The load is an acquire so a helper that observes a
// non-nil successor also observes everything published before it was
// installed.
func (t *table[K, V]) nextTable() *table[K, V] {
	return t.next.Load()
}

// installNext CASes next from nil to candidate; returns the table that
// ends up installed (the winner's, even if this call lost the race).
func (t *table[K, V]) installNext(candidate *table[K, V]) *table[K, V] {
	if t.next.CompareAndSwap(nil, candidate) {
		return candidate
	}
	return t.next.Load()
}

// crowded reports whether slotsCounter exceeds 75% of length, expressed
// as the integer comparison slotsUsed > (length >> 2) * 3.
func (t *table[K, V]) crowded() bool {
	length := uint32(t.length())
	used := t.slotsCounter.Value()
	threshold := int64((length >> crowdingShift) * crowdingNumerator)
	return used > threshold
}

// nextTableSize computes the successor's length: a baseline driven by
// the current size estimate, doubled for headroom, with a churn
// heuristic that caps growth when the table is being repeatedly
// emptied and refilled rather than genuinely growing.
func nextTableSize(currentLength int, currentSize int64, lastPromotion time.Time) int {
	baseline := currentSize + minSize/2
	target := baseline * 2

	if int(target) <= currentLength {
		// Churning: many tombstones, not genuine growth. Compare the
		// gap since the last promotion against the 1s churn target.
		elapsed := time.Since(lastPromotion)
		if elapsed <= 0 {
			elapsed = time.Nanosecond
		}
		if elapsed < resizeMillisTarget {
			target = int64(currentLength) * 2
		} else {
			scaled := float64(currentLength) * (float64(resizeMillisTarget) / float64(elapsed))
			target = int64(scaled)
		}
		if target > maxChurnSize {
			target = maxChurnSize
		}
		if target < minSize {
			target = minSize
		}
	}
	return nextPow2(int(target))
}
