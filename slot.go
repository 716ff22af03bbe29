package lfmap

import "sync/atomic"

// valueKind tags what a slot's value pointer currently represents. The
// unclaimed state ("NULL_REF") is the nil *valueState[V]; the remaining
// states are distinguished by this tag rather than by pointer identity
// alone, since V is an arbitrary comparable type and we cannot rely on
// a single process-wide tombstone literal shared across every
// instantiation of Map[K, V] (see DESIGN.md).
type valueKind uint8

const (
	vkTombstone valueKind = iota
	vkLive
	vkBoxedTombstone
	vkBoxedLive
)

// valueState is the payload a slot's value pointer refers to. A nil
// *valueState means unclaimed. Once allocated, a valueState is never
// mutated in place; transitions always install a new pointer via CAS.
type valueState[V comparable] struct {
	kind valueKind
	val  V
}

func (vs *valueState[V]) isLive() bool {
	return vs != nil && vs.kind == vkLive
}

func (vs *valueState[V]) isBoxed() bool {
	return vs != nil && (vs.kind == vkBoxedLive || vs.kind == vkBoxedTombstone)
}

func (vs *valueState[V]) isTombstone() bool {
	return vs == nil || vs.kind == vkTombstone || vs.kind == vkBoxedTombstone
}

// box returns the Boxed wrapper for vs, freezing it against further
// writes during migration: a live value boxes to vkBoxedLive carrying
// the same payload; an unclaimed or tombstoned value both box to the
// shared boxedTombstone singleton (the distinction between "never had
// a value" and "had a value, now deleted" is not needed in the
// successor table).
func (vs *valueState[V]) box(boxedTombstone *valueState[V]) *valueState[V] {
	if vs.isLive() {
		return &valueState[V]{kind: vkBoxedLive, val: vs.val}
	}
	return boxedTombstone
}

// slot is one cell of a table: three atomically-mutated fields whose
// joint lifecycle only ever moves forward (unclaimed -> claimed hash
// -> claimed key -> live/tombstone -> boxed).
type slot[K comparable, V comparable] struct {
	hash  atomic.Uint32
	key   atomic.Pointer[K]
	value atomic.Pointer[valueState[V]]
}

func (s *slot[K, V]) loadHash() uint32 { return s.hash.Load() }

// claimHash CASes hash from EMPTY_HASH to h. claimed is true when this
// goroutine's CAS succeeded; otherwise alreadyHeld reports whether the
// slot already holds h (another goroutine got there first with the
// same canonical hash).
func (s *slot[K, V]) claimHash(h uint32) (claimed bool, alreadyHeld bool) {
	if s.hash.CompareAndSwap(emptyHash, h) {
		return true, false
	}
	return false, s.hash.Load() == h
}

// markMoved CASes an EMPTY_HASH slot straight to MOVED_HASH, used by
// the migration copier to keep new claims from landing in a slot the
// copier has already passed.
func (s *slot[K, V]) markMoved() bool {
	return s.hash.CompareAndSwap(emptyHash, movedHash)
}

// loadKey returns the claimed key and whether the key field is
// currently claimed at all.
func (s *slot[K, V]) loadKey() (K, bool) {
	p := s.key.Load()
	if p == nil {
		var zero K
		return zero, false
	}
	return *p, true
}

// claimKey CASes the key field from unclaimed (nil) to k.
func (s *slot[K, V]) claimKey(k K) bool {
	return s.key.CompareAndSwap(nil, &k)
}

func (s *slot[K, V]) loadValue() *valueState[V] {
	return s.value.Load()
}

func (s *slot[K, V]) casValue(old, new *valueState[V]) bool {
	return s.value.CompareAndSwap(old, new)
}
