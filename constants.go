package lfmap

import "time"

// Kept as untyped-friendly consts so they drop straight into index
// arithmetic without conversions.
const (
	// minSize is the smallest table length ever allocated; also the
	// length of the table installed by Clear.
	minSize = 8

	// maxSize bounds table growth; a table can never index more slots
	// than this (length must stay representable as a Go int index and
	// fit the canonical-hash high-bit scheme).
	maxSize = 1 << 30

	// maxChurnSize caps how aggressively the churn heuristic grows a
	// table that is being hit by repeated insert/delete pairs rather
	// than genuine growth.
	maxChurnSize = 1 << 15

	// defaultChunkSize is the number of slots a single migration helper
	// claims at once. WithChunkSize overrides this, primarily so tests
	// can force multiple chunks/panic mode on small tables without a
	// debug build tag.
	defaultChunkSize = 1024

	// debugChunkSize is a small chunk size for exercising multi-chunk
	// and panic-mode migration deterministically in tests, via
	// WithChunkSize(debugChunkSize) rather than a build tag.
	debugChunkSize = 16

	// reprobeLimitBase and reprobeLimitShift compute the reprobe limit
	// as reprobeLimitBase + (lenMask >> reprobeLimitShift), i.e.
	// 4 + length/2 - 1 for a power-of-two length.
	reprobeLimitBase  = 4
	reprobeLimitShift = 1

	// crowdingNumerator/crowdingShift express the 75% crowding
	// threshold as the integer comparison slotsUsed > (length>>2)*3.
	crowdingNumerator = 3
	crowdingShift     = 2

	// resizeMillisTarget is the churn heuristic's target gap between
	// promotions.
	resizeMillisTarget = time.Second
)

// Canonical hash sentinels: reserved bit patterns no ordinary hash may
// collide with.
const (
	emptyHash uint32 = 0
	movedHash uint32 = 1 << 31
	zeroHash  uint32 = 1 << 30
)
