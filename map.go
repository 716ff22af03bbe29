package lfmap

import (
	"sync/atomic"
	"time"

	uatomic "go.uber.org/atomic"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// Map is a lock-free, linearizable concurrent map. It exposes the core
// operations Lookup, PutIfMatch, GetOrAdd, Clear, Count, and Snapshot,
// plus Range (a convenience over Snapshot) and Stats. A conventional "wrapper" map API (a typed Put/Get/Delete
// surface, compound add-or-update helpers, etc.) is left to callers to
// build as a thin layer over these primitives.
type Map[K comparable, V comparable] struct {
	top atomic.Pointer[table[K, V]]

	hasher    Hasher[K]
	kind      Kind
	chunkSize int
	logger    *zap.SugaredLogger

	lastPromotionNs uatomic.Int64
	resizeCount     uatomic.Uint64
}

// Config holds the options recognized at construction.
type Config struct {
	initialCapacity int
	hasher          interface{}
	kind            Kind
	chunkSize       int
	logger          *zap.Logger
}

// Option configures a Map at construction time.
type Option func(*Config)

// WithInitialCapacity sets the table's initial length, rounded up to
// the next power of two (default minSize = 8).
func WithInitialCapacity(n int) Option {
	return func(c *Config) { c.initialCapacity = n }
}

// WithHasher supplies the injected key capability. Required.
func WithHasher[K comparable](h Hasher[K]) Option {
	return func(c *Config) { c.hasher = h }
}

// WithSpecialization selects the table-kind zero-key handling;
// defaults to KindReference.
func WithSpecialization(k Kind) Option {
	return func(c *Config) { c.kind = k }
}

// WithLogger injects a *zap.Logger for migration-milestone diagnostics;
// defaults to a no-op logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Config) { c.logger = l }
}

// WithChunkSize overrides the migration engine's default chunk size of
// 1024. Letting tests pass a small chunk size deterministically
// exercises multi-chunk and panic-mode migration without a build tag.
func WithChunkSize(n int) Option {
	return func(c *Config) { c.chunkSize = n }
}

// NewMap constructs a Map. It returns a wrapped ErrInvalidArgument,
// aggregating every validation failure via multierr, if the capacity
// is negative, no hasher was supplied, or the chunk size is
// non-positive.
func NewMap[K comparable, V comparable](opts ...Option) (*Map[K, V], error) {
	cfg := Config{
		initialCapacity: minSize,
		kind:            KindReference,
		chunkSize:       defaultChunkSize,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	var errs error
	if cfg.initialCapacity < 0 {
		errs = multierr.Append(errs, invalidArgf("initial capacity must be non-negative, got %d", cfg.initialCapacity))
	}
	hasher, ok := cfg.hasher.(Hasher[K])
	if cfg.hasher == nil || !ok {
		errs = multierr.Append(errs, invalidArgf("a Hasher[K] must be supplied via WithHasher"))
	}
	if cfg.chunkSize <= 0 {
		errs = multierr.Append(errs, invalidArgf("chunk size must be positive, got %d", cfg.chunkSize))
	}
	if errs != nil {
		return nil, errs
	}

	zl := cfg.logger
	if zl == nil {
		zl = zap.NewNop()
	}

	m := &Map[K, V]{
		hasher:    hasher,
		kind:      cfg.kind,
		chunkSize: cfg.chunkSize,
		logger:    zl.Sugar(),
	}
	m.setLastPromotion(time.Now())
	m.top.Store(newTable[K, V](m, cfg.initialCapacity, nil))
	return m, nil
}

func (m *Map[K, V]) allocateTable(length int, sizeCounter *scalableCounter) (*table[K, V], error) {
	m.resizeCount.Add(1)
	return newTable[K, V](m, length, sizeCounter), nil
}

func (m *Map[K, V]) lastPromotion() time.Time {
	return time.Unix(0, m.lastPromotionNs.Load())
}

func (m *Map[K, V]) setLastPromotion(t time.Time) {
	m.lastPromotionNs.Store(t.UnixNano())
}

// isZeroKey applies the Kind-dependent zero-key rule: for the integer
// specializations, the numeric zero of K is treated as the "ZERO_HASH"
// case; for every other Kind, no key value is special-cased.
func (m *Map[K, V]) isZeroKey(k K) bool {
	if !m.kind.isIntegerKind() {
		return false
	}
	var zero K
	return k == zero
}

func (m *Map[K, V]) canonicalHashFor(k K) uint32 {
	raw := m.hasher.Hash(k)
	return canonicalHash(raw, m.isZeroKey(k))
}

// Lookup returns the live value stored under key, if any.
func (m *Map[K, V]) Lookup(key K) (V, bool) {
	h := m.canonicalHashFor(key)
	t := m.top.Load()
	for {
		v, status := t.lookup(key, h, m.hasher)
		switch status {
		case lookupFound:
			return v, true
		case lookupNotFound:
			var zero V
			return zero, false
		default: // lookupRedirect
			t = t.nextTable()
		}
	}
}

// PutIfMatch conditionally writes newVal under key according to match.
// newVal is ignored (and TOMBSTONE semantics hold) when isTombstone is
// true, matching a "remove" call.
func (m *Map[K, V]) PutIfMatch(key K, newVal V, isTombstone bool, match Match[V]) (old V, hadOld bool, applied bool) {
	nv := &valueState[V]{kind: vkLive, val: newVal}
	if isTombstone {
		nv = &valueState[V]{kind: vkTombstone}
	}
	h := m.canonicalHashFor(key)
	t := m.top.Load()
	for {
		res, status := t.putIfMatchCore(key, h, nv, match, m.hasher, false)
		if status == putDone {
			return res.old, res.hadOld, res.applied
		}
		t = t.nextTable()
	}
}

// GetOrAdd returns the live value under key, computing and inserting
// f(key) if none exists. f is called at most once per call to GetOrAdd,
// regardless of how many times the underlying CAS retries.
func (m *Map[K, V]) GetOrAdd(key K, f func(K) V) V {
	// Redirects to a successor table reuse the first produced value.
	var produced V
	called := false
	once := func(k K) V {
		if !called {
			produced = f(k)
			called = true
		}
		return produced
	}
	h := m.canonicalHashFor(key)
	t := m.top.Load()
	for {
		res, status := t.getOrAddCore(key, h, once, m.hasher)
		if status == putDone {
			return res.old
		}
		t = t.nextTable()
	}
}

// Clear atomically swaps the top pointer with a fresh, empty table of
// minSize.
func (m *Map[K, V]) Clear() {
	fresh := newTable[K, V](m, minSize, nil)
	m.top.Store(fresh)
	m.setLastPromotion(time.Now())
}

// Count returns a non-negative clamp of the top table's size counter.
func (m *Map[K, V]) Count() int {
	n := m.top.Load().sizeCounter.Value()
	if n < 0 {
		return 0
	}
	return int(n)
}

// Stats is a read-only snapshot of the current top table's migration
// bookkeeping, supplementing a bare Count() with the observability a
// production library of this shape would carry.
type Stats struct {
	Length            int
	SlotsUsed         int64
	EstimatedSize     int64
	Resizes           uint64
	LastPromotion     time.Time
	MigrationInFlight bool
}

func (m *Map[K, V]) Stats() Stats {
	t := m.top.Load()
	return Stats{
		Length:            t.length(),
		SlotsUsed:         t.slotsCounter.Value(),
		EstimatedSize:     t.sizeCounter.EstimatedValue(),
		Resizes:           m.resizeCount.Load(),
		LastPromotion:     m.lastPromotion(),
		MigrationInFlight: t.nextTable() != nil,
	}
}
