package lfmap

// Hasher is the key capability injected at construction: a
// deterministic hash together with an equivalence relation over K. The
// relation must be reflexive, symmetric, transitive, and consistent
// with Hash (equal keys hash equally); the map assumes nothing further
// and gives no guarantees if the capability violates this.
type Hasher[K comparable] interface {
	Hash(k K) uint32
	Equal(a, b K) bool
}

// funcHasher adapts two plain functions into a Hasher, the common case
// for primitive key types where Equal is just ==.
type funcHasher[K comparable] struct {
	hash  func(K) uint32
	equal func(a, b K) bool
}

func (f funcHasher[K]) Hash(k K) uint32   { return f.hash(k) }
func (f funcHasher[K]) Equal(a, b K) bool { return f.equal(a, b) }

// NewHasher builds a Hasher from a hash function and an equality
// function, for callers who don't want to define a named type.
func NewHasher[K comparable](hash func(K) uint32, equal func(a, b K) bool) Hasher[K] {
	return funcHasher[K]{hash: hash, equal: equal}
}

// Kind tags which zero-key strategy a Map uses for its key type. All
// kinds share one slot/table representation (see DESIGN.md for why
// monomorphized per-kind table types were not duplicated); Kind only
// changes how a key is classified as "the zero key" for the ZERO_HASH
// short-circuit in canonicalHash.
type Kind uint8

const (
	// KindReference is for key types whose zero value (e.g. a nil
	// pointer, nil interface, or empty string used as a sentinel) is a
	// legitimate, storable key like any other; no zero-key
	// special-casing is performed. This is the default.
	KindReference Kind = iota

	// KindInt32, KindInt64, KindNativeInt flag that K is an integer
	// type whose numeric zero is common enough in practice to deserve
	// the ZERO_HASH short-circuit: when the zero key is inserted, its
	// canonical hash is forced to ZERO_HASH regardless
	// of what the injected Hasher computes for it, and its slot is
	// counted as used as soon as that hash is claimed. Whether a slot's
	// key is claimed is told by the key field itself (a nil pointer
	// means unclaimed), as for every other Kind.
	KindInt32
	KindInt64
	KindNativeInt

	// KindBoxedValue marks a map whose keys are themselves boxed
	// (interface-typed) values compared via the injected Hasher rather
	// than Go's built-in comparable ==; it behaves like KindReference
	// for zero-key purposes but documents the intent at construction.
	KindBoxedValue
)

func (k Kind) isIntegerKind() bool {
	return k == KindInt32 || k == KindInt64 || k == KindNativeInt
}

// canonicalHash maps a raw 32-bit hash to a canonical form that is
// never EMPTY_HASH, MOVED_HASH, or ZERO_HASH except by definition.
// isZeroKey is true when the key being hashed equals K's
// zero value under the Map's Kind-dependent zero-key rule.
func canonicalHash(raw uint32, isZeroKey bool) uint32 {
	if isZeroKey {
		return zeroHash
	}
	h := raw | movedHash | zeroHash
	return h
}

// tableHash applies the index-derivation step: a murmur-style avalanche
// is mixed in only when the hash's significant bits already fit inside
// the table's length mask (i.e. h has no bits set outside lenMask),
// which is exactly the case where a raw, un-avalanched hash would
// cluster regardless of table size. Already-spread hashes (the common
// case once canonicalHash has OR'd in the two high bits) pass through
// untouched.
func tableHash(h uint32, lenMask uint32) uint32 {
	if h&^lenMask != 0 {
		return h
	}
	h ^= h >> 15
	h *= 0x85ebca6b
	h ^= h >> 13
	h *= 0xc2b2ae35
	h ^= h >> 16
	return h
}

func indexFor(h uint32, lenMask uint32) uint32 {
	return tableHash(h, lenMask) & lenMask
}

// reprobeLimit is 4 + (lenMask / 2).
func reprobeLimit(lenMask uint32) uint32 {
	return reprobeLimitBase + (lenMask >> reprobeLimitShift)
}

// nextProbe advances the index using a triangular (quadratic-style)
// reprobe sequence: i = (i + reprobeCount) & lenMask.
func nextProbe(i uint32, reprobeCount uint32, lenMask uint32) uint32 {
	return (i + reprobeCount) & lenMask
}

// nextPow2 rounds n up to the next power of two, clamped to maxSize.
func nextPow2(n int) int {
	if n <= minSize {
		return minSize
	}
	p := minSize
	for p < n {
		p <<= 1
		if p >= maxSize {
			return maxSize
		}
	}
	return p
}
