package lfmap

// MatchKind selects one of PutIfMatch's four conditional-write modes.
type MatchKind uint8

const (
	// MatchAny unconditionally installs newVal (index assignment).
	MatchAny MatchKind = iota
	// MatchEmptyOrDead installs newVal only if the current value is
	// NULL_REF or TOMBSTONE ("try-add").
	MatchEmptyOrDead
	// MatchAlive installs newVal only if the current value is a live
	// payload ("remove" uses this with newVal = tombstone).
	MatchAlive
	// MatchEqualTo installs newVal only if the current value is live
	// and equal (under V's == operator) to Expected ("try-update",
	// "conditional remove").
	MatchEqualTo
)

// Match bundles a MatchKind with the expected value MatchEqualTo
// compares against. Values are required to be comparable so EQUAL_TO
// can be expressed with Go's built-in == rather than a
// reference-identity comparison.
type Match[V comparable] struct {
	Kind     MatchKind
	Expected V
}

func AnyMatch[V comparable]() Match[V] { return Match[V]{Kind: MatchAny} }

func EmptyOrDeadMatch[V comparable]() Match[V] { return Match[V]{Kind: MatchEmptyOrDead} }

func AliveMatch[V comparable]() Match[V] { return Match[V]{Kind: MatchAlive} }

func EqualToMatch[V comparable](expected V) Match[V] {
	return Match[V]{Kind: MatchEqualTo, Expected: expected}
}

// matches evaluates m against an observed value state (live/tombstone)
// without yet attempting the CAS.
func (m Match[V]) matches(observed *valueState[V]) bool {
	switch m.Kind {
	case MatchAny:
		return true
	case MatchEmptyOrDead:
		return observed.isTombstone()
	case MatchAlive:
		return observed.isLive()
	case MatchEqualTo:
		return observed.isLive() && observed.val == m.Expected
	default:
		return false
	}
}
