package lfmap

// lookupStatus is the outcome of a single-table lookup attempt.
type lookupStatus uint8

const (
	lookupFound lookupStatus = iota
	lookupNotFound
	lookupRedirect
)

// lookup resolves key against a single table. No locks and no writes
// happen here except the migration assist when a Boxed value is
// observed.
func (t *table[K, V]) lookup(key K, h uint32, hasher Hasher[K]) (V, lookupStatus) {
	var zero V
	i := indexFor(h, t.lenMask)
	var reprobeCount uint32
	limit := reprobeLimit(t.lenMask)

	for {
		s := &t.slots[i]
		sh := s.loadHash()

		if sh == emptyHash {
			return zero, lookupNotFound
		}

		if sh == h {
			k, claimed := s.loadKey()
			if claimed && hasher.Equal(k, key) {
				vs := s.loadValue()
				if vs.isTombstone() && !vs.isBoxed() {
					return zero, lookupNotFound
				}
				if vs.isBoxed() {
					t.helpCopySlot(i)
					return zero, lookupRedirect
				}
				return vs.val, lookupFound
			}
		}

		if reprobeCount >= limit || sh == movedHash {
			if t.nextTable() != nil {
				return zero, lookupRedirect
			}
			return zero, lookupNotFound
		}
		reprobeCount++
		i = nextProbe(i, reprobeCount, t.lenMask)
	}
}

// putStatus is the outcome of a single-table putIfMatch attempt.
type putStatus uint8

const (
	putDone putStatus = iota
	putRedirect
)

// putResult carries the (old value, applied) pair back to the caller.
type putResult[V comparable] struct {
	old     V
	hadOld  bool
	applied bool
}

// claimSlot performs the slot-claim phase (hash, then key, CAS
// progression) followed by the crowding check. It returns the claimed
// slot and its index ready for a value-transition loop, or a non-nil
// redirect table the caller must restart on.
func (t *table[K, V]) claimSlot(key K, h uint32, hasher Hasher[K]) (idx uint32, s *slot[K, V], redirect *table[K, V]) {
	i := indexFor(h, t.lenMask)
	var reprobeCount uint32
	limit := reprobeLimit(t.lenMask)

	for {
		s = &t.slots[i]
		sh := s.loadHash()

		if sh == emptyHash {
			if claimed, _ := s.claimHash(h); claimed {
				if h == zeroHash {
					t.slotsCounter.Increment()
				}
				sh = h
			} else {
				sh = s.loadHash()
			}
		}

		if sh == h {
			k, claimed := s.loadKey()
			if !claimed {
				if s.claimKey(key) {
					if h != zeroHash {
						t.slotsCounter.Increment()
					}
					return t.settleClaim(i, s)
				}
				k, claimed = s.loadKey()
				if !claimed {
					continue
				}
			}
			if hasher.Equal(k, key) {
				return t.settleClaim(i, s)
			}
			// Key mismatch at this hash: keep reprobing.
		}

		if reprobeCount >= limit || sh == movedHash {
			return 0, nil, t.ensureNextTable()
		}
		reprobeCount++
		i = nextProbe(i, reprobeCount, t.lenMask)
	}
}

// settleClaim performs the crowding check once the slot matching key
// has been claimed.
func (t *table[K, V]) settleClaim(i uint32, s *slot[K, V]) (uint32, *slot[K, V], *table[K, V]) {
	observedOnce := s.loadValue() // single read of value[i] for this decision
	nt := t.nextTable()
	if nt == nil && t.crowded() {
		nt = t.resize()
	}
	if nt != nil || observedOnce.isBoxed() {
		if nt == nil {
			nt = t.resize()
		} else {
			// A successor is set, either found above or just returned
			// by the crowding resize() call above (which has already
			// driven one chunk); nudge migration forward here so
			// redirecting callers keep making progress even when
			// nothing ever observes a Boxed value directly.
			t.helpCopyChunk(nt)
		}
		// Move slot i itself before redirecting, so the retry on nt sees
		// this key's current value and later readers of t find it boxed.
		t.copySlot(nt, i)
		return 0, nil, nt
	}
	return i, s, nil
}

// sameValueState reports whether a and b represent the same logical
// value: both tombstoned, or both live with equal payloads. Used only
// by PutIfMatch's MatchAny no-op exception.
func sameValueState[V comparable](a, b *valueState[V]) bool {
	if a.isTombstone() != b.isTombstone() {
		return false
	}
	if a.isTombstone() {
		return true
	}
	return a.val == b.val
}

// putIfMatchCore performs the value-transition loop on top of
// claimSlot's claim and crowding check. skipSizeAdjust is set by the
// migration copier, which must not double-count a value that is only
// being relocated, not created or destroyed; everywhere else it is
// false.
func (t *table[K, V]) putIfMatchCore(key K, h uint32, newVal *valueState[V], match Match[V], hasher Hasher[K], skipSizeAdjust bool) (putResult[V], putStatus) {
	i, s, redirect := t.claimSlot(key, h, hasher)
	if redirect != nil {
		return putResult[V]{}, putRedirect
	}

	for {
		observed := s.loadValue()
		if observed.isBoxed() {
			t.helpCopySlot(i)
			return putResult[V]{}, putRedirect
		}

		// observed is nil while the slot's value is still unclaimed.
		var oldVal V
		if observed != nil {
			oldVal = observed.val
		}

		if !match.matches(observed) {
			return putResult[V]{old: oldVal, hadOld: observed.isLive()}, putDone
		}
		if match.Kind == MatchAny && sameValueState(observed, newVal) {
			return putResult[V]{old: oldVal, hadOld: observed.isLive()}, putDone
		}

		if s.casValue(observed, newVal) {
			if !skipSizeAdjust {
				adjustSizeCounter(t, observed, newVal)
			}
			return putResult[V]{old: oldVal, hadOld: observed.isLive(), applied: true}, putDone
		}
		// Lost the CAS race; reread and re-evaluate.
	}
}

// adjustSizeCounter applies the ±1/0 size-counter delta for a
// live/tombstone transition.
func adjustSizeCounter[K comparable, V comparable](t *table[K, V], prev, next *valueState[V]) {
	wasLive := prev.isLive()
	willBeLive := next.isLive()
	switch {
	case !wasLive && willBeLive:
		t.sizeCounter.Increment()
	case wasLive && !willBeLive:
		t.sizeCounter.Decrement()
	}
}

// getOrAddCore performs the get-or-insert transition on top of
// claimSlot's claim and crowding check. f is invoked at most once, and
// only once no live value has been confirmed present.
func (t *table[K, V]) getOrAddCore(key K, h uint32, f func(K) V, hasher Hasher[K]) (putResult[V], putStatus) {
	i, s, redirect := t.claimSlot(key, h, hasher)
	if redirect != nil {
		return putResult[V]{}, putRedirect
	}

	observed := s.loadValue()
	if observed.isBoxed() {
		t.helpCopySlot(i)
		return putResult[V]{}, putRedirect
	}
	if observed.isLive() {
		return putResult[V]{old: observed.val, hadOld: true}, putDone
	}

	// f is called exactly once, here, only after no live value has been
	// confirmed present; it is never invoked from claimSlot's reprobe
	// loop.
	produced := &valueState[V]{kind: vkLive, val: f(key)}
	for {
		if s.casValue(observed, produced) {
			adjustSizeCounter(t, observed, produced)
			return putResult[V]{old: produced.val, hadOld: false, applied: true}, putDone
		}
		// Lost the race. If the winner installed a live value,
		// produced is discarded and the winner's value returned; if
		// the slot merely churned through another tombstone state,
		// retry the same produced value without calling f again.
		observed = s.loadValue()
		if observed.isBoxed() {
			t.helpCopySlot(i)
			return putResult[V]{}, putRedirect
		}
		if observed.isLive() {
			return putResult[V]{old: observed.val, hadOld: true}, putDone
		}
	}
}
