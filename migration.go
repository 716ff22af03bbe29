package lfmap

import "time"

// ensureNextTable returns t's successor, allocating one if none exists
// yet. This serves both the reprobe-limit/MOVED_HASH resize assist and
// the crowding trigger: both call sites just need "a successor exists"
// and don't care which goroutine allocated it. Either way, it also
// drives one chunk of migration progress before returning, so a
// redirect from this table always makes forward progress rather than
// relying on some later operation to stumble on a Boxed value.
func (t *table[K, V]) ensureNextTable() *table[K, V] {
	if nt := t.nextTable(); nt != nil {
		t.helpCopyChunk(nt)
		return nt
	}
	return t.resize()
}

// resize handles successor sizing and admission control. At most two
// goroutines may be allocating a successor at once; any further
// caller spins briefly on next_table instead of piling up
// on a second allocation. Every return path performs one chunk's worth
// of copy progress on the successor before handing it back, so callers
// that only ever call resize()/ensureNextTable() (ordinary sequential
// traffic, with no goroutine ever observing a Boxed slot) still drain
// the table and promote it without needing Snapshot's full drain.
func (t *table[K, V]) resize() *table[K, V] {
	nt := t.nextTable()
	if nt == nil {
		if t.resizers.Add(1) > 2 {
			t.resizers.Add(-1)
			nt = t.spinForNext()
		} else {
			nt = t.resizeAsAdmitted()
			t.resizers.Add(-1)
		}
	}
	t.helpCopyChunk(nt)
	return nt
}

// resizeAsAdmitted performs the actual sizing and allocation once the
// caller has been admitted as one of at most two concurrent resizers.
func (t *table[K, V]) resizeAsAdmitted() *table[K, V] {
	if nt := t.nextTable(); nt != nil {
		return nt
	}

	currentSize := t.sizeCounter.EstimatedValue()
	newLen := nextTableSize(t.length(), currentSize, t.m.lastPromotion())

	nt, err := t.m.allocateTable(newLen, t.sizeCounter)
	if err != nil {
		// next_table was never CAS'd, so the current table remains
		// fully usable and will be revisited.
		t.m.logger.Warn("lfmap: successor allocation failed, table unchanged")
		return t.spinForNext()
	}
	t.m.logger.Debugw("lfmap: resize triggered",
		"from_length", t.length(), "to_length", newLen)
	return t.installNext(nt)
}

// spinForNext briefly spins waiting for another goroutine's
// in-progress allocation to land on next_table before falling back to
// a sleep-backed wait.
func (t *table[K, V]) spinForNext() *table[K, V] {
	for i := 0; i < 10000; i++ {
		if nt := t.nextTable(); nt != nil {
			return nt
		}
	}
	for {
		if nt := t.nextTable(); nt != nil {
			return nt
		}
		time.Sleep(time.Microsecond)
	}
}

// helpCopySlot guarantees slot i of t has been migrated to t's
// successor, then performs one chunk's worth of general migration
// progress: any operation that touches a boxed slot helps finish
// migration rather than blocking on it.
func (t *table[K, V]) helpCopySlot(i uint32) {
	nt := t.nextTable()
	if nt == nil {
		// A boxed value should imply next_table is already set, but a
		// defensive resize keeps the helper safe if that's ever violated.
		nt = t.ensureNextTable()
	}
	t.copySlot(nt, i)
	t.helpCopyChunk(nt)
}

// copySlot performs the per-slot migration step: box the slot's
// current value (freezing it against further writes on t), then
// transport it into nt and mark the slot definitively moved.
func (t *table[K, V]) copySlot(nt *table[K, V], i uint32) (workDone bool) {
	s := &t.slots[i]

	if s.loadHash() == emptyHash {
		s.markMoved() // ignore failure: a concurrent claim falls through below
	}

	var observed *valueState[V]
	for {
		observed = s.loadValue()
		if observed.isBoxed() {
			break
		}
		boxed := observed.box(t.boxedTombstone)
		if s.casValue(observed, boxed) {
			observed = boxed
			break
		}
		// lost the race; reread and retry
	}

	if observed.kind == vkBoxedTombstone {
		return false
	}

	// observed.kind == vkBoxedLive: transport the payload, then CAS
	// the definitive moved marker over it (step 5). Both sub-steps are
	// idempotent: if another helper already finished the transport,
	// copyInto's EMPTY_OR_DEAD match is a harmless no-op on nt, and
	// only the first CAS to boxedTombstone here succeeds.
	k, _ := s.loadKey()
	h := s.loadHash()
	newVal := &valueState[V]{kind: vkLive, val: observed.val}
	_, applied := nt.copyInto(k, h, newVal)

	s.casValue(observed, t.boxedTombstone)
	return applied
}

// copyInto is the restricted EMPTY_ONLY write used by migration: it
// writes only into a NULL_REF successor slot, never increments
// sizeCounter (migration preserves counts, it doesn't create or
// destroy them), and may itself trigger a further resize if nt turns
// out to already be crowded, following the chain.
func (t *table[K, V]) copyInto(key K, h uint32, newVal *valueState[V]) (prev *valueState[V], applied bool) {
	cur := t
	for {
		res, status := cur.putIfMatchCore(key, h, newVal, Match[V]{Kind: MatchEmptyOrDead}, cur.m.hasher, true)
		if status == putRedirect {
			cur = cur.nextTable()
			continue
		}
		return nil, res.applied
	}
}

// helpCopyChunk claims and processes one chunk of t's index space (the
// table being migrated away from). Returns once a chunk has been
// claimed and processed, or immediately if t is already fully copied.
func (t *table[K, V]) helpCopyChunk(nt *table[K, V]) {
	length := uint32(t.length())
	if t.copyDone.Load() >= length {
		t.tryPromote(nt)
		return
	}

	// claimedChunk advances in slots, so passing 2*length means every
	// chunk has been claimed twice over.
	panicMode := t.claimedChunk.Load() > 2*length

	if panicMode {
		t.panicCopyRemaining(nt)
		t.tryPromote(nt)
		return
	}

	chunk := t.claimedChunk.Add(uint32(t.chunkSize)) - uint32(t.chunkSize)
	if chunk >= length {
		t.tryPromote(nt)
		return
	}
	end := chunk + uint32(t.chunkSize)
	if end > length {
		end = length
	}
	for i := chunk; i < end; i++ {
		t.copySlot(nt, i)
	}
	t.copyDone.Add(end - chunk)
	t.tryPromote(nt)
}

// panicCopyRemaining is the fallback when cooperative chunk claiming
// fails to converge (pathologically small tables under heavy
// contention): a serial pass over every slot that guarantees forward
// progress.
func (t *table[K, V]) panicCopyRemaining(nt *table[K, V]) {
	length := uint32(t.length())
	var copied uint32
	for i := uint32(0); i < length; i++ {
		t.copySlot(nt, i)
		copied++
	}
	if copied > 0 {
		t.copyDone.Store(length)
	}
}

// tryPromote CASes the Map's top pointer from t to nt once t.copyDone
// reaches its length. Idempotent: only a CAS from the
// matching old pointer succeeds, so concurrent callers racing to
// promote the same pair are harmless.
func (t *table[K, V]) tryPromote(nt *table[K, V]) {
	if t.copyDone.Load() < uint32(t.length()) {
		return
	}
	if t.m.top.CompareAndSwap(t, nt) {
		t.m.setLastPromotion(time.Now())
		t.m.logger.Debugw("lfmap: promoted table",
			"from_length", t.length(), "to_length", nt.length())
	}
}

// helpCopyAll drains every remaining chunk of t synchronously, used by
// the snapshot iterator to quiesce a table before iterating it.
func (t *table[K, V]) helpCopyAll() {
	nt := t.nextTable()
	if nt == nil {
		return
	}
	length := uint32(t.length())
	for t.copyDone.Load() < length {
		t.helpCopyChunk(nt)
	}
	t.tryPromote(nt)
}
