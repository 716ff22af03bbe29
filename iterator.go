package lfmap

// pair is one (key, value) observation produced by a Snapshot.
type pair[K comparable, V comparable] struct {
	Key K
	Val V
}

// Snapshot is a quiescent-table linearization of the map's contents.
// Every (K, V) pair live throughout the iteration is produced exactly
// once; a pair may also be produced if it becomes live concurrently,
// and a pair deleted before the iterator's linearization point never
// appears.
type Snapshot[K comparable, V comparable] struct {
	m     *Map[K, V]
	table *table[K, V]
	pos   int
}

// Snapshot helps finish any in-progress migration on the current top
// table (draining it fully, not just one chunk) before choosing the
// quiescent table it will iterate.
func (m *Map[K, V]) Snapshot() *Snapshot[K, V] {
	t := m.top.Load()
	for t.nextTable() != nil {
		t.helpCopyAll()
		t = m.top.Load()
	}
	return &Snapshot[K, V]{m: m, table: t}
}

// Next advances the iterator and returns the next live pair. The
// linearization point for the pair returned is the Lookup performed
// here, not the slot state observed while scanning: the caller's pair
// is (key, value-at-read-time), not (key, value-at-slot-read).
func (s *Snapshot[K, V]) Next() (K, V, bool) {
	for s.pos < s.table.length() {
		i := s.pos
		s.pos++
		sl := &s.table.slots[i]
		vs := sl.loadValue()
		if vs == nil {
			continue
		}
		k, claimed := sl.loadKey()
		if !claimed {
			continue
		}
		v, found := s.m.Lookup(k)
		if found {
			return k, v, true
		}
	}
	var zk K
	var zv V
	return zk, zv, false
}

// Reset returns the iterator to the start of its captured table.
func (s *Snapshot[K, V]) Reset() {
	s.pos = 0
}

// Range calls f for every (key, value) pair produced by a fresh
// Snapshot, stopping early if f returns false, the sync.Map.Range
// convention layered over the Snapshot iterator.
func (m *Map[K, V]) Range(f func(K, V) bool) {
	snap := m.Snapshot()
	for {
		k, v, ok := snap.Next()
		if !ok {
			return
		}
		if !f(k, v) {
			return
		}
	}
}
