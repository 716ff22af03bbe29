package lfmap

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestResizeGrowsTableLength(t *testing.T) {
	m := newIntMap(t, WithInitialCapacity(8))
	initial := m.Stats().Length
	for k := 0; k < 50; k++ {
		_, _, applied := m.PutIfMatch(k, k, false, EmptyOrDeadMatch[int]())
		require.True(t, applied)
	}
	require.Greater(t, m.Stats().Length, initial)
	for k := 0; k < 50; k++ {
		v, found := m.Lookup(k)
		require.True(t, found)
		require.Equal(t, k, v)
	}
}

func TestSmallChunkSizeForcesMultiChunkMigration(t *testing.T) {
	m := newIntMap(t, WithInitialCapacity(8), WithChunkSize(debugChunkSize))
	const n = 500
	for k := 0; k < n; k++ {
		_, _, applied := m.PutIfMatch(k, k, false, EmptyOrDeadMatch[int]())
		require.True(t, applied)
	}
	require.Equal(t, n, m.Count())
	for k := 0; k < n; k++ {
		v, found := m.Lookup(k)
		require.True(t, found)
		require.Equal(t, k, v)
	}
}

func TestClearDuringHighLoadResetsCount(t *testing.T) {
	m := newIntMap(t, WithInitialCapacity(8))
	for k := 0; k < 200; k++ {
		m.PutIfMatch(k, k, false, EmptyOrDeadMatch[int]())
	}
	require.Equal(t, 200, m.Count())
	m.Clear()
	require.Equal(t, 0, m.Count())
	require.Equal(t, minSize, m.Stats().Length)
	_, found := m.Lookup(0)
	require.False(t, found)
}

func TestRemoveThenReinsertSurvivesMigration(t *testing.T) {
	m := newIntMap(t, WithInitialCapacity(8), WithChunkSize(debugChunkSize))
	for k := 0; k < 300; k++ {
		m.PutIfMatch(k, k, false, EmptyOrDeadMatch[int]())
	}
	for k := 0; k < 300; k += 3 {
		_, hadOld, applied := m.PutIfMatch(k, 0, true, AliveMatch[int]())
		require.True(t, applied)
		require.True(t, hadOld)
	}
	for k := 0; k < 300; k += 3 {
		_, found := m.Lookup(k)
		require.False(t, found)
	}
	for k := 0; k < 300; k += 3 {
		_, _, applied := m.PutIfMatch(k, k*10, false, EmptyOrDeadMatch[int]())
		require.True(t, applied)
	}
	for k := 0; k < 300; k += 3 {
		v, found := m.Lookup(k)
		require.True(t, found)
		require.Equal(t, k*10, v)
	}
}

func TestSnapshotDrainsInFlightMigration(t *testing.T) {
	m := newIntMap(t, WithInitialCapacity(8), WithChunkSize(debugChunkSize))
	const n = 400
	for k := 0; k < n; k++ {
		m.PutIfMatch(k, k, false, EmptyOrDeadMatch[int]())
	}

	snap := m.Snapshot()
	seen := make(map[int]int)
	for {
		k, v, ok := snap.Next()
		if !ok {
			break
		}
		seen[k] = v
	}
	require.Len(t, seen, n)
	for k, v := range seen {
		require.Equal(t, k, v)
	}
}
