package lfmap

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSnapshotEmptyMap(t *testing.T) {
	m := newIntMap(t)
	snap := m.Snapshot()
	_, _, ok := snap.Next()
	require.False(t, ok)
}

func TestSnapshotProducesEveryLivePairOnce(t *testing.T) {
	m := newIntMap(t)
	want := make(map[int]int)
	for k := 0; k < 200; k++ {
		m.PutIfMatch(k, k*2, false, EmptyOrDeadMatch[int]())
		want[k] = k * 2
	}

	snap := m.Snapshot()
	got := make(map[int]int)
	for {
		k, v, ok := snap.Next()
		if !ok {
			break
		}
		_, dup := got[k]
		require.False(t, dup, "key %d produced more than once", k)
		got[k] = v
	}
	require.Equal(t, want, got)
}

func TestSnapshotOmitsRemovedKeys(t *testing.T) {
	m := newIntMap(t)
	for k := 0; k < 50; k++ {
		m.PutIfMatch(k, k, false, EmptyOrDeadMatch[int]())
	}
	for k := 0; k < 25; k++ {
		m.PutIfMatch(k, 0, true, AliveMatch[int]())
	}

	snap := m.Snapshot()
	got := make(map[int]bool)
	for {
		k, _, ok := snap.Next()
		if !ok {
			break
		}
		got[k] = true
	}
	require.Len(t, got, 25)
	for k := 0; k < 25; k++ {
		require.False(t, got[k])
	}
	for k := 25; k < 50; k++ {
		require.True(t, got[k])
	}
}

func TestSnapshotResetReplaysFromStart(t *testing.T) {
	m := newIntMap(t)
	for k := 0; k < 10; k++ {
		m.PutIfMatch(k, k, false, EmptyOrDeadMatch[int]())
	}
	snap := m.Snapshot()

	first := make(map[int]int)
	for {
		k, v, ok := snap.Next()
		if !ok {
			break
		}
		first[k] = v
	}

	snap.Reset()
	second := make(map[int]int)
	for {
		k, v, ok := snap.Next()
		if !ok {
			break
		}
		second[k] = v
	}
	require.Equal(t, first, second)
}

func TestRangeStopsEarlyOnFalse(t *testing.T) {
	m := newIntMap(t)
	for k := 0; k < 20; k++ {
		m.PutIfMatch(k, k, false, EmptyOrDeadMatch[int]())
	}
	count := 0
	m.Range(func(k, v int) bool {
		count++
		return count < 5
	})
	require.Equal(t, 5, count)
}

func TestRangeVisitsAllWhenNeverStopped(t *testing.T) {
	m := newIntMap(t)
	for k := 0; k < 30; k++ {
		m.PutIfMatch(k, k, false, EmptyOrDeadMatch[int]())
	}
	seen := 0
	m.Range(func(k, v int) bool {
		seen++
		return true
	})
	require.Equal(t, 30, seen)
}
