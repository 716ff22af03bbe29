package lfmap

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestScalableCounterSequential(t *testing.T) {
	c := newScalableCounter()
	for i := 0; i < 100; i++ {
		c.Increment()
	}
	require.Equal(t, int64(100), c.Value())
	for i := 0; i < 40; i++ {
		c.Decrement()
	}
	require.Equal(t, int64(60), c.Value())
}

func TestScalableCounterAddNegative(t *testing.T) {
	c := newScalableCounter()
	c.Add(50)
	c.Add(-20)
	require.Equal(t, int64(30), c.Value())
}

func TestScalableCounterConcurrentIncrement(t *testing.T) {
	const workers = 32
	const perWorker = 5000

	c := newScalableCounter()
	var wg sync.WaitGroup
	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func() {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				c.Increment()
			}
		}()
	}
	wg.Wait()
	require.Equal(t, int64(workers*perWorker), c.Value())
}

func TestScalableCounterGrowsCellsUnderContention(t *testing.T) {
	c := newScalableCounter()
	require.Greater(t, c.maxCells, 0)

	var wg sync.WaitGroup
	wg.Add(8)
	for i := 0; i < 8; i++ {
		go func() {
			defer wg.Done()
			for j := 0; j < 2000; j++ {
				c.Increment()
			}
		}()
	}
	wg.Wait()
	require.Equal(t, int64(8*2000), c.Value())
}

func TestScalableCounterEstimatedValueCaches(t *testing.T) {
	c := newScalableCounter()
	c.Add(10)
	first := c.EstimatedValue()
	require.Equal(t, int64(10), first)

	c.Add(5)
	// Within the 1ms cache window the estimate may still read 10; it
	// must never read something that was never a valid sum.
	cached := c.EstimatedValue()
	require.True(t, cached == 10 || cached == 15)

	time.Sleep(2 * time.Millisecond)
	require.Equal(t, int64(15), c.EstimatedValue())
}

func TestNextPow2IntRoundsUp(t *testing.T) {
	require.Equal(t, 1, nextPow2Int(0))
	require.Equal(t, 1, nextPow2Int(1))
	require.Equal(t, 4, nextPow2Int(3))
	require.Equal(t, 8, nextPow2Int(8))
	require.Equal(t, 16, nextPow2Int(9))
}
