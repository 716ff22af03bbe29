package lfmap

import (
	"runtime"
	"sync/atomic"
	"time"
	"unsafe"

	uatomic "go.uber.org/atomic"
	"golang.org/x/sys/cpu"
)

// counterCell is one padded cell of a scalableCounter. CacheLinePad
// keeps concurrently-updated cells from false-sharing each other.
type counterCell struct {
	_     cpu.CacheLinePad
	value uatomic.Int64
	_     cpu.CacheLinePad
}

// scalableCounter is a single shared cell plus an auxiliary array of
// cache-line padded cells grown on demand, up to maxCells =
// next_power_of_two(hardware_parallelism) + 1.
//
// Updates are never lost: every Increment/Decrement/Add lands on some
// cell via an atomic add. Value (and EstimatedValue) may miss updates
// that are concurrently in flight on other cells at the instant of the
// read; callers needing an exact count should only rely on eventual
// accuracy, which this provides.
type scalableCounter struct {
	main uatomic.Int64

	cellsMu  atomic.Pointer[[]*counterCell]
	maxCells int

	lastEstimate uatomic.Int64
	lastStampNs  uatomic.Int64
}

func newScalableCounter() *scalableCounter {
	c := &scalableCounter{
		maxCells: nextPow2Int(runtime.GOMAXPROCS(0)) + 1,
	}
	empty := make([]*counterCell, 0)
	c.cellsMu.Store(&empty)
	return c
}

func nextPow2Int(n int) int {
	if n < 1 {
		n = 1
	}
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}

// cellIndexHint derives a per-call index from the address of a
// stack-local variable. The address of a fresh local is cheap to take
// and varies across goroutine stacks while staying stable for the
// lifetime of a single call.
func cellIndexHint() uintptr {
	var x int
	v := uintptr(unsafe.Pointer(&x))
	// Fold the address with an FNV/murmur-style mix so nearby stack
	// addresses (common across goroutines sharing a stack pool) still
	// land on different cells often enough to matter.
	v ^= v >> 33
	v *= 0xff51afd7ed558ccd
	v ^= v >> 33
	return v
}

// Add adds n (n may be negative) to the counter.
func (c *scalableCounter) Add(n int64) {
	idx := c.pickCell()
	if idx < 0 {
		before := c.main.Load()
		after := c.main.Add(n)
		c.observeDrift(before, after, n)
		return
	}
	cell := c.cellAt(idx)
	before := cell.value.Load()
	after := cell.value.Add(n)
	c.observeDrift(before, after, n)
}

func (c *scalableCounter) Increment() { c.Add(1) }
func (c *scalableCounter) Decrement() { c.Add(-1) }

// Value sums the main cell plus every allocated auxiliary cell.
func (c *scalableCounter) Value() int64 {
	sum := c.main.Load()
	cells := *c.cellsMu.Load()
	for _, cell := range cells {
		if cell != nil {
			sum += cell.value.Load()
		}
	}
	return sum
}

// EstimatedValue caches Value() for up to 1ms via a coarse tick read.
func (c *scalableCounter) EstimatedValue() int64 {
	now := time.Now().UnixNano()
	last := c.lastStampNs.Load()
	if now-last < int64(time.Millisecond) {
		return c.lastEstimate.Load()
	}
	v := c.Value()
	c.lastEstimate.Store(v)
	c.lastStampNs.Store(now)
	return v
}

// pickCell returns -1 to mean "use the main cell" (no auxiliary cells
// allocated yet), or an index into the auxiliary cell slice.
func (c *scalableCounter) pickCell() int {
	cells := *c.cellsMu.Load()
	n := len(cells)
	if n == 0 {
		return -1
	}
	hint := cellIndexHint()
	return int(hint % uintptr(n))
}

func (c *scalableCounter) cellAt(idx int) *counterCell {
	cells := *c.cellsMu.Load()
	if idx < len(cells) && cells[idx] != nil {
		return cells[idx]
	}
	return c.growCellAt(idx)
}

// observeDrift measures |expected_before - value_read_back| after an
// add; a positive drift means another goroutine raced on the same
// cell between the load and the add, the signal used to decide
// whether to grow the cell array.
func (c *scalableCounter) observeDrift(before, after, delta int64) {
	expected := before + delta
	drift := expected - after
	if drift < 0 {
		drift = -drift
	}
	if drift > 0 {
		c.tryGrow()
	}
}

func (c *scalableCounter) tryGrow() {
	for {
		p := c.cellsMu.Load()
		old := *p
		if len(old) >= c.maxCells {
			return
		}
		grown := make([]*counterCell, len(old)+1)
		copy(grown, old)
		grown[len(old)] = &counterCell{}
		if c.cellsMu.CompareAndSwap(p, &grown) {
			return
		}
		// Lost the race; another goroutine already grew the array.
		// Its allocation is discarded (garbage collected); retry only
		// if we still have room under the race winner's new length.
		latest := *c.cellsMu.Load()
		if len(latest) >= c.maxCells {
			return
		}
	}
}

func (c *scalableCounter) growCellAt(idx int) *counterCell {
	for {
		p := c.cellsMu.Load()
		cells := *p
		if idx < len(cells) && cells[idx] != nil {
			return cells[idx]
		}
		grownLen := idx + 1
		if grownLen > c.maxCells {
			grownLen = c.maxCells
		}
		grown := make([]*counterCell, grownLen)
		copy(grown, cells)
		for i := range grown {
			if grown[i] == nil {
				grown[i] = &counterCell{}
			}
		}
		if c.cellsMu.CompareAndSwap(p, &grown) {
			if idx < len(grown) {
				return grown[idx]
			}
			return grown[len(grown)-1]
		}
	}
}
