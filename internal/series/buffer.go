// Package series provides bounded, append-only price histories, one per asset.
// A Buffer is the series handed to the indicator functions; a Store keys one
// Buffer per asset id for the lifetime of the process.
package series

import (
	"math"
	"sync"

	"github.com/pkg/errors"
)

// ErrNonFinite is returned when appending NaN or an infinity.
var ErrNonFinite = errors.New("series: non-finite value")

// Buffer is an ordered price history for a single asset holding exactly
// Cap values; once full, each Append evicts the oldest value.
// Safe for concurrent use.
type Buffer struct {
	mu   sync.RWMutex
	buf  []float64
	head uint64 // total values appended

	evicted uint64
}

// NewBuffer creates a buffer holding capacity values. Minimum capacity is 2.
func NewBuffer(capacity int) *Buffer {
	if capacity < 2 {
		capacity = 2
	}
	return &Buffer{buf: make([]float64, capacity)}
}

// Append adds v as the newest value.
func (b *Buffer) Append(v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return errors.Wrapf(ErrNonFinite, "append %v", v)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.head >= uint64(len(b.buf)) {
		b.evicted++
	}
	b.buf[b.head%uint64(len(b.buf))] = v
	b.head++
	return nil
}

// Len returns the number of values currently held.
func (b *Buffer) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.lenLocked()
}

func (b *Buffer) lenLocked() int {
	if b.head < uint64(len(b.buf)) {
		return int(b.head)
	}
	return len(b.buf)
}

// Cap returns the buffer capacity.
func (b *Buffer) Cap() int {
	return len(b.buf)
}

// Evicted returns how many values have been dropped to make room.
func (b *Buffer) Evicted() uint64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.evicted
}

// Values returns a chronological copy of the held values.
func (b *Buffer) Values() []float64 {
	return b.Window(len(b.buf))
}

// Window returns a chronological copy of the last n values.
// n larger than Len returns every value.
func (b *Buffer) Window(n int) []float64 {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if held := b.lenLocked(); n > held {
		n = held
	}
	if n <= 0 {
		return []float64{}
	}

	out := make([]float64, n)
	size := uint64(len(b.buf))
	start := b.head - uint64(n)
	for i := range out {
		out[i] = b.buf[(start+uint64(i))%size]
	}
	return out
}

// Last returns the newest value.
func (b *Buffer) Last() (float64, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.head == 0 {
		return 0, false
	}
	return b.buf[(b.head-1)%uint64(len(b.buf))], true
}
