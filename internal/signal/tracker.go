// Package signal turns price observations into deltas, buy/sell/hold
// classifications and indicator hints.
package signal

import (
	"sync"

	"github.com/shopspring/decimal"

	"crypto-monitor/internal/model"
)

var hundred = decimal.NewFromInt(100)

// Tracker remembers the last seen price per asset id. State lives in memory
// and is reset on restart.
type Tracker struct {
	mu   sync.Mutex
	last map[string]decimal.Decimal
}

// NewTracker creates an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{last: make(map[string]decimal.Decimal, 64)}
}

// Observe records price for id and returns the change against the previous
// observation. The first observation of an id reports no change.
func (t *Tracker) Observe(id string, price decimal.Decimal) model.Delta {
	t.mu.Lock()
	prev, seen := t.last[id]
	t.last[id] = price
	t.mu.Unlock()

	if !seen {
		prev = price
	}
	return NewDelta(prev, price, !seen)
}

// Len returns the number of tracked ids.
func (t *Tracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.last)
}

// NewDelta computes the change from prev to cur. A zero prev yields a zero
// percent change.
func NewDelta(prev, cur decimal.Decimal, first bool) model.Delta {
	change := cur.Sub(prev)
	pct := decimal.Zero
	if !prev.IsZero() {
		pct = change.Div(prev).Mul(hundred)
	}
	return model.Delta{
		Previous: prev,
		Current:  cur,
		Change:   change,
		Percent:  pct,
		First:    first,
	}
}
