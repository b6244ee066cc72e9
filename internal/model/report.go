package model

import (
	"time"

	"crypto-monitor/internal/indicator"
)

// CoinStatus is the per-asset outcome of one polling cycle.
type CoinStatus struct {
	Coin       Coin             `json:"coin"`
	Delta      Delta            `json:"delta"`
	Action     Action           `json:"action"`
	Alert      bool             `json:"alert"`
	Hints      []string         `json:"hints,omitempty"`
	Indicators indicator.Latest `json:"indicators"`
}

// Report is the result of one polling cycle.
type Report struct {
	CycleID     string        `json:"cycle_id"`
	GeneratedAt time.Time     `json:"generated_at"`
	Currency    string        `json:"currency"`
	TopN        int           `json:"top_n"`
	Interval    time.Duration `json:"interval"`
	Threshold   float64       `json:"alert_threshold_percent"`
	Coins       []CoinStatus  `json:"coins"`
}

// Alerts returns the coins whose move crossed the alert threshold,
// in report order.
func (r *Report) Alerts() []CoinStatus {
	var out []CoinStatus
	for _, c := range r.Coins {
		if c.Alert {
			out = append(out, c)
		}
	}
	return out
}

// Counts returns how many coins fell into each action bucket.
func (r *Report) Counts() map[Action]int {
	out := map[Action]int{ActionBuy: 0, ActionSell: 0, ActionHold: 0}
	for _, c := range r.Coins {
		out[c.Action]++
	}
	return out
}
