package model

import "context"

// ── Collaborator Port Interfaces ──
// These interfaces decouple the polling loop from the concrete feed client.

// MarketSource lists the current top coins by market cap.
type MarketSource interface {
	// Markets fetches one listing. Implementations retry transient failures.
	Markets(ctx context.Context) ([]Coin, error)
}

// HistorySource returns past close prices for one coin, oldest first.
type HistorySource interface {
	History(ctx context.Context, id string, days int) ([]float64, error)
}
