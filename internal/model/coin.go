package model

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Coin is one row of the market listing, ordered by market cap.
// Prices are decimals in the configured quote currency.
type Coin struct {
	ID                string          `json:"id"`
	Symbol            string          `json:"symbol"`
	Name              string          `json:"name"`
	Price             decimal.Decimal `json:"current_price"`
	MarketCapRank     int             `json:"market_cap_rank"`
	PriceChangePct24h float64         `json:"price_change_percentage_24h"`
	LastUpdated       time.Time       `json:"last_updated"`
}

// Ticker returns the upper-cased symbol, e.g. "BTC".
func (c *Coin) Ticker() string {
	return strings.ToUpper(c.Symbol)
}

// Action is the buy/sell/hold classification of a price move.
type Action string

const (
	ActionBuy  Action = "buy"  // price dropped past the threshold
	ActionSell Action = "sell" // price rose past the threshold
	ActionHold Action = "hold"
)

// Delta is the change of an asset's price vs the previous polling cycle.
type Delta struct {
	Previous decimal.Decimal `json:"previous"`
	Current  decimal.Decimal `json:"current"`
	Change   decimal.Decimal `json:"change"`
	Percent  decimal.Decimal `json:"percent"`
	First    bool            `json:"first"` // no previous observation
}
