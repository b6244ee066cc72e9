package signal

import (
	"fmt"

	"github.com/shopspring/decimal"

	"crypto-monitor/internal/indicator"
	"crypto-monitor/internal/model"
)

// Classify maps a price change to an action. A rise past threshold suggests
// taking profit, a drop past it suggests buying the dip.
func Classify(d model.Delta, threshold decimal.Decimal) model.Action {
	switch {
	case d.Change.GreaterThan(threshold):
		return model.ActionSell
	case d.Change.LessThan(threshold.Neg()):
		return model.ActionBuy
	default:
		return model.ActionHold
	}
}

// IsAlert reports whether the percent move reaches thresholdPct in either
// direction.
func IsAlert(d model.Delta, thresholdPct decimal.Decimal) bool {
	return d.Percent.Abs().GreaterThanOrEqual(thresholdPct)
}

const (
	RSIOverbought = 70.0
	RSIOversold   = 30.0
)

// Hints annotates the latest indicator values. Undefined values and a MACD
// that has not seen a full slow window produce no hint.
func Hints(l indicator.Latest) []string {
	var hints []string

	if rsi, ok := l.RSI.Float(); ok {
		switch {
		case rsi >= RSIOverbought:
			hints = append(hints, fmt.Sprintf("RSI %.0f overbought", rsi))
		case rsi <= RSIOversold:
			hints = append(hints, fmt.Sprintf("RSI %.0f oversold", rsi))
		}
	}

	if h, ok := l.MACDHistogram.Float(); ok && l.MACDWarm {
		switch {
		case h > 0:
			hints = append(hints, "MACD bullish")
		case h < 0:
			hints = append(hints, "MACD bearish")
		}
	}

	if price, ok := l.Price.Float(); ok {
		if upper, ok := l.BollingerUpper.Float(); ok && price > upper {
			hints = append(hints, "above upper band")
		}
		if lower, ok := l.BollingerLower.Float(); ok && price < lower {
			hints = append(hints, "below lower band")
		}
	}

	return hints
}
