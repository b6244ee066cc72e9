package indicator

// MACD default periods.
const (
	DefaultMACDFast   = 12
	DefaultMACDSlow   = 26
	DefaultMACDSignal = 9
)

// MACDResult holds the three MACD sequences, aligned with the input prices.
type MACDResult struct {
	Line      Series
	Signal    Series
	Histogram Series

	// FirstValid is the first index at which both EMAs have seen a full
	// window (max(fast, slow) - 1). Positions before it are defined but
	// still dominated by the EMA seed.
	FirstValid int
}

// MACD returns the moving average convergence/divergence of prices:
//
//	line      = EMA(prices, fast) - EMA(prices, slow)
//	signal    = EMA(line, signal)
//	histogram = line - signal
//
// All EMAs are seeded with their first input, so every position is defined.
func MACD(prices []float64, fast, slow, signal int) (MACDResult, error) {
	if err := validatePeriod("macd fast period", fast); err != nil {
		return MACDResult{}, err
	}
	if err := validatePeriod("macd slow period", slow); err != nil {
		return MACDResult{}, err
	}
	if err := validatePeriod("macd signal period", signal); err != nil {
		return MACDResult{}, err
	}
	if err := validatePrices(prices); err != nil {
		return MACDResult{}, err
	}

	n := len(prices)
	emaFast := emaFloats(prices, fast)
	emaSlow := emaFloats(prices, slow)

	line := make([]float64, n)
	for i := range prices {
		line[i] = emaFast[i] - emaSlow[i]
	}
	sig := emaFloats(line, signal)

	res := MACDResult{
		Line:       make(Series, n),
		Signal:     make(Series, n),
		Histogram:  make(Series, n),
		FirstValid: max(fast, slow) - 1,
	}
	for i := range line {
		res.Line[i] = Defined(line[i])
		res.Signal[i] = Defined(sig[i])
		res.Histogram[i] = Defined(line[i] - sig[i])
	}
	return res, nil
}
