package indicator

// emaState is the recursive EMA state carried from position i-1 to i.
type emaState struct {
	alpha   float64
	current float64
	seeded  bool
}

func newEMAState(period int) emaState {
	return emaState{alpha: 2.0 / float64(period+1)}
}

// update folds x into the average. The first value seeds it.
func (e *emaState) update(x float64) float64 {
	if !e.seeded {
		e.current = x
		e.seeded = true
		return e.current
	}
	// EMA = (price * alpha) + (EMA_prev * (1 - alpha))
	e.current = (x * e.alpha) + (e.current * (1 - e.alpha))
	return e.current
}

// EMA returns the exponential moving average of prices with
// alpha = 2/(period+1).
//
// The average is seeded with prices[0] and is therefore defined at every
// position. Early values lean towards the first price; callers that need a
// fully warmed-up average should ignore the first period-1 positions.
func EMA(prices []float64, period int) (Series, error) {
	if err := validatePeriod("ema period", period); err != nil {
		return nil, err
	}
	if err := validatePrices(prices); err != nil {
		return nil, err
	}

	out := make(Series, len(prices))
	for i, v := range emaFloats(prices, period) {
		out[i] = Defined(v)
	}
	return out, nil
}

// emaFloats runs the EMA recurrence over xs. Inputs are already validated.
func emaFloats(xs []float64, period int) []float64 {
	out := make([]float64, len(xs))
	st := newEMAState(period)
	for i, x := range xs {
		out[i] = st.update(x)
	}
	return out
}
