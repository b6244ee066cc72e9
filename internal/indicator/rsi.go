package indicator

// RSI default period.
const DefaultRSIPeriod = 14

// RSI returns the Relative Strength Index of prices, bounded to [0, 100].
//
// Average gain and loss are simple rolling means of the last period
// price changes for positions period..2*period-1, and Wilder-smoothed from
// position 2*period on, each step starting from the previous average.
//
// Zero denominators are substituted, not propagated: an average loss of zero
// yields 100, and 50 when the average gain is zero as well (flat prices).
//
// Positions before period are backward-filled with the first computed value,
// so a series longer than period has no undefined positions. A series of
// period prices or fewer has no computable position and is all Undefined.
func RSI(prices []float64, period int) (Series, error) {
	if err := validatePeriod("rsi period", period); err != nil {
		return nil, err
	}
	if err := validatePrices(prices); err != nil {
		return nil, err
	}

	n := len(prices)
	out := make(Series, n)
	if n <= period {
		return out, nil
	}

	gains := newRollingSum(period)
	losses := newRollingSum(period)
	var avgGain, avgLoss wilderState

	for i := 1; i < n; i++ {
		gain, loss := splitDelta(prices[i] - prices[i-1])

		if i < 2*period {
			gains.push(gain)
			losses.push(loss)
			if i < period {
				continue
			}
			avgGain = newWilderState(period, nonNegative(gains.mean()))
			avgLoss = newWilderState(period, nonNegative(losses.mean()))
		} else {
			avgGain.update(gain)
			avgLoss.update(loss)
		}

		out[i] = Defined(rsiFromAverages(avgGain.current, avgLoss.current))
	}

	for i := 0; i < period; i++ {
		out[i] = out[period]
	}
	return out, nil
}

func splitDelta(delta float64) (gain, loss float64) {
	if delta > 0 {
		return delta, 0
	}
	return 0, -delta
}

// nonNegative clamps rounding residue left by the rolling subtraction.
func nonNegative(x float64) float64 {
	if x < 0 {
		return 0
	}
	return x
}

func rsiFromAverages(avgGain, avgLoss float64) float64 {
	if avgLoss == 0 {
		if avgGain == 0 {
			return 50
		}
		return 100
	}
	rs := avgGain / avgLoss
	return 100.0 - (100.0 / (1.0 + rs))
}
