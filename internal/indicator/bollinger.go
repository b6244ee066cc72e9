package indicator

import (
	"math"

	"github.com/pkg/errors"
)

// Bollinger defaults.
const (
	DefaultBollingerPeriod = 20
	DefaultBollingerMult   = 2.0
)

// BollingerResult holds the band sequences, aligned with the input prices.
// All of them are Undefined before position period-1.
type BollingerResult struct {
	Middle Series
	Upper  Series
	Lower  Series
	// Width is (Upper-Lower)/Middle, Undefined where Middle is zero.
	Width Series
	// StdDev is the population standard deviation of the trailing window.
	StdDev Series
}

// Bollinger returns Bollinger bands of prices: the SMA over period plus and
// minus mult population standard deviations (divided by N, not N-1) of the
// same trailing window.
//
// Upper-Lower equals 2*mult*StdDev up to floating-point rounding, not
// bit-for-bit.
//
// mult must be finite and non-negative.
func Bollinger(prices []float64, period int, mult float64) (BollingerResult, error) {
	if err := validatePeriod("bollinger period", period); err != nil {
		return BollingerResult{}, err
	}
	if math.IsNaN(mult) || math.IsInf(mult, 0) || mult < 0 {
		return BollingerResult{}, errors.Wrapf(ErrInvalidParameter, "bollinger multiplier must be finite and >= 0, got %v", mult)
	}

	middle, err := SMA(prices, period)
	if err != nil {
		return BollingerResult{}, err
	}

	n := len(prices)
	res := BollingerResult{
		Middle: middle,
		Upper:  make(Series, n),
		Lower:  make(Series, n),
		Width:  make(Series, n),
		StdDev: make(Series, n),
	}

	for i := period - 1; i < n; i++ {
		mid, ok := middle[i].Float()
		if !ok {
			continue
		}
		sd := populationStdDev(prices[i-period+1:i+1], mid)
		upper := mid + mult*sd
		lower := mid - mult*sd

		res.StdDev[i] = Defined(sd)
		res.Upper[i] = Defined(upper)
		res.Lower[i] = Defined(lower)
		if mid != 0 {
			res.Width[i] = Defined((upper - lower) / mid)
		}
	}
	return res, nil
}

// populationStdDev sums squared deviations around mean (two-pass form).
func populationStdDev(window []float64, mean float64) float64 {
	var ss float64
	for _, x := range window {
		d := x - mean
		ss += d * d
	}
	return math.Sqrt(ss / float64(len(window)))
}
