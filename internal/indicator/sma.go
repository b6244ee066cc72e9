package indicator

// rollingSum keeps the sum of the last period values in a preallocated
// circular buffer. O(1) per push.
type rollingSum struct {
	period  int
	buf     []float64
	idx     int // current write position
	count   int // total values received
	nonzero int // non-zero values currently in the window
	sum     float64
}

func newRollingSum(period int) *rollingSum {
	return &rollingSum{
		period: period,
		buf:    make([]float64, period),
	}
}

func (r *rollingSum) push(x float64) {
	if r.count >= r.period {
		old := r.buf[r.idx]
		r.sum -= old
		if old != 0 {
			r.nonzero--
		}
	}

	r.buf[r.idx] = x
	r.sum += x
	if x != 0 {
		r.nonzero++
	}
	r.idx = (r.idx + 1) % r.period
	r.count++

	// An all-zero window must sum to exactly zero; subtraction leaves
	// rounding residue otherwise.
	if r.nonzero == 0 {
		r.sum = 0
	}
}

func (r *rollingSum) full() bool { return r.count >= r.period }

func (r *rollingSum) mean() float64 { return r.sum / float64(r.period) }

// SMA returns the simple moving average of prices over period.
//
// Position i holds the mean of prices[i-period+1 : i+1] for i >= period-1 and
// is Undefined before that. A period longer than the series yields an
// all-Undefined output rather than an error.
func SMA(prices []float64, period int) (Series, error) {
	if err := validatePeriod("sma period", period); err != nil {
		return nil, err
	}
	if err := validatePrices(prices); err != nil {
		return nil, err
	}

	out := make(Series, len(prices))
	if period > len(prices) {
		return out, nil
	}

	win := newRollingSum(period)
	for i, p := range prices {
		win.push(p)
		if win.full() {
			out[i] = Defined(win.mean())
		}
	}
	return out, nil
}
