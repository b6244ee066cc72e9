package indicator

// wilderState is Wilder's smoothed average (SMMA):
// avg = (prev*(period-1) + x) / period.
// It must be seeded before the first update.
type wilderState struct {
	period  float64
	current float64
}

func newWilderState(period int, seed float64) wilderState {
	return wilderState{period: float64(period), current: seed}
}

func (w *wilderState) update(x float64) float64 {
	w.current = (w.current*(w.period-1) + x) / w.period
	return w.current
}
