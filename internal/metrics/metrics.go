package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds all Prometheus metrics for the monitor.
// Every method is safe to call on a nil *Metrics.
type Metrics struct {
	CyclesTotal   *prometheus.CounterVec // labels: outcome=ok|feed_error|skipped
	CycleDuration prometheus.Histogram
	FeedErrors    prometheus.Counter
	CoinsTracked  prometheus.Gauge

	// Indicator metrics
	IndicatorComputeDur prometheus.Histogram
	IndicatorErrors     prometheus.Counter
	HistoryEvictions    prometheus.Counter

	// Notification metrics
	NotificationsSent   *prometheus.CounterVec // labels: channel
	NotificationsFailed *prometheus.CounterVec // labels: channel
	AlertsTotal         prometheus.Counter

	// Circuit breaker metrics
	BreakerState *prometheus.GaugeVec // labels: name; 0=closed, 1=open, 2=half-open
	BreakerTrips *prometheus.CounterVec

	// Live dashboard
	WSClients prometheus.Gauge
}

// New creates all metrics and registers them on reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		CyclesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "monitor_cycles_total",
			Help: "Polling cycles by outcome",
		}, []string{"outcome"}),
		CycleDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "monitor_cycle_duration_seconds",
			Help:    "Wall time of one polling cycle including notification delivery",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}),
		FeedErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "monitor_feed_errors_total",
			Help: "Market feed requests that failed after retries",
		}),
		CoinsTracked: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "monitor_coins_tracked",
			Help: "Assets with a price history",
		}),

		IndicatorComputeDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "monitor_indicator_compute_duration_seconds",
			Help:    "RSI, MACD and Bollinger compute latency per asset",
			Buckets: []float64{0.000001, 0.000005, 0.00001, 0.00005, 0.0001, 0.0005, 0.001},
		}),
		IndicatorErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "monitor_indicator_errors_total",
			Help: "Indicator computations that returned an error",
		}),
		HistoryEvictions: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "monitor_history_evictions_total",
			Help: "Prices dropped from full per-asset histories",
		}),

		NotificationsSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "monitor_notifications_sent_total",
			Help: "Messages delivered per channel",
		}, []string{"channel"}),
		NotificationsFailed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "monitor_notifications_failed_total",
			Help: "Messages that failed delivery per channel",
		}, []string{"channel"}),
		AlertsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "monitor_alerts_total",
			Help: "Coins whose move crossed the alert threshold",
		}),

		BreakerState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "monitor_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=open, 2=half-open)",
		}, []string{"name"}),
		BreakerTrips: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "monitor_circuit_breaker_trips_total",
			Help: "Times a circuit breaker tripped open",
		}, []string{"name"}),

		WSClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "monitor_ws_clients",
			Help: "Connected dashboard websocket clients",
		}),
	}

	reg.MustRegister(
		m.CyclesTotal,
		m.CycleDuration,
		m.FeedErrors,
		m.CoinsTracked,
		m.IndicatorComputeDur,
		m.IndicatorErrors,
		m.HistoryEvictions,
		m.NotificationsSent,
		m.NotificationsFailed,
		m.AlertsTotal,
		m.BreakerState,
		m.BreakerTrips,
		m.WSClients,
	)

	return m
}

// Cycle outcomes.
const (
	OutcomeOK        = "ok"
	OutcomeFeedError = "feed_error"
	OutcomeSkipped   = "skipped"
)

// ObserveCycle records a finished cycle.
func (m *Metrics) ObserveCycle(outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.CyclesTotal.WithLabelValues(outcome).Inc()
	if outcome != OutcomeSkipped {
		m.CycleDuration.Observe(d.Seconds())
	}
	if outcome == OutcomeFeedError {
		m.FeedErrors.Inc()
	}
}

// SetCoinsTracked sets the number of assets with history.
func (m *Metrics) SetCoinsTracked(n int) {
	if m == nil {
		return
	}
	m.CoinsTracked.Set(float64(n))
}

// ObserveCompute records one indicator computation.
func (m *Metrics) ObserveCompute(d time.Duration, err error) {
	if m == nil {
		return
	}
	m.IndicatorComputeDur.Observe(d.Seconds())
	if err != nil {
		m.IndicatorErrors.Inc()
	}
}

// AddEvictions counts prices dropped from full histories.
func (m *Metrics) AddEvictions(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.HistoryEvictions.Add(float64(n))
}

// NotificationResult records one delivery attempt on channel.
func (m *Metrics) NotificationResult(channel string, err error) {
	if m == nil {
		return
	}
	if err != nil {
		m.NotificationsFailed.WithLabelValues(channel).Inc()
		return
	}
	m.NotificationsSent.WithLabelValues(channel).Inc()
}

// AddAlerts counts alerted coins.
func (m *Metrics) AddAlerts(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.AlertsTotal.Add(float64(n))
}

// BreakerTransition records a breaker moving to state (0, 1 or 2).
func (m *Metrics) BreakerTransition(name string, state int) {
	if m == nil {
		return
	}
	m.BreakerState.WithLabelValues(name).Set(float64(state))
	if state == 1 {
		m.BreakerTrips.WithLabelValues(name).Inc()
	}
}

// SetWSClients sets the number of connected dashboard clients.
func (m *Metrics) SetWSClients(n int) {
	if m == nil {
		return
	}
	m.WSClients.Set(float64(n))
}
