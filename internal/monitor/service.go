// Package monitor runs the polling cycle: fetch the market listing, update
// each asset's price history and indicators, classify the move and deliver
// the report.
package monitor

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"crypto-monitor/config"
	"crypto-monitor/internal/indicator"
	"crypto-monitor/internal/logger"
	"crypto-monitor/internal/metrics"
	"crypto-monitor/internal/model"
	"crypto-monitor/internal/notification"
	"crypto-monitor/internal/report"
	"crypto-monitor/internal/series"
	"crypto-monitor/internal/signal"
)

// ErrCycleInProgress is returned by RunCycle when another cycle is running.
var ErrCycleInProgress = errors.New("monitor: cycle already in progress")

// Option configures a Service.
type Option func(*Service)

// WithHistory enables start-up warm-up from src.
func WithHistory(src model.HistorySource) Option {
	return func(s *Service) { s.history = src }
}

// WithMetrics records cycle metrics on m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.prom = m }
}

// WithHealth records cycle outcomes on h.
func WithHealth(h *metrics.HealthStatus) Option {
	return func(s *Service) { s.health = h }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Service) { s.log = l }
}

// WithClock overrides the wall clock used for report timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithInterval overrides the polling interval from the config.
func WithInterval(d time.Duration) Option {
	return func(s *Service) { s.interval = d }
}

// Service is the polling orchestrator. Price histories and last-seen prices
// live in memory only.
type Service struct {
	cfg      *config.Config
	interval time.Duration

	markets  model.MarketSource
	history  model.HistorySource
	notifier notification.Notifier

	store   *series.Store
	tracker *signal.Tracker

	prom   *metrics.Metrics
	health *metrics.HealthStatus
	log    *zap.Logger
	now    func() time.Time

	running atomic.Bool

	mu     sync.RWMutex
	latest *model.Report
}

// New creates a Service. cfg must already be validated.
func New(cfg *config.Config, markets model.MarketSource, n notification.Notifier, opts ...Option) *Service {
	s := &Service{
		cfg:      cfg,
		interval: cfg.Interval(),
		markets:  markets,
		notifier: n,
		store:    series.NewStore(cfg.HistorySize),
		tracker:  signal.NewTracker(),
		log:      zap.NewNop(),
		now:      time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	if s.health == nil {
		s.health = metrics.NewHealthStatus()
	}
	return s
}

// Run warms up the price histories, runs one cycle immediately and then one
// per interval until ctx is done. Cycles never overlap: a tick that arrives
// while a cycle is still running is dropped.
func (s *Service) Run(ctx context.Context) error {
	s.log.Info("monitor starting",
		zap.String("currency", s.cfg.VsCurrency),
		zap.Int("top_n", s.cfg.TopN),
		zap.Duration("interval", s.interval),
		zap.Float64("alert_threshold_percent", s.cfg.AlertThresholdPercent),
	)

	s.Warmup(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.tick(ctx, ticker)
	for {
		select {
		case <-ctx.Done():
			s.log.Info("monitor stopped")
			return nil
		case <-ticker.C:
			s.tick(ctx, ticker)
		}
	}
}

func (s *Service) tick(ctx context.Context, ticker *time.Ticker) {
	start := time.Now()
	if _, err := s.RunCycle(ctx); err != nil && ctx.Err() == nil {
		s.log.Warn("cycle failed", zap.Error(err))
	}
	if time.Since(start) < s.interval {
		return
	}
	select {
	case <-ticker.C:
		s.prom.ObserveCycle(metrics.OutcomeSkipped, 0)
		s.log.Warn("cycle overran interval, skipping tick",
			zap.Duration("elapsed", time.Since(start)),
			zap.Duration("interval", s.interval),
		)
	default:
	}
}

// Warmup seeds each listed asset's history with WarmupDays of past prices.
// Failures are logged; the monitor then starts with shorter histories.
func (s *Service) Warmup(ctx context.Context) {
	if s.history == nil || s.cfg.WarmupDays <= 0 {
		return
	}
	coins, err := s.markets.Markets(ctx)
	if err != nil {
		s.log.Warn("warm-up skipped: market listing failed", zap.Error(err))
		return
	}

	seeded := 0
	for _, c := range coins {
		if ctx.Err() != nil {
			return
		}
		prices, err := s.history.History(ctx, c.ID, s.cfg.WarmupDays)
		if err != nil {
			s.log.Warn("warm-up history failed", zap.String("coin", c.ID), zap.Error(err))
			continue
		}
		if err := s.store.Seed(c.ID, prices); err != nil {
			s.log.Warn("warm-up history truncated", zap.String("coin", c.ID), zap.Error(err))
		}
		seeded++
	}
	s.prom.SetCoinsTracked(s.store.Len())
	s.log.Info("warm-up complete", zap.Int("coins", seeded), zap.Int("days", s.cfg.WarmupDays))
}

// RunCycle performs one poll and delivers its report. A feed error skips the
// cycle and leaves the previous report in place. Delivery errors are
// returned alongside the report.
func (s *Service) RunCycle(ctx context.Context) (*model.Report, error) {
	if !s.running.CompareAndSwap(false, true) {
		return nil, ErrCycleInProgress
	}
	defer s.running.Store(false)

	ctx = logger.WithCycleID(ctx, logger.NewCycleID())
	log := logger.For(ctx, s.log)
	started := time.Now()
	at := s.now().UTC()

	coins, err := s.markets.Markets(ctx)
	if err != nil {
		s.prom.ObserveCycle(metrics.OutcomeFeedError, time.Since(started))
		s.health.SetFeedOK(false)
		return nil, errors.Wrap(err, "fetch markets")
	}
	s.health.SetFeedOK(true)

	changeThreshold := decimal.NewFromFloat(s.cfg.ChangeThreshold)
	alertThreshold := decimal.NewFromFloat(s.cfg.AlertThresholdPercent)

	rep := &model.Report{
		CycleID:     logger.CycleID(ctx),
		GeneratedAt: at,
		Currency:    s.cfg.VsCurrency,
		TopN:        s.cfg.TopN,
		Interval:    s.interval,
		Threshold:   s.cfg.AlertThresholdPercent,
		Coins:       make([]model.CoinStatus, 0, len(coins)),
	}
	for _, c := range coins {
		rep.Coins = append(rep.Coins, s.evaluate(log, c, changeThreshold, alertThreshold))
	}
	s.prom.SetCoinsTracked(s.store.Len())

	s.mu.Lock()
	s.latest = rep
	s.mu.Unlock()

	sendErr := s.deliver(ctx, rep)

	dur := time.Since(started)
	s.prom.ObserveCycle(metrics.OutcomeOK, dur)
	s.health.RecordCycle(at, dur, true, sendErr == nil, s.store.Len())

	counts := rep.Counts()
	log.Info("cycle complete",
		zap.Int("coins", len(rep.Coins)),
		zap.Int("buy", counts[model.ActionBuy]),
		zap.Int("sell", counts[model.ActionSell]),
		zap.Int("hold", counts[model.ActionHold]),
		zap.Int("alerts", len(rep.Alerts())),
		zap.Duration("took", dur),
	)
	return rep, sendErr
}

func (s *Service) evaluate(log *zap.Logger, c model.Coin, changeThreshold, alertThreshold decimal.Decimal) model.CoinStatus {
	d := s.tracker.Observe(c.ID, c.Price)
	st := model.CoinStatus{
		Coin:   c,
		Delta:  d,
		Action: signal.Classify(d, changeThreshold),
		Alert:  signal.IsAlert(d, alertThreshold),
	}

	var evictedBefore uint64
	if b, ok := s.store.Get(c.ID); ok {
		evictedBefore = b.Evicted()
	}
	if err := s.store.Append(c.ID, c.Price.InexactFloat64()); err != nil {
		log.Warn("price not recorded", zap.String("coin", c.ID), zap.Error(err))
		return st
	}
	buf, _ := s.store.Get(c.ID)
	s.prom.AddEvictions(int(buf.Evicted() - evictedBefore))

	computeStart := time.Now()
	snap, err := indicator.Compute(buf.Values(), s.cfg.Indicators)
	s.prom.ObserveCompute(time.Since(computeStart), err)
	if err != nil {
		log.Warn("indicators failed", zap.String("coin", c.ID), zap.Error(err))
		return st
	}
	st.Indicators = snap.Latest()
	st.Hints = signal.Hints(st.Indicators)
	return st
}

// deliver sends the report and, when any coin crossed the alert threshold,
// a separate alert message.
func (s *Service) deliver(ctx context.Context, rep *model.Report) error {
	var errs error

	err := s.notifier.Send(ctx, notification.Alert{
		Level:   notification.AlertInfo,
		Kind:    notification.KindReport,
		Title:   fmt.Sprintf("Top %d coins", rep.TopN),
		Message: report.Build(rep),
		CycleID: rep.CycleID,
		TS:      rep.GeneratedAt,
		Report:  rep,
	})
	if err != nil {
		errs = multierr.Append(errs, errors.Wrap(err, "send report"))
	}

	if alerts := rep.Alerts(); len(alerts) > 0 {
		s.prom.AddAlerts(len(alerts))
		err := s.notifier.Send(ctx, notification.Alert{
			Level:   notification.AlertWarning,
			Kind:    notification.KindAlert,
			Title:   fmt.Sprintf("%d coins moved ±%.0f%%", len(alerts), rep.Threshold),
			Message: report.BuildAlert(rep),
			CycleID: rep.CycleID,
			TS:      rep.GeneratedAt,
			Report:  rep,
		})
		if err != nil {
			errs = multierr.Append(errs, errors.Wrap(err, "send alert"))
		}
	}

	return errs
}

// LatestReport returns the last successful cycle's report.
func (s *Service) LatestReport() (*model.Report, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.latest, s.latest != nil
}

// Indicators computes the full indicator snapshot over id's current history.
func (s *Service) Indicators(id string) (indicator.Snapshot, bool) {
	values := s.store.Values(id)
	if len(values) == 0 {
		return indicator.Snapshot{}, false
	}
	snap, err := indicator.Compute(values, s.cfg.Indicators)
	if err != nil {
		s.log.Warn("indicators failed", zap.String("coin", id), zap.Error(err))
		return indicator.Snapshot{}, false
	}
	return snap, true
}

// Assets returns the ids with a price history.
func (s *Service) Assets() []string {
	return s.store.Assets()
}
