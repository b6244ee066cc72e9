package metrics

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"
)

// Pinger is a dependency that can be probed, e.g. a Redis client.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthStatus represents the monitor's health.
type HealthStatus struct {
	mu sync.RWMutex

	LastCycleAt  time.Time     `json:"last_cycle_at"`
	LastCycleDur time.Duration `json:"last_cycle_duration"`
	FeedOK       bool          `json:"feed_ok"`
	FeedCheckAt  time.Time     `json:"feed_check_at"`
	NotifierOK   bool          `json:"notifier_ok"`
	CoinsTracked int           `json:"coins_tracked"`

	// Liveness probe results
	RedisConfigured bool      `json:"redis_configured"`
	RedisConnected  bool      `json:"redis_connected"`
	RedisLatencyMs  float64   `json:"redis_latency_ms"`
	LastCheckAt     time.Time `json:"last_check_at"`
	StartedAt       time.Time `json:"started_at"`

	now func() time.Time
}

// NewHealthStatus returns a default health status.
func NewHealthStatus() *HealthStatus {
	return &HealthStatus{
		StartedAt: time.Now(),
		now:       time.Now,
	}
}

// RecordCycle stores the outcome of a finished cycle.
func (h *HealthStatus) RecordCycle(at time.Time, dur time.Duration, feedOK, notifierOK bool, coins int) {
	h.mu.Lock()
	h.LastCycleAt = at
	h.LastCycleDur = dur
	h.FeedOK = feedOK
	h.FeedCheckAt = at
	h.NotifierOK = notifierOK
	if feedOK {
		h.CoinsTracked = coins
	}
	h.mu.Unlock()
}

// SetFeedOK records the outcome of a feed request made at h's current time.
func (h *HealthStatus) SetFeedOK(v bool) {
	h.mu.Lock()
	h.FeedOK = v
	h.FeedCheckAt = h.now()
	h.mu.Unlock()
}

// CheckRedis pings p and records latency and connectivity.
func (h *HealthStatus) CheckRedis(ctx context.Context, p Pinger) {
	start := time.Now()
	err := p.Ping(ctx)
	latency := time.Since(start)

	h.mu.Lock()
	h.RedisConfigured = true
	h.RedisConnected = err == nil
	h.RedisLatencyMs = float64(latency.Microseconds()) / 1000.0
	h.LastCheckAt = h.now()
	h.mu.Unlock()
}

// StartLivenessChecker probes redis every interval until ctx is done.
func (h *HealthStatus) StartLivenessChecker(ctx context.Context, redis Pinger, interval time.Duration) {
	if redis == nil {
		return
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				probeCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
				h.CheckRedis(probeCtx, redis)
				cancel()
			}
		}
	}()
}

// HealthReport is the /healthz body.
type HealthReport struct {
	Status         string  `json:"status"`
	Uptime         string  `json:"uptime"`
	LastCycleAt    string  `json:"last_cycle_at"`
	CycleAge       string  `json:"cycle_age"`
	LastCycleMs    int64   `json:"last_cycle_ms"`
	FeedOK         bool    `json:"feed_ok"`
	NotifierOK     bool    `json:"notifier_ok"`
	CoinsTracked   int     `json:"coins_tracked"`
	RedisConnected *bool   `json:"redis_connected,omitempty"`
	RedisLatencyMs float64 `json:"redis_latency_ms,omitempty"`
}

// Snapshot evaluates the current health. A failing feed is "unhealthy",
// even before the first cycle completes; a monitor that has neither reached
// the feed nor finished a cycle is "starting"; a failing notifier or Redis
// is "degraded".
func (h *HealthStatus) Snapshot() HealthReport {
	h.mu.RLock()
	defer h.mu.RUnlock()

	now := h.now()
	r := HealthReport{
		Status:       "healthy",
		Uptime:       now.Sub(h.StartedAt).Round(time.Second).String(),
		LastCycleMs:  h.LastCycleDur.Milliseconds(),
		FeedOK:       h.FeedOK,
		NotifierOK:   h.NotifierOK,
		CoinsTracked: h.CoinsTracked,
	}
	if !h.LastCycleAt.IsZero() {
		r.LastCycleAt = h.LastCycleAt.UTC().Format(time.RFC3339)
		r.CycleAge = now.Sub(h.LastCycleAt).Round(time.Millisecond).String()
	}
	if h.RedisConfigured {
		connected := h.RedisConnected
		r.RedisConnected = &connected
		r.RedisLatencyMs = h.RedisLatencyMs
	}

	switch {
	case !h.FeedCheckAt.IsZero() && !h.FeedOK:
		r.Status = "unhealthy"
	case h.LastCycleAt.IsZero():
		r.Status = "starting"
	case !h.NotifierOK || (h.RedisConfigured && !h.RedisConnected):
		r.Status = "degraded"
	}
	return r
}

// ServeHTTP handles the /healthz endpoint.
func (h *HealthStatus) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	status := h.Snapshot()

	w.Header().Set("Content-Type", "application/json")
	if status.Status == "unhealthy" {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	json.NewEncoder(w).Encode(status)
}
