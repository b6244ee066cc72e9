// Package notification delivers cycle reports and alerts to external
// channels (Telegram, webhooks, Redis pub/sub, dashboard websockets, logs).
package notification

import (
	"context"
	"time"

	"go.uber.org/zap"

	"crypto-monitor/internal/breaker"
	"crypto-monitor/internal/model"
)

// AlertLevel represents the severity of an alert.
type AlertLevel string

const (
	AlertInfo     AlertLevel = "INFO"
	AlertWarning  AlertLevel = "WARNING"
	AlertCritical AlertLevel = "CRITICAL"
)

// Kind tells sinks what an Alert carries.
type Kind string

const (
	KindReport Kind = "report"
	KindAlert  Kind = "alert"
)

// Alert represents a notification to be sent.
type Alert struct {
	Level   AlertLevel    `json:"level"`
	Kind    Kind          `json:"kind"`
	Title   string        `json:"title"`
	Message string        `json:"message"` // Telegram-flavoured HTML
	CycleID string        `json:"cycle_id,omitempty"`
	TS      time.Time     `json:"ts"`
	Report  *model.Report `json:"report,omitempty"`
}

// Notifier is the interface for all notification backends.
type Notifier interface {
	// Send delivers an alert. Returns error if delivery fails.
	Send(ctx context.Context, alert Alert) error
}

// LogNotifier writes alerts to a zap logger. Used when no external channel
// is configured.
type LogNotifier struct {
	log *zap.Logger
}

// NewLogNotifier creates a log-based notifier.
func NewLogNotifier(log *zap.Logger) *LogNotifier {
	return &LogNotifier{log: log}
}

func (n *LogNotifier) Send(ctx context.Context, alert Alert) error {
	n.log.Info("notify",
		zap.String("level", string(alert.Level)),
		zap.String("kind", string(alert.Kind)),
		zap.String("title", alert.Title),
		zap.String("cycle_id", alert.CycleID),
		zap.String("message", alert.Message),
	)
	return nil
}

// Guarded wraps n so deliveries run through b. While b is open, Send fails
// fast with breaker.ErrOpen.
func Guarded(n Notifier, b *breaker.Breaker) Notifier {
	return &guarded{next: n, breaker: b}
}

type guarded struct {
	next    Notifier
	breaker *breaker.Breaker
}

func (g *guarded) Send(ctx context.Context, alert Alert) error {
	return g.breaker.Execute(ctx, func(ctx context.Context) error {
		return g.next.Send(ctx, alert)
	})
}
