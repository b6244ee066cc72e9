// Package logger sets up structured logging with zap. Loggers carry the
// service name, and a cycle id travels through context.Context so every line
// written during one polling cycle can be correlated.
package logger

import (
	"context"
	"io"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type ctxKey string

const cycleIDKey ctxKey = "cycle_id"

// ParseLevel maps "debug", "info", "warn" and "error" to a zap level.
// An empty string means info.
func ParseLevel(s string) (zapcore.Level, error) {
	var lvl zapcore.Level
	if strings.TrimSpace(s) == "" {
		return zapcore.InfoLevel, nil
	}
	if err := lvl.UnmarshalText([]byte(strings.ToLower(s))); err != nil {
		return zapcore.InfoLevel, errors.Wrapf(err, "log level %q", s)
	}
	return lvl, nil
}

// Init creates a JSON logger for the given service writing to stdout and
// installs it as zap's global logger.
func Init(service, level string) (*zap.Logger, error) {
	lvl, err := ParseLevel(level)
	if err != nil {
		return nil, err
	}
	l := New(os.Stdout, service, lvl)
	zap.ReplaceGlobals(l)
	return l, nil
}

// New creates a JSON logger writing to w.
func New(w io.Writer, service string, lvl zapcore.Level) *zap.Logger {
	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "ts"
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(encCfg),
		zapcore.AddSync(w),
		zap.NewAtomicLevelAt(lvl),
	)
	return zap.New(core, zap.AddCaller()).With(zap.String("service", service))
}

// NewCycleID returns a fresh cycle id.
func NewCycleID() string {
	return uuid.NewString()
}

// WithCycleID stores a cycle id in the context.
func WithCycleID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, cycleIDKey, id)
}

// CycleID extracts the cycle id from context. Returns "" if not set.
func CycleID(ctx context.Context) string {
	if v, ok := ctx.Value(cycleIDKey).(string); ok {
		return v
	}
	return ""
}

// Fields returns the zap fields carried by ctx.
// Usage: log.Info("msg", logger.Fields(ctx)...)
func Fields(ctx context.Context) []zap.Field {
	id := CycleID(ctx)
	if id == "" {
		return nil
	}
	return []zap.Field{zap.String("cycle_id", id)}
}

// For returns l annotated with the fields carried by ctx.
func For(ctx context.Context, l *zap.Logger) *zap.Logger {
	if f := Fields(ctx); f != nil {
		return l.With(f...)
	}
	return l
}
