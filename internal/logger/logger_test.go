package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestInit(t *testing.T) {
	l, err := Init("test-service", "debug")
	require.NoError(t, err)
	require.NotNil(t, l)

	_, err = Init("test-service", "loud")
	assert.Error(t, err)
}

func TestParseLevel(t *testing.T) {
	tests := map[string]zapcore.Level{
		"":      zapcore.InfoLevel,
		"debug": zapcore.DebugLevel,
		"INFO":  zapcore.InfoLevel,
		"warn":  zapcore.WarnLevel,
		"error": zapcore.ErrorLevel,
	}
	for in, want := range tests {
		got, err := ParseLevel(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
}

func TestNew_WritesServiceAndCycleID(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, "monitor", zapcore.InfoLevel)

	ctx := WithCycleID(context.Background(), "cycle-1")
	For(ctx, l).Info("cycle done", zap.Int("coins", 3))
	l.Debug("filtered out")
	require.NoError(t, l.Sync())

	var line map[string]interface{}
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &line), buf.String())
	assert.Equal(t, "monitor", line["service"])
	assert.Equal(t, "cycle-1", line["cycle_id"])
	assert.Equal(t, "cycle done", line["msg"])
	assert.Equal(t, float64(3), line["coins"])
}

func TestCycleID_RoundTrip(t *testing.T) {
	ctx := context.Background()
	assert.Empty(t, CycleID(ctx))
	assert.Nil(t, Fields(ctx))

	ctx = WithCycleID(ctx, "abc-123")
	assert.Equal(t, "abc-123", CycleID(ctx))
	assert.Len(t, Fields(ctx), 1)
}

func TestNewCycleID(t *testing.T) {
	a, b := NewCycleID(), NewCycleID()
	assert.NotEqual(t, a, b)
	_, err := uuid.Parse(a)
	assert.NoError(t, err)
}
