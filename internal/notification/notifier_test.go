package notification

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"
	"unicode/utf8"

	goredis "github.com/go-redis/redis/v8"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"crypto-monitor/internal/breaker"
	"crypto-monitor/internal/model"
	"crypto-monitor/internal/report"
)

func sampleAlert() Alert {
	return Alert{
		Level:   AlertInfo,
		Kind:    KindReport,
		Title:   "report",
		Message: "📊 <b>Report</b>\nline",
		CycleID: "c-1",
		TS:      time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
		Report:  &model.Report{TopN: 2, Currency: "brl"},
	}
}

// ── Telegram ──

func TestTelegramNotifier_Send(t *testing.T) {
	var got map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/botTOKEN/sendMessage", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Write([]byte(`{"ok":true,"result":{}}`))
	}))
	defer srv.Close()

	n := NewTelegramNotifier("TOKEN", "42", WithAPIBase(srv.URL))
	require.NoError(t, n.Send(context.Background(), sampleAlert()))

	assert.Equal(t, "42", got["chat_id"])
	assert.Equal(t, "HTML", got["parse_mode"])
	assert.Equal(t, "📊 <b>Report</b>\nline", got["text"])
}

func TestTelegramNotifier_SplitsLongMessages(t *testing.T) {
	var (
		mu    sync.Mutex
		texts []string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Text string `json:"text"`
		}
		json.NewDecoder(r.Body).Decode(&body)
		mu.Lock()
		texts = append(texts, body.Text)
		mu.Unlock()
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	line := strings.Repeat("x", 100)
	lines := make([]string, 100)
	for i := range lines {
		lines[i] = line
	}
	alert := sampleAlert()
	alert.Message = strings.Join(lines, "\n")

	n := NewTelegramNotifier("T", "1", WithAPIBase(srv.URL))
	require.NoError(t, n.Send(context.Background(), alert))

	require.Len(t, texts, 3)
	for _, txt := range texts {
		assert.LessOrEqual(t, utf8.RuneCountInString(txt), report.MaxMessageRunes)
	}
	assert.Equal(t, alert.Message, strings.Join(texts, "\n"))
}

func TestTelegramNotifier_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"ok":false,"description":"Bad Request: can't parse entities"}`))
	}))
	defer srv.Close()

	n := NewTelegramNotifier("SECRET", "1", WithAPIBase(srv.URL))
	err := n.Send(context.Background(), sampleAlert())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "can't parse entities")
	assert.NotContains(t, err.Error(), "SECRET")
}

func TestTelegramNotifier_TransportErrorHidesToken(t *testing.T) {
	n := NewTelegramNotifier("SECRET", "1", WithAPIBase("http://127.0.0.1:1"))
	err := n.Send(context.Background(), sampleAlert())
	require.Error(t, err)
	assert.NotContains(t, err.Error(), "SECRET")
}

// ── Webhook ──

func TestWebhookNotifier_Send(t *testing.T) {
	var got Alert
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	require.NoError(t, NewWebhookNotifier(srv.URL).Send(context.Background(), sampleAlert()))
	assert.Equal(t, KindReport, got.Kind)
	assert.Equal(t, "c-1", got.CycleID)
	require.NotNil(t, got.Report)
	assert.Equal(t, 2, got.Report.TopN)
}

func TestWebhookNotifier_Non2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.Copy(io.Discard, r.Body)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	err := NewWebhookNotifier(srv.URL).Send(context.Background(), sampleAlert())
	assert.EqualError(t, err, "webhook: unexpected status 500")
}

// ── Redis ──

type fakePublisher struct {
	channel string
	payload []byte
	err     error
}

func (f *fakePublisher) Publish(ctx context.Context, channel string, message interface{}) *goredis.IntCmd {
	f.channel = channel
	f.payload, _ = message.([]byte)
	cmd := goredis.NewIntCmd(ctx)
	if f.err != nil {
		cmd.SetErr(f.err)
	} else {
		cmd.SetVal(1)
	}
	return cmd
}

func TestRedisPublisher_Send(t *testing.T) {
	pub := &fakePublisher{}
	n := NewRedisPublisher(pub, "")
	assert.Equal(t, DefaultRedisChannel, n.Channel())

	require.NoError(t, n.Send(context.Background(), sampleAlert()))
	assert.Equal(t, DefaultRedisChannel, pub.channel)

	var got Alert
	require.NoError(t, json.Unmarshal(pub.payload, &got))
	assert.Equal(t, "report", got.Title)

	pub.err = errors.New("connection refused")
	err := NewRedisPublisher(pub, "custom").Send(context.Background(), sampleAlert())
	assert.ErrorContains(t, err, "redis: publish custom")
}

// ── Hub ──

type fakeHub struct {
	channels []string
	data     []interface{}
}

func (h *fakeHub) Broadcast(channel string, data interface{}) {
	h.channels = append(h.channels, channel)
	h.data = append(h.data, data)
}

func TestHubNotifier_Send(t *testing.T) {
	hub := &fakeHub{}
	n := NewHubNotifier(hub)

	require.NoError(t, n.Send(context.Background(), sampleAlert()))
	alert := sampleAlert()
	alert.Kind = KindAlert
	require.NoError(t, n.Send(context.Background(), alert))
	require.NoError(t, n.Send(context.Background(), Alert{}))

	assert.Equal(t, []string{"report", "alert", "alert"}, hub.channels)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, n.Send(ctx, alert), context.Canceled)
}

// ── Log ──

func TestLogNotifier_Send(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	n := NewLogNotifier(zap.New(core))

	require.NoError(t, n.Send(context.Background(), sampleAlert()))
	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, "notify", entry.Message)
	assert.Equal(t, "c-1", entry.ContextMap()["cycle_id"])
	assert.Equal(t, "report", entry.ContextMap()["kind"])
}

// ── Multi / Guarded ──

type notifierFunc func(ctx context.Context, a Alert) error

func (f notifierFunc) Send(ctx context.Context, a Alert) error { return f(ctx, a) }

func TestMulti_OneFailingSinkDoesNotStopOthers(t *testing.T) {
	var (
		mu      sync.Mutex
		results = map[string]error{}
		okCalls int
	)
	m := NewMulti(
		Sink{Name: "ok", Notifier: notifierFunc(func(context.Context, Alert) error {
			mu.Lock()
			okCalls++
			mu.Unlock()
			return nil
		})},
		Sink{Name: "broken", Notifier: notifierFunc(func(context.Context, Alert) error {
			return errors.New("down")
		})},
	)
	m.Add("also-ok", notifierFunc(func(context.Context, Alert) error { return nil }))
	m.OnResult = func(name string, err error) {
		mu.Lock()
		results[name] = err
		mu.Unlock()
	}

	err := m.Send(context.Background(), sampleAlert())
	require.Error(t, err)
	assert.Equal(t, "broken: down", err.Error())

	errs := multierr.Errors(err)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Error(), "broken")

	assert.Equal(t, 1, okCalls)
	assert.Len(t, results, 3)
	assert.NoError(t, results["ok"])
	assert.Error(t, results["broken"])
	assert.Equal(t, []string{"ok", "broken", "also-ok"}, m.Names())
	assert.Equal(t, 3, m.Len())
}

func TestMulti_CombinesEverySinkFailure(t *testing.T) {
	errA := errors.New("telegram 502")
	errB := errors.New("webhook timeout")
	m := NewMulti(
		Sink{Name: "telegram", Notifier: notifierFunc(func(context.Context, Alert) error { return errA })},
		Sink{Name: "dashboard", Notifier: notifierFunc(func(context.Context, Alert) error { return nil })},
		Sink{Name: "webhook", Notifier: notifierFunc(func(context.Context, Alert) error { return errB })},
	)

	err := m.Send(context.Background(), sampleAlert())
	require.Error(t, err)

	errs := multierr.Errors(err)
	require.Len(t, errs, 2)
	assert.Equal(t, "telegram: telegram 502", errs[0].Error())
	assert.Equal(t, "webhook: webhook timeout", errs[1].Error())
	assert.True(t, errors.Is(err, errA))
	assert.True(t, errors.Is(err, errB))
}

func TestMulti_AllSucceed(t *testing.T) {
	m := NewMulti()
	assert.NoError(t, m.Send(context.Background(), sampleAlert()))
	m.Add("ok", notifierFunc(func(context.Context, Alert) error { return nil }))
	assert.NoError(t, m.Send(context.Background(), sampleAlert()))
}

func TestGuarded_OpensAfterFailures(t *testing.T) {
	calls := 0
	failing := notifierFunc(func(context.Context, Alert) error {
		calls++
		return errors.New("503")
	})
	b := breaker.New("telegram", 2, time.Minute)
	n := Guarded(failing, b)

	for i := 0; i < 2; i++ {
		assert.Error(t, n.Send(context.Background(), sampleAlert()))
	}
	err := n.Send(context.Background(), sampleAlert())
	assert.True(t, errors.Is(err, breaker.ErrOpen))
	assert.Equal(t, 2, calls)
}
