package api

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"crypto-monitor/internal/indicator"
	"crypto-monitor/internal/model"
)

type fakeMonitor struct {
	report *model.Report
	snaps  map[string]indicator.Snapshot
}

func (f *fakeMonitor) LatestReport() (*model.Report, bool) { return f.report, f.report != nil }

func (f *fakeMonitor) Indicators(id string) (indicator.Snapshot, bool) {
	s, ok := f.snaps[id]
	return s, ok
}

func (f *fakeMonitor) Assets() []string {
	out := make([]string, 0, len(f.snaps))
	for id := range f.snaps {
		out = append(out, id)
	}
	return out
}

type fakeReplayer struct{}

func (fakeReplayer) ReplayRange(channel string, from, to int64) [][]byte {
	var out [][]byte
	for i := from; i <= to; i++ {
		out = append(out, []byte(`{"seq":`+strconv.FormatInt(i, 10)+`}`))
	}
	return out
}

func (fakeReplayer) ChannelSeq(string) int64 { return 3 }

func newTestRouter(t *testing.T, mon *fakeMonitor) http.Handler {
	t.Helper()
	prices := make([]float64, 40)
	for i := range prices {
		prices[i] = 100 + float64(i%5)
	}
	snap, err := indicator.Compute(prices, indicator.DefaultParams())
	require.NoError(t, err)
	if mon.snaps == nil {
		mon.snaps = map[string]indicator.Snapshot{"bitcoin": snap}
	}

	return NewRouter(Deps{
		Monitor: mon,
		Health: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"status":"healthy"}`))
		}),
		Metrics: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("monitor_cycles_total 1\n"))
		}),
		Replay: fakeReplayer{},
		Log:    zap.NewNop(),
	})
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestRouter_HealthAndMetrics(t *testing.T) {
	h := newTestRouter(t, &fakeMonitor{})

	rec := get(t, h, "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"healthy"}`, rec.Body.String())

	rec = get(t, h, "/metrics")
	assert.Contains(t, rec.Body.String(), "monitor_cycles_total")
}

func TestRouter_Report(t *testing.T) {
	mon := &fakeMonitor{}
	h := newTestRouter(t, mon)

	rec := get(t, h, "/api/v1/report")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	mon.report = &model.Report{
		CycleID:     "c-1",
		GeneratedAt: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
		Currency:    "brl",
		TopN:        1,
		Coins: []model.CoinStatus{{
			Coin:   model.Coin{ID: "bitcoin", Name: "Bitcoin", Symbol: "btc"},
			Action: model.ActionHold,
		}},
	}

	rec = get(t, h, "/api/v1/report")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	var got model.Report
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "c-1", got.CycleID)
	require.Len(t, got.Coins, 1)
	assert.Equal(t, model.ActionHold, got.Coins[0].Action)

	rec = get(t, h, "/api/v1/report?format=html")
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, rec.Body.String(), "<b>Bitcoin (BTC)</b>")
}

func TestRouter_Indicators(t *testing.T) {
	h := newTestRouter(t, &fakeMonitor{})

	rec := get(t, h, "/api/v1/coins/dogecoin/indicators")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = get(t, h, "/api/v1/coins/bitcoin/indicators")
	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		ID     string                     `json:"id"`
		Latest map[string]json.RawMessage `json:"latest"`
		Series map[string][]*float64      `json:"series"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "bitcoin", body.ID)
	assert.Equal(t, "40", string(body.Latest["points"]))
	assert.Nil(t, body.Series)

	rec = get(t, h, "/api/v1/coins/bitcoin/indicators?series=true")
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Series["bollinger_middle"], 40)
	assert.Nil(t, body.Series["bollinger_middle"][0], "warm-up positions encode as null")
	assert.NotNil(t, body.Series["bollinger_middle"][39])
	assert.NotNil(t, body.Series["rsi"][0], "rsi is backfilled")

	rec = get(t, h, "/api/v1/coins")
	assert.JSONEq(t, `{"coins":["bitcoin"]}`, rec.Body.String())
}

func TestRouter_Missed(t *testing.T) {
	h := newTestRouter(t, &fakeMonitor{})

	rec := get(t, h, "/api/v1/missed")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = get(t, h, "/api/v1/missed?channel=report&from=x")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = get(t, h, "/api/v1/missed?channel=report&from=2")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[{"seq":2},{"seq":3}]`, rec.Body.String())
}

func TestServe_ShutsDownOnCancel(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	ln.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- Serve(ctx, addr, http.NotFoundHandler(), zap.NewNop())
	}()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + addr + "/")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusNotFound
	}, 5*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}
}
