package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"crypto-monitor/internal/indicator"
	"crypto-monitor/internal/report"
)

type handlers struct {
	mon    Monitor
	replay Replayer
}

// GET /api/v1/report[?format=html]
func (h *handlers) report(w http.ResponseWriter, r *http.Request) {
	rep, ok := h.mon.LatestReport()
	if !ok {
		writeError(w, http.StatusNotFound, "no cycle has completed yet")
		return
	}
	if r.URL.Query().Get("format") == "html" {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte(report.Build(rep)))
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

// GET /api/v1/coins
func (h *handlers) coins(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{"coins": h.mon.Assets()})
}

type seriesBody struct {
	RSI             indicator.Series `json:"rsi"`
	MACD            indicator.Series `json:"macd"`
	MACDSignal      indicator.Series `json:"macd_signal"`
	MACDHistogram   indicator.Series `json:"macd_histogram"`
	BollingerMiddle indicator.Series `json:"bollinger_middle"`
	BollingerUpper  indicator.Series `json:"bollinger_upper"`
	BollingerLower  indicator.Series `json:"bollinger_lower"`
	BollingerWidth  indicator.Series `json:"bollinger_width"`
}

type indicatorsBody struct {
	ID     string           `json:"id"`
	Latest indicator.Latest `json:"latest"`
	Prices []float64        `json:"prices,omitempty"`
	Series *seriesBody      `json:"series,omitempty"`
}

// GET /api/v1/coins/{id}/indicators[?series=true]
func (h *handlers) indicators(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	snap, ok := h.mon.Indicators(id)
	if !ok {
		writeError(w, http.StatusNotFound, "unknown coin "+id)
		return
	}

	body := indicatorsBody{ID: id, Latest: snap.Latest()}
	if r.URL.Query().Get("series") == "true" {
		body.Prices = snap.Prices
		body.Series = &seriesBody{
			RSI:             snap.RSI,
			MACD:            snap.MACD.Line,
			MACDSignal:      snap.MACD.Signal,
			MACDHistogram:   snap.MACD.Histogram,
			BollingerMiddle: snap.Bollinger.Middle,
			BollingerUpper:  snap.Bollinger.Upper,
			BollingerLower:  snap.Bollinger.Lower,
			BollingerWidth:  snap.Bollinger.Width,
		}
	}
	writeJSON(w, http.StatusOK, body)
}

// GET /api/v1/missed?channel=report&from=N[&to=M]
func (h *handlers) missed(w http.ResponseWriter, r *http.Request) {
	channel := r.URL.Query().Get("channel")
	if channel == "" {
		writeError(w, http.StatusBadRequest, "channel is required")
		return
	}
	from, err := queryInt(r, "from", 1)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid from")
		return
	}
	to, err := queryInt(r, "to", h.replay.ChannelSeq(channel))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid to")
		return
	}

	envs := h.replay.ReplayRange(channel, from, to)
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte{'['})
	for i, env := range envs {
		if i > 0 {
			w.Write([]byte{','})
		}
		w.Write(env)
	}
	w.Write([]byte{']'})
}
