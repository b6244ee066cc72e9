package report

import (
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crypto-monitor/internal/model"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func sampleReport() *model.Report {
	return &model.Report{
		GeneratedAt: time.Date(2024, 5, 1, 9, 7, 0, 0, time.UTC),
		Currency:    "brl",
		TopN:        3,
		Interval:    30 * time.Minute,
		Threshold:   10,
		Coins: []model.CoinStatus{
			{
				Coin:   model.Coin{Name: "Bitcoin", Symbol: "btc"},
				Delta:  model.Delta{Change: dec("12345.678"), Percent: dec("3.456")},
				Action: model.ActionSell,
				Hints:  []string{"RSI 72 overbought"},
			},
			{
				Coin:   model.Coin{Name: "Tom & Jerry <Coin>", Symbol: "tj"},
				Delta:  model.Delta{Change: dec("-2.5"), Percent: dec("-12.5")},
				Action: model.ActionBuy,
				Alert:  true,
			},
			{
				Coin:   model.Coin{Name: "Tether", Symbol: "usdt"},
				Delta:  model.Delta{Change: dec("0.01"), Percent: dec("0.2")},
				Action: model.ActionHold,
			},
		},
	}
}

func TestBuild(t *testing.T) {
	msg := Build(sampleReport())

	lines := strings.Split(msg, "\n")
	assert.Equal(t, "📊 <b>Report · Top 3 coins</b>", lines[0])
	assert.Equal(t, "🕒 Updated: <b>01/05/2024 09:07 UTC</b>", lines[1])
	assert.Equal(t, "📈 Compared with the previous cycle (last 30 min):", lines[3])

	assert.Contains(t, msg, "🟢 <b>Bitcoin (BTC)</b> · Up R$ 12,345.68 (+3.46%) → <b>Suggest sell (profit)</b> <i>[RSI 72 overbought]</i>")
	assert.Contains(t, msg, "🔴 <b>Tom &amp; Jerry &lt;Coin&gt; (TJ)</b> · Down R$ 2.50 (-12.50%) → <b>Suggest buy (dip)</b>")
	assert.Contains(t, msg, "⚪ <b>Tether (USDT)</b> · No significant change → <b>Suggest hold (stable)</b>")
	assert.True(t, strings.HasSuffix(msg, Footer))
}

func TestBuildAlert(t *testing.T) {
	r := sampleReport()
	msg := BuildAlert(r)
	assert.Equal(t,
		"🚨 <b>Significant move alert (±10%)</b>\n\n🔴 Tom &amp; Jerry &lt;Coin&gt; (TJ) · change of -12.50%",
		msg)

	r.Coins[1].Alert = false
	assert.Empty(t, BuildAlert(r))
}

func TestFormatAmount(t *testing.T) {
	tests := map[string]string{
		"0":           "0.00",
		"0.005":       "0.01",
		"12.3":        "12.30",
		"999.999":     "1,000.00",
		"1234.5":      "1,234.50",
		"123456":      "123,456.00",
		"1234567.891": "1,234,567.89",
		"-98765.4":    "-98,765.40",
	}
	for in, want := range tests {
		assert.Equal(t, want, FormatAmount(dec(in)), in)
	}
}

func TestCurrencySymbol(t *testing.T) {
	assert.Equal(t, "R$", CurrencySymbol("brl"))
	assert.Equal(t, "$", CurrencySymbol("USD"))
	assert.Equal(t, "€", CurrencySymbol("eur"))
	assert.Equal(t, "CHF", CurrencySymbol("chf"))
}

func TestSplit(t *testing.T) {
	t.Run("short message untouched", func(t *testing.T) {
		assert.Equal(t, []string{"a\nb"}, Split("a\nb", 10))
	})

	t.Run("cuts on line boundaries", func(t *testing.T) {
		chunks := Split("aaaa\nbbbb\ncccc", 9)
		assert.Equal(t, []string{"aaaa\nbbbb", "cccc"}, chunks)
	})

	t.Run("long line is hard cut", func(t *testing.T) {
		chunks := Split("xx\n"+strings.Repeat("é", 7), 3)
		assert.Equal(t, []string{"xx", "ééé", "ééé", "é"}, chunks)
	})

	t.Run("full report stays under limit", func(t *testing.T) {
		r := sampleReport()
		for i := 0; i < 200; i++ {
			r.Coins = append(r.Coins, r.Coins[0])
		}
		msg := Build(r)
		chunks := Split(msg, MaxMessageRunes)
		require.Greater(t, len(chunks), 1)
		for _, c := range chunks {
			assert.LessOrEqual(t, utf8.RuneCountInString(c), MaxMessageRunes)
		}
		assert.Equal(t, strings.Count(msg, "Bitcoin"), strings.Count(strings.Join(chunks, "\n"), "Bitcoin"))
	})
}
