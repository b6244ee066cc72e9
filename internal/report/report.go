// Package report renders cycle results as Telegram HTML messages.
package report

import (
	"fmt"
	"html"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"

	"crypto-monitor/internal/model"
)

// MaxMessageRunes is Telegram's limit for a single message text.
const MaxMessageRunes = 4096

const (
	TimeLayout = "02/01/2006 15:04 UTC"
	Footer     = "💬 <i>Automatic analysis by crypto-monitor</i>"
)

var currencySymbols = map[string]string{
	"brl": "R$",
	"usd": "$",
	"eur": "€",
	"gbp": "£",
	"jpy": "¥",
}

// CurrencySymbol returns the display symbol for a quote currency code,
// falling back to the upper-cased code.
func CurrencySymbol(code string) string {
	if s, ok := currencySymbols[strings.ToLower(code)]; ok {
		return s
	}
	return strings.ToUpper(code)
}

// Build renders the full cycle report.
func Build(r *model.Report) string {
	var b strings.Builder

	fmt.Fprintf(&b, "📊 <b>Report · Top %d coins</b>\n", r.TopN)
	fmt.Fprintf(&b, "🕒 Updated: <b>%s</b>\n\n", r.GeneratedAt.UTC().Format(TimeLayout))
	fmt.Fprintf(&b, "📈 Compared with the previous cycle (last %s):\n\n", formatInterval(r.Interval))

	sym := CurrencySymbol(r.Currency)
	for i := range r.Coins {
		b.WriteString(Line(&r.Coins[i], sym))
		b.WriteByte('\n')
	}

	b.WriteString("\n")
	b.WriteString(Footer)
	return b.String()
}

// Line renders one coin's status.
func Line(s *model.CoinStatus, sym string) string {
	name := fmt.Sprintf("<b>%s (%s)</b>", html.EscapeString(s.Coin.Name), html.EscapeString(s.Coin.Ticker()))

	var line string
	switch s.Action {
	case model.ActionSell:
		line = fmt.Sprintf("🟢 %s · Up %s %s (+%s%%) → <b>Suggest sell (profit)</b>",
			name, sym, FormatAmount(s.Delta.Change.Abs()), s.Delta.Percent.StringFixed(2))
	case model.ActionBuy:
		line = fmt.Sprintf("🔴 %s · Down %s %s (%s%%) → <b>Suggest buy (dip)</b>",
			name, sym, FormatAmount(s.Delta.Change.Abs()), s.Delta.Percent.StringFixed(2))
	default:
		line = fmt.Sprintf("⚪ %s · No significant change → <b>Suggest hold (stable)</b>", name)
	}

	if len(s.Hints) > 0 {
		line += " <i>[" + html.EscapeString(strings.Join(s.Hints, ", ")) + "]</i>"
	}
	return line
}

// BuildAlert renders the alert message, or "" if no coin crossed the threshold.
func BuildAlert(r *model.Report) string {
	alerts := r.Alerts()
	if len(alerts) == 0 {
		return ""
	}

	var b strings.Builder
	fmt.Fprintf(&b, "🚨 <b>Significant move alert (±%s%%)</b>\n\n", decimal.NewFromFloat(r.Threshold).StringFixed(0))
	for i, a := range alerts {
		emoji := "🔴"
		if a.Delta.Percent.IsPositive() {
			emoji = "🟢"
		}
		fmt.Fprintf(&b, "%s %s (%s) · change of %s%%",
			emoji, html.EscapeString(a.Coin.Name), html.EscapeString(a.Coin.Ticker()), a.Delta.Percent.StringFixed(2))
		if i < len(alerts)-1 {
			b.WriteByte('\n')
		}
	}
	return b.String()
}

// FormatAmount renders d with two decimals and comma thousands grouping,
// e.g. 1234567.891 → "1,234,567.89".
func FormatAmount(d decimal.Decimal) string {
	s := d.StringFixed(2)
	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")

	intPart, frac := s, ""
	if dot := strings.IndexByte(s, '.'); dot >= 0 {
		intPart, frac = s[:dot], s[dot:]
	}

	var b strings.Builder
	if neg {
		b.WriteByte('-')
	}
	lead := len(intPart) % 3
	if lead == 0 {
		lead = 3
	}
	b.WriteString(intPart[:lead])
	for i := lead; i < len(intPart); i += 3 {
		b.WriteByte(',')
		b.WriteString(intPart[i : i+3])
	}
	b.WriteString(frac)
	return b.String()
}

// Split breaks msg into chunks of at most limit runes, cutting on line
// boundaries. A single line longer than limit is cut at the rune limit.
func Split(msg string, limit int) []string {
	if limit <= 0 || utf8.RuneCountInString(msg) <= limit {
		return []string{msg}
	}

	var (
		chunks []string
		cur    strings.Builder
		curLen int
	)
	flush := func() {
		if curLen > 0 {
			chunks = append(chunks, cur.String())
			cur.Reset()
			curLen = 0
		}
	}

	for _, line := range strings.Split(msg, "\n") {
		n := utf8.RuneCountInString(line)
		for n > limit {
			flush()
			r := []rune(line)
			chunks = append(chunks, string(r[:limit]))
			line = string(r[limit:])
			n -= limit
		}

		sep := 0
		if curLen > 0 {
			sep = 1
		}
		if curLen+sep+n > limit {
			flush()
			sep = 0
		}
		if sep == 1 {
			cur.WriteByte('\n')
		}
		cur.WriteString(line)
		curLen += sep + n
	}
	flush()
	return chunks
}

func formatInterval(d time.Duration) string {
	if d <= 0 {
		return "0 min"
	}
	if d%time.Minute == 0 {
		return fmt.Sprintf("%d min", int(d/time.Minute))
	}
	return d.String()
}
