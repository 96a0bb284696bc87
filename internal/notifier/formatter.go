package notifier

import (
	"fmt"
	"html"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"MarketBacktest/internal/model"
	"MarketBacktest/internal/recorder"
)

// money renders v rounded half away from zero to two decimals.
func money(v float64) string {
	return decimal.NewFromFloat(v).StringFixed(2)
}

func signedPct(v float64) string {
	d := decimal.NewFromFloat(v).Round(2)
	if d.IsPositive() {
		return "+" + d.StringFixed(2) + "%"
	}
	return d.StringFixed(2) + "%"
}

// FormatSummary formats a run summary into a Telegram HTML message.
func FormatSummary(s *model.Summary) string {
	var b strings.Builder

	fmt.Fprintf(&b, "📊 <b>Backtest</b> | %s · %s\n", html.EscapeString(s.Symbol), html.EscapeString(s.Model))
	fmt.Fprintf(&b, "%s → %s\n\n", s.InitialDate, s.FinalDate)

	fmt.Fprintf(&b, "Initial balance: R$ %s\n", money(s.InitialBalance))
	fmt.Fprintf(&b, "Final balance: R$ %s\n", money(s.FinalBalance))
	fmt.Fprintf(&b, "Profit: R$ %s (%s)\n", money(s.FinalProfit), signedPct(s.FinalProfitPct))
	fmt.Fprintf(&b, "Buy and hold: %s\n\n", signedPct(s.BuyAndHoldPct))

	fmt.Fprintf(&b, "Operations: %d (buy %d · sell %d)\n", s.Total, s.TotalBuy, s.TotalSell)
	fmt.Fprintf(&b, "Max drawdown: %s%%\n", decimal.NewFromFloat(s.MaxDrawdownPct).StringFixed(2))
	fmt.Fprintf(&b, "Sharpe: %s\n", decimal.NewFromFloat(s.SharpeRatio).StringFixed(2))

	if s.RunID != "" {
		fmt.Fprintf(&b, "\n<code>%s</code>", s.RunID)
	}
	return b.String()
}

// FormatRuns formats recent run records, newest first, one per line.
func FormatRuns(runs []recorder.RunRecord) string {
	if len(runs) == 0 {
		return "No runs recorded yet."
	}
	var b strings.Builder
	b.WriteString("🗂 <b>Recent runs</b>\n\n")
	for _, r := range runs {
		fmt.Fprintf(&b, "%s %s · %s %s→%s %s (%d ops)\n",
			r.ExecutedAt.Format("01-02 15:04"),
			html.EscapeString(r.Symbol), html.EscapeString(r.Model),
			r.InitialDate, r.FinalDate,
			signedPct(r.FinalProfitPct), r.TotalOps)
	}
	return b.String()
}

// FormatModels lists model names for the /models command.
func FormatModels(names []string) string {
	sorted := append([]string(nil), names...)
	sort.Strings(sorted)
	return "Models: " + strings.Join(sorted, ", ")
}

func historyDates(h map[string]model.HistoryRow) []string {
	dates := make([]string, 0, len(h))
	for d := range h {
		dates = append(dates, d)
	}
	sort.Strings(dates)
	return dates
}
