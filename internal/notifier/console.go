package notifier

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/olekukonko/tablewriter"

	"MarketBacktest/internal/model"
)

// Console prints run summaries as tables.
type Console struct {
	out         io.Writer
	historyTail int
}

// NewConsole creates a console notifier writing to stdout.
func NewConsole() *Console {
	return &Console{out: os.Stdout, historyTail: 5}
}

// NewConsoleWriter creates a console notifier writing to w, for tests.
func NewConsoleWriter(w io.Writer, historyTail int) *Console {
	return &Console{out: w, historyTail: historyTail}
}

// NotifySummary prints the summary table followed by the last rows of history.
func (c *Console) NotifySummary(_ context.Context, s *model.Summary) error {
	fmt.Fprintf(c.out, "\n%s · %s  %s → %s\n", s.Symbol, s.Model, s.InitialDate, s.FinalDate)

	table := tablewriter.NewWriter(c.out)
	table.Header("Metric", "Value")
	table.Append("Initial balance (R$)", money(s.InitialBalance))
	table.Append("Final balance (R$)", money(s.FinalBalance))
	table.Append("Final profit (R$)", money(s.FinalProfit))
	table.Append("Final profit (%)", signedPct(s.FinalProfitPct))
	table.Append("Buy and hold (%)", signedPct(s.BuyAndHoldPct))
	table.Append("Max drawdown (%)", money(s.MaxDrawdownPct))
	table.Append("Sharpe ratio", money(s.SharpeRatio))
	table.Append("Total buy operations", fmt.Sprint(s.TotalBuy))
	table.Append("Total sell operations", fmt.Sprint(s.TotalSell))
	table.Append("Total operations", fmt.Sprint(s.Total))
	if err := table.Render(); err != nil {
		return fmt.Errorf("render summary: %w", err)
	}

	dates := historyDates(s.History)
	if c.historyTail > 0 && len(dates) > c.historyTail {
		dates = dates[len(dates)-c.historyTail:]
	}
	if len(dates) == 0 {
		return nil
	}

	hist := tablewriter.NewWriter(c.out)
	hist.Header("Date", "Balance", "Profit", "Profit %", "Option")
	for _, d := range dates {
		h := s.History[d]
		hist.Append(d, money(h.Balance), money(h.Profit), signedPct(h.ProfitPct), h.Options.String())
	}
	if err := hist.Render(); err != nil {
		return fmt.Errorf("render history: %w", err)
	}
	return nil
}
