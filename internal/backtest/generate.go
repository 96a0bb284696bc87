package backtest

import "MarketBacktest/internal/model"

// Generate derives the balance curve from a signal series.
//
// The growth factor of row t is 1 + Signal[t]*Change[t-1]; row 0 has no prior
// change and contributes a factor of 1. Balance[t] is initial times the
// running product of those factors.
func Generate(points []model.SignalPoint, initial float64) []model.GeneratedRow {
	rows := make([]model.GeneratedRow, len(points))
	growth := 1.0
	for i, p := range points {
		if i > 0 {
			growth *= 1 + float64(p.Signal)*points[i-1].Change
		}
		balance := initial * growth
		rows[i] = model.GeneratedRow{
			Time:      p.Time,
			Balance:   balance,
			Profit:    balance - initial,
			ProfitPct: balance/initial*100 - 100,
			Option:    p.Signal,
		}
	}
	return rows
}

// CountOperations returns the number of BUY and SELL rows.
func CountOperations(rows []model.GeneratedRow) (buys, sells int) {
	for _, r := range rows {
		switch r.Option {
		case model.Buy:
			buys++
		case model.Sell:
			sells++
		}
	}
	return buys, sells
}
