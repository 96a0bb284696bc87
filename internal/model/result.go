package model

import "time"

// DateLayout is the calendar date format used for run parameters and history keys.
const DateLayout = "2006-01-02"

// GeneratedRow is one row of the balance curve derived from a signal series.
type GeneratedRow struct {
	Time      time.Time
	Balance   float64
	Profit    float64
	ProfitPct float64
	Option    Option
}

// HistoryRow is the per-date entry of a Summary's history.
type HistoryRow struct {
	Balance   float64 `json:"Balance"`
	Profit    float64 `json:"Profit"`
	ProfitPct float64 `json:"Profit %"`
	Options   Option  `json:"Options"`
}

// Summary is the record handed to the log sink after a backtest run.
type Summary struct {
	RunID          string                `json:"Run ID"`
	Symbol         string                `json:"Symbol"`
	Model          string                `json:"Model used"`
	InitialDate    string                `json:"Initial date"`
	FinalDate      string                `json:"Final date"`
	InitialBalance float64               `json:"Initial balance (R$)"`
	FinalBalance   float64               `json:"Final balance (R$)"`
	FinalProfit    float64               `json:"Final profit (R$)"`
	FinalProfitPct float64               `json:"Final profit (%)"`
	TotalBuy       int                   `json:"Total buy operations"`
	TotalSell      int                   `json:"Total sell operations"`
	Total          int                   `json:"Total operations"`
	MaxDrawdownPct float64               `json:"Max drawdown (%)"`
	SharpeRatio    float64               `json:"Sharpe ratio"`
	BuyAndHoldPct  float64               `json:"Buy and hold (%)"`
	ExecutedAt     time.Time             `json:"Executed at"`
	History        map[string]HistoryRow `json:"History"`
}
