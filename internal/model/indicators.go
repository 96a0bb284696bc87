package model

// MarketIndicators is the technical snapshot the factor model scores, taken
// as of one bar using only that bar and its history.
type MarketIndicators struct {
	CurrentPrice float64

	// Moving averages: 200 daily closes, 20 and 50 weekly closes.
	MA200 float64
	MA20w float64
	MA50w float64

	// 14-period Wilder RSI on weekly and daily closes.
	WeeklyRSI float64
	DailyRSI  float64

	// Trailing ranges over 252 and 22 trading days.
	High52w float64
	Low52w  float64
	High30d float64
	Low30d  float64

	// Position52w is (price - Low52w) / (High52w - Low52w), clamped to [0, 1].
	Position52w float64
}
