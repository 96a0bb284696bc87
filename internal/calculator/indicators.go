package calculator

import "MarketBacktest/internal/model"

// Indicators computes the market indicators as of the last bar of daily.
// Indicators without enough history fall back to neutral values: moving
// averages and ranges to the current price, RSI to 50, position to 0.5.
func Indicators(daily []model.OHLCV) *model.MarketIndicators {
	ind := &model.MarketIndicators{WeeklyRSI: 50, DailyRSI: 50, Position52w: 0.5}
	if len(daily) == 0 {
		return ind
	}
	weekly := AggregateWeekly(daily)
	price := daily[len(daily)-1].Close
	ind.CurrentPrice = price

	if ma, err := CalculateMA200(daily); err != nil {
		ind.MA200 = price
	} else {
		ind.MA200 = ma
	}
	if ma, err := CalculateMA20w(weekly); err != nil {
		ind.MA20w = price
	} else {
		ind.MA20w = ma
	}
	if ma, err := CalculateMA50w(weekly); err != nil {
		ind.MA50w = price
	} else {
		ind.MA50w = ma
	}
	if rsi, err := CalculateRSI(weekly, 14); err == nil {
		ind.WeeklyRSI = rsi
	}
	if rsi, err := CalculateRSI(daily, 14); err == nil {
		ind.DailyRSI = rsi
	}

	ind.High52w, ind.Low52w = price, price
	if h, l, err := Calculate52WeekRange(daily); err == nil {
		ind.High52w, ind.Low52w = h, l
	}
	ind.High30d, ind.Low30d = price, price
	if h, l, err := Calculate30DayRange(daily); err == nil {
		ind.High30d, ind.Low30d = h, l
	}
	if pos, err := Calculate52WeekPosition(price, ind.High52w, ind.Low52w); err == nil {
		ind.Position52w = pos
	}
	return ind
}
