package calculator

import (
	"errors"
	"math"

	"MarketBacktest/internal/model"
)

// CalculateSMA computes the simple moving average of the last period prices.
func CalculateSMA(prices []float64, period int) (float64, error) {
	if period <= 0 {
		return 0, errors.New("period must be positive")
	}
	if len(prices) < period {
		return 0, errors.New("not enough data for SMA calculation")
	}
	sum := 0.0
	for i := len(prices) - period; i < len(prices); i++ {
		sum += prices[i]
	}
	return sum / float64(period), nil
}

// RollingSMA returns the SMA ending at every index of prices.
// Indices before the first full window are NaN.
func RollingSMA(prices []float64, period int) ([]float64, error) {
	if period <= 0 {
		return nil, errors.New("period must be positive")
	}
	out := make([]float64, len(prices))
	sum := 0.0
	for i, p := range prices {
		sum += p
		if i >= period {
			sum -= prices[i-period]
		}
		if i < period-1 {
			out[i] = math.NaN()
			continue
		}
		out[i] = sum / float64(period)
	}
	return out, nil
}

// CalculateMA200 returns the 200-day simple moving average from daily bars.
func CalculateMA200(dailyBars []model.OHLCV) (float64, error) {
	return CalculateSMA(Closes(dailyBars), 200)
}

// CalculateMA20w returns the 20-week simple moving average from weekly bars.
func CalculateMA20w(weeklyBars []model.OHLCV) (float64, error) {
	return CalculateSMA(Closes(weeklyBars), 20)
}

// CalculateMA50w returns the 50-week simple moving average from weekly bars.
func CalculateMA50w(weeklyBars []model.OHLCV) (float64, error) {
	return CalculateSMA(Closes(weeklyBars), 50)
}

// Closes extracts close prices from bars.
func Closes(bars []model.OHLCV) []float64 {
	closes := make([]float64, len(bars))
	for i, b := range bars {
		closes[i] = b.Close
	}
	return closes
}
