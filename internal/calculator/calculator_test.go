package calculator

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"MarketBacktest/internal/model"
)

// dailyBars returns one bar per weekday starting Monday 2024-01-01.
func dailyBars(closes ...float64) []model.OHLCV {
	bars := make([]model.OHLCV, 0, len(closes))
	d := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for _, c := range closes {
		for d.Weekday() == time.Saturday || d.Weekday() == time.Sunday {
			d = d.AddDate(0, 0, 1)
		}
		bars = append(bars, model.OHLCV{Time: d, Open: c, High: c + 1, Low: c - 1, Close: c, Volume: 10})
		d = d.AddDate(0, 0, 1)
	}
	return bars
}

func TestCalculateSMA(t *testing.T) {
	v, err := CalculateSMA([]float64{1, 2, 3, 4, 5}, 2)
	require.NoError(t, err)
	assert.Equal(t, 4.5, v)

	_, err = CalculateSMA([]float64{1}, 2)
	assert.Error(t, err)
	_, err = CalculateSMA([]float64{1}, 0)
	assert.Error(t, err)
}

func TestRollingSMA(t *testing.T) {
	out, err := RollingSMA([]float64{1, 2, 3, 4, 5}, 3)
	require.NoError(t, err)
	require.Len(t, out, 5)
	assert.True(t, math.IsNaN(out[0]))
	assert.True(t, math.IsNaN(out[1]))
	assert.Equal(t, []float64{2, 3, 4}, out[2:])

	_, err = RollingSMA(nil, 0)
	assert.Error(t, err)
}

func TestRSISeries(t *testing.T) {
	out, err := RSISeries([]float64{1, 2, 3, 4, 5}, 3)
	require.NoError(t, err)
	for _, v := range out[:3] {
		assert.True(t, math.IsNaN(v))
	}
	assert.Equal(t, 100.0, out[3])
	assert.Equal(t, 100.0, out[4])

	out, err = RSISeries([]float64{5, 4, 3, 2}, 3)
	require.NoError(t, err)
	assert.Zero(t, out[3])
}

func TestCalculateRSI_InsufficientData(t *testing.T) {
	v, err := CalculateRSI(dailyBars(1, 2, 3), 14)
	require.NoError(t, err)
	assert.Equal(t, 50.0, v)

	_, err = CalculateRSI(dailyBars(1, 2, 3), 0)
	assert.Error(t, err)
}

func TestCalculateRSI_Mixed(t *testing.T) {
	v, err := CalculateRSI(dailyBars(10, 11, 10, 11, 10, 11), 4)
	require.NoError(t, err)
	assert.Greater(t, v, 0.0)
	assert.Less(t, v, 100.0)
}

func TestTrailingRanges(t *testing.T) {
	bars := dailyBars(10, 20, 15, 12)
	high, low, err := Calculate52WeekRange(bars)
	require.NoError(t, err)
	assert.Equal(t, 21.0, high)
	assert.Equal(t, 9.0, low)

	closes := make([]float64, 30)
	for i := range closes {
		closes[i] = float64(100 + i)
	}
	high, low, err = Calculate30DayRange(dailyBars(closes...))
	require.NoError(t, err)
	assert.Equal(t, 130.0, high)
	assert.Equal(t, 107.0, low)

	_, _, err = Calculate30DayRange(nil)
	assert.Error(t, err)
}

func TestCalculate52WeekPosition(t *testing.T) {
	pos, err := Calculate52WeekPosition(15, 20, 10)
	require.NoError(t, err)
	assert.Equal(t, 0.5, pos)

	pos, _ = Calculate52WeekPosition(25, 20, 10)
	assert.Equal(t, 1.0, pos)
	pos, _ = Calculate52WeekPosition(5, 20, 10)
	assert.Equal(t, 0.0, pos)
	pos, _ = Calculate52WeekPosition(5, 10, 10)
	assert.Equal(t, 0.5, pos)

	_, err = Calculate52WeekPosition(5, 10, 20)
	assert.Error(t, err)
}

func TestAggregateWeekly(t *testing.T) {
	// Mon..Fri, then Mon..Tue of the next week.
	weekly := AggregateWeekly(dailyBars(1, 2, 3, 4, 5, 6, 7))
	require.Len(t, weekly, 2)

	assert.Equal(t, 1.0, weekly[0].Open)
	assert.Equal(t, 5.0, weekly[0].Close)
	assert.Equal(t, 6.0, weekly[0].High)
	assert.Equal(t, 0.0, weekly[0].Low)
	assert.Equal(t, 50.0, weekly[0].Volume)
	assert.Equal(t, 7.0, weekly[1].Close)

	assert.Nil(t, AggregateWeekly(nil))
}

func TestPercentChange(t *testing.T) {
	out := PercentChange([]float64{100, 110, 0, 50})
	require.Len(t, out, 4)
	assert.Zero(t, out[0])
	assert.InDelta(t, 0.10, out[1], 1e-12)
	assert.InDelta(t, -1.0, out[2], 1e-12)
	assert.Zero(t, out[3])

	assert.Empty(t, PercentChange(nil))
}

func TestIndicators_ShortHistoryIsNeutral(t *testing.T) {
	ind := Indicators(dailyBars(100, 101, 102))

	assert.Equal(t, 102.0, ind.CurrentPrice)
	assert.Equal(t, 102.0, ind.MA200)
	assert.Equal(t, 102.0, ind.MA20w)
	assert.Equal(t, 102.0, ind.MA50w)
	assert.Equal(t, 50.0, ind.WeeklyRSI)
	assert.Equal(t, 50.0, ind.DailyRSI)
	assert.Equal(t, 103.0, ind.High52w)
	assert.Equal(t, 99.0, ind.Low52w)
}

func TestIndicators_Empty(t *testing.T) {
	ind := Indicators(nil)
	assert.Equal(t, 0.5, ind.Position52w)
	assert.Equal(t, 50.0, ind.DailyRSI)
}

func TestIndicators_LongHistory(t *testing.T) {
	closes := make([]float64, 400)
	for i := range closes {
		closes[i] = 100 + float64(i)
	}
	ind := Indicators(dailyBars(closes...))

	assert.Equal(t, 499.0, ind.CurrentPrice)
	assert.InDelta(t, 399.5, ind.MA200, 1e-9)
	assert.Equal(t, 100.0, ind.DailyRSI)
	assert.Less(t, ind.MA50w, ind.MA20w)
	assert.Greater(t, ind.Position52w, 0.9)
}

func TestMaxDrawdown(t *testing.T) {
	assert.InDelta(t, 25.0, MaxDrawdown([]float64{100, 120, 90, 110, 95}), 1e-9)
	assert.Zero(t, MaxDrawdown([]float64{100, 100, 101}))
	assert.Zero(t, MaxDrawdown(nil))
}

func TestSharpeRatio(t *testing.T) {
	assert.Zero(t, SharpeRatio(nil))
	assert.Zero(t, SharpeRatio([]float64{0.01}))
	assert.Zero(t, SharpeRatio([]float64{0, 0, 0}))

	returns := []float64{0.01, -0.01, 0.02, 0}
	// mean 0.005, sample std 0.0129099
	assert.InDelta(t, 0.005/0.012909944*math.Sqrt(252), SharpeRatio(returns), 1e-6)
}

func TestPeriodReturns(t *testing.T) {
	assert.Nil(t, PeriodReturns([]float64{100}))
	out := PeriodReturns([]float64{100, 110, 99})
	require.Len(t, out, 2)
	assert.InDelta(t, 0.10, out[0], 1e-12)
	assert.InDelta(t, -0.10, out[1], 1e-12)
}
