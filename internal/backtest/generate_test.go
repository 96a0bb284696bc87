package backtest

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"MarketBacktest/internal/model"
)

func points(changes []float64, signals ...model.Option) []model.SignalPoint {
	start := time.Date(2019, 1, 2, 0, 0, 0, 0, time.UTC)
	out := make([]model.SignalPoint, len(signals))
	for i, s := range signals {
		out[i] = model.SignalPoint{Time: start.AddDate(0, 0, i), Signal: s, Change: changes[i]}
	}
	return out
}

func TestGenerate_HoldKeepsBalance(t *testing.T) {
	rows := Generate(points([]float64{0, 0.05, -0.2, 0.3}, model.Hold, model.Hold, model.Hold, model.Hold), 1000)

	require.Len(t, rows, 4)
	for _, r := range rows {
		assert.Equal(t, 1000.0, r.Balance)
		assert.Zero(t, r.Profit)
		assert.Zero(t, r.ProfitPct)
	}
}

func TestGenerate_BuyUsesPriorChange(t *testing.T) {
	rows := Generate(points([]float64{0.10, 0.02}, model.Hold, model.Buy), 1000)

	assert.InDelta(t, 1000.0, rows[0].Balance, 1e-9)
	assert.InDelta(t, 1100.0, rows[1].Balance, 1e-9)
	assert.InDelta(t, 100.0, rows[1].Profit, 1e-9)
	assert.InDelta(t, 10.0, rows[1].ProfitPct, 1e-9)
}

func TestGenerate_SellProfitsFromDecline(t *testing.T) {
	rows := Generate(points([]float64{0, -0.10, 0}, model.Hold, model.Hold, model.Sell), 1000)

	assert.InDelta(t, 1100.0, rows[2].Balance, 1e-9)
}

func TestGenerate_RowZeroIgnoresSignal(t *testing.T) {
	rows := Generate(points([]float64{0.5}, model.Buy), 250)

	require.Len(t, rows, 1)
	assert.Equal(t, 250.0, rows[0].Balance)
	assert.Equal(t, model.Buy, rows[0].Option)
}

func TestGenerate_Compounds(t *testing.T) {
	rows := Generate(points([]float64{0.10, 0.10, 0}, model.Hold, model.Buy, model.Buy), 1000)

	assert.InDelta(t, 1210.0, rows[2].Balance, 1e-9)
}

func TestGenerate_ProfitIdentities(t *testing.T) {
	changes := []float64{0.01, -0.03, 0.02, 0.05, -0.04, 0}
	rows := Generate(points(changes, model.Hold, model.Buy, model.Sell, model.Buy, model.Sell, model.Hold), 500)

	for _, r := range rows {
		assert.InDelta(t, r.Balance-500, r.Profit, 1e-9)
		assert.InDelta(t, r.Balance/500*100-100, r.ProfitPct, 1e-9)
	}
}

func TestGenerate_Empty(t *testing.T) {
	assert.Empty(t, Generate(nil, 1000))
}

func TestCountOperations(t *testing.T) {
	rows := Generate(points(make([]float64, 6), model.Buy, model.Sell, model.Hold, model.Buy, model.Buy, model.Sell), 1000)

	buys, sells := CountOperations(rows)
	assert.Equal(t, 3, buys)
	assert.Equal(t, 2, sells)
}
