package backtest

import (
	"context"
	"errors"
	"io"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"MarketBacktest/internal/collector"
	"MarketBacktest/internal/model"
	"MarketBacktest/internal/strategy"
)

// fixedModel emits a preset option per bar.
type fixedModel struct {
	options []model.Option
	points  []model.SignalPoint
}

func (m *fixedModel) Name() string { return "fixed" }

func (m *fixedModel) Update(prices *model.PriceSeries) error {
	m.points = make([]model.SignalPoint, 0, prices.Len())
	closes := prices.Closes()
	for i, b := range prices.Bars {
		var change float64
		if i > 0 {
			change = closes[i]/closes[i-1] - 1
		}
		var o model.Option
		if i < len(m.options) {
			o = m.options[i]
		}
		m.points = append(m.points, model.SignalPoint{Time: b.Time, Signal: o, Change: change})
	}
	return nil
}

func (m *fixedModel) Signals() []model.SignalPoint { return m.points }
func (m *fixedModel) Plot(io.Writer) error         { return nil }

type shortModel struct{ fixedModel }

func (m *shortModel) Signals() []model.SignalPoint { return m.points[1:] }

type memRecorder struct {
	logged []*model.Summary
	err    error
}

func (r *memRecorder) Log(_ context.Context, s *model.Summary) error {
	if r.err != nil {
		return r.err
	}
	r.logged = append(r.logged, s)
	return nil
}
func (r *memRecorder) Close() error { return nil }

type countingRenderer struct{ calls int }

func (r *countingRenderer) RenderProfit(context.Context, string, []model.GeneratedRow) error {
	r.calls++
	return nil
}

type namedAgent string

func (a namedAgent) Name() string { return string(a) }

func bars(closes ...float64) []model.OHLCV {
	start := time.Date(2019, 1, 2, 0, 0, 0, 0, time.UTC)
	out := make([]model.OHLCV, len(closes))
	for i, c := range closes {
		out[i] = model.OHLCV{Time: start.AddDate(0, 0, i), Open: c, High: c, Low: c, Close: c}
	}
	return out
}

func newRunner(t *testing.T, f collector.Fetcher, opts ...Option) *Runner {
	t.Helper()
	r, err := New(DefaultParams(), f, opts...)
	require.NoError(t, err)
	return r
}

func TestNew_Validation(t *testing.T) {
	p := DefaultParams()
	p.InitialBalance = 0
	_, err := New(p, &collector.MockFetcher{})
	assert.ErrorIs(t, err, ErrInvalidBalance)

	p = DefaultParams()
	p.Symbol = ""
	_, err = New(p, &collector.MockFetcher{})
	assert.ErrorIs(t, err, ErrEmptySymbol)

	for _, balance := range []float64{-1, math.NaN(), math.Inf(1)} {
		p = DefaultParams()
		p.InitialBalance = balance
		_, err = New(p, &collector.MockFetcher{})
		assert.ErrorIs(t, err, ErrInvalidBalance, "balance %v", balance)
	}

	_, err = New(DefaultParams(), nil)
	assert.Error(t, err)
}

func TestRunner_NameAndParameters(t *testing.T) {
	r := newRunner(t, &collector.MockFetcher{})

	assert.Equal(t, "Backtest", r.Name())
	params := r.Params().Parameters()
	assert.Equal(t, 1000.0, params["Initial balance"])
	assert.Equal(t, "AAPL", params["Symbol"])
	assert.Equal(t, "2019-01-01", params["Initial date"])
	assert.Equal(t, "2020-01-01", params["Final date"])
	assert.Nil(t, r.Data())
}

func TestGetData_DateErrors(t *testing.T) {
	tests := []struct {
		name    string
		initial string
		final   string
		want    error
	}{
		{"empty initial", "", "2020-01-01", ErrEmptyInitialDate},
		{"empty both", "", "", ErrEmptyInitialDate},
		{"empty final", "2019-01-01", "", ErrEmptyFinalDate},
		{"malformed initial", "2019/01/01", "2020-01-01", ErrInvalidDate},
		{"malformed final", "2019-01-01", "next year", ErrInvalidDate},
		{"reversed", "2020-01-01", "2019-01-01", ErrDateOrder},
		{"same day", "2019-01-01", "2019-01-01", ErrDateOrder},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := &collector.MockFetcher{}
			p := DefaultParams()
			p.InitialDate, p.FinalDate = tt.initial, tt.final
			r, err := New(p, f)
			require.NoError(t, err)

			_, err = r.GetData(context.Background())
			assert.ErrorIs(t, err, tt.want)
			assert.Zero(t, f.Calls)
			assert.Nil(t, r.Data())
		})
	}
}

func TestGetData_CachesSeries(t *testing.T) {
	f := &collector.MockFetcher{Price: 150}
	r := newRunner(t, f)

	series, err := r.GetData(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "AAPL", series.Symbol)
	assert.Positive(t, series.Len())
	assert.Same(t, series, r.Data())
	for _, b := range series.Bars {
		assert.False(t, b.Time.Before(series.Start))
		assert.True(t, b.Time.Before(series.End))
	}

	_, err = r.GetData(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, f.Calls)
}

func TestGetData_Errors(t *testing.T) {
	boom := errors.New("boom")
	_, err := newRunner(t, &collector.MockFetcher{Err: boom}).GetData(context.Background())
	assert.ErrorIs(t, err, boom)

	_, err = newRunner(t, &collector.MockFetcher{Bars: []model.OHLCV{}}).GetData(context.Background())
	assert.ErrorIs(t, err, ErrNoData)
}

func TestExecuteModel_HoldYieldsNoProfit(t *testing.T) {
	rec := &memRecorder{}
	r := newRunner(t, &collector.MockFetcher{Price: 157}, WithRecorder(rec))

	res, err := r.ExecuteModel(context.Background(), strategy.NewHold(), DefaultExecuteOptions())
	require.NoError(t, err)

	s := res.Summary
	assert.Equal(t, "hold", s.Model)
	assert.Equal(t, "2019-01-01", s.InitialDate)
	assert.Equal(t, "2020-01-01", s.FinalDate)
	assert.Equal(t, 1000.0, s.InitialBalance)
	assert.Equal(t, 1000.0, s.FinalBalance)
	assert.Zero(t, s.FinalProfit)
	assert.Zero(t, s.FinalProfitPct)
	assert.Zero(t, s.Total)
	assert.Len(t, s.History, r.Data().Len())
	require.Len(t, rec.logged, 1)
	assert.Same(t, s, rec.logged[0])
}

func TestExecuteModel_Summary(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	renderer := &countingRenderer{}
	f := &collector.MockFetcher{Bars: bars(100, 110, 99, 99, 120)}
	r := newRunner(t, f, WithRenderer(renderer), WithClock(func() time.Time { return now }))
	m := &fixedModel{options: []model.Option{model.Hold, model.Buy, model.Sell, model.Hold, model.Buy}}

	res, err := r.ExecuteModel(context.Background(), m, ExecuteOptions{})
	require.NoError(t, err)

	// Row t earns Signal[t] x Change[t-1]: 1000, 1000, 1000*(1-0.10), 900, 900.
	require.Len(t, res.Rows, 5)
	assert.InDelta(t, 1000.0, res.Rows[1].Balance, 1e-9)
	assert.InDelta(t, 900.0, res.Rows[2].Balance, 1e-9)
	assert.InDelta(t, 900.0, res.Rows[4].Balance, 1e-9)

	s := res.Summary
	assert.InDelta(t, 900.0, s.FinalBalance, 1e-9)
	assert.InDelta(t, -100.0, s.FinalProfit, 1e-9)
	assert.InDelta(t, -10.0, s.FinalProfitPct, 1e-9)
	assert.Equal(t, 2, s.TotalBuy)
	assert.Equal(t, 1, s.TotalSell)
	assert.Equal(t, s.TotalBuy+s.TotalSell, s.Total)
	assert.InDelta(t, 20.0, s.BuyAndHoldPct, 1e-9)
	assert.Equal(t, now, s.ExecutedAt)
	assert.NotEmpty(t, s.RunID)
	assert.InDelta(t, 10.0, s.MaxDrawdownPct, 1e-9)
	assert.Equal(t, 1, renderer.calls)

	row, ok := s.History["2019-01-03"]
	require.True(t, ok)
	assert.Equal(t, model.Buy, row.Options)
	assert.InDelta(t, 1000.0, row.Balance, 1e-9)
}

func TestExecuteModel_ReusesCachedData(t *testing.T) {
	f := &collector.MockFetcher{}
	r := newRunner(t, f)

	_, err := r.GetData(context.Background())
	require.NoError(t, err)
	_, err = r.ExecuteModel(context.Background(), strategy.NewHold(), ExecuteOptions{})
	require.NoError(t, err)
	_, err = r.ExecuteModel(context.Background(), strategy.NewBuyAndHold(), ExecuteOptions{})
	require.NoError(t, err)
	assert.Equal(t, 1, f.Calls)
}

func TestExecuteModel_SaveLogDisabled(t *testing.T) {
	rec := &memRecorder{}
	r := newRunner(t, &collector.MockFetcher{}, WithRecorder(rec))

	_, err := r.ExecuteModel(context.Background(), strategy.NewHold(), ExecuteOptions{SaveLog: false})
	require.NoError(t, err)
	assert.Empty(t, rec.logged)
}

func TestExecuteModel_RecorderError(t *testing.T) {
	boom := errors.New("disk full")
	r := newRunner(t, &collector.MockFetcher{}, WithRecorder(&memRecorder{err: boom}))

	_, err := r.ExecuteModel(context.Background(), strategy.NewHold(), DefaultExecuteOptions())
	assert.ErrorIs(t, err, boom)
}

func TestExecuteModel_MisalignedSignals(t *testing.T) {
	r := newRunner(t, &collector.MockFetcher{Bars: bars(1, 2, 3)})

	_, err := r.ExecuteModel(context.Background(), &shortModel{}, ExecuteOptions{})
	assert.ErrorIs(t, err, ErrMisalignedSignals)

	_, err = r.ExecuteModel(context.Background(), &fixedModel{options: []model.Option{0, 3, 0}}, ExecuteOptions{})
	assert.ErrorIs(t, err, ErrMisalignedSignals)
}

func TestExecuteModel_PlotSignals(t *testing.T) {
	dir := t.TempDir()
	r := newRunner(t, &collector.MockFetcher{}, WithSignalDir(dir))

	_, err := r.ExecuteModel(context.Background(), strategy.NewSMACross(5, 20), ExecuteOptions{PlotSignals: true})
	require.NoError(t, err)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, ".png", filepath.Ext(entries[0].Name()))
}

func TestExecuteAgent_Unsupported(t *testing.T) {
	f := &collector.MockFetcher{}
	r := newRunner(t, f)

	err := r.ExecuteAgent(context.Background(), namedAgent("dqn"))
	assert.ErrorIs(t, err, ErrAgentUnsupported)
	assert.Zero(t, f.Calls)

	err = r.ExecuteAgent(context.Background(), nil)
	assert.ErrorIs(t, err, ErrAgentUnsupported)
}
