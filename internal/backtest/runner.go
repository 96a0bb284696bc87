// Package backtest runs a trading model over historical prices and reports
// the resulting balance curve.
package backtest

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"MarketBacktest/internal/calculator"
	"MarketBacktest/internal/chart"
	"MarketBacktest/internal/collector"
	"MarketBacktest/internal/model"
	"MarketBacktest/internal/recorder"
	"MarketBacktest/internal/strategy"
)

var (
	ErrEmptyInitialDate  = errors.New("initial date can't be an empty value")
	ErrEmptyFinalDate    = errors.New("final date can't be an empty value")
	ErrInvalidDate       = errors.New("invalid date")
	ErrDateOrder         = errors.New("final date must be after initial date")
	ErrInvalidBalance    = errors.New("initial balance must be positive")
	ErrEmptySymbol       = errors.New("symbol can't be an empty value")
	ErrNoData            = errors.New("no price data in range")
	ErrMisalignedSignals = errors.New("signal series not aligned with prices")
	ErrAgentUnsupported  = errors.New("agent backtests are not supported")
)

// Agent is a decision-making collaborator that, unlike a Model, would act
// bar by bar. Runners do not support agents yet.
type Agent interface {
	Name() string
}

// ExecuteOptions control the side effects of ExecuteModel.
type ExecuteOptions struct {
	SaveLog     bool
	PlotSignals bool
}

// DefaultExecuteOptions saves the log and skips the model's signal plot.
func DefaultExecuteOptions() ExecuteOptions {
	return ExecuteOptions{SaveLog: true}
}

// Result is the outcome of ExecuteModel.
type Result struct {
	Summary *model.Summary
	Rows    []model.GeneratedRow
}

// Runner backtests models against one symbol and date range.
// A Runner is not safe for concurrent use.
type Runner struct {
	params    Params
	fetcher   collector.Fetcher
	recorder  recorder.Recorder
	renderer  chart.Renderer
	signalDir string
	log       *zap.Logger
	now       func() time.Time

	// data is the price series from the last GetData, nil until fetched.
	data *model.PriceSeries
}

// Option configures a Runner.
type Option func(*Runner)

// WithRecorder sets the log sink. Defaults to a no-op recorder.
func WithRecorder(rec recorder.Recorder) Option {
	return func(r *Runner) { r.recorder = rec }
}

// WithRenderer sets the profit chart renderer. Defaults to chart.Nop.
func WithRenderer(cr chart.Renderer) Option {
	return func(r *Runner) { r.renderer = cr }
}

// WithSignalDir sets where model signal charts are written.
func WithSignalDir(dir string) Option {
	return func(r *Runner) { r.signalDir = dir }
}

// WithLogger sets the logger. Defaults to zap.NewNop.
func WithLogger(log *zap.Logger) Option {
	return func(r *Runner) { r.log = log }
}

// WithClock overrides the time source used for ExecutedAt.
func WithClock(now func() time.Time) Option {
	return func(r *Runner) { r.now = now }
}

// New creates a Runner. Dates are validated by GetData, not here.
func New(params Params, fetcher collector.Fetcher, opts ...Option) (*Runner, error) {
	if err := params.validate(); err != nil {
		return nil, err
	}
	if fetcher == nil {
		return nil, errors.New("backtest: nil fetcher")
	}
	r := &Runner{
		params:    params,
		fetcher:   fetcher,
		recorder:  recorder.NewNoopRecorder(),
		renderer:  chart.Nop{},
		signalDir: "charts",
		log:       zap.NewNop(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Name returns the tool name.
func (r *Runner) Name() string { return toolName }

// Params returns the run parameters.
func (r *Runner) Params() Params { return r.params }

// Data returns the cached price series, or nil before the first GetData.
func (r *Runner) Data() *model.PriceSeries { return r.data }

// GetData fetches the price series for [InitialDate, FinalDate) and caches it
// on the runner. Every call refetches.
func (r *Runner) GetData(ctx context.Context) (*model.PriceSeries, error) {
	switch {
	case r.params.InitialDate == "":
		return nil, ErrEmptyInitialDate
	case r.params.FinalDate == "":
		return nil, ErrEmptyFinalDate
	}
	start, err := time.Parse(model.DateLayout, r.params.InitialDate)
	if err != nil {
		return nil, fmt.Errorf("%w: initial date %q", ErrInvalidDate, r.params.InitialDate)
	}
	end, err := time.Parse(model.DateLayout, r.params.FinalDate)
	if err != nil {
		return nil, fmt.Errorf("%w: final date %q", ErrInvalidDate, r.params.FinalDate)
	}
	if !end.After(start) {
		return nil, fmt.Errorf("%w: %s >= %s", ErrDateOrder, r.params.InitialDate, r.params.FinalDate)
	}

	bars, err := r.fetcher.FetchRange(ctx, r.params.Symbol, start, end)
	if err != nil {
		return nil, fmt.Errorf("fetch %s from %s: %w", r.params.Symbol, r.fetcher.Name(), err)
	}
	if len(bars) == 0 {
		return nil, fmt.Errorf("%w: %s %s..%s", ErrNoData, r.params.Symbol, r.params.InitialDate, r.params.FinalDate)
	}

	r.data = &model.PriceSeries{
		Symbol:    r.params.Symbol,
		Start:     start,
		End:       end,
		Bars:      bars,
		FetchedAt: r.now(),
	}
	r.log.Debug("price series fetched",
		zap.String("symbol", r.params.Symbol),
		zap.String("source", r.fetcher.Name()),
		zap.Int("bars", len(bars)),
	)
	return r.data, nil
}

// ExecuteModel backtests m over the runner's price series, reusing the cached
// series when present. It renders the profit chart, optionally the model's
// own signal chart, and hands the summary to the recorder when SaveLog is set.
func (r *Runner) ExecuteModel(ctx context.Context, m strategy.Model, opts ExecuteOptions) (*Result, error) {
	r.log.Info("running backtest", zap.String("model", m.Name()), zap.String("symbol", r.params.Symbol))

	prices := r.data
	if prices == nil {
		var err error
		if prices, err = r.GetData(ctx); err != nil {
			return nil, err
		}
	}

	if err := m.Update(prices); err != nil {
		return nil, fmt.Errorf("update model %s: %w", m.Name(), err)
	}
	points := m.Signals()
	if len(points) != prices.Len() {
		return nil, fmt.Errorf("%w: model %s returned %d signals for %d bars",
			ErrMisalignedSignals, m.Name(), len(points), prices.Len())
	}
	for i, p := range points {
		if !p.Signal.Valid() {
			return nil, fmt.Errorf("%w: invalid signal %d at row %d", ErrMisalignedSignals, p.Signal, i)
		}
	}

	rows := Generate(points, r.params.InitialBalance)
	title := fmt.Sprintf("%s %s", r.params.Symbol, m.Name())
	if err := r.renderer.RenderProfit(ctx, title, rows); err != nil {
		return nil, fmt.Errorf("render profit chart: %w", err)
	}

	summary := r.summarize(m.Name(), prices, rows)

	if opts.PlotSignals {
		if err := r.plotSignals(m, title); err != nil {
			return nil, err
		}
	}

	if opts.SaveLog {
		r.log.Info("saving log", zap.String("run_id", summary.RunID))
		if err := r.recorder.Log(ctx, summary); err != nil {
			return nil, fmt.Errorf("save log: %w", err)
		}
	}

	return &Result{Summary: summary, Rows: rows}, nil
}

// ExecuteAgent is not supported and returns ErrAgentUnsupported without
// fetching data.
func (r *Runner) ExecuteAgent(_ context.Context, agent Agent) error {
	if agent == nil {
		return ErrAgentUnsupported
	}
	return fmt.Errorf("%w: %s", ErrAgentUnsupported, agent.Name())
}

func (r *Runner) summarize(modelName string, prices *model.PriceSeries, rows []model.GeneratedRow) *model.Summary {
	last := rows[len(rows)-1]
	buys, sells := CountOperations(rows)

	balances := make([]float64, len(rows))
	history := make(map[string]model.HistoryRow, len(rows))
	for i, row := range rows {
		balances[i] = row.Balance
		history[row.Time.Format(model.DateLayout)] = model.HistoryRow{
			Balance:   row.Balance,
			Profit:    row.Profit,
			ProfitPct: row.ProfitPct,
			Options:   row.Option,
		}
	}

	var buyHold float64
	if first := prices.Bars[0].Close; first != 0 {
		buyHold = (prices.Bars[len(prices.Bars)-1].Close/first - 1) * 100
	}

	return &model.Summary{
		RunID:          uuid.NewString(),
		Symbol:         r.params.Symbol,
		Model:          modelName,
		InitialDate:    r.params.InitialDate,
		FinalDate:      r.params.FinalDate,
		InitialBalance: r.params.InitialBalance,
		FinalBalance:   last.Balance,
		FinalProfit:    last.Profit,
		FinalProfitPct: last.ProfitPct,
		TotalBuy:       buys,
		TotalSell:      sells,
		Total:          buys + sells,
		MaxDrawdownPct: calculator.MaxDrawdown(balances),
		SharpeRatio:    calculator.SharpeRatio(calculator.PeriodReturns(balances)),
		BuyAndHoldPct:  buyHold,
		ExecutedAt:     r.now(),
		History:        history,
	}
}

func (r *Runner) plotSignals(m strategy.Model, title string) error {
	if err := os.MkdirAll(r.signalDir, 0o755); err != nil {
		return fmt.Errorf("create signal chart dir: %w", err)
	}
	path := filepath.Join(r.signalDir, chart.FileName(title, "signals"))
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create signal chart: %w", err)
	}
	if err := m.Plot(f); err != nil {
		f.Close()
		return fmt.Errorf("plot %s signals: %w", m.Name(), err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close signal chart: %w", err)
	}
	r.log.Info("signal chart written", zap.String("path", path))
	return nil
}
