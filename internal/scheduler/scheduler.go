package scheduler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"MarketBacktest/internal/backtest"
	"MarketBacktest/internal/collector"
	"MarketBacktest/internal/config"
	"MarketBacktest/internal/model"
	"MarketBacktest/internal/notifier"
	"MarketBacktest/internal/recorder"
	"MarketBacktest/internal/strategy"
)

// Messenger delivers summaries and free-form alerts.
type Messenger interface {
	notifier.Notifier
	SendWithRetry(ctx context.Context, text string, maxRetries int) error
}

// RunHistory lists previously recorded runs.
type RunHistory interface {
	RecentRuns(ctx context.Context, n int) ([]recorder.RunRecord, error)
}

// Options configure a Scheduler.
type Options struct {
	Jobs           []config.Job
	LookbackDays   int
	Concurrency    int
	InitialBalance float64

	Fetcher collector.Fetcher
	Models  *strategy.Registry
	// RunnerOptions are applied to every runner, e.g. its recorder.
	RunnerOptions []backtest.Option
	Messenger     Messenger
	History       RunHistory // optional, backs /last
	Log           *zap.Logger
}

// Scheduler runs the configured (symbol, model) backtests on a cron schedule
// over a window ending today.
type Scheduler struct {
	cron *cron.Cron
	opts Options
	log  *zap.Logger
	now  func() time.Time
}

// New creates a Scheduler.
func New(opts Options) (*Scheduler, error) {
	if opts.Fetcher == nil {
		return nil, errors.New("scheduler: fetcher is required")
	}
	if opts.Models == nil {
		opts.Models = strategy.Default()
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 1
	}
	if opts.LookbackDays <= 0 {
		opts.LookbackDays = 365
	}
	if opts.InitialBalance <= 0 {
		opts.InitialBalance = backtest.DefaultInitialBalance
	}
	log := opts.Log
	if log == nil {
		log = zap.NewNop()
	}
	for _, j := range opts.Jobs {
		if _, ok := opts.Models.Get(j.Model); !ok {
			return nil, fmt.Errorf("scheduler: job %s uses unknown model %q", j.Symbol, j.Model)
		}
	}
	return &Scheduler{
		cron: cron.New(cron.WithSeconds()),
		opts: opts,
		log:  log,
		now:  time.Now,
	}, nil
}

// Register adds the backtest task under spec, a six-field cron expression.
func (s *Scheduler) Register(ctx context.Context, spec string) error {
	if _, err := s.cron.AddFunc(spec, func() {
		if err := s.RunNow(ctx); err != nil {
			s.log.Error("scheduled backtests failed", zap.Error(err))
		}
	}); err != nil {
		return fmt.Errorf("register backtest task: %w", err)
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.Info("scheduler started", zap.Int("jobs", len(s.opts.Jobs)))
}

// Stop stops the cron scheduler and waits for a running task to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.log.Info("scheduler stopped")
}

// window returns the [from, to) dates of a run ending today.
func (s *Scheduler) window() (from, to string) {
	today := s.now().UTC()
	return today.AddDate(0, 0, -s.opts.LookbackDays).Format(model.DateLayout),
		today.AddDate(0, 0, 1).Format(model.DateLayout)
}

// RunNow runs every job, at most Concurrency at a time. A failing job does
// not stop the others; their errors are joined.
func (s *Scheduler) RunNow(ctx context.Context) error {
	s.log.Info("running scheduled backtests", zap.Int("jobs", len(s.opts.Jobs)))

	var (
		mu   sync.Mutex
		errs []error
	)
	var g errgroup.Group
	g.SetLimit(s.opts.Concurrency)
	for _, job := range s.opts.Jobs {
		g.Go(func() error {
			if _, err := s.RunJob(ctx, job); err != nil {
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
			}
			return nil
		})
	}
	g.Wait()
	return errors.Join(errs...)
}

// RunJob backtests one (symbol, model) pair and delivers its summary.
func (s *Scheduler) RunJob(ctx context.Context, job config.Job) (*model.Summary, error) {
	log := s.log.With(zap.String("symbol", job.Symbol), zap.String("model", job.Model))

	m, ok := s.opts.Models.Get(job.Model)
	if !ok {
		return nil, fmt.Errorf("%s/%s: unknown model", job.Symbol, job.Model)
	}
	from, to := s.window()
	params := backtest.Params{
		InitialBalance: s.opts.InitialBalance,
		Symbol:         strings.ToUpper(job.Symbol),
		InitialDate:    from,
		FinalDate:      to,
	}
	runner, err := backtest.New(params, s.opts.Fetcher, s.opts.RunnerOptions...)
	if err != nil {
		return nil, fmt.Errorf("%s/%s: %w", job.Symbol, job.Model, err)
	}

	res, err := runner.ExecuteModel(ctx, m, backtest.DefaultExecuteOptions())
	if err != nil {
		log.Error("backtest failed", zap.Error(err))
		s.alert(ctx, fmt.Sprintf("❌ Backtest %s/%s failed: %v", job.Symbol, job.Model, err))
		return nil, fmt.Errorf("%s/%s: %w", job.Symbol, job.Model, err)
	}
	log.Info("backtest finished",
		zap.String("run_id", res.Summary.RunID),
		zap.Float64("profit_pct", res.Summary.FinalProfitPct),
		zap.Int("operations", res.Summary.Total),
	)

	if s.opts.Messenger != nil {
		if err := s.opts.Messenger.NotifySummary(ctx, res.Summary); err != nil {
			log.Error("send summary", zap.Error(err))
		}
	}
	return res.Summary, nil
}

const helpText = "Commands:\n" +
	"• /run: run every scheduled backtest\n" +
	"• /run SYMBOL MODEL: run one backtest now\n" +
	"• /models: list models\n" +
	"• /last: show recent runs"

// HandleCommand processes a user command and returns a reply.
func (s *Scheduler) HandleCommand(ctx context.Context, command string) string {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return helpText
	}
	switch fields[0] {
	case "/run":
		switch len(fields) {
		case 1:
			if err := s.RunNow(ctx); err != nil {
				return fmt.Sprintf("Some backtests failed: %v", err)
			}
			return ""
		case 3:
			if _, ok := s.opts.Models.Get(fields[2]); !ok {
				return fmt.Sprintf("Unknown model %q. %s", fields[2], notifier.FormatModels(s.opts.Models.List()))
			}
			// Failures are alerted by RunJob.
			s.RunJob(ctx, config.Job{Symbol: fields[1], Model: fields[2]})
			return ""
		default:
			return "Usage: /run [SYMBOL MODEL]"
		}
	case "/models":
		return notifier.FormatModels(s.opts.Models.List())
	case "/last":
		if s.opts.History == nil {
			return "Run history is not enabled."
		}
		runs, err := s.opts.History.RecentRuns(ctx, 5)
		if err != nil {
			s.log.Error("load recent runs", zap.Error(err))
			return "Could not load recent runs."
		}
		return notifier.FormatRuns(runs)
	default:
		return helpText
	}
}

func (s *Scheduler) alert(ctx context.Context, text string) {
	if s.opts.Messenger == nil {
		return
	}
	if err := s.opts.Messenger.SendWithRetry(ctx, text, 3); err != nil {
		s.log.Error("send notification", zap.Error(err))
	}
}
