package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"go.uber.org/zap"

	"MarketBacktest/internal/backtest"
	"MarketBacktest/internal/chart"
	"MarketBacktest/internal/collector"
	"MarketBacktest/internal/config"
	"MarketBacktest/internal/logger"
	"MarketBacktest/internal/notifier"
	"MarketBacktest/internal/recorder"
	"MarketBacktest/internal/scheduler"
	"MarketBacktest/internal/strategy"
)

func usage() {
	fmt.Fprintf(os.Stderr, "Usage: backtest <command> [options]\n\n")
	fmt.Fprintf(os.Stderr, "Commands:\n")
	fmt.Fprintf(os.Stderr, "  run       Backtest one model over a date range\n")
	fmt.Fprintf(os.Stderr, "  models    List available models\n")
	fmt.Fprintf(os.Stderr, "  daemon    Run scheduled backtests and answer Telegram commands\n")
	fmt.Fprintf(os.Stderr, "\nConfig is read from configs/config.yaml or $CONFIG_PATH.\n")
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	var err error
	switch os.Args[1] {
	case "run":
		err = runCmd(os.Args[2:])
	case "models":
		for _, name := range strategy.Default().List() {
			fmt.Println(name)
		}
	case "daemon":
		err = daemonCmd()
	case "-h", "--help", "help":
		usage()
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", os.Args[1])
		usage()
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "backtest: %v\n", err)
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, *zap.Logger, error) {
	cfgPath := "configs/config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		cfgPath = v
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	log, err := logger.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return nil, nil, err
	}
	return cfg, log, nil
}

func runCmd(args []string) error {
	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}
	defer log.Sync()

	fs := flag.NewFlagSet("run", flag.ExitOnError)
	symbol := fs.String("symbol", cfg.Backtest.Symbol, "ticker symbol")
	from := fs.String("from", cfg.Backtest.InitialDate, "initial date (YYYY-MM-DD, inclusive)")
	to := fs.String("to", cfg.Backtest.FinalDate, "final date (YYYY-MM-DD, exclusive)")
	balance := fs.Float64("balance", cfg.Backtest.InitialBalance, "initial balance")
	modelName := fs.String("model", cfg.Backtest.Model, "model name, see: backtest models")
	provider := fs.String("provider", cfg.DataSource.Provider, "price provider: yahoo, rest, alpaca or mock")
	plotSignals := fs.Bool("plot-signals", false, "also write the model's signal chart")
	noLog := fs.Bool("no-log", false, "do not record the run summary")
	noChart := fs.Bool("no-chart", false, "skip the profit chart")
	fs.Parse(args)

	cfg.DataSource.Provider = *provider
	cfg.Backtest.InitialBalance = *balance
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config validation: %w", err)
	}

	m, ok := strategy.Default().Get(*modelName)
	if !ok {
		return fmt.Errorf("unknown model %q", *modelName)
	}

	fetcher := buildFetcher(cfg, log)
	rec, _ := buildRecorder(cfg, log)
	defer rec.Close()

	var renderer chart.Renderer = chart.NewPNGRenderer(cfg.Chart.Dir, cfg.Chart.Viewer, log)
	if *noChart {
		renderer = chart.Nop{}
	}

	runner, err := backtest.New(backtest.Params{
		InitialBalance: *balance,
		Symbol:         *symbol,
		InitialDate:    *from,
		FinalDate:      *to,
	}, fetcher,
		backtest.WithRecorder(rec),
		backtest.WithRenderer(renderer),
		backtest.WithSignalDir(cfg.Chart.Dir),
		backtest.WithLogger(log),
	)
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	res, err := runner.ExecuteModel(ctx, m, backtest.ExecuteOptions{
		SaveLog:     !*noLog,
		PlotSignals: *plotSignals,
	})
	if err != nil {
		return err
	}
	return notifier.NewConsole().NotifySummary(ctx, res.Summary)
}

func daemonCmd() error {
	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}
	defer log.Sync()
	log.Info("MarketBacktest daemon starting")

	if err := cfg.ValidateDaemon(); err != nil {
		return fmt.Errorf("config validation: %w", err)
	}

	fetcher := buildFetcher(cfg, log)
	log.Info("data source", zap.String("fetcher", fetcher.Name()))

	rec, history := buildRecorder(cfg, log)
	defer rec.Close()

	tn := notifier.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Proxy, log)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	opts := scheduler.Options{
		Jobs:           cfg.Schedule.Jobs,
		LookbackDays:   cfg.Schedule.LookbackDays,
		Concurrency:    cfg.Schedule.Concurrency,
		InitialBalance: cfg.Backtest.InitialBalance,
		Fetcher:        fetcher,
		Models:         strategy.Default(),
		RunnerOptions: []backtest.Option{
			backtest.WithRecorder(rec),
			backtest.WithRenderer(chart.NewPNGRenderer(cfg.Chart.Dir, nil, log)),
			backtest.WithLogger(log),
		},
		Messenger: tn,
		Log:       log,
	}
	if history != nil {
		opts.History = history
	}
	sched, err := scheduler.New(opts)
	if err != nil {
		return err
	}
	if err := sched.Register(ctx, cfg.Schedule.Cron); err != nil {
		return err
	}
	sched.Start()
	defer sched.Stop()

	go tn.StartPolling(ctx, sched.HandleCommand)
	log.Info("telegram polling started")

	if os.Getenv("RUN_ON_START") == "true" {
		log.Info("RUN_ON_START enabled, running backtests now")
		go func() {
			if err := sched.RunNow(ctx); err != nil {
				log.Error("startup backtests failed", zap.Error(err))
			}
		}()
	}

	log.Info("MarketBacktest is running, press Ctrl+C to stop", zap.String("cron", cfg.Schedule.Cron))
	<-ctx.Done()
	log.Info("shutdown signal received, stopping")
	return nil
}

func buildFetcher(cfg *config.Config, log *zap.Logger) collector.Fetcher {
	var fetcher collector.Fetcher
	switch cfg.DataSource.Provider {
	case "rest":
		fetcher = collector.NewRESTFetcher(cfg.DataSource.BaseURL, cfg.DataSource.APIKey, cfg.Proxy)
	case "alpaca":
		fetcher = collector.NewAlpacaFetcher(cfg.DataSource.APIKey, cfg.DataSource.APISecret,
			cfg.DataSource.BaseURL, cfg.DataSource.Feed)
	case "mock":
		fetcher = &collector.MockFetcher{Price: 100}
	default:
		fetcher = collector.NewYahooFetcher(cfg.Proxy, log)
	}
	if cfg.DataSource.CacheDir != "" {
		fetcher = collector.NewCachedFetcher(fetcher, cfg.DataSource.CacheDir, log)
	}
	return fetcher
}

// buildRecorder returns the configured sinks and, when SQLite is available,
// the store backing /last.
func buildRecorder(cfg *config.Config, log *zap.Logger) (recorder.Recorder, *recorder.SQLiteRecorder) {
	var sinks recorder.MultiRecorder
	var sqlite *recorder.SQLiteRecorder

	if cfg.Database.SQLitePath != "" {
		sr, err := openSQLite(cfg.Database.SQLitePath, log)
		if err != nil {
			log.Warn("init sqlite recorder failed, skipping", zap.Error(err))
		} else {
			sqlite = sr
			sinks = append(sinks, sr)
		}
	}
	if cfg.Database.JSONLPath != "" {
		jr, err := recorder.NewJSONLRecorder(cfg.Database.JSONLPath)
		if err != nil {
			log.Warn("init jsonl recorder failed, skipping", zap.Error(err))
		} else {
			sinks = append(sinks, jr)
		}
	}
	if len(sinks) == 0 {
		return recorder.NewNoopRecorder(), nil
	}
	return sinks, sqlite
}

func openSQLite(path string, log *zap.Logger) (*recorder.SQLiteRecorder, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create database dir: %w", err)
		}
	}
	return recorder.NewSQLiteRecorder(path, log)
}
