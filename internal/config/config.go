package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Job is one (symbol, model) pair run by the scheduler.
type Job struct {
	Symbol string `yaml:"symbol"`
	Model  string `yaml:"model"`
}

// Config holds all application configuration.
type Config struct {
	Backtest struct {
		Symbol         string  `yaml:"symbol"`
		InitialDate    string  `yaml:"initial_date"`
		FinalDate      string  `yaml:"final_date"`
		InitialBalance float64 `yaml:"initial_balance"`
		Model          string  `yaml:"model"`
	} `yaml:"backtest"`
	DataSource struct {
		Provider  string `yaml:"provider"` // yahoo, rest, alpaca or mock
		BaseURL   string `yaml:"base_url"`
		APIKey    string `yaml:"api_key"`
		APISecret string `yaml:"api_secret"`
		Feed      string `yaml:"feed"`
		CacheDir  string `yaml:"cache_dir"`
	} `yaml:"data_source"`
	Chart struct {
		Dir    string   `yaml:"dir"`
		Viewer []string `yaml:"viewer"`
	} `yaml:"chart"`
	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"` // json or console
	} `yaml:"log"`
	Database struct {
		SQLitePath string `yaml:"sqlite_path"`
		JSONLPath  string `yaml:"jsonl_path"`
	} `yaml:"database"`
	Telegram struct {
		BotToken string `yaml:"bot_token"`
		ChatID   string `yaml:"chat_id"`
	} `yaml:"telegram"`
	Schedule struct {
		Cron         string `yaml:"cron"`
		LookbackDays int    `yaml:"lookback_days"`
		Concurrency  int    `yaml:"concurrency"`
		Jobs         []Job  `yaml:"jobs"`
	} `yaml:"schedule"`
	Proxy string `yaml:"proxy"`
}

// Load reads .env into the environment, then config from a YAML file, then
// applies environment variable overrides and defaults. A missing file is not
// an error.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	// Environment variable overrides
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		cfg.Telegram.BotToken = v
	}
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		cfg.Telegram.ChatID = v
	}
	if v := os.Getenv("DATA_PROVIDER"); v != "" {
		cfg.DataSource.Provider = v
	}
	if v := os.Getenv("DATA_BASE_URL"); v != "" {
		cfg.DataSource.BaseURL = v
	}
	if v := os.Getenv("DATA_API_KEY"); v != "" {
		cfg.DataSource.APIKey = v
	}
	if v := os.Getenv("DATA_API_SECRET"); v != "" {
		cfg.DataSource.APISecret = v
	}
	if v := os.Getenv("HTTPS_PROXY"); v != "" {
		cfg.Proxy = v
	}
	if v := os.Getenv("INITIAL_BALANCE"); v != "" {
		if balance, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Backtest.InitialBalance = balance
		}
	}
	if v := os.Getenv("BACKTEST_CRON"); v != "" {
		cfg.Schedule.Cron = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		cfg.Database.SQLitePath = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}

	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Backtest.Symbol == "" {
		c.Backtest.Symbol = "AAPL"
	}
	if c.Backtest.InitialDate == "" {
		c.Backtest.InitialDate = "2019-01-01"
	}
	if c.Backtest.FinalDate == "" {
		c.Backtest.FinalDate = "2020-01-01"
	}
	if c.Backtest.InitialBalance == 0 {
		c.Backtest.InitialBalance = 1000
	}
	if c.Backtest.Model == "" {
		c.Backtest.Model = "hold"
	}
	if c.DataSource.Provider == "" {
		c.DataSource.Provider = "yahoo"
	}
	c.DataSource.Provider = strings.ToLower(c.DataSource.Provider)
	if c.Chart.Dir == "" {
		c.Chart.Dir = "charts"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "console"
	}
	if c.Database.SQLitePath == "" {
		c.Database.SQLitePath = "data/backtest.db"
	}
	if c.Schedule.Cron == "" {
		c.Schedule.Cron = "0 30 22 * * 1-5"
	}
	if c.Schedule.LookbackDays == 0 {
		c.Schedule.LookbackDays = 365
	}
	if c.Schedule.Concurrency == 0 {
		c.Schedule.Concurrency = 4
	}
}

// Validate checks the settings every command needs.
func (c *Config) Validate() error {
	var errs []error
	if c.Backtest.InitialBalance <= 0 {
		errs = append(errs, errors.New("backtest.initial_balance must be positive"))
	}
	switch c.DataSource.Provider {
	case "yahoo", "mock":
	case "rest":
		if c.DataSource.BaseURL == "" {
			errs = append(errs, errors.New("data_source.base_url is required for the rest provider"))
		}
	case "alpaca":
		if c.DataSource.APIKey == "" || c.DataSource.APISecret == "" {
			errs = append(errs, errors.New("data_source.api_key and api_secret are required for the alpaca provider"))
		}
	default:
		errs = append(errs, fmt.Errorf("data_source.provider %q is not supported", c.DataSource.Provider))
	}
	switch c.Log.Format {
	case "json", "console":
	default:
		errs = append(errs, fmt.Errorf("log.format %q must be json or console", c.Log.Format))
	}
	return errors.Join(errs...)
}

// ValidateDaemon checks the additional settings the scheduler needs.
func (c *Config) ValidateDaemon() error {
	var errs []error
	if c.Telegram.BotToken == "" {
		errs = append(errs, errors.New("telegram.bot_token is required"))
	}
	if c.Telegram.ChatID == "" {
		errs = append(errs, errors.New("telegram.chat_id is required"))
	}
	if len(c.Schedule.Jobs) == 0 {
		errs = append(errs, errors.New("schedule.jobs must list at least one job"))
	}
	if c.Schedule.LookbackDays < 0 {
		errs = append(errs, errors.New("schedule.lookback_days must be positive"))
	}
	for i, j := range c.Schedule.Jobs {
		if j.Symbol == "" || j.Model == "" {
			errs = append(errs, fmt.Errorf("schedule.jobs[%d] needs symbol and model", i))
		}
	}
	return errors.Join(c.Validate(), errors.Join(errs...))
}
