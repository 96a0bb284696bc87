package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearEnv blanks every override so ambient variables do not leak into a test.
func clearEnv(t *testing.T) {
	for _, k := range []string{
		"TELEGRAM_BOT_TOKEN", "TELEGRAM_CHAT_ID", "DATA_PROVIDER", "DATA_BASE_URL",
		"DATA_API_KEY", "DATA_API_SECRET", "INITIAL_BALANCE", "BACKTEST_CRON",
		"SQLITE_PATH", "LOG_LEVEL",
	} {
		t.Setenv(k, "")
	}
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "AAPL", cfg.Backtest.Symbol)
	assert.Equal(t, "2019-01-01", cfg.Backtest.InitialDate)
	assert.Equal(t, "2020-01-01", cfg.Backtest.FinalDate)
	assert.Equal(t, 1000.0, cfg.Backtest.InitialBalance)
	assert.Equal(t, "hold", cfg.Backtest.Model)
	assert.Equal(t, "yahoo", cfg.DataSource.Provider)
	assert.Equal(t, "charts", cfg.Chart.Dir)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "0 30 22 * * 1-5", cfg.Schedule.Cron)
	assert.Equal(t, 365, cfg.Schedule.LookbackDays)
	assert.Equal(t, 4, cfg.Schedule.Concurrency)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_YAML(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
backtest:
  symbol: MSFT
  initial_balance: 2500
  model: sma-cross
data_source:
  provider: REST
  base_url: http://bars.local
chart:
  viewer: ["xdg-open"]
schedule:
  jobs:
    - symbol: AAPL
      model: rsi
    - symbol: MSFT
      model: factor
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "MSFT", cfg.Backtest.Symbol)
	assert.Equal(t, 2500.0, cfg.Backtest.InitialBalance)
	assert.Equal(t, "rest", cfg.DataSource.Provider)
	assert.Equal(t, []string{"xdg-open"}, cfg.Chart.Viewer)
	require.Len(t, cfg.Schedule.Jobs, 2)
	assert.Equal(t, Job{Symbol: "MSFT", Model: "factor"}, cfg.Schedule.Jobs[1])
	assert.NoError(t, cfg.Validate())
}

func TestLoad_EnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("TELEGRAM_BOT_TOKEN", "tok")
	t.Setenv("TELEGRAM_CHAT_ID", "42")
	t.Setenv("DATA_PROVIDER", "alpaca")
	t.Setenv("DATA_API_KEY", "key")
	t.Setenv("DATA_API_SECRET", "secret")
	t.Setenv("INITIAL_BALANCE", "5000")
	t.Setenv("SQLITE_PATH", "/tmp/x.db")

	cfg, err := Load(writeConfig(t, "telegram:\n  bot_token: from-file\n"))
	require.NoError(t, err)

	assert.Equal(t, "tok", cfg.Telegram.BotToken)
	assert.Equal(t, "42", cfg.Telegram.ChatID)
	assert.Equal(t, "alpaca", cfg.DataSource.Provider)
	assert.Equal(t, 5000.0, cfg.Backtest.InitialBalance)
	assert.Equal(t, "/tmp/x.db", cfg.Database.SQLitePath)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_InvalidYAML(t *testing.T) {
	_, err := Load(writeConfig(t, "backtest: [unclosed"))
	assert.ErrorContains(t, err, "parse config")
}

func TestValidate(t *testing.T) {
	clearEnv(t)
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)

	cfg.DataSource.Provider = "rest"
	assert.ErrorContains(t, cfg.Validate(), "base_url")

	cfg.DataSource.Provider = "alpaca"
	assert.ErrorContains(t, cfg.Validate(), "api_secret")

	cfg.DataSource.Provider = "bloomberg"
	assert.ErrorContains(t, cfg.Validate(), "not supported")

	cfg.DataSource.Provider = "yahoo"
	cfg.Backtest.InitialBalance = -1
	assert.ErrorContains(t, cfg.Validate(), "initial_balance")
}

func TestValidateDaemon(t *testing.T) {
	clearEnv(t)
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)

	err = cfg.ValidateDaemon()
	require.Error(t, err)
	assert.ErrorContains(t, err, "bot_token")
	assert.ErrorContains(t, err, "schedule.jobs")

	cfg.Telegram.BotToken = "t"
	cfg.Telegram.ChatID = "1"
	cfg.Schedule.Jobs = []Job{{Symbol: "AAPL", Model: "hold"}}
	assert.NoError(t, cfg.ValidateDaemon())

	cfg.Schedule.Jobs = append(cfg.Schedule.Jobs, Job{Symbol: "MSFT"})
	assert.ErrorContains(t, cfg.ValidateDaemon(), "jobs[1]")
}
