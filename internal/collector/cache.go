package collector

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/parquet-go/parquet-go"
	"go.uber.org/zap"

	"MarketBacktest/internal/model"
)

// Compile-time interface check.
var _ Fetcher = (*CachedFetcher)(nil)

// barRecord is the Parquet schema for cached daily bars.
type barRecord struct {
	Timestamp int64   `parquet:"timestamp,timestamp(millisecond)"` // Unix ms
	Open      float64 `parquet:"open"`
	High      float64 `parquet:"high"`
	Low       float64 `parquet:"low"`
	Close     float64 `parquet:"close"`
	Volume    float64 `parquet:"volume"`
}

// CachedFetcher serves ranges from Parquet files on disk and falls back to
// the wrapped fetcher on a miss. Ranges that end after the start of the
// current UTC day may still gain or revise bars and always go to the wrapped
// fetcher uncached. Files live at:
//
//	<Dir>/<source>/<SYMBOL>/<start>_<end>.parquet
type CachedFetcher struct {
	Inner Fetcher
	Dir   string
	log   *zap.Logger
	now   func() time.Time
}

// NewCachedFetcher wraps inner with a Parquet cache rooted at dir.
func NewCachedFetcher(inner Fetcher, dir string, log *zap.Logger) *CachedFetcher {
	if log == nil {
		log = zap.NewNop()
	}
	return &CachedFetcher{Inner: inner, Dir: dir, log: log, now: time.Now}
}

func (c *CachedFetcher) Name() string { return c.Inner.Name() + "+cache" }

func (c *CachedFetcher) path(symbol string, start, end time.Time) string {
	name := fmt.Sprintf("%s_%s.parquet", start.Format(model.DateLayout), end.Format(model.DateLayout))
	return filepath.Join(c.Dir, c.Inner.Name(), strings.ToUpper(symbol), name)
}

// FetchRange returns cached bars when present, otherwise fetches and writes them.
func (c *CachedFetcher) FetchRange(ctx context.Context, symbol string, start, end time.Time) ([]model.OHLCV, error) {
	if !c.settled(end) {
		c.log.Debug("range reaches today, bar cache bypassed",
			zap.String("symbol", symbol), zap.Time("end", end))
		return c.Inner.FetchRange(ctx, symbol, start, end)
	}

	path := c.path(symbol, start, end)

	records, err := parquet.ReadFile[barRecord](path)
	switch {
	case err == nil:
		c.log.Debug("bar cache hit", zap.String("path", path), zap.Int("bars", len(records)))
		return fromRecords(records), nil
	case errors.Is(err, fs.ErrNotExist):
	default:
		c.log.Warn("bar cache unreadable, refetching", zap.String("path", path), zap.Error(err))
	}

	bars, err := c.Inner.FetchRange(ctx, symbol, start, end)
	if err != nil {
		return nil, err
	}
	if err := writeCache(path, toRecords(bars)); err != nil {
		return nil, err
	}
	return bars, nil
}

// settled reports whether a range ending at end (exclusive) lies entirely
// before the current UTC day.
func (c *CachedFetcher) settled(end time.Time) bool {
	today := c.now().UTC().Truncate(24 * time.Hour)
	return !end.After(today)
}

// writeCache writes records to a temp file beside path and renames it into
// place so concurrent readers never see a partial file.
func writeCache(path string, records []barRecord) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create cache dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".bars-*.parquet")
	if err != nil {
		return fmt.Errorf("create cache temp file: %w", err)
	}
	tmpName := tmp.Name()
	tmp.Close()

	if err := parquet.WriteFile(tmpName, records); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("write bar cache %s: %w", path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("install bar cache %s: %w", path, err)
	}
	return nil
}

func toRecords(bars []model.OHLCV) []barRecord {
	records := make([]barRecord, len(bars))
	for i, b := range bars {
		records[i] = barRecord{
			Timestamp: b.Time.UnixMilli(),
			Open:      b.Open,
			High:      b.High,
			Low:       b.Low,
			Close:     b.Close,
			Volume:    b.Volume,
		}
	}
	return records
}

func fromRecords(records []barRecord) []model.OHLCV {
	bars := make([]model.OHLCV, len(records))
	for i, r := range records {
		bars[i] = model.OHLCV{
			Time:   time.UnixMilli(r.Timestamp).UTC(),
			Open:   r.Open,
			High:   r.High,
			Low:    r.Low,
			Close:  r.Close,
			Volume: r.Volume,
		}
	}
	sort.Slice(bars, func(i, j int) bool { return bars[i].Time.Before(bars[j].Time) })
	return bars
}
