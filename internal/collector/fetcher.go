package collector

import (
	"context"
	"time"

	"MarketBacktest/internal/model"
)

// Fetcher defines the interface for fetching historical daily bars.
// Bars are returned in chronological order and cover [start, end).
type Fetcher interface {
	FetchRange(ctx context.Context, symbol string, start, end time.Time) ([]model.OHLCV, error)
	Name() string
}
