package recorder

import (
	"context"
	"errors"

	"MarketBacktest/internal/model"
)

// Recorder is the log sink that persists backtest summaries.
type Recorder interface {
	Log(ctx context.Context, summary *model.Summary) error
	Close() error
}

// MultiRecorder fans a summary out to several recorders.
type MultiRecorder []Recorder

// Log writes to every recorder, joining their errors.
func (m MultiRecorder) Log(ctx context.Context, summary *model.Summary) error {
	var errs []error
	for _, r := range m {
		if err := r.Log(ctx, summary); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m MultiRecorder) Close() error {
	var errs []error
	for _, r := range m {
		if err := r.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
