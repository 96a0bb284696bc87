package recorder

import (
	"context"

	"MarketBacktest/internal/model"
)

// NoopRecorder is a no-op implementation used when no sink is configured.
type NoopRecorder struct{}

func NewNoopRecorder() *NoopRecorder { return &NoopRecorder{} }

func (n *NoopRecorder) Log(context.Context, *model.Summary) error { return nil }
func (n *NoopRecorder) Close() error                              { return nil }
