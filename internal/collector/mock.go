package collector

import (
	"context"
	"sync"
	"time"

	"MarketBacktest/internal/model"
)

// MockFetcher returns controllable fixed data for development and testing.
// Calls counts FetchRange invocations; read it only after fetches finish.
type MockFetcher struct {
	Price float64
	Bars  []model.OHLCV
	Err   error
	Calls int

	mu sync.Mutex
}

func (m *MockFetcher) Name() string { return "mock" }

// FetchRange returns m.Bars filtered to [start, end), or one generated weekday bar
// per day in the range when Bars is nil.
func (m *MockFetcher) FetchRange(_ context.Context, _ string, start, end time.Time) ([]model.OHLCV, error) {
	m.mu.Lock()
	m.Calls++
	m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	if m.Bars == nil {
		return generateMockBars(m.Price, start, end), nil
	}
	var out []model.OHLCV
	for _, b := range m.Bars {
		if !b.Time.Before(start) && b.Time.Before(end) {
			out = append(out, b)
		}
	}
	return out, nil
}

func generateMockBars(basePrice float64, start, end time.Time) []model.OHLCV {
	if basePrice == 0 {
		basePrice = 100
	}
	var bars []model.OHLCV
	i := 0
	for d := start; d.Before(end); d = d.AddDate(0, 0, 1) {
		if d.Weekday() == time.Saturday || d.Weekday() == time.Sunday {
			continue
		}
		p := basePrice * (1 + float64(i%20-10)*0.001)
		bars = append(bars, model.OHLCV{
			Time:   d,
			Open:   p * 0.999,
			High:   p * 1.005,
			Low:    p * 0.995,
			Close:  p,
			Volume: 1000000,
		})
		i++
	}
	return bars
}
