package model

import "time"

// OHLCV represents a single candlestick bar.
type OHLCV struct {
	Time   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}

// PriceSeries holds the daily bars fetched for one symbol over a date range.
type PriceSeries struct {
	Symbol    string
	Start     time.Time
	End       time.Time
	Bars      []OHLCV
	FetchedAt time.Time
}

// Len returns the number of bars in the series.
func (p *PriceSeries) Len() int {
	if p == nil {
		return 0
	}
	return len(p.Bars)
}

// Closes returns the close prices in chronological order.
func (p *PriceSeries) Closes() []float64 {
	closes := make([]float64, p.Len())
	for i, b := range p.Bars {
		closes[i] = b.Close
	}
	return closes
}
