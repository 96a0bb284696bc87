package strategy

import (
	"fmt"
	"io"
	"math"

	"MarketBacktest/internal/calculator"
	"MarketBacktest/internal/model"
)

// Compile-time interface checks.
var (
	_ Model = (*Hold)(nil)
	_ Model = (*BuyAndHold)(nil)
	_ Model = (*SMACross)(nil)
	_ Model = (*RSIReversion)(nil)
	_ Model = (*Factor)(nil)
)

// Hold never trades. Its balance curve stays flat at the initial balance.
type Hold struct{ series }

func NewHold() *Hold { return &Hold{} }

func (m *Hold) Name() string { return "hold" }

func (m *Hold) Update(prices *model.PriceSeries) error {
	if err := m.reset(prices); err != nil {
		return err
	}
	m.set(make([]model.Option, prices.Len()))
	return nil
}

func (m *Hold) Plot(w io.Writer) error { return m.plot(w, m.Name()) }

// BuyAndHold is long on every bar.
type BuyAndHold struct{ series }

func NewBuyAndHold() *BuyAndHold { return &BuyAndHold{} }

func (m *BuyAndHold) Name() string { return "buy-and-hold" }

func (m *BuyAndHold) Update(prices *model.PriceSeries) error {
	if err := m.reset(prices); err != nil {
		return err
	}
	options := make([]model.Option, prices.Len())
	for i := range options {
		options[i] = model.Buy
	}
	m.set(options)
	return nil
}

func (m *BuyAndHold) Plot(w io.Writer) error { return m.plot(w, m.Name()) }

// SMACross is long while the short SMA is above the long SMA and short while
// it is below. It holds until both averages have a full window.
type SMACross struct {
	series
	shortPeriod int
	longPeriod  int
}

// NewSMACross creates a crossover model with the given SMA periods.
func NewSMACross(short, long int) *SMACross {
	return &SMACross{shortPeriod: short, longPeriod: long}
}

func (m *SMACross) Name() string { return "sma-cross" }

func (m *SMACross) Update(prices *model.PriceSeries) error {
	if m.shortPeriod <= 0 || m.longPeriod <= m.shortPeriod {
		return fmt.Errorf("sma-cross: need 0 < short < long, got %d/%d", m.shortPeriod, m.longPeriod)
	}
	if err := m.reset(prices); err != nil {
		return err
	}
	closes := prices.Closes()
	short, err := calculator.RollingSMA(closes, m.shortPeriod)
	if err != nil {
		return err
	}
	long, err := calculator.RollingSMA(closes, m.longPeriod)
	if err != nil {
		return err
	}

	options := make([]model.Option, len(closes))
	for i := range closes {
		switch {
		case math.IsNaN(long[i]):
			options[i] = model.Hold
		case short[i] > long[i]:
			options[i] = model.Buy
		case short[i] < long[i]:
			options[i] = model.Sell
		}
	}
	m.set(options)
	return nil
}

func (m *SMACross) Plot(w io.Writer) error { return m.plot(w, m.Name()) }

// RSIReversion buys oversold and sells overbought readings of the daily RSI.
type RSIReversion struct {
	series
	period     int
	oversold   float64
	overbought float64
}

// NewRSIReversion creates an RSI model with the given period and thresholds.
func NewRSIReversion(period int, oversold, overbought float64) *RSIReversion {
	return &RSIReversion{period: period, oversold: oversold, overbought: overbought}
}

func (m *RSIReversion) Name() string { return "rsi" }

func (m *RSIReversion) Update(prices *model.PriceSeries) error {
	if m.oversold >= m.overbought {
		return fmt.Errorf("rsi: oversold %.0f must be below overbought %.0f", m.oversold, m.overbought)
	}
	if err := m.reset(prices); err != nil {
		return err
	}
	rsi, err := calculator.RSISeries(prices.Closes(), m.period)
	if err != nil {
		return err
	}

	options := make([]model.Option, len(rsi))
	for i, v := range rsi {
		switch {
		case math.IsNaN(v):
		case v < m.oversold:
			options[i] = model.Buy
		case v > m.overbought:
			options[i] = model.Sell
		}
	}
	m.set(options)
	return nil
}

func (m *RSIReversion) Plot(w io.Writer) error { return m.plot(w, m.Name()) }

// Factor scores every bar with the multi-factor engine using only the bars
// up to and including it, and trades the action of the resulting tier.
type Factor struct {
	series
	scores []*model.FactorSignal
}

func NewFactor() *Factor { return &Factor{} }

func (m *Factor) Name() string { return "factor" }

func (m *Factor) Update(prices *model.PriceSeries) error {
	if err := m.reset(prices); err != nil {
		return err
	}
	m.scores = make([]*model.FactorSignal, prices.Len())
	options := make([]model.Option, prices.Len())
	for i := range prices.Bars {
		sig := Evaluate(calculator.Indicators(prices.Bars[:i+1]))
		m.scores[i] = sig
		options[i] = sig.Tier.Action
	}
	m.set(options)
	return nil
}

// Scores returns the per-bar factor evaluations from the last Update.
func (m *Factor) Scores() []*model.FactorSignal { return m.scores }

func (m *Factor) Plot(w io.Writer) error { return m.plot(w, m.Name()) }
