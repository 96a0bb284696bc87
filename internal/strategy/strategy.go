// Package strategy defines the Model interface for signal-generating trading
// models and provides a Registry of built-in implementations.
package strategy

import (
	"errors"
	"fmt"
	"io"
	"sort"

	"MarketBacktest/internal/calculator"
	"MarketBacktest/internal/chart"
	"MarketBacktest/internal/model"
)

// ErrNoPrices is returned by Update when given an empty price series.
var ErrNoPrices = errors.New("strategy: empty price series")

// Model is the interface that all trading models must implement.
type Model interface {
	// Name returns the display name of the model.
	Name() string

	// Update recomputes the model's signals from prices.
	Update(prices *model.PriceSeries) error

	// Signals returns the signal series computed by the last Update,
	// aligned index-for-index with its bars.
	Signals() []model.SignalPoint

	// Plot renders the model's own signal chart as PNG.
	Plot(w io.Writer) error
}

// series holds the state shared by the built-in models.
type series struct {
	prices *model.PriceSeries
	points []model.SignalPoint
}

func (s *series) reset(prices *model.PriceSeries) error {
	if prices.Len() == 0 {
		return ErrNoPrices
	}
	s.prices = prices
	s.points = nil
	return nil
}

// set builds the signal series from one option per bar.
func (s *series) set(options []model.Option) {
	changes := calculator.PercentChange(s.prices.Closes())
	s.points = make([]model.SignalPoint, len(options))
	for i, o := range options {
		s.points[i] = model.SignalPoint{
			Time:   s.prices.Bars[i].Time,
			Signal: o,
			Change: changes[i],
		}
	}
}

func (s *series) Signals() []model.SignalPoint { return s.points }

func (s *series) plot(w io.Writer, name string) error {
	if s.prices == nil {
		return fmt.Errorf("plot %s: model not updated", name)
	}
	return chart.SignalChart(w, fmt.Sprintf("%s %s", s.prices.Symbol, name), s.prices.Bars, s.points)
}

// Factory creates a fresh Model instance.
type Factory func() Model

// Registry holds named model factories for lookup and enumeration.
type Registry struct {
	factories map[string]Factory
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// Default returns a Registry with every built-in model registered.
func Default() *Registry {
	r := NewRegistry()
	r.Register(func() Model { return NewHold() })
	r.Register(func() Model { return NewBuyAndHold() })
	r.Register(func() Model { return NewSMACross(20, 50) })
	r.Register(func() Model { return NewRSIReversion(14, 30, 70) })
	r.Register(func() Model { return NewFactor() })
	return r
}

// Register adds a factory keyed by the Name() of the model it builds.
func (r *Registry) Register(f Factory) {
	r.factories[f().Name()] = f
}

// Get returns a new instance of the named model.
func (r *Registry) Get(name string) (Model, bool) {
	f, ok := r.factories[name]
	if !ok {
		return nil, false
	}
	return f(), true
}

// List returns the sorted names of all registered models.
func (r *Registry) List() []string {
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
