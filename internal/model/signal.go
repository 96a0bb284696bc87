package model

import (
	"fmt"
	"time"
)

// Option is the directional decision a model takes for one period.
type Option int8

const (
	Sell Option = -1
	Hold Option = 0
	Buy  Option = 1
)

// String returns BUY, SELL or HOLD.
func (o Option) String() string {
	switch o {
	case Buy:
		return "BUY"
	case Sell:
		return "SELL"
	case Hold:
		return "HOLD"
	default:
		return fmt.Sprintf("Option(%d)", int8(o))
	}
}

// Valid reports whether o is one of BUY, SELL or HOLD.
func (o Option) Valid() bool {
	return o == Buy || o == Sell || o == Hold
}

// SignalPoint is one row of a model's signal series.
// Change is the fractional close change versus the previous bar.
type SignalPoint struct {
	Time   time.Time
	Signal Option
	Change float64
}

// FactorScore represents a single factor's scoring result.
type FactorScore struct {
	Name       string
	RawScore   float64
	Weight     float64
	Weighted   float64
	Commentary string
}

// ScoreTier maps a total factor score to an action.
type ScoreTier struct {
	Label  string
	Action Option
}

// FactorSignal is the output of the factor scoring engine for one bar.
type FactorSignal struct {
	Factors    []FactorScore
	TotalScore float64
	Tier       ScoreTier
	WarningMsg string
}
