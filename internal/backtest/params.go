package backtest

import (
	"fmt"
	"math"
)

const (
	DefaultInitialBalance = 1000.0
	DefaultSymbol         = "AAPL"
	DefaultInitialDate    = "2019-01-01"
	DefaultFinalDate      = "2020-01-01"

	toolName = "Backtest"
)

// Params are the construction inputs of a Runner. Dates use model.DateLayout.
type Params struct {
	InitialBalance float64
	Symbol         string
	InitialDate    string
	FinalDate      string
}

// DefaultParams returns a one-year AAPL run starting with 1000.
func DefaultParams() Params {
	return Params{
		InitialBalance: DefaultInitialBalance,
		Symbol:         DefaultSymbol,
		InitialDate:    DefaultInitialDate,
		FinalDate:      DefaultFinalDate,
	}
}

// Parameters returns the human-readable parameter dictionary of the run.
func (p Params) Parameters() map[string]any {
	return map[string]any{
		"Initial balance": p.InitialBalance,
		"Symbol":          p.Symbol,
		"Initial date":    p.InitialDate,
		"Final date":      p.FinalDate,
	}
}

func (p Params) validate() error {
	if !(p.InitialBalance > 0) || math.IsInf(p.InitialBalance, 1) {
		return fmt.Errorf("%w: %v", ErrInvalidBalance, p.InitialBalance)
	}
	if p.Symbol == "" {
		return ErrEmptySymbol
	}
	return nil
}
