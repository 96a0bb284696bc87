package calculator

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// TradingDaysPerYear annualises daily statistics.
const TradingDaysPerYear = 252

// MaxDrawdown returns the largest peak-to-trough decline of balances in percent (>= 0).
func MaxDrawdown(balances []float64) float64 {
	var peak, worst float64
	for _, b := range balances {
		if b > peak {
			peak = b
		}
		if peak <= 0 {
			continue
		}
		if dd := (peak - b) / peak * 100; dd > worst {
			worst = dd
		}
	}
	return worst
}

// SharpeRatio returns the annualised Sharpe ratio of periodic returns with a zero risk-free rate.
// It is 0 when there are fewer than two returns or no variance.
func SharpeRatio(returns []float64) float64 {
	if len(returns) < 2 {
		return 0
	}
	mean, std := stat.MeanStdDev(returns, nil)
	if std == 0 || math.IsNaN(std) {
		return 0
	}
	return mean / std * math.Sqrt(TradingDaysPerYear)
}

// PeriodReturns converts a balance curve into per-period fractional returns.
func PeriodReturns(balances []float64) []float64 {
	if len(balances) < 2 {
		return nil
	}
	return PercentChange(balances)[1:]
}
