package strategy

import (
	"fmt"
	"math"

	"MarketBacktest/internal/model"
)

const (
	factorMA200     = "MA200 deviation"
	factorWeeklyRSI = "weekly RSI"
	factorDailyRSI  = "daily RSI"
	factorPosition  = "52w position"
	factorTrend     = "trend"
)

func weighted(name string, score, weight float64, commentary string) model.FactorScore {
	return model.FactorScore{
		Name:       name,
		RawScore:   score,
		Weight:     weight,
		Weighted:   score * weight,
		Commentary: commentary,
	}
}

// scoreMA200Deviation scores how far the current price deviates from MA200.
// Weight: 0.35
func scoreMA200Deviation(ind *model.MarketIndicators) model.FactorScore {
	if ind.MA200 == 0 {
		return weighted(factorMA200, 0, 0.35, "MA200 unavailable")
	}
	deviation := (ind.CurrentPrice - ind.MA200) / ind.MA200 * 100

	var score float64
	switch {
	case deviation <= -20:
		score = 2.0
	case deviation <= -10:
		score = 1.5
	case deviation <= -5:
		score = 1.0
	case deviation <= 0:
		score = 0.5
	case deviation <= 5:
		score = 0
	case deviation <= 10:
		score = -0.5
	case deviation <= 15:
		score = -1.0
	case deviation <= 20:
		score = -1.5
	default:
		score = -2.0
	}
	return weighted(factorMA200, score, 0.35, fmt.Sprintf("deviation %+.1f%%", deviation))
}

// scoreRSI maps an RSI reading to a contrarian score in [-2, 2].
func scoreRSI(rsi float64) float64 {
	switch {
	case rsi <= 25:
		return 2.0
	case rsi <= 30:
		return 1.5
	case rsi <= 40:
		return 1.0
	case rsi <= 45:
		return 0.5
	case rsi <= 55:
		return 0
	case rsi <= 60:
		return -0.5
	case rsi <= 70:
		return -1.0
	case rsi <= 80:
		return -1.5
	default:
		return -2.0
	}
}

// Weight: 0.25
func scoreWeeklyRSI(ind *model.MarketIndicators) model.FactorScore {
	return weighted(factorWeeklyRSI, scoreRSI(ind.WeeklyRSI), 0.25, fmt.Sprintf("RSI=%.0f", ind.WeeklyRSI))
}

// Weight: 0.15
func scoreDailyRSI(ind *model.MarketIndicators) model.FactorScore {
	return weighted(factorDailyRSI, scoreRSI(ind.DailyRSI), 0.15, fmt.Sprintf("RSI=%.0f", ind.DailyRSI))
}

// score52WeekPosition scores where the price sits in the 52-week range.
// Weight: 0.10
// Above 95% it only reaches -2 when the other factors average below -1.
func score52WeekPosition(ind *model.MarketIndicators, otherFactorsAvg float64) model.FactorScore {
	pos := ind.Position52w * 100

	var score float64
	switch {
	case pos <= 10:
		score = 2.0
	case pos <= 20:
		score = 1.5
	case pos <= 30:
		score = 1.0
	case pos <= 40:
		score = 0.5
	case pos <= 60:
		score = 0
	case pos <= 70:
		score = -0.5
	case pos <= 80:
		score = -1.0
	case pos <= 95:
		score = -1.5
	default:
		if otherFactorsAvg < -1 {
			score = -2.0
		} else {
			score = -1.0
		}
	}
	return weighted(factorPosition, score, 0.10, fmt.Sprintf("position=%.0f%%", pos))
}

// scoreTrendTracker scores MA alignment and 30-day extremes.
// Weight: 0.15
// Bull alignment: price > MA20w > MA50w
// Bear alignment: price < MA20w < MA50w
func scoreTrendTracker(ind *model.MarketIndicators) model.FactorScore {
	bullish := ind.CurrentPrice > ind.MA20w && ind.MA20w > ind.MA50w
	bearish := ind.CurrentPrice < ind.MA20w && ind.MA20w < ind.MA50w

	near30dHigh := ind.High30d > 0 && math.Abs(ind.CurrentPrice-ind.High30d)/ind.High30d < 0.01
	near30dLow := ind.Low30d > 0 && math.Abs(ind.CurrentPrice-ind.Low30d)/ind.Low30d < 0.01

	switch {
	case bullish && near30dHigh:
		return weighted(factorTrend, 1.5, 0.15, "bullish + 30d high")
	case bullish:
		return weighted(factorTrend, 1.0, 0.15, "bullish")
	case bearish && near30dLow:
		return weighted(factorTrend, -1.0, 0.15, "bearish + 30d low")
	case bearish:
		return weighted(factorTrend, -0.5, 0.15, "bearish")
	default:
		return weighted(factorTrend, 0, 0.15, "ranging")
	}
}
