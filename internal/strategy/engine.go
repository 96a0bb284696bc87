package strategy

import "MarketBacktest/internal/model"

// Tiers maps total factor scores to actions, highest threshold first.
var Tiers = []struct {
	MinScore float64
	Tier     model.ScoreTier
}{
	{1.5, model.ScoreTier{Label: "max conviction", Action: model.Buy}},
	{1.2, model.ScoreTier{Label: "strong buy", Action: model.Buy}},
	{0.8, model.ScoreTier{Label: "accumulate", Action: model.Buy}},
	{0.0, model.ScoreTier{Label: "neutral", Action: model.Hold}},
	{-0.8, model.ScoreTier{Label: "reduce", Action: model.Hold}},
	{-1.5, model.ScoreTier{Label: "lighten", Action: model.Sell}},
}

// DefaultTier is the lowest tier for scores < -1.5.
var DefaultTier = model.ScoreTier{Label: "exit", Action: model.Sell}

// mapTier maps a total score to a ScoreTier.
func mapTier(totalScore float64) model.ScoreTier {
	for _, t := range Tiers {
		if totalScore >= t.MinScore {
			return t.Tier
		}
	}
	return DefaultTier
}

// Evaluate scores market indicators and maps the weighted total to a tier.
func Evaluate(ind *model.MarketIndicators) *model.FactorSignal {
	f1 := scoreMA200Deviation(ind)
	f2 := scoreWeeklyRSI(ind)
	f3 := scoreDailyRSI(ind)
	f5 := scoreTrendTracker(ind)

	// Factor 4 depends on the average of the others.
	otherFactorsAvg := (f1.RawScore + f2.RawScore + f3.RawScore + f5.RawScore) / 4.0
	f4 := score52WeekPosition(ind, otherFactorsAvg)

	factors := []model.FactorScore{f1, f2, f3, f4, f5}
	totalScore := 0.0
	for _, f := range factors {
		totalScore += f.Weighted
	}

	signal := &model.FactorSignal{
		Factors:    factors,
		TotalScore: totalScore,
		Tier:       mapTier(totalScore),
	}
	if ind.WeeklyRSI > 85 || ind.DailyRSI > 85 {
		signal.WarningMsg = "RSI > 85: overbought"
	}
	return signal
}
