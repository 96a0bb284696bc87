package calculator

// PercentChange returns the fractional period-over-period change of prices.
// The first element has no prior value and is 0; so is any change from a zero price.
func PercentChange(prices []float64) []float64 {
	out := make([]float64, len(prices))
	for i := 1; i < len(prices); i++ {
		if prices[i-1] == 0 {
			continue
		}
		out[i] = prices[i]/prices[i-1] - 1
	}
	return out
}
