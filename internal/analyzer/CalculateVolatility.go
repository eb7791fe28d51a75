package analyzer

import (
	"errors"
	"math"
)

// ErrInsufficientData indicates that no data points were provided.
var ErrInsufficientData = errors.New("insufficient data points to calculate volatility")

// CalculateVolatility returns the population standard deviation (N, not N-1) of a series,
// e.g. the daily APY samples of a pool over a backtest window.
// Non-finite samples are skipped.
func CalculateVolatility(values []float64) (float64, error) {
	// --- Calculate the mean ---
	var sum float64
	n := 0
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		sum += v
		n++
	}
	if n == 0 {
		return 0, ErrInsufficientData
	}
	mean := sum / float64(n)

	// --- Sum of squared differences from the mean ---
	var sumSqDiff float64
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		sumSqDiff += math.Pow(v-mean, 2)
	}

	// Population variance
	variance := sumSqDiff / float64(n)

	return math.Sqrt(variance), nil
}
