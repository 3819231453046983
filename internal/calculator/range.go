package calculator

import (
	"errors"
	"math"
)

// RollingMax returns the trailing maximum over window values at every index.
// NaN values are skipped; a window holding only NaN yields NaN.
func RollingMax(values []float64, window int, policy MinPeriods) []float64 {
	out := make([]float64, len(values))
	need := policy.required(window)
	// deque of indices with decreasing values
	var dq []int
	for i, v := range values {
		if !math.IsNaN(v) {
			for len(dq) > 0 && values[dq[len(dq)-1]] <= v {
				dq = dq[:len(dq)-1]
			}
			dq = append(dq, i)
		}
		if len(dq) > 0 && dq[0] <= i-window {
			dq = dq[1:]
		}
		if i+1 < need || len(dq) == 0 {
			out[i] = math.NaN()
			continue
		}
		out[i] = values[dq[0]]
	}
	return out
}

// DistanceFromHigh returns how far close sits below high as a fraction of high.
func DistanceFromHigh(high, close float64) (float64, error) {
	if math.IsNaN(high) || math.IsNaN(close) {
		return math.NaN(), nil
	}
	if high <= 0 {
		return math.NaN(), errors.New("high must be positive")
	}
	return (high - close) / high, nil
}
