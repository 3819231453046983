package calculator

import (
	"fmt"
	"math"
)

// MinPeriods controls whether a rolling window produces values before it is full.
type MinPeriods string

const (
	// MinPeriodsRelaxed defines a rolling value from the first bar using the samples available so far.
	// A relaxed MA50 on day 10 is a 10-day mean, not comparable to a full-window MA50.
	MinPeriodsRelaxed MinPeriods = "relaxed"
	// MinPeriodsStrict leaves the first window-1 values undefined (NaN).
	MinPeriodsStrict MinPeriods = "strict"
)

// ParseMinPeriods validates a policy name. Empty selects the relaxed default.
func ParseMinPeriods(s string) (MinPeriods, error) {
	switch MinPeriods(s) {
	case "", MinPeriodsRelaxed:
		return MinPeriodsRelaxed, nil
	case MinPeriodsStrict:
		return MinPeriodsStrict, nil
	default:
		return "", fmt.Errorf("unknown min_periods %q (want relaxed or strict)", s)
	}
}

func (m MinPeriods) required(window int) int {
	if m == MinPeriodsStrict {
		return window
	}
	return 1
}

// RollingMean returns the trailing mean over window values at every index.
// Values before the policy's minimum sample count are NaN.
func RollingMean(values []float64, window int, policy MinPeriods) []float64 {
	out := make([]float64, len(values))
	need := policy.required(window)
	sum := 0.0
	for i, v := range values {
		sum += v
		if i >= window {
			sum -= values[i-window]
		}
		n := i + 1
		if n > window {
			n = window
		}
		if n < need {
			out[i] = math.NaN()
			continue
		}
		out[i] = sum / float64(n)
	}
	return out
}
