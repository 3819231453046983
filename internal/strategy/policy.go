package strategy

import (
	"fmt"

	"MarketScreener/internal/calculator"
	"MarketScreener/internal/model"
)

// Pre-breakout thresholds.
const (
	MaxDistanceFromHigh = 0.02
	MinBreakoutRSI      = 40.0
	MaxBreakoutRSI      = 70.0
)

// Profile is the data a policy needs from the collector.
type Profile struct {
	Period  model.Period
	MinBars int
}

// ProfileFor returns the lookback and minimum history each policy requires.
func ProfileFor(p model.Policy) Profile {
	if p == model.PolicyPreBreakout {
		return Profile{Period: model.PeriodSixMonths, MinBars: calculator.MinBarsShortHorizon}
	}
	return Profile{Period: model.PeriodOneYear, MinBars: calculator.MinBarsLongHorizon}
}

// AnalysisProfile is used for the single-ticker view.
var AnalysisProfile = Profile{Period: model.PeriodOneYear, MinBars: calculator.MinBarsShortHorizon}

// Eligible reports whether the latest-bar features pass every predicate of the policy.
// Any undefined input makes the ticker ineligible.
func Eligible(p model.Policy, f model.Features) bool {
	switch p {
	case model.PolicyAboveMA:
		if !model.Defined(f.Close, f.MA50, f.MA200) {
			return false
		}
		return f.Close > f.MA50 && f.Close > f.MA200
	case model.PolicyPreBreakout:
		if !model.Defined(f.DistanceFromHigh, f.RSI) {
			return false
		}
		return f.DistanceFromHigh <= MaxDistanceFromHigh &&
			f.VolumeSpike &&
			f.RSI > MinBreakoutRSI && f.RSI < MaxBreakoutRSI &&
			f.OBVTrend
	default:
		return false
	}
}

// Score computes the policy's ranking score.
func Score(p model.Policy, f model.Features) (float64, error) {
	switch p {
	case model.PolicyAboveMA:
		return (f.Close - f.MA50) + (f.Close - f.MA200), nil
	case model.PolicyPreBreakout:
		return (1-f.DistanceFromHigh)*100 + f.RSI, nil
	default:
		return 0, fmt.Errorf("unknown policy %q", p)
	}
}
