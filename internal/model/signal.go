package model

import "fmt"

// Policy selects the screening predicate set.
type Policy string

const (
	// PolicyAboveMA keeps tickers trading above both MA50 and MA200.
	PolicyAboveMA Policy = "above-ma"
	// PolicyPreBreakout keeps tickers near their 3-month high with volume and momentum support.
	PolicyPreBreakout Policy = "pre-breakout"
)

// ParsePolicy validates a policy name.
func ParsePolicy(s string) (Policy, error) {
	switch Policy(s) {
	case PolicyAboveMA, PolicyPreBreakout:
		return Policy(s), nil
	default:
		return "", fmt.Errorf("unknown policy %q (want %s or %s)", s, PolicyAboveMA, PolicyPreBreakout)
	}
}

// Ranking selects how eligible candidates are ordered.
type Ranking string

const (
	// RankByScore orders by composite score, highest first.
	RankByScore Ranking = "score"
	// RankByDistance orders by distance from the 3-month high, closest first.
	RankByDistance Ranking = "distance"
)

// ParseRanking validates a ranking name.
func ParseRanking(s string) (Ranking, error) {
	switch Ranking(s) {
	case RankByScore, RankByDistance:
		return Ranking(s), nil
	default:
		return "", fmt.Errorf("unknown ranking %q (want %s or %s)", s, RankByScore, RankByDistance)
	}
}

// Candidate is one ticker's latest-bar snapshot produced by a screening run.
type Candidate struct {
	Ticker           string  `json:"ticker"`
	Price            float64 `json:"price"`
	MA50             float64 `json:"ma50"`
	MA200            float64 `json:"ma200"`
	DistanceFromHigh float64 `json:"distance_from_high"`
	VolumeRatio      float64 `json:"volume_ratio"`
	RSI              float64 `json:"rsi"`
	VolumeSpike      bool    `json:"volume_spike"`
	OBVTrend         bool    `json:"obv_trend"`
	Score            float64 `json:"score"`
}

// Recommendation is the single-ticker buy/sell heuristic.
type Recommendation struct {
	Favorable bool    `json:"favorable"`
	Close     float64 `json:"close"`
	MA50      float64 `json:"ma50"`
	MA200     float64 `json:"ma200"`
}

// Label renders the signal as a word.
func (r Recommendation) Label() string {
	if r.Favorable {
		return "BUY"
	}
	return "SELL"
}
