package strategy

import (
	"math"
	"sort"

	"MarketScreener/internal/model"
)

const (
	DefaultTopK        = 5
	DefaultMaxEligible = 20
)

// Options configures a screening run.
type Options struct {
	Policy  model.Policy
	Ranking model.Ranking
	TopK    int
	// MaxEligible stops the scan once this many eligible candidates are found. 0 scans everything.
	MaxEligible int
}

// Normalize fills unset options with their defaults.
func (o Options) Normalize() Options {
	if o.Policy == "" {
		o.Policy = model.PolicyAboveMA
	}
	if o.Ranking == "" {
		o.Ranking = model.RankByScore
	}
	if o.TopK <= 0 {
		o.TopK = DefaultTopK
	}
	if o.MaxEligible < 0 {
		o.MaxEligible = 0
	}
	return o
}

// Evaluate turns one series into a candidate. ok is false when the ticker is not eligible.
func Evaluate(s *model.IndicatorSeries, p model.Policy) (model.Candidate, bool) {
	if s == nil || s.Len() == 0 {
		return model.Candidate{}, false
	}
	f := s.Latest
	if !Eligible(p, f) {
		return model.Candidate{}, false
	}
	score, err := Score(p, f)
	if err != nil || !model.Defined(score) {
		return model.Candidate{}, false
	}
	return model.Candidate{
		Ticker:           s.Ticker,
		Price:            f.Close,
		MA50:             f.MA50,
		MA200:            f.MA200,
		DistanceFromHigh: f.DistanceFromHigh,
		VolumeRatio:      f.VolumeRatio,
		RSI:              f.RSI,
		VolumeSpike:      f.VolumeSpike,
		OBVTrend:         f.OBVTrend,
		Score:            score,
	}, true
}

// Screen scans series in order, keeps eligible candidates and returns the top-K ranked list.
// The result is never nil.
func Screen(series []*model.IndicatorSeries, opts Options) []model.Candidate {
	opts = opts.Normalize()
	eligible := make([]model.Candidate, 0)
	for _, s := range series {
		c, ok := Evaluate(s, opts.Policy)
		if !ok {
			continue
		}
		eligible = append(eligible, c)
		if opts.MaxEligible > 0 && len(eligible) >= opts.MaxEligible {
			break
		}
	}
	return Rank(eligible, opts.Ranking, opts.TopK)
}

// Rank orders candidates and truncates to topK. Equal keys keep their input order.
func Rank(candidates []model.Candidate, ranking model.Ranking, topK int) []model.Candidate {
	ranked := append(make([]model.Candidate, 0, len(candidates)), candidates...)
	switch ranking {
	case model.RankByDistance:
		sort.SliceStable(ranked, func(i, j int) bool {
			return distanceLess(ranked[i].DistanceFromHigh, ranked[j].DistanceFromHigh)
		})
	default:
		sort.SliceStable(ranked, func(i, j int) bool {
			return ranked[i].Score > ranked[j].Score
		})
	}
	if topK > 0 && len(ranked) > topK {
		ranked = ranked[:topK]
	}
	return ranked
}

// undefined distances sort last
func distanceLess(a, b float64) bool {
	if math.IsNaN(a) {
		return false
	}
	if math.IsNaN(b) {
		return true
	}
	return a < b
}
