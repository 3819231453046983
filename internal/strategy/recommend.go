package strategy

import (
	"errors"

	"MarketScreener/internal/model"
)

// ErrNoRecommendation means the latest bar lacks the values the signal needs.
var ErrNoRecommendation = errors.New("no recommendation possible")

// Recommend is favorable when the latest close is above MA50.
func Recommend(s *model.IndicatorSeries) (model.Recommendation, error) {
	if s == nil || s.Len() == 0 {
		return model.Recommendation{}, ErrNoRecommendation
	}
	f := s.Latest
	if !model.Defined(f.Close, f.MA50) {
		return model.Recommendation{}, ErrNoRecommendation
	}
	return model.Recommendation{
		Favorable: f.Close > f.MA50,
		Close:     f.Close,
		MA50:      f.MA50,
		MA200:     f.MA200,
	}, nil
}
