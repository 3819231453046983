package calculator

import (
	"errors"
	"fmt"
	"math"

	"MarketScreener/internal/model"
)

// Indicator windows.
const (
	ShortMAWindow   = 20
	MediumMAWindow  = 50
	LongMAWindow    = 200
	RSIPeriod       = 14
	HighWindow      = 63 // three months of trading days
	VolumeWindow    = 20
	OBVTrendDays    = 5
	VolumeSpikeMult = 1.5
)

// Minimum bar counts callers use before trusting a series.
const (
	MinBarsShortHorizon = MediumMAWindow
	MinBarsLongHorizon  = LongMAWindow
)

var (
	// ErrInsufficientData means the series is empty or shorter than the caller requires.
	ErrInsufficientData = errors.New("insufficient data")
	// ErrUnorderedBars means bar dates are not strictly increasing.
	ErrUnorderedBars = errors.New("bars not in strictly increasing date order")
)

// Options configures Compute.
type Options struct {
	MinBars    int
	MinPeriods MinPeriods
}

// Compute derives every indicator column and the latest-bar features for one ticker.
func Compute(bars []model.PriceBar, opts Options) (*model.IndicatorSeries, error) {
	minBars := opts.MinBars
	if minBars < 1 {
		minBars = 1
	}
	if len(bars) < minBars {
		return nil, fmt.Errorf("%w: have %d bars, need %d", ErrInsufficientData, len(bars), minBars)
	}
	for i := 1; i < len(bars); i++ {
		if !bars[i].Time.After(bars[i-1].Time) {
			return nil, fmt.Errorf("%w: bar %d at %s", ErrUnorderedBars, i, bars[i].Time.Format("2006-01-02"))
		}
	}
	policy := opts.MinPeriods
	if policy == "" {
		policy = MinPeriodsRelaxed
	}

	closes := model.Closes(bars)
	rsi, err := RSISeries(closes, RSIPeriod)
	if err != nil {
		return nil, fmt.Errorf("rsi: %w", err)
	}

	s := &model.IndicatorSeries{
		Bars:      append([]model.PriceBar(nil), bars...),
		MA20:      RollingMean(closes, ShortMAWindow, policy),
		MA50:      RollingMean(closes, MediumMAWindow, policy),
		MA200:     RollingMean(closes, LongMAWindow, policy),
		RSI14:     rsi,
		OBV:       OBVSeries(bars),
		High63:    RollingMax(model.Highs(bars), HighWindow, policy),
		VolMean20: RollingMean(model.Volumes(bars), VolumeWindow, policy),
	}
	s.Latest = latestFeatures(s)
	return s, nil
}

// RequireBars enforces a caller-specific minimum length.
func RequireBars(s *model.IndicatorSeries, minBars int) error {
	if s == nil || s.Len() == 0 || s.Len() < minBars {
		n := 0
		if s != nil {
			n = s.Len()
		}
		return fmt.Errorf("%w: have %d bars, need %d", ErrInsufficientData, n, minBars)
	}
	return nil
}

func latestFeatures(s *model.IndicatorSeries) model.Features {
	last := s.Len() - 1
	bar := s.Bars[last]
	f := model.Features{
		Close:  bar.Close,
		Volume: bar.Volume,
		MA50:   s.MA50[last],
		MA200:  s.MA200[last],
		RSI:    s.RSI14[last],
		High63: s.High63[last],
	}

	if dist, err := DistanceFromHigh(f.High63, f.Close); err == nil {
		f.DistanceFromHigh = dist
	} else {
		f.DistanceFromHigh = math.NaN()
	}

	volMean := s.VolMean20[last]
	if model.Defined(volMean) && volMean > 0 {
		f.VolumeRatio = bar.Volume / volMean
	} else {
		f.VolumeRatio = math.NaN()
	}
	f.VolumeSpike = model.Defined(volMean) && bar.Volume > VolumeSpikeMult*volMean
	f.OBVTrend = OBVTrend(s.OBV, OBVTrendDays)
	return f
}
