package model

import (
	"errors"
	"fmt"
	"math"
)

// ErrMissingColumn means a derived column does not line up with the bars it was computed from.
var ErrMissingColumn = errors.New("missing derived column")

// IndicatorSeries is a bar sequence augmented with rolling statistics.
// Every derived column has one entry per bar; NaN marks an undefined value.
type IndicatorSeries struct {
	Ticker string
	Period Period
	Bars   []PriceBar

	MA20      []float64
	MA50      []float64
	MA200     []float64
	RSI14     []float64
	OBV       []float64
	High63    []float64
	VolMean20 []float64

	Latest Features
}

// Features is the latest-bar snapshot the screener works from.
type Features struct {
	Close            float64
	Volume           float64
	MA50             float64
	MA200            float64
	RSI              float64
	High63           float64
	DistanceFromHigh float64
	VolumeRatio      float64
	VolumeSpike      bool
	OBVTrend         bool
}

// Len returns the number of bars.
func (s *IndicatorSeries) Len() int { return len(s.Bars) }

// Validate checks every derived column is present and aligned with the bars.
func (s *IndicatorSeries) Validate() error {
	columns := []struct {
		name   string
		values []float64
	}{
		{"MA20", s.MA20},
		{"MA50", s.MA50},
		{"MA200", s.MA200},
		{"RSI14", s.RSI14},
		{"OBV", s.OBV},
		{"High63", s.High63},
		{"VolMean20", s.VolMean20},
	}
	for _, c := range columns {
		if len(c.values) != len(s.Bars) {
			return fmt.Errorf("%w: %s has %d values for %d bars", ErrMissingColumn, c.name, len(c.values), len(s.Bars))
		}
	}
	return nil
}

// Tail returns the last n rows as a new series sharing no slices with s.
func (s *IndicatorSeries) Tail(n int) *IndicatorSeries {
	start := len(s.Bars) - n
	if start < 0 {
		start = 0
	}
	cut := func(v []float64) []float64 {
		if len(v) < len(s.Bars) {
			return nil
		}
		return append([]float64(nil), v[start:]...)
	}
	return &IndicatorSeries{
		Ticker:    s.Ticker,
		Period:    s.Period,
		Bars:      append([]PriceBar(nil), s.Bars[start:]...),
		MA20:      cut(s.MA20),
		MA50:      cut(s.MA50),
		MA200:     cut(s.MA200),
		RSI14:     cut(s.RSI14),
		OBV:       cut(s.OBV),
		High63:    cut(s.High63),
		VolMean20: cut(s.VolMean20),
		Latest:    s.Latest,
	}
}

// Defined reports whether every value is a real number.
func Defined(values ...float64) bool {
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
