package model

import (
	"fmt"
	"time"
)

// PriceBar is one trading day for one ticker.
type PriceBar struct {
	Time   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}

// Period is the lookback window requested from a market-data fetcher.
type Period string

const (
	PeriodSixMonths Period = "6mo"
	PeriodOneYear   Period = "1y"
)

// ParsePeriod accepts the two supported lookbacks.
func ParsePeriod(s string) (Period, error) {
	switch Period(s) {
	case PeriodSixMonths, PeriodOneYear:
		return Period(s), nil
	default:
		return "", fmt.Errorf("unsupported period %q (want 6mo or 1y)", s)
	}
}

// Since returns the earliest date covered by the period, measured back from end.
func (p Period) Since(end time.Time) time.Time {
	if p == PeriodSixMonths {
		return end.AddDate(0, -6, 0)
	}
	return end.AddDate(-1, 0, 0)
}

// Closes extracts the close column.
func Closes(bars []PriceBar) []float64 {
	closes := make([]float64, len(bars))
	for i, b := range bars {
		closes[i] = b.Close
	}
	return closes
}

// Highs extracts the high column.
func Highs(bars []PriceBar) []float64 {
	highs := make([]float64, len(bars))
	for i, b := range bars {
		highs[i] = b.High
	}
	return highs
}

// Volumes extracts the volume column.
func Volumes(bars []PriceBar) []float64 {
	vols := make([]float64, len(bars))
	for i, b := range bars {
		vols[i] = b.Volume
	}
	return vols
}
