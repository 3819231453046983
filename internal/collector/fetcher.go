package collector

import (
	"context"
	"errors"
	"sort"

	"golang.org/x/time/rate"

	"MarketScreener/internal/calculator"
	"MarketScreener/internal/model"
)

// ErrNoData means the source returned no bars for the ticker.
var ErrNoData = errors.New("no data")

// Fetcher defines the interface for fetching daily bars.
type Fetcher interface {
	FetchBars(ctx context.Context, symbol string, period model.Period) ([]model.PriceBar, error)
	Name() string
}

// IsDataUnavailable reports whether err means the ticker simply has no usable data.
func IsDataUnavailable(err error) bool {
	return errors.Is(err, ErrNoData) ||
		errors.Is(err, calculator.ErrInsufficientData) ||
		errors.Is(err, calculator.ErrUnorderedBars) ||
		errors.Is(err, model.ErrMissingColumn)
}

// sortBars orders bars chronologically and keeps the last bar for any repeated timestamp.
func sortBars(bars []model.PriceBar) []model.PriceBar {
	sort.SliceStable(bars, func(i, j int) bool { return bars[i].Time.Before(bars[j].Time) })
	out := bars[:0]
	for _, b := range bars {
		if n := len(out); n > 0 && !b.Time.After(out[n-1].Time) {
			out[n-1] = b
			continue
		}
		out = append(out, b)
	}
	return out
}

func newLimiter(perSecond float64) *rate.Limiter {
	if perSecond <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Limit(perSecond), 1)
}
