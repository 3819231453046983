package collector

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"MarketScreener/internal/cache"
	"MarketScreener/internal/calculator"
	"MarketScreener/internal/logger"
	"MarketScreener/internal/model"
	"MarketScreener/internal/strategy"
)

// Collector orchestrates fetching, indicator computation and memoization.
type Collector struct {
	Fetcher    Fetcher
	Cache      *cache.SeriesCache
	MinPeriods calculator.MinPeriods
	log        *zap.Logger
}

// NewCollector creates a new Collector. A nil cache disables memoization.
func NewCollector(fetcher Fetcher, c *cache.SeriesCache, minPeriods calculator.MinPeriods, log *zap.Logger) *Collector {
	if log == nil {
		log = zap.NewNop()
	}
	return &Collector{Fetcher: fetcher, Cache: c, MinPeriods: minPeriods, log: log}
}

// Load returns the indicator series for ticker over period, fetching it on a cache miss.
// Series shorter than minBars fail with calculator.ErrInsufficientData.
func (c *Collector) Load(ctx context.Context, ticker string, period model.Period, minBars int) (*model.IndicatorSeries, error) {
	ticker = strings.ToUpper(ticker)
	if c.Cache != nil {
		if s, ok := c.Cache.Get(ticker, period); ok {
			c.log.Debug("series cache hit", logger.Ticker(ticker), zap.String("period", string(period)))
			return requireBars(ticker, s, minBars)
		}
	}

	bars, err := c.Fetcher.FetchBars(ctx, ticker, period)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", ticker, err)
	}
	if len(bars) == 0 {
		return nil, fmt.Errorf("fetch %s: %w", ticker, ErrNoData)
	}

	s, err := calculator.Compute(bars, calculator.Options{MinPeriods: c.MinPeriods})
	if err != nil {
		return nil, fmt.Errorf("compute %s: %w", ticker, err)
	}
	s.Ticker = ticker
	s.Period = period
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("compute %s: %w", ticker, err)
	}

	if c.Cache != nil {
		c.Cache.Set(ticker, period, s)
	}
	return requireBars(ticker, s, minBars)
}

func requireBars(ticker string, s *model.IndicatorSeries, minBars int) (*model.IndicatorSeries, error) {
	if err := calculator.RequireBars(s, minBars); err != nil {
		return nil, fmt.Errorf("%s: %w", ticker, err)
	}
	return s, nil
}

// Refresh discards every memoized series.
func (c *Collector) Refresh() {
	if c.Cache != nil {
		c.Cache.Invalidate()
	}
	c.log.Info("series cache cleared")
}

// Analysis is the single-ticker view: the series plus its recommendation.
type Analysis struct {
	Series         *model.IndicatorSeries
	Recommendation model.Recommendation
}

// Analyze loads one ticker and derives its buy/sell recommendation.
func (c *Collector) Analyze(ctx context.Context, ticker string) (*Analysis, error) {
	p := strategy.AnalysisProfile
	s, err := c.Load(ctx, ticker, p.Period, p.MinBars)
	if err != nil {
		return nil, err
	}
	rec, err := strategy.Recommend(s)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", ticker, err)
	}
	return &Analysis{Series: s, Recommendation: rec}, nil
}
