// Package cache memoizes computed indicator series per (ticker, period).
package cache

import (
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"MarketScreener/internal/model"
)

// SeriesCache is an explicit, caller-owned memo of indicator series.
type SeriesCache struct {
	items *gocache.Cache
}

// New creates a cache whose entries expire after ttl. A negative ttl disables expiry.
func New(ttl time.Duration) *SeriesCache {
	if ttl < 0 {
		ttl = gocache.NoExpiration
	}
	cleanup := ttl * 2
	if ttl <= 0 {
		cleanup = 0
	}
	return &SeriesCache{items: gocache.New(ttl, cleanup)}
}

func key(ticker string, period model.Period) string {
	return strings.ToUpper(ticker) + "|" + string(period)
}

// Get returns the memoized series, if any.
func (c *SeriesCache) Get(ticker string, period model.Period) (*model.IndicatorSeries, bool) {
	v, ok := c.items.Get(key(ticker, period))
	if !ok {
		return nil, false
	}
	s, ok := v.(*model.IndicatorSeries)
	return s, ok
}

// Set memoizes a series.
func (c *SeriesCache) Set(ticker string, period model.Period, s *model.IndicatorSeries) {
	c.items.SetDefault(key(ticker, period), s)
}

// Invalidate discards every memoized series.
func (c *SeriesCache) Invalidate() {
	c.items.Flush()
}

// Len returns the number of live entries.
func (c *SeriesCache) Len() int {
	return c.items.ItemCount()
}
