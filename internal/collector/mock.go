package collector

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"MarketScreener/internal/model"
)

// MockFetcher returns controllable fixed data for development and testing.
type MockFetcher struct {
	// Price seeds generated bars for symbols without explicit Bars. Zero means ErrNoData.
	Price  float64
	Count  int
	Bars   map[string][]model.PriceBar
	Errors map[string]error
	// Delay simulates a slow source; it honours ctx cancellation.
	Delay time.Duration

	calls atomic.Int64
}

func (m *MockFetcher) Name() string { return "mock" }

// Calls returns how many times FetchBars ran.
func (m *MockFetcher) Calls() int64 { return m.calls.Load() }

func (m *MockFetcher) FetchBars(ctx context.Context, symbol string, period model.Period) ([]model.PriceBar, error) {
	m.calls.Add(1)
	if m.Delay > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(m.Delay):
		}
	}
	symbol = strings.ToUpper(symbol)
	if err, ok := m.Errors[symbol]; ok {
		return nil, err
	}
	if bars, ok := m.Bars[symbol]; ok {
		if len(bars) == 0 {
			return nil, fmt.Errorf("mock %s: %w", symbol, ErrNoData)
		}
		return append([]model.PriceBar(nil), bars...), nil
	}
	if m.Price <= 0 {
		return nil, fmt.Errorf("mock %s: %w", symbol, ErrNoData)
	}
	count := m.Count
	if count == 0 {
		count = 252
		if period == model.PeriodSixMonths {
			count = 126
		}
	}
	return GenerateBars(m.Price, count, time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC)), nil
}

// GenerateBars builds a gently rising daily series starting at start.
func GenerateBars(basePrice float64, count int, start time.Time) []model.PriceBar {
	bars := make([]model.PriceBar, count)
	for i := 0; i < count; i++ {
		p := basePrice * (1 + float64(i-count/2)*0.001)
		bars[i] = model.PriceBar{
			Time:   start.AddDate(0, 0, i),
			Open:   p * 0.999,
			High:   p * 1.005,
			Low:    p * 0.995,
			Close:  p,
			Volume: 1000000,
		}
	}
	return bars
}
