package collector

import (
	"context"
	"fmt"
	"time"

	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"
	"golang.org/x/time/rate"

	"MarketScreener/internal/model"
)

// AlpacaFetcher implements Fetcher using the Alpaca market-data API.
type AlpacaFetcher struct {
	client  *marketdata.Client
	limiter *rate.Limiter
	now     func() time.Time
}

// NewAlpacaFetcher creates a fetcher for the given credentials. dataURL may be empty.
func NewAlpacaFetcher(apiKey, apiSecret, dataURL string, perSecond float64) *AlpacaFetcher {
	opts := marketdata.ClientOpts{
		APIKey:    apiKey,
		APISecret: apiSecret,
	}
	if dataURL != "" {
		opts.BaseURL = dataURL
	}
	return &AlpacaFetcher{
		client:  marketdata.NewClient(opts),
		limiter: newLimiter(perSecond),
		now:     time.Now,
	}
}

func (f *AlpacaFetcher) Name() string { return "alpaca" }

// FetchBars requests daily bars covering the period up to now.
func (f *AlpacaFetcher) FetchBars(ctx context.Context, symbol string, period model.Period) ([]model.PriceBar, error) {
	if err := f.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	end := f.now().UTC()
	alpacaBars, err := f.client.GetBars(symbol, marketdata.GetBarsRequest{
		TimeFrame: marketdata.OneDay,
		Start:     period.Since(end),
		End:       end,
	})
	if err != nil {
		return nil, fmt.Errorf("alpaca GetBars %s: %w", symbol, err)
	}
	if len(alpacaBars) == 0 {
		return nil, fmt.Errorf("alpaca %s: %w", symbol, ErrNoData)
	}

	bars := make([]model.PriceBar, len(alpacaBars))
	for i, ab := range alpacaBars {
		bars[i] = model.PriceBar{
			Time:   ab.Timestamp,
			Open:   ab.Open,
			High:   ab.High,
			Low:    ab.Low,
			Close:  ab.Close,
			Volume: float64(ab.Volume),
		}
	}
	return sortBars(bars), nil
}
