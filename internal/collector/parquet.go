package collector

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/parquet-go/parquet-go"

	"MarketScreener/internal/model"
)

// BarRecord is the Parquet schema for a daily bar snapshot.
type BarRecord struct {
	Symbol    string  `parquet:"symbol"`
	Timestamp int64   `parquet:"timestamp"` // Unix ms
	Open      float64 `parquet:"open"`
	High      float64 `parquet:"high"`
	Low       float64 `parquet:"low"`
	Close     float64 `parquet:"close"`
	Volume    float64 `parquet:"volume"`
}

// snapshotPath returns <dir>/<SYMBOL>.parquet.
func snapshotPath(dir, symbol string) string {
	return filepath.Join(dir, strings.ToUpper(symbol)+".parquet")
}

// ParquetWriter stores fetched bars so later runs can screen offline.
type ParquetWriter struct {
	Dir string
}

// WriteBars replaces the snapshot for symbol.
func (w *ParquetWriter) WriteBars(symbol string, bars []model.PriceBar) (string, error) {
	if len(bars) == 0 {
		return "", fmt.Errorf("parquet %s: %w", symbol, ErrNoData)
	}
	records := make([]BarRecord, len(bars))
	for i, b := range bars {
		records[i] = BarRecord{
			Symbol:    strings.ToUpper(symbol),
			Timestamp: b.Time.UnixMilli(),
			Open:      b.Open,
			High:      b.High,
			Low:       b.Low,
			Close:     b.Close,
			Volume:    b.Volume,
		}
	}
	path := snapshotPath(w.Dir, symbol)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", err
	}
	if err := parquet.WriteFile(path, records); err != nil {
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	return path, nil
}

// ParquetFetcher implements Fetcher over snapshots written by ParquetWriter.
type ParquetFetcher struct {
	Dir string
}

func (f *ParquetFetcher) Name() string { return "parquet" }

// FetchBars reads the snapshot and keeps the bars within period of the newest one.
func (f *ParquetFetcher) FetchBars(ctx context.Context, symbol string, period model.Period) ([]model.PriceBar, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path := snapshotPath(f.Dir, symbol)
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("parquet %s: %w", symbol, ErrNoData)
	}
	records, err := parquet.ReadFile[BarRecord](path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("parquet %s: %w", symbol, ErrNoData)
	}

	bars := make([]model.PriceBar, len(records))
	for i, r := range records {
		bars[i] = model.PriceBar{
			Time:   time.UnixMilli(r.Timestamp).UTC(),
			Open:   r.Open,
			High:   r.High,
			Low:    r.Low,
			Close:  r.Close,
			Volume: r.Volume,
		}
	}
	bars = sortBars(bars)

	since := period.Since(bars[len(bars)-1].Time)
	start := 0
	for start < len(bars) && bars[start].Time.Before(since) {
		start++
	}
	return bars[start:], nil
}
