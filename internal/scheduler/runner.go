package scheduler

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"MarketScreener/internal/collector"
	"MarketScreener/internal/logger"
	"MarketScreener/internal/recorder"
	"MarketScreener/internal/strategy"
)

// Runner executes screens and analyses on behalf of the CLI, cron, telegram and the API.
type Runner struct {
	TickerSource collector.TickerProvider
	Collector    *collector.Collector
	Scanner      *collector.Scanner
	Recorder     recorder.Recorder
	Defaults     strategy.Options
	log          *zap.Logger
}

// NewRunner creates a Runner. A nil recorder disables history.
func NewRunner(tickers collector.TickerProvider, scanner *collector.Scanner, rec recorder.Recorder, defaults strategy.Options, log *zap.Logger) *Runner {
	if rec == nil {
		rec = recorder.NewNoopRecorder()
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Runner{
		TickerSource: tickers,
		Collector:    scanner.Collector,
		Scanner:      scanner,
		Recorder:     rec,
		Defaults:     defaults.Normalize(),
		log:          log,
	}
}

// Tickers returns the screening universe.
func (r *Runner) Tickers(ctx context.Context) ([]string, error) {
	return r.TickerSource.Tickers(ctx)
}

// Screen scans the universe with opts and records the run. Recorder failures are logged only.
func (r *Runner) Screen(ctx context.Context, opts strategy.Options, trigger recorder.Trigger) (*collector.ScreenResult, string, error) {
	tickers, err := r.TickerSource.Tickers(ctx)
	if err != nil {
		return nil, "", fmt.Errorf("load tickers: %w", err)
	}
	res, err := r.Scanner.Screen(ctx, tickers, opts)
	if err != nil {
		return nil, "", err
	}
	run := &recorder.ScreenRun{Trigger: trigger, Result: res}
	id, err := r.Recorder.RecordScreen(run)
	if err != nil {
		r.log.Error("record screen run", zap.Error(err))
		id = run.ID
	}
	return res, id, nil
}

// Analyze runs the single-ticker view and records it.
func (r *Runner) Analyze(ctx context.Context, ticker string) (*collector.Analysis, error) {
	a, err := r.Collector.Analyze(ctx, ticker)
	if err != nil {
		return nil, err
	}
	evt := &recorder.AnalysisEvent{
		Ticker:         a.Series.Ticker,
		Recommendation: a.Recommendation,
		RSI:            a.Series.Latest.RSI,
	}
	if err := r.Recorder.RecordAnalysis(evt); err != nil {
		r.log.Error("record analysis", logger.Ticker(a.Series.Ticker), zap.Error(err))
	}
	return a, nil
}

// Refresh discards cached market data.
func (r *Runner) Refresh() {
	r.Collector.Refresh()
}

// RecentRuns lists recorded screening runs, newest first.
func (r *Runner) RecentRuns(limit int) ([]recorder.RunSummary, error) {
	return r.Recorder.RecentRuns(limit)
}
