package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"MarketScreener/internal/cache"
	"MarketScreener/internal/calculator"
	"MarketScreener/internal/collector"
	"MarketScreener/internal/model"
	"MarketScreener/internal/recorder"
	"MarketScreener/internal/strategy"
	"MarketScreener/internal/watchlist"
)

type captureSender struct {
	mu   sync.Mutex
	msgs []string
	err  error
}

func (c *captureSender) Send(_ context.Context, text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.msgs = append(c.msgs, text)
	return c.err
}

type spyRecorder struct {
	recorder.NoopRecorder
	runs     []*recorder.ScreenRun
	analyses []*recorder.AnalysisEvent
	fail     bool
}

func (s *spyRecorder) RecordScreen(run *recorder.ScreenRun) (string, error) {
	if s.fail {
		return "", errors.New("disk full")
	}
	s.runs = append(s.runs, run)
	return s.NoopRecorder.RecordScreen(run)
}

func (s *spyRecorder) RecordAnalysis(evt *recorder.AnalysisEvent) error {
	s.analyses = append(s.analyses, evt)
	return nil
}

type failingTickers struct{ err error }

func (f failingTickers) Tickers(context.Context) ([]string, error) { return nil, f.err }

func trend(base, step float64, n int) []model.PriceBar {
	start := time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC)
	bars := make([]model.PriceBar, n)
	for i := range bars {
		c := base + step*float64(i)
		bars[i] = model.PriceBar{Time: start.AddDate(0, 0, i), Open: c, High: c, Low: c, Close: c, Volume: 1000}
	}
	return bars
}

func newTestScheduler(t *testing.T, rec recorder.Recorder) (*Scheduler, *collector.MockFetcher, *captureSender) {
	t.Helper()
	mock := &collector.MockFetcher{
		Bars: map[string][]model.PriceBar{
			"UP":    trend(100, 0.5, 260),
			"DOWN":  trend(300, -0.5, 260),
			"SHORT": trend(100, 1, 20),
		},
		Errors: map[string]error{"BROKEN": errors.New("connection reset")},
	}
	col := collector.NewCollector(mock, cache.New(time.Hour), calculator.MinPeriodsRelaxed, nil)
	scanner := collector.NewScanner(col, 2, 100, nil)
	runner := NewRunner(collector.StaticTickers{"up", "down", "short"}, scanner, rec, strategy.Options{TopK: 3}, nil)
	sender := &captureSender{}
	return NewScheduler(context.Background(), runner, sender, nil), mock, sender
}

func TestRunNow_SendsAndRecords(t *testing.T) {
	rec := &spyRecorder{}
	s, _, sender := newTestScheduler(t, rec)

	s.RunNow()

	require.Len(t, sender.msgs, 1)
	assert.Contains(t, sender.msgs[0], "<b>UP</b>")
	assert.NotContains(t, sender.msgs[0], "<b>DOWN</b>")
	require.Len(t, rec.runs, 1)
	assert.Equal(t, recorder.TriggerCron, rec.runs[0].Trigger)
	assert.Contains(t, sender.msgs[0], rec.runs[0].ID)
	assert.Equal(t, 3, rec.runs[0].Result.Scanned)
}

func TestRunNow_ReportsWatchlistChanges(t *testing.T) {
	rec := &spyRecorder{}
	s, mock, sender := newTestScheduler(t, rec)
	wl, err := watchlist.NewManager("", nil)
	require.NoError(t, err)
	s.Watch = wl

	s.RunNow()
	require.Len(t, sender.msgs, 1)
	assert.NotContains(t, sender.msgs[0], "New:")
	assert.NotContains(t, sender.msgs[0], "Changes since")

	mock.Bars["DOWN"] = trend(100, 0.2, 260)
	s.Runner.Refresh()
	s.RunNow()
	require.Len(t, sender.msgs, 2)
	assert.Contains(t, sender.msgs[1], "Changes since run <code>"+rec.runs[0].ID+"</code>:")
	assert.Contains(t, sender.msgs[1], "New: DOWN")

	s.RunNow()
	require.Len(t, sender.msgs, 3)
	assert.Contains(t, sender.msgs[2], "No changes since run <code>"+rec.runs[1].ID+"</code>.")
}

func TestRunNow_RecorderFailureStillReports(t *testing.T) {
	s, _, sender := newTestScheduler(t, &spyRecorder{fail: true})
	s.RunNow()
	require.Len(t, sender.msgs, 1)
	assert.Contains(t, sender.msgs[0], "<b>UP</b>")
}

func TestHandleCommand(t *testing.T) {
	rec := &spyRecorder{}
	s, mock, _ := newTestScheduler(t, rec)
	ctx := context.Background()

	reply := s.HandleCommand(ctx, "/screen@screener_bot pre-breakout")
	assert.Contains(t, reply, "Pre-breakout")
	require.Len(t, rec.runs, 1)
	assert.Equal(t, recorder.TriggerTelegram, rec.runs[0].Trigger)
	assert.Equal(t, model.PolicyPreBreakout, rec.runs[0].Result.Policy)

	assert.Contains(t, s.HandleCommand(ctx, "/screen sideways"), "unknown policy")

	reply = s.HandleCommand(ctx, "/analyze up")
	assert.Contains(t, reply, "Recommendation: BUY")
	require.Len(t, rec.analyses, 1)
	assert.Equal(t, "UP", rec.analyses[0].Ticker)

	assert.Contains(t, s.HandleCommand(ctx, "/analyze down"), "Recommendation: SELL")
	assert.Contains(t, s.HandleCommand(ctx, "/analyze short"), "No usable data")
	assert.Contains(t, s.HandleCommand(ctx, "/analyze nothing"), "No usable data")
	assert.Contains(t, s.HandleCommand(ctx, "/analyze broken"), "Analyze BROKEN failed")
	assert.Equal(t, "Usage: /analyze TICKER", s.HandleCommand(ctx, "/analyze"))

	calls := mock.Calls()
	s.HandleCommand(ctx, "/analyze up")
	assert.Equal(t, calls, mock.Calls(), "second analyze should hit the cache")
	assert.Contains(t, s.HandleCommand(ctx, "/refresh"), "cleared")
	s.HandleCommand(ctx, "/analyze up")
	assert.Equal(t, calls+1, mock.Calls())

	assert.Contains(t, s.HandleCommand(ctx, "/runs"), "No screening runs")
	assert.Contains(t, s.HandleCommand(ctx, "hello"), "/analyze TICKER")
	assert.Contains(t, s.HandleCommand(ctx, ""), "/analyze TICKER")
}

func TestRegister(t *testing.T) {
	s, _, _ := newTestScheduler(t, nil)
	assert.Error(t, s.Register("not a cron"))
	require.NoError(t, s.Register("0 30 22 * * 1-5"))
	assert.Len(t, s.Cron.Entries(), 1)
	s.Start()
	s.Stop()
}

func TestScreenFailureReported(t *testing.T) {
	s, _, sender := newTestScheduler(t, nil)
	s.Runner.TickerSource = collector.StaticTickers{}
	s.RunNow()
	require.Len(t, sender.msgs, 1)
	assert.Contains(t, sender.msgs[0], "Screen failed")
}

func TestErrorRepliesAreEscaped(t *testing.T) {
	s, mock, sender := newTestScheduler(t, nil)
	ctx := context.Background()

	reply := s.HandleCommand(ctx, "/screen <b>&")
	assert.Contains(t, reply, "&lt;b&gt;&amp;")
	assert.NotContains(t, reply, "<b>")

	mock.Errors["BROKEN"] = errors.New("upstream said <html>")
	reply = s.HandleCommand(ctx, "/analyze broken")
	assert.Contains(t, reply, "upstream said &lt;html&gt;")
	assert.NotContains(t, reply, "<html>")

	s.Runner.TickerSource = failingTickers{err: errors.New("bad row <tr> & more")}
	s.RunNow()
	require.Len(t, sender.msgs, 1)
	assert.Contains(t, sender.msgs[0], "bad row &lt;tr&gt; &amp; more")
}
