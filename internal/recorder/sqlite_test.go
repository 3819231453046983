package recorder

import (
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"MarketScreener/internal/collector"
	"MarketScreener/internal/model"
)

func newTestRecorder(t *testing.T) *SQLiteRecorder {
	t.Helper()
	r, err := NewSQLiteRecorder(filepath.Join(t.TempDir(), "history.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { r.Close() })
	return r
}

func sampleResult(start time.Time, tickers ...string) *collector.ScreenResult {
	res := &collector.ScreenResult{
		Policy:     model.PolicyPreBreakout,
		Ranking:    model.RankByScore,
		Scanned:    40,
		Eligible:   len(tickers),
		Skipped:    []collector.Skip{{Ticker: "XXX", Reason: "no data"}},
		StartedAt:  start,
		FinishedAt: start.Add(3 * time.Second),
	}
	for i, tk := range tickers {
		res.Candidates = append(res.Candidates, model.Candidate{
			Ticker:           tk,
			Price:            100 + float64(i),
			MA50:             95,
			MA200:            math.NaN(),
			DistanceFromHigh: 0.01,
			VolumeRatio:      1.8,
			RSI:              55,
			VolumeSpike:      true,
			OBVTrend:         true,
			Score:            150 - float64(i),
		})
	}
	return res
}

func TestSQLiteRecorder_ScreenRuns(t *testing.T) {
	r := newTestRecorder(t)
	t0 := time.Date(2026, 3, 2, 22, 30, 0, 0, time.UTC)

	first := &ScreenRun{Trigger: TriggerCron, Result: sampleResult(t0, "NVDA", "AMD")}
	id1, err := r.RecordScreen(first)
	require.NoError(t, err)
	assert.NotEmpty(t, id1)
	assert.Equal(t, id1, first.ID)

	id2, err := r.RecordScreen(&ScreenRun{ID: "fixed-id", Trigger: TriggerTelegram, Result: sampleResult(t0.Add(24*time.Hour), "MSFT")})
	require.NoError(t, err)
	assert.Equal(t, "fixed-id", id2)

	runs, err := r.RecentRuns(10)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "fixed-id", runs[0].ID)
	assert.Equal(t, TriggerTelegram, runs[0].Trigger)
	assert.Equal(t, "MSFT", runs[0].Top)
	assert.Equal(t, id1, runs[1].ID)
	assert.Equal(t, "NVDA, AMD", runs[1].Top)
	assert.Equal(t, "pre-breakout", runs[1].Policy)
	assert.Equal(t, 40, runs[1].Scanned)
	assert.Equal(t, 1, runs[1].Skipped)
	assert.True(t, runs[1].StartedAt.Equal(t0))

	runs, err = r.RecentRuns(1)
	require.NoError(t, err)
	assert.Len(t, runs, 1)
}

func TestSQLiteRecorder_DuplicateRunRollsBack(t *testing.T) {
	r := newTestRecorder(t)
	t0 := time.Now()
	_, err := r.RecordScreen(&ScreenRun{ID: "dup", Trigger: TriggerCLI, Result: sampleResult(t0, "A")})
	require.NoError(t, err)
	_, err = r.RecordScreen(&ScreenRun{ID: "dup", Trigger: TriggerCLI, Result: sampleResult(t0, "B")})
	assert.Error(t, err)

	runs, err := r.RecentRuns(5)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "A", runs[0].Top)
}

func TestSQLiteRecorder_Analysis(t *testing.T) {
	r := newTestRecorder(t)
	err := r.RecordAnalysis(&AnalysisEvent{
		Ticker:         "AAPL",
		Recommendation: model.Recommendation{Favorable: true, Close: 190, MA50: 180, MA200: math.NaN()},
		RSI:            61,
	})
	require.NoError(t, err)

	var n int
	require.NoError(t, r.db.QueryRow(`SELECT COUNT(*) FROM analyses WHERE ticker = 'AAPL' AND ma200 IS NULL`).Scan(&n))
	assert.Equal(t, 1, n)
}

func TestSQLiteRecorder_RejectsEmptyRun(t *testing.T) {
	r := newTestRecorder(t)
	_, err := r.RecordScreen(&ScreenRun{Trigger: TriggerAPI})
	assert.Error(t, err)
}

func TestNoopRecorder(t *testing.T) {
	var r Recorder = NewNoopRecorder()
	run := &ScreenRun{Result: sampleResult(time.Now())}
	id, err := r.RecordScreen(run)
	require.NoError(t, err)
	assert.NotEmpty(t, id)
	runs, err := r.RecentRuns(3)
	require.NoError(t, err)
	assert.Empty(t, runs)
	assert.NoError(t, r.Close())
}
