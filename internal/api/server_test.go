package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"MarketScreener/internal/cache"
	"MarketScreener/internal/calculator"
	"MarketScreener/internal/collector"
	"MarketScreener/internal/model"
	"MarketScreener/internal/recorder"
	"MarketScreener/internal/scheduler"
	"MarketScreener/internal/strategy"
)

func trend(base, step float64, n int) []model.PriceBar {
	start := time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC)
	bars := make([]model.PriceBar, n)
	for i := range bars {
		c := base + step*float64(i)
		bars[i] = model.PriceBar{Time: start.AddDate(0, 0, i), Open: c, High: c, Low: c, Close: c, Volume: 1000}
	}
	return bars
}

func newTestServer(t *testing.T, tickers collector.StaticTickers) (*Server, *collector.MockFetcher) {
	t.Helper()
	mock := &collector.MockFetcher{
		Bars: map[string][]model.PriceBar{
			"UP":    trend(100, 0.5, 260),
			"UP2":   trend(50, 0.1, 260),
			"DOWN":  trend(300, -0.5, 260),
			"SHORT": trend(100, 1, 20),
		},
		Errors: map[string]error{"BROKEN": errors.New("upstream 500")},
	}
	col := collector.NewCollector(mock, cache.New(time.Hour), calculator.MinPeriodsRelaxed, nil)
	scanner := collector.NewScanner(col, 2, 100, nil)
	runner := scheduler.NewRunner(tickers, scanner, recorder.NewNoopRecorder(), strategy.Options{}, nil)
	return NewServer(runner, strategy.Options{TopK: 5, MaxEligible: 20}, nil), mock
}

func do(t *testing.T, s *Server, method, target string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, target, nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	var body map[string]any
	if rec.Body.Len() > 0 && rec.Body.Bytes()[0] == '{' {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	}
	return rec, body
}

func TestHealthAndTickers(t *testing.T) {
	s, _ := newTestServer(t, collector.StaticTickers{"up", "brk.b", "UP"})

	rec, _ := do(t, s, http.MethodGet, "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, body := do(t, s, http.MethodGet, "/api/v1/tickers")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(2), body["count"])
	assert.Equal(t, []any{"UP", "BRK-B"}, body["tickers"])

	empty, _ := newTestServer(t, collector.StaticTickers{})
	rec, _ = do(t, empty, http.MethodGet, "/api/v1/tickers")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetAnalysis(t *testing.T) {
	s, _ := newTestServer(t, collector.StaticTickers{"UP"})

	rec, body := do(t, s, http.MethodGet, "/api/v1/analyze/up")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "UP", body["ticker"])
	assert.Equal(t, "BUY", body["recommendation"])
	rows := body["rows"].([]any)
	require.Len(t, rows, AnalysisRows)
	last := rows[len(rows)-1].(map[string]any)
	assert.Equal(t, "2025-09-18", last["date"])
	assert.NotNil(t, last["ma200"])

	rec, body = do(t, s, http.MethodGet, "/api/v1/analyze/down")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "SELL", body["recommendation"])

	rec, _ = do(t, s, http.MethodGet, "/api/v1/analyze/short")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec, _ = do(t, s, http.MethodGet, "/api/v1/analyze/missing")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec, body = do(t, s, http.MethodGet, "/api/v1/analyze/broken")
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Contains(t, body["error"], "upstream 500")
}

func TestGetAnalysis_UndefinedBecomesNull(t *testing.T) {
	mock := &collector.MockFetcher{Bars: map[string][]model.PriceBar{"YOUNG": trend(10, 0.1, 60)}}
	col := collector.NewCollector(mock, nil, calculator.MinPeriodsStrict, nil)
	runner := scheduler.NewRunner(collector.StaticTickers{"YOUNG"}, collector.NewScanner(col, 1, 0, nil), nil, strategy.Options{}, nil)
	s := NewServer(runner, strategy.Options{}, nil)

	rec, body := do(t, s, http.MethodGet, "/api/v1/analyze/young")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Nil(t, body["ma200"])
	assert.NotNil(t, body["ma50"])
	rows := body["rows"].([]any)
	assert.Nil(t, rows[0].(map[string]any)["ma200"])
	assert.NotNil(t, rows[0].(map[string]any)["ma20"])
}

func TestGetScreen(t *testing.T) {
	s, _ := newTestServer(t, collector.StaticTickers{"DOWN", "UP", "SHORT", "UP2", "MISSING"})

	rec, body := do(t, s, http.MethodGet, "/api/v1/screen?top=1")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "above-ma", body["policy"])
	assert.Equal(t, float64(5), body["scanned"])
	assert.Equal(t, float64(2), body["eligible"])
	cands := body["candidates"].([]any)
	require.Len(t, cands, 1)
	assert.Equal(t, float64(1), cands[0].(map[string]any)["rank"])
	assert.Len(t, body["skipped"], 2)
	assert.NotEmpty(t, body["run_id"])

	rec, body = do(t, s, http.MethodGet, "/api/v1/screen?policy=pre-breakout&ranking=distance")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "pre-breakout", body["policy"])
	assert.Equal(t, "distance", body["ranking"])

	for _, q := range []string{"policy=sideways", "ranking=alpha", "top=0", "top=x", "max_eligible=-1"} {
		rec, _ = do(t, s, http.MethodGet, "/api/v1/screen?"+q)
		assert.Equal(t, http.StatusBadRequest, rec.Code, q)
	}
}

func TestGetScreen_NoMatches(t *testing.T) {
	s, _ := newTestServer(t, collector.StaticTickers{"DOWN"})
	rec, body := do(t, s, http.MethodGet, "/api/v1/screen")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []any{}, body["candidates"])
	assert.Equal(t, "no stocks currently match the criteria", body["message"])
}

func TestRefreshAndRuns(t *testing.T) {
	s, mock := newTestServer(t, collector.StaticTickers{"UP"})

	do(t, s, http.MethodGet, "/api/v1/analyze/up")
	do(t, s, http.MethodGet, "/api/v1/analyze/up")
	assert.Equal(t, int64(1), mock.Calls())

	rec, body := do(t, s, http.MethodPost, "/api/v1/refresh")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "cleared", body["status"])

	do(t, s, http.MethodGet, "/api/v1/analyze/up")
	assert.Equal(t, int64(2), mock.Calls())

	rec, _ = do(t, s, http.MethodGet, "/api/v1/runs?limit=3")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())

	rec, _ = do(t, s, http.MethodGet, "/api/v1/runs?limit=zero")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
