package api

import (
	"math"
	"time"

	"MarketScreener/internal/collector"
	"MarketScreener/internal/model"
)

// opt maps NaN to null, which encoding/json cannot represent otherwise.
func opt(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

// ErrorResponse is the body of every non-2xx reply.
type ErrorResponse struct {
	Error string `json:"error"`
}

// CandidateResponse is one ranked screening hit.
type CandidateResponse struct {
	Rank             int      `json:"rank"`
	Ticker           string   `json:"ticker"`
	Price            float64  `json:"price"`
	MA50             *float64 `json:"ma50"`
	MA200            *float64 `json:"ma200"`
	DistanceFromHigh *float64 `json:"distance_from_high"`
	VolumeRatio      *float64 `json:"volume_ratio"`
	RSI              *float64 `json:"rsi"`
	VolumeSpike      bool     `json:"volume_spike"`
	OBVTrend         bool     `json:"obv_trend"`
	Score            *float64 `json:"score"`
}

// ScreenResponse is the result of GET /screen.
type ScreenResponse struct {
	RunID      string              `json:"run_id"`
	Policy     model.Policy        `json:"policy"`
	Ranking    model.Ranking       `json:"ranking"`
	Scanned    int                 `json:"scanned"`
	Eligible   int                 `json:"eligible"`
	Skipped    []collector.Skip    `json:"skipped"`
	Candidates []CandidateResponse `json:"candidates"`
	StartedAt  time.Time           `json:"started_at"`
	FinishedAt time.Time           `json:"finished_at"`
	Message    string              `json:"message,omitempty"`
}

func newScreenResponse(res *collector.ScreenResult, runID string) ScreenResponse {
	out := ScreenResponse{
		RunID:      runID,
		Policy:     res.Policy,
		Ranking:    res.Ranking,
		Scanned:    res.Scanned,
		Eligible:   res.Eligible,
		Skipped:    res.Skipped,
		Candidates: make([]CandidateResponse, len(res.Candidates)),
		StartedAt:  res.StartedAt,
		FinishedAt: res.FinishedAt,
	}
	for i, c := range res.Candidates {
		out.Candidates[i] = CandidateResponse{
			Rank:             i + 1,
			Ticker:           c.Ticker,
			Price:            c.Price,
			MA50:             opt(c.MA50),
			MA200:            opt(c.MA200),
			DistanceFromHigh: opt(c.DistanceFromHigh),
			VolumeRatio:      opt(c.VolumeRatio),
			RSI:              opt(c.RSI),
			VolumeSpike:      c.VolumeSpike,
			OBVTrend:         c.OBVTrend,
			Score:            opt(c.Score),
		}
	}
	if len(out.Candidates) == 0 {
		out.Message = "no stocks currently match the criteria"
	}
	return out
}

// RowResponse is one bar of an indicator series.
type RowResponse struct {
	Date      string   `json:"date"`
	Open      float64  `json:"open"`
	High      float64  `json:"high"`
	Low       float64  `json:"low"`
	Close     float64  `json:"close"`
	Volume    float64  `json:"volume"`
	MA20      *float64 `json:"ma20"`
	MA50      *float64 `json:"ma50"`
	MA200     *float64 `json:"ma200"`
	RSI14     *float64 `json:"rsi14"`
	OBV       *float64 `json:"obv"`
	High63    *float64 `json:"high63"`
	VolMean20 *float64 `json:"vol_mean20"`
}

// AnalysisResponse is the result of GET /analyze/:ticker.
type AnalysisResponse struct {
	Ticker         string        `json:"ticker"`
	Recommendation string        `json:"recommendation"`
	Favorable      bool          `json:"favorable"`
	Close          float64       `json:"close"`
	MA50           *float64      `json:"ma50"`
	MA200          *float64      `json:"ma200"`
	RSI            *float64      `json:"rsi"`
	High63         *float64      `json:"high63"`
	VolumeSpike    bool          `json:"volume_spike"`
	OBVTrend       bool          `json:"obv_trend"`
	Rows           []RowResponse `json:"rows"`
}

func newAnalysisResponse(a *collector.Analysis, rows int) AnalysisResponse {
	f := a.Series.Latest
	tail := a.Series.Tail(rows)
	out := AnalysisResponse{
		Ticker:         a.Series.Ticker,
		Recommendation: a.Recommendation.Label(),
		Favorable:      a.Recommendation.Favorable,
		Close:          f.Close,
		MA50:           opt(f.MA50),
		MA200:          opt(f.MA200),
		RSI:            opt(f.RSI),
		High63:         opt(f.High63),
		VolumeSpike:    f.VolumeSpike,
		OBVTrend:       f.OBVTrend,
		Rows:           make([]RowResponse, tail.Len()),
	}
	for i, b := range tail.Bars {
		out.Rows[i] = RowResponse{
			Date:      b.Time.Format("2006-01-02"),
			Open:      b.Open,
			High:      b.High,
			Low:       b.Low,
			Close:     b.Close,
			Volume:    b.Volume,
			MA20:      opt(tail.MA20[i]),
			MA50:      opt(tail.MA50[i]),
			MA200:     opt(tail.MA200[i]),
			RSI14:     opt(tail.RSI14[i]),
			OBV:       opt(tail.OBV[i]),
			High63:    opt(tail.High63[i]),
			VolMean20: opt(tail.VolMean20[i]),
		}
	}
	return out
}
