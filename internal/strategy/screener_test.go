package strategy

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"MarketScreener/internal/model"
)

func seriesWith(ticker string, f model.Features) *model.IndicatorSeries {
	return &model.IndicatorSeries{
		Ticker: ticker,
		Bars:   []model.PriceBar{{Close: f.Close}},
		Latest: f,
	}
}

func breakout(distance, rsi float64) model.Features {
	return model.Features{
		Close:            100,
		MA50:             90,
		MA200:            80,
		RSI:              rsi,
		DistanceFromHigh: distance,
		VolumeSpike:      true,
		OBVTrend:         true,
	}
}

func TestPolicyAboveMA_Example(t *testing.T) {
	f := model.Features{Close: 110, MA50: 100, MA200: 105}
	assert.True(t, Eligible(model.PolicyAboveMA, f))
	score, err := Score(model.PolicyAboveMA, f)
	require.NoError(t, err)
	assert.InDelta(t, 15.0, score, 1e-9)
}

func TestPolicyAboveMA_Predicates(t *testing.T) {
	tests := []struct {
		name string
		f    model.Features
		want bool
	}{
		{"above both", model.Features{Close: 110, MA50: 100, MA200: 105}, true},
		{"below ma50", model.Features{Close: 99, MA50: 100, MA200: 90}, false},
		{"below ma200", model.Features{Close: 101, MA50: 100, MA200: 102}, false},
		{"equal ma50", model.Features{Close: 100, MA50: 100, MA200: 90}, false},
		{"undefined ma200", model.Features{Close: 110, MA50: 100, MA200: math.NaN()}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Eligible(model.PolicyAboveMA, tt.f))
		})
	}
}

func TestPolicyPreBreakout_Example(t *testing.T) {
	f := breakout(0.01, 55)
	assert.True(t, Eligible(model.PolicyPreBreakout, f))
	score, err := Score(model.PolicyPreBreakout, f)
	require.NoError(t, err)
	assert.InDelta(t, 154.0, score, 1e-9)
}

func TestPolicyPreBreakout_Predicates(t *testing.T) {
	noSpike := breakout(0.01, 55)
	noSpike.VolumeSpike = false
	noTrend := breakout(0.01, 55)
	noTrend.OBVTrend = false

	tests := []struct {
		name string
		f    model.Features
		want bool
	}{
		{"at 2% boundary", breakout(0.02, 55), true},
		{"too far from high", breakout(0.021, 55), false},
		{"rsi at 40", breakout(0.01, 40), false},
		{"rsi at 70", breakout(0.01, 70), false},
		{"rsi just inside", breakout(0.01, 69.9), true},
		{"no volume spike", noSpike, false},
		{"no obv trend", noTrend, false},
		{"undefined rsi", breakout(0.01, math.NaN()), false},
		{"undefined distance", breakout(math.NaN(), 55), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Eligible(model.PolicyPreBreakout, tt.f))
		})
	}
}

func TestScore_UnknownPolicy(t *testing.T) {
	_, err := Score("momentum", model.Features{})
	assert.Error(t, err)
	assert.False(t, Eligible("momentum", model.Features{Close: 1}))
}

func TestScreen_RanksAndTruncates(t *testing.T) {
	series := []*model.IndicatorSeries{
		seriesWith("AAA", model.Features{Close: 110, MA50: 100, MA200: 105}), // 15
		seriesWith("BBB", model.Features{Close: 90, MA50: 100, MA200: 105}),  // ineligible
		seriesWith("CCC", model.Features{Close: 130, MA50: 100, MA200: 100}), // 60
		seriesWith("DDD", model.Features{Close: 102, MA50: 100, MA200: 101}), // 3
	}
	got := Screen(series, Options{Policy: model.PolicyAboveMA, TopK: 2})
	require.Len(t, got, 2)
	assert.Equal(t, "CCC", got[0].Ticker)
	assert.Equal(t, "AAA", got[1].Ticker)
	assert.InDelta(t, 60.0, got[0].Score, 1e-9)
}

func TestScreen_EmptyIsNotNil(t *testing.T) {
	got := Screen([]*model.IndicatorSeries{
		seriesWith("BBB", model.Features{Close: 90, MA50: 100, MA200: 105}),
		nil,
	}, Options{Policy: model.PolicyAboveMA})
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestScreen_TieKeepsInputOrder(t *testing.T) {
	f := model.Features{Close: 110, MA50: 100, MA200: 105}
	series := []*model.IndicatorSeries{
		seriesWith("ZZZ", f),
		seriesWith("AAA", f),
		seriesWith("MMM", f),
	}
	got := Screen(series, Options{Policy: model.PolicyAboveMA})
	require.Len(t, got, 3)
	assert.Equal(t, []string{"ZZZ", "AAA", "MMM"}, tickers(got))
}

func TestScreen_MaxEligibleStopsScan(t *testing.T) {
	series := []*model.IndicatorSeries{
		seriesWith("A", model.Features{Close: 101, MA50: 100, MA200: 100}),
		seriesWith("B", model.Features{Close: 102, MA50: 100, MA200: 100}),
		seriesWith("C", model.Features{Close: 200, MA50: 100, MA200: 100}),
	}
	capped := Screen(series, Options{Policy: model.PolicyAboveMA, MaxEligible: 2})
	assert.Equal(t, []string{"B", "A"}, tickers(capped))

	full := Screen(series, Options{Policy: model.PolicyAboveMA})
	assert.Equal(t, []string{"C", "B", "A"}, tickers(full))
}

func TestScreen_DistanceRanking(t *testing.T) {
	series := []*model.IndicatorSeries{
		seriesWith("FAR", breakout(0.015, 45)),
		seriesWith("NEAR", breakout(0.001, 41)),
		seriesWith("MID", breakout(0.008, 65)),
	}
	byScore := Screen(series, Options{Policy: model.PolicyPreBreakout})
	assert.Equal(t, []string{"MID", "FAR", "NEAR"}, tickers(byScore))

	byDistance := Screen(series, Options{Policy: model.PolicyPreBreakout, Ranking: model.RankByDistance})
	assert.Equal(t, []string{"NEAR", "MID", "FAR"}, tickers(byDistance))
}

func TestRank_UndefinedDistanceLast(t *testing.T) {
	in := []model.Candidate{
		{Ticker: "X", DistanceFromHigh: math.NaN()},
		{Ticker: "Y", DistanceFromHigh: 0.05},
		{Ticker: "Z", DistanceFromHigh: 0.01},
	}
	got := Rank(in, model.RankByDistance, 0)
	assert.Equal(t, []string{"Z", "Y", "X"}, tickers(got))
	assert.Equal(t, "X", in[0].Ticker, "input must not be reordered")
}

func TestScreen_Idempotent(t *testing.T) {
	series := []*model.IndicatorSeries{
		seriesWith("A", breakout(0.01, 50)),
		seriesWith("B", breakout(0.01, 50)),
		seriesWith("C", breakout(0.005, 60)),
	}
	opts := Options{Policy: model.PolicyPreBreakout, TopK: 5}
	assert.Equal(t, Screen(series, opts), Screen(series, opts))
}

func TestRecommend(t *testing.T) {
	rec, err := Recommend(seriesWith("A", model.Features{Close: 110, MA50: 100, MA200: 120}))
	require.NoError(t, err)
	assert.True(t, rec.Favorable)
	assert.Equal(t, "BUY", rec.Label())

	rec, err = Recommend(seriesWith("A", model.Features{Close: 100, MA50: 100}))
	require.NoError(t, err)
	assert.False(t, rec.Favorable)
	assert.Equal(t, "SELL", rec.Label())

	_, err = Recommend(seriesWith("A", model.Features{Close: 100, MA50: math.NaN()}))
	assert.ErrorIs(t, err, ErrNoRecommendation)
	_, err = Recommend(nil)
	assert.ErrorIs(t, err, ErrNoRecommendation)
}

func TestProfileFor(t *testing.T) {
	assert.Equal(t, Profile{Period: model.PeriodOneYear, MinBars: 200}, ProfileFor(model.PolicyAboveMA))
	assert.Equal(t, Profile{Period: model.PeriodSixMonths, MinBars: 50}, ProfileFor(model.PolicyPreBreakout))
}

func tickers(cs []model.Candidate) []string {
	out := make([]string, len(cs))
	for i, c := range cs {
		out[i] = c.Ticker
	}
	return out
}
