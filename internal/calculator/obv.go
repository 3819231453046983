package calculator

import "MarketScreener/internal/model"

// OBVSeries returns on-balance volume with OBV[0] = 0.
// Volume is added on an up close, subtracted on a down close and ignored on a flat close.
func OBVSeries(bars []model.PriceBar) []float64 {
	out := make([]float64, len(bars))
	for i := 1; i < len(bars); i++ {
		switch {
		case bars[i].Close > bars[i-1].Close:
			out[i] = out[i-1] + bars[i].Volume
		case bars[i].Close < bars[i-1].Close:
			out[i] = out[i-1] - bars[i].Volume
		default:
			out[i] = out[i-1]
		}
	}
	return out
}

// OBVTrend reports whether the mean percentage change of OBV over the last `days` changes is positive.
// A change whose previous OBV is zero has no percentage and is skipped.
func OBVTrend(obv []float64, days int) bool {
	start := len(obv) - days
	if start < 1 {
		start = 1
	}
	sum, n := 0.0, 0
	for i := start; i < len(obv); i++ {
		prev := obv[i-1]
		if prev == 0 {
			continue
		}
		sum += (obv[i] - prev) / prev
		n++
	}
	if n == 0 {
		return false
	}
	return sum/float64(n) > 0
}
