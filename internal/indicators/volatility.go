package indicators

import (
	"math"

	"macd-vol-bot/models"
)

// ATR computes the average true range series, index aligned with the
// candles. The mean is a rolling simple average over the period; the first
// `period` bars carry NaN because no full true-range window exists yet.
func ATR(candles []models.Candle, period int) []float64 {
	out := make([]float64, len(candles))
	for i := range out {
		out[i] = math.NaN()
	}
	if len(candles) < period+1 || period <= 0 {
		return out
	}

	tr := make([]float64, len(candles))
	tr[0] = math.NaN()
	for i := 1; i < len(candles); i++ {
		highLow := candles[i].High - candles[i].Low
		highPrevClose := math.Abs(candles[i].High - candles[i-1].Close)
		lowPrevClose := math.Abs(candles[i].Low - candles[i-1].Close)
		tr[i] = math.Max(highLow, math.Max(highPrevClose, lowPrevClose))
	}

	var sum float64
	for i := 1; i < len(candles); i++ {
		sum += tr[i]
		if i > period {
			sum -= tr[i-period]
		}
		if i >= period {
			out[i] = sum / float64(period)
		}
	}
	return out
}

// ATRPercentile ranks each ATR value within its trailing window: the count
// of window values less than or equal to the current value, divided by the
// window size. Ties count as <=, so the result is always in (0, 1]. Bars
// without a full window of defined ATR values carry NaN and must be
// skipped by the caller.
func ATRPercentile(atr []float64, window int) []float64 {
	out := make([]float64, len(atr))
	for i := range out {
		out[i] = math.NaN()
	}
	if window <= 0 {
		return out
	}

	for i := window - 1; i < len(atr); i++ {
		if math.IsNaN(atr[i]) {
			continue
		}
		count := 0
		full := true
		for j := i - window + 1; j <= i; j++ {
			if math.IsNaN(atr[j]) {
				full = false
				break
			}
			if atr[j] <= atr[i] {
				count++
			}
		}
		if full {
			out[i] = float64(count) / float64(window)
		}
	}
	return out
}

// PriceRange describes where the latest close sits inside the recent
// high/low envelope. PositionPct is 0 at the low and 1 at the high.
type PriceRange struct {
	HighMax     float64
	LowMin      float64
	RangeSize   float64
	PositionPct float64
}

// ComputePriceRange looks back over the trailing window (clamped to the
// series length) and locates the latest close within it.
func ComputePriceRange(candles []models.Candle, lookback int) PriceRange {
	if lookback > len(candles) {
		lookback = len(candles)
	}
	pr := PriceRange{PositionPct: 0.5}
	if lookback == 0 {
		return pr
	}

	start := len(candles) - lookback
	pr.HighMax = candles[start].High
	pr.LowMin = candles[start].Low
	for i := start; i < len(candles); i++ {
		if candles[i].High > pr.HighMax {
			pr.HighMax = candles[i].High
		}
		if candles[i].Low < pr.LowMin {
			pr.LowMin = candles[i].Low
		}
	}
	pr.RangeSize = pr.HighMax - pr.LowMin

	current := candles[len(candles)-1].Close
	if pr.RangeSize > 0 {
		pr.PositionPct = (current - pr.LowMin) / pr.RangeSize
	}
	return pr
}

// AverageVolume returns the simple mean volume of the trailing lookback
// bars, or 0 when the series is empty.
func AverageVolume(candles []models.Candle, lookback int) float64 {
	if lookback > len(candles) {
		lookback = len(candles)
	}
	if lookback == 0 {
		return 0
	}
	var sum float64
	for i := len(candles) - lookback; i < len(candles); i++ {
		sum += candles[i].Volume
	}
	return sum / float64(lookback)
}
