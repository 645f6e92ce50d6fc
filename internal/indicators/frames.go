package indicators

import (
	"math"

	"macd-vol-bot/models"
)

// Params bundles the lookbacks every frame computation needs.
type Params struct {
	MACDFast         int
	MACDSlow         int
	MACDSignal       int
	ATRPeriod        int
	PercentileWindow int
}

// MinBars is the shortest candle series Params can produce a frame from.
// The percentile window dominates in practice (default 200).
func (p Params) MinBars() int {
	min := p.MACDSlow + p.MACDSignal
	if p.ATRPeriod+1 > min {
		min = p.ATRPeriod + 1
	}
	if p.ATRPeriod+p.PercentileWindow > min {
		min = p.ATRPeriod + p.PercentileWindow
	}
	return min
}

// BuildFrames derives the aligned indicator rows for a candle series.
// Output starts at the first bar where every lookback is satisfied; bars
// where the ATR percentile window is not yet full are skipped entirely.
// Returns ErrInsufficientData when no bar qualifies.
func BuildFrames(candles []models.Candle, p Params) ([]models.IndicatorFrame, error) {
	macd, err := MACD(candles, p.MACDFast, p.MACDSlow, p.MACDSignal)
	if err != nil {
		return nil, err
	}
	atr := ATR(candles, p.ATRPeriod)
	pct := ATRPercentile(atr, p.PercentileWindow)

	frames := make([]models.IndicatorFrame, 0, len(candles))
	for i := range candles {
		if math.IsNaN(macd.HistDelta[i]) || math.IsNaN(atr[i]) || math.IsNaN(pct[i]) {
			continue
		}
		atrPct := 0.0
		if candles[i].Close != 0 {
			atrPct = atr[i] / candles[i].Close * 100
		}
		frames = append(frames, models.IndicatorFrame{
			OpenTime:      candles[i].OpenTime,
			Close:         candles[i].Close,
			Volume:        candles[i].Volume,
			DIF:           macd.DIF[i],
			DEA:           macd.DEA[i],
			Hist:          macd.Hist[i],
			HistDelta:     macd.HistDelta[i],
			ATR:           atr[i],
			ATRPct:        atrPct,
			ATRPercentile: pct[i],
		})
	}
	if len(frames) == 0 {
		return nil, ErrInsufficientData
	}
	return frames, nil
}
