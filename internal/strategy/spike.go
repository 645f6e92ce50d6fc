package strategy

import (
	"fmt"
	"math"

	"macd-vol-bot/config"
	"macd-vol-bot/internal/indicators"
	"macd-vol-bot/models"
)

// SpikeCandidate describes a qualifying exhaustion-wick candle.
type SpikeCandidate struct {
	Direction   models.Direction
	Candle      models.Candle
	Geometry    indicators.Geometry
	ATR         float64
	AvgVolume   float64
	VolumeRatio float64
	Reasons     []string
}

// EvaluateSpike checks the most recent closed candle (the second to last
// bar; the last bar is still forming) against the spike rule. All three
// thresholds gate together: dominant shadow vs body, amplitude vs ATR,
// volume vs rolling average. Failing any single one disqualifies the
// candle.
func EvaluateSpike(candles []models.Candle, cfg *config.Config) *SpikeCandidate {
	if len(candles) < cfg.ATRPeriod+2 {
		return nil
	}

	idx := len(candles) - 2
	atrSeries := indicators.ATR(candles, cfg.ATRPeriod)
	atr := atrSeries[idx]
	if math.IsNaN(atr) || atr == 0 {
		return nil
	}

	c := candles[idx]
	geo := indicators.ComputeGeometry(c)
	if geo.ShadowRatio < cfg.ShadowRatio {
		return nil
	}
	if geo.Amplitude < cfg.SpikeATRMultiplier*atr {
		return nil
	}

	avgVol := indicators.AverageVolume(candles[:idx+1], cfg.VolumeLookback)
	if avgVol <= 0 || c.Volume < cfg.VolumeMultiplier*avgVol {
		return nil
	}

	dir := geo.SpikeDirection()
	wick := "upper"
	if geo.DominantLower {
		wick = "lower"
	}
	return &SpikeCandidate{
		Direction:   dir,
		Candle:      c,
		Geometry:    geo,
		ATR:         atr,
		AvgVolume:   avgVol,
		VolumeRatio: c.Volume / avgVol,
		Reasons: []string{
			fmt.Sprintf("dominant %s shadow %.1fx the body (threshold %.1fx)",
				wick, geo.ShadowRatio, cfg.ShadowRatio),
			fmt.Sprintf("amplitude %.4f is %.1fx ATR (threshold %.1fx)",
				geo.Amplitude, geo.Amplitude/atr, cfg.SpikeATRMultiplier),
			fmt.Sprintf("volume %.1fx the %d-bar average (threshold %.1fx)",
				c.Volume/avgVol, cfg.VolumeLookback, cfg.VolumeMultiplier),
		},
	}
}
