package strategy

import (
	"math"

	"macd-vol-bot/config"
	"macd-vol-bot/internal/indicators"
	"macd-vol-bot/models"
)

// Risk tier boundaries. These deliberately differ from the entry filter
// band: the filter rejects percentiles above 0.8 and below 0.2, while the
// tiers additionally label [0.2, 0.3) as LOW. HIGH starts strictly above
// 0.8 and LOW strictly below 0.3.
const (
	riskHighAbove = 0.8
	riskLowBelow  = 0.3
)

// Confidence computes the weighted signal confidence in [0,1].
//
// Sub-scores, each normalized to [0,1] before weighting:
//   - momentum consistency: streak length against a 5-bar ceiling, with a
//     1.2x bonus when DIF and DEA agree with the direction, re-capped at 1
//   - volatility health: full marks inside the band, linear falloff to the
//     extremes outside it
//   - range position: SELL favors the top of the recent range, BUY the
//     bottom
//   - volume confirmation: recent 3-bar mean against the 20-bar mean,
//     full marks at 1.5x and above
func Confidence(cand *Candidate, frames []models.IndicatorFrame, candles []models.Candle, cfg *config.Config) float64 {
	score := 0.0

	// momentum consistency
	momentum := math.Min(math.Abs(float64(cand.Streak))/5.0, 1.0)
	if difDeaAgree(frames, cand.Direction) {
		momentum = math.Min(momentum*1.2, 1.0)
	}
	score += momentum * cfg.Weights.Momentum

	// volatility health
	score += volatilityHealth(cand.Frame.ATRPercentile, cfg) * cfg.Weights.Volatility

	// range position
	pr := indicators.ComputePriceRange(candles, cfg.KeyLevelLookback)
	position := pr.PositionPct
	if cand.Direction == models.DirectionLong {
		position = 1.0 - position
	}
	score += position * cfg.Weights.RangePos

	// volume confirmation
	score += volumeConfirmation(candles, cfg.VolumeLookback) * cfg.Weights.Volume

	return clamp01(math.Round(score*100) / 100)
}

func volatilityHealth(q float64, cfg *config.Config) float64 {
	switch {
	case q >= cfg.ATRLowQuantile && q <= cfg.ATRHighQuantile:
		return 1.0
	case q < cfg.ATRLowQuantile:
		if cfg.ATRLowQuantile == 0 {
			return 0
		}
		return q / cfg.ATRLowQuantile
	default:
		if cfg.ATRHighQuantile == 1 {
			return 0
		}
		return (1.0 - q) / (1.0 - cfg.ATRHighQuantile)
	}
}

func volumeConfirmation(candles []models.Candle, lookback int) float64 {
	if len(candles) == 0 {
		return 0.5
	}
	recentBars := 3
	if recentBars > len(candles) {
		recentBars = len(candles)
	}
	var recent float64
	for i := len(candles) - recentBars; i < len(candles); i++ {
		recent += candles[i].Volume
	}
	recent /= float64(recentBars)

	avg := indicators.AverageVolume(candles, lookback)
	if avg <= 0 {
		return 0.5
	}
	return math.Min(recent/avg/1.5, 1.0)
}

// RiskTierFor maps an ATR percentile to the discrete risk tier. 0.80 is
// MID, 0.30 is MID, anything strictly below 0.30 is LOW.
func RiskTierFor(atrPercentile float64) models.RiskTier {
	switch {
	case atrPercentile > riskHighAbove:
		return models.RiskHigh
	case atrPercentile < riskLowBelow:
		return models.RiskLow
	default:
		return models.RiskMid
	}
}

// SuggestionFor turns confidence and risk into an actionable suggestion.
// High risk or low confidence always means WATCH.
func SuggestionFor(confidence float64, risk models.RiskTier, dir models.Direction) models.Suggestion {
	if risk == models.RiskHigh || confidence < 0.4 {
		return models.SuggestWatch
	}
	if confidence >= 0.6 {
		if dir == models.DirectionShort {
			return models.SuggestShort
		}
		return models.SuggestLong
	}
	return models.SuggestWatch
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
