package strategy

import (
	"fmt"

	"macd-vol-bot/config"
	"macd-vol-bot/internal/indicators"
	"macd-vol-bot/models"
)

// streakLookback bounds how many trailing frames feed the momentum streak.
// The qualifying rule only needs 2 consecutive steps; the scorer rewards
// streaks up to 5.
const streakLookback = 6

// Candidate is a directional signal candidate before scoring and dedup.
type Candidate struct {
	Direction models.Direction
	Streak    int
	Reasons   []string
	Frame     models.IndicatorFrame
}

// EvaluateMACDVol applies the MACD momentum + volatility band rule to a
// single timeframe's indicator frames. It returns nil when no candidate
// exists, which is the expected majority outcome and never an error.
//
// SELL side: histogram strictly falling for >=2 bars ending at the latest
// frame, latest histogram negative or a pronounced drop, and the ATR
// percentile inside the configured band. BUY is the mirror. An exactly
// zero histogram satisfies neither sign test.
func EvaluateMACDVol(frames []models.IndicatorFrame, cfg *config.Config) *Candidate {
	if len(frames) < 3 {
		return nil
	}

	latest := frames[len(frames)-1]

	start := len(frames) - streakLookback
	if start < 0 {
		start = 0
	}
	hist := make([]float64, 0, streakLookback)
	for _, f := range frames[start:] {
		hist = append(hist, f.Hist)
	}
	streak := indicators.ConsecutiveTrend(hist)

	inBand := cfg.ATRLowQuantile <= latest.ATRPercentile && latest.ATRPercentile <= cfg.ATRHighQuantile

	var cand *Candidate
	switch {
	case streak <= -2 && (latest.Hist < 0 || latest.HistDelta < -cfg.HistDeltaThreshold) && inBand:
		cand = &Candidate{
			Direction: models.DirectionShort,
			Streak:    streak,
			Frame:     latest,
		}
		cand.Reasons = append(cand.Reasons,
			fmt.Sprintf("MACD histogram falling for %d consecutive bars", -streak))
		if latest.Hist < 0 {
			cand.Reasons = append(cand.Reasons, "histogram below zero, bearish momentum building")
		}
		if difDeaAgree(frames, models.DirectionShort) {
			cand.Reasons = append(cand.Reasons, "DIF and DEA both falling, trend agreement")
		}

	case streak >= 2 && (latest.Hist > 0 || latest.HistDelta > cfg.HistDeltaThreshold) && inBand:
		cand = &Candidate{
			Direction: models.DirectionLong,
			Streak:    streak,
			Frame:     latest,
		}
		cand.Reasons = append(cand.Reasons,
			fmt.Sprintf("MACD histogram rising for %d consecutive bars", streak))
		if latest.Hist > 0 {
			cand.Reasons = append(cand.Reasons, "histogram above zero, bullish momentum building")
		}
		if difDeaAgree(frames, models.DirectionLong) {
			cand.Reasons = append(cand.Reasons, "DIF and DEA both rising, trend agreement")
		}
	}

	if cand == nil {
		return nil
	}

	cand.Reasons = append(cand.Reasons,
		fmt.Sprintf("ATR percentile %.2f inside healthy band [%.2f, %.2f]",
			latest.ATRPercentile, cfg.ATRLowQuantile, cfg.ATRHighQuantile))
	return cand
}

// difDeaAgree reports whether the latest DIF and DEA steps both move with
// the candidate direction.
func difDeaAgree(frames []models.IndicatorFrame, dir models.Direction) bool {
	if len(frames) < 2 {
		return false
	}
	cur := frames[len(frames)-1]
	prev := frames[len(frames)-2]
	if dir == models.DirectionShort {
		return cur.DIF < prev.DIF && cur.DEA < prev.DEA
	}
	return cur.DIF > prev.DIF && cur.DEA > prev.DEA
}
