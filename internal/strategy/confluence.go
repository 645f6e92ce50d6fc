package strategy

import (
	"fmt"

	"macd-vol-bot/config"
	"macd-vol-bot/models"
)

// TimeframeSeries pairs a timeframe label with its indicator frames for a
// confluence evaluation.
type TimeframeSeries struct {
	Timeframe string
	Frames    []models.IndicatorFrame
}

// EvaluateConfluence requires every supplied timeframe to agree on the
// same direction at its latest closed bar: histogram strictly moving the
// same way for two consecutive steps, with DIF and DEA stepping the same
// way. This is a strict AND — one neutral or disagreeing timeframe kills
// the candidate. Partial agreement earns nothing.
//
// A timeframe with fewer than 3 frames means the candidate cannot be
// evaluated this cycle; that is a nil result, not an error.
func EvaluateConfluence(series []TimeframeSeries, cfg *config.Config) *Candidate {
	if len(series) == 0 {
		return nil
	}

	var agreed models.Direction
	reasons := make([]string, 0, len(series)+1)

	for i, ts := range series {
		dir, ok := timeframeDirection(ts.Frames, cfg)
		if !ok {
			return nil
		}
		if i == 0 {
			agreed = dir
		} else if dir != agreed {
			return nil
		}
		latest := ts.Frames[len(ts.Frames)-1]
		reasons = append(reasons, fmt.Sprintf("%s: histogram %.4f, DIF/DEA aligned %s",
			ts.Timeframe, latest.Hist, agreed))
	}

	last := series[len(series)-1]
	cand := &Candidate{
		Direction: agreed,
		Streak:    2,
		Frame:     last.Frames[len(last.Frames)-1],
		Reasons: append([]string{
			fmt.Sprintf("all %d timeframes agree on %s simultaneously", len(series), agreed),
		}, reasons...),
	}
	return cand
}

// timeframeDirection evaluates the directional condition on one
// timeframe. The ATR percentile band is only consulted when the
// confluence filter is enabled; the band then applies per timeframe.
func timeframeDirection(frames []models.IndicatorFrame, cfg *config.Config) (models.Direction, bool) {
	if len(frames) < 3 {
		return "", false
	}
	cur := frames[len(frames)-1]
	prev := frames[len(frames)-2]
	prev2 := frames[len(frames)-3]

	if cfg.ConfluenceATRFilter {
		if cur.ATRPercentile < cfg.ATRLowQuantile || cur.ATRPercentile > cfg.ATRHighQuantile {
			return "", false
		}
	}

	histGrowing := cur.Hist > prev.Hist && prev.Hist > prev2.Hist
	histDeclining := cur.Hist < prev.Hist && prev.Hist < prev2.Hist

	switch {
	case histGrowing && cur.DIF > prev.DIF && cur.DEA > prev.DEA:
		return models.DirectionLong, true
	case histDeclining && cur.DIF < prev.DIF && cur.DEA < prev.DEA:
		return models.DirectionShort, true
	}
	return "", false
}
