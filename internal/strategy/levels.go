package strategy

import (
	"sort"

	"macd-vol-bot/models"
)

// ComputeKeyLevels finds swing-point supports and resistances over the
// trailing lookback window and derives the invalidation price for the
// direction: the level which, once crossed against the signal, voids the
// thesis.
func ComputeKeyLevels(candles []models.Candle, dir models.Direction, lookback int) models.KeyLevels {
	if lookback > len(candles) {
		lookback = len(candles)
	}
	recent := candles[len(candles)-lookback:]
	currentPrice := candles[len(candles)-1].Close

	var supports []float64
	for i := 1; i < len(recent)-1; i++ {
		if recent[i].Low < recent[i-1].Low && recent[i].Low < recent[i+1].Low {
			supports = append(supports, recent[i].Low)
		}
	}
	if len(supports) == 0 && len(recent) > 0 {
		low := recent[0].Low
		for _, c := range recent {
			if c.Low < low {
				low = c.Low
			}
		}
		supports = []float64{low}
	}
	sort.Float64s(supports)
	if len(supports) > 3 {
		supports = supports[len(supports)-3:]
	}

	var resistances []float64
	for i := 1; i < len(recent)-1; i++ {
		if recent[i].High > recent[i-1].High && recent[i].High > recent[i+1].High {
			resistances = append(resistances, recent[i].High)
		}
	}
	if len(resistances) == 0 && len(recent) > 0 {
		high := recent[0].High
		for _, c := range recent {
			if c.High > high {
				high = c.High
			}
		}
		resistances = []float64{high}
	}
	sort.Sort(sort.Reverse(sort.Float64Slice(resistances)))
	if len(resistances) > 3 {
		resistances = resistances[:3]
	}

	levels := models.KeyLevels{
		Supports:    supports,
		Resistances: resistances,
	}

	if dir == models.DirectionShort {
		// A short thesis dies when price breaks the nearest resistance.
		if len(resistances) > 0 {
			levels.Invalidation = resistances[0]
		} else {
			levels.Invalidation = currentPrice * 1.05
		}
	} else {
		// A long thesis dies when price loses the highest support below it.
		var below []float64
		for _, s := range supports {
			if s < currentPrice {
				below = append(below, s)
			}
		}
		if len(below) > 0 {
			levels.Invalidation = below[len(below)-1]
		} else {
			levels.Invalidation = currentPrice * 0.95
		}
	}
	return levels
}
