package indicators

import (
	"math"
	"testing"

	"macd-vol-bot/models"
)

func TestComputeGeometry(t *testing.T) {
	tests := []struct {
		name          string
		candle        models.Candle
		wantBody      float64
		wantUpper     float64
		wantLower     float64
		wantDominant  bool // true = lower shadow dominates
		wantDirection models.Direction
	}{
		{
			name:          "Long lower wick on a green candle",
			candle:        models.Candle{Open: 100, High: 101, Low: 90, Close: 100.5},
			wantBody:      0.5,
			wantUpper:     0.5,
			wantLower:     10,
			wantDominant:  true,
			wantDirection: models.DirectionLong,
		},
		{
			name:          "Long upper wick on a red candle",
			candle:        models.Candle{Open: 100, High: 110, Low: 99, Close: 99.5},
			wantBody:      0.5,
			wantUpper:     10,
			wantLower:     0.5,
			wantDominant:  false,
			wantDirection: models.DirectionShort,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := ComputeGeometry(tt.candle)
			if math.Abs(g.Body-tt.wantBody) > 1e-9 {
				t.Errorf("body got %f, want %f", g.Body, tt.wantBody)
			}
			if math.Abs(g.UpperShadow-tt.wantUpper) > 1e-9 {
				t.Errorf("upper shadow got %f, want %f", g.UpperShadow, tt.wantUpper)
			}
			if math.Abs(g.LowerShadow-tt.wantLower) > 1e-9 {
				t.Errorf("lower shadow got %f, want %f", g.LowerShadow, tt.wantLower)
			}
			if g.DominantLower != tt.wantDominant {
				t.Errorf("dominant lower got %v, want %v", g.DominantLower, tt.wantDominant)
			}
			if g.SpikeDirection() != tt.wantDirection {
				t.Errorf("direction got %s, want %s", g.SpikeDirection(), tt.wantDirection)
			}
		})
	}
}

func TestComputeGeometryDojiShadowRatio(t *testing.T) {
	// Zero body must not divide by zero; the epsilon makes the ratio huge
	// but finite.
	g := ComputeGeometry(models.Candle{Open: 100, High: 105, Low: 100, Close: 100})
	if math.IsInf(g.ShadowRatio, 0) || math.IsNaN(g.ShadowRatio) {
		t.Fatalf("doji shadow ratio must stay finite, got %f", g.ShadowRatio)
	}
	if g.ShadowRatio < 1000 {
		t.Errorf("doji with a 5-point wick should have an enormous ratio, got %f", g.ShadowRatio)
	}
}
