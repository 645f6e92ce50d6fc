package indicators

import (
	"errors"
	"math"
	"testing"

	"macd-vol-bot/models"
)

// generateTestCandles builds n candles through the supplied generator.
func generateTestCandles(n int, gen func(i int) models.Candle) []models.Candle {
	candles := make([]models.Candle, n)
	for i := range candles {
		candles[i] = gen(i)
		if candles[i].OpenTime == 0 {
			candles[i].OpenTime = int64(i) * 60_000
		}
	}
	return candles
}

func flatCandle(price, volume float64) func(i int) models.Candle {
	return func(i int) models.Candle {
		return models.Candle{Open: price, High: price + 1, Low: price - 1, Close: price, Volume: volume}
	}
}

func TestMACDInsufficientData(t *testing.T) {
	tests := []struct {
		name    string
		bars    int
		wantErr bool
	}{
		{name: "Empty series", bars: 0, wantErr: true},
		{name: "One bar below minimum", bars: 34, wantErr: true},
		{name: "Exactly at minimum", bars: 35, wantErr: false},
		{name: "Plenty of data", bars: 200, wantErr: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			candles := generateTestCandles(tt.bars, flatCandle(100, 1000))
			_, err := MACD(candles, 12, 26, 9)
			if tt.wantErr && !errors.Is(err, ErrInsufficientData) {
				t.Errorf("expected ErrInsufficientData, got %v", err)
			}
			if !tt.wantErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestMACDRisingTrend(t *testing.T) {
	// A steadily rising close keeps the fast EMA above the slow EMA, so
	// DIF and the histogram must end positive.
	candles := generateTestCandles(100, func(i int) models.Candle {
		price := 100.0 + float64(i)
		return models.Candle{Open: price, High: price + 1, Low: price - 1, Close: price, Volume: 1000}
	})

	macd, err := MACD(candles, 12, 26, 9)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	last := len(candles) - 1
	if macd.DIF[last] <= 0 {
		t.Errorf("DIF on a rising trend should be positive, got %f", macd.DIF[last])
	}
	if macd.Hist[last] != macd.DIF[last]-macd.DEA[last] {
		t.Errorf("histogram must equal DIF-DEA, got %f", macd.Hist[last])
	}
	if !math.IsNaN(macd.HistDelta[0]) {
		t.Errorf("first histogram delta must be NaN, got %f", macd.HistDelta[0])
	}
	for i := 1; i < len(candles); i++ {
		want := macd.Hist[i] - macd.Hist[i-1]
		if macd.HistDelta[i] != want {
			t.Fatalf("histogram delta at %d: got %f want %f", i, macd.HistDelta[i], want)
		}
	}
}

func TestMACDFlatSeriesIsZero(t *testing.T) {
	candles := generateTestCandles(60, flatCandle(100, 1000))
	macd, err := MACD(candles, 12, 26, 9)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	last := len(candles) - 1
	if macd.DIF[last] != 0 || macd.Hist[last] != 0 {
		t.Errorf("flat series must yield zero DIF and histogram, got DIF=%f hist=%f",
			macd.DIF[last], macd.Hist[last])
	}
}

func TestConsecutiveTrend(t *testing.T) {
	tests := []struct {
		name     string
		series   []float64
		expected int
	}{
		{name: "Too short", series: []float64{1}, expected: 0},
		{name: "Rising run", series: []float64{1, 2, 3, 4}, expected: 3},
		{name: "Falling run", series: []float64{4, 3, 2, 1}, expected: -3},
		{name: "Reversal cuts the run", series: []float64{1, 5, 4, 3}, expected: -2},
		{name: "Flat step breaks the run", series: []float64{1, 2, 2}, expected: 0},
		{name: "Flat step inside the run", series: []float64{2, 2, 3, 4}, expected: 2},
		{name: "NaN breaks the run", series: []float64{1, math.NaN(), 2, 3}, expected: 2},
		{name: "Single falling step", series: []float64{2, 1}, expected: -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ConsecutiveTrend(tt.series); got != tt.expected {
				t.Errorf("got %d, want %d", got, tt.expected)
			}
		})
	}
}
