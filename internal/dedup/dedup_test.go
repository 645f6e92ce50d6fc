package dedup

import (
	"path/filepath"
	"sync"
	"testing"
	"time"

	"macd-vol-bot/models"
)

func testKey() models.DedupKey {
	return models.DedupKey{Instrument: "BTCUSDT", Timeframe: "15m", Direction: models.DirectionShort}
}

func TestShouldEmitCooldown(t *testing.T) {
	ledger := New(120*time.Minute, nil)
	key := testKey()
	t0 := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	if !ledger.ShouldEmit(key, t0) {
		t.Fatal("first emission for a key must pass")
	}
	if ledger.ShouldEmit(key, t0.Add(119*time.Minute)) {
		t.Fatal("emission one minute before the cooldown elapses must be suppressed")
	}
	if !ledger.ShouldEmit(key, t0.Add(120*time.Minute)) {
		t.Fatal("emission exactly at the cooldown boundary must pass")
	}
	// The boundary emission reset the window.
	if ledger.ShouldEmit(key, t0.Add(121*time.Minute)) {
		t.Fatal("window must restart from the last successful emission")
	}
}

func TestShouldEmitSuppressedLeavesEntryUntouched(t *testing.T) {
	ledger := New(120*time.Minute, nil)
	key := testKey()
	t0 := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	ledger.ShouldEmit(key, t0)
	// Suppressed attempts must not push the window forward.
	for m := 30; m < 120; m += 30 {
		ledger.ShouldEmit(key, t0.Add(time.Duration(m)*time.Minute))
	}
	if !ledger.ShouldEmit(key, t0.Add(120*time.Minute)) {
		t.Fatal("suppressed attempts extended the cooldown window")
	}
}

func TestShouldEmitIndependentKeys(t *testing.T) {
	ledger := New(120*time.Minute, nil)
	now := time.Now()

	short := testKey()
	long := short
	long.Direction = models.DirectionLong
	other := short
	other.Instrument = "ETHUSDT"

	if !ledger.ShouldEmit(short, now) || !ledger.ShouldEmit(long, now) || !ledger.ShouldEmit(other, now) {
		t.Fatal("distinct keys must not share cooldown state")
	}
}

func TestMarkCandle(t *testing.T) {
	ledger := New(time.Hour, nil)

	if !ledger.MarkCandle("BTCUSDT", "15m", 1000) {
		t.Fatal("first mark for a candle must pass")
	}
	if ledger.MarkCandle("BTCUSDT", "15m", 1000) {
		t.Fatal("same candle must alert at most once")
	}
	if ledger.MarkCandle("BTCUSDT", "15m", 500) {
		t.Fatal("an older candle must never alert after a newer one")
	}
	if !ledger.MarkCandle("BTCUSDT", "15m", 2000) {
		t.Fatal("a newer candle must pass")
	}
	if !ledger.MarkCandle("BTCUSDT", "5m", 1000) {
		t.Fatal("timeframes track candles independently")
	}
}

func TestCheckLevelBreak(t *testing.T) {
	ledger := New(time.Hour, nil)
	key := testKey() // SHORT
	levels := models.KeyLevels{
		Supports:     []float64{95, 97},
		Resistances:  []float64{105},
		Invalidation: 105,
	}

	if ev := ledger.CheckLevelBreak(key, 100, levels); ev != nil {
		t.Fatalf("price between levels must not trigger, got %+v", ev)
	}

	ev := ledger.CheckLevelBreak(key, 94.5, levels)
	if ev == nil || ev.Type != "support_break" {
		t.Fatalf("expected support_break, got %+v", ev)
	}
	// The first cross of 95 fired; a repeat check at the same price may
	// only report the other crossed support, never 95 again.
	if again := ledger.CheckLevelBreak(key, 94.5, levels); again != nil && again.Level == ev.Level {
		t.Fatalf("level %f fired twice", ev.Level)
	}

	inv := ledger.CheckLevelBreak(key, 106, levels)
	if inv == nil || inv.Type != "invalidation" {
		t.Fatalf("expected invalidation above the level, got %+v", inv)
	}
}

func TestCheckLevelBreakLongSide(t *testing.T) {
	ledger := New(time.Hour, nil)
	key := testKey()
	key.Direction = models.DirectionLong
	levels := models.KeyLevels{
		Supports:     []float64{95},
		Resistances:  []float64{105},
		Invalidation: 95,
	}

	ev := ledger.CheckLevelBreak(key, 105.5, levels)
	if ev == nil || ev.Type != "resistance_break" {
		t.Fatalf("expected resistance_break, got %+v", ev)
	}
	inv := ledger.CheckLevelBreak(key, 94, levels)
	if inv == nil || inv.Type != "invalidation" {
		t.Fatalf("expected invalidation below the level, got %+v", inv)
	}
}

func TestShouldEmitConcurrent(t *testing.T) {
	ledger := New(time.Hour, nil)
	key := testKey()
	now := time.Now()

	var wg sync.WaitGroup
	passed := make(chan bool, 100)
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			passed <- ledger.ShouldEmit(key, now)
		}()
	}
	wg.Wait()
	close(passed)

	count := 0
	for ok := range passed {
		if ok {
			count++
		}
	}
	if count != 1 {
		t.Fatalf("exactly one concurrent emission must pass, got %d", count)
	}
}

func TestFileStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	store := NewFileStore(path)

	t0 := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	ledger := New(120*time.Minute, store)
	key := testKey()
	ledger.ShouldEmit(key, t0)
	ledger.MarkCandle("BTCUSDT", "15m", 1000)

	// A fresh ledger over the same store must observe the cooldown.
	reloaded := New(120*time.Minute, store)
	if reloaded.ShouldEmit(key, t0.Add(30*time.Minute)) {
		t.Fatal("reloaded ledger must honor the persisted cooldown")
	}
	if reloaded.MarkCandle("BTCUSDT", "15m", 1000) {
		t.Fatal("reloaded ledger must remember alerted candles")
	}
	if !reloaded.ShouldEmit(key, t0.Add(121*time.Minute)) {
		t.Fatal("reloaded ledger must release the key after the cooldown")
	}
}

func TestFileStoreMissingFile(t *testing.T) {
	store := NewFileStore(filepath.Join(t.TempDir(), "absent.json"))
	state, err := store.Load()
	if err != nil {
		t.Fatalf("a missing state file is not an error: %v", err)
	}
	if state != nil {
		t.Fatalf("expected nil state for a missing file, got %+v", state)
	}
}

func TestCleanupExpired(t *testing.T) {
	ledger := New(time.Hour, nil)
	key := testKey()
	levels := models.KeyLevels{Supports: []float64{95}}
	ledger.CheckLevelBreak(key, 94, levels)

	if removed := ledger.CleanupExpired(time.Hour); removed != 0 {
		t.Fatalf("fresh marks must survive cleanup, removed %d", removed)
	}
	if removed := ledger.CleanupExpired(0); removed != 1 {
		t.Fatalf("expected the stale mark to be removed, got %d", removed)
	}
}
