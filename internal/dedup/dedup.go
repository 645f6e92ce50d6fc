package dedup

import (
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"macd-vol-bot/models"
)

// Ledger is the process-lifetime cooldown state. It is the only mutable
// shared state in the engine; every method holds the mutex so the outer
// fetch loop may be parallelized without further coordination.
type Ledger struct {
	mu       sync.Mutex
	cooldown time.Duration
	signals  map[models.DedupKey]models.DedupEntry
	candles  map[string]int64 // instrument_timeframe -> last alerted candle open time
	levels   map[string]time.Time
	store    Store
	logger   zerolog.Logger
}

// New builds a ledger with the given cooldown. A nil store keeps the
// ledger purely in memory; otherwise previously persisted state is loaded
// and mutations are saved best-effort.
func New(cooldown time.Duration, store Store) *Ledger {
	l := &Ledger{
		cooldown: cooldown,
		signals:  make(map[models.DedupKey]models.DedupEntry),
		candles:  make(map[string]int64),
		levels:   make(map[string]time.Time),
		store:    store,
		logger:   log.With().Str("component", "dedup").Logger(),
	}
	if store != nil {
		state, err := store.Load()
		if err != nil {
			l.logger.Warn().Err(err).Msg("failed to load dedup state, starting empty")
		} else if state != nil {
			for k, v := range state.Signals {
				if key, ok := parseKey(k); ok {
					l.signals[key] = v
				}
			}
			for k, v := range state.Candles {
				l.candles[k] = v
			}
			for k, v := range state.Levels {
				l.levels[k] = v
			}
		}
	}
	return l
}

// ShouldEmit decides emission for a key: true (and the entry is updated to
// now) when no prior emission exists or the cooldown has fully elapsed;
// false leaves the entry untouched. The check and the update are a single
// atomic step.
func (l *Ledger) ShouldEmit(key models.DedupKey, now time.Time) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if entry, ok := l.signals[key]; ok {
		if now.Sub(entry.LastEmittedAt) < l.cooldown {
			return false
		}
	}
	l.signals[key] = models.DedupEntry{LastEmittedAt: now}
	l.persist()
	return true
}

// MarkCandle records a spike alert for a candle and reports whether this
// candle had not alerted before. A candle open time may trigger at most
// one alert per (instrument, timeframe), regardless of direction.
func (l *Ledger) MarkCandle(instrument, timeframe string, openTime int64) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	key := instrument + "_" + timeframe
	if last, ok := l.candles[key]; ok && openTime <= last {
		return false
	}
	l.candles[key] = openTime
	l.persist()
	return true
}

// CheckLevelBreak looks for a first-time price cross of one of the
// signal's recorded key levels. It is consulted only while the key is in
// cooldown; a returned event is a confirmation or invalidation notice and
// does not reset the cooldown.
func (l *Ledger) CheckLevelBreak(key models.DedupKey, price float64, levels models.KeyLevels) *models.LevelEvent {
	l.mu.Lock()
	defer l.mu.Unlock()

	if key.Direction == models.DirectionShort {
		for _, support := range levels.Supports {
			if price <= support && l.markLevel(key, "support", support) {
				return &models.LevelEvent{
					Type:    "support_break",
					Level:   support,
					Message: fmt.Sprintf("price broke below key support %.4f", support),
				}
			}
		}
		if levels.Invalidation > 0 && price >= levels.Invalidation &&
			l.markLevel(key, "invalidation", levels.Invalidation) {
			return &models.LevelEvent{
				Type:    "invalidation",
				Level:   levels.Invalidation,
				Message: fmt.Sprintf("price crossed %.4f, SHORT thesis void", levels.Invalidation),
			}
		}
		return nil
	}

	for _, resistance := range levels.Resistances {
		if price >= resistance && l.markLevel(key, "resistance", resistance) {
			return &models.LevelEvent{
				Type:    "resistance_break",
				Level:   resistance,
				Message: fmt.Sprintf("price broke above key resistance %.4f", resistance),
			}
		}
	}
	if levels.Invalidation > 0 && price <= levels.Invalidation &&
		l.markLevel(key, "invalidation", levels.Invalidation) {
		return &models.LevelEvent{
			Type:    "invalidation",
			Level:   levels.Invalidation,
			Message: fmt.Sprintf("price crossed %.4f, LONG thesis void", levels.Invalidation),
		}
	}
	return nil
}

// markLevel records a level trigger; returns false when it already fired.
// Caller holds the mutex.
func (l *Ledger) markLevel(key models.DedupKey, levelType string, level float64) bool {
	k := fmt.Sprintf("%s_%s_%s_%s_%.4f", key.Instrument, key.Timeframe, key.Direction, levelType, level)
	if _, ok := l.levels[k]; ok {
		return false
	}
	l.levels[k] = time.Now()
	l.persist()
	return true
}

// CleanupExpired drops level-trigger marks older than maxAge. Signal
// entries are never deleted; they are bounded by the configured
// instrument x timeframe x direction cross-product and become harmless
// once the cooldown elapses.
func (l *Ledger) CleanupExpired(maxAge time.Duration) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := time.Now().Add(-maxAge)
	removed := 0
	for k, at := range l.levels {
		if at.Before(cutoff) {
			delete(l.levels, k)
			removed++
		}
	}
	if removed > 0 {
		l.persist()
	}
	return removed
}

// persist writes the current state through the store, best-effort. Caller
// holds the mutex.
func (l *Ledger) persist() {
	if l.store == nil {
		return
	}
	state := &State{
		Signals: make(map[string]models.DedupEntry, len(l.signals)),
		Candles: make(map[string]int64, len(l.candles)),
		Levels:  make(map[string]time.Time, len(l.levels)),
	}
	for k, v := range l.signals {
		state.Signals[formatKey(k)] = v
	}
	for k, v := range l.candles {
		state.Candles[k] = v
	}
	for k, v := range l.levels {
		state.Levels[k] = v
	}
	if err := l.store.Save(state); err != nil {
		l.logger.Warn().Err(err).Msg("failed to persist dedup state")
	}
}
