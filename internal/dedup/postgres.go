package dedup

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"macd-vol-bot/models"
)

// PostgresStore keeps ledger state in PostgreSQL so multiple bot
// instances (or restarts) share one cooldown history.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore connects with the given DSN and creates the state
// tables if they don't exist.
func NewPostgresStore(dsn string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		return nil, err
	}
	if err := createTables(db); err != nil {
		return nil, err
	}
	return &PostgresStore{db: db}, nil
}

func createTables(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS signal_emissions (
			dedup_key TEXT PRIMARY KEY,
			last_emitted_at TIMESTAMP NOT NULL
		)
	`)
	if err != nil {
		return err
	}
	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS candle_alerts (
			pair_key TEXT PRIMARY KEY,
			open_time BIGINT NOT NULL
		)
	`)
	if err != nil {
		return err
	}
	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS level_triggers (
			level_key TEXT PRIMARY KEY,
			triggered_at TIMESTAMP NOT NULL
		)
	`)
	return err
}

func (s *PostgresStore) Load() (*State, error) {
	state := &State{
		Signals: make(map[string]models.DedupEntry),
		Candles: make(map[string]int64),
		Levels:  make(map[string]time.Time),
	}

	rows, err := s.db.Query(`SELECT dedup_key, last_emitted_at FROM signal_emissions`)
	if err != nil {
		return nil, fmt.Errorf("loading signal emissions: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var key string
		var at time.Time
		if err := rows.Scan(&key, &at); err != nil {
			return nil, err
		}
		state.Signals[key] = models.DedupEntry{LastEmittedAt: at}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	candleRows, err := s.db.Query(`SELECT pair_key, open_time FROM candle_alerts`)
	if err != nil {
		return nil, fmt.Errorf("loading candle alerts: %w", err)
	}
	defer candleRows.Close()
	for candleRows.Next() {
		var key string
		var openTime int64
		if err := candleRows.Scan(&key, &openTime); err != nil {
			return nil, err
		}
		state.Candles[key] = openTime
	}
	if err := candleRows.Err(); err != nil {
		return nil, err
	}

	levelRows, err := s.db.Query(`SELECT level_key, triggered_at FROM level_triggers`)
	if err != nil {
		return nil, fmt.Errorf("loading level triggers: %w", err)
	}
	defer levelRows.Close()
	for levelRows.Next() {
		var key string
		var at time.Time
		if err := levelRows.Scan(&key, &at); err != nil {
			return nil, err
		}
		state.Levels[key] = at
	}
	if err := levelRows.Err(); err != nil {
		return nil, err
	}

	return state, nil
}

func (s *PostgresStore) Save(state *State) error {
	for key, entry := range state.Signals {
		_, err := s.db.Exec(`
			INSERT INTO signal_emissions (dedup_key, last_emitted_at)
			VALUES ($1, $2)
			ON CONFLICT (dedup_key)
			DO UPDATE SET last_emitted_at = EXCLUDED.last_emitted_at
		`, key, entry.LastEmittedAt)
		if err != nil {
			return fmt.Errorf("saving signal emission: %w", err)
		}
	}
	for key, openTime := range state.Candles {
		_, err := s.db.Exec(`
			INSERT INTO candle_alerts (pair_key, open_time)
			VALUES ($1, $2)
			ON CONFLICT (pair_key)
			DO UPDATE SET open_time = EXCLUDED.open_time
		`, key, openTime)
		if err != nil {
			return fmt.Errorf("saving candle alert: %w", err)
		}
	}
	for key, at := range state.Levels {
		_, err := s.db.Exec(`
			INSERT INTO level_triggers (level_key, triggered_at)
			VALUES ($1, $2)
			ON CONFLICT (level_key) DO NOTHING
		`, key, at)
		if err != nil {
			return fmt.Errorf("saving level trigger: %w", err)
		}
	}
	return nil
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}
