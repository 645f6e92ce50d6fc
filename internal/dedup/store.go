package dedup

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"macd-vol-bot/models"
)

// State is the persisted snapshot of a ledger. Keys are flattened to
// strings so the snapshot survives JSON round-trips.
type State struct {
	Signals map[string]models.DedupEntry `json:"signals"`
	Candles map[string]int64             `json:"candles"`
	Levels  map[string]time.Time         `json:"levels"`
}

// Store persists ledger state across restarts.
type Store interface {
	Load() (*State, error)
	Save(*State) error
}

func formatKey(k models.DedupKey) string {
	return k.Instrument + "|" + k.Timeframe + "|" + string(k.Direction)
}

func parseKey(s string) (models.DedupKey, bool) {
	parts := strings.Split(s, "|")
	if len(parts) != 3 {
		return models.DedupKey{}, false
	}
	return models.DedupKey{
		Instrument: parts[0],
		Timeframe:  parts[1],
		Direction:  models.Direction(parts[2]),
	}, true
}

// FileStore keeps the snapshot in a single JSON file next to the binary.
type FileStore struct {
	path string
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (s *FileStore) Load() (*State, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading state file: %w", err)
	}
	var state State
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("parsing state file: %w", err)
	}
	return &state, nil
}

func (s *FileStore) Save(state *State) error {
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding state: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("writing state file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replacing state file: %w", err)
	}
	return nil
}
