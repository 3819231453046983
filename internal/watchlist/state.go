package watchlist

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"MarketScreener/internal/model"
)

// PolicySnapshot is the candidate list reported by the latest run of one policy.
type PolicySnapshot struct {
	RunID   string    `json:"run_id"`
	Tickers []string  `json:"tickers"`
	At      time.Time `json:"at"`
}

// State is the persisted watch-mode memory.
type State struct {
	Policies  map[model.Policy]PolicySnapshot `json:"policies"`
	UpdatedAt time.Time                       `json:"updated_at"`
}

// LoadState reads the state from a JSON file. Returns a zero state if the file doesn't exist.
func LoadState(filePath string) (*State, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return &State{Policies: map[model.Policy]PolicySnapshot{}}, nil
		}
		return nil, err
	}
	var state State
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, err
	}
	if state.Policies == nil {
		state.Policies = map[model.Policy]PolicySnapshot{}
	}
	return &state, nil
}

// SaveState writes the state to a JSON file.
func SaveState(filePath string, state *State) error {
	state.UpdatedAt = time.Now()
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(filePath), 0o755); err != nil {
		return err
	}
	return os.WriteFile(filePath, data, 0644)
}
