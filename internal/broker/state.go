package broker

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"time"

	"MomentumRotator/internal/model"
)

// LoadState reads a broker state from a JSON file. ok is false when the file
// doesn't exist.
func LoadState(filePath string) (state model.BrokerState, ok bool, err error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return model.BrokerState{}, false, nil
		}
		return model.BrokerState{}, false, err
	}
	if err := json.Unmarshal(data, &state); err != nil {
		return model.BrokerState{}, false, err
	}
	if state.Holdings.Asset == "" {
		return model.BrokerState{}, false, errors.New("state file has no holdings")
	}
	return state, true, nil
}

// SaveState writes the broker state to a JSON file.
func SaveState(filePath string, state model.BrokerState) error {
	state.UpdatedAt = time.Now().UTC()
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return err
	}
	if dir := filepath.Dir(filePath); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return os.WriteFile(filePath, data, 0o644)
}

// Save persists the broker's current state to filePath.
func (p *Paper) Save(filePath string) error {
	return SaveState(filePath, p.State())
}
