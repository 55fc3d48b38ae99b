package history

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Checkpoint records how far a replay of one contract has progressed.
type Checkpoint struct {
	Contract           string `json:"contract"`
	LastProcessedBlock uint64 `json:"last_processed_block"`
	UpdatedAt          string `json:"updated_at"`
}

// CheckpointStore persists a Checkpoint as JSON. An empty path disables it.
type CheckpointStore struct {
	path     string
	contract string
}

func NewCheckpointStore(path, contract string) *CheckpointStore {
	return &CheckpointStore{path: path, contract: contract}
}

func (c *CheckpointStore) enabled() bool {
	return c != nil && c.path != ""
}

// Load returns the stored checkpoint. A checkpoint written for another
// contract is an error rather than a silent restart.
func (c *CheckpointStore) Load() (Checkpoint, bool, error) {
	if !c.enabled() {
		return Checkpoint{}, false, nil
	}

	data, err := os.ReadFile(c.path)
	if err != nil {
		if os.IsNotExist(err) {
			return Checkpoint{}, false, nil
		}
		return Checkpoint{}, false, fmt.Errorf("read checkpoint: %w", err)
	}

	var cp Checkpoint
	if err := json.Unmarshal(data, &cp); err != nil {
		return Checkpoint{}, false, fmt.Errorf("parse checkpoint: %w", err)
	}
	if cp.Contract != "" && !strings.EqualFold(cp.Contract, c.contract) {
		return Checkpoint{}, false, fmt.Errorf("checkpoint %s belongs to contract %s", c.path, cp.Contract)
	}

	return cp, true, nil
}

// Save atomically replaces the checkpoint with lastProcessed.
func (c *CheckpointStore) Save(lastProcessed uint64) error {
	if !c.enabled() {
		return nil
	}

	if dir := filepath.Dir(c.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create checkpoint dir: %w", err)
		}
	}

	data, err := json.Marshal(Checkpoint{
		Contract:           c.contract,
		LastProcessedBlock: lastProcessed,
		UpdatedAt:          time.Now().UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		return fmt.Errorf("marshal checkpoint: %w", err)
	}

	tmpPath := c.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("write checkpoint tmp: %w", err)
	}
	if err := os.Rename(tmpPath, c.path); err != nil {
		return fmt.Errorf("rename checkpoint: %w", err)
	}

	return nil
}
