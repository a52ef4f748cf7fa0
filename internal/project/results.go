package project

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/piwi3910/HydroSize/internal/model"
)

// SnapshotVersion is written into every saved result.
const SnapshotVersion = "1.0.0"

// Snapshot is the JSON document persisted for one sizing run.
type Snapshot struct {
	Version    string                  `json:"version"`
	CreatedAt  string                  `json:"created_at"`
	Drawing    string                  `json:"drawing,omitempty"`
	Settings   model.Settings          `json:"settings"`
	Result     model.SizingResult      `json:"result"`
	Comparison *model.BudgetComparison `json:"comparison,omitempty"`
}

// SaveResult writes snap as indented JSON. Version and CreatedAt are filled
// in when empty.
func SaveResult(path string, snap Snapshot) error {
	if snap.Version == "" {
		snap.Version = SnapshotVersion
	}
	if snap.CreatedAt == "" {
		snap.CreatedAt = time.Now().UTC().Format(time.RFC3339)
	}
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal result: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create result directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write result file: %w", err)
	}
	return nil
}

// LoadResult reads a snapshot written by SaveResult.
func LoadResult(path string) (Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Snapshot{}, fmt.Errorf("failed to read result file: %w", err)
	}
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return Snapshot{}, fmt.Errorf("failed to parse result file: %w", err)
	}
	if snap.Version == "" {
		return Snapshot{}, fmt.Errorf("invalid result file: missing version field")
	}
	return snap, nil
}
