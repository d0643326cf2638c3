// Package storage writes shopping-list snapshots to disk so a household can
// take a list along without the bot (printing, sharing a file).
package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"pantry-planner/internal/shopping"
)

// ExportStore provides file-based exports of shopping lists.
type ExportStore struct {
	basePath string
}

// NewExportStore creates a new ExportStore and ensures the base directory exists.
func NewExportStore(basePath string) (*ExportStore, error) {
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create export directory %s: %w", basePath, err)
	}
	return &ExportStore{basePath: basePath}, nil
}

// export is the on-disk shape of one snapshot.
type export struct {
	HouseholdID string           `json:"household_id"`
	ExportedAt  time.Time        `json:"exported_at"`
	Entries     []shopping.Entry `json:"entries"`
}

// sanitizeTimestamp makes the timestamp safe for filenames.
func sanitizeTimestamp(ts string) string {
	return strings.ReplaceAll(ts, ":", "-")
}

func (s *ExportStore) exportPath(householdID string, at time.Time) string {
	filename := fmt.Sprintf("%s_%s.json", householdID, sanitizeTimestamp(at.UTC().Format(time.RFC3339)))
	return filepath.Join(s.basePath, filename)
}

// Save writes the active shopping list to a timestamped file and returns the
// file path.
func (s *ExportStore) Save(householdID string, entries []shopping.Entry) (string, error) {
	now := time.Now()
	data, err := json.MarshalIndent(export{
		HouseholdID: householdID,
		ExportedAt:  now.UTC(),
		Entries:     entries,
	}, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal shopping list export: %w", err)
	}

	path := s.exportPath(householdID, now)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write export file: %w", err)
	}
	return path, nil
}

// Load reads a previously written export file.
func (s *ExportStore) Load(path string) ([]shopping.Entry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read export file: %w", err)
	}

	var e export
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, fmt.Errorf("failed to unmarshal export file: %w", err)
	}
	return e.Entries, nil
}
