// Package storage persists pipeline outputs across the bronze, silver and
// gold tiers, including the shared SQLite gold database.
package storage

import (
	"fmt"
	"os"
	"path/filepath"
)

// goldDatabaseFile is the SQLite file shared by all entity types.
const goldDatabaseFile = "events.db"

// DataLayout computes and prepares the structured output directories inside
// the data root.
type DataLayout struct {
	Bronze      string
	Silver      string
	Gold        string
	Manifests   string
	Checkpoints string
	Metrics     string
}

// NewDataLayout creates every tier directory up front so later writes never
// race on directory creation.
func NewDataLayout(bronze, silver, gold, manifests, checkpoints, metrics string) (*DataLayout, error) {
	layout := &DataLayout{
		Bronze:      bronze,
		Silver:      silver,
		Gold:        gold,
		Manifests:   manifests,
		Checkpoints: checkpoints,
		Metrics:     metrics,
	}
	for _, dir := range []string{bronze, silver, gold, manifests, checkpoints, metrics} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create data dir %s: %w", dir, err)
		}
	}
	return layout, nil
}

// GoldSQLite returns the path of the shared gold SQLite database.
func (l *DataLayout) GoldSQLite() string {
	return filepath.Join(l.Gold, goldDatabaseFile)
}
