package jobs

import (
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/jonesrussell/eventcrawl/internal/domain"
)

// Checkpointer stores one progress file per run under the checkpoints
// directory, saved after every accepted entity for fine-grained resume.
type Checkpointer struct {
	root string
}

// NewCheckpointer creates a checkpointer rooted at dir.
func NewCheckpointer(dir string) *Checkpointer {
	return &Checkpointer{root: dir}
}

// path returns the checkpoint file for a run.
func (c *Checkpointer) path(runID string) string {
	return filepath.Join(c.root, runID+".json")
}

// Save writes the checkpoint for the run, creating the directory as needed.
func (c *Checkpointer) Save(runID string, checkpoint *domain.JobCheckpoint) error {
	if err := os.MkdirAll(c.root, 0o755); err != nil {
		return fmt.Errorf("create checkpoint dir: %w", err)
	}
	data, err := json.Marshal(checkpoint)
	if err != nil {
		return fmt.Errorf("encode checkpoint: %w", err)
	}
	if writeErr := os.WriteFile(c.path(runID), data, 0o644); writeErr != nil {
		return fmt.Errorf("write checkpoint: %w", writeErr)
	}
	return nil
}

// Load returns the checkpoint for the run, or nil when the file is absent
// or corrupt.
func (c *Checkpointer) Load(runID string) *domain.JobCheckpoint {
	data, err := os.ReadFile(c.path(runID))
	if err != nil {
		return nil
	}
	var checkpoint domain.JobCheckpoint
	if unmarshalErr := json.Unmarshal(data, &checkpoint); unmarshalErr != nil {
		return nil
	}
	return &checkpoint
}

// Clear deletes the checkpoint file for the run, tolerating absence.
func (c *Checkpointer) Clear(runID string) error {
	err := os.Remove(c.path(runID))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove checkpoint: %w", err)
	}
	return nil
}

// HashDiscoveredURLs computes the fingerprint binding a checkpoint to a
// job's discovered-URL set: sha1 over the sorted URLs joined by "|".
func HashDiscoveredURLs(urls []string) string {
	sorted := make([]string, len(urls))
	copy(sorted, urls)
	sort.Strings(sorted)

	sum := sha1.Sum([]byte(strings.Join(sorted, "|")))
	return hex.EncodeToString(sum[:])
}
