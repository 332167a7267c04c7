package quality

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jonesrussell/eventcrawl/internal/domain"
)

// quarantineTimeFormat stamps reject files to microsecond precision so
// rapid rejects in one run never collide.
const quarantineTimeFormat = "20060102T150405.000000"

// RejectRecord is the persisted shape of one quarantined entity.
type RejectRecord struct {
	Entity domain.Entity `json:"entity"`
	Reason []string      `json:"reason"`
}

// Quarantine writes rejected entities into a directory for inspection.
type Quarantine struct {
	root string
}

// NewQuarantine creates the quarantine directory if needed.
func NewQuarantine(root string) (*Quarantine, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create quarantine dir: %w", err)
	}
	return &Quarantine{root: root}, nil
}

// Reject persists the entity and its rejection reasons, returning the file
// path written.
func (q *Quarantine) Reject(entity domain.Entity, reasons []string) (string, error) {
	stamp := time.Now().UTC().Format(quarantineTimeFormat)
	// The format's fractional second prints with a dot; the filename keeps
	// the digits only.
	stamp = stamp[:15] + stamp[16:]
	path := filepath.Join(q.root, fmt.Sprintf("reject_%s.json", stamp))

	data, err := json.MarshalIndent(RejectRecord{Entity: entity, Reason: reasons}, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode reject record: %w", err)
	}
	if writeErr := os.WriteFile(path, data, 0o644); writeErr != nil {
		return "", fmt.Errorf("write reject record: %w", writeErr)
	}
	return path, nil
}
