package fetcher

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jonesrussell/eventcrawl/internal/domain"
)

// headersSuffix names the sibling manifest written beside each snapshot.
const headersSuffix = ".headers.json"

// hashURL returns the hex SHA-256 of the URL, used as the per-URL snapshot
// directory name in the bronze tier.
func hashURL(url string) string {
	sum := sha256.Sum256([]byte(url))
	return hex.EncodeToString(sum[:])
}

// snapshotHeaders is the sibling manifest shape.
type snapshotHeaders struct {
	URL     string            `json:"url"`
	Headers map[string]string `json:"headers"`
}

// SaveSnapshot persists the snapshot HTML and its header manifest under
// bronzeRoot/sha256(url)/, setting snapshot.Path on success. The tier is
// append-only per URL: filenames encode the capture time.
func SaveSnapshot(bronzeRoot string, snapshot *domain.Snapshot) error {
	dir := filepath.Join(bronzeRoot, hashURL(snapshot.URL))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create snapshot dir: %w", err)
	}

	stamp := snapshot.FetchedAt.UTC().Format(domain.SnapshotTimeFormat)
	htmlPath := filepath.Join(dir, stamp+".html")
	if err := os.WriteFile(htmlPath, []byte(snapshot.HTML), 0o644); err != nil {
		return fmt.Errorf("write snapshot html: %w", err)
	}

	meta, err := json.Marshal(snapshotHeaders{URL: snapshot.URL, Headers: snapshot.Headers})
	if err != nil {
		return fmt.Errorf("encode snapshot headers: %w", err)
	}
	metaPath := filepath.Join(dir, stamp+headersSuffix)
	if err := os.WriteFile(metaPath, meta, 0o644); err != nil {
		return fmt.Errorf("write snapshot headers: %w", err)
	}

	snapshot.Path = htmlPath
	return nil
}
