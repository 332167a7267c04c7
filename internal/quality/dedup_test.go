package quality

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/eventcrawl/internal/domain"
)

func TestDeduplicatorExactMatch(t *testing.T) {
	t.Parallel()

	dedup := NewDeduplicator()
	entity := keyedEntity("2026-06-01T19:00:00-04:00")

	dup, err := dedup.IsDuplicate(entity)
	require.NoError(t, err)
	assert.False(t, dup)

	require.NoError(t, dedup.Remember(entity))

	later := keyedEntity("2026-06-01T21:00:00-04:00")
	dup, err = dedup.IsDuplicate(later)
	require.NoError(t, err)
	assert.True(t, dup)
}

func TestDeduplicatorNearbyMatch(t *testing.T) {
	t.Parallel()

	dedup := NewDeduplicator()
	require.NoError(t, dedup.Remember(keyedEntity("2026-06-01T23:30:00-04:00")))

	// Same listing, but a feed that rolled it past midnight.
	acrossMidnight := keyedEntity("2026-06-02T00:30:00-04:00")
	dup, err := dedup.IsDuplicate(acrossMidnight)
	require.NoError(t, err)
	assert.True(t, dup)

	farAway := keyedEntity("2026-06-10T19:00:00-04:00")
	dup, err = dedup.IsDuplicate(farAway)
	require.NoError(t, err)
	assert.False(t, dup)
}

func TestMerge(t *testing.T) {
	t.Parallel()

	existing := domain.Entity{
		domain.FieldTitle:    "Jazz Night",
		domain.FieldCity:     "Toronto",
		domain.FieldTaxonomy: []string{"music"},
	}
	candidate := domain.Entity{
		domain.FieldTitle:    "Jazz Night",
		domain.FieldCity:     "",
		domain.FieldAddress:  "1 Main St",
		domain.FieldTaxonomy: []string{"music", "jazz"},
	}

	merged, mutated := Merge(existing, candidate)
	assert.True(t, mutated)
	// Empty candidate values never erase existing ones.
	assert.Equal(t, "Toronto", merged[domain.FieldCity])
	assert.Equal(t, "1 Main St", merged[domain.FieldAddress])
	// Differing lists replace in full.
	assert.Equal(t, []string{"music", "jazz"}, merged[domain.FieldTaxonomy])
}

func TestMergeNoChanges(t *testing.T) {
	t.Parallel()

	existing := domain.Entity{domain.FieldTitle: "Jazz Night"}
	candidate := domain.Entity{domain.FieldTitle: "Jazz Night", domain.FieldCity: ""}

	_, mutated := Merge(existing, candidate)
	assert.False(t, mutated)
}

func TestQuarantineReject(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	quarantine, err := NewQuarantine(filepath.Join(root, "quarantine"))
	require.NoError(t, err)

	entity := keyedEntity("2026-06-01T19:00:00")
	path, err := quarantine.Reject(entity, []string{"$.city: expected string"})
	require.NoError(t, err)

	name := filepath.Base(path)
	assert.True(t, strings.HasPrefix(name, "reject_"))
	assert.True(t, strings.HasSuffix(name, ".json"))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"entity"`)
	assert.Contains(t, string(data), `"reason"`)
	assert.Contains(t, string(data), "expected string")
}
