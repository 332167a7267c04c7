package jobs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/eventcrawl/internal/domain"
)

func TestCheckpointRoundTrip(t *testing.T) {
	t.Parallel()

	checkpointer := NewCheckpointer(t.TempDir())
	saved := &domain.JobCheckpoint{
		JobID:              "job-1",
		URLCursor:          "https://example.org/page2",
		PageIdx:            1,
		DiscoveredURLsHash: "abc123",
	}
	require.NoError(t, checkpointer.Save("run-1", saved))

	loaded := checkpointer.Load("run-1")
	require.NotNil(t, loaded)
	assert.Equal(t, saved, loaded)

	require.NoError(t, checkpointer.Clear("run-1"))
	assert.Nil(t, checkpointer.Load("run-1"))
	// Clearing twice must not fail.
	require.NoError(t, checkpointer.Clear("run-1"))
}

func TestCheckpointLoadAbsent(t *testing.T) {
	t.Parallel()

	checkpointer := NewCheckpointer(t.TempDir())
	assert.Nil(t, checkpointer.Load("missing"))
}

func TestHashDiscoveredURLsOrderIndependent(t *testing.T) {
	t.Parallel()

	a := HashDiscoveredURLs([]string{"https://a.example.org", "https://b.example.org"})
	b := HashDiscoveredURLs([]string{"https://b.example.org", "https://a.example.org"})
	c := HashDiscoveredURLs([]string{"https://a.example.org"})

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
}
