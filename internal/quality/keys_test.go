package quality

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/eventcrawl/internal/domain"
)

func keyedEntity(start string) domain.Entity {
	return domain.Entity{
		domain.FieldSourceID:  "src-1",
		domain.FieldTitle:     "Jazz Night",
		domain.FieldVenueName: "Blue Room",
		domain.FieldCity:      "Toronto",
		domain.FieldStart:     start,
	}
}

func TestEntityKeySameDayDifferentTimes(t *testing.T) {
	t.Parallel()

	morning, err := EntityKey(keyedEntity("2026-06-01T09:00:00-04:00"))
	require.NoError(t, err)
	evening, err := EntityKey(keyedEntity("2026-06-01T21:00:00-04:00"))
	require.NoError(t, err)
	assert.Equal(t, morning, evening)

	nextDay, err := EntityKey(keyedEntity("2026-06-02T09:00:00-04:00"))
	require.NoError(t, err)
	assert.NotEqual(t, morning, nextDay)
}

func TestEntityKeyNormalisesText(t *testing.T) {
	t.Parallel()

	a := keyedEntity("2026-06-01T19:00:00")
	b := keyedEntity("2026-06-01T19:00:00")
	b[domain.FieldTitle] = "  JAZZ   night "

	keyA, err := EntityKey(a)
	require.NoError(t, err)
	keyB, err := EntityKey(b)
	require.NoError(t, err)
	assert.Equal(t, keyA, keyB)
}

func TestEntityKeyFallsBackToAddress(t *testing.T) {
	t.Parallel()

	withVenue := keyedEntity("2026-06-01T19:00:00")
	withAddress := keyedEntity("2026-06-01T19:00:00")
	delete(withAddress, domain.FieldVenueName)
	withAddress[domain.FieldAddress] = "Blue Room"

	keyVenue, err := EntityKey(withVenue)
	require.NoError(t, err)
	keyAddress, err := EntityKey(withAddress)
	require.NoError(t, err)
	assert.Equal(t, keyVenue, keyAddress)
}

func TestEntityKeyNoTimestampsUsesEpoch(t *testing.T) {
	t.Parallel()

	entity := keyedEntity("")
	delete(entity, domain.FieldStart)

	key, err := EntityKey(entity)
	require.NoError(t, err)
	assert.NotEmpty(t, key)
}

func TestEntityKeyInvalidStart(t *testing.T) {
	t.Parallel()

	_, err := EntityKey(keyedEntity("next friday"))
	assert.Error(t, err)
}

func TestNearbyKeys(t *testing.T) {
	t.Parallel()

	entity := keyedEntity("2026-06-01T19:00:00-04:00")
	keys, err := NearbyKeys(entity)
	require.NoError(t, err)
	require.Len(t, keys, 2)

	dayBefore, err := EntityKey(keyedEntity("2026-05-31T19:00:00-04:00"))
	require.NoError(t, err)
	dayAfter, err := EntityKey(keyedEntity("2026-06-02T19:00:00-04:00"))
	require.NoError(t, err)
	assert.Equal(t, []string{dayBefore, dayAfter}, keys)
}

func TestNearbyKeysWithoutTimestamps(t *testing.T) {
	t.Parallel()

	entity := keyedEntity("")
	delete(entity, domain.FieldStart)

	keys, err := NearbyKeys(entity)
	require.NoError(t, err)
	assert.Nil(t, keys)
}
