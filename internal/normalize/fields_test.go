package normalize

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/eventcrawl/internal/domain"
)

func TestDatetimesNaiveAdoptsHint(t *testing.T) {
	t.Parallel()

	entity := domain.Entity{
		domain.FieldStart:    "2026-06-01T19:00:00",
		domain.FieldEnd:      "2026-06-01T22:00:00",
		domain.FieldTimezone: "America/Toronto",
	}
	require.NoError(t, Datetimes(entity))
	assert.Equal(t, "2026-06-01T19:00:00-04:00", entity[domain.FieldStart])
	assert.Equal(t, "2026-06-01T22:00:00-04:00", entity[domain.FieldEnd])
}

func TestDatetimesNaiveWithoutHintIsUTC(t *testing.T) {
	t.Parallel()

	entity := domain.Entity{domain.FieldStart: "2026-06-01T19:00:00"}
	require.NoError(t, Datetimes(entity))
	assert.Equal(t, "2026-06-01T19:00:00+00:00", entity[domain.FieldStart])
	assert.Equal(t, "UTC", entity[domain.FieldTimezone])
}

func TestDatetimesZonedShiftsIntoHint(t *testing.T) {
	t.Parallel()

	entity := domain.Entity{
		domain.FieldStart:    "2026-06-01T23:00:00+00:00",
		domain.FieldTimezone: "America/Toronto",
	}
	require.NoError(t, Datetimes(entity))
	assert.Equal(t, "2026-06-01T19:00:00-04:00", entity[domain.FieldStart])
}

func TestDatetimesBackfillsTimezoneFromOffset(t *testing.T) {
	t.Parallel()

	entity := domain.Entity{domain.FieldStart: "2026-06-01T19:00:00-04:00"}
	require.NoError(t, Datetimes(entity))
	assert.Equal(t, "UTC-04:00", entity[domain.FieldTimezone])
}

func TestDatetimesNormalisesSlots(t *testing.T) {
	t.Parallel()

	entity := domain.Entity{
		domain.FieldTimezone: "America/Toronto",
		domain.FieldTimeSlots: []any{
			map[string]any{"start": "2026-06-01T19:00", "end": "2026-06-01T22:00"},
			map[string]any{"start": "2026-06-02T10:00", "end": ""},
		},
	}
	require.NoError(t, Datetimes(entity))

	slots, ok := entity[domain.FieldTimeSlots].([]any)
	require.True(t, ok)
	// The half-empty slot is dropped.
	require.Len(t, slots, 1)
	slot := slots[0].(map[string]any)
	assert.Equal(t, "2026-06-01T19:00:00-04:00", slot["start"])
	assert.Equal(t, "2026-06-01T22:00:00-04:00", slot["end"])
}

func TestDatetimesInvalidStart(t *testing.T) {
	t.Parallel()

	entity := domain.Entity{domain.FieldStart: "tomorrow evening"}
	assert.Error(t, Datetimes(entity))
}

func TestResolveTimezoneOffsets(t *testing.T) {
	t.Parallel()

	loc := resolveTimezone("UTC+05:30")
	require.NotNil(t, loc)
	_, offset := time.Now().In(loc).Zone()
	assert.Equal(t, 5*3600+30*60, offset)

	loc = resolveTimezone("UTC-04:00")
	require.NotNil(t, loc)
	_, offset = time.Now().In(loc).Zone()
	assert.Equal(t, -4*3600, offset)

	assert.Nil(t, resolveTimezone("Not/AZone"))
	assert.Nil(t, resolveTimezone(""))
}

func TestContacts(t *testing.T) {
	t.Parallel()

	entity := domain.Entity{
		domain.FieldOrganizer: "Book at Tickets@Example.ORG or call +1 (416) 555-0199",
		domain.FieldAddress:   "1 Main St, contact info@example.org",
		domain.FieldTitle:     "Jazz Night",
	}
	Contacts(entity)

	assert.Equal(t, []string{"info@example.org", "tickets@example.org"}, entity[domain.FieldEmails])
	assert.Equal(t, []string{"+14165550199"}, entity[domain.FieldPhones])
}

func TestContactsAlwaysSetsLists(t *testing.T) {
	t.Parallel()

	entity := domain.Entity{domain.FieldTitle: "Quiet"}
	Contacts(entity)
	assert.Equal(t, []string{}, entity[domain.FieldEmails])
	assert.Equal(t, []string{}, entity[domain.FieldPhones])
}

func TestPrice(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		priceText string
		want      any
	}{
		{"dollars and cents", "From $25.50", 25.5},
		{"comma decimal", "25,50 EUR", 25.5},
		{"whole number", "Tickets $40", 40.0},
		{"no number", "Free entry by donation", nil},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			entity := domain.Entity{domain.FieldPriceText: tt.priceText}
			Price(entity)
			if tt.want == nil {
				_, ok := entity[domain.FieldPriceValue]
				assert.False(t, ok)
				return
			}
			assert.Equal(t, tt.want, entity[domain.FieldPriceValue])
		})
	}
}

func TestURLs(t *testing.T) {
	t.Parallel()

	entity := domain.Entity{
		domain.FieldURL: "  https://example.org/event  ",
		domain.FieldImages: []any{
			"https://example.org/a.jpg",
			"  https://example.org/a.jpg ",
			"https://example.org/b.jpg",
			"",
		},
	}
	URLs(entity)

	assert.Equal(t, "https://example.org/event", entity[domain.FieldURL])
	assert.Equal(t, []string{"https://example.org/a.jpg", "https://example.org/b.jpg"}, entity[domain.FieldImages])
}

func TestTaxonomy(t *testing.T) {
	t.Parallel()

	entity := domain.Entity{
		domain.FieldType:      "sports",
		domain.FieldTitle:     "Charity Running Festival",
		domain.FieldSportType: "Marathon",
	}
	Taxonomy(entity)
	assert.Equal(t, []string{"running", "marathon"}, entity[domain.FieldTaxonomy])

	plain := domain.Entity{domain.FieldTitle: "Evening Jazz at the Art Gallery"}
	Taxonomy(plain)
	assert.Equal(t, []string{"music", "art"}, plain[domain.FieldTaxonomy])
}

func TestApplyIsIdempotent(t *testing.T) {
	t.Parallel()

	entity := domain.Entity{
		domain.FieldType:      "events",
		domain.FieldTitle:     "Jazz Night",
		domain.FieldStart:     "2026-06-01T19:00:00",
		domain.FieldTimezone:  "America/Toronto",
		domain.FieldPriceText: "$25.50",
	}
	require.NoError(t, Apply(entity))
	first := entity.Clone()
	require.NoError(t, Apply(entity))
	assert.Equal(t, first, entity)
}
