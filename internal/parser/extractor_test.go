package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/eventcrawl/internal/domain"
)

func TestSlotsFromStrings(t *testing.T) {
	t.Parallel()

	slots := slotsFromStrings([]string{"19:00|22:00", "19:00-22:00", "19:00"})
	require.Len(t, slots, 3)

	first, ok := slots[0].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "19:00", first["start"])
	assert.Equal(t, "22:00", first["end"])

	second := slots[1].(map[string]any)
	assert.Equal(t, "19:00", second["start"])
	assert.Equal(t, "22:00", second["end"])

	third := slots[2].(map[string]any)
	assert.Equal(t, "19:00", third["start"])
	assert.Equal(t, "19:00", third["end"])
}

func TestExtractEntitiesCombinesSources(t *testing.T) {
	t.Parallel()

	html := `
<html><head>
<script type="application/ld+json">
{"@type": "Event", "name": "From JSON-LD"}
</script>
<script type="application/ld+json">
{"@type": "Festival", "name": "Wrong Type"}
</script>
</head><body>
  <div class="event">
    <h2 class="title">From Rules</h2>
    <span class="venue">Hall A</span>
    <a class="detail" href="https://example.org/detail">more</a>
  </div>
</body></html>`
	doc := mustParse(t, html)

	spec := &RuleSpec{
		ListItem: "div.event",
		Fields: map[string]string{
			"title":      "h2.title",
			"venue":      "span.venue",
			"detail_url": "a.detail@href",
		},
		MaxPages: 1,
		Timezone: "America/Toronto",
	}

	entities, err := ExtractEntities(doc, "src-1", domain.TypeEvents, spec)
	require.NoError(t, err)
	require.Len(t, entities, 2)

	jsonld := entities[0]
	assert.Equal(t, "From JSON-LD", jsonld[domain.FieldTitle])
	assert.Equal(t, "src-1", jsonld[domain.FieldSourceID])

	ruled := entities[1]
	assert.Equal(t, "From Rules", ruled[domain.FieldTitle])
	assert.Equal(t, "src-1", ruled[domain.FieldSourceID])
	assert.Equal(t, domain.TypeEvents, ruled.Type())
	// "venue" aliases onto venue_name and detail_url onto url.
	assert.Equal(t, "Hall A", ruled[domain.FieldVenueName])
	assert.Equal(t, "https://example.org/detail", ruled[domain.FieldURL])
	assert.Equal(t, "America/Toronto", ruled[domain.FieldTimezone])
}

func TestDiscoverNextURLs(t *testing.T) {
	t.Parallel()

	html := `
<html><body>
  <a class="next" href="/events?page=2">next</a>
  <a class="next" href="/events?page=3">next again</a>
  <a rel="next" href="/cal/2026-07">July</a>
  <a class="month-next" href="/cal/2026-08">August</a>
</body></html>`
	doc := mustParse(t, html)

	spec := &RuleSpec{
		ListItem:     DefaultListItemSelector,
		NextSelector: "a.next@href",
		MonthGrid:    true,
		MaxPages:     10,
	}

	urls := DiscoverNextURLs(doc, "https://example.org/events", spec)
	// next_selector contributes only the first match; the grid adds both.
	assert.Equal(t, []string{
		"https://example.org/events?page=2",
		"https://example.org/cal/2026-07",
		"https://example.org/cal/2026-08",
	}, urls)
}

func TestDiscoverNextURLsRespectsPageBudget(t *testing.T) {
	t.Parallel()

	html := `
<html><body>
  <a rel="next" href="/cal/2">b</a>
  <a rel="next" href="/cal/3">c</a>
  <a rel="next" href="/cal/4">d</a>
</body></html>`
	doc := mustParse(t, html)

	spec := &RuleSpec{MonthGrid: true, MaxPages: 3}
	urls := DiscoverNextURLs(doc, "https://example.org/cal/1", spec)
	assert.Len(t, urls, 2)

	single := &RuleSpec{MonthGrid: true, MaxPages: 1}
	assert.Nil(t, DiscoverNextURLs(doc, "https://example.org/cal/1", single))
}
