package normalize

import (
	"strings"

	"github.com/jonesrussell/eventcrawl/internal/domain"
)

// categoryMap maps title keywords onto canonical taxonomy labels.
var categoryMap = []struct {
	keyword string
	label   string
}{
	{"jazz", "music"},
	{"art", "art"},
	{"football", "football"},
	{"running", "running"},
}

// Taxonomy attaches canonical taxonomy labels derived from the title, plus
// the lowercased sport_type for sports entities.
func Taxonomy(entity domain.Entity) {
	labels := entity.StringSlice(domain.FieldTaxonomy)
	if labels == nil {
		labels = []string{}
	}

	title := strings.ToLower(entity.String(domain.FieldTitle))
	for _, category := range categoryMap {
		if strings.Contains(title, category.keyword) && !contains(labels, category.label) {
			labels = append(labels, category.label)
		}
	}

	if entity.Type() == domain.TypeSports {
		if sportType := entity.String(domain.FieldSportType); sportType != "" {
			lowered := strings.ToLower(sportType)
			if !contains(labels, lowered) {
				labels = append(labels, lowered)
			}
		}
	}
	entity[domain.FieldTaxonomy] = labels
}
