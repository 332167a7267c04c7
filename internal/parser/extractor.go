package parser

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/jonesrussell/eventcrawl/internal/domain"
)

// ParseDocument parses an HTML page into a goquery document.
func ParseDocument(html string) (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	return doc, nil
}

// slotsFromStrings converts raw slot strings into slot maps. Accepted shapes
// are "start|end", "start-end" and a bare value used for both ends.
func slotsFromStrings(raw []string) []any {
	slots := make([]any, 0, len(raw))
	for _, value := range raw {
		var start, end string
		switch {
		case strings.Contains(value, "|"):
			start, end, _ = strings.Cut(value, "|")
		case strings.Contains(value, "-"):
			start, end, _ = strings.Cut(value, "-")
		default:
			start, end = value, value
		}
		slots = append(slots, domain.TimeSlot{
			Start: strings.TrimSpace(start),
			End:   strings.TrimSpace(end),
		}.SlotMap())
	}
	return slots
}

// rawStrings coerces a rule payload value into a string slice.
func rawStrings(value any) []string {
	switch v := value.(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

// firstOf returns the first non-nil, non-empty value among the named keys.
func firstOf(payload map[string]any, keys ...string) any {
	for _, key := range keys {
		if value, ok := payload[key]; ok && !domain.IsEmptyValue(value) {
			return value
		}
	}
	return nil
}

// ExtractEntities extracts all candidate entities for a page: JSON-LD nodes
// matching the requested type first, then one entity per rule-matched list
// item. Every candidate carries the source id and the requested type.
func ExtractEntities(doc *goquery.Document, sourceID, entityType string, spec *RuleSpec) ([]domain.Entity, error) {
	jsonldEntities, err := ExtractFromJSONLD(doc)
	if err != nil {
		return nil, err
	}

	var results []domain.Entity
	for _, candidate := range jsonldEntities {
		if candidate.Type() != entityType {
			continue
		}
		candidate[domain.FieldSourceID] = sourceID
		results = append(results, candidate)
	}

	for _, item := range ExtractWithRules(doc, spec) {
		entity := domain.Entity{
			domain.FieldType:      entityType,
			domain.FieldSourceID:  sourceID,
			domain.FieldTitle:     item["title"],
			domain.FieldStart:     item["start"],
			domain.FieldEnd:       item["end"],
			domain.FieldTimezone:  item["timezone"],
			domain.FieldVenueName: firstOf(item, "venue_name", "venue"),
			domain.FieldAddress:   firstOf(item, "address", "addr"),
			domain.FieldCity:      item["city"],
			domain.FieldCountry:   item["country"],
			domain.FieldTimeSlots: slotsFromStrings(rawStrings(item["time_slots"])),
			domain.FieldPriceText: item["price_text"],
			domain.FieldOrganizer: item["organizer"],
			domain.FieldURL:       item["detail_url"],
			domain.FieldImages:    item["images"],
		}
		if entityType == domain.TypeSports {
			entity[domain.FieldSportType] = item["sport_type"]
		}
		if spec.Timezone != "" && domain.IsEmptyValue(entity[domain.FieldTimezone]) {
			entity[domain.FieldTimezone] = spec.Timezone
		}
		results = append(results, entity)
	}
	return results, nil
}
