// Package domain defines the core data model shared by the crawl pipeline:
// entities, jobs, snapshots, checkpoints and the run manifest.
package domain

// Entity types recognised by the pipeline.
const (
	TypeEvents    = "events"
	TypeFestivals = "festivals"
	TypeSports    = "sports"
	// TypeAll requests every entity type during planning.
	TypeAll = "all"
)

// EntityTypes lists the concrete (non-wildcard) entity types.
var EntityTypes = []string{TypeEvents, TypeFestivals, TypeSports}

// Entity field names. Entities travel through the pipeline as maps because
// pruning, merging and the gold CSV column union are key-set operations over
// whichever fields a source happened to provide; the discriminator lives under
// FieldType and the sports variant adds FieldSportType.
const (
	FieldType       = "type"
	FieldSourceID   = "source_id"
	FieldTitle      = "title"
	FieldStart      = "start"
	FieldEnd        = "end"
	FieldTimezone   = "timezone"
	FieldVenueName  = "venue_name"
	FieldAddress    = "address"
	FieldCity       = "city"
	FieldCountry    = "country"
	FieldTimeSlots  = "time_slots"
	FieldPriceText  = "price_text"
	FieldPriceValue = "price_value"
	FieldOrganizer  = "organizer"
	FieldURL        = "url"
	FieldEmails     = "emails"
	FieldPhones     = "phones"
	FieldImages     = "images"
	FieldTaxonomy   = "taxonomy"
	FieldSportType  = "sport_type"
)

// Entity is a polymorphic crawl record discriminated by the "type" field.
type Entity map[string]any

// Type returns the entity type discriminator, or "" when absent.
func (e Entity) Type() string {
	return e.String(FieldType)
}

// String returns the named field as a string, or "" when absent or non-string.
func (e Entity) String(field string) string {
	if value, ok := e[field].(string); ok {
		return value
	}
	return ""
}

// StringSlice returns the named field as a string slice, tolerating []any
// payloads produced by JSON decoding.
func (e Entity) StringSlice(field string) []string {
	switch value := e[field].(type) {
	case []string:
		return value
	case []any:
		out := make([]string, 0, len(value))
		for _, item := range value {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

// Clone returns a shallow copy of the entity.
func (e Entity) Clone() Entity {
	clone := make(Entity, len(e))
	for key, value := range e {
		clone[key] = value
	}
	return clone
}

// IsEmptyValue reports whether a field value counts as empty for merge
// purposes: nil, empty string, empty slice or empty map.
func IsEmptyValue(value any) bool {
	switch v := value.(type) {
	case nil:
		return true
	case string:
		return v == ""
	case []any:
		return len(v) == 0
	case []string:
		return len(v) == 0
	case map[string]any:
		return len(v) == 0
	}
	return false
}

// TimeSlot represents a contiguous time window for an event.
type TimeSlot struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// SlotMap converts a TimeSlot into its map form used inside entities.
func (s TimeSlot) SlotMap() map[string]any {
	return map[string]any{"start": s.Start, "end": s.End}
}
