// Package normalize cleans extracted entities field by field: timestamp
// canonicalisation, contact extraction, price parsing, URL hygiene and
// taxonomy mapping.
package normalize

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/jonesrussell/eventcrawl/internal/domain"
	"github.com/jonesrussell/eventcrawl/internal/parser"
)

var (
	phonePattern = regexp.MustCompile(`[+\d][\d\-().\s]{4,}`)
	emailPattern = regexp.MustCompile(`(?i)[A-Z0-9._%+-]+@[A-Z0-9.-]+\.[A-Z]{2,}`)
	pricePattern = regexp.MustCompile(`(\d+)(?:[.,](\d{2}))?`)
	nonPhoneRune = regexp.MustCompile(`[^+\d]`)
)

// isoOffsetFormat renders timestamps with an explicit UTC offset.
const isoOffsetFormat = "2006-01-02T15:04:05-07:00"

// resolveTimezone turns a timezone hint into a location. IANA names come
// first; "UTC+HH:MM" style offsets are synthesised. Unknown names yield nil.
func resolveTimezone(name string) *time.Location {
	if name == "" {
		return nil
	}
	if loc, err := time.LoadLocation(name); err == nil {
		return loc
	}
	if strings.HasPrefix(name, "UTC") && len(name) >= 6 {
		sign := 1
		if name[3] == '-' {
			sign = -1
		}
		hours, hoursErr := strconv.Atoi(name[4:6])
		if hoursErr != nil {
			return nil
		}
		minutes := 0
		if len(name) >= 9 {
			if parsed, minutesErr := strconv.Atoi(name[7:9]); minutesErr == nil {
				minutes = parsed
			}
		}
		offset := sign * (hours*3600 + minutes*60)
		return time.FixedZone(name, offset)
	}
	return nil
}

// convertDatetime parses an ISO timestamp and anchors it in a timezone:
// naive values adopt the hint (or UTC), zoned values are shifted into the
// hint when one exists.
func convertDatetime(value, timezoneHint string) (time.Time, error) {
	parsed, err := parser.ParseISO(value)
	if err != nil {
		return time.Time{}, err
	}

	result := parsed.Time
	if !parsed.Zoned {
		loc := resolveTimezone(timezoneHint)
		if loc == nil {
			loc = time.UTC
		}
		result = time.Date(
			result.Year(), result.Month(), result.Day(),
			result.Hour(), result.Minute(), result.Second(), result.Nanosecond(),
			loc,
		)
	}
	if loc := resolveTimezone(timezoneHint); loc != nil {
		result = result.In(loc)
	}
	return result, nil
}

// offsetName renders a fixed offset as "UTC±HH:MM"; a zero offset is "UTC".
func offsetName(t time.Time) string {
	_, offset := t.Zone()
	if offset == 0 {
		return "UTC"
	}
	sign := "+"
	if offset < 0 {
		sign = "-"
		offset = -offset
	}
	return fmt.Sprintf("UTC%s%02d:%02d", sign, offset/3600, (offset%3600)/60)
}

// Datetimes canonicalises start, end and time_slots into zoned ISO-8601
// timestamps. When the entity has no timezone but the start carried an
// offset, the timezone field is backfilled from that offset.
func Datetimes(entity domain.Entity) error {
	timezoneHint := entity.String(domain.FieldTimezone)

	if start := entity.String(domain.FieldStart); start != "" {
		converted, err := convertDatetime(start, timezoneHint)
		if err != nil {
			return fmt.Errorf("normalize start: %w", err)
		}
		entity[domain.FieldStart] = converted.Format(isoOffsetFormat)
		if timezoneHint == "" {
			timezoneHint = offsetName(converted)
			entity[domain.FieldTimezone] = timezoneHint
		}
	}

	if end := entity.String(domain.FieldEnd); end != "" {
		converted, err := convertDatetime(end, timezoneHint)
		if err != nil {
			return fmt.Errorf("normalize end: %w", err)
		}
		entity[domain.FieldEnd] = converted.Format(isoOffsetFormat)
	}

	slots, ok := entity[domain.FieldTimeSlots].([]any)
	if !ok {
		return nil
	}
	normalised := make([]any, 0, len(slots))
	for _, raw := range slots {
		slot, isMap := raw.(map[string]any)
		if !isMap {
			continue
		}
		start, _ := slot["start"].(string)
		end, _ := slot["end"].(string)
		if start == "" || end == "" {
			continue
		}
		startTime, startErr := convertDatetime(start, timezoneHint)
		if startErr != nil {
			return fmt.Errorf("normalize slot start: %w", startErr)
		}
		endTime, endErr := convertDatetime(end, timezoneHint)
		if endErr != nil {
			return fmt.Errorf("normalize slot end: %w", endErr)
		}
		normalised = append(normalised, map[string]any{
			"start": startTime.Format(isoOffsetFormat),
			"end":   endTime.Format(isoOffsetFormat),
		})
	}
	entity[domain.FieldTimeSlots] = normalised
	return nil
}

// Contacts scans the entity's free-form text fields and derives sorted,
// deduplicated email and phone lists.
func Contacts(entity domain.Entity) {
	var parts []string
	for _, field := range []string{domain.FieldPriceText, domain.FieldOrganizer, domain.FieldAddress, domain.FieldTitle} {
		if value := entity.String(field); value != "" {
			parts = append(parts, value)
		}
	}
	pool := strings.Join(parts, " ")

	emailSet := make(map[string]struct{})
	for _, match := range emailPattern.FindAllString(pool, -1) {
		emailSet[strings.ToLower(match)] = struct{}{}
	}
	phoneSet := make(map[string]struct{})
	for _, match := range phonePattern.FindAllString(pool, -1) {
		phoneSet[nonPhoneRune.ReplaceAllString(match, "")] = struct{}{}
	}

	entity[domain.FieldEmails] = sortedKeys(emailSet)
	entity[domain.FieldPhones] = sortedKeys(phoneSet)
}

func sortedKeys(set map[string]struct{}) []string {
	keys := make([]string, 0, len(set))
	for key := range set {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// Price derives a numeric price_value from the first number found in
// price_text, treating a two-digit decimal part as minor units.
func Price(entity domain.Entity) {
	priceText := entity.String(domain.FieldPriceText)
	if priceText == "" {
		return
	}
	match := pricePattern.FindStringSubmatch(priceText)
	if match == nil {
		return
	}
	major, err := strconv.Atoi(match[1])
	if err != nil {
		return
	}
	minor := 0
	if match[2] != "" {
		minor, _ = strconv.Atoi(match[2])
	}
	entity[domain.FieldPriceValue] = float64(major) + float64(minor)/100
}

// URLs trims the primary url and deduplicates image URLs preserving order.
func URLs(entity domain.Entity) {
	if url := entity.String(domain.FieldURL); url != "" {
		entity[domain.FieldURL] = strings.TrimSpace(url)
	}
	rawImages, ok := entity[domain.FieldImages].([]any)
	if !ok {
		if typed, isStrings := entity[domain.FieldImages].([]string); isStrings {
			rawImages = make([]any, len(typed))
			for i, v := range typed {
				rawImages[i] = v
			}
		} else {
			return
		}
	}
	seen := make([]string, 0, len(rawImages))
	for _, raw := range rawImages {
		value, isString := raw.(string)
		if !isString {
			continue
		}
		cleaned := strings.TrimSpace(value)
		if cleaned == "" || contains(seen, cleaned) {
			continue
		}
		seen = append(seen, cleaned)
	}
	entity[domain.FieldImages] = seen
}

func contains(values []string, target string) bool {
	for _, value := range values {
		if value == target {
			return true
		}
	}
	return false
}

// Apply runs every normalisation step in pipeline order.
func Apply(entity domain.Entity) error {
	if err := Datetimes(entity); err != nil {
		return err
	}
	Contacts(entity)
	Price(entity)
	URLs(entity)
	Taxonomy(entity)
	return nil
}
