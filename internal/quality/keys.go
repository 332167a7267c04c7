// Package quality guards what reaches the gold tier: deterministic identity
// keys, duplicate detection, precedence-based merging and a quarantine for
// rejects.
package quality

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/jonesrussell/eventcrawl/internal/domain"
	"github.com/jonesrussell/eventcrawl/internal/parser"
)

// fallbackStart anchors entities with no usable start or end timestamp.
const fallbackStart = "1970-01-01T00:00:00Z"

// normaliseText lowercases and collapses internal whitespace.
func normaliseText(text string) string {
	return strings.Join(strings.Fields(strings.ToLower(text)), " ")
}

// dayBucket truncates an ISO timestamp to midnight in its own zone so the
// same event advertised at different times of day still shares a key.
func dayBucket(value string) (string, error) {
	parsed, err := parser.ParseISO(value)
	if err != nil {
		return "", err
	}
	t := parsed.Time
	midnight := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	return parser.ParsedTime{Time: midnight, Zoned: parsed.Zoned}.ISOFormat(), nil
}

// startOrFallback picks the key timestamp: start, then end, then the epoch.
func startOrFallback(entity domain.Entity) string {
	if start := entity.String(domain.FieldStart); start != "" {
		return start
	}
	if end := entity.String(domain.FieldEnd); end != "" {
		return end
	}
	return fallbackStart
}

// EntityKey computes the canonical identity key: the SHA-1 of the normalised
// title, day bucket, venue (or address), city and source id.
func EntityKey(entity domain.Entity) (string, error) {
	bucket, err := dayBucket(startOrFallback(entity))
	if err != nil {
		return "", fmt.Errorf("entity key: %w", err)
	}

	venue := entity.String(domain.FieldVenueName)
	if venue == "" {
		venue = entity.String(domain.FieldAddress)
	}

	payload := strings.Join([]string{
		normaliseText(entity.String(domain.FieldTitle)),
		bucket,
		normaliseText(venue),
		normaliseText(entity.String(domain.FieldCity)),
		entity.String(domain.FieldSourceID),
	}, "|")

	sum := sha1.Sum([]byte(payload))
	return hex.EncodeToString(sum[:]), nil
}

// NearbyKeys returns the keys the entity would have had one day earlier and
// one day later, catching listings that disagree about which side of
// midnight an event falls on.
func NearbyKeys(entity domain.Entity) ([]string, error) {
	start := entity.String(domain.FieldStart)
	if start == "" {
		start = entity.String(domain.FieldEnd)
	}
	if start == "" {
		return nil, nil
	}
	parsed, err := parser.ParseISO(start)
	if err != nil {
		return nil, fmt.Errorf("nearby keys: %w", err)
	}

	keys := make([]string, 0, 2)
	for _, delta := range []int{-1, 1} {
		shifted := parser.ParsedTime{
			Time:  parsed.Time.Add(time.Duration(delta) * 24 * time.Hour),
			Zoned: parsed.Zoned,
		}
		clone := entity.Clone()
		clone[domain.FieldStart] = shifted.ISOFormat()
		key, keyErr := EntityKey(clone)
		if keyErr != nil {
			return nil, keyErr
		}
		keys = append(keys, key)
	}
	return keys, nil
}
