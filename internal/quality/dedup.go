package quality

import "github.com/jonesrussell/eventcrawl/internal/domain"

// Deduplicator tracks seen entity keys within one run.
type Deduplicator struct {
	seen map[string]domain.Entity
}

// NewDeduplicator creates an empty Deduplicator.
func NewDeduplicator() *Deduplicator {
	return &Deduplicator{seen: make(map[string]domain.Entity)}
}

// IsDuplicate reports whether the entity matches a known key, either exactly
// or through one of its day-shifted nearby keys.
func (d *Deduplicator) IsDuplicate(entity domain.Entity) (bool, error) {
	primary, err := EntityKey(entity)
	if err != nil {
		return false, err
	}
	if _, ok := d.seen[primary]; ok {
		return true, nil
	}

	nearby, err := NearbyKeys(entity)
	if err != nil {
		return false, err
	}
	for _, key := range nearby {
		if _, ok := d.seen[key]; ok {
			return true, nil
		}
	}
	return false, nil
}

// Remember records the entity's key so later candidates collide with it.
func (d *Deduplicator) Remember(entity domain.Entity) error {
	key, err := EntityKey(entity)
	if err != nil {
		return err
	}
	d.seen[key] = entity.Clone()
	return nil
}
