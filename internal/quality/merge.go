package quality

import (
	"reflect"

	"github.com/jonesrussell/eventcrawl/internal/domain"
)

// Merge folds a candidate into an existing entity. Empty candidate values
// never overwrite; differing non-empty values replace in full, lists
// included. The mutated flag reports whether anything changed.
func Merge(existing, candidate domain.Entity) (domain.Entity, bool) {
	mutated := false
	for key, value := range candidate {
		if domain.IsEmptyValue(value) {
			continue
		}
		if !reflect.DeepEqual(existing[key], value) {
			existing[key] = value
			mutated = true
		}
	}
	return existing, mutated
}
