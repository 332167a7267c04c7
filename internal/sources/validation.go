package sources

import (
	"path/filepath"
)

// Validation result detail values for well-formed rows.
const (
	DetailOK       = "ok"
	DetailDisabled = "disabled"
)

// ValidationResult reports the outcome of validating a single registry row.
type ValidationResult struct {
	SourceID string
	OK       bool
	// Detail is "ok", "disabled", or the validation error text.
	Detail string
}

// ValidateSources validates every row of the registry CSV without raising
// on the first bad row, returning one result per row. Disabled rows are
// reported rather than skipped.
func ValidateSources(csvPath string) ([]ValidationResult, error) {
	rows, err := ReadRows(csvPath)
	if err != nil {
		return nil, err
	}

	baseDir := filepath.Dir(csvPath)
	results := make([]ValidationResult, 0, len(rows))
	for _, row := range rows {
		sourceID := row["source_id"]

		source, rowErr := fromRow(row, baseDir)
		if rowErr == nil && source.Enabled {
			rowErr = source.ensureRulesExist()
		}
		if rowErr != nil {
			results = append(results, ValidationResult{SourceID: sourceID, OK: false, Detail: rowErr.Error()})
			continue
		}

		detail := DetailOK
		if !source.Enabled {
			detail = DetailDisabled
		}
		results = append(results, ValidationResult{SourceID: sourceID, OK: true, Detail: detail})
	}
	return results, nil
}
