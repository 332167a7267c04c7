package sources

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// ReadRows reads the CSV into header-keyed row maps without validation,
// skipping rows with no source id. Administrative commands use this to see
// disabled and broken rows the strict loader would refuse.
func ReadRows(csvPath string) ([]map[string]string, error) {
	file, err := os.Open(csvPath)
	if err != nil {
		return nil, fmt.Errorf("open sources csv: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read sources csv header: %w", err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}

	var rows []map[string]string
	for {
		record, readErr := reader.Read()
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			return nil, fmt.Errorf("read sources csv row: %w", readErr)
		}

		row := make(map[string]string, len(header))
		for i, cell := range record {
			if i < len(header) {
				row[header[i]] = strings.TrimSpace(cell)
			}
		}
		if row["source_id"] == "" {
			continue
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// LoadSources loads enabled sources from the registry CSV, validating each
// row strictly. Any invalid enabled row (including a missing rule file)
// fails the load; disabled rows are silently skipped.
func LoadSources(csvPath string) ([]*Source, error) {
	rows, err := ReadRows(csvPath)
	if err != nil {
		return nil, err
	}

	baseDir := filepath.Dir(csvPath)
	var configs []*Source
	for _, row := range rows {
		source, rowErr := fromRow(row, baseDir)
		if rowErr != nil {
			return nil, fmt.Errorf("invalid source row %s: %w", row["source_id"], rowErr)
		}
		if !source.Enabled {
			continue
		}
		if rulesErr := source.ensureRulesExist(); rulesErr != nil {
			return nil, fmt.Errorf("invalid source row %s: %w", source.SourceID, rulesErr)
		}
		configs = append(configs, source)
	}
	if len(configs) == 0 {
		return nil, ErrNoSources
	}
	return configs, nil
}
