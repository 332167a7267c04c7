package storage

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/jonesrussell/eventcrawl/internal/domain"
)

// runIDDateLayout parses the date token embedded in run ids.
const runIDDateLayout = "20060102"

// Writer persists entities to the silver and gold tiers plus SQLite.
type Writer struct {
	layout *DataLayout
}

// NewWriter creates a Writer over the prepared layout.
func NewWriter(layout *DataLayout) *Writer {
	return &Writer{layout: layout}
}

// Persist writes the entities for one type to silver JSONL, a date
// partitioned gold CSV and the gold SQLite database. The returned map names
// each artefact written; an empty entity list writes nothing.
func (w *Writer) Persist(entityType string, entities []domain.Entity, runID string) (map[string]string, error) {
	if len(entities) == 0 {
		return map[string]string{}, nil
	}

	partition, err := runPartition(runID)
	if err != nil {
		return nil, err
	}

	silverPath := filepath.Join(w.layout.Silver, fmt.Sprintf("%s-%s.jsonl", entityType, runID))
	if silverErr := writeSilver(entities, silverPath); silverErr != nil {
		return nil, silverErr
	}

	goldDir := filepath.Join(w.layout.Gold, partition)
	if mkErr := os.MkdirAll(goldDir, 0o755); mkErr != nil {
		return nil, fmt.Errorf("create gold partition: %w", mkErr)
	}
	goldPath := filepath.Join(goldDir, entityType+".csv")
	if csvErr := writeCSV(entities, goldPath); csvErr != nil {
		return nil, csvErr
	}

	sqlitePath := w.layout.GoldSQLite()
	if sqliteErr := upsertSQLite(entities, sqlitePath, entityType); sqliteErr != nil {
		return nil, sqliteErr
	}

	return map[string]string{
		"silver": silverPath,
		"gold":   goldPath,
		"sqlite": sqlitePath,
	}, nil
}

// runPartition derives the gold partition date from the run id's trailing
// timestamp token, e.g. events-20260824T101500 partitions as 2026-08-24.
func runPartition(runID string) (string, error) {
	token := runID
	if idx := strings.LastIndex(runID, "-"); idx >= 0 {
		token = runID[idx+1:]
	}
	if len(token) < len(runIDDateLayout) {
		return "", fmt.Errorf("run id %q has no date token", runID)
	}
	parsed, err := time.Parse(runIDDateLayout, token[:len(runIDDateLayout)])
	if err != nil {
		return "", fmt.Errorf("run id %q has no date token: %w", runID, err)
	}
	return parsed.Format("2006-01-02"), nil
}

// writeSilver writes one JSON document per line.
func writeSilver(entities []domain.Entity, path string) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create silver file: %w", err)
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	for _, entity := range entities {
		if encodeErr := encoder.Encode(entity); encodeErr != nil {
			return fmt.Errorf("write silver row: %w", encodeErr)
		}
	}
	return nil
}

// writeCSV writes all entities with a header spanning the union of their
// fields, sorted for stable column order.
func writeCSV(entities []domain.Entity, path string) error {
	columnSet := make(map[string]struct{})
	for _, entity := range entities {
		for key := range entity {
			columnSet[key] = struct{}{}
		}
	}
	columns := make([]string, 0, len(columnSet))
	for key := range columnSet {
		columns = append(columns, key)
	}
	sort.Strings(columns)

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create gold csv: %w", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if headerErr := writer.Write(columns); headerErr != nil {
		return fmt.Errorf("write csv header: %w", headerErr)
	}
	for _, entity := range entities {
		row := make([]string, len(columns))
		for i, column := range columns {
			row[i] = cellValue(entity[column])
		}
		if rowErr := writer.Write(row); rowErr != nil {
			return fmt.Errorf("write csv row: %w", rowErr)
		}
	}
	writer.Flush()
	return writer.Error()
}

// cellValue renders one entity field for CSV output: nil is empty, scalars
// print directly and composite values serialise as JSON.
func cellValue(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	default:
		encoded, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(encoded)
	}
}
