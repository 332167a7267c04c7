// Package admin implements the read-only operational views: per-source run
// statistics, quarantine summaries and URL-to-source explanations.
package admin

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/jonesrussell/eventcrawl/internal/domain"
	"github.com/jonesrussell/eventcrawl/internal/quality"
	"github.com/jonesrussell/eventcrawl/internal/sources"
)

// rejectTimeLayout parses the timestamp token in quarantine filenames.
const rejectTimeLayout = "20060102T150405"

// StatusRow summarises one source's most recent run outcome.
type StatusRow struct {
	SourceID    string `json:"source_id"`
	RowsNew     int    `json:"rows_new"`
	RowsUpdated int    `json:"rows_updated"`
	Rejects     int    `json:"rejects"`
	LastRun     string `json:"last_run"`
}

// loadManifests reads the run manifests newest first. Corrupt files are
// skipped.
func loadManifests(manifestDir string) []domain.RunManifest {
	matches, err := filepath.Glob(filepath.Join(manifestDir, "run-*.json"))
	if err != nil {
		return nil
	}
	sort.Sort(sort.Reverse(sort.StringSlice(matches)))

	var manifests []domain.RunManifest
	for _, path := range matches {
		data, readErr := os.ReadFile(path)
		if readErr != nil {
			continue
		}
		var manifest domain.RunManifest
		if unmarshalErr := json.Unmarshal(data, &manifest); unmarshalErr != nil {
			continue
		}
		manifests = append(manifests, manifest)
	}
	return manifests
}

// SourceStatus builds the status table: one row per registered source with
// the stats from its newest manifest appearance.
func SourceStatus(sourcesCSV, manifestDir string) ([]StatusRow, error) {
	rows, err := sources.ReadRows(sourcesCSV)
	if err != nil {
		return nil, err
	}
	manifests := loadManifests(manifestDir)

	summary := make([]StatusRow, 0, len(rows))
	for _, row := range rows {
		status := StatusRow{SourceID: row["source_id"]}
		for _, manifest := range manifests {
			stats, ok := manifest.SourceStats[status.SourceID]
			if !ok {
				continue
			}
			status.RowsNew = stats.RowsNew
			status.RowsUpdated = stats.RowsUpdated
			status.Rejects = stats.Rejects
			status.LastRun = manifest.RunID
			break
		}
		summary = append(summary, status)
	}
	return summary, nil
}

// RejectSummary counts quarantine reasons within the lookback window,
// optionally filtered to one source. Files whose timestamps cannot be parsed
// count as current.
func RejectSummary(quarantineDir, sourceID string, lookbackDays int) (map[string]int, error) {
	matches, err := filepath.Glob(filepath.Join(quarantineDir, "reject_*.json"))
	if err != nil {
		return nil, err
	}

	cutoff := time.Now().UTC().AddDate(0, 0, -lookbackDays)
	reasons := make(map[string]int)
	for _, path := range matches {
		stem := strings.TrimSuffix(filepath.Base(path), ".json")
		token := stem[strings.LastIndex(stem, "_")+1:]
		stamp := time.Now().UTC()
		if len(token) >= len(rejectTimeLayout) {
			if parsed, parseErr := time.Parse(rejectTimeLayout, token[:len(rejectTimeLayout)]); parseErr == nil {
				stamp = parsed
			}
		}
		if stamp.Before(cutoff) {
			continue
		}

		data, readErr := os.ReadFile(path)
		if readErr != nil {
			continue
		}
		var record quality.RejectRecord
		if unmarshalErr := json.Unmarshal(data, &record); unmarshalErr != nil {
			continue
		}
		if sourceID != "" && record.Entity.String(domain.FieldSourceID) != sourceID {
			continue
		}
		for _, reason := range record.Reason {
			reasons[reason]++
		}
	}
	return reasons, nil
}

// Explanation describes which source configuration governs a URL.
type Explanation struct {
	URL       string `json:"url"`
	Matched   bool   `json:"matched"`
	SourceID  string `json:"source_id,omitempty"`
	Type      string `json:"type,omitempty"`
	MaxQPS    string `json:"max_qps,omitempty"`
	RulesPath string `json:"rules_path,omitempty"`
	RobotsOK  string `json:"robots_ok,omitempty"`
}

// Explain matches a URL against the registry by base URL prefix.
func Explain(sourcesCSV, url string) (Explanation, error) {
	rows, err := sources.ReadRows(sourcesCSV)
	if err != nil {
		return Explanation{}, err
	}
	for _, row := range rows {
		if row["base_url"] == "" || !strings.HasPrefix(url, row["base_url"]) {
			continue
		}
		return Explanation{
			URL:       url,
			Matched:   true,
			SourceID:  row["source_id"],
			Type:      row["type"],
			MaxQPS:    row["max_qps"],
			RulesPath: row["css_rules_path"],
			RobotsOK:  row["robots_ok"],
		}, nil
	}
	return Explanation{URL: url, Matched: false}, nil
}
