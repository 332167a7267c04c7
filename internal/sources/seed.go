package sources

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
)

// registryHeader is the canonical column order for the sources CSV.
var registryHeader = []string{
	"source_id", "base_url", "type", "country", "robots_ok", "sitemap_url",
	"css_rules_path", "crawl_freq", "max_qps", "concurrency", "enabled",
}

// seedRows are the demo registry entries written by seed-sources.
var seedRows = [][]string{
	{
		"demo-events", "https://events.example.org/listings", "events", "CA", "yes", "",
		"rules/demo-events.yml", "daily", "1", "1", "yes",
	},
	{
		"demo-festivals", "https://festivals.example.org/calendar", "festivals", "CA", "yes", "",
		"rules/demo-festivals.yml", "weekly", "1", "1", "yes",
	},
	{
		"demo-sports", "https://sports.example.org/fixtures", "sports", "CA", "yes", "",
		"rules/demo-sports.yml", "weekly", "1", "1", "yes",
	},
}

// seedRules maps rule file names to demo rule documents.
var seedRules = map[string]string{
	"demo-events.yml": `selectors:
  list_item: "div.event-card"
fields:
  title: "h2.title"
  start: "time.start@datetime"
  end: "time.end@datetime"
  venue_name: "span.venue"
  address: "span.address"
  city: "span.city"
  country: "span.country"
  time_slots: "span.slot[]"
  price_text: "span.price"
  organizer: "span.organizer"
  detail_url: "a.details@href"
  images: "img.poster@src[]"
pagination:
  next_selector: "a.next@href"
  max_pages: 3
date_scopes:
  timezone: "America/Toronto"
`,
	"demo-festivals.yml": `selectors:
  list_item: "article.festival"
fields:
  title: "h3"
  start: "time.from@datetime"
  end: "time.to@datetime"
  venue_name: "p.grounds"
  address: "p.address"
  city: "p.city"
  detail_url: "a@href"
pagination:
  month_grid: true
  max_pages: 2
date_scopes:
  timezone: "America/Toronto"
`,
	"demo-sports.yml": `selectors:
  list_item: "li.fixture"
fields:
  title: "span.match"
  start: "time@datetime"
  venue_name: "span.stadium"
  address: "span.address"
  city: "span.city"
  sport_type: "span.discipline"
  detail_url: "a.ticket@href"
pagination:
  max_pages: 1
date_scopes:
  timezone: "America/Toronto"
`,
}

// SeedRegistry writes the demo sources CSV and its rule files. An existing
// registry is left untouched.
func SeedRegistry(csvPath string) error {
	if _, err := os.Stat(csvPath); err == nil {
		return fmt.Errorf("registry already exists at %s", csvPath)
	}

	baseDir := filepath.Dir(csvPath)
	rulesDir := filepath.Join(baseDir, "rules")
	if err := os.MkdirAll(rulesDir, 0o755); err != nil {
		return fmt.Errorf("create rules dir: %w", err)
	}

	for name, content := range seedRules {
		if err := os.WriteFile(filepath.Join(rulesDir, name), []byte(content), 0o644); err != nil {
			return fmt.Errorf("write rule file %s: %w", name, err)
		}
	}

	file, err := os.Create(csvPath)
	if err != nil {
		return fmt.Errorf("create sources csv: %w", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if headerErr := writer.Write(registryHeader); headerErr != nil {
		return fmt.Errorf("write sources csv header: %w", headerErr)
	}
	for _, row := range seedRows {
		if rowErr := writer.Write(row); rowErr != nil {
			return fmt.Errorf("write sources csv row: %w", rowErr)
		}
	}
	writer.Flush()
	return writer.Error()
}
