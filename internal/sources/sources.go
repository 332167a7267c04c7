// Package sources manages the registry of crawl sources loaded from the
// sources CSV, including per-row coercion and validation.
package sources

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
)

// Crawl frequencies accepted in the registry.
const (
	FreqDaily   = "daily"
	FreqWeekly  = "weekly"
	FreqMonthly = "monthly"
)

// Defaults applied when a CSV cell is blank.
const (
	defaultMaxQPS      = 1.0
	defaultConcurrency = 1
)

// truthyValues is the closed set of accepted boolean spellings
// (case-insensitive).
var truthyValues = map[string]bool{
	"1":    true,
	"true": true,
	"yes":  true,
	"y":    true,
}

var (
	countryRe = regexp.MustCompile(`^[A-Z]{2}$`)
	typeRe    = regexp.MustCompile(`^(events|festivals|sports)$`)
	freqRe    = regexp.MustCompile(`^(daily|weekly|monthly)$`)
)

// ErrNoSources is returned when the registry holds no usable rows.
var ErrNoSources = errors.New("no sources found")

// AllSources is the wildcard source id accepted by run filters.
const AllSources = "all"

// Source is a validated configuration row for a single crawl source.
type Source struct {
	SourceID   string
	BaseURL    string
	Type       string
	Country    string
	RobotsOK   bool
	SitemapURL string
	// CSSRulesPath is resolved relative to the CSV's directory.
	CSSRulesPath string
	CrawlFreq    string
	MaxQPS       float64
	Concurrency  int
	Enabled      bool
}

// validate checks a coerced row against the registry contract. It does not
// check rule-file existence; see ensureRulesExist.
func (s *Source) validate() error {
	if strings.TrimSpace(s.SourceID) == "" {
		return errors.New("source_id must not be empty")
	}
	parsed, err := url.Parse(s.BaseURL)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https" && parsed.Scheme != "file") {
		return fmt.Errorf("base_url %q must be an http(s) URL", s.BaseURL)
	}
	if !typeRe.MatchString(s.Type) {
		return fmt.Errorf("type %q must be one of events|festivals|sports", s.Type)
	}
	if !countryRe.MatchString(s.Country) {
		return fmt.Errorf("country %q must be ISO-3166 alpha-2", s.Country)
	}
	if !freqRe.MatchString(s.CrawlFreq) {
		return fmt.Errorf("crawl_freq %q must be one of daily|weekly|monthly", s.CrawlFreq)
	}
	if s.MaxQPS <= 0 {
		return fmt.Errorf("max_qps %v must be greater than zero", s.MaxQPS)
	}
	if s.Concurrency <= 0 {
		return fmt.Errorf("concurrency %d must be greater than zero", s.Concurrency)
	}
	return nil
}

// ensureRulesExist verifies that the resolved rule file is present on disk.
func (s *Source) ensureRulesExist() error {
	if _, err := os.Stat(s.CSSRulesPath); err != nil {
		return fmt.Errorf("rule file not found: %s", s.CSSRulesPath)
	}
	return nil
}

// coerceBool maps a CSV cell onto a bool using the closed truthy set.
func coerceBool(value string, defaultValue bool) bool {
	trimmed := strings.ToLower(strings.TrimSpace(value))
	if trimmed == "" {
		return defaultValue
	}
	return truthyValues[trimmed]
}

// coerceFloat parses a CSV cell as float64, falling back to the default on
// blank cells. Malformed cells surface as errors.
func coerceFloat(value string, defaultValue float64) (float64, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return defaultValue, nil
	}
	parsed, err := strconv.ParseFloat(trimmed, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid float %q: %w", value, err)
	}
	return parsed, nil
}

// coerceInt parses a CSV cell as int, falling back to the default on blank
// cells.
func coerceInt(value string, defaultValue int) (int, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return defaultValue, nil
	}
	parsed, err := strconv.Atoi(trimmed)
	if err != nil {
		return 0, fmt.Errorf("invalid int %q: %w", value, err)
	}
	return parsed, nil
}

// fromRow coerces one CSV row (header name -> trimmed cell) into a Source.
func fromRow(row map[string]string, baseDir string) (*Source, error) {
	maxQPS, err := coerceFloat(row["max_qps"], defaultMaxQPS)
	if err != nil {
		return nil, err
	}
	concurrency, err := coerceInt(row["concurrency"], defaultConcurrency)
	if err != nil {
		return nil, err
	}

	rulesPath := strings.TrimSpace(row["css_rules_path"])
	if rulesPath != "" && !filepath.IsAbs(rulesPath) {
		rulesPath = filepath.Join(baseDir, rulesPath)
	}

	source := &Source{
		SourceID:     strings.TrimSpace(row["source_id"]),
		BaseURL:      strings.TrimSpace(row["base_url"]),
		Type:         strings.TrimSpace(row["type"]),
		Country:      strings.TrimSpace(row["country"]),
		RobotsOK:     coerceBool(row["robots_ok"], true),
		SitemapURL:   strings.TrimSpace(row["sitemap_url"]),
		CSSRulesPath: rulesPath,
		CrawlFreq:    strings.TrimSpace(row["crawl_freq"]),
		MaxQPS:       maxQPS,
		Concurrency:  concurrency,
		Enabled:      coerceBool(row["enabled"], true),
	}

	if validateErr := source.validate(); validateErr != nil {
		return nil, validateErr
	}
	return source, nil
}
