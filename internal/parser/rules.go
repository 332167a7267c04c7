// Package parser turns raw HTML into candidate entities. JSON-LD blocks are
// preferred; declarative CSS rule files provide the fallback path, and both
// feed the same downstream pipeline.
package parser

import (
	"fmt"
	"os"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"gopkg.in/yaml.v3"
)

// DefaultListItemSelector scopes field extraction when a rule file does not
// name a list item container.
const DefaultListItemSelector = "body"

// RuleSpec is a declarative recipe for parsing one source's listing pages.
type RuleSpec struct {
	ListItem     string
	Fields       map[string]string
	NextSelector string
	MonthGrid    bool
	MaxPages     int
	Timezone     string
}

// ruleFile is the YAML document shape for rule files.
type ruleFile struct {
	Selectors struct {
		ListItem string `yaml:"list_item"`
	} `yaml:"selectors"`
	Fields     map[string]string `yaml:"fields"`
	Pagination struct {
		NextSelector string `yaml:"next_selector"`
		MonthGrid    bool   `yaml:"month_grid"`
		MaxPages     int    `yaml:"max_pages"`
	} `yaml:"pagination"`
	DateScopes struct {
		Timezone string `yaml:"timezone"`
	} `yaml:"date_scopes"`
}

// LoadRule reads and parses the rule file at path.
func LoadRule(path string) (*RuleSpec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rule file: %w", err)
	}

	var doc ruleFile
	if unmarshalErr := yaml.Unmarshal(data, &doc); unmarshalErr != nil {
		return nil, fmt.Errorf("parse rule file %s: %w", path, unmarshalErr)
	}

	spec := &RuleSpec{
		ListItem:     doc.Selectors.ListItem,
		Fields:       doc.Fields,
		NextSelector: doc.Pagination.NextSelector,
		MonthGrid:    doc.Pagination.MonthGrid,
		MaxPages:     doc.Pagination.MaxPages,
		Timezone:     doc.DateScopes.Timezone,
	}
	if spec.ListItem == "" {
		spec.ListItem = DefaultListItemSelector
	}
	if spec.MaxPages < 1 {
		spec.MaxPages = 1
	}
	if spec.Fields == nil {
		spec.Fields = map[string]string{}
	}
	return spec, nil
}

// fieldExpression is one parsed field rule. The expression grammar is
// "selector[@attr][|text][[]]"; the scrapy-style "selector::attr(name)"
// form is accepted too.
type fieldExpression struct {
	selector     string
	attr         string
	multi        bool
	textFallback bool
}

// parseExpression splits a field expression into its selector and modifiers.
func parseExpression(expression string) fieldExpression {
	expr := strings.TrimSpace(expression)

	parsed := fieldExpression{}
	if strings.HasSuffix(expr, "[]") {
		parsed.multi = true
		expr = strings.TrimSuffix(expr, "[]")
	}
	if strings.HasSuffix(expr, "|text") {
		parsed.textFallback = true
		expr = strings.TrimSuffix(expr, "|text")
	}
	expr = strings.ReplaceAll(expr, " @", "@")

	switch {
	case strings.Contains(expr, "@"):
		selector, attr, _ := strings.Cut(expr, "@")
		parsed.selector = strings.TrimSpace(selector)
		parsed.attr = strings.TrimSpace(attr)
	case strings.Contains(expr, "::attr("):
		selector, attr, _ := strings.Cut(expr, "::attr(")
		parsed.selector = strings.TrimSpace(selector)
		parsed.attr = strings.TrimSuffix(strings.TrimSpace(attr), ")")
	default:
		parsed.selector = strings.TrimSpace(expr)
	}
	return parsed
}

// valueFromSelection pulls a field value from one matched element, honouring
// the attribute and text-fallback modifiers. Empty values come back as "".
func valueFromSelection(sel *goquery.Selection, expr fieldExpression) string {
	if expr.attr != "" {
		if value, ok := sel.Attr(expr.attr); ok && strings.TrimSpace(value) != "" {
			return strings.TrimSpace(value)
		}
		if !expr.textFallback {
			return ""
		}
	}
	return strings.TrimSpace(sel.Text())
}

// ExtractWithRules applies the rule spec to an already parsed document and
// returns one raw string map per list item. Single-valued fields with no
// match are present with a nil value so callers can distinguish "selector
// missed" from "field not configured".
func ExtractWithRules(doc *goquery.Document, spec *RuleSpec) []map[string]any {
	var results []map[string]any
	doc.Find(spec.ListItem).Each(func(_ int, item *goquery.Selection) {
		payload := make(map[string]any, len(spec.Fields))
		for field, expression := range spec.Fields {
			expr := parseExpression(expression)
			if expr.multi || field == "time_slots" {
				var values []string
				item.Find(expr.selector).Each(func(_ int, el *goquery.Selection) {
					if value := valueFromSelection(el, expr); value != "" {
						values = append(values, value)
					}
				})
				payload[field] = values
				continue
			}
			el := item.Find(expr.selector).First()
			if el.Length() == 0 {
				payload[field] = nil
				continue
			}
			if value := valueFromSelection(el, expr); value != "" {
				payload[field] = value
			} else {
				payload[field] = nil
			}
		}
		if spec.Timezone != "" {
			if _, ok := payload["timezone"]; !ok {
				payload["timezone"] = spec.Timezone
			}
		}
		results = append(results, payload)
	})
	return results
}
