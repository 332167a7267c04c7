package parser

import (
	"net/url"

	"github.com/PuerkitoBio/goquery"
)

// monthGridSelector matches forward navigation links in calendar layouts.
const monthGridSelector = "a[rel='next'], a.month-next"

// resolveHref joins a possibly relative href against the page URL.
func resolveHref(base *url.URL, href string) string {
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	return base.ResolveReference(ref).String()
}

// DiscoverNextURLs finds follow-up page URLs from the current page. The
// next_selector contributes at most one link; a month grid contributes every
// navigation link it exposes. The combined list is capped at maxPages-1 so a
// source never exceeds its page budget.
func DiscoverNextURLs(doc *goquery.Document, baseURL string, spec *RuleSpec) []string {
	if spec.MaxPages <= 1 {
		return nil
	}
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil
	}

	var urls []string
	if spec.NextSelector != "" {
		expr := parseExpression(spec.NextSelector)
		attr := expr.attr
		if attr == "" {
			attr = "href"
		}
		doc.Find(expr.selector).EachWithBreak(func(_ int, el *goquery.Selection) bool {
			if href, ok := el.Attr(attr); ok && href != "" {
				urls = append(urls, resolveHref(base, href))
				return false
			}
			return true
		})
	}

	if spec.MonthGrid {
		doc.Find(monthGridSelector).Each(func(_ int, el *goquery.Selection) {
			if href, ok := el.Attr("href"); ok && href != "" {
				urls = append(urls, resolveHref(base, href))
			}
		})
	}

	if len(urls) > spec.MaxPages-1 {
		urls = urls[:spec.MaxPages-1]
	}
	return urls
}
