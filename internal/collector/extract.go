package collector

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/shopspring/decimal"

	"BullionLedger/internal/model"
)

var nonPrice = regexp.MustCompile(`[^\d.]`)

// CleanPrice parses a displayed price such as "₹ 6,250.50".
func CleanPrice(text string) (float64, error) {
	s := nonPrice.ReplaceAllString(text, "")
	if s == "" {
		return 0, fmt.Errorf("no digits in %q", text)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("parse price %q: %w", text, err)
	}
	if !d.IsPositive() {
		return 0, fmt.Errorf("non-positive price %q", text)
	}
	return d.InexactFloat64(), nil
}

// NewExtractor returns the extractor for kind.
func NewExtractor(kind model.ExtractorKind) (Extractor, error) {
	switch kind {
	case model.ExtractorGoldTable:
		return &GoldTableExtractor{Purities: []string{"24K", "22K"}}, nil
	case model.ExtractorPriceSpan:
		return &SpanPriceExtractor{Selector: "span.commodityPrice"}, nil
	default:
		return nil, fmt.Errorf("unknown extractor %q", kind)
	}
}

// GoldTableExtractor reads per-gram prices for each purity from the first
// table on the page. Every purity must be found.
type GoldTableExtractor struct {
	Purities []string
}

func (e *GoldTableExtractor) Extract(html string) ([]Quote, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	table := doc.Find("table").First()
	if table.Length() == 0 {
		return nil, errors.New("price table not found")
	}

	prices := make(map[string]float64)
	var rowErr error
	table.Find("tr").Each(func(_ int, row *goquery.Selection) {
		parts := rowTokens(row)
		if len(parts) == 0 || !contains(parts, "1") || !contains(parts, "g") {
			return
		}
		text := strings.Join(parts, " ")
		for _, p := range e.Purities {
			if !strings.Contains(text, p) {
				continue
			}
			v, err := CleanPrice(parts[len(parts)-1])
			if err != nil {
				rowErr = fmt.Errorf("%s: %w", p, err)
				continue
			}
			prices[p] = v
		}
	})

	quotes := make([]Quote, 0, len(e.Purities))
	for _, p := range e.Purities {
		v, ok := prices[p]
		if !ok {
			if rowErr != nil {
				return nil, rowErr
			}
			return nil, fmt.Errorf("expected %d purities, found %d (missing %s)", len(e.Purities), len(prices), p)
		}
		quotes = append(quotes, Quote{SubKey: p, Value: v})
	}
	return quotes, nil
}

// SpanPriceExtractor reads a single price from the first element matching
// Selector.
type SpanPriceExtractor struct {
	Selector string
}

func (e *SpanPriceExtractor) Extract(html string) ([]Quote, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	sel := doc.Find(e.Selector).First()
	if sel.Length() == 0 {
		return nil, fmt.Errorf("%s not found", e.Selector)
	}
	v, err := CleanPrice(sel.Text())
	if err != nil {
		return nil, err
	}
	return []Quote{{Value: v}}, nil
}

// rowTokens splits a table row into whitespace-separated words, keeping
// adjacent cells apart.
func rowTokens(row *goquery.Selection) []string {
	cells := row.Find("td, th")
	if cells.Length() == 0 {
		return strings.Fields(row.Text())
	}
	var parts []string
	cells.Each(func(_ int, c *goquery.Selection) {
		parts = append(parts, strings.Fields(c.Text())...)
	})
	return parts
}

func contains(parts []string, s string) bool {
	for _, p := range parts {
		if p == s {
			return true
		}
	}
	return false
}
