package model

import (
	"fmt"
	"strings"
)

// Unit is the canonical pricing unit of a commodity series.
type Unit string

const (
	UnitGram Unit = "gram"
	UnitKg   Unit = "kg"
)

// KgThreshold is the magnitude below which a value in a per-kg series is
// assumed to be a per-gram price.
const KgThreshold = 10000

// Label returns the display unit used in the intraday tables.
func (u Unit) Label() string {
	return "INR/" + string(u)
}

// Valid reports whether u is a known unit.
func (u Unit) Valid() bool {
	return u == UnitGram || u == UnitKg
}

// ExtractorKind selects how a page is parsed into quotes.
type ExtractorKind string

const (
	ExtractorGoldTable ExtractorKind = "gold_table"
	ExtractorPriceSpan ExtractorKind = "price_span"
)

// Commodity describes one tracked series and the files it owns.
type Commodity struct {
	Name      string        `yaml:"name"`
	URL       string        `yaml:"url"`
	Extractor ExtractorKind `yaml:"extractor"`
	Unit      Unit          `yaml:"unit"`
	Source    string        `yaml:"source"`
	// SubKeyField names the extra key field (e.g. "purity") when a page
	// yields several quotes per day. Empty means the date alone is the key.
	SubKeyField string `yaml:"sub_key_field"`
}

// KeyFields returns the fields identifying a daily record.
func (c Commodity) KeyFields() []string {
	if c.SubKeyField == "" {
		return []string{"date"}
	}
	return []string{"date", c.SubKeyField}
}

// DailyJSONFile is the store's source of truth, relative to the data dir.
func (c Commodity) DailyJSONFile() string { return c.Name + ".json" }

// DailyCSVFile is the flat projection of DailyJSONFile.
func (c Commodity) DailyCSVFile() string { return c.Name + ".csv" }

// IntradayFile returns the wide table path for a quote's sub key.
func (c Commodity) IntradayFile(subKey string) string {
	if subKey == "" {
		return fmt.Sprintf("hourly/%s_hourly.csv", c.Name)
	}
	return fmt.Sprintf("hourly/%s_%s_hourly.csv", c.Name, strings.ToLower(subKey))
}

// DefaultCommodities mirrors the pages the tracker has always scraped.
func DefaultCommodities() []Commodity {
	return []Commodity{
		{
			Name:        "gold",
			URL:         "https://www.goldpricesindia.com/",
			Extractor:   ExtractorGoldTable,
			Unit:        UnitGram,
			Source:      "GoldPricesIndia",
			SubKeyField: "purity",
		},
		{
			Name:      "silver",
			URL:       "https://economictimes.indiatimes.com/commoditysummary/symbol-SILVER.cms",
			Extractor: ExtractorPriceSpan,
			Unit:      UnitKg,
			Source:    "Economic Times MCX",
		},
		{
			Name:      "copper",
			URL:       "https://economictimes.indiatimes.com/commoditysummary/symbol-COPPER.cms",
			Extractor: ExtractorPriceSpan,
			Unit:      UnitKg,
			Source:    "Economic Times MCX",
		},
	}
}
