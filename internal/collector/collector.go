package collector

import (
	"context"
	"fmt"
	"time"

	"BullionLedger/internal/model"
)

// MockFetcher serves fixed pages for development and testing.
type MockFetcher struct {
	Pages map[string]string
	Errs  map[string]error
	Calls []string
}

func (m *MockFetcher) Name() string { return "mock" }

func (m *MockFetcher) Fetch(_ context.Context, url string) (string, error) {
	m.Calls = append(m.Calls, url)
	if err, ok := m.Errs[url]; ok {
		return "", err
	}
	page, ok := m.Pages[url]
	if !ok {
		return "", fmt.Errorf("get %s: status 404", url)
	}
	return page, nil
}

// Collector turns a commodity's page into observations.
type Collector struct {
	Fetcher    Fetcher
	Extractors map[model.ExtractorKind]Extractor
}

// NewCollector creates a Collector with the built-in extractors.
func NewCollector(fetcher Fetcher) *Collector {
	c := &Collector{Fetcher: fetcher, Extractors: make(map[model.ExtractorKind]Extractor)}
	for _, kind := range []model.ExtractorKind{model.ExtractorGoldTable, model.ExtractorPriceSpan} {
		e, _ := NewExtractor(kind)
		c.Extractors[kind] = e
	}
	return c
}

// Collect fetches and parses the commodity's page once. Failures are
// returned as *model.IngestError carrying the fetch or extraction kind.
func (c *Collector) Collect(ctx context.Context, com model.Commodity, date time.Time) ([]model.Observation, error) {
	extractor, ok := c.Extractors[com.Extractor]
	if !ok {
		return nil, &model.IngestError{Kind: model.KindExtraction, Commodity: com.Name,
			Err: fmt.Errorf("no extractor %q", com.Extractor)}
	}

	html, err := c.Fetcher.Fetch(ctx, com.URL)
	if err != nil {
		return nil, &model.IngestError{Kind: model.KindFetch, Commodity: com.Name, Err: err}
	}

	quotes, err := extractor.Extract(html)
	if err != nil {
		return nil, &model.IngestError{Kind: model.KindExtraction, Commodity: com.Name, Err: err}
	}

	obs := make([]model.Observation, 0, len(quotes))
	for _, q := range quotes {
		obs = append(obs, model.NewObservation(com, date, q.SubKey, q.Value))
	}
	return obs, nil
}
