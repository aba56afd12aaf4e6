package collector

import "context"

// Fetcher retrieves the raw HTML of a price page.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
	Name() string
}

// Quote is one price read off a page. SubKey distinguishes several quotes
// on the same page (gold purities) and is empty otherwise.
type Quote struct {
	SubKey string
	Value  float64
}

// Extractor reads quotes out of a page.
type Extractor interface {
	Extract(html string) ([]Quote, error)
}
