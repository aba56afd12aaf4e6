package collector

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"
)

const userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) " +
	"AppleWebKit/537.36 (KHTML, like Gecko) " +
	"Chrome/120.0.0.0 Safari/537.36"

// HTTPFetcher downloads price pages with browser-like headers. Requests are
// paced by a shared limiter since several commodities live on one host.
type HTTPFetcher struct {
	Client  *http.Client
	Limiter *rate.Limiter
}

// NewHTTPFetcher creates a fetcher with optional proxy support. A
// non-positive rps disables pacing.
func NewHTTPFetcher(timeout time.Duration, rps float64, proxyURL string) *HTTPFetcher {
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	limiter := rate.NewLimiter(rate.Inf, 1)
	if rps > 0 {
		limiter = rate.NewLimiter(rate.Limit(rps), 1)
	}
	return &HTTPFetcher{
		Client: &http.Client{
			Timeout:   timeout,
			Transport: transport,
		},
		Limiter: limiter,
	}
}

func (f *HTTPFetcher) Name() string { return "http" }

// Fetch issues a single GET. Any transport error or non-200 status fails.
func (f *HTTPFetcher) Fetch(ctx context.Context, pageURL string) (string, error) {
	if err := f.Limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("wait for rate limiter: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept-Language", "en-IN,en;q=0.9")

	resp, err := f.Client.Do(req)
	if err != nil {
		return "", fmt.Errorf("get %s: %w", pageURL, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("get %s: status %d", pageURL, resp.StatusCode)
	}
	return string(body), nil
}
