package synthesis

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// PageFetcher retrieves the live content of a web page for page-aware
// answers. Fetch failures degrade the answer, they never fail the job.
type PageFetcher interface {
	Fetch(ctx context.Context, pageURL string) (string, error)
}

// pageFetchTimeout is the hard ceiling on one page fetch.
const pageFetchTimeout = 10 * time.Second

// pageFetchMaxBytes caps how much page content enters the model context.
const pageFetchMaxBytes = 512 << 10

// HTTPPageFetcher fetches pages over plain HTTP GET.
type HTTPPageFetcher struct {
	client *http.Client
}

var _ PageFetcher = (*HTTPPageFetcher)(nil)

// NewHTTPPageFetcher creates a fetcher with the standard timeout.
func NewHTTPPageFetcher() *HTTPPageFetcher {
	return &HTTPPageFetcher{
		client: &http.Client{Timeout: pageFetchTimeout},
	}
}

func (f *HTTPPageFetcher) Fetch(ctx context.Context, pageURL string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, pageFetchTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", fmt.Errorf("build page request: %w", err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("fetch page: status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, pageFetchMaxBytes))
	if err != nil {
		return "", fmt.Errorf("read page body: %w", err)
	}
	return string(body), nil
}
