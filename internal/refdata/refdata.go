// Package refdata loads the externally maintained reference tables the
// enrichment stages join against: the SKU description lookup, the wide
// substitute-code sheet, and the barcode registry export. All three are
// delimited text, fetched or uploaded fresh per run and read-only
// thereafter.
package refdata

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Client fetches published reference tables over HTTP.
type Client struct {
	http *http.Client
}

// NewClient creates a reference table fetcher.
func NewClient(timeout time.Duration) *Client {
	return &Client{http: &http.Client{Timeout: timeout}}
}

// fetch GETs a reference URL and returns the response body.
func (c *Client) fetch(ctx context.Context, url string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build reference request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch reference table: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("reference table fetch returned status %d", resp.StatusCode)
	}

	return resp.Body, nil
}
