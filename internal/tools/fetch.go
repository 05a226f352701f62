package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// maxResponseBytes caps upstream API responses. The external APIs used
// here return small JSON documents; anything larger is misbehavior.
const maxResponseBytes = 2 << 20 // 2 MB

// fetcher is the shared HTTP JSON client for external API tools.
// Deadlines come from the invocation context (the registry applies the
// per-call timeout), so the client itself carries none.
type fetcher struct {
	client *http.Client
}

func newFetcher() *fetcher {
	return &fetcher{client: &http.Client{}}
}

// getJSON performs a GET request and decodes the JSON response into out.
// Non-2xx responses are errors; bodies are read through a size limit.
func (f *fetcher) getJSON(ctx context.Context, rawURL string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return fmt.Errorf("requesting %s: %w", rawURL, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// Drain a little of the body for diagnostics, bounded
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return fmt.Errorf("upstream returned %d: %s", resp.StatusCode, string(snippet))
	}

	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}
