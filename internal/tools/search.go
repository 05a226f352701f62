package tools

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/parleyhq/parley/internal/log"
)

// WebSearchInput defines arguments for the web_search tool.
type WebSearchInput struct {
	Query      string `json:"query" jsonschema_description:"Search query"`
	MaxResults int    `json:"max_results,omitempty" jsonschema_description:"Maximum number of results to return (1-10), defaults to 5"`
}

type searchTool struct {
	baseURL string
	fetch   *fetcher
	logger  log.Logger
}

// searxngResponse is the subset of the SearXNG JSON API we use.
type searxngResponse struct {
	Results []struct {
		Title   string `json:"title"`
		URL     string `json:"url"`
		Content string `json:"content"`
	} `json:"results"`
}

// NewWebSearch creates the web_search tool, backed by a
// SearXNG-compatible instance (format=json must be enabled there).
func NewWebSearch(baseURL string, fetch *fetcher, logger log.Logger) *ExecutableTool {
	t := &searchTool{baseURL: baseURL, fetch: fetch, logger: logger}
	return NewTool(
		"web_search",
		"Search the web and return the top results with title, URL, and a snippet. "+
			"Use this for current events or facts outside your knowledge.",
		t.run,
	)
}

func (t *searchTool) run(ctx context.Context, in WebSearchInput) Result {
	query := strings.TrimSpace(in.Query)
	if query == "" {
		return Failure(ErrCodeInvalidArguments, "query is required")
	}
	maxResults := in.MaxResults
	if maxResults <= 0 {
		maxResults = 5
	}
	if maxResults > 10 {
		maxResults = 10
	}

	reqURL := fmt.Sprintf("%s/search?q=%s&format=json", t.baseURL, url.QueryEscape(query))
	var resp searxngResponse
	if err := t.fetch.getJSON(ctx, reqURL, &resp); err != nil {
		t.logger.Warn("search request failed", "query", query, "error", err)
		return Failure(ErrCodeNetwork, "searching for %q: %v", query, err)
	}

	if len(resp.Results) > maxResults {
		resp.Results = resp.Results[:maxResults]
	}
	results := make([]map[string]string, 0, len(resp.Results))
	for _, r := range resp.Results {
		results = append(results, map[string]string{
			"title":   r.Title,
			"url":     r.URL,
			"snippet": r.Content,
		})
	}

	return Success(map[string]any{
		"query":   query,
		"results": results,
	})
}
