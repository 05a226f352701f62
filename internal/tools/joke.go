package tools

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/parleyhq/parley/internal/log"
)

// JokeInput defines arguments for the get_joke tool.
type JokeInput struct {
	Category string `json:"category,omitempty" jsonschema_description:"Joke category: Programming, Misc, Pun, or Any (default)"`
}

// jokeCategories are the categories JokeAPI accepts. Unknown input
// falls back to Any rather than failing the call.
var jokeCategories = map[string]string{
	"any":         "Any",
	"programming": "Programming",
	"misc":        "Misc",
	"pun":         "Pun",
}

type jokeTool struct {
	baseURL string
	fetch   *fetcher
	logger  log.Logger
}

// jokeResponse is the subset of the JokeAPI response we use.
type jokeResponse struct {
	Error    bool   `json:"error"`
	Type     string `json:"type"`
	Joke     string `json:"joke"`
	Setup    string `json:"setup"`
	Delivery string `json:"delivery"`
	Category string `json:"category"`
}

// NewJoke creates the get_joke tool, backed by JokeAPI with safe mode on.
func NewJoke(baseURL string, fetch *fetcher, logger log.Logger) *ExecutableTool {
	t := &jokeTool{baseURL: baseURL, fetch: fetch, logger: logger}
	return NewTool(
		"get_joke",
		"Fetch a random joke, optionally from a category (Programming, Misc, Pun).",
		t.run,
	)
}

func (t *jokeTool) run(ctx context.Context, in JokeInput) Result {
	category, ok := jokeCategories[strings.ToLower(strings.TrimSpace(in.Category))]
	if !ok {
		category = "Any"
	}

	reqURL := fmt.Sprintf("%s/%s?safe-mode", t.baseURL, url.PathEscape(category))
	var resp jokeResponse
	if err := t.fetch.getJSON(ctx, reqURL, &resp); err != nil {
		t.logger.Warn("joke request failed", "category", category, "error", err)
		return Failure(ErrCodeNetwork, "fetching joke: %v", err)
	}
	if resp.Error {
		return Failure(ErrCodeNetwork, "joke service reported an error")
	}

	joke := resp.Joke
	if resp.Type == "twopart" {
		joke = resp.Setup + "\n" + resp.Delivery
	}
	if joke == "" {
		return Failure(ErrCodeNetwork, "joke service returned an empty joke")
	}

	return Success(map[string]any{
		"category": resp.Category,
		"joke":     joke,
	})
}
