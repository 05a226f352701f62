package tools

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/parleyhq/parley/internal/log"
)

// ExchangeRateInput defines arguments for the get_exchange_rate tool.
type ExchangeRateInput struct {
	Base   string  `json:"base" jsonschema_description:"Base currency code, e.g. 'USD'"`
	Target string  `json:"target" jsonschema_description:"Target currency code, e.g. 'EUR'"`
	Amount float64 `json:"amount,omitempty" jsonschema_description:"Amount in the base currency to convert, defaults to 1"`
}

type exchangeRateTool struct {
	baseURL string
	fetch   *fetcher
	logger  log.Logger
}

// frankfurterResponse is the subset of the Frankfurter API we use.
type frankfurterResponse struct {
	Base  string             `json:"base"`
	Date  string             `json:"date"`
	Rates map[string]float64 `json:"rates"`
}

// NewExchangeRate creates the get_exchange_rate tool, backed by the
// Frankfurter API (ECB daily reference rates).
func NewExchangeRate(baseURL string, fetch *fetcher, logger log.Logger) *ExecutableTool {
	t := &exchangeRateTool{baseURL: baseURL, fetch: fetch, logger: logger}
	return NewTool(
		"get_exchange_rate",
		"Get the latest exchange rate between two currencies and optionally convert an amount. "+
			"Uses European Central Bank daily reference rates.",
		t.run,
	)
}

func (t *exchangeRateTool) run(ctx context.Context, in ExchangeRateInput) Result {
	base := strings.ToUpper(strings.TrimSpace(in.Base))
	target := strings.ToUpper(strings.TrimSpace(in.Target))
	if base == "" || target == "" {
		return Failure(ErrCodeInvalidArguments, "base and target currency codes are required")
	}
	amount := in.Amount
	if amount <= 0 {
		amount = 1
	}

	reqURL := fmt.Sprintf("%s?base=%s&symbols=%s", t.baseURL, url.QueryEscape(base), url.QueryEscape(target))
	var resp frankfurterResponse
	if err := t.fetch.getJSON(ctx, reqURL, &resp); err != nil {
		t.logger.Warn("exchange rate request failed", "base", base, "target", target, "error", err)
		return Failure(ErrCodeNetwork, "fetching rate %s/%s: %v", base, target, err)
	}

	rate, ok := resp.Rates[target]
	if !ok {
		return Failure(ErrCodeInvalidArguments, "no rate available for %s/%s", base, target)
	}

	return Success(map[string]any{
		"base":      base,
		"target":    target,
		"rate":      rate,
		"amount":    amount,
		"converted": amount * rate,
		"date":      resp.Date,
	})
}
