package tools

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/parleyhq/parley/internal/log"
)

// CryptoSpotInput defines arguments for the get_crypto_spot_price tool.
type CryptoSpotInput struct {
	Symbol   string `json:"symbol" jsonschema_description:"Cryptocurrency symbol, e.g. 'BTC' or 'ETH'"`
	Currency string `json:"currency,omitempty" jsonschema_description:"Fiat currency code for the price, defaults to 'USD'"`
}

type cryptoTool struct {
	baseURL string
	fetch   *fetcher
	logger  log.Logger
}

// coinbaseSpotResponse is the subset of the Coinbase spot price API we use.
type coinbaseSpotResponse struct {
	Data struct {
		Amount   string `json:"amount"`
		Base     string `json:"base"`
		Currency string `json:"currency"`
	} `json:"data"`
}

// NewCryptoSpot creates the get_crypto_spot_price tool, backed by the
// Coinbase spot price API.
func NewCryptoSpot(baseURL string, fetch *fetcher, logger log.Logger) *ExecutableTool {
	t := &cryptoTool{baseURL: baseURL, fetch: fetch, logger: logger}
	return NewTool(
		"get_crypto_spot_price",
		"Get the current spot price of a cryptocurrency in a fiat currency.",
		t.run,
	)
}

func (t *cryptoTool) run(ctx context.Context, in CryptoSpotInput) Result {
	symbol := strings.ToUpper(strings.TrimSpace(in.Symbol))
	if symbol == "" {
		return Failure(ErrCodeInvalidArguments, "symbol is required")
	}
	currency := strings.ToUpper(strings.TrimSpace(in.Currency))
	if currency == "" {
		currency = "USD"
	}

	pair := symbol + "-" + currency
	reqURL := fmt.Sprintf("%s/%s/spot", t.baseURL, pair)
	var resp coinbaseSpotResponse
	if err := t.fetch.getJSON(ctx, reqURL, &resp); err != nil {
		t.logger.Warn("spot price request failed", "pair", pair, "error", err)
		return Failure(ErrCodeNetwork, "fetching spot price for %s: %v", pair, err)
	}

	price, err := strconv.ParseFloat(resp.Data.Amount, 64)
	if err != nil {
		return Failure(ErrCodeNetwork, "unexpected price format %q for %s", resp.Data.Amount, pair)
	}

	return Success(map[string]any{
		"symbol":   resp.Data.Base,
		"currency": resp.Data.Currency,
		"price":    price,
	})
}
