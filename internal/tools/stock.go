package tools

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/parleyhq/parley/internal/log"
)

// StockQuoteInput defines arguments for the get_stock_price tool.
type StockQuoteInput struct {
	Symbol string `json:"symbol" jsonschema_description:"Stock ticker symbol, e.g. 'AAPL' or 'MSFT'"`
}

type stockTool struct {
	baseURL string
	apiKey  string
	fetch   *fetcher
	logger  log.Logger
}

// alphaVantageQuote mirrors the GLOBAL_QUOTE response. AlphaVantage
// prefixes field names with ordinals and returns numbers as strings.
type alphaVantageQuote struct {
	GlobalQuote struct {
		Symbol        string `json:"01. symbol"`
		Price         string `json:"05. price"`
		Change        string `json:"09. change"`
		ChangePercent string `json:"10. change percent"`
		TradingDay    string `json:"07. latest trading day"`
	} `json:"Global Quote"`
}

// NewStockQuote creates the get_stock_price tool, backed by the
// AlphaVantage GLOBAL_QUOTE endpoint. Without an API key the tool stays
// registered but reports a configuration error, so the model can tell
// the user instead of the request failing outright.
func NewStockQuote(baseURL, apiKey string, fetch *fetcher, logger log.Logger) *ExecutableTool {
	t := &stockTool{baseURL: baseURL, apiKey: apiKey, fetch: fetch, logger: logger}
	return NewTool(
		"get_stock_price",
		"Get the latest quote for a stock ticker symbol (price, change, last trading day).",
		t.run,
	)
}

func (t *stockTool) run(ctx context.Context, in StockQuoteInput) Result {
	symbol := strings.ToUpper(strings.TrimSpace(in.Symbol))
	if symbol == "" {
		return Failure(ErrCodeInvalidArguments, "symbol is required")
	}
	if t.apiKey == "" {
		return Failure(ErrCodeNotConfigured, "stock quotes are unavailable: ALPHAVANTAGE_API_KEY is not set")
	}

	reqURL := fmt.Sprintf("%s?function=GLOBAL_QUOTE&symbol=%s&apikey=%s",
		t.baseURL, url.QueryEscape(symbol), url.QueryEscape(t.apiKey))
	var resp alphaVantageQuote
	if err := t.fetch.getJSON(ctx, reqURL, &resp); err != nil {
		t.logger.Warn("stock quote request failed", "symbol", symbol, "error", err)
		return Failure(ErrCodeNetwork, "fetching quote for %s: %v", symbol, err)
	}
	if resp.GlobalQuote.Symbol == "" {
		// AlphaVantage returns an empty quote object for unknown symbols
		// and a note object when the rate limit is hit.
		return Failure(ErrCodeNetwork, "no quote returned for %s (unknown symbol or rate limited)", symbol)
	}

	price, err := strconv.ParseFloat(resp.GlobalQuote.Price, 64)
	if err != nil {
		return Failure(ErrCodeNetwork, "unexpected price format %q for %s", resp.GlobalQuote.Price, symbol)
	}

	return Success(map[string]any{
		"symbol":           resp.GlobalQuote.Symbol,
		"price":            price,
		"change":           resp.GlobalQuote.Change,
		"change_percent":   resp.GlobalQuote.ChangePercent,
		"last_trading_day": resp.GlobalQuote.TradingDay,
	})
}
