package tools

import (
	"fmt"
	"time"

	"github.com/parleyhq/parley/internal/config"
	"github.com/parleyhq/parley/internal/log"
)

// toolNames lists all tools assembled by NewDefaultRegistry.
// This is the single source of truth for the default tool set.
var toolNames = []string{
	"get_weather",
	"get_exchange_rate",
	"get_crypto_spot_price",
	"get_public_holidays",
	"get_joke",
	"get_stock_price",
	"web_search",
}

// ToolNames returns the names of the default tool set.
func ToolNames() []string {
	names := make([]string, len(toolNames))
	copy(names, toolNames)
	return names
}

// NewDefaultRegistry assembles the registry with the full external API
// tool set. All tools share one HTTP client; base URLs come from the
// configuration so tests can substitute local servers.
func NewDefaultRegistry(cfg config.ToolsConfig, logger log.Logger) (*Registry, error) {
	if logger == nil {
		logger = log.NewNop()
	}
	fetch := newFetcher()
	timeout := time.Duration(cfg.TimeoutMs) * time.Millisecond

	r, err := NewRegistry(logger, timeout,
		NewWeather(cfg.GeocodingURL, cfg.ForecastURL, fetch, logger),
		NewExchangeRate(cfg.ExchangeRateURL, fetch, logger),
		NewCryptoSpot(cfg.CryptoURL, fetch, logger),
		NewPublicHolidays(cfg.HolidaysURL, fetch, logger),
		NewJoke(cfg.JokeURL, fetch, logger),
		NewStockQuote(cfg.StockURL, cfg.StockAPIKey, fetch, logger),
		NewWebSearch(cfg.SearchURL, fetch, logger),
	)
	if err != nil {
		return nil, fmt.Errorf("assembling tool registry: %w", err)
	}
	return r, nil
}
