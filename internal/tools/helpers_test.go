package tools

import (
	"encoding/json"
	"testing"

	"github.com/parleyhq/parley/internal/config"
)

func mustJSON(t *testing.T, v any) json.RawMessage {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshaling %T: %v", v, err)
	}
	return data
}

// testToolsConfig returns a tool configuration pointing at unroutable
// hosts. Tests that exercise a tool's HTTP path substitute their own
// httptest server URLs.
func testToolsConfig() config.ToolsConfig {
	return config.ToolsConfig{
		TimeoutMs:       1000,
		GeocodingURL:    "http://geocoding.invalid/v1/search",
		ForecastURL:     "http://forecast.invalid/v1/forecast",
		ExchangeRateURL: "http://rates.invalid/latest",
		CryptoURL:       "http://crypto.invalid/v2/prices",
		HolidaysURL:     "http://holidays.invalid/api/v3/PublicHolidays",
		JokeURL:         "http://jokes.invalid/joke",
		StockURL:        "http://stocks.invalid/query",
		StockAPIKey:     "test-key",
		SearchURL:       "http://search.invalid",
	}
}
