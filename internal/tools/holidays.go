package tools

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/parleyhq/parley/internal/log"
)

// HolidaysInput defines arguments for the get_public_holidays tool.
type HolidaysInput struct {
	Year        int    `json:"year,omitempty" jsonschema_description:"Four-digit year, defaults to the current year"`
	CountryCode string `json:"country_code" jsonschema_description:"ISO 3166-1 alpha-2 country code, e.g. 'DE' or 'US'"`
}

type holidaysTool struct {
	baseURL string
	fetch   *fetcher
	logger  log.Logger
}

// nagerHoliday is the subset of the Nager.Date API we use.
type nagerHoliday struct {
	Date      string `json:"date"`
	LocalName string `json:"localName"`
	Name      string `json:"name"`
	Global    bool   `json:"global"`
}

// NewPublicHolidays creates the get_public_holidays tool, backed by the
// Nager.Date API.
func NewPublicHolidays(baseURL string, fetch *fetcher, logger log.Logger) *ExecutableTool {
	t := &holidaysTool{baseURL: baseURL, fetch: fetch, logger: logger}
	return NewTool(
		"get_public_holidays",
		"List the public holidays of a country for a given year.",
		t.run,
	)
}

func (t *holidaysTool) run(ctx context.Context, in HolidaysInput) Result {
	cc := strings.ToUpper(strings.TrimSpace(in.CountryCode))
	if len(cc) != 2 {
		return Failure(ErrCodeInvalidArguments, "country_code must be a two-letter ISO code, got %q", in.CountryCode)
	}
	year := in.Year
	if year == 0 {
		year = time.Now().Year()
	}
	if year < 1975 || year > 2100 {
		return Failure(ErrCodeInvalidArguments, "year %d is out of the supported range", year)
	}

	reqURL := fmt.Sprintf("%s/%d/%s", t.baseURL, year, cc)
	var holidays []nagerHoliday
	if err := t.fetch.getJSON(ctx, reqURL, &holidays); err != nil {
		t.logger.Warn("holidays request failed", "country", cc, "year", year, "error", err)
		return Failure(ErrCodeNetwork, "fetching holidays for %s/%d: %v", cc, year, err)
	}

	entries := make([]map[string]any, 0, len(holidays))
	for _, h := range holidays {
		entries = append(entries, map[string]any{
			"date":       h.Date,
			"name":       h.Name,
			"local_name": h.LocalName,
			"nationwide": h.Global,
		})
	}

	return Success(map[string]any{
		"country":  cc,
		"year":     year,
		"holidays": entries,
	})
}
