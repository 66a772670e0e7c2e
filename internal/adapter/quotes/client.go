// Package quotes fetches daily closing prices from an HTTP market data endpoint.
package quotes

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/shopspring/decimal"

	"github.com/simaogato/vestflow-backend/internal/domain"
	"github.com/simaogato/vestflow-backend/internal/logger"
)

// Source is stamped on every record fetched by the client.
const Source = "quote-provider"

// dailyResponse is the body of GET {base}/v1/daily/{symbol}?from=&to=.
type dailyResponse struct {
	Symbol string     `json:"symbol"`
	Prices []dailyBar `json:"prices"`
}

type dailyBar struct {
	Date   string           `json:"date"`
	Open   *decimal.Decimal `json:"open"`
	High   *decimal.Decimal `json:"high"`
	Low    *decimal.Decimal `json:"low"`
	Close  decimal.Decimal  `json:"close"`
	Volume *int64           `json:"volume"`
}

// Client implements pricing.QuoteProvider over HTTP.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
}

// NewClient creates a new Client for the provider at baseURL.
func NewClient(baseURL string) *Client {
	return &Client{
		BaseURL:    baseURL,
		HTTPClient: &http.Client{Timeout: 20 * time.Second},
	}
}

// FetchDaily returns the provider's daily bars for symbol between from and to, inclusive.
// A 404 means the provider knows no prices in the range and yields an empty result.
func (c *Client) FetchDaily(ctx context.Context, symbol string, from, to time.Time) ([]domain.PriceRecord, error) {
	endpoint := fmt.Sprintf("%s/v1/daily/%s?%s", c.BaseURL, url.PathEscape(symbol), url.Values{
		"from": {domain.FormatDate(from)},
		"to":   {domain.FormatDate(to)},
	}.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build quote request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch quotes for %s: %w", symbol, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		logger.L.Debug("Quote provider has no prices in range", "symbol", symbol,
			"from", domain.FormatDate(from), "to", domain.FormatDate(to))
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("quote provider error for %s: received status %d", symbol, resp.StatusCode)
	}

	var body dailyResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("failed to decode quotes for %s: %w", symbol, err)
	}

	records := make([]domain.PriceRecord, 0, len(body.Prices))
	for _, bar := range body.Prices {
		day, err := domain.ParseDate(bar.Date)
		if err != nil {
			return nil, fmt.Errorf("quote provider returned bad date for %s: %w", symbol, err)
		}
		if day.Before(domain.Day(from)) || day.After(domain.Day(to)) {
			continue
		}
		closing := bar.Close
		records = append(records, domain.PriceRecord{
			Symbol: symbol,
			Date:   day,
			Price:  bar.Close,
			Source: Source,
			Open:   bar.Open,
			High:   bar.High,
			Low:    bar.Low,
			Close:  &closing,
			Volume: bar.Volume,
		})
	}
	return records, nil
}
