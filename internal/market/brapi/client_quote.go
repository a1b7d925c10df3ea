package brapi

import (
	"context"
	"encoding/json"
	"fmt"
	"maps"
	"net/http"
	"net/url"
	"strings"
)

// Quote is one per-ticker result from the quote endpoint. Optional numerics
// stay nil when the upstream payload omits them.
type Quote struct {
	Symbol                     string   `json:"symbol"`
	ShortName                  string   `json:"shortName"`
	LongName                   string   `json:"longName"`
	RegularMarketPrice         float64  `json:"regularMarketPrice"`
	RegularMarketChangePercent float64  `json:"regularMarketChangePercent"`
	RegularMarketDayHigh       *float64 `json:"regularMarketDayHigh"`
	RegularMarketDayLow        *float64 `json:"regularMarketDayLow"`
	RegularMarketVolume        *int64   `json:"regularMarketVolume"`
	MarketCap                  *float64 `json:"marketCap"`
	LogoURL                    string   `json:"logourl"`
}

type quoteResponse struct {
	Results []Quote `json:"results"`
}

// GetQuote retrieves a batched quote for the given tickers in one request.
func (c *Client) GetQuote(ctx context.Context, tickers []string, opts ...ClientOption) ([]Quote, error) {
	if len(tickers) == 0 {
		return nil, fmt.Errorf("no tickers requested")
	}

	var override = &Client{
		baseURL:    c.baseURL,
		httpClient: c.httpClient,
		header:     c.header.Clone(),
		query:      c.query,
	}
	for _, opt := range opts {
		opt(override)
	}

	query := maps.Clone(override.query)
	if query == nil {
		query = url.Values{}
	}

	u := fmt.Sprintf("%s/quote/%s?%s", override.baseURL, url.PathEscape(strings.Join(tickers, ",")), query.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header = override.header

	res, err := override.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("performing request: %w", err)
	}
	defer res.Body.Close()

	switch res.StatusCode {
	case http.StatusOK:
		break

	case http.StatusBadRequest:
		return nil, fmt.Errorf("bad request with tickers=%s", strings.Join(tickers, ","))

	case http.StatusUnauthorized, http.StatusForbidden:
		return nil, fmt.Errorf("unauthorized")

	case http.StatusNotFound:
		return nil, fmt.Errorf("no results for tickers=%s", strings.Join(tickers, ","))

	case http.StatusTooManyRequests:
		return nil, fmt.Errorf("rate limited")

	default:
		return nil, fmt.Errorf("unexpected status code: %d", res.StatusCode)
	}

	var body quoteResponse
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decoding quote response: %w", err)
	}
	return body.Results, nil
}
