package market

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/sony/gobreaker"

	"github.com/i474232898/weather-edge/internal/upstream"
)

// DefaultBaseURL is the Kalshi trade API root.
const DefaultBaseURL = "https://api.kalshi.com/trade-api/v2"

var (
	errNoMarkets = errors.New("upstream response has no markets field")
	errNoTickers = errors.New("no tickers provided")
)

// Client fetches market quotes from the Kalshi batch markets endpoint.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	circuit    *gobreaker.CircuitBreaker
}

// NewClient creates a Kalshi client. Response caching, if any, belongs to the
// transport of httpClient.
func NewClient(httpClient *http.Client, baseURL, apiKey string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: httpClient,
		circuit:    upstream.NewBreaker("kalshi"),
	}
}

// Quotes issues one batch lookup for the comma-separated tickers list and
// returns the projected quote map. The list is passed upstream as is.
func (c *Client) Quotes(ctx context.Context, tickers string) (QuoteMap, error) {
	if strings.TrimSpace(tickers) == "" {
		return nil, errNoTickers
	}

	buildRequest := func(ctx context.Context) (*http.Request, error) {
		values := url.Values{}
		values.Set("tickers", tickers)

		u := fmt.Sprintf("%s/markets?%s", c.baseURL, values.Encode())
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
		req.Header.Set("Content-Type", "application/json")
		return req, nil
	}

	resp, err := upstream.Do(ctx, c.httpClient, upstream.NoRetry, c.circuit, buildRequest)
	if err != nil {
		return nil, fmt.Errorf("kalshi markets: %w", err)
	}
	defer resp.Body.Close()

	var payload struct {
		Markets *[]Market `json:"markets"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode kalshi markets: %w", err)
	}
	if payload.Markets == nil {
		return nil, errNoMarkets
	}

	return BuildQuoteMap(*payload.Markets), nil
}
