package market

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func price(v float64) *float64 { return &v }

func TestBuildQuoteMap(t *testing.T) {
	markets := []Market{
		{Ticker: "FOO", YesBid: price(10), YesAsk: price(12), LastPrice: price(11)},
		{Ticker: "BAR", YesBid: nil, YesAsk: price(3)},
		{Ticker: ""},
	}

	got := BuildQuoteMap(markets)
	require.Len(t, got, 2)
	assert.Equal(t, 10.0, *got["FOO"].YesBid)
	assert.Nil(t, got["BAR"].YesBid)
	assert.Nil(t, got["BAR"].LastPrice)
	_, ok := got[""]
	assert.False(t, ok)
}

func TestBuildQuoteMap_LastDuplicateWins(t *testing.T) {
	got := BuildQuoteMap([]Market{
		{Ticker: "FOO", LastPrice: price(1)},
		{Ticker: "FOO", LastPrice: price(2)},
	})
	assert.Equal(t, 2.0, *got["FOO"].LastPrice)
}

func TestBuildQuoteMap_DropsExtraFields(t *testing.T) {
	var markets []Market
	raw := `[{"ticker":"FOO","yes_bid":10,"yes_ask":12,"last_price":11,"volume":900,"open_interest":12,"title":"x"}]`
	require.NoError(t, json.Unmarshal([]byte(raw), &markets))

	body, err := json.Marshal(BuildQuoteMap(markets))
	require.NoError(t, err)
	assert.JSONEq(t, `{"FOO":{"yes_bid":10,"yes_ask":12,"last_price":11}}`, string(body))
}

func TestClientQuotes(t *testing.T) {
	var gotTickers, gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/markets", r.URL.Path)
		gotTickers = r.URL.Query().Get("tickers")
		gotAuth = r.Header.Get("Authorization")
		fmt.Fprint(w, `{"markets":[{"ticker":"FOO","yes_bid":10,"yes_ask":12,"last_price":11}],"cursor":""}`)
	}))
	defer server.Close()

	client := NewClient(server.Client(), server.URL, "secret")
	quotes, err := client.Quotes(context.Background(), "FOO,BAR")
	require.NoError(t, err)

	assert.Equal(t, "FOO,BAR", gotTickers)
	assert.Equal(t, "Bearer secret", gotAuth)
	require.Len(t, quotes, 1)
	assert.Equal(t, 11.0, *quotes["FOO"].LastPrice)
}

func TestClientQuotes_Failures(t *testing.T) {
	testCases := []struct {
		name   string
		status int
		body   string
	}{
		{name: "non-2xx", status: http.StatusServiceUnavailable, body: `{"markets":[]}`},
		{name: "malformed json", status: http.StatusOK, body: `{"markets":[`},
		{name: "missing markets", status: http.StatusOK, body: `{"cursor":""}`},
		{name: "null markets", status: http.StatusOK, body: `{"markets":null}`},
	}

	for _, tt := range testCases {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				fmt.Fprint(w, tt.body)
			}))
			defer server.Close()

			client := NewClient(server.Client(), server.URL, "secret")
			_, err := client.Quotes(context.Background(), "FOO")
			assert.Error(t, err)
		})
	}
}

func TestClientQuotes_EmptyTickersSkipsUpstream(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
	}))
	defer server.Close()

	client := NewClient(server.Client(), server.URL, "secret")
	_, err := client.Quotes(context.Background(), "  ")
	assert.ErrorIs(t, err, errNoTickers)
	assert.Equal(t, int32(0), atomic.LoadInt32(&calls))
}
