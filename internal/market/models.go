package market

// Market is the subset of an upstream Kalshi market object this service reads.
// Everything else in the upstream payload is ignored when decoding.
type Market struct {
	Ticker    string   `json:"ticker"`
	YesBid    *float64 `json:"yes_bid"`
	YesAsk    *float64 `json:"yes_ask"`
	LastPrice *float64 `json:"last_price"`
}

// Quote is the compact per-ticker price view returned to callers.
// A nil field means the market has no liquidity or has not traded.
type Quote struct {
	YesBid    *float64 `json:"yes_bid"`
	YesAsk    *float64 `json:"yes_ask"`
	LastPrice *float64 `json:"last_price"`
}

// QuoteMap maps ticker to Quote. Tickers the upstream did not return are
// absent, never present with null fields.
type QuoteMap map[string]Quote
