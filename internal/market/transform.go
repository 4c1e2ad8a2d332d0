package market

// BuildQuoteMap projects upstream markets onto the compact quote map.
// Markets without a ticker are skipped; a repeated ticker keeps the last entry.
func BuildQuoteMap(markets []Market) QuoteMap {
	out := make(QuoteMap, len(markets))
	for _, m := range markets {
		if m.Ticker == "" {
			continue
		}
		out[m.Ticker] = Quote{
			YesBid:    m.YesBid,
			YesAsk:    m.YesAsk,
			LastPrice: m.LastPrice,
		}
	}
	return out
}
