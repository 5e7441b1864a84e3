// internal/service/extract/vocab.go

package extract

// financeContextWords is the fixed vocabulary that raises confidence when found
// near a plain-token candidate.
func financeContextWords() map[string]struct{} {
	words := []string{
		"stock", "stocks", "shares", "share", "earnings", "options", "calls", "puts",
		"price", "target", "buy", "sell", "hold", "bullish", "bearish", "dd",
		"analysis", "revenue", "profit", "margin", "valuation", "trade", "trading",
		"portfolio", "investment", "invest", "market", "equity", "security",
		"dividend", "yield", "eps", "pe", "ratio", "financials", "quarterly",
		"annual", "report", "guidance", "forecast", "catalyst", "moat",
	}

	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}

// majorTickerSet holds widely-known large caps that get a small confidence
// boost on plain matches.
func majorTickerSet() map[string]struct{} {
	tickers := []string{"AAPL", "TSLA", "MSFT", "GOOGL", "AMZN", "NVDA", "META"}

	set := make(map[string]struct{}, len(tickers))
	for _, t := range tickers {
		set[t] = struct{}{}
	}
	return set
}
