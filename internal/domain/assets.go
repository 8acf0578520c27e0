package domain

import (
	"sort"
	"strings"
)

// Asset is a well-known Solana token the service can price by symbol.
type Asset struct {
	Symbol      string `json:"symbol"`
	Name        string `json:"name"`
	Mint        string `json:"mint"`
	Decimals    int    `json:"decimals"`
	CoinGeckoID string `json:"coingecko_id"`
}

const (
	SOLMint        = "So11111111111111111111111111111111111111112"
	LamportsPerSOL = 1_000_000_000
)

var KnownAssets = []Asset{
	{Symbol: "SOL", Name: "Solana", Mint: SOLMint, Decimals: 9, CoinGeckoID: "solana"},
	{Symbol: "USDC", Name: "USD Coin", Mint: "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v", Decimals: 6, CoinGeckoID: "usd-coin"},
	{Symbol: "JUP", Name: "Jupiter", Mint: "JUPyiwrYJFskUPiHa7hkeR8VUtAeFoSYbKedZNsDvCN", Decimals: 6, CoinGeckoID: "jupiter-exchange-solana"},
	{Symbol: "BONK", Name: "Bonk", Mint: "DezXAZ8z7PnrnRJjz3wXBoRgixCa6xjnB7YaB1pPB263", Decimals: 5, CoinGeckoID: "bonk"},
	{Symbol: "WIF", Name: "dogwifhat", Mint: "EKpQGSJtjMFqKZ9KQanSqYXRcF8fBopzLHYxdM65zcjm", Decimals: 6, CoinGeckoID: "dogwifcoin"},
	{Symbol: "JTO", Name: "Jito", Mint: "jtojtomepa8beP8AuQc6eXt5FriJwfFMwQx2v2f9mCL", Decimals: 9, CoinGeckoID: "jito-governance-token"},
	{Symbol: "PYTH", Name: "Pyth Network", Mint: "HZ1JovNiVvGrGNiiYvEozEVgZ58xaU3RKwX8eACQBCt3", Decimals: 6, CoinGeckoID: "pyth-network"},
	{Symbol: "RAY", Name: "Raydium", Mint: "4k3Dyjzvzp8eMZWUXbBCjEvwSkkk59S5iCNLY3QrkX6R", Decimals: 6, CoinGeckoID: "raydium"},
}

var (
	assetsBySymbol = make(map[string]Asset, len(KnownAssets))
	assetsByMint   = make(map[string]Asset, len(KnownAssets))

	// CoinGeckoIDToSymbol maps CoinGecko ids back to symbols.
	CoinGeckoIDToSymbol = make(map[string]string, len(KnownAssets))
)

func init() {
	for _, a := range KnownAssets {
		assetsBySymbol[a.Symbol] = a
		assetsByMint[a.Mint] = a
		CoinGeckoIDToSymbol[a.CoinGeckoID] = a.Symbol
	}
}

func AssetBySymbol(symbol string) (Asset, bool) {
	a, ok := assetsBySymbol[strings.ToUpper(strings.TrimSpace(symbol))]
	return a, ok
}

func AssetByMint(mint string) (Asset, bool) {
	a, ok := assetsByMint[strings.TrimSpace(mint)]
	return a, ok
}

// SupportedSymbols lists the symbols of KnownAssets in sorted order.
func SupportedSymbols() []string {
	out := make([]string, 0, len(KnownAssets))
	for _, a := range KnownAssets {
		out = append(out, a.Symbol)
	}
	sort.Strings(out)
	return out
}

// PriceSnapshot is the latest USD price for an asset.
type PriceSnapshot struct {
	Symbol          string  `json:"symbol"`
	Mint            string  `json:"mint,omitempty"`
	PriceUSD        float64 `json:"price_usd"`
	Volume24h       float64 `json:"volume_24h"`
	Change24hPct    float64 `json:"change_24h_pct"`
	LastUpdatedUnix int64   `json:"last_updated_unix"`
}

// PricePoint is one sample of a price history series.
type PricePoint struct {
	Timestamp int64   `json:"timestamp"`
	PriceUSD  float64 `json:"price_usd"`
}

// SeriesPoint is one sample of a non-price time series.
type SeriesPoint struct {
	Timestamp int64   `json:"timestamp"`
	Value     float64 `json:"value"`
}
