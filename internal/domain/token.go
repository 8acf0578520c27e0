package domain

import "time"

// TokenInfo is a token search hit.
type TokenInfo struct {
	Mint              string   `json:"mint"`
	Symbol            string   `json:"symbol"`
	Name              string   `json:"name"`
	Icon              string   `json:"icon,omitempty"`
	Decimals          int      `json:"decimals"`
	PriceUSD          float64  `json:"price_usd"`
	MarketCap         float64  `json:"market_cap"`
	Liquidity         float64  `json:"liquidity"`
	HolderCount       int      `json:"holder_count"`
	OrganicScore      *float64 `json:"organic_score,omitempty"`
	OrganicScoreLabel string   `json:"organic_score_label,omitempty"`
	Verified          bool     `json:"verified"`
}

// TokenStats merges market stats for one token across providers. Pointer
// fields are nil when no provider supplied them.
type TokenStats struct {
	Mint           string       `json:"mint"`
	Symbol         string       `json:"symbol"`
	Name           string       `json:"name"`
	PriceUSD       *float64     `json:"price_usd,omitempty"`
	PriceChange24h *float64     `json:"price_change_24h_pct,omitempty"`
	Volume24hUSD   *float64     `json:"volume_24h_usd,omitempty"`
	BuyVolume24h   *float64     `json:"buy_volume_24h_usd,omitempty"`
	SellVolume24h  *float64     `json:"sell_volume_24h_usd,omitempty"`
	Liquidity      *float64     `json:"liquidity_usd,omitempty"`
	MarketCap      *float64     `json:"market_cap_usd,omitempty"`
	HolderCount    *int         `json:"holder_count,omitempty"`
	TotalSupply    *float64     `json:"total_supply,omitempty"`
	OrganicScore   *float64     `json:"organic_score,omitempty"`
	OrganicLabel   string       `json:"organic_score_label,omitempty"`
	UpdatedAt      time.Time    `json:"updated_at"`
	Sources        SourceReport `json:"sources"`
}

// SocialMetrics merges LunarCrush and Santiment social data.
type SocialMetrics struct {
	Symbol          string        `json:"symbol"`
	GalaxyScore     *float64      `json:"galaxy_score,omitempty"`
	AltRank         *int          `json:"alt_rank,omitempty"`
	Sentiment       *float64      `json:"sentiment_pct,omitempty"`
	SocialDominance *float64      `json:"social_dominance,omitempty"`
	Interactions24h *float64      `json:"interactions_24h,omitempty"`
	SocialVolume    []SeriesPoint `json:"social_volume,omitempty"`
	Sources         SourceReport  `json:"sources"`
}

func Float(v float64) *float64 { return &v }
func Int(v int) *int           { return &v }
