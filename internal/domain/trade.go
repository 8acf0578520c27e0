package domain

import (
	"strings"
	"time"
)

type Direction string

const (
	DirectionBuy  Direction = "buy"
	DirectionSell Direction = "sell"
)

// ParseDirection normalizes provider side labels. Unknown labels return false.
func ParseDirection(s string) (Direction, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "buy", "bid", "in", "inflow":
		return DirectionBuy, true
	case "sell", "ask", "out", "outflow":
		return DirectionSell, true
	default:
		return "", false
	}
}

// TradeRecord is one buy or sell of a token by a wallet.
type TradeRecord struct {
	TokenMint     string    `json:"token_mint"`
	Timestamp     time.Time `json:"timestamp"`
	Signature     string    `json:"signature"`
	WalletAddress string    `json:"wallet_address"`
	Direction     Direction `json:"direction"`
	TokenAmount   float64   `json:"token_amount"`
	USDAmount     float64   `json:"usd_amount"`
	Protocol      string    `json:"protocol,omitempty"`
}

// TokenHolder is a single holder row of a token's holder list.
type TokenHolder struct {
	TokenMint    string    `json:"token_mint"`
	OwnerAddress string    `json:"owner_address"`
	Balance      float64   `json:"balance"`
	USDValue     float64   `json:"usd_value"`
	Rank         int       `json:"rank"`
	UpdatedAt    time.Time `json:"updated_at"`
}
