package domain

import (
	"time"

	"github.com/google/uuid"
)

type Wallet struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"user_id"`
	Address   string    `json:"address"`
	Name      string    `json:"name"`
	IsPrimary bool      `json:"is_primary"`
	CreatedAt time.Time `json:"created_at"`
}

// Holding is one token balance of one wallet, valued in USD at LastUpdated.
type Holding struct {
	UserID        uuid.UUID `json:"user_id"`
	WalletAddress string    `json:"wallet_address"`
	TokenMint     string    `json:"token_mint"`
	Symbol        string    `json:"symbol"`
	Balance       float64   `json:"balance"`
	USDValue      float64   `json:"usd_value"`
	LastUpdated   time.Time `json:"last_updated"`
}

// PortfolioStats mirrors the calculate_portfolio_stats database function.
type PortfolioStats struct {
	TotalUSD        float64 `json:"total_usd"`
	TokenCount      int     `json:"token_count"`
	WalletCount     int     `json:"wallet_count"`
	LargestMint     string  `json:"largest_mint,omitempty"`
	LargestUSDValue float64 `json:"largest_usd_value"`
}

type PortfolioSnapshot struct {
	UserID      uuid.UUID `json:"user_id"`
	TotalUSD    float64   `json:"total_usd"`
	TokenCount  int       `json:"token_count"`
	WalletCount int       `json:"wallet_count"`
	CapturedAt  time.Time `json:"captured_at"`
}

// Allocation is a token's share of a portfolio.
type Allocation struct {
	TokenMint string  `json:"token_mint"`
	Symbol    string  `json:"symbol"`
	Balance   float64 `json:"balance"`
	USDValue  float64 `json:"usd_value"`
	Percent   float64 `json:"percent"`
}

type PortfolioSummary struct {
	TotalUSD    float64      `json:"total_usd"`
	WalletCount int          `json:"wallet_count"`
	TokenCount  int          `json:"token_count"`
	Allocations []Allocation `json:"allocations"`
}

// TriggerOrder is an open Jupiter limit order for a wallet.
type TriggerOrder struct {
	OrderKey     string    `json:"order_key"`
	InputMint    string    `json:"input_mint"`
	OutputMint   string    `json:"output_mint"`
	MakingAmount float64   `json:"making_amount"`
	TakingAmount float64   `json:"taking_amount"`
	Status       string    `json:"status"`
	CreatedAt    time.Time `json:"created_at"`
}
