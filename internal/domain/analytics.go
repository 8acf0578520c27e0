package domain

import "time"

// TradeSummary reduces a set of trades. NetFlowPercent is
// (buy - sell) / (buy + sell) * 100 and 0 when there is no volume.
type TradeSummary struct {
	TotalBuyVolume  float64 `json:"total_buy_volume"`
	TotalSellVolume float64 `json:"total_sell_volume"`
	BuyCount        int     `json:"buy_count"`
	SellCount       int     `json:"sell_count"`
	UniqueBuyers    int     `json:"unique_buyers"`
	UniqueSellers   int     `json:"unique_sellers"`
	NetFlow         float64 `json:"net_flow"`
	NetFlowPercent  float64 `json:"net_flow_percent"`
}

func (s TradeSummary) TotalVolume() float64 { return s.TotalBuyVolume + s.TotalSellVolume }

// TradeCoverage reports whether the trades behind a result stopped at the
// fetch limit. When Truncated, CoveredFrom is the earliest trade seen and
// the part of the window before it is missing.
type TradeCoverage struct {
	Truncated   bool       `json:"truncated"`
	CoveredFrom *time.Time `json:"covered_from,omitempty"`
}

type FlowDirection string

const (
	FlowInflow   FlowDirection = "inflow"
	FlowOutflow  FlowDirection = "outflow"
	FlowBalanced FlowDirection = "balanced"
)

type WalletBehavior string

const (
	BehaviorAccumulating WalletBehavior = "accumulating"
	BehaviorDistributing WalletBehavior = "distributing"
	BehaviorNeutral      WalletBehavior = "neutral"
)

// HolderMovement is buy/sell activity by distinct wallets over a window.
type HolderMovement struct {
	TokenMint       string        `json:"token_mint"`
	Window          string        `json:"window"`
	ActiveWallets   int           `json:"active_wallets"`
	Accumulating    int           `json:"accumulating"`
	Distributing    int           `json:"distributing"`
	Neutral         int           `json:"neutral"`
	Summary         TradeSummary  `json:"summary"`
	Direction       FlowDirection `json:"direction"`
	TopAccumulators []WalletFlow  `json:"top_accumulators"`
	TopDistributors []WalletFlow  `json:"top_distributors"`
	Coverage        TradeCoverage `json:"coverage"`
	Sources         SourceReport  `json:"sources"`
}

// WalletFlow is one wallet's net activity.
type WalletFlow struct {
	WalletAddress string         `json:"wallet_address"`
	BuyVolume     float64        `json:"buy_volume"`
	SellVolume    float64        `json:"sell_volume"`
	NetFlow       float64        `json:"net_flow"`
	TradeCount    int            `json:"trade_count"`
	LastSeen      time.Time      `json:"last_seen"`
	Behavior      WalletBehavior `json:"behavior"`
}

type FlowBucket struct {
	Start      time.Time `json:"start"`
	Inflow     float64   `json:"inflow"`
	Outflow    float64   `json:"outflow"`
	NetFlow    float64   `json:"net_flow"`
	TradeCount int       `json:"trade_count"`
}

type ProtocolFlow struct {
	Protocol string  `json:"protocol"`
	Inflow   float64 `json:"inflow"`
	Outflow  float64 `json:"outflow"`
	Share    float64 `json:"share_percent"`
}

type FlowAnalysis struct {
	TokenMint  string         `json:"token_mint"`
	Window     string         `json:"window"`
	Bucket     string         `json:"bucket"`
	Summary    TradeSummary   `json:"summary"`
	Direction  FlowDirection  `json:"direction"`
	Series     []FlowBucket   `json:"series"`
	Protocols  []ProtocolFlow `json:"protocols"`
	AnalyzedAt time.Time      `json:"analyzed_at"`
	Coverage   TradeCoverage  `json:"coverage"`
	Sources    SourceReport   `json:"sources"`
}

// WhaleReport lists wallets whose individual trades met the USD threshold.
type WhaleReport struct {
	TokenMint    string        `json:"token_mint"`
	ThresholdUSD float64       `json:"threshold_usd"`
	Whales       []WalletFlow  `json:"whales"`
	Summary      TradeSummary  `json:"summary"`
	Coverage     TradeCoverage `json:"coverage"`
	Sources      SourceReport  `json:"sources"`
}

type HolderTier string

const (
	TierWhale   HolderTier = "whale"
	TierShark   HolderTier = "shark"
	TierDolphin HolderTier = "dolphin"
	TierFish    HolderTier = "fish"
)

type HolderBucket struct {
	Tier          HolderTier `json:"tier"`
	Holders       int        `json:"holders"`
	Balance       float64    `json:"balance"`
	SupplyPercent float64    `json:"supply_percent"`
}

type HolderDistribution struct {
	TokenMint          string         `json:"token_mint"`
	SampledHolders     int            `json:"sampled_holders"`
	TotalSupply        float64        `json:"total_supply"`
	Top10Concentration float64        `json:"top10_concentration_percent"`
	Buckets            []HolderBucket `json:"buckets"`
	TopHolders         []TokenHolder  `json:"top_holders"`
	Sources            SourceReport   `json:"sources"`
}

type RiskLevel string

const (
	RiskUnknown  RiskLevel = "unknown"
	RiskLow      RiskLevel = "low"
	RiskModerate RiskLevel = "moderate"
	RiskHigh     RiskLevel = "high"
	RiskCritical RiskLevel = "critical"
)

type RiskFactor struct {
	Name      string  `json:"name"`
	Risk      float64 `json:"risk"`
	Weight    float64 `json:"weight"`
	Available bool    `json:"available"`
	Detail    string  `json:"detail,omitempty"`
}

type RiskAssessment struct {
	TokenMint  string       `json:"token_mint"`
	Symbol     string       `json:"symbol,omitempty"`
	Score      float64      `json:"score"`
	Level      RiskLevel    `json:"level"`
	Confidence float64      `json:"confidence"`
	Factors    []RiskFactor `json:"factors"`
	Narrative  string       `json:"narrative"`
	Narrator   string       `json:"narrator"`
	AssessedAt time.Time    `json:"assessed_at"`
	Sources    SourceReport `json:"sources"`
}

// TokenFlowAnalysis is a persisted flow summary for a mint over a window.
type TokenFlowAnalysis struct {
	ID             int64     `json:"id"`
	TokenMint      string    `json:"token_mint"`
	Window         string    `json:"window"`
	BuyVolume      float64   `json:"buy_volume"`
	SellVolume     float64   `json:"sell_volume"`
	NetFlow        float64   `json:"net_flow"`
	NetFlowPercent float64   `json:"net_flow_percent"`
	UniqueBuyers   int       `json:"unique_buyers"`
	UniqueSellers  int       `json:"unique_sellers"`
	AnalyzedAt     time.Time `json:"analyzed_at"`
}
