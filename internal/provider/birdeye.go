package provider

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"solfolio/internal/domain"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const birdeyeURL = "https://public-api.birdeye.so"

// BirdeyeProvider reads token overviews and holder lists from Birdeye.
type BirdeyeProvider struct {
	base
}

func NewBirdeyeProvider(tracer trace.Tracer, opts Options) *BirdeyeProvider {
	return &BirdeyeProvider{base: newBase("birdeye", birdeyeURL, tracer, opts, PerMinute(60))}
}

func (p *BirdeyeProvider) headers() map[string]string {
	return map[string]string{"X-API-KEY": p.apiKey, "x-chain": "solana"}
}

// TokenOverview returns Birdeye's market view of mint, or nil when Birdeye has no data.
func (p *BirdeyeProvider) TokenOverview(ctx context.Context, mint string) (*domain.TokenStats, error) {
	ctx, span := p.startSpan(ctx, "token-overview")
	defer span.End()
	span.SetAttributes(attribute.String("mint", mint))

	if err := p.requireKey(); err != nil {
		return nil, err
	}

	var raw struct {
		Success bool `json:"success"`
		Data    *struct {
			Address     string   `json:"address"`
			Symbol      string   `json:"symbol"`
			Name        string   `json:"name"`
			Price       *float64 `json:"price"`
			Liquidity   *float64 `json:"liquidity"`
			MC          *float64 `json:"mc"`
			V24hUSD     *float64 `json:"v24hUSD"`
			VBuy24hUSD  *float64 `json:"vBuy24hUSD"`
			VSell24hUSD *float64 `json:"vSell24hUSD"`
			PriceChange *float64 `json:"priceChange24hPercent"`
			Holder      *int     `json:"holder"`
			Supply      *float64 `json:"supply"`
		} `json:"data"`
	}
	endpoint := fmt.Sprintf("%s/defi/token_overview?address=%s", p.baseURL, url.QueryEscape(mint))
	if err := p.getJSON(ctx, endpoint, p.headers(), &raw); err != nil {
		recordErr(span, err)
		return nil, fmt.Errorf("token overview for %s: %w", mint, err)
	}
	if !raw.Success || raw.Data == nil {
		return nil, nil
	}

	d := raw.Data
	stats := &domain.TokenStats{
		Mint:           mint,
		Symbol:         d.Symbol,
		Name:           d.Name,
		PriceUSD:       optFloat(d.Price),
		Liquidity:      optFloat(d.Liquidity),
		MarketCap:      optFloat(d.MC),
		Volume24hUSD:   optFloat(d.V24hUSD),
		BuyVolume24h:   optFloat(d.VBuy24hUSD),
		SellVolume24h:  optFloat(d.VSell24hUSD),
		PriceChange24h: optFloat(d.PriceChange),
		TotalSupply:    optFloat(d.Supply),
		UpdatedAt:      time.Now().UTC(),
	}
	if d.Holder != nil {
		stats.HolderCount = domain.Int(*d.Holder)
	}
	return stats, nil
}

// TopHolders returns the largest holders of mint ranked by balance.
func (p *BirdeyeProvider) TopHolders(ctx context.Context, mint string, limit int) ([]domain.TokenHolder, error) {
	ctx, span := p.startSpan(ctx, "top-holders")
	defer span.End()
	span.SetAttributes(attribute.String("mint", mint))

	if err := p.requireKey(); err != nil {
		return nil, err
	}
	if limit <= 0 || limit > 100 {
		limit = 100
	}

	var raw struct {
		Success bool `json:"success"`
		Data    struct {
			Items []struct {
				Owner    string    `json:"owner"`
				UIAmount flexFloat `json:"ui_amount"`
			} `json:"items"`
		} `json:"data"`
	}
	endpoint := fmt.Sprintf("%s/defi/v3/token/holder?address=%s&offset=0&limit=%d", p.baseURL, url.QueryEscape(mint), limit)
	if err := p.getJSON(ctx, endpoint, p.headers(), &raw); err != nil {
		recordErr(span, err)
		return nil, fmt.Errorf("top holders for %s: %w", mint, err)
	}

	now := time.Now().UTC()
	holders := make([]domain.TokenHolder, 0, len(raw.Data.Items))
	for i, item := range raw.Data.Items {
		holders = append(holders, domain.TokenHolder{
			TokenMint:    mint,
			OwnerAddress: item.Owner,
			Balance:      item.UIAmount.Float(),
			Rank:         i + 1,
			UpdatedAt:    now,
		})
	}
	return holders, nil
}
