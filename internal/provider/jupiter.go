package provider

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"solfolio/internal/domain"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const (
	jupiterLiteURL = "https://lite-api.jup.ag"
	jupiterProURL  = "https://api.jup.ag"
)

// JupiterProvider wraps the Jupiter token, price and trigger APIs. The lite
// endpoints are keyless; a key switches to the pro host.
type JupiterProvider struct {
	base
}

func NewJupiterProvider(tracer trace.Tracer, opts Options) *JupiterProvider {
	defaultURL := jupiterLiteURL
	if opts.APIKey != "" {
		defaultURL = jupiterProURL
	}
	p := &JupiterProvider{base: newBase("jupiter", defaultURL, tracer, opts, PerMinute(60))}
	p.keyOptional = true
	return p
}

func (p *JupiterProvider) headers() map[string]string {
	if p.apiKey == "" {
		return nil
	}
	return map[string]string{"x-api-key": p.apiKey}
}

type jupiterToken struct {
	ID                string    `json:"id"`
	Name              string    `json:"name"`
	Symbol            string    `json:"symbol"`
	Icon              string    `json:"icon"`
	Decimals          int       `json:"decimals"`
	USDPrice          flexFloat `json:"usdPrice"`
	MCap              flexFloat `json:"mcap"`
	Liquidity         flexFloat `json:"liquidity"`
	HolderCount       int       `json:"holderCount"`
	TotalSupply       flexFloat `json:"totalSupply"`
	OrganicScore      *float64  `json:"organicScore"`
	OrganicScoreLabel string    `json:"organicScoreLabel"`
	IsVerified        bool      `json:"isVerified"`
	Stats24h          *jupStats `json:"stats24h"`
	UpdatedAt         string    `json:"updatedAt"`
}

type jupStats struct {
	PriceChange float64   `json:"priceChange"`
	BuyVolume   flexFloat `json:"buyVolume"`
	SellVolume  flexFloat `json:"sellVolume"`
	NumBuys     int       `json:"numBuys"`
	NumSells    int       `json:"numSells"`
}

// SearchTokens looks tokens up by symbol, name or mint.
func (p *JupiterProvider) SearchTokens(ctx context.Context, query string) ([]domain.TokenInfo, error) {
	ctx, span := p.startSpan(ctx, "search-tokens")
	defer span.End()
	span.SetAttributes(attribute.String("query", query))

	raw, err := p.search(ctx, query)
	if err != nil {
		recordErr(span, err)
		return nil, fmt.Errorf("search tokens: %w", err)
	}

	out := make([]domain.TokenInfo, 0, len(raw))
	for _, t := range raw {
		out = append(out, domain.TokenInfo{
			Mint:              t.ID,
			Symbol:            t.Symbol,
			Name:              t.Name,
			Icon:              t.Icon,
			Decimals:          t.Decimals,
			PriceUSD:          t.USDPrice.Float(),
			MarketCap:         t.MCap.Float(),
			Liquidity:         t.Liquidity.Float(),
			HolderCount:       t.HolderCount,
			OrganicScore:      optFloat(t.OrganicScore),
			OrganicScoreLabel: t.OrganicScoreLabel,
			Verified:          t.IsVerified,
		})
	}
	return out, nil
}

// TokenStats returns Jupiter's view of a single mint, or nil if unknown.
func (p *JupiterProvider) TokenStats(ctx context.Context, mint string) (*domain.TokenStats, error) {
	ctx, span := p.startSpan(ctx, "token-stats")
	defer span.End()
	span.SetAttributes(attribute.String("mint", mint))

	raw, err := p.search(ctx, mint)
	if err != nil {
		recordErr(span, err)
		return nil, fmt.Errorf("token stats for %s: %w", mint, err)
	}

	for _, t := range raw {
		if t.ID != mint {
			continue
		}
		stats := &domain.TokenStats{
			Mint:         t.ID,
			Symbol:       t.Symbol,
			Name:         t.Name,
			PriceUSD:     domain.Float(t.USDPrice.Float()),
			Liquidity:    domain.Float(t.Liquidity.Float()),
			MarketCap:    domain.Float(t.MCap.Float()),
			HolderCount:  domain.Int(t.HolderCount),
			OrganicScore: optFloat(t.OrganicScore),
			OrganicLabel: t.OrganicScoreLabel,
			UpdatedAt:    parseTime(t.UpdatedAt),
		}
		if t.TotalSupply > 0 {
			stats.TotalSupply = domain.Float(t.TotalSupply.Float())
		}
		if s := t.Stats24h; s != nil {
			stats.PriceChange24h = domain.Float(s.PriceChange)
			stats.BuyVolume24h = domain.Float(s.BuyVolume.Float())
			stats.SellVolume24h = domain.Float(s.SellVolume.Float())
			stats.Volume24hUSD = domain.Float(s.BuyVolume.Float() + s.SellVolume.Float())
		}
		return stats, nil
	}
	return nil, nil
}

func (p *JupiterProvider) search(ctx context.Context, query string) ([]jupiterToken, error) {
	endpoint := fmt.Sprintf("%s/tokens/v2/search?query=%s", p.baseURL, url.QueryEscape(strings.TrimSpace(query)))
	var raw []jupiterToken
	if err := p.getJSON(ctx, endpoint, p.headers(), &raw); err != nil {
		return nil, err
	}
	return raw, nil
}

// GetPrices returns USD prices keyed by mint. Mints Jupiter cannot price are absent.
func (p *JupiterProvider) GetPrices(ctx context.Context, mints []string) (map[string]float64, error) {
	ctx, span := p.startSpan(ctx, "get-prices")
	defer span.End()
	span.SetAttributes(attribute.Int("mints", len(mints)))

	out := make(map[string]float64, len(mints))
	// The price endpoint accepts at most 50 ids per call.
	for start := 0; start < len(mints); start += 50 {
		end := start + 50
		if end > len(mints) {
			end = len(mints)
		}
		endpoint := fmt.Sprintf("%s/price/v3?ids=%s", p.baseURL, strings.Join(mints[start:end], ","))

		var raw map[string]*struct {
			USDPrice       float64 `json:"usdPrice"`
			PriceChange24h float64 `json:"priceChange24h"`
		}
		if err := p.getJSON(ctx, endpoint, p.headers(), &raw); err != nil {
			recordErr(span, err)
			return nil, fmt.Errorf("get prices: %w", err)
		}
		for mint, v := range raw {
			if v != nil && v.USDPrice > 0 {
				out[mint] = v.USDPrice
			}
		}
	}
	return out, nil
}

// GetTriggerOrders lists a wallet's active limit orders.
func (p *JupiterProvider) GetTriggerOrders(ctx context.Context, wallet string) ([]domain.TriggerOrder, error) {
	ctx, span := p.startSpan(ctx, "get-trigger-orders")
	defer span.End()

	endpoint := fmt.Sprintf("%s/trigger/v1/getTriggerOrders?user=%s&orderStatus=active", p.baseURL, url.QueryEscape(wallet))
	var raw struct {
		Orders []struct {
			OrderKey     string    `json:"orderKey"`
			InputMint    string    `json:"inputMint"`
			OutputMint   string    `json:"outputMint"`
			MakingAmount flexFloat `json:"makingAmount"`
			TakingAmount flexFloat `json:"takingAmount"`
			Status       string    `json:"status"`
			CreatedAt    string    `json:"createdAt"`
		} `json:"orders"`
	}
	if err := p.getJSON(ctx, endpoint, p.headers(), &raw); err != nil {
		recordErr(span, err)
		return nil, fmt.Errorf("get trigger orders: %w", err)
	}

	out := make([]domain.TriggerOrder, 0, len(raw.Orders))
	for _, o := range raw.Orders {
		out = append(out, domain.TriggerOrder{
			OrderKey:     o.OrderKey,
			InputMint:    o.InputMint,
			OutputMint:   o.OutputMint,
			MakingAmount: o.MakingAmount.Float(),
			TakingAmount: o.TakingAmount.Float(),
			Status:       o.Status,
			CreatedAt:    parseTime(o.CreatedAt),
		})
	}
	return out, nil
}
