package provider

import (
	"context"
	"fmt"
	"strings"
	"time"

	"solfolio/internal/domain"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const coingeckoBaseURL = "https://api.coingecko.com/api/v3"

// CoinGeckoProvider fetches prices from the CoinGecko API. The key is
// optional; without one the public tier is rate limited to 8 calls a minute.
type CoinGeckoProvider struct {
	base
}

func NewCoinGeckoProvider(tracer trace.Tracer, opts Options) *CoinGeckoProvider {
	limiter := NewRateLimiter(8, 7500*time.Millisecond)
	if opts.APIKey != "" {
		limiter = PerMinute(30)
	}
	p := &CoinGeckoProvider{base: newBase("coingecko", coingeckoBaseURL, tracer, opts, limiter)}
	p.keyOptional = true
	return p
}

func (p *CoinGeckoProvider) headers() map[string]string {
	if p.apiKey == "" {
		return nil
	}
	return map[string]string{"x-cg-demo-api-key": p.apiKey}
}

// FetchPrices fetches current prices for every known asset in one call.
func (p *CoinGeckoProvider) FetchPrices(ctx context.Context) (map[string]*domain.PriceSnapshot, error) {
	ctx, span := p.startSpan(ctx, "fetch-prices")
	defer span.End()

	ids := make([]string, 0, len(domain.KnownAssets))
	for _, a := range domain.KnownAssets {
		ids = append(ids, a.CoinGeckoID)
	}

	endpoint := fmt.Sprintf("%s/simple/price?ids=%s&vs_currencies=usd&include_24hr_vol=true&include_24hr_change=true",
		p.baseURL, strings.Join(ids, ","))

	// {"solana": {"usd": 145.2, "usd_24h_vol": 2.1e9, "usd_24h_change": -1.3}, ...}
	var raw map[string]map[string]float64
	if err := p.getJSON(ctx, endpoint, p.headers(), &raw); err != nil {
		recordErr(span, err)
		return nil, fmt.Errorf("fetch prices: %w", err)
	}

	now := time.Now().Unix()
	result := make(map[string]*domain.PriceSnapshot, len(raw))
	for cgID, data := range raw {
		symbol, ok := domain.CoinGeckoIDToSymbol[cgID]
		if !ok {
			continue
		}
		asset, _ := domain.AssetBySymbol(symbol)
		result[symbol] = &domain.PriceSnapshot{
			Symbol:          symbol,
			Mint:            asset.Mint,
			PriceUSD:        data["usd"],
			Volume24h:       data["usd_24h_vol"],
			Change24hPct:    data["usd_24h_change"],
			LastUpdatedUnix: now,
		}
	}
	return result, nil
}

// FetchTokenPrices prices Solana mints by contract address. CoinGecko echoes
// addresses lower-cased, so results are mapped back to the requested spelling.
func (p *CoinGeckoProvider) FetchTokenPrices(ctx context.Context, mints []string) (map[string]float64, error) {
	ctx, span := p.startSpan(ctx, "fetch-token-prices")
	defer span.End()
	span.SetAttributes(attribute.Int("mints", len(mints)))

	if len(mints) == 0 {
		return map[string]float64{}, nil
	}

	endpoint := fmt.Sprintf("%s/simple/token_price/solana?contract_addresses=%s&vs_currencies=usd",
		p.baseURL, strings.Join(mints, ","))

	var raw map[string]map[string]float64
	if err := p.getJSON(ctx, endpoint, p.headers(), &raw); err != nil {
		recordErr(span, err)
		return nil, fmt.Errorf("fetch token prices: %w", err)
	}

	lowered := make(map[string]map[string]float64, len(raw))
	for k, v := range raw {
		lowered[strings.ToLower(k)] = v
	}

	out := make(map[string]float64, len(raw))
	for _, mint := range mints {
		if v, ok := lowered[strings.ToLower(mint)]; ok && v["usd"] > 0 {
			out[mint] = v["usd"]
		}
	}
	return out, nil
}

// FetchMarketChart returns the USD price series of a known asset over days.
func (p *CoinGeckoProvider) FetchMarketChart(ctx context.Context, symbol string, days int) ([]domain.PricePoint, error) {
	ctx, span := p.startSpan(ctx, "fetch-market-chart")
	defer span.End()
	span.SetAttributes(attribute.String("symbol", symbol), attribute.Int("days", days))

	asset, ok := domain.AssetBySymbol(symbol)
	if !ok {
		return nil, fmt.Errorf("unsupported symbol: %s", symbol)
	}
	if days <= 0 {
		days = 1
	}

	endpoint := fmt.Sprintf("%s/coins/%s/market_chart?vs_currency=usd&days=%d", p.baseURL, asset.CoinGeckoID, days)

	var raw struct {
		Prices [][]float64 `json:"prices"`
	}
	if err := p.getJSON(ctx, endpoint, p.headers(), &raw); err != nil {
		recordErr(span, err)
		return nil, fmt.Errorf("fetch market chart for %s: %w", symbol, err)
	}

	points := make([]domain.PricePoint, 0, len(raw.Prices))
	for _, pt := range raw.Prices {
		if len(pt) < 2 {
			continue
		}
		points = append(points, domain.PricePoint{Timestamp: int64(pt[0]) / 1000, PriceUSD: pt[1]})
	}
	return points, nil
}
