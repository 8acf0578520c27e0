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

const lunarcrushURL = "https://lunarcrush.com/api4/public"

type LunarCrushProvider struct {
	base
}

func NewLunarCrushProvider(tracer trace.Tracer, opts Options) *LunarCrushProvider {
	return &LunarCrushProvider{base: newBase("lunarcrush", lunarcrushURL, tracer, opts, PerMinute(10))}
}

// CoinSocial returns LunarCrush social metrics for a coin symbol, or nil if unknown.
func (p *LunarCrushProvider) CoinSocial(ctx context.Context, symbol string) (*domain.SocialMetrics, error) {
	ctx, span := p.startSpan(ctx, "coin-social")
	defer span.End()
	span.SetAttributes(attribute.String("symbol", symbol))

	if err := p.requireKey(); err != nil {
		return nil, err
	}

	var raw struct {
		Data *struct {
			GalaxyScore     *float64 `json:"galaxy_score"`
			AltRank         *int     `json:"alt_rank"`
			Sentiment       *float64 `json:"sentiment"`
			SocialDominance *float64 `json:"social_dominance"`
			Interactions24h *float64 `json:"interactions_24h"`
		} `json:"data"`
	}
	endpoint := fmt.Sprintf("%s/coins/%s/v1", p.baseURL, url.PathEscape(strings.ToLower(symbol)))
	headers := map[string]string{"Authorization": "Bearer " + p.apiKey}
	if err := p.getJSON(ctx, endpoint, headers, &raw); err != nil {
		recordErr(span, err)
		return nil, fmt.Errorf("coin social for %s: %w", symbol, err)
	}
	if raw.Data == nil {
		return nil, nil
	}

	return &domain.SocialMetrics{
		Symbol:          strings.ToUpper(symbol),
		GalaxyScore:     optFloat(raw.Data.GalaxyScore),
		AltRank:         raw.Data.AltRank,
		Sentiment:       optFloat(raw.Data.Sentiment),
		SocialDominance: optFloat(raw.Data.SocialDominance),
		Interactions24h: optFloat(raw.Data.Interactions24h),
	}, nil
}
