package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"solfolio/internal/cache"
	"solfolio/internal/domain"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const socialVolumeDays = 7

type CoinSocialProvider interface {
	CoinSocial(ctx context.Context, symbol string) (*domain.SocialMetrics, error)
}

type SocialVolumeProvider interface {
	SocialVolume(ctx context.Context, slug string, days int) ([]domain.SeriesPoint, error)
}

// SocialService merges LunarCrush coin metrics with the Santiment social
// volume series.
type SocialService struct {
	tracer     trace.Tracer
	logger     *zap.Logger
	lunarcrush CoinSocialProvider
	santiment  SocialVolumeProvider
	cache      *cache.TTLCache[*domain.SocialMetrics]
}

func NewSocialService(tracer trace.Tracer, logger *zap.Logger, lunarcrush CoinSocialProvider, santiment SocialVolumeProvider, ttl time.Duration) *SocialService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if ttl <= 0 {
		ttl = cache.SocialTTL
	}
	return &SocialService{
		tracer:     tracer,
		logger:     logger.Named("social"),
		lunarcrush: lunarcrush,
		santiment:  santiment,
		cache:      cache.NewTTLCache[*domain.SocialMetrics](ttl),
	}
}

func (s *SocialService) ClearCaches() { s.cache.Clear() }

// GetSocial returns social metrics for symbol. The Santiment slug defaults to
// the asset's CoinGecko id when known.
func (s *SocialService) GetSocial(ctx context.Context, symbol, slug string) (*domain.SocialMetrics, error) {
	ctx, span := s.tracer.Start(ctx, "social-service.get-social")
	defer span.End()

	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return nil, fmt.Errorf("%w: symbol is required", ErrInvalidInput)
	}
	slug = strings.ToLower(strings.TrimSpace(slug))
	if slug == "" {
		if a, ok := domain.AssetBySymbol(symbol); ok {
			slug = a.CoinGeckoID
		}
	}
	span.SetAttributes(attribute.String("symbol", symbol), attribute.String("slug", slug))

	key := cache.Key("social", symbol, slug)
	if cached, ok := s.cache.Get(key); ok {
		return cached, nil
	}

	var (
		sources domain.SourceCollector
		coin    *domain.SocialMetrics
		volume  []domain.SeriesPoint
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		coin, err = s.lunarcrush.CoinSocial(gctx, symbol)
		record(&sources, "lunarcrush", "coin_social", err, coin == nil)
		return nil
	})
	if slug != "" {
		g.Go(func() error {
			var err error
			volume, err = s.santiment.SocialVolume(gctx, slug, socialVolumeDays)
			record(&sources, "santiment", "social_volume", err, len(volume) == 0)
			return nil
		})
	}
	_ = g.Wait()

	out := &domain.SocialMetrics{Symbol: symbol}
	if coin != nil {
		out.GalaxyScore = coin.GalaxyScore
		out.AltRank = coin.AltRank
		out.Sentiment = coin.Sentiment
		out.SocialDominance = coin.SocialDominance
		out.Interactions24h = coin.Interactions24h
	}
	out.SocialVolume = volume
	out.Sources = sources.Report()

	if coin != nil || len(volume) > 0 {
		s.cache.Set(key, out)
	} else {
		s.logger.Debug("no social data", zap.String("symbol", symbol))
	}
	return out, nil
}

// hasSocialData reports whether any social metric is present.
func hasSocialData(m *domain.SocialMetrics) bool {
	return m != nil && (m.GalaxyScore != nil || m.Sentiment != nil || len(m.SocialVolume) > 0)
}
