package service

import (
	"context"
	"errors"
	"time"

	"solfolio/internal/cache"
	"solfolio/internal/domain"
	"solfolio/internal/risk"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const riskCacheTTL = 60 * time.Second

type TokenStatsSource interface {
	GetTokenStats(ctx context.Context, mint string) (*domain.TokenStats, error)
}

type TokenAnalytics interface {
	HolderDistribution(ctx context.Context, mint string) (domain.HolderDistribution, error)
	TradeSummary(ctx context.Context, mint, window string) (TradeSummaryResult, error)
}

type SocialSource interface {
	GetSocial(ctx context.Context, symbol, slug string) (*domain.SocialMetrics, error)
}

// RiskService gathers every input of the risk score in parallel. A part that
// fails is left out of the score and shows up in the sources.
type RiskService struct {
	tracer    trace.Tracer
	logger    *zap.Logger
	market    TokenStatsSource
	analytics TokenAnalytics
	social    SocialSource
	narrator  risk.Narrator
	now       func() time.Time
	cache     *cache.TTLCache[domain.RiskAssessment]
}

func NewRiskService(
	tracer trace.Tracer,
	logger *zap.Logger,
	market TokenStatsSource,
	analytics TokenAnalytics,
	social SocialSource,
	narrator risk.Narrator,
) *RiskService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RiskService{
		tracer:    tracer,
		logger:    logger.Named("risk"),
		market:    market,
		analytics: analytics,
		social:    social,
		narrator:  narrator,
		now:       time.Now,
		cache:     cache.NewTTLCache[domain.RiskAssessment](riskCacheTTL),
	}
}

func (s *RiskService) ClearCaches() { s.cache.Clear() }

// Assess scores a mint. It only fails on an invalid mint.
func (s *RiskService) Assess(ctx context.Context, mint string) (domain.RiskAssessment, error) {
	ctx, span := s.tracer.Start(ctx, "risk-service.assess")
	defer span.End()

	if err := validateMint(mint); err != nil {
		return domain.RiskAssessment{}, err
	}
	span.SetAttributes(attribute.String("mint", mint))

	key := cache.Key("risk", mint)
	if cached, ok := s.cache.Get(key); ok {
		return cached, nil
	}

	var (
		sources   domain.SourceCollector
		in        = risk.Input{Mint: mint}
		statsDone = make(chan struct{})
	)
	if a, ok := domain.AssetByMint(mint); ok {
		in.Symbol = a.Symbol
	}
	knownSymbol := in.Symbol

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer close(statsDone)
		stats, err := s.market.GetTokenStats(gctx, mint)
		switch {
		case errors.Is(err, ErrTokenNotFound):
			sources.Add(domain.SourceStatus{Provider: "market", Op: "token_stats", State: domain.SourceEmpty})
		case err != nil:
			sources.Add(domain.SourceStatus{Provider: "market", Op: "token_stats", State: domain.SourceError, Error: err.Error()})
		case stats != nil:
			addAll(&sources, stats.Sources)
			in.Stats = stats
		}
		return nil
	})
	g.Go(func() error {
		dist, err := s.analytics.HolderDistribution(gctx, mint)
		if err != nil {
			s.logger.Warn("holder distribution failed", zap.String("mint", mint), zap.Error(err))
			return nil
		}
		addAll(&sources, dist.Sources)
		if dist.SampledHolders > 0 && dist.TotalSupply > 0 {
			in.Distribution = &dist
		}
		return nil
	})
	g.Go(func() error {
		res, err := s.analytics.TradeSummary(gctx, mint, DefaultWindow)
		if err != nil {
			s.logger.Warn("trade summary failed", zap.String("mint", mint), zap.Error(err))
			return nil
		}
		addAll(&sources, res.Sources)
		if res.Trades > 0 {
			summary := res.Summary
			in.Trades = &summary
		}
		return nil
	})
	var socialSymbol string
	g.Go(func() error {
		symbol := knownSymbol
		if symbol == "" {
			select {
			case <-statsDone:
			case <-gctx.Done():
				return nil
			}
			if in.Stats != nil {
				symbol = in.Stats.Symbol
			}
		}
		if symbol == "" || s.social == nil {
			return nil
		}
		socialSymbol = symbol
		metrics, err := s.social.GetSocial(gctx, symbol, "")
		if err != nil {
			s.logger.Warn("social metrics failed", zap.String("symbol", symbol), zap.Error(err))
			return nil
		}
		if metrics == nil {
			return nil
		}
		addAll(&sources, metrics.Sources)
		if hasSocialData(metrics) {
			in.Social = metrics
		}
		return nil
	})
	_ = g.Wait()

	if in.Symbol == "" {
		in.Symbol = socialSymbol
	}
	if in.Symbol == "" && in.Stats != nil {
		in.Symbol = in.Stats.Symbol
	}

	assessment := risk.Score(in, s.now().UTC())
	assessment.Sources = sources.Report()
	risk.Narrate(ctx, s.narrator, &assessment, s.logger)

	s.cache.Set(key, assessment)
	s.logger.Info("risk assessed",
		zap.String("mint", mint),
		zap.Float64("score", assessment.Score),
		zap.String("level", string(assessment.Level)),
		zap.Float64("confidence", assessment.Confidence),
	)
	return assessment, nil
}

func addAll(c *domain.SourceCollector, report domain.SourceReport) {
	for _, st := range report {
		c.Add(st)
	}
}
