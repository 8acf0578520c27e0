package service

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"solfolio/internal/aggregate"
	"solfolio/internal/cache"
	"solfolio/internal/domain"
	"solfolio/internal/provider"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	tradeFetchLimit  = 1000
	holderSampleSize = 40
	holderPages      = 2
	fallbackHolders  = 100

	DefaultWhaleThreshold = 10_000.0
)

type TradeSource interface {
	GetDEXTrades(ctx context.Context, mint string, since time.Time, limit int) ([]domain.TradeRecord, error)
}

// HolderSource is the Solscan surface.
type HolderSource interface {
	TokenHolders(ctx context.Context, mint string, page, size int) ([]domain.TokenHolder, int, error)
	TokenMeta(ctx context.Context, mint string) (*provider.TokenMeta, error)
}

// HolderFallback is the Birdeye surface used when Solscan has nothing.
type HolderFallback interface {
	TopHolders(ctx context.Context, mint string, limit int) ([]domain.TokenHolder, error)
	TokenOverview(ctx context.Context, mint string) (*domain.TokenStats, error)
}

type ActivityStore interface {
	UpsertHolders(ctx context.Context, holders []domain.TokenHolder) error
	ListHolders(ctx context.Context, mint string, limit int) ([]domain.TokenHolder, error)
	UpsertTransactions(ctx context.Context, trades []domain.TradeRecord) (int, error)
	ListTransactions(ctx context.Context, mint string, since time.Time, limit int) ([]domain.TradeRecord, error)
	InsertFlowAnalysis(ctx context.Context, a domain.TokenFlowAnalysis) (int64, error)
}

type TradeSummaryResult struct {
	TokenMint string               `json:"token_mint"`
	Window    string               `json:"window"`
	Summary   domain.TradeSummary  `json:"summary"`
	Direction domain.FlowDirection `json:"direction"`
	Trades    int                  `json:"trades"`
	Coverage  domain.TradeCoverage `json:"coverage"`
	Sources   domain.SourceReport  `json:"sources"`
}

type tradeSet struct {
	trades   []domain.TradeRecord
	coverage domain.TradeCoverage
	sources  domain.SourceReport
}

// coverage marks a set that hit the fetch limit: only trades at or after the
// earliest returned timestamp are known, not the whole window.
func coverage(trades []domain.TradeRecord) domain.TradeCoverage {
	if len(trades) < tradeFetchLimit {
		return domain.TradeCoverage{}
	}
	earliest := trades[0].Timestamp
	for _, t := range trades[1:] {
		if t.Timestamp.Before(earliest) {
			earliest = t.Timestamp
		}
	}
	earliest = earliest.UTC()
	return domain.TradeCoverage{Truncated: true, CoveredFrom: &earliest}
}

// AnalyticsService derives trade and holder analytics for a mint. Fetched
// trades and holders are written through to Postgres, which also serves as
// the fallback when the remote providers cannot answer.
type AnalyticsService struct {
	tracer  trace.Tracer
	logger  *zap.Logger
	trades  TradeSource
	holders HolderSource
	birdeye HolderFallback
	store   ActivityStore
	now     func() time.Time

	whaleThreshold float64

	tradeCache  *cache.TTLCache[tradeSet]
	holderCache *cache.TTLCache[domain.HolderDistribution]
}

func NewAnalyticsService(
	tracer trace.Tracer,
	logger *zap.Logger,
	trades TradeSource,
	holders HolderSource,
	birdeye HolderFallback,
	store ActivityStore,
	ttl time.Duration,
	whaleThreshold float64,
) *AnalyticsService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if whaleThreshold <= 0 {
		whaleThreshold = DefaultWhaleThreshold
	}
	return &AnalyticsService{
		tracer:         tracer,
		logger:         logger.Named("analytics"),
		trades:         trades,
		holders:        holders,
		birdeye:        birdeye,
		store:          store,
		now:            time.Now,
		whaleThreshold: whaleThreshold,
		tradeCache:     cache.NewTTLCache[tradeSet](ttl),
		holderCache:    cache.NewTTLCache[domain.HolderDistribution](cache.HolderTTL),
	}
}

func (s *AnalyticsService) ClearCaches() {
	s.tradeCache.Clear()
	s.holderCache.Clear()
}

func validateMint(mint string) error {
	if err := ValidateAddress(mint); err != nil {
		return fmt.Errorf("%w: mint %q is not a valid address", ErrInvalidInput, mint)
	}
	return nil
}

// loadTrades returns the trades of mint since now-window, from BitQuery when
// it answers and from stored transactions otherwise.
func (s *AnalyticsService) loadTrades(ctx context.Context, mint, label string, window time.Duration) tradeSet {
	key := cache.Key("trades", mint, label)
	if cached, ok := s.tradeCache.Get(key); ok {
		return cached
	}

	since := s.now().Add(-window)
	var sources domain.SourceCollector
	trades, err := s.trades.GetDEXTrades(ctx, mint, since, tradeFetchLimit)
	record(&sources, "bitquery", "dex_trades", err, len(trades) == 0)
	if err != nil {
		s.logger.Warn("dex trades fetch failed", zap.String("mint", mint), zap.Error(err))
	}

	fromRemote := err == nil && len(trades) > 0
	if fromRemote && s.store != nil {
		if n, err := s.store.UpsertTransactions(ctx, trades); err != nil {
			s.logger.Warn("persist trades failed", zap.String("mint", mint), zap.Error(err))
		} else {
			s.logger.Debug("persisted trades", zap.String("mint", mint), zap.Int("inserted", n))
		}
	}
	if !fromRemote && s.store != nil {
		stored, err := s.store.ListTransactions(ctx, mint, since, tradeFetchLimit)
		record(&sources, "postgres", "token_transactions", err, len(stored) == 0)
		if err == nil {
			trades = stored
		}
	}
	if trades == nil {
		trades = []domain.TradeRecord{}
	}

	set := tradeSet{trades: trades, coverage: coverage(trades), sources: sources.Report()}
	if set.coverage.Truncated {
		s.logger.Info("trade window truncated at fetch limit",
			zap.String("mint", mint),
			zap.String("window", label),
			zap.Time("covered_from", *set.coverage.CoveredFrom))
	}
	if !set.sources.Degraded() || len(trades) > 0 {
		s.tradeCache.Set(key, set)
	}
	return set
}

// TradeSummary reduces the mint's trades over the window.
func (s *AnalyticsService) TradeSummary(ctx context.Context, mint, window string) (TradeSummaryResult, error) {
	ctx, span := s.tracer.Start(ctx, "analytics-service.trade-summary")
	defer span.End()

	if err := validateMint(mint); err != nil {
		return TradeSummaryResult{}, err
	}
	label, d, err := ParseWindow(window)
	if err != nil {
		return TradeSummaryResult{}, err
	}
	span.SetAttributes(attribute.String("mint", mint), attribute.String("window", label))

	set := s.loadTrades(ctx, mint, label, d)
	now := s.now()
	inWindow := aggregate.Within(set.trades, now.Add(-d), now)
	summary := aggregate.SummarizeTrades(inWindow)
	return TradeSummaryResult{
		TokenMint: mint,
		Window:    label,
		Summary:   summary,
		Direction: aggregate.FlowDirection(summary),
		Trades:    len(inWindow),
		Coverage:  set.coverage,
		Sources:   set.sources,
	}, nil
}

func (s *AnalyticsService) HolderMovement(ctx context.Context, mint, window string) (domain.HolderMovement, error) {
	ctx, span := s.tracer.Start(ctx, "analytics-service.holder-movement")
	defer span.End()

	if err := validateMint(mint); err != nil {
		return domain.HolderMovement{}, err
	}
	label, d, err := ParseWindow(window)
	if err != nil {
		return domain.HolderMovement{}, err
	}
	span.SetAttributes(attribute.String("mint", mint), attribute.String("window", label))

	set := s.loadTrades(ctx, mint, label, d)
	m := aggregate.HolderMovement(set.trades, d, s.now())
	m.TokenMint = mint
	m.Window = label
	m.Coverage = set.coverage
	m.Sources = set.sources
	return m, nil
}

// TokenFlows buckets inflow and outflow over the window and records the
// summary in token_flow_analysis.
func (s *AnalyticsService) TokenFlows(ctx context.Context, mint, window, bucket string) (domain.FlowAnalysis, error) {
	ctx, span := s.tracer.Start(ctx, "analytics-service.token-flows")
	defer span.End()

	if err := validateMint(mint); err != nil {
		return domain.FlowAnalysis{}, err
	}
	label, d, err := ParseWindow(window)
	if err != nil {
		return domain.FlowAnalysis{}, err
	}
	bucketLabel, bucketSize, err := ParseBucket(bucket)
	if err != nil {
		return domain.FlowAnalysis{}, err
	}
	span.SetAttributes(attribute.String("mint", mint), attribute.String("window", label), attribute.String("bucket", bucketLabel))

	set := s.loadTrades(ctx, mint, label, d)
	now := s.now()
	inWindow := aggregate.Within(set.trades, now.Add(-d), now)
	summary := aggregate.SummarizeTrades(inWindow)

	analysis := domain.FlowAnalysis{
		TokenMint:  mint,
		Window:     label,
		Bucket:     bucketLabel,
		Summary:    summary,
		Direction:  aggregate.FlowDirection(summary),
		Series:     aggregate.FlowSeries(inWindow, bucketSize),
		Protocols:  aggregate.ProtocolBreakdown(inWindow),
		AnalyzedAt: now.UTC(),
		Coverage:   set.coverage,
		Sources:    set.sources,
	}

	if len(inWindow) > 0 && s.store != nil {
		_, err := s.store.InsertFlowAnalysis(ctx, domain.TokenFlowAnalysis{
			TokenMint:      mint,
			Window:         label,
			BuyVolume:      summary.TotalBuyVolume,
			SellVolume:     summary.TotalSellVolume,
			NetFlow:        summary.NetFlow,
			NetFlowPercent: summary.NetFlowPercent,
			UniqueBuyers:   summary.UniqueBuyers,
			UniqueSellers:  summary.UniqueSellers,
			AnalyzedAt:     analysis.AnalyzedAt,
		})
		if err != nil {
			s.logger.Warn("persist flow analysis failed", zap.String("mint", mint), zap.Error(err))
		}
	}
	return analysis, nil
}

// Whales lists wallets with trades of at least threshold USD over the window.
// A non-positive threshold uses the configured default.
func (s *AnalyticsService) Whales(ctx context.Context, mint, window string, threshold float64) (domain.WhaleReport, error) {
	ctx, span := s.tracer.Start(ctx, "analytics-service.whales")
	defer span.End()

	if err := validateMint(mint); err != nil {
		return domain.WhaleReport{}, err
	}
	label, d, err := ParseWindow(window)
	if err != nil {
		return domain.WhaleReport{}, err
	}
	if threshold <= 0 {
		threshold = s.whaleThreshold
	}
	span.SetAttributes(attribute.String("mint", mint), attribute.Float64("threshold", threshold))

	set := s.loadTrades(ctx, mint, label, d)
	now := s.now()
	inWindow := aggregate.Within(set.trades, now.Add(-d), now)
	large := aggregate.LargeTrades(inWindow, threshold)
	return domain.WhaleReport{
		TokenMint:    mint,
		ThresholdUSD: threshold,
		Whales:       aggregate.Whales(inWindow, threshold),
		Summary:      aggregate.SummarizeTrades(large),
		Coverage:     set.coverage,
		Sources:      set.sources,
	}, nil
}

// HolderDistribution samples the top holders of a mint and buckets them by
// share of supply. Solscan is tried first, then Birdeye, then stored holders.
func (s *AnalyticsService) HolderDistribution(ctx context.Context, mint string) (domain.HolderDistribution, error) {
	ctx, span := s.tracer.Start(ctx, "analytics-service.holder-distribution")
	defer span.End()

	if err := validateMint(mint); err != nil {
		return domain.HolderDistribution{}, err
	}
	span.SetAttributes(attribute.String("mint", mint))

	key := cache.Key("holders", mint)
	if cached, ok := s.holderCache.Get(key); ok {
		return cached, nil
	}

	var sources domain.SourceCollector
	holders, supply := s.solscanHolders(ctx, mint, &sources)
	fromRemote := len(holders) > 0

	overviewTried := false
	if len(holders) == 0 && s.birdeye != nil {
		holders, supply = s.birdeyeHolders(ctx, mint, &sources)
		fromRemote = len(holders) > 0
		overviewTried = true
	}
	if len(holders) == 0 && s.store != nil {
		stored, err := s.store.ListHolders(ctx, mint, fallbackHolders)
		record(&sources, "postgres", "token_holders", err, len(stored) == 0)
		holders = stored
	}
	// Shares against a zero supply would put every holder in the lowest tier.
	if len(holders) > 0 && supply <= 0 && s.birdeye != nil && !overviewTried {
		supply = s.birdeyeSupply(ctx, mint, &sources)
	}

	if fromRemote && s.store != nil {
		if err := s.store.UpsertHolders(ctx, holders); err != nil {
			s.logger.Warn("persist holders failed", zap.String("mint", mint), zap.Error(err))
		}
	}

	dist := aggregate.HolderDistribution(holders, supply)
	dist.TokenMint = mint
	dist.Sources = sources.Report()
	if fromRemote && supply > 0 {
		s.holderCache.Set(key, dist)
	}
	return dist, nil
}

func (s *AnalyticsService) solscanHolders(ctx context.Context, mint string, sources *domain.SourceCollector) ([]domain.TokenHolder, float64) {
	if s.holders == nil {
		return nil, 0
	}

	var (
		meta    *provider.TokenMeta
		metaErr error
		pages   = make([][]domain.TokenHolder, holderPages)
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		meta, metaErr = s.holders.TokenMeta(gctx, mint)
		record(sources, "solscan", "token_meta", metaErr, meta == nil)
		return nil
	})
	for i := range pages {
		g.Go(func() error {
			page, _, err := s.holders.TokenHolders(gctx, mint, i+1, holderSampleSize)
			record(sources, "solscan", "token_holders:"+strconv.Itoa(i+1), err, len(page) == 0)
			pages[i] = page
			return nil
		})
	}
	_ = g.Wait()

	var holders []domain.TokenHolder
	for _, p := range pages {
		holders = append(holders, p...)
	}
	var supply float64
	if meta != nil {
		supply = meta.Supply
	}
	return holders, supply
}

func (s *AnalyticsService) birdeyeHolders(ctx context.Context, mint string, sources *domain.SourceCollector) ([]domain.TokenHolder, float64) {
	var (
		holders []domain.TokenHolder
		supply  float64
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		holders, err = s.birdeye.TopHolders(gctx, mint, fallbackHolders)
		record(sources, "birdeye", "top_holders", err, len(holders) == 0)
		return nil
	})
	g.Go(func() error {
		supply = s.birdeyeSupply(gctx, mint, sources)
		return nil
	})
	_ = g.Wait()
	return holders, supply
}

// birdeyeSupply returns the total supply from the Birdeye token overview, or
// 0 when it is unavailable.
func (s *AnalyticsService) birdeyeSupply(ctx context.Context, mint string, sources *domain.SourceCollector) float64 {
	overview, err := s.birdeye.TokenOverview(ctx, mint)
	record(sources, "birdeye", "token_overview", err, overview == nil || overview.TotalSupply == nil)
	if err != nil || overview == nil || overview.TotalSupply == nil {
		return 0
	}
	return *overview.TotalSupply
}
