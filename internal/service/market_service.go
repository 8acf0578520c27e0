package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"solfolio/internal/cache"
	"solfolio/internal/domain"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const priceCacheTTL = 90 * time.Second

// JupiterAPI is the Jupiter surface used for search, stats, prices and orders.
type JupiterAPI interface {
	SearchTokens(ctx context.Context, query string) ([]domain.TokenInfo, error)
	TokenStats(ctx context.Context, mint string) (*domain.TokenStats, error)
	GetPrices(ctx context.Context, mints []string) (map[string]float64, error)
	GetTriggerOrders(ctx context.Context, wallet string) ([]domain.TriggerOrder, error)
}

type TokenOverviewProvider interface {
	TokenOverview(ctx context.Context, mint string) (*domain.TokenStats, error)
}

// PriceProvider is the CoinGecko surface.
type PriceProvider interface {
	FetchPrices(ctx context.Context) (map[string]*domain.PriceSnapshot, error)
	FetchTokenPrices(ctx context.Context, mints []string) (map[string]float64, error)
	FetchMarketChart(ctx context.Context, symbol string, days int) ([]domain.PricePoint, error)
}

type SearchResult struct {
	Query   string              `json:"query"`
	Tokens  []domain.TokenInfo  `json:"tokens"`
	Sources domain.SourceReport `json:"sources"`
}

type OrdersResult struct {
	Wallet  string                `json:"wallet"`
	Orders  []domain.TriggerOrder `json:"orders"`
	Sources domain.SourceReport   `json:"sources"`
}

type MarketChart struct {
	Symbol string              `json:"symbol"`
	Days   int                 `json:"days"`
	Points []domain.PricePoint `json:"points"`
}

// MarketService serves token search, merged token stats and prices. Spot
// prices of known assets are shared across processes through Redis; the rest
// is cached per process.
type MarketService struct {
	tracer    trace.Tracer
	logger    *zap.Logger
	jupiter   JupiterAPI
	birdeye   TokenOverviewProvider
	coingecko PriceProvider
	redis     RedisClient

	searchCache *cache.TTLCache[SearchResult]
	statsCache  *cache.TTLCache[*domain.TokenStats]
	chartCache  *cache.TTLCache[MarketChart]
}

func NewMarketService(
	tracer trace.Tracer,
	logger *zap.Logger,
	jupiter JupiterAPI,
	birdeye TokenOverviewProvider,
	coingecko PriceProvider,
	redisClient RedisClient,
	ttl time.Duration,
) *MarketService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MarketService{
		tracer:      tracer,
		logger:      logger.Named("market"),
		jupiter:     jupiter,
		birdeye:     birdeye,
		coingecko:   coingecko,
		redis:       redisClient,
		searchCache: cache.NewTTLCache[SearchResult](ttl),
		statsCache:  cache.NewTTLCache[*domain.TokenStats](ttl),
		chartCache:  cache.NewTTLCache[MarketChart](cache.SocialTTL),
	}
}

func (s *MarketService) ClearCaches() {
	s.searchCache.Clear()
	s.statsCache.Clear()
	s.chartCache.Clear()
}

// SearchTokens finds tokens by name, symbol or mint through Jupiter.
func (s *MarketService) SearchTokens(ctx context.Context, query string) (SearchResult, error) {
	ctx, span := s.tracer.Start(ctx, "market-service.search-tokens")
	defer span.End()

	query = strings.TrimSpace(query)
	if query == "" {
		return SearchResult{}, fmt.Errorf("%w: query is required", ErrInvalidInput)
	}
	span.SetAttributes(attribute.String("query", query))

	key := cache.Key("search", strings.ToLower(query))
	if cached, ok := s.searchCache.Get(key); ok {
		return cached, nil
	}

	var sources domain.SourceCollector
	tokens, err := s.jupiter.SearchTokens(ctx, query)
	record(&sources, "jupiter", "search", err, len(tokens) == 0)
	if err != nil {
		s.logger.Warn("token search failed", zap.String("query", query), zap.Error(err))
		tokens = nil
	}
	if tokens == nil {
		tokens = []domain.TokenInfo{}
	}

	result := SearchResult{Query: query, Tokens: tokens, Sources: sources.Report()}
	if err == nil {
		s.searchCache.Set(key, result)
	}
	return result, nil
}

// GetTokenStats merges Jupiter and Birdeye views of a mint, Jupiter first.
// It returns ErrTokenNotFound only when every provider answered without data.
func (s *MarketService) GetTokenStats(ctx context.Context, mint string) (*domain.TokenStats, error) {
	ctx, span := s.tracer.Start(ctx, "market-service.get-token-stats")
	defer span.End()
	span.SetAttributes(attribute.String("mint", mint))

	key := cache.Key("stats", mint)
	if cached, ok := s.statsCache.Get(key); ok {
		return cached, nil
	}

	var (
		sources         domain.SourceCollector
		jup, bird       *domain.TokenStats
		jupErr, birdErr error
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		jup, jupErr = s.jupiter.TokenStats(gctx, mint)
		record(&sources, "jupiter", "token_stats", jupErr, jup == nil)
		return nil
	})
	if s.birdeye != nil {
		g.Go(func() error {
			bird, birdErr = s.birdeye.TokenOverview(gctx, mint)
			record(&sources, "birdeye", "token_overview", birdErr, bird == nil)
			return nil
		})
	}
	_ = g.Wait()

	stats := mergeStats(mint, jup, bird)
	stats.Sources = sources.Report()
	if jup == nil && bird == nil {
		if jupErr == nil && (s.birdeye == nil || birdErr == nil) {
			return nil, fmt.Errorf("%w: %s", ErrTokenNotFound, mint)
		}
		// Every provider failed: answer with the sources but do not cache.
		return stats, nil
	}
	if a, ok := domain.AssetByMint(mint); ok && stats.Symbol == "" {
		stats.Symbol = a.Symbol
	}
	s.statsCache.Set(key, stats)
	return stats, nil
}

// mergeStats fills each field from the first provider that has it.
func mergeStats(mint string, views ...*domain.TokenStats) *domain.TokenStats {
	out := &domain.TokenStats{Mint: mint}
	for _, v := range views {
		if v == nil {
			continue
		}
		if out.Symbol == "" {
			out.Symbol = v.Symbol
		}
		if out.Name == "" {
			out.Name = v.Name
		}
		out.PriceUSD = firstFloat(out.PriceUSD, v.PriceUSD)
		out.PriceChange24h = firstFloat(out.PriceChange24h, v.PriceChange24h)
		out.Volume24hUSD = firstFloat(out.Volume24hUSD, v.Volume24hUSD)
		out.BuyVolume24h = firstFloat(out.BuyVolume24h, v.BuyVolume24h)
		out.SellVolume24h = firstFloat(out.SellVolume24h, v.SellVolume24h)
		out.Liquidity = firstFloat(out.Liquidity, v.Liquidity)
		out.MarketCap = firstFloat(out.MarketCap, v.MarketCap)
		out.TotalSupply = firstFloat(out.TotalSupply, v.TotalSupply)
		out.OrganicScore = firstFloat(out.OrganicScore, v.OrganicScore)
		if out.HolderCount == nil {
			out.HolderCount = v.HolderCount
		}
		if out.OrganicLabel == "" {
			out.OrganicLabel = v.OrganicLabel
		}
		if v.UpdatedAt.After(out.UpdatedAt) {
			out.UpdatedAt = v.UpdatedAt
		}
	}
	return out
}

func firstFloat(cur, next *float64) *float64 {
	if cur != nil {
		return cur
	}
	return next
}

// GetCurrentPrice returns the latest cached price for a known asset.
// Falls back to a live CoinGecko call if the cache is empty or expired.
func (s *MarketService) GetCurrentPrice(ctx context.Context, symbol string) (*domain.PriceSnapshot, error) {
	ctx, span := s.tracer.Start(ctx, "market-service.get-current-price")
	defer span.End()

	asset, ok := domain.AssetBySymbol(symbol)
	if !ok {
		return nil, fmt.Errorf("%w: unsupported symbol %s", ErrInvalidInput, symbol)
	}
	symbol = asset.Symbol

	if s.redis != nil {
		cached, err := s.getPriceCache(ctx, symbol)
		if err != nil {
			s.logger.Warn("redis cache read error", zap.Error(err))
		}
		if cached != nil {
			return cached, nil
		}
	}

	prices, err := s.coingecko.FetchPrices(ctx)
	if err != nil {
		return nil, err
	}
	s.cachePrices(ctx, prices)

	snap, ok := prices[symbol]
	if !ok {
		return nil, fmt.Errorf("price not available for %s", symbol)
	}
	return snap, nil
}

// GetSOLPrice is GetCurrentPrice for SOL.
func (s *MarketService) GetSOLPrice(ctx context.Context) (*domain.PriceSnapshot, error) {
	return s.GetCurrentPrice(ctx, "SOL")
}

// GetCurrentPrices returns prices for every known asset, fetching once for
// all cache misses.
func (s *MarketService) GetCurrentPrices(ctx context.Context) ([]*domain.PriceSnapshot, error) {
	ctx, span := s.tracer.Start(ctx, "market-service.get-current-prices")
	defer span.End()

	var snapshots []*domain.PriceSnapshot
	missing := 0
	for _, symbol := range domain.SupportedSymbols() {
		if s.redis != nil {
			cached, _ := s.getPriceCache(ctx, symbol)
			if cached != nil {
				snapshots = append(snapshots, cached)
				continue
			}
		}
		missing++
	}
	if missing == 0 {
		return snapshots, nil
	}

	prices, err := s.coingecko.FetchPrices(ctx)
	if err != nil {
		return snapshots, err
	}
	s.cachePrices(ctx, prices)

	have := make(map[string]struct{}, len(snapshots))
	for _, snap := range snapshots {
		have[snap.Symbol] = struct{}{}
	}
	for _, symbol := range domain.SupportedSymbols() {
		if _, ok := have[symbol]; ok {
			continue
		}
		if snap, ok := prices[symbol]; ok {
			snapshots = append(snapshots, snap)
		}
	}
	return snapshots, nil
}

// RefreshPrices fetches latest prices from CoinGecko and caches them in Redis.
func (s *MarketService) RefreshPrices(ctx context.Context) error {
	ctx, span := s.tracer.Start(ctx, "market-service.refresh-prices")
	defer span.End()

	prices, err := s.coingecko.FetchPrices(ctx)
	if err != nil {
		return err
	}
	s.cachePrices(ctx, prices)
	s.logger.Info("refreshed prices", zap.Int("assets", len(prices)))
	return nil
}

// PricesForMints prices arbitrary mints through Jupiter, then CoinGecko for
// whatever Jupiter could not price.
func (s *MarketService) PricesForMints(ctx context.Context, mints []string) (map[string]float64, domain.SourceReport) {
	ctx, span := s.tracer.Start(ctx, "market-service.prices-for-mints")
	defer span.End()
	span.SetAttributes(attribute.Int("mints", len(mints)))

	var sources domain.SourceCollector
	prices := make(map[string]float64, len(mints))
	if len(mints) == 0 {
		return prices, sources.Report()
	}

	jup, err := s.jupiter.GetPrices(ctx, mints)
	record(&sources, "jupiter", "prices", err, len(jup) == 0)
	for mint, p := range jup {
		if p > 0 {
			prices[mint] = p
		}
	}

	var missing []string
	for _, mint := range mints {
		if _, ok := prices[mint]; !ok {
			missing = append(missing, mint)
		}
	}
	if len(missing) > 0 && s.coingecko != nil {
		cg, err := s.coingecko.FetchTokenPrices(ctx, missing)
		record(&sources, "coingecko", "token_prices", err, len(cg) == 0)
		for mint, p := range cg {
			prices[mint] = p
		}
	}
	return prices, sources.Report()
}

// GetMarketChart returns the USD price series of a known asset.
func (s *MarketService) GetMarketChart(ctx context.Context, symbol string, days int) (MarketChart, error) {
	ctx, span := s.tracer.Start(ctx, "market-service.get-market-chart")
	defer span.End()

	asset, ok := domain.AssetBySymbol(symbol)
	if !ok {
		return MarketChart{}, fmt.Errorf("%w: unsupported symbol %s", ErrInvalidInput, symbol)
	}
	if days <= 0 || days > 365 {
		return MarketChart{}, fmt.Errorf("%w: days must be between 1 and 365", ErrInvalidInput)
	}

	key := cache.Key("chart", asset.Symbol, strconv.Itoa(days))
	return cache.Remember(ctx, s.chartCache, key, func(ctx context.Context) (MarketChart, error) {
		points, err := s.coingecko.FetchMarketChart(ctx, asset.Symbol, days)
		if err != nil {
			return MarketChart{}, err
		}
		return MarketChart{Symbol: asset.Symbol, Days: days, Points: points}, nil
	})
}

// GetTriggerOrders lists a wallet's open Jupiter limit orders.
func (s *MarketService) GetTriggerOrders(ctx context.Context, wallet string) (OrdersResult, error) {
	ctx, span := s.tracer.Start(ctx, "market-service.get-trigger-orders")
	defer span.End()

	if err := ValidateAddress(wallet); err != nil {
		return OrdersResult{}, err
	}

	var sources domain.SourceCollector
	orders, err := s.jupiter.GetTriggerOrders(ctx, wallet)
	record(&sources, "jupiter", "trigger_orders", err, len(orders) == 0)
	if err != nil || orders == nil {
		orders = []domain.TriggerOrder{}
	}
	return OrdersResult{Wallet: wallet, Orders: orders, Sources: sources.Report()}, nil
}

func (s *MarketService) cachePrices(ctx context.Context, prices map[string]*domain.PriceSnapshot) {
	if s.redis == nil {
		return
	}
	for _, snap := range prices {
		if err := s.setPriceCache(ctx, snap); err != nil {
			s.logger.Warn("redis cache write error", zap.String("symbol", snap.Symbol), zap.Error(err))
		}
	}
}

func (s *MarketService) setPriceCache(ctx context.Context, snapshot *domain.PriceSnapshot) error {
	data, err := json.Marshal(snapshot)
	if err != nil {
		return err
	}
	return s.redis.Set(ctx, "price:"+snapshot.Symbol, data, priceCacheTTL).Err()
}

func (s *MarketService) getPriceCache(ctx context.Context, symbol string) (*domain.PriceSnapshot, error) {
	data, err := s.redis.Get(ctx, "price:"+symbol).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var snapshot domain.PriceSnapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return nil, err
	}
	return &snapshot, nil
}
