package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"solfolio/internal/bot"
	"solfolio/internal/cache"
	"solfolio/internal/config"
	"solfolio/internal/db"
	"solfolio/internal/handler"
	"solfolio/internal/job"
	"solfolio/internal/provider"
	"solfolio/internal/realtime"
	"solfolio/internal/repository"
	"solfolio/internal/risk"
	"solfolio/internal/service"
	"solfolio/pkg/logging"
	"solfolio/pkg/tracing"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	tele "gopkg.in/telebot.v3"

	_ "solfolio/docs"
)

const hubBufferSize = 32

var (
	loadEnvFunc            = godotenv.Load
	loadConfigFunc         = config.Load
	newLoggerFunc          = logging.Must
	initPostgresFunc       = db.InitPostgres
	closePostgresFunc      = db.Close
	initRedisFunc          = cache.InitRedis
	initTracerFunc         = tracing.InitTracer
	newProvidersFunc       = newProviders
	newNarratorFunc        = newNarrator
	startPollerFunc        = func(p *job.PricePoller, ctx context.Context) { go p.Start(ctx) }
	startSnapshotJobFunc   = func(j *job.SnapshotJob, ctx context.Context) { go j.Start(ctx) }
	startTelegramBotFunc   = bot.StartTelegramBot
	newRouterFunc          = gin.Default
	setupSignalNotify      = signal.Notify
	waitForSignalFunc      = func(quit <-chan os.Signal) { <-quit }
	startHTTPServerFunc    = func(srv *http.Server) error { return srv.ListenAndServe() }
	shutdownHTTPServerFunc = func(srv *http.Server, ctx context.Context) error { return srv.Shutdown(ctx) }
)

type providers struct {
	jupiter    *provider.JupiterProvider
	bitquery   *provider.BitQueryProvider
	birdeye    *provider.BirdeyeProvider
	helius     *provider.HeliusProvider
	coingecko  *provider.CoinGeckoProvider
	santiment  *provider.SantimentProvider
	lunarcrush *provider.LunarCrushProvider
	solscan    *provider.SolscanProvider
}

func (p providers) keyed() []service.KeyedProvider {
	return []service.KeyedProvider{
		p.jupiter, p.bitquery, p.birdeye, p.helius,
		p.coingecko, p.santiment, p.lunarcrush, p.solscan,
	}
}

func newProviders(tracer trace.Tracer, logger *zap.Logger, keys config.ProviderKeys) providers {
	opts := func(key string) provider.Options {
		return provider.Options{APIKey: key, Logger: logger}
	}
	return providers{
		jupiter:    provider.NewJupiterProvider(tracer, opts(keys.Jupiter)),
		bitquery:   provider.NewBitQueryProvider(tracer, opts(keys.BitQuery)),
		birdeye:    provider.NewBirdeyeProvider(tracer, opts(keys.Birdeye)),
		helius:     provider.NewHeliusProvider(tracer, opts(keys.Helius)),
		coingecko:  provider.NewCoinGeckoProvider(tracer, opts(keys.CoinGecko)),
		santiment:  provider.NewSantimentProvider(tracer, opts(keys.Santiment)),
		lunarcrush: provider.NewLunarCrushProvider(tracer, opts(keys.LunarCrush)),
		solscan:    provider.NewSolscanProvider(tracer, opts(keys.Solscan)),
	}
}

// newNarrator keeps the interface nil when no OpenAI key is set so the
// heuristic narrative is used.
func newNarrator(tracer trace.Tracer, apiKey, model string) risk.Narrator {
	if n := risk.NewOpenAINarrator(tracer, apiKey, model); n != nil {
		return n
	}
	return nil
}

// @title           Solfolio API
// @version         1.0
// @description     Solana portfolio tracking and token analytics.

// @host      localhost:8080
// @BasePath  /

// @securityDefinitions.apikey  ApiKeyAuth
// @in                          header
// @name                        X-API-Key
func main() {
	loadEnvFunc()

	cfg := loadConfigFunc()

	logger := newLoggerFunc(cfg.LogLevel, cfg.LogFormat)
	defer func() { _ = logger.Sync() }()
	restoreGlobals := zap.ReplaceGlobals(logger)
	defer restoreGlobals()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Init Postgres and Redis
	os.Setenv("DATABASE_URL", cfg.DatabaseURL)
	os.Setenv("REDIS_URL", cfg.RedisURL)
	initPostgresFunc(ctx)
	defer closePostgresFunc()
	initRedisFunc(ctx)

	// Init tracing
	tp, tracer, err := initTracerFunc(ctx)
	if err != nil {
		logger.Fatal("failed to initialize tracer", zap.Error(err))
	}
	defer func() {
		if err := tp.Shutdown(context.Background()); err != nil {
			logger.Error("error shutting down tracer provider", zap.Error(err))
		}
	}()

	p := newProvidersFunc(tracer, logger, cfg.Keys)

	var redisClient service.RedisClient
	if cache.Client != nil {
		redisClient = cache.Client
	}
	cacheTTL := time.Duration(cfg.CacheTTLSecs) * time.Second

	marketService := service.NewMarketService(tracer, logger, p.jupiter, p.birdeye, p.coingecko, redisClient, cacheTTL)
	socialService := service.NewSocialService(tracer, logger, p.lunarcrush, p.santiment, time.Duration(cfg.SocialCacheTTLSecs)*time.Second)

	hub := realtime.NewHub(logger, hubBufferSize)

	// Repositories need Postgres; without it the portfolio routes answer 503
	// and analytics runs on live provider data only.
	var (
		activityStore    service.ActivityStore
		portfolioService *service.PortfolioService
	)
	if db.Pool != nil {
		activityStore = repository.NewTokenActivityRepository(db.Pool, tracer)
		portfolioService = service.NewPortfolioService(
			tracer, logger,
			repository.NewWalletRepository(db.Pool, tracer),
			repository.NewPortfolioRepository(db.Pool, tracer),
			p.helius, marketService, hub,
		)
	}
	analyticsService := service.NewAnalyticsService(
		tracer, logger, p.bitquery, p.solscan, p.birdeye, activityStore, cacheTTL, cfg.WhaleThresholdUSD,
	)
	riskService := service.NewRiskService(
		tracer, logger, marketService, analyticsService, socialService,
		newNarratorFunc(tracer, cfg.OpenAIAPIKey, cfg.OpenAIModel),
	)

	// Background jobs, stopped by ctx cancel
	poller := job.NewPricePoller(tracer, logger, marketService, analyticsService, cfg.TrackedMints, cfg.PricePollSecs)
	startPollerFunc(poller, ctx)

	var snapshotTaker job.SnapshotTaker
	if portfolioService != nil {
		snapshotTaker = portfolioService
	}
	snapshots := job.NewSnapshotJob(tracer, logger, snapshotTaker, time.Duration(cfg.SnapshotPollMins)*time.Minute)
	startSnapshotJobFunc(snapshots, ctx)

	// Start Telegram bot
	telegram, err := startTelegramBotFunc(cfg.TelegramBotToken, logger, &bot.Commands{
		Prices: marketService,
		Tokens: marketService,
		Risks:  riskService,
	})
	if err != nil {
		logger.Error("telegram bot disabled", zap.Error(err))
	}

	deps := handler.Deps{
		Market:    marketService,
		Analytics: analyticsService,
		Social:    socialService,
		Risk:      riskService,
		Events:    hub,
		Providers: p.keyed(),
		Caches:    []service.CacheClearer{marketService, analyticsService, socialService, riskService},
	}
	if portfolioService != nil {
		deps.Portfolio = portfolioService
	}
	h := handler.New(tracer, logger, deps)

	r := newRouterFunc()
	r.Use(otelgin.Middleware(tracing.ServiceName()))

	h.RegisterRoutes(r, cfg.APIAuthKey)
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	srv := &http.Server{
		Addr:    ":" + strconv.Itoa(cfg.HTTPPort),
		Handler: r,
	}

	go func() {
		logger.Info("listening", zap.String("addr", srv.Addr))
		if err := startHTTPServerFunc(srv); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("listen failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	setupSignalNotify(quit, syscall.SIGINT, syscall.SIGTERM)
	waitForSignalFunc(quit)
	logger.Info("shutting down server")

	cancel()
	stopBot(telegram)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := shutdownHTTPServerFunc(srv, shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", zap.Error(err))
	}

	logger.Info("server exiting")
}

func stopBot(b *tele.Bot) {
	if b != nil {
		b.Stop()
	}
}
