package handler

import (
	"context"
	"net/http"
	"time"

	"solfolio/internal/domain"
	"solfolio/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type PortfolioAPI interface {
	ListWallets(ctx context.Context, userID uuid.UUID) ([]domain.Wallet, error)
	AddWallet(ctx context.Context, userID uuid.UUID, address, name string) (domain.Wallet, error)
	DeleteWallet(ctx context.Context, userID, walletID uuid.UUID) error
	SetPrimaryWallet(ctx context.Context, userID, walletID uuid.UUID) (domain.Wallet, error)
	WalletActivity(ctx context.Context, userID, walletID uuid.UUID, limit int) (service.WalletActivity, error)
	GetPortfolio(ctx context.Context, userID uuid.UUID) (service.PortfolioView, error)
	RefreshPortfolio(ctx context.Context, userID uuid.UUID) (service.PortfolioView, error)
	GetStats(ctx context.Context, userID uuid.UUID) (domain.PortfolioStats, error)
	GetHistory(ctx context.Context, userID uuid.UUID, lookback time.Duration) ([]domain.PortfolioSnapshot, error)
}

type MarketAPI interface {
	SearchTokens(ctx context.Context, query string) (service.SearchResult, error)
	GetTokenStats(ctx context.Context, mint string) (*domain.TokenStats, error)
	GetCurrentPrice(ctx context.Context, symbol string) (*domain.PriceSnapshot, error)
	GetCurrentPrices(ctx context.Context) ([]*domain.PriceSnapshot, error)
	GetMarketChart(ctx context.Context, symbol string, days int) (service.MarketChart, error)
	GetTriggerOrders(ctx context.Context, wallet string) (service.OrdersResult, error)
}

type AnalyticsAPI interface {
	TradeSummary(ctx context.Context, mint, window string) (service.TradeSummaryResult, error)
	HolderMovement(ctx context.Context, mint, window string) (domain.HolderMovement, error)
	TokenFlows(ctx context.Context, mint, window, bucket string) (domain.FlowAnalysis, error)
	Whales(ctx context.Context, mint, window string, threshold float64) (domain.WhaleReport, error)
	HolderDistribution(ctx context.Context, mint string) (domain.HolderDistribution, error)
}

type SocialAPI interface {
	GetSocial(ctx context.Context, symbol, slug string) (*domain.SocialMetrics, error)
}

type RiskAPI interface {
	Assess(ctx context.Context, mint string) (domain.RiskAssessment, error)
}

// EventStream upgrades a request to a per-user event stream.
type EventStream interface {
	ServeWS(w http.ResponseWriter, r *http.Request, userID uuid.UUID) error
}

// Deps are the services behind the API. A nil dependency makes its routes
// answer 503.
type Deps struct {
	Portfolio PortfolioAPI
	Market    MarketAPI
	Analytics AnalyticsAPI
	Social    SocialAPI
	Risk      RiskAPI
	Events    EventStream
	Providers []service.KeyedProvider
	Caches    []service.CacheClearer
}

type Handler struct {
	tracer    trace.Tracer
	logger    *zap.Logger
	portfolio PortfolioAPI
	market    MarketAPI
	analytics AnalyticsAPI
	social    SocialAPI
	risk      RiskAPI
	events    EventStream
	providers []service.KeyedProvider
	caches    []service.CacheClearer
}

func New(tracer trace.Tracer, logger *zap.Logger, deps Deps) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		tracer:    tracer,
		logger:    logger.Named("http"),
		portfolio: deps.Portfolio,
		market:    deps.Market,
		analytics: deps.Analytics,
		social:    deps.Social,
		risk:      deps.Risk,
		events:    deps.Events,
		providers: deps.Providers,
		caches:    deps.Caches,
	}
}

// RegisterRoutes mounts every route. /health stays open; the rest sits
// behind APIKeyAuth, and user-owned routes also need X-User-ID.
func (h *Handler) RegisterRoutes(r *gin.Engine, apiKey string) {
	r.GET("/health", h.Health)

	api := r.Group("/api", APIKeyAuth(apiKey))
	api.GET("/keys/status", h.KeyStatus)
	api.POST("/cache/clear", h.ClearCache)

	api.GET("/tokens/search", h.SearchTokens)
	api.GET("/tokens/:mint", h.GetToken)
	api.GET("/prices", h.GetAllPrices)
	api.GET("/prices/:symbol", h.GetPrice)
	api.GET("/prices/:symbol/chart", h.GetMarketChart)
	api.GET("/orders/:wallet", h.GetOrders)

	analytics := api.Group("/analytics/:mint")
	analytics.GET("/summary", h.TradeSummary)
	analytics.GET("/holder-movement", h.HolderMovement)
	analytics.GET("/flows", h.TokenFlows)
	analytics.GET("/whales", h.Whales)
	analytics.GET("/holders", h.HolderDistribution)

	api.GET("/social/:symbol", h.GetSocial)
	api.GET("/risk/:mint", h.GetRisk)

	user := api.Group("", RequireUser())
	user.GET("/wallets", h.ListWallets)
	user.POST("/wallets", h.CreateWallet)
	user.DELETE("/wallets/:id", h.DeleteWallet)
	user.PUT("/wallets/:id/primary", h.SetPrimaryWallet)
	user.GET("/wallets/:id/activity", h.WalletActivity)
	user.GET("/portfolio", h.GetPortfolio)
	user.POST("/portfolio/refresh", h.RefreshPortfolio)
	user.GET("/portfolio/stats", h.GetPortfolioStats)
	user.GET("/portfolio/history", h.GetPortfolioHistory)

	r.GET("/ws", APIKeyAuth(apiKey), RequireUser(), h.ServeWS)
}
