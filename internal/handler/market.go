package handler

import (
	"net/http"
	"strconv"
	"strings"

	"solfolio/internal/domain"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
)

// SearchTokens godoc
// @Summary      Search tokens
// @Description  Finds tokens by name, symbol or mint through Jupiter
// @Tags         tokens
// @Produce      json
// @Param        q  query  string  true  "Search query"
// @Success      200  {object}  service.SearchResult
// @Failure      400  {object}  map[string]string
// @Router       /api/tokens/search [get]
func (h *Handler) SearchTokens(c *gin.Context) {
	if h.market == nil {
		unavailable(c, "market service")
		return
	}
	ctx, span := h.tracer.Start(c.Request.Context(), "handler.search-tokens")
	defer span.End()

	res, err := h.market.SearchTokens(ctx, c.Query("q"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// GetToken godoc
// @Summary      Token stats
// @Description  Merged Jupiter and Birdeye market stats for a mint
// @Tags         tokens
// @Produce      json
// @Param        mint  path  string  true  "Token mint"
// @Success      200  {object}  domain.TokenStats
// @Failure      404  {object}  map[string]string
// @Router       /api/tokens/{mint} [get]
func (h *Handler) GetToken(c *gin.Context) {
	if h.market == nil {
		unavailable(c, "market service")
		return
	}
	ctx, span := h.tracer.Start(c.Request.Context(), "handler.get-token")
	defer span.End()

	mint := strings.TrimSpace(c.Param("mint"))
	span.SetAttributes(attribute.String("mint", mint))

	stats, err := h.market.GetTokenStats(ctx, mint)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// GetPrice godoc
// @Summary      Get current price for a known asset
// @Description  Returns the latest cached price, 24h volume, and 24h change
// @Tags         prices
// @Produce      json
// @Param        symbol  path  string  true  "Asset symbol (e.g., SOL, JUP)"
// @Success      200  {object}  domain.PriceSnapshot
// @Failure      400  {object}  map[string]string
// @Router       /api/prices/{symbol} [get]
func (h *Handler) GetPrice(c *gin.Context) {
	if h.market == nil {
		unavailable(c, "market service")
		return
	}
	ctx, span := h.tracer.Start(c.Request.Context(), "handler.get-price")
	defer span.End()

	symbol := strings.ToUpper(c.Param("symbol"))
	span.SetAttributes(attribute.String("symbol", symbol))

	if _, ok := domain.AssetBySymbol(symbol); !ok {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":             "unsupported symbol: " + symbol,
			"supported_symbols": domain.SupportedSymbols(),
		})
		return
	}

	snapshot, err := h.market.GetCurrentPrice(ctx, symbol)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, snapshot)
}

// GetAllPrices godoc
// @Summary      Get current prices for all known assets
// @Tags         prices
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Router       /api/prices [get]
func (h *Handler) GetAllPrices(c *gin.Context) {
	if h.market == nil {
		unavailable(c, "market service")
		return
	}
	ctx, span := h.tracer.Start(c.Request.Context(), "handler.get-all-prices")
	defer span.End()

	snapshots, err := h.market.GetCurrentPrices(ctx)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"prices": snapshots})
}

// GetMarketChart godoc
// @Summary      Price history
// @Tags         prices
// @Produce      json
// @Param        symbol  path   string  true   "Asset symbol"
// @Param        days    query  int     false  "Days of history (1-365)"  default(7)
// @Success      200  {object}  service.MarketChart
// @Failure      400  {object}  map[string]string
// @Router       /api/prices/{symbol}/chart [get]
func (h *Handler) GetMarketChart(c *gin.Context) {
	if h.market == nil {
		unavailable(c, "market service")
		return
	}
	ctx, span := h.tracer.Start(c.Request.Context(), "handler.get-market-chart")
	defer span.End()

	days, err := strconv.Atoi(c.DefaultQuery("days", "7"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "days must be an integer"})
		return
	}
	chart, err := h.market.GetMarketChart(ctx, c.Param("symbol"), days)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, chart)
}

// GetOrders godoc
// @Summary      Open limit orders
// @Description  Lists a wallet's active Jupiter trigger orders
// @Tags         orders
// @Produce      json
// @Param        wallet  path  string  true  "Wallet address"
// @Success      200  {object}  service.OrdersResult
// @Failure      400  {object}  map[string]string
// @Router       /api/orders/{wallet} [get]
func (h *Handler) GetOrders(c *gin.Context) {
	if h.market == nil {
		unavailable(c, "market service")
		return
	}
	ctx, span := h.tracer.Start(c.Request.Context(), "handler.get-orders")
	defer span.End()

	res, err := h.market.GetTriggerOrders(ctx, c.Param("wallet"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}
