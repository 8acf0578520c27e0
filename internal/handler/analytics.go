package handler

import (
	"math"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
)

// TradeSummary godoc
// @Summary      Trade summary
// @Description  Buy and sell volume, unique traders and net flow over a window
// @Tags         analytics
// @Produce      json
// @Param        mint    path   string  true   "Token mint"
// @Param        window  query  string  false  "1h, 6h, 24h, 7d or 30d"  default(24h)
// @Success      200  {object}  service.TradeSummaryResult
// @Failure      400  {object}  map[string]string
// @Router       /api/analytics/{mint}/summary [get]
func (h *Handler) TradeSummary(c *gin.Context) {
	if h.analytics == nil {
		unavailable(c, "analytics service")
		return
	}
	ctx, span := h.tracer.Start(c.Request.Context(), "handler.trade-summary")
	defer span.End()
	span.SetAttributes(attribute.String("mint", c.Param("mint")))

	res, err := h.analytics.TradeSummary(ctx, c.Param("mint"), c.Query("window"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// HolderMovement godoc
// @Summary      Holder movement
// @Description  Accumulating, distributing and neutral wallets over a window
// @Tags         analytics
// @Produce      json
// @Param        mint    path   string  true   "Token mint"
// @Param        window  query  string  false  "1h, 6h, 24h, 7d or 30d"  default(24h)
// @Success      200  {object}  domain.HolderMovement
// @Failure      400  {object}  map[string]string
// @Router       /api/analytics/{mint}/holder-movement [get]
func (h *Handler) HolderMovement(c *gin.Context) {
	if h.analytics == nil {
		unavailable(c, "analytics service")
		return
	}
	ctx, span := h.tracer.Start(c.Request.Context(), "handler.holder-movement")
	defer span.End()

	res, err := h.analytics.HolderMovement(ctx, c.Param("mint"), c.Query("window"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// TokenFlows godoc
// @Summary      Token flows
// @Description  Inflow and outflow per time bucket with a per-protocol breakdown
// @Tags         analytics
// @Produce      json
// @Param        mint    path   string  true   "Token mint"
// @Param        window  query  string  false  "1h, 6h, 24h, 7d or 30d"  default(24h)
// @Param        bucket  query  string  false  "5m, 15m, 1h, 4h or 1d"    default(1h)
// @Success      200  {object}  domain.FlowAnalysis
// @Failure      400  {object}  map[string]string
// @Router       /api/analytics/{mint}/flows [get]
func (h *Handler) TokenFlows(c *gin.Context) {
	if h.analytics == nil {
		unavailable(c, "analytics service")
		return
	}
	ctx, span := h.tracer.Start(c.Request.Context(), "handler.token-flows")
	defer span.End()

	res, err := h.analytics.TokenFlows(ctx, c.Param("mint"), c.Query("window"), c.Query("bucket"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// Whales godoc
// @Summary      Whale activity
// @Description  Wallets whose single trades met the USD threshold
// @Tags         analytics
// @Produce      json
// @Param        mint       path   string   true   "Token mint"
// @Param        window     query  string   false  "1h, 6h, 24h, 7d or 30d"  default(24h)
// @Param        threshold  query  number   false  "Minimum trade size in USD"
// @Success      200  {object}  domain.WhaleReport
// @Failure      400  {object}  map[string]string
// @Router       /api/analytics/{mint}/whales [get]
func (h *Handler) Whales(c *gin.Context) {
	if h.analytics == nil {
		unavailable(c, "analytics service")
		return
	}
	ctx, span := h.tracer.Start(c.Request.Context(), "handler.whales")
	defer span.End()

	var threshold float64
	if raw := c.Query("threshold"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil || v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "threshold must be a finite non-negative number"})
			return
		}
		threshold = v
	}

	res, err := h.analytics.Whales(ctx, c.Param("mint"), c.Query("window"), threshold)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// HolderDistribution godoc
// @Summary      Holder distribution
// @Description  Top holders bucketed into whale, shark, dolphin and fish tiers
// @Tags         analytics
// @Produce      json
// @Param        mint  path  string  true  "Token mint"
// @Success      200  {object}  domain.HolderDistribution
// @Failure      400  {object}  map[string]string
// @Router       /api/analytics/{mint}/holders [get]
func (h *Handler) HolderDistribution(c *gin.Context) {
	if h.analytics == nil {
		unavailable(c, "analytics service")
		return
	}
	ctx, span := h.tracer.Start(c.Request.Context(), "handler.holder-distribution")
	defer span.End()

	res, err := h.analytics.HolderDistribution(ctx, c.Param("mint"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}
