package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// GetSocial godoc
// @Summary      Social metrics
// @Description  LunarCrush coin metrics merged with Santiment social volume
// @Tags         insights
// @Produce      json
// @Param        symbol  path   string  true   "Token symbol"
// @Param        slug    query  string  false  "Santiment slug (defaults to the CoinGecko id of known assets)"
// @Success      200  {object}  domain.SocialMetrics
// @Router       /api/social/{symbol} [get]
func (h *Handler) GetSocial(c *gin.Context) {
	if h.social == nil {
		unavailable(c, "social service")
		return
	}
	ctx, span := h.tracer.Start(c.Request.Context(), "handler.get-social")
	defer span.End()

	res, err := h.social.GetSocial(ctx, c.Param("symbol"), c.Query("slug"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// GetRisk godoc
// @Summary      Risk assessment
// @Description  Weighted risk score from liquidity, concentration, volatility, flow, organic and social data
// @Tags         insights
// @Produce      json
// @Param        mint  path  string  true  "Token mint"
// @Success      200  {object}  domain.RiskAssessment
// @Failure      400  {object}  map[string]string
// @Router       /api/risk/{mint} [get]
func (h *Handler) GetRisk(c *gin.Context) {
	if h.risk == nil {
		unavailable(c, "risk service")
		return
	}
	ctx, span := h.tracer.Start(c.Request.Context(), "handler.get-risk")
	defer span.End()

	res, err := h.risk.Assess(ctx, c.Param("mint"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}
