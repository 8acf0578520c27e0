package handler

import (
	"net/http"
	"strconv"
	"time"

	"solfolio/internal/domain"

	"github.com/gin-gonic/gin"
)

// GetPortfolio godoc
// @Summary      Get portfolio
// @Description  Returns stored holdings across all wallets with allocation percentages
// @Tags         portfolio
// @Produce      json
// @Param        X-User-ID  header  string  true  "User UUID"
// @Success      200  {object}  service.PortfolioView
// @Router       /api/portfolio [get]
func (h *Handler) GetPortfolio(c *gin.Context) {
	if h.portfolio == nil {
		unavailable(c, "portfolio service")
		return
	}
	ctx, span := h.tracer.Start(c.Request.Context(), "handler.get-portfolio")
	defer span.End()

	view, err := h.portfolio.GetPortfolio(ctx, currentUser(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// RefreshPortfolio godoc
// @Summary      Refresh portfolio
// @Description  Refetches balances and prices for every wallet and replaces the stored holdings
// @Tags         portfolio
// @Produce      json
// @Param        X-User-ID  header  string  true  "User UUID"
// @Success      200  {object}  service.PortfolioView
// @Router       /api/portfolio/refresh [post]
func (h *Handler) RefreshPortfolio(c *gin.Context) {
	if h.portfolio == nil {
		unavailable(c, "portfolio service")
		return
	}
	ctx, span := h.tracer.Start(c.Request.Context(), "handler.refresh-portfolio")
	defer span.End()

	view, err := h.portfolio.RefreshPortfolio(ctx, currentUser(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// GetPortfolioStats godoc
// @Summary      Portfolio statistics
// @Tags         portfolio
// @Produce      json
// @Param        X-User-ID  header  string  true  "User UUID"
// @Success      200  {object}  domain.PortfolioStats
// @Router       /api/portfolio/stats [get]
func (h *Handler) GetPortfolioStats(c *gin.Context) {
	if h.portfolio == nil {
		unavailable(c, "portfolio service")
		return
	}
	ctx, span := h.tracer.Start(c.Request.Context(), "handler.get-portfolio-stats")
	defer span.End()

	stats, err := h.portfolio.GetStats(ctx, currentUser(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// GetPortfolioHistory godoc
// @Summary      Portfolio value history
// @Tags         portfolio
// @Produce      json
// @Param        X-User-ID  header  string  true   "User UUID"
// @Param        days       query   int     false  "Lookback in days (default 30, max 365)"  default(30)
// @Success      200  {object}  map[string]interface{}
// @Router       /api/portfolio/history [get]
func (h *Handler) GetPortfolioHistory(c *gin.Context) {
	if h.portfolio == nil {
		unavailable(c, "portfolio service")
		return
	}
	ctx, span := h.tracer.Start(c.Request.Context(), "handler.get-portfolio-history")
	defer span.End()

	days := 30
	if d := c.Query("days"); d != "" {
		if n, err := strconv.Atoi(d); err == nil && n > 0 && n <= 365 {
			days = n
		}
	}
	history, err := h.portfolio.GetHistory(ctx, currentUser(c), time.Duration(days)*24*time.Hour)
	if err != nil {
		h.respondError(c, err)
		return
	}
	if history == nil {
		history = []domain.PortfolioSnapshot{}
	}
	c.JSON(http.StatusOK, gin.H{"days": days, "snapshots": history})
}
