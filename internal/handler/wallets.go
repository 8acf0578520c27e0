package handler

import (
	"net/http"
	"strconv"

	"solfolio/internal/domain"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
)

type createWalletRequest struct {
	Address string `json:"address" binding:"required"`
	Name    string `json:"name"`
}

func walletParam(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "wallet id must be a UUID"})
		return uuid.Nil, false
	}
	return id, true
}

// ListWallets godoc
// @Summary      List wallets
// @Description  Returns the user's wallets, primary first
// @Tags         wallets
// @Produce      json
// @Param        X-User-ID  header  string  true  "User UUID"
// @Success      200  {object}  map[string]interface{}
// @Failure      401  {object}  map[string]string
// @Router       /api/wallets [get]
func (h *Handler) ListWallets(c *gin.Context) {
	if h.portfolio == nil {
		unavailable(c, "portfolio service")
		return
	}
	ctx, span := h.tracer.Start(c.Request.Context(), "handler.list-wallets")
	defer span.End()

	wallets, err := h.portfolio.ListWallets(ctx, currentUser(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	if wallets == nil {
		wallets = []domain.Wallet{}
	}
	c.JSON(http.StatusOK, gin.H{"wallets": wallets})
}

// CreateWallet godoc
// @Summary      Add a wallet
// @Description  Validates the Solana address and stores it; the first wallet becomes primary
// @Tags         wallets
// @Accept       json
// @Produce      json
// @Param        X-User-ID  header  string               true  "User UUID"
// @Param        body       body    createWalletRequest  true  "Wallet"
// @Success      201  {object}  domain.Wallet
// @Failure      400  {object}  map[string]string
// @Failure      409  {object}  map[string]string
// @Router       /api/wallets [post]
func (h *Handler) CreateWallet(c *gin.Context) {
	if h.portfolio == nil {
		unavailable(c, "portfolio service")
		return
	}
	ctx, span := h.tracer.Start(c.Request.Context(), "handler.create-wallet")
	defer span.End()

	var req createWalletRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "address is required"})
		return
	}
	span.SetAttributes(attribute.String("address", req.Address))

	w, err := h.portfolio.AddWallet(ctx, currentUser(c), req.Address, req.Name)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, w)
}

// DeleteWallet godoc
// @Summary      Delete a wallet
// @Description  Removes the wallet and its holdings; another wallet is promoted if it was primary
// @Tags         wallets
// @Param        X-User-ID  header  string  true  "User UUID"
// @Param        id         path    string  true  "Wallet UUID"
// @Success      204
// @Failure      404  {object}  map[string]string
// @Router       /api/wallets/{id} [delete]
func (h *Handler) DeleteWallet(c *gin.Context) {
	if h.portfolio == nil {
		unavailable(c, "portfolio service")
		return
	}
	ctx, span := h.tracer.Start(c.Request.Context(), "handler.delete-wallet")
	defer span.End()

	id, ok := walletParam(c)
	if !ok {
		return
	}
	if err := h.portfolio.DeleteWallet(ctx, currentUser(c), id); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// SetPrimaryWallet godoc
// @Summary      Make a wallet primary
// @Tags         wallets
// @Produce      json
// @Param        X-User-ID  header  string  true  "User UUID"
// @Param        id         path    string  true  "Wallet UUID"
// @Success      200  {object}  domain.Wallet
// @Failure      404  {object}  map[string]string
// @Router       /api/wallets/{id}/primary [put]
func (h *Handler) SetPrimaryWallet(c *gin.Context) {
	if h.portfolio == nil {
		unavailable(c, "portfolio service")
		return
	}
	ctx, span := h.tracer.Start(c.Request.Context(), "handler.set-primary-wallet")
	defer span.End()

	id, ok := walletParam(c)
	if !ok {
		return
	}
	w, err := h.portfolio.SetPrimaryWallet(ctx, currentUser(c), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, w)
}

// WalletActivity godoc
// @Summary      Recent wallet transfers
// @Tags         wallets
// @Produce      json
// @Param        X-User-ID  header  string  true   "User UUID"
// @Param        id         path    string  true   "Wallet UUID"
// @Param        limit      query   int     false  "Max transfers (default 50, max 100)"  default(50)
// @Success      200  {object}  service.WalletActivity
// @Failure      404  {object}  map[string]string
// @Router       /api/wallets/{id}/activity [get]
func (h *Handler) WalletActivity(c *gin.Context) {
	if h.portfolio == nil {
		unavailable(c, "portfolio service")
		return
	}
	ctx, span := h.tracer.Start(c.Request.Context(), "handler.wallet-activity")
	defer span.End()

	id, ok := walletParam(c)
	if !ok {
		return
	}
	limit := 50
	if l := c.Query("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil && n > 0 && n <= 100 {
			limit = n
		}
	}
	act, err := h.portfolio.WalletActivity(ctx, currentUser(c), id, limit)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, act)
}
