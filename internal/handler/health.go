package handler

import (
	"net/http"

	"solfolio/internal/service"

	"github.com/gin-gonic/gin"
)

// Health godoc
// @Summary      Health check
// @Description  Returns the health status of the service
// @Tags         health
// @Produce      json
// @Success      200  {object}  map[string]string
// @Router       /health [get]
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

// KeyStatus godoc
// @Summary      Provider API key status
// @Description  Reports configured, missing_key or keyless for every data provider
// @Tags         admin
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Router       /api/keys/status [get]
func (h *Handler) KeyStatus(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"providers": service.KeyStatus(h.providers...)})
}

// ClearCache godoc
// @Summary      Clear in-process caches
// @Description  Empties every service TTL cache; Redis price entries expire on their own
// @Tags         admin
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Router       /api/cache/clear [post]
func (h *Handler) ClearCache(c *gin.Context) {
	n := service.ClearCaches(h.caches...)
	c.JSON(http.StatusOK, gin.H{"status": "cleared", "caches": n})
}
