package handler

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ServeWS godoc
// @Summary      Change stream
// @Description  WebSocket streaming wallet and portfolio events of the user
// @Tags         realtime
// @Param        X-User-ID  header  string  false  "User UUID"
// @Param        user_id    query   string  false  "User UUID when headers cannot be set"
// @Success      101
// @Failure      401  {object}  map[string]string
// @Router       /ws [get]
func (h *Handler) ServeWS(c *gin.Context) {
	if h.events == nil {
		unavailable(c, "event stream")
		return
	}
	if err := h.events.ServeWS(c.Writer, c.Request, currentUser(c)); err != nil {
		// The upgrader has already written the failure response.
		h.logger.Debug("websocket upgrade failed", zap.Error(err))
	}
}
