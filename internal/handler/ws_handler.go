package handler

import (
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/parkwise/service-parking/internal/realtime"
)

// WSHandler upgrades availability stream connections.
type WSHandler struct {
	hub    *realtime.Hub
	logger *zap.Logger
}

// NewWSHandler creates a new WSHandler.
func NewWSHandler(hub *realtime.Hub, logger *zap.Logger) *WSHandler {
	return &WSHandler{hub: hub, logger: logger}
}

// RegisterRoutes registers the websocket route.
func (h *WSHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/ws/availability", h.Availability)
}

// Availability handles GET /ws/availability?car_park_no=A1,B2.
// Clients may also send {"type":"subscribe","car_park_no":"A1"} after connecting.
func (h *WSHandler) Availability(c *gin.Context) {
	var initial []string
	for _, id := range strings.Split(c.Query("car_park_no"), ",") {
		if id = strings.TrimSpace(id); id != "" {
			initial = append(initial, id)
		}
	}

	conn, err := realtime.Upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	h.hub.ServeWS(conn, initial)
}
