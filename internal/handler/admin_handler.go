package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/parkwise/service-parking/internal/application"
	"github.com/parkwise/service-parking/internal/common/auth"
	"github.com/parkwise/service-parking/internal/common/middleware"
	"github.com/parkwise/service-parking/internal/common/response"
	"github.com/parkwise/service-parking/internal/realtime"
	"github.com/parkwise/service-parking/internal/session"
)

// SystemStatsDTO summarises live process state for the admin dashboard.
type SystemStatsDTO struct {
	Facilities       int64 `json:"facilities"`
	Sessions         int   `json:"sessions"`
	WebsocketClients int   `json:"websocket_clients"`
}

// AdminBookingHandler handles admin HTTP requests for booking management.
type AdminBookingHandler struct {
	service    *application.BookingService
	facilities *application.FacilityService
	sessions   *session.Store
	hub        *realtime.Hub
}

// NewAdminBookingHandler creates a new AdminBookingHandler.
func NewAdminBookingHandler(
	service *application.BookingService,
	facilities *application.FacilityService,
	sessions *session.Store,
	hub *realtime.Hub,
) *AdminBookingHandler {
	return &AdminBookingHandler{service: service, facilities: facilities, sessions: sessions, hub: hub}
}

// RegisterRoutes registers admin booking routes.
func (h *AdminBookingHandler) RegisterRoutes(r *gin.RouterGroup, jwtManager *auth.JWTManager) {
	authMW := middleware.AuthMiddleware(jwtManager)
	adminRole := middleware.RequireRole(auth.RoleAdmin)

	admin := r.Group("/api/v1/admin")
	admin.Use(authMW, adminRole)
	{
		admin.GET("/bookings", h.ListBookings)
		admin.GET("/stats/bookings", h.BookingStats)
		admin.GET("/stats/system", h.SystemStats)
	}
}

// ListBookings handles GET /api/v1/admin/bookings.
func (h *AdminBookingHandler) ListBookings(c *gin.Context) {
	page, limit := parsePagination(c)

	bookings, total, err := h.service.ListAllBookings(c.Request.Context(), page, limit)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Paginated(c, bookings, total, page, limit)
}

// BookingStats handles GET /api/v1/admin/stats/bookings.
func (h *AdminBookingHandler) BookingStats(c *gin.Context) {
	stats, err := h.service.GetBookingStats(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, stats)
}

// SystemStats handles GET /api/v1/admin/stats/system.
func (h *AdminBookingHandler) SystemStats(c *gin.Context) {
	count, err := h.facilities.Count(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, SystemStatsDTO{
		Facilities:       count,
		Sessions:         h.sessions.Len(),
		WebsocketClients: h.hub.Clients(),
	})
}
