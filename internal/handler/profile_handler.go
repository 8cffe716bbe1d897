package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/parkwise/service-parking/internal/application"
	"github.com/parkwise/service-parking/internal/common/auth"
	"github.com/parkwise/service-parking/internal/common/middleware"
	"github.com/parkwise/service-parking/internal/common/response"
	"github.com/parkwise/service-parking/internal/session"
)

// ProfileHandler serves the caller's own profile, vehicle and session.
type ProfileHandler struct {
	users    *application.UserService
	sessions *session.Store
}

// NewProfileHandler creates a new ProfileHandler.
func NewProfileHandler(users *application.UserService, sessions *session.Store) *ProfileHandler {
	return &ProfileHandler{users: users, sessions: sessions}
}

// RegisterRoutes registers profile routes.
func (h *ProfileHandler) RegisterRoutes(r *gin.RouterGroup, jwtManager *auth.JWTManager) {
	v1 := r.Group("/api/v1")
	v1.Use(middleware.AuthMiddleware(jwtManager), SessionMiddleware(h.sessions))
	{
		v1.GET("/profile", h.GetProfile)
		v1.PUT("/profile", h.UpdateProfile)
		v1.GET("/vehicle", h.GetVehicle)
		v1.POST("/logout", h.Logout)
	}
}

// GetProfile handles GET /api/v1/profile.
func (h *ProfileHandler) GetProfile(c *gin.Context) {
	email, _ := middleware.GetUserEmail(c)
	result, err := h.users.GetProfile(c.Request.Context(), email)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, result)
}

// UpdateProfile handles PUT /api/v1/profile. Absent fields are left unchanged.
func (h *ProfileHandler) UpdateProfile(c *gin.Context) {
	email, _ := middleware.GetUserEmail(c)

	var req application.UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.users.UpdateProfile(c.Request.Context(), email, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, result)
}

// GetVehicle handles GET /api/v1/vehicle.
func (h *ProfileHandler) GetVehicle(c *gin.Context) {
	email, _ := middleware.GetUserEmail(c)
	result, err := h.users.GetVehicle(c.Request.Context(), email)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, result)
}

// Logout handles POST /api/v1/logout. The token stops working immediately.
func (h *ProfileHandler) Logout(c *gin.Context) {
	claims, _ := middleware.GetClaims(c)
	h.users.Logout(claims.SessionID())
	response.Success(c, gin.H{"logged_out": true})
}
