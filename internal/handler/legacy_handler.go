package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/parkwise/service-parking/internal/application"
	"github.com/parkwise/service-parking/internal/common/auth"
	"github.com/parkwise/service-parking/internal/common/domain"
	"github.com/parkwise/service-parking/internal/common/middleware"
	bookingDomain "github.com/parkwise/service-parking/internal/domain/booking"
)

// Legacy success messages, kept verbatim for the mobile client.
const (
	msgBookingStored = "Booking stored successfully"
	msgInvalidBody   = "Invalid request body"
)

// bookSpotRequest mirrors what the client posts to /bookSpot.
type bookSpotRequest struct {
	CarParkNo string                  `json:"carParkNo"`
	Address   string                  `json:"address"`
	Date      string                  `json:"date"`
	HoursFrom bookingDomain.HourOfDay `json:"hoursFrom"`
	HoursTo   bookingDomain.HourOfDay `json:"hoursTo"`
	UserEmail string                  `json:"userEmail"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LegacyHandler serves the unauthenticated endpoints the mobile client calls
// directly. Bodies are plain {message} / {error} documents, not the v1 envelope.
type LegacyHandler struct {
	bookings *application.BookingService
	users    *application.UserService
	logger   *zap.Logger
}

// NewLegacyHandler creates a new LegacyHandler.
func NewLegacyHandler(bookings *application.BookingService, users *application.UserService, logger *zap.Logger) *LegacyHandler {
	return &LegacyHandler{bookings: bookings, users: users, logger: logger}
}

// RegisterRoutes registers the legacy routes at the root of r.
func (h *LegacyHandler) RegisterRoutes(r *gin.RouterGroup, jwtManager *auth.JWTManager) {
	r.POST("/bookSpot", h.BookSpot)
	r.POST("/register", h.Register)
	r.POST("/login", h.Login)
	r.POST("/updateVehicle", h.UpdateVehicle)
	r.POST("/resetPassword", middleware.OptionalAuthMiddleware(jwtManager), h.ResetPassword)
}

// BookSpot handles POST /bookSpot.
func (h *LegacyHandler) BookSpot(c *gin.Context) {
	var req bookSpotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": msgInvalidBody})
		return
	}

	result, err := h.bookings.CreateBooking(c.Request.Context(), application.CreateBookingRequest{
		CarParkNo: req.CarParkNo,
		Address:   req.Address,
		Date:      req.Date,
		HoursFrom: req.HoursFrom,
		HoursTo:   req.HoursTo,
		UserEmail: req.UserEmail,
	})
	if err != nil {
		h.fail(c, "bookSpot", err)
		return
	}

	body := gin.H{
		"message":      msgBookingStored,
		"bookingId":    result.Booking.ID(),
		"ticketNumber": result.Booking.TicketNumber(),
	}
	if result.Availability != nil {
		body["availability"] = result.Availability
	}
	c.JSON(http.StatusOK, body)
}

// Register handles POST /register.
func (h *LegacyHandler) Register(c *gin.Context) {
	var req application.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": msgInvalidBody})
		return
	}

	if _, err := h.users.Register(c.Request.Context(), req); err != nil {
		// Every registration failure is reported as a bad request, as the client expects.
		h.logger.Warn("register failed", zap.String("email", req.Email), zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"message": application.MsgDetailsUpdated})
}

// Login handles POST /login. The body is the stored profile plus a bearer token.
func (h *LegacyHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": msgInvalidBody})
		return
	}

	result, err := h.users.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		h.fail(c, "login", err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// UpdateVehicle handles POST /updateVehicle.
func (h *LegacyHandler) UpdateVehicle(c *gin.Context) {
	var req application.UpdateVehicleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": msgInvalidBody})
		return
	}

	if _, err := h.users.UpdateVehicle(c.Request.Context(), req); err != nil {
		h.logger.Warn("update vehicle failed", zap.String("email", req.Email), zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": application.MsgVehicleUpdated})
}

// ResetPassword handles POST /resetPassword. A direct change needs the caller's
// bearer token; without newPassword a reset mail is requested.
func (h *LegacyHandler) ResetPassword(c *gin.Context) {
	var req application.ResetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": msgInvalidBody, "success": false})
		return
	}

	caller, _ := middleware.GetClaims(c)
	message, err := h.users.ResetPassword(c.Request.Context(), req, caller)
	if err != nil {
		status := legacyStatus(err)
		if status >= http.StatusInternalServerError {
			h.logger.Error("password reset failed", zap.String("email", req.Email), zap.Error(err))
		}
		c.JSON(status, gin.H{"error": legacyMessage(err), "success": false})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": message, "success": true})
}

func (h *LegacyHandler) fail(c *gin.Context, op string, err error) {
	status := legacyStatus(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error(op+" failed", zap.Error(err))
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

// legacyStatus collapses error kinds onto the three codes the legacy client handles.
func legacyStatus(err error) int {
	switch domain.KindOf(err) {
	case domain.KindNotFound:
		return http.StatusNotFound
	case domain.KindOperationFailed, "":
		return http.StatusInternalServerError
	default:
		return http.StatusBadRequest
	}
}

// legacyMessage drops the backend cause from reset failures.
func legacyMessage(err error) string {
	for _, sentinel := range []error{application.ErrResetMailFailed, application.ErrPasswordResetFailed} {
		if errors.Is(err, sentinel) {
			return sentinel.Error()
		}
	}
	return err.Error()
}
