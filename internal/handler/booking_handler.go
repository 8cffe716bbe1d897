package handler

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/parkwise/service-parking/internal/application"
	"github.com/parkwise/service-parking/internal/common/auth"
	"github.com/parkwise/service-parking/internal/common/middleware"
	"github.com/parkwise/service-parking/internal/common/response"
	bookingDomain "github.com/parkwise/service-parking/internal/domain/booking"
	facilityDomain "github.com/parkwise/service-parking/internal/domain/facility"
	"github.com/parkwise/service-parking/internal/session"
)

// CreateBookingResponse is returned by POST /api/v1/bookings.
type CreateBookingResponse struct {
	Booking      application.BookingDTO       `json:"booking"`
	Availability *facilityDomain.Availability `json:"availability,omitempty"`
}

// BookingHandler handles HTTP requests for booking operations.
type BookingHandler struct {
	service  *application.BookingService
	sessions *session.Store
}

// NewBookingHandler creates a new BookingHandler.
func NewBookingHandler(service *application.BookingService, sessions *session.Store) *BookingHandler {
	return &BookingHandler{service: service, sessions: sessions}
}

// RegisterRoutes registers all booking routes on the given router group.
func (h *BookingHandler) RegisterRoutes(r *gin.RouterGroup, jwtManager *auth.JWTManager) {
	bookings := r.Group("/api/v1/bookings")
	bookings.Use(middleware.AuthMiddleware(jwtManager), SessionMiddleware(h.sessions))
	{
		bookings.POST("", h.CreateBooking)
		bookings.GET("", h.ListBookings)
		bookings.GET("/:id", h.GetBooking)
		bookings.POST("/:id/check-in", h.CheckIn)
		bookings.POST("/:id/cancel", h.Cancel)
		bookings.POST("/:id/change-timing", h.ChangeTiming)
	}
}

// CreateBooking handles POST /api/v1/bookings. The owner is always the caller.
func (h *BookingHandler) CreateBooking(c *gin.Context) {
	email, _ := middleware.GetUserEmail(c)

	var req application.CreateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	req.UserEmail = email

	result, err := h.service.CreateBooking(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	if sess, ok := GetSession(c); ok {
		sess.Track(result.Booking)
	}

	response.Created(c, CreateBookingResponse{
		Booking:      application.ToBookingDTO(result.Booking),
		Availability: result.Availability,
	})
}

// ListBookings handles GET /api/v1/bookings. It reloads the session working set and
// filters by ?status= and an address/car park ?q=.
func (h *BookingHandler) ListBookings(c *gin.Context) {
	email, _ := middleware.GetUserEmail(c)

	bookings, err := h.service.ListBookings(c.Request.Context(), email)
	if err != nil {
		response.Error(c, err)
		return
	}

	if sess, ok := GetSession(c); ok {
		sess.Replace(bookings)
	}

	status := strings.TrimSpace(c.Query("status"))
	query := strings.ToLower(strings.TrimSpace(c.Query("q")))
	filtered := make([]*bookingDomain.Booking, 0, len(bookings))
	for _, bk := range bookings {
		if status != "" && string(bk.Status()) != status {
			continue
		}
		if query != "" &&
			!strings.Contains(strings.ToLower(bk.Address()), query) &&
			!strings.Contains(strings.ToLower(bk.CarParkNo()), query) {
			continue
		}
		filtered = append(filtered, bk)
	}

	response.Success(c, application.ToBookingDTOs(filtered))
}

// GetBooking handles GET /api/v1/bookings/:id.
func (h *BookingHandler) GetBooking(c *gin.Context) {
	bookingID, ok := parseBookingID(c)
	if !ok {
		return
	}

	bk, err := h.service.GetBooking(c.Request.Context(), bookingID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, application.ToBookingDTO(bk))
}

// CheckIn handles POST /api/v1/bookings/:id/check-in.
func (h *BookingHandler) CheckIn(c *gin.Context) {
	bookingID, ok := parseBookingID(c)
	if !ok {
		return
	}

	bk, err := h.service.CheckIn(c.Request.Context(), bookingID)
	if err != nil {
		response.Error(c, err)
		return
	}

	if sess, ok := GetSession(c); ok {
		sess.Track(bk)
	}
	response.Success(c, application.ToBookingDTO(bk))
}

// Cancel handles POST /api/v1/bookings/:id/cancel.
func (h *BookingHandler) Cancel(c *gin.Context) {
	bookingID, ok := parseBookingID(c)
	if !ok {
		return
	}

	bk, err := h.service.Cancel(c.Request.Context(), bookingID)
	if err != nil {
		response.Error(c, err)
		return
	}

	if sess, ok := GetSession(c); ok {
		sess.Track(bk)
	}
	response.Success(c, application.ToBookingDTO(bk))
}

// ChangeTiming handles POST /api/v1/bookings/:id/change-timing. The booking is
// removed; the client books a new window afterwards.
func (h *BookingHandler) ChangeTiming(c *gin.Context) {
	bookingID, ok := parseBookingID(c)
	if !ok {
		return
	}

	bk, err := h.service.ChangeTiming(c.Request.Context(), bookingID)
	if err != nil {
		response.Error(c, err)
		return
	}

	if sess, ok := GetSession(c); ok {
		sess.Forget(bk.ID())
	}
	response.Success(c, gin.H{
		"removed":   bk.ID(),
		"carParkNo": bk.CarParkNo(),
		"address":   bk.Address(),
	})
}

func parseBookingID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid booking ID")
		return uuid.Nil, false
	}
	return id, true
}
