package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/parkwise/service-parking/internal/application"
	"github.com/parkwise/service-parking/internal/common/auth"
	"github.com/parkwise/service-parking/internal/common/domain"
	"github.com/parkwise/service-parking/internal/common/middleware"
	"github.com/parkwise/service-parking/internal/common/response"
	facilityDomain "github.com/parkwise/service-parking/internal/domain/facility"
)

// FacilityHandler serves the facility catalogue and live availability.
type FacilityHandler struct {
	facilities   *application.FacilityService
	availability *application.AvailabilityService
}

// NewFacilityHandler creates a new FacilityHandler.
func NewFacilityHandler(facilities *application.FacilityService, availability *application.AvailabilityService) *FacilityHandler {
	return &FacilityHandler{facilities: facilities, availability: availability}
}

// RegisterRoutes registers facility routes.
func (h *FacilityHandler) RegisterRoutes(r *gin.RouterGroup, jwtManager *auth.JWTManager) {
	facilities := r.Group("/api/v1/facilities")
	facilities.Use(middleware.AuthMiddleware(jwtManager))
	{
		facilities.GET("", h.List)
		facilities.GET("/:carParkNo", h.Get)
		facilities.GET("/:carParkNo/availability", h.Availability)
	}
}

// List handles GET /api/v1/facilities. With ?q= it searches by address or
// number; otherwise ?lat=&lon= (and optional ?radius_km=) select nearby facilities.
func (h *FacilityHandler) List(c *gin.Context) {
	if q := c.Query("q"); q != "" {
		limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
		result, err := h.facilities.Search(c.Request.Context(), q, limit)
		if err != nil {
			response.Error(c, err)
			return
		}
		response.Success(c, result)
		return
	}

	lat, errLat := strconv.ParseFloat(c.Query("lat"), 64)
	lon, errLon := strconv.ParseFloat(c.Query("lon"), 64)
	if errLat != nil || errLon != nil {
		response.BadRequest(c, "lat and lon are required unless q is given")
		return
	}
	radius := 0.0
	if raw := c.Query("radius_km"); raw != "" {
		r, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			response.BadRequest(c, "invalid radius_km")
			return
		}
		radius = r
	}

	result, err := h.facilities.Nearby(c.Request.Context(), facilityDomain.Coordinates{Lat: lat, Lon: lon}, radius)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, result)
}

// Get handles GET /api/v1/facilities/:carParkNo.
func (h *FacilityHandler) Get(c *gin.Context) {
	result, err := h.facilities.Get(c.Request.Context(), c.Param("carParkNo"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, result)
}

// Availability handles GET /api/v1/facilities/:carParkNo/availability.
func (h *FacilityHandler) Availability(c *gin.Context) {
	carParkNo := c.Param("carParkNo")
	snap, ok, err := h.availability.Snapshot(c.Request.Context(), carParkNo)
	if err != nil {
		response.Error(c, err)
		return
	}
	if !ok {
		response.Error(c, domain.NewNotFoundError("Availability", carParkNo))
		return
	}
	response.Success(c, snap)
}
