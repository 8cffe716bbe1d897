package response

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/parkwise/service-parking/internal/common/domain"
)

// Envelope is the JSON body for every /api/v1 response.
type Envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
	Code    string `json:"code,omitempty"`
	Meta    *Meta  `json:"meta,omitempty"`
}

// Meta carries pagination details.
type Meta struct {
	Total      int64 `json:"total"`
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	TotalPages int   `json:"total_pages"`
}

// Success writes 200 with data.
func Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, Envelope{Success: true, Data: data})
}

// Created writes 201 with data.
func Created(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, Envelope{Success: true, Data: data})
}

// Paginated writes 200 with a page of items.
func Paginated[T any](c *gin.Context, items []T, total int64, page, limit int) {
	p := domain.NewPaginatedResult(items, total, page, limit)
	c.JSON(http.StatusOK, Envelope{
		Success: true,
		Data:    p.Items,
		Meta:    &Meta{Total: p.Total, Page: p.Page, Limit: p.Limit, TotalPages: p.TotalPages},
	})
}

// BadRequest writes 400 with a validation message.
func BadRequest(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, Envelope{
		Error: message,
		Code:  string(domain.KindValidation),
	})
}

// Unauthorized writes 401.
func Unauthorized(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, Envelope{
		Error: message,
		Code:  string(domain.KindUnauthorized),
	})
}

// Forbidden writes 403.
func Forbidden(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusForbidden, Envelope{
		Error: message,
		Code:  string(domain.KindForbidden),
	})
}

// Error maps err to a status code and writes the error envelope.
func Error(c *gin.Context, err error) {
	kind := domain.KindOf(err)
	if kind == "" {
		kind = "INTERNAL"
	}
	c.AbortWithStatusJSON(StatusFor(err), Envelope{
		Error: err.Error(),
		Code:  string(kind),
	})
}

// StatusFor returns the HTTP status for err.
func StatusFor(err error) int {
	switch domain.KindOf(err) {
	case domain.KindValidation:
		return http.StatusBadRequest
	case domain.KindUnauthorized:
		return http.StatusUnauthorized
	case domain.KindForbidden:
		return http.StatusForbidden
	case domain.KindNotFound:
		return http.StatusNotFound
	case domain.KindConflict:
		return http.StatusConflict
	case domain.KindNotAllowed, domain.KindInvalidState:
		return http.StatusUnprocessableEntity
	case domain.KindOperationFailed:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
