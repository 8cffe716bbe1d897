package response

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parkwise/service-parking/internal/common/domain"
)

func TestStatusFor(t *testing.T) {
	sentinel := errors.New("sentinel")
	tests := []struct {
		err  error
		want int
	}{
		{domain.NewValidationError("x"), http.StatusBadRequest},
		{domain.NewUnauthorizedError("x"), http.StatusUnauthorized},
		{domain.NewForbiddenError("x"), http.StatusForbidden},
		{domain.NewNotFoundError("Booking", "1"), http.StatusNotFound},
		{domain.NewConflictError("x"), http.StatusConflict},
		{domain.NewNotAllowedError(sentinel), http.StatusUnprocessableEntity},
		{domain.NewInvalidStateError("a", "b"), http.StatusUnprocessableEntity},
		{domain.NewOperationError(sentinel, errors.New("down")), http.StatusBadGateway},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, StatusFor(tt.err), tt.err.Error())
	}
}

func TestError_WritesEnvelope(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	Error(c, domain.NewNotFoundError("Booking", "7"))

	assert.Equal(t, http.StatusNotFound, w.Code)
	var body Envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.False(t, body.Success)
	assert.Equal(t, "Booking not found: 7", body.Error)
	assert.Equal(t, string(domain.KindNotFound), body.Code)
}

func TestPaginated(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	Paginated(c, []string{"a", "b"}, 5, 1, 2)

	var body Envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.True(t, body.Success)
	require.NotNil(t, body.Meta)
	assert.Equal(t, int64(5), body.Meta.Total)
	assert.Equal(t, 3, body.Meta.TotalPages)
}
