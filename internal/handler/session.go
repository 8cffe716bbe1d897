package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/parkwise/service-parking/internal/common/middleware"
	"github.com/parkwise/service-parking/internal/common/response"
	"github.com/parkwise/service-parking/internal/session"
)

const ctxKeySession = "parking.session"

// SessionMiddleware resolves the caller's login session from the token's jti.
// Must run after AuthMiddleware. A token whose session was closed is rejected.
func SessionMiddleware(store *session.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := middleware.GetClaims(c)
		if !ok {
			response.Unauthorized(c, "unauthorized")
			return
		}
		sess, ok := store.Get(claims.SessionID())
		if !ok {
			response.Unauthorized(c, "session expired, please log in again")
			return
		}
		c.Set(ctxKeySession, sess)
		c.Next()
	}
}

// GetSession returns the session stored by SessionMiddleware.
func GetSession(c *gin.Context) (*session.Session, bool) {
	v, ok := c.Get(ctxKeySession)
	if !ok {
		return nil, false
	}
	sess, ok := v.(*session.Session)
	return sess, ok
}

// parsePagination extracts page and limit query parameters with defaults.
func parsePagination(c *gin.Context) (int, int) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}

	return page, limit
}
