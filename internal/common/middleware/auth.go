package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/parkwise/service-parking/internal/common/auth"
	"github.com/parkwise/service-parking/internal/common/response"
)

const (
	ctxKeyClaims = "auth.claims"
	ctxKeyEmail  = "auth.email"
	ctxKeyRole   = "auth.role"
)

// AuthMiddleware requires a valid bearer token and stores its claims in the context.
func AuthMiddleware(jwtManager *auth.JWTManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := bearerClaims(c, jwtManager)
		if !ok {
			response.Unauthorized(c, "missing or invalid bearer token")
			return
		}
		setClaims(c, claims)
		c.Next()
	}
}

// OptionalAuthMiddleware stores claims when a valid bearer token is present and never rejects.
func OptionalAuthMiddleware(jwtManager *auth.JWTManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		if claims, ok := bearerClaims(c, jwtManager); ok {
			setClaims(c, claims)
		}
		c.Next()
	}
}

// RequireRole rejects callers whose role is not one of roles. Must run after AuthMiddleware.
func RequireRole(roles ...auth.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		role, ok := GetUserRole(c)
		if !ok {
			response.Unauthorized(c, "unauthorized")
			return
		}
		for _, r := range roles {
			if r == role {
				c.Next()
				return
			}
		}
		response.Forbidden(c, "insufficient role")
	}
}

// GetClaims returns the verified claims.
func GetClaims(c *gin.Context) (*auth.Claims, bool) {
	v, ok := c.Get(ctxKeyClaims)
	if !ok {
		return nil, false
	}
	claims, ok := v.(*auth.Claims)
	return claims, ok
}

// GetUserEmail returns the authenticated user's email.
func GetUserEmail(c *gin.Context) (string, bool) {
	email := c.GetString(ctxKeyEmail)
	return email, email != ""
}

// GetUserRole returns the authenticated user's role.
func GetUserRole(c *gin.Context) (auth.Role, bool) {
	v, ok := c.Get(ctxKeyRole)
	if !ok {
		return "", false
	}
	role, ok := v.(auth.Role)
	return role, ok
}

func bearerClaims(c *gin.Context, jwtManager *auth.JWTManager) (*auth.Claims, bool) {
	header := c.GetHeader("Authorization")
	token, found := strings.CutPrefix(header, "Bearer ")
	if !found || token == "" {
		return nil, false
	}
	claims, err := jwtManager.ValidateToken(token)
	if err != nil {
		return nil, false
	}
	return claims, true
}

func setClaims(c *gin.Context, claims *auth.Claims) {
	c.Set(ctxKeyClaims, claims)
	c.Set(ctxKeyEmail, claims.Email)
	c.Set(ctxKeyRole, claims.Role)
}
