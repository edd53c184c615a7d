package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/autoparts-market/backend/internal/auth"
	"github.com/autoparts-market/backend/internal/models"
	"github.com/autoparts-market/backend/pkg/response"
)

// Authenticate verifies the bearer token and stores its claims under auth.ContextClaims.
func Authenticate(tokens *auth.JWTService) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			response.Unauthorized(c, "missing or malformed bearer token")
			c.Abort()
			return
		}
		claims, err := tokens.Parse(raw)
		if err != nil {
			response.Unauthorized(c, "invalid or expired token")
			c.Abort()
			return
		}
		c.Set(auth.ContextClaims, claims)
		c.Next()
	}
}

// bearerToken extracts the credentials of an "Authorization: Bearer <token>" header.
// The scheme is case-insensitive.
func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// RequireRole lets the request through only for the listed roles. Run it after Authenticate.
func RequireRole(roles ...models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := auth.ClaimsFrom(c)
		if !ok {
			response.Unauthorized(c, "missing user context")
			c.Abort()
			return
		}
		for _, r := range roles {
			if claims.Role == r {
				c.Next()
				return
			}
		}
		response.Forbidden(c, "insufficient permissions")
		c.Abort()
	}
}

// AdminOnly chains authentication with the admin role check.
func AdminOnly(tokens *auth.JWTService) []gin.HandlerFunc {
	return []gin.HandlerFunc{Authenticate(tokens), RequireRole(models.RoleAdmin)}
}
