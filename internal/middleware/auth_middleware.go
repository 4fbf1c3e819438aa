package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/subculture-collective/clipqueue/internal/apperr"
	"github.com/subculture-collective/clipqueue/internal/auth"
	"github.com/subculture-collective/clipqueue/internal/models"
)

const principalContextKey = "principal"

// ExtractToken reads the bearer token from the Authorization header, falling back to
// the access_token cookie the OAuth flow sets.
func ExtractToken(c *gin.Context) string {
	if authHeader := c.GetHeader("Authorization"); authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) == 2 && parts[0] == "Bearer" {
			return parts[1]
		}
	}
	if token, err := c.Cookie("access_token"); err == nil && token != "" {
		return token
	}
	return ""
}

// AuthContextMiddleware resolves the principal for every request when a token is
// present, attaching it to the gin context. It never aborts: role requirements are
// enforced separately by RequireRole, so public endpoints still see c.Next() run for
// anonymous callers.
func AuthContextMiddleware(resolver *auth.Resolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := ExtractToken(c)
		if token != "" {
			if p, err := resolver.ResolvePrincipal(c.Request.Context(), token); err == nil {
				c.Set(principalContextKey, p)
			}
		}
		c.Next()
	}
}

// PrincipalFromContext returns the resolved principal, or nil if the caller is anonymous.
func PrincipalFromContext(c *gin.Context) *models.Principal {
	v, ok := c.Get(principalContextKey)
	if !ok {
		return nil
	}
	p, _ := v.(*models.Principal)
	return p
}

// RequireRole aborts with NOT_AUTHENTICATED or FORBIDDEN unless the resolved principal
// satisfies role, implementing per-endpoint moderator/broadcaster gating.
func RequireRole(role models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		p := PrincipalFromContext(c)
		if p == nil {
			apperr.Respond(c, apperr.New(apperr.CodeNotAuthenticated, "authentication required"))
			c.Abort()
			return
		}
		if !role.Allows(p) {
			apperr.Respond(c, apperr.New(apperr.CodeForbidden, "insufficient role"))
			c.Abort()
			return
		}
		c.Next()
	}
}
