package middleware

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/STS-Engineer/Skill-Matrix/internal/models"
	"github.com/STS-Engineer/Skill-Matrix/pkg/response"
)

// ContextPrincipalKey is the gin context key storing the resolved principal.
const ContextPrincipalKey = "principal"

type principalResolver interface {
	Resolve(ctx context.Context, token string) (*models.Principal, error)
}

// ResolvePrincipal attaches the principal behind the request's session token.
// Requests without a valid token continue as anonymous.
func ResolvePrincipal(resolver principalResolver, cookieName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := SessionToken(c, cookieName)
		if token == "" {
			c.Next()
			return
		}

		principal, err := resolver.Resolve(c.Request.Context(), token)
		if err != nil {
			response.Error(c, err)
			c.Abort()
			return
		}
		if principal != nil {
			c.Set(ContextPrincipalKey, principal)
		}
		c.Next()
	}
}

// SessionToken reads the bearer token, falling back to the session cookie.
func SessionToken(c *gin.Context, cookieName string) string {
	if header := c.GetHeader("Authorization"); header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return strings.TrimSpace(parts[1])
		}
	}
	if cookieName == "" {
		return ""
	}
	if cookie, err := c.Cookie(cookieName); err == nil {
		return cookie
	}
	return ""
}

// PrincipalFrom returns the request principal, or nil for anonymous callers.
func PrincipalFrom(c *gin.Context) *models.Principal {
	value, exists := c.Get(ContextPrincipalKey)
	if !exists {
		return nil
	}
	principal, ok := value.(*models.Principal)
	if !ok {
		return nil
	}
	return principal
}

// RequestMetaFrom captures client details for audit entries.
func RequestMetaFrom(c *gin.Context) models.RequestMeta {
	return models.RequestMeta{IP: c.ClientIP(), UserAgent: c.GetHeader("User-Agent")}
}
