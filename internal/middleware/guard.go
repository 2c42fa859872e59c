package middleware

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/STS-Engineer/Skill-Matrix/internal/authz"
	appErrors "github.com/STS-Engineer/Skill-Matrix/pkg/errors"
	"github.com/STS-Engineer/Skill-Matrix/pkg/i18n"
	"github.com/STS-Engineer/Skill-Matrix/pkg/response"
)

const deniedActionKey = "denied_action"

// Guard applies the authorization policy to routes.
type Guard struct {
	loginPath string
	bundle    *i18n.Bundle
}

// NewGuard builds a guard that points unauthenticated callers at loginPath.
func NewGuard(loginPath string, bundle *i18n.Bundle) *Guard {
	return &Guard{loginPath: loginPath, bundle: bundle}
}

// Require rejects the request unless the principal may perform action.
// Browsers are redirected to the login page, API clients get 401.
func (g *Guard) Require(action authz.Action) gin.HandlerFunc {
	return func(c *gin.Context) {
		err := authz.Authorize(PrincipalFrom(c), action)
		if err == nil {
			c.Next()
			return
		}

		if appErrors.Is(err, appErrors.ErrNotAuthenticated) {
			if wantsHTML(c) {
				c.Redirect(http.StatusSeeOther, g.loginPath+"?next="+url.QueryEscape(c.Request.URL.RequestURI()))
				c.Abort()
				return
			}
			meta := response.Messages(response.Flash{Level: response.LevelWarning, Message: g.translate(c, "auth.login_required")})
			meta["login"] = g.loginPath
			response.Error(c, err, meta)
			c.Abort()
			return
		}

		c.Set(deniedActionKey, string(action))
		response.Error(c, err, response.Messages(response.Flash{Level: response.LevelDanger, Message: g.translate(c, "access.denied")}))
		c.Abort()
	}
}

func (g *Guard) translate(c *gin.Context, key string) string {
	if g.bundle == nil {
		return key
	}
	return g.bundle.T(LocaleFrom(c), key)
}

func wantsHTML(c *gin.Context) bool {
	accept := c.GetHeader("Accept")
	return strings.Contains(accept, "text/html") && !strings.Contains(accept, "application/json")
}
