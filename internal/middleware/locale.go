package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/STS-Engineer/Skill-Matrix/pkg/i18n"
)

// ContextLocaleKey is the gin context key storing the negotiated locale.
const ContextLocaleKey = "locale"

// Locale picks the response locale from ?lang, then Accept-Language.
func Locale(bundle *i18n.Bundle) gin.HandlerFunc {
	return func(c *gin.Context) {
		locale := bundle.Negotiate(c.Query("lang"), c.GetHeader("Accept-Language"))
		c.Set(ContextLocaleKey, locale)
		c.Header("Content-Language", strings.ReplaceAll(locale, "_", "-"))
		c.Next()
	}
}

// LocaleFrom returns the negotiated locale, or "" when none was set.
func LocaleFrom(c *gin.Context) string {
	return c.GetString(ContextLocaleKey)
}
