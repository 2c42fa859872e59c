package middleware

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/STS-Engineer/Skill-Matrix/internal/models"
)

type auditRecorder interface {
	Record(ctx context.Context, entry models.AuditEntry)
}

// AuditDenials records an access_denied entry for requests the guard rejected
// with 403.
func AuditDenials(recorder auditRecorder) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if recorder == nil || c.Writer.Status() != 403 {
			return
		}
		action, ok := c.Get(deniedActionKey)
		if !ok {
			return
		}

		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}
		recorder.Record(c.Request.Context(), models.AuditEntry{
			UserID:     PrincipalFrom(c).ActorID(),
			Action:     models.AuditActionAccessDenied,
			EntityType: models.EntityRoute,
			EntityID:   path,
			Details: map[string]interface{}{
				"path":   c.Request.URL.Path,
				"method": c.Request.Method,
				"action": action,
			},
			Meta: RequestMetaFrom(c),
		})
	}
}
