package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/STS-Engineer/Skill-Matrix/internal/models"
	appErrors "github.com/STS-Engineer/Skill-Matrix/pkg/errors"
	"github.com/STS-Engineer/Skill-Matrix/pkg/response"
)

type auditService interface {
	List(ctx context.Context, actor *models.Principal, filter models.AuditFilter) ([]models.AuditLog, *models.Pagination, error)
}

// AuditHandler exposes the audit trail to administrators.
type AuditHandler struct {
	service auditService
}

// NewAuditHandler constructs an AuditHandler.
func NewAuditHandler(svc auditService) *AuditHandler {
	return &AuditHandler{service: svc}
}

// List godoc
// @Summary List audit entries
// @Description Audit entries newest first
// @Tags Audit
// @Produce json
// @Param action query string false "Action"
// @Param entity_type query string false "Entity type"
// @Param user_id query string false "Actor user ID"
// @Param from query string false "From date (YYYY-MM-DD or RFC3339)"
// @Param to query string false "To date (YYYY-MM-DD or RFC3339)"
// @Param page query int false "Page number"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /audit-logs [get]
func (h *AuditHandler) List(c *gin.Context) {
	filter := models.AuditFilter{
		Action:     strings.TrimSpace(c.Query("action")),
		EntityType: strings.TrimSpace(c.Query("entity_type")),
		UserID:     strings.TrimSpace(c.Query("user_id")),
	}
	filter.Page, filter.PageSize = pageParams(c)

	var err error
	if filter.From, err = parseTimeQuery(c.Query("from"), false); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid from date"))
		return
	}
	if filter.To, err = parseTimeQuery(c.Query("to"), true); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid to date"))
		return
	}

	logs, pagination, err := h.service.List(c.Request.Context(), principalFrom(c), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, logs, pagination)
}

// parseTimeQuery accepts a date or an RFC3339 timestamp. A bare date used as
// an upper bound covers the whole day.
func parseTimeQuery(raw string, endOfDay bool) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	if ts, err := time.Parse(time.RFC3339, raw); err == nil {
		return &ts, nil
	}
	day, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return nil, err
	}
	if endOfDay {
		day = day.Add(24*time.Hour - time.Nanosecond)
	}
	return &day, nil
}
