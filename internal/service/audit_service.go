package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx/types"
	"go.uber.org/zap"

	"github.com/STS-Engineer/Skill-Matrix/internal/authz"
	"github.com/STS-Engineer/Skill-Matrix/internal/models"
	"github.com/STS-Engineer/Skill-Matrix/pkg/messaging"
)

type auditRepository interface {
	Create(ctx context.Context, log *models.AuditLog) error
	List(ctx context.Context, filter models.AuditFilter) ([]models.AuditLog, int, error)
}

// auditEvent is the message published for each persisted entry.
type auditEvent struct {
	ID         int64           `json:"id"`
	CreatedAt  time.Time       `json:"created_at"`
	UserID     *string         `json:"user_id,omitempty"`
	Action     string          `json:"action"`
	EntityType *string         `json:"entity_type,omitempty"`
	EntityID   *string         `json:"entity_id,omitempty"`
	Details    json.RawMessage `json:"details"`
}

// AuditService writes and reads the audit trail. Recording never fails the
// caller's operation.
type AuditService struct {
	repo      auditRepository
	publisher messaging.Publisher
	subject   string
	metrics   *MetricsService
	logger    *zap.Logger
}

// NewAuditService constructs an AuditService. publisher may be nil.
func NewAuditService(repo auditRepository, publisher messaging.Publisher, subject string, metrics *MetricsService, logger *zap.Logger) *AuditService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuditService{repo: repo, publisher: publisher, subject: subject, metrics: metrics, logger: logger}
}

// Record persists entry synchronously. Failures are logged and counted.
func (s *AuditService) Record(ctx context.Context, entry models.AuditEntry) {
	defer func() {
		if r := recover(); r != nil {
			s.fail(entry, fmt.Errorf("panic: %v", r))
		}
	}()

	details := []byte("{}")
	if len(entry.Details) > 0 {
		encoded, err := json.Marshal(entry.Details)
		if err != nil {
			s.fail(entry, err)
			return
		}
		details = encoded
	}

	log := &models.AuditLog{
		UserID:     entry.UserID,
		Action:     entry.Action,
		EntityType: optionalString(entry.EntityType),
		EntityID:   optionalString(entry.EntityID),
		Details:    types.JSONText(details),
		IPAddress:  optionalString(entry.Meta.IP),
		UserAgent:  optionalString(entry.Meta.UserAgent),
	}
	if err := s.repo.Create(ctx, log); err != nil {
		s.fail(entry, err)
		return
	}
	s.publish(ctx, log)
}

func (s *AuditService) fail(entry models.AuditEntry, err error) {
	s.metrics.RecordAuditFailure()
	s.logger.Warn("failed to record audit entry",
		zap.String("action", entry.Action),
		zap.String("entity_type", entry.EntityType),
		zap.String("entity_id", entry.EntityID),
		zap.Error(err),
	)
}

func (s *AuditService) publish(ctx context.Context, log *models.AuditLog) {
	if s.publisher == nil {
		return
	}
	event := auditEvent{
		ID:         log.ID,
		CreatedAt:  log.CreatedAt,
		UserID:     log.UserID,
		Action:     log.Action,
		EntityType: log.EntityType,
		EntityID:   log.EntityID,
		Details:    json.RawMessage(log.Details),
	}
	if err := s.publisher.PublishJSON(ctx, messaging.Subject(s.subject, log.Action), event); err != nil {
		s.logger.Warn("failed to publish audit event", zap.String("action", log.Action), zap.Error(err))
	}
}

// List returns audit entries newest first.
func (s *AuditService) List(ctx context.Context, actor *models.Principal, filter models.AuditFilter) ([]models.AuditLog, *models.Pagination, error) {
	if err := authz.Authorize(actor, authz.ActionViewAuditLog); err != nil {
		return nil, nil, err
	}
	if filter.From != nil && filter.To != nil && filter.To.Before(*filter.From) {
		return nil, nil, validationError(nil, "to must not be before from")
	}
	logs, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, internalError(err, "failed to list audit logs")
	}
	return logs, buildPagination(filter.Page, filter.PageSize, total), nil
}
