package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/STS-Engineer/Skill-Matrix/internal/authz"
	"github.com/STS-Engineer/Skill-Matrix/internal/models"
	appErrors "github.com/STS-Engineer/Skill-Matrix/pkg/errors"
)

type userRepository interface {
	List(ctx context.Context, filter models.UserFilter) ([]models.User, int, error)
	FindByID(ctx context.Context, id string) (*models.User, error)
	UpdateRole(ctx context.Context, id string, role models.Role) error
}

// UserService manages accounts and their roles.
type UserService struct {
	repo      userRepository
	audit     auditRecorder
	validator *validator.Validate
	logger    *zap.Logger
}

// NewUserService creates a new user service instance.
func NewUserService(repo userRepository, audit auditRecorder, validate *validator.Validate, logger *zap.Logger) *UserService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if audit == nil {
		audit = nopAuditRecorder{}
	}
	return &UserService{repo: repo, audit: audit, validator: validate, logger: logger}
}

// List returns users with pagination for role management.
func (s *UserService) List(ctx context.Context, actor *models.Principal, filter models.UserFilter) ([]models.User, *models.Pagination, error) {
	if err := authz.Authorize(actor, authz.ActionChangeRole); err != nil {
		return nil, nil, err
	}
	users, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, internalError(err, "failed to list users")
	}
	return users, buildPagination(filter.Page, filter.PageSize, total), nil
}

// SetRole changes a user's role and audits the promotion or demotion.
func (s *UserService) SetRole(ctx context.Context, actor *models.Principal, userID, rawRole string, meta models.RequestMeta) (*models.RoleChange, error) {
	if err := authz.Authorize(actor, authz.ActionChangeRole); err != nil {
		return nil, err
	}
	role, err := models.ParseRole(rawRole)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInvalidRole.Code, appErrors.ErrInvalidRole.Status, appErrors.ErrInvalidRole.Message)
	}

	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return nil, internalError(err, "failed to load user")
	}

	if err := s.repo.UpdateRole(ctx, user.ID, role); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return nil, internalError(err, "failed to update role")
	}

	action := models.AuditActionDemoteUser
	if role == models.RoleAdmin {
		action = models.AuditActionPromoteUser
	}
	s.audit.Record(ctx, models.AuditEntry{
		UserID:     actor.ActorID(),
		Action:     action,
		EntityType: models.EntityUser,
		EntityID:   user.ID,
		Details:    map[string]interface{}{"old": string(user.Role), "new": string(role)},
		Meta:       meta,
	})

	return &models.RoleChange{UserID: user.ID, Old: user.Role, New: role}, nil
}
