package service

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/STS-Engineer/Skill-Matrix/internal/authz"
	"github.com/STS-Engineer/Skill-Matrix/internal/models"
	"github.com/STS-Engineer/Skill-Matrix/internal/repository"
	appErrors "github.com/STS-Engineer/Skill-Matrix/pkg/errors"
)

type skillRepository interface {
	List(ctx context.Context) ([]models.Skill, error)
	FindByID(ctx context.Context, id int) (*models.Skill, error)
	Create(ctx context.Context, skill *models.Skill) error
	Delete(ctx context.Context, id int) error
}

// SkillService manages the skills catalogue.
type SkillService struct {
	repo      skillRepository
	audit     auditRecorder
	validator *validator.Validate
	logger    *zap.Logger
}

// NewSkillService constructs a SkillService.
func NewSkillService(repo skillRepository, audit auditRecorder, validate *validator.Validate, logger *zap.Logger) *SkillService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if audit == nil {
		audit = nopAuditRecorder{}
	}
	return &SkillService{repo: repo, audit: audit, validator: validate, logger: logger}
}

// List returns every skill ordered by name.
func (s *SkillService) List(ctx context.Context, actor *models.Principal) ([]models.Skill, error) {
	if err := authz.Authorize(actor, authz.ActionViewListings); err != nil {
		return nil, err
	}
	skills, err := s.repo.List(ctx)
	if err != nil {
		return nil, internalError(err, "failed to list skills")
	}
	return skills, nil
}

// Create adds a skill to the catalogue.
func (s *SkillService) Create(ctx context.Context, actor *models.Principal, req models.CreateSkillRequest, meta models.RequestMeta) (*models.Skill, error) {
	if err := authz.Authorize(actor, authz.ActionAddSkill); err != nil {
		return nil, err
	}
	req.SkillName = strings.TrimSpace(req.SkillName)
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid skill payload")
	}
	skill := &models.Skill{
		SkillName:   req.SkillName,
		Category:    optionalString(req.Category),
		Description: optionalString(req.Description),
	}
	if err := s.repo.Create(ctx, skill); err != nil {
		if _, ok := repository.UniqueViolation(err); ok {
			return nil, appErrors.Clone(appErrors.ErrConflict, "skill already exists")
		}
		return nil, internalError(err, "failed to create skill")
	}
	s.audit.Record(ctx, models.AuditEntry{
		UserID:     actor.ActorID(),
		Action:     models.AuditActionAddSkill,
		EntityType: models.EntitySkill,
		EntityID:   strconv.Itoa(skill.ID),
		Details:    map[string]interface{}{"skill_name": skill.SkillName},
		Meta:       meta,
	})
	return skill, nil
}

// Delete removes a skill and every assessment of it.
func (s *SkillService) Delete(ctx context.Context, actor *models.Principal, id int, meta models.RequestMeta) error {
	if err := authz.Authorize(actor, authz.ActionDeleteSkill); err != nil {
		return err
	}
	skill, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "skill not found")
		}
		return internalError(err, "failed to load skill")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "skill not found")
		}
		return internalError(err, "failed to delete skill")
	}
	s.audit.Record(ctx, models.AuditEntry{
		UserID:     actor.ActorID(),
		Action:     models.AuditActionDeleteSkill,
		EntityType: models.EntitySkill,
		EntityID:   strconv.Itoa(id),
		Details:    map[string]interface{}{"skill_name": skill.SkillName},
		Meta:       meta,
	})
	return nil
}
