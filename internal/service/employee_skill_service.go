package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/STS-Engineer/Skill-Matrix/internal/authz"
	"github.com/STS-Engineer/Skill-Matrix/internal/models"
	appErrors "github.com/STS-Engineer/Skill-Matrix/pkg/errors"
)

type employeeSkillRepository interface {
	Create(ctx context.Context, es *models.EmployeeSkill) error
	UpdateAttachment(ctx context.Context, id int, ref string) error
}

type employeeLookup interface {
	FindByID(ctx context.Context, id int) (*models.Employee, error)
}

type skillLookup interface {
	FindByID(ctx context.Context, id int) (*models.Skill, error)
}

// EmployeeSkillService records skill assessments.
type EmployeeSkillService struct {
	repo      employeeSkillRepository
	employees employeeLookup
	skills    skillLookup
	media     mediaUploader
	audit     auditRecorder
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewEmployeeSkillService constructs an EmployeeSkillService.
func NewEmployeeSkillService(repo employeeSkillRepository, employees employeeLookup, skills skillLookup, media mediaUploader, audit auditRecorder, validate *validator.Validate, logger *zap.Logger) *EmployeeSkillService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if audit == nil {
		audit = nopAuditRecorder{}
	}
	return &EmployeeSkillService{
		repo:      repo,
		employees: employees,
		skills:    skills,
		media:     media,
		audit:     audit,
		validator: validate,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// AttachmentObjectPath is where an assessment attachment is stored.
func AttachmentObjectPath(employeeID int, at time.Time, filename string) string {
	return fmt.Sprintf("attachments/employee_%d_%d_%s", employeeID, at.Unix(), sanitizeFilename(path.Base(filename)))
}

// Assign records a skill level for an employee. The optional attachment is
// uploaded after the assessment is committed.
func (s *EmployeeSkillService) Assign(ctx context.Context, actor *models.Principal, employeeID int, req models.AssignSkillRequest, attachment *models.Upload, meta models.RequestMeta) (*models.AssignedSkill, error) {
	if err := authz.Authorize(actor, authz.ActionAssignSkill); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid assessment payload")
	}
	level, err := models.ParseSkillLevel(req.Level)
	if err != nil {
		return nil, validationError(err, err.Error())
	}

	employee, err := findEmployee(ctx, s.employees, employeeID)
	if err != nil {
		return nil, err
	}
	skill, err := s.skills.FindByID(ctx, req.SkillID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "skill not found")
		}
		return nil, internalError(err, "failed to load skill")
	}

	now := s.now()
	assessed := req.LastAssessed
	if assessed == nil {
		today := now.Truncate(24 * time.Hour)
		assessed = &today
	}
	es := &models.EmployeeSkill{
		EmployeeID:   employee.ID,
		SkillID:      skill.ID,
		Level:        level,
		LastAssessed: assessed,
		Trainer:      optionalString(req.Trainer),
		Remarks:      optionalString(req.Remarks),
	}
	if err := s.repo.Create(ctx, es); err != nil {
		return nil, internalError(err, "failed to assign skill")
	}

	result := &models.AssignedSkill{EmployeeSkill: es, SkillName: skill.SkillName}
	if attachment != nil {
		ref, err := s.media.PutStaged(ctx, attachment.StagedName, AttachmentObjectPath(employee.ID, now, attachment.Filename))
		if err == nil {
			err = s.repo.UpdateAttachment(ctx, es.ID, ref)
		}
		if err != nil {
			s.logger.Warn("assessment attachment not stored", zap.Int("employee_skill_id", es.ID), zap.Error(err))
			result.AttachmentFailed = true
		} else {
			es.Attachment = &ref
		}
	}

	s.audit.Record(ctx, models.AuditEntry{
		UserID:     actor.ActorID(),
		Action:     models.AuditActionAssignSkill,
		EntityType: models.EntityEmployeeSkill,
		EntityID:   strconv.Itoa(es.ID),
		Details: map[string]interface{}{
			"employee_id": employee.ID,
			"skill_id":    skill.ID,
			"skill_name":  skill.SkillName,
			"level":       string(level),
		},
		Meta: meta,
	})
	return result, nil
}
