package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/STS-Engineer/Skill-Matrix/internal/authz"
	"github.com/STS-Engineer/Skill-Matrix/internal/models"
	"github.com/STS-Engineer/Skill-Matrix/internal/repository"
	"github.com/STS-Engineer/Skill-Matrix/pkg/barcode"
	appErrors "github.com/STS-Engineer/Skill-Matrix/pkg/errors"
	"github.com/STS-Engineer/Skill-Matrix/pkg/jobs"
)

const (
	employeeFiltersCacheKey = "filters:employees"
	employeeFiltersPattern  = "filters:*"
)

type employeeRepository interface {
	Create(ctx context.Context, employee *models.Employee) error
	FindByID(ctx context.Context, id int) (*models.Employee, error)
	List(ctx context.Context, filter models.EmployeeFilter) ([]models.Employee, int, error)
	FilterOptions(ctx context.Context) (*models.EmployeeFilterOptions, error)
	UpdatePhotoPath(ctx context.Context, id int, ref string) error
	UpdateQRCodePath(ctx context.Context, id int, ref string) error
	UpdateAssignment(ctx context.Context, id int, position, department *string) error
	Delete(ctx context.Context, id int) error
}

type employeeSkillReader interface {
	ListByEmployee(ctx context.Context, employeeID int) ([]models.EmployeeSkillView, error)
}

type mediaUploader interface {
	PutStaged(ctx context.Context, stagedName, dest string) (string, error)
	PutBytes(ctx context.Context, data []byte, dest string) (string, error)
}

type jobEnqueuer interface {
	Enqueue(job jobs.Job) (string, error)
}

// EmployeeConfig holds settings for employee workflows.
type EmployeeConfig struct {
	PublicBaseURL string
	FilterTTL     time.Duration
}

// EmployeeService manages employees and their media.
type EmployeeService struct {
	repo      employeeRepository
	skills    employeeSkillReader
	media     mediaUploader
	cache     *CacheService
	queue     jobEnqueuer
	audit     auditRecorder
	validator *validator.Validate
	logger    *zap.Logger
	config    EmployeeConfig
}

// NewEmployeeService constructs an EmployeeService.
func NewEmployeeService(repo employeeRepository, skills employeeSkillReader, media mediaUploader, cache *CacheService, queue jobEnqueuer, audit auditRecorder, validate *validator.Validate, logger *zap.Logger, config EmployeeConfig) *EmployeeService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if audit == nil {
		audit = nopAuditRecorder{}
	}
	return &EmployeeService{
		repo:      repo,
		skills:    skills,
		media:     media,
		cache:     cache,
		queue:     queue,
		audit:     audit,
		validator: validate,
		logger:    logger,
		config:    config,
	}
}

// PhotoObjectPath is where an employee's photo is stored.
func PhotoObjectPath(id int) string {
	return fmt.Sprintf("photos/employee_%d.jpg", id)
}

// QRCodeObjectPath is where an employee's QR code is stored.
func QRCodeObjectPath(id int) string {
	return fmt.Sprintf("qrcodes/employee_%d.png", id)
}

// Create commits the employee row, then uploads the photo and QR code. Upload
// failures do not undo the row and are reported on the result.
func (s *EmployeeService) Create(ctx context.Context, actor *models.Principal, req models.CreateEmployeeRequest, photo *models.Upload, meta models.RequestMeta) (*models.CreatedEmployee, error) {
	if err := authz.Authorize(actor, authz.ActionAddEmployee); err != nil {
		return nil, err
	}
	req.FirstName = strings.TrimSpace(req.FirstName)
	req.LastName = strings.TrimSpace(req.LastName)
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid employee payload")
	}

	if _, err := s.repo.FindByID(ctx, req.ID); err == nil {
		return nil, appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("employee %d already exists", req.ID))
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, internalError(err, "failed to check employee")
	}

	employee := &models.Employee{
		ID:         req.ID,
		FirstName:  req.FirstName,
		LastName:   req.LastName,
		Position:   optionalString(req.Position),
		Department: optionalString(req.Department),
		HireDate:   req.HireDate,
		Status:     models.EmployeeStatusActive,
	}
	if err := s.repo.Create(ctx, employee); err != nil {
		if _, ok := repository.UniqueViolation(err); ok {
			return nil, appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("employee %d already exists", req.ID))
		}
		return nil, internalError(err, "failed to create employee")
	}
	s.cache.Invalidate(ctx, employeeFiltersPattern)

	result := &models.CreatedEmployee{Employee: employee}
	if photo != nil {
		ref, err := s.media.PutStaged(ctx, photo.StagedName, PhotoObjectPath(employee.ID))
		if err == nil {
			err = s.repo.UpdatePhotoPath(ctx, employee.ID, ref)
		}
		if err != nil {
			s.logger.Warn("employee photo not stored", zap.Int("employee_id", employee.ID), zap.Error(err))
			result.PhotoFailed = true
		} else {
			employee.PhotoPath = &ref
		}
	}

	if ref, err := s.storeQRCode(ctx, employee.ID); err != nil {
		s.logger.Warn("employee qr code not stored", zap.Int("employee_id", employee.ID), zap.Error(err))
		result.QRCodeFailed = true
	} else {
		employee.QRCodePath = &ref
	}

	s.audit.Record(ctx, models.AuditEntry{
		UserID:     actor.ActorID(),
		Action:     models.AuditActionAddEmployee,
		EntityType: models.EntityEmployee,
		EntityID:   strconv.Itoa(employee.ID),
		Details: map[string]interface{}{
			"name":          employee.FullName(),
			"photo_stored":  photo != nil && !result.PhotoFailed,
			"qrcode_stored": !result.QRCodeFailed,
		},
		Meta: meta,
	})
	return result, nil
}

func (s *EmployeeService) storeQRCode(ctx context.Context, id int) (string, error) {
	png, err := barcode.EncodePNG(barcode.ProfileURL(s.config.PublicBaseURL, id), barcode.DefaultSize)
	if err != nil {
		return "", err
	}
	ref, err := s.media.PutBytes(ctx, png, QRCodeObjectPath(id))
	if err != nil {
		return "", err
	}
	if err := s.repo.UpdateQRCodePath(ctx, id, ref); err != nil {
		return "", err
	}
	return ref, nil
}

// Get returns an employee with its assessed skills.
func (s *EmployeeService) Get(ctx context.Context, actor *models.Principal, id int) (*models.EmployeeDetail, error) {
	if err := authz.Authorize(actor, authz.ActionViewListings); err != nil {
		return nil, err
	}
	employee, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	skills, err := s.skills.ListByEmployee(ctx, id)
	if err != nil {
		return nil, internalError(err, "failed to load employee skills")
	}
	if skills == nil {
		skills = []models.EmployeeSkillView{}
	}
	return &models.EmployeeDetail{Employee: *employee, Skills: skills}, nil
}

// List returns a filtered page of employees.
func (s *EmployeeService) List(ctx context.Context, actor *models.Principal, filter models.EmployeeFilter) ([]models.Employee, *models.Pagination, error) {
	if err := authz.Authorize(actor, authz.ActionViewListings); err != nil {
		return nil, nil, err
	}
	employees, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, internalError(err, "failed to list employees")
	}
	return employees, buildPagination(filter.Page, filter.PageSize, total), nil
}

// FilterOptions returns the distinct positions and departments and whether
// they came from the cache.
func (s *EmployeeService) FilterOptions(ctx context.Context, actor *models.Principal) (*models.EmployeeFilterOptions, bool, error) {
	if err := authz.Authorize(actor, authz.ActionViewListings); err != nil {
		return nil, false, err
	}
	var cached models.EmployeeFilterOptions
	if s.cache.Get(ctx, employeeFiltersCacheKey, &cached) {
		return &cached, true, nil
	}
	options, err := s.repo.FilterOptions(ctx)
	if err != nil {
		return nil, false, internalError(err, "failed to load employee filters")
	}
	s.cache.Set(ctx, employeeFiltersCacheKey, options, s.config.FilterTTL)
	return options, false, nil
}

// UpdateAssignment changes an employee's position or department.
func (s *EmployeeService) UpdateAssignment(ctx context.Context, actor *models.Principal, id int, req models.UpdateEmployeeRequest, meta models.RequestMeta) (*models.Employee, error) {
	if err := authz.Authorize(actor, authz.ActionEditEmployeeAssignment); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid employee payload")
	}
	if req.Position == nil && req.Department == nil {
		return nil, validationError(nil, "position or department is required")
	}
	employee, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}

	position, department := employee.Position, employee.Department
	if req.Position != nil {
		position = optionalString(*req.Position)
	}
	if req.Department != nil {
		department = optionalString(*req.Department)
	}
	if err := s.repo.UpdateAssignment(ctx, id, position, department); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "employee not found")
		}
		return nil, internalError(err, "failed to update employee")
	}
	s.cache.Invalidate(ctx, employeeFiltersPattern)

	s.audit.Record(ctx, models.AuditEntry{
		UserID:     actor.ActorID(),
		Action:     models.AuditActionUpdateEmployee,
		EntityType: models.EntityEmployee,
		EntityID:   strconv.Itoa(id),
		Details: map[string]interface{}{
			"old": map[string]string{"position": deref(employee.Position), "department": deref(employee.Department)},
			"new": map[string]string{"position": deref(position), "department": deref(department)},
		},
		Meta: meta,
	})

	employee.Position = position
	employee.Department = department
	return employee, nil
}

// UpdatePhoto replaces an employee's photo. Nothing is committed when the
// upload fails.
func (s *EmployeeService) UpdatePhoto(ctx context.Context, actor *models.Principal, id int, photo models.Upload, meta models.RequestMeta) (*models.Employee, error) {
	if err := authz.Authorize(actor, authz.ActionUpdatePhoto); err != nil {
		return nil, err
	}
	employee, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	ref, err := s.media.PutStaged(ctx, photo.StagedName, PhotoObjectPath(id))
	if err != nil {
		return nil, err
	}
	if err := s.repo.UpdatePhotoPath(ctx, id, ref); err != nil {
		return nil, internalError(err, "failed to update photo reference")
	}
	employee.PhotoPath = &ref

	s.audit.Record(ctx, models.AuditEntry{
		UserID:     actor.ActorID(),
		Action:     models.AuditActionUpdatePhoto,
		EntityType: models.EntityEmployee,
		EntityID:   strconv.Itoa(id),
		Details:    map[string]interface{}{"filename": photo.Filename},
		Meta:       meta,
	})
	return employee, nil
}

// Delete removes an employee with its skill links and schedules removal of
// its remote media.
func (s *EmployeeService) Delete(ctx context.Context, actor *models.Principal, id int, meta models.RequestMeta) error {
	if err := authz.Authorize(actor, authz.ActionDeleteEmployee); err != nil {
		return err
	}
	employee, err := s.find(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "employee not found")
		}
		return internalError(err, "failed to delete employee")
	}
	s.cache.Invalidate(ctx, employeeFiltersPattern)

	s.audit.Record(ctx, models.AuditEntry{
		UserID:     actor.ActorID(),
		Action:     models.AuditActionDeleteEmployee,
		EntityType: models.EntityEmployee,
		EntityID:   strconv.Itoa(id),
		Details:    map[string]interface{}{"name": employee.FullName()},
		Meta:       meta,
	})

	s.scheduleCleanup(employee)
	return nil
}

func (s *EmployeeService) scheduleCleanup(employee *models.Employee) {
	var paths []string
	if employee.PhotoPath != nil {
		paths = append(paths, PhotoObjectPath(employee.ID))
	}
	if employee.QRCodePath != nil {
		paths = append(paths, QRCodeObjectPath(employee.ID))
	}
	if len(paths) == 0 || s.queue == nil {
		return
	}
	if _, err := s.queue.Enqueue(jobs.Job{Type: JobTypeMediaCleanup, Payload: MediaCleanup{Paths: paths}}); err != nil {
		s.logger.Warn("media cleanup not scheduled", zap.Int("employee_id", employee.ID), zap.Error(err))
	}
}

// PublicProfile returns the anonymous view of an employee.
func (s *EmployeeService) PublicProfile(ctx context.Context, id int) (*models.PublicProfile, error) {
	if err := authz.Authorize(nil, authz.ActionViewPublicProfile); err != nil {
		return nil, err
	}
	employee, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	skills, err := s.skills.ListByEmployee(ctx, id)
	if err != nil {
		return nil, internalError(err, "failed to load employee skills")
	}
	profile := &models.PublicProfile{
		ID:         employee.ID,
		FirstName:  employee.FirstName,
		LastName:   employee.LastName,
		Position:   employee.Position,
		Department: employee.Department,
		PhotoPath:  employee.PhotoPath,
		Skills:     make([]models.PublicSkillLevel, 0, len(skills)),
	}
	for _, skill := range skills {
		profile.Skills = append(profile.Skills, models.PublicSkillLevel{
			SkillName: skill.SkillName,
			Category:  skill.Category,
			Level:     string(skill.Level),
		})
	}
	return profile, nil
}

func (s *EmployeeService) find(ctx context.Context, id int) (*models.Employee, error) {
	return findEmployee(ctx, s.repo, id)
}

func findEmployee(ctx context.Context, repo employeeLookup, id int) (*models.Employee, error) {
	employee, err := repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "employee not found")
		}
		return nil, internalError(err, "failed to load employee")
	}
	return employee, nil
}
