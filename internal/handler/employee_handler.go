package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/STS-Engineer/Skill-Matrix/internal/middleware"
	"github.com/STS-Engineer/Skill-Matrix/internal/models"
	appErrors "github.com/STS-Engineer/Skill-Matrix/pkg/errors"
	"github.com/STS-Engineer/Skill-Matrix/pkg/response"
)

type employeeService interface {
	Create(ctx context.Context, actor *models.Principal, req models.CreateEmployeeRequest, photo *models.Upload, meta models.RequestMeta) (*models.CreatedEmployee, error)
	Get(ctx context.Context, actor *models.Principal, id int) (*models.EmployeeDetail, error)
	List(ctx context.Context, actor *models.Principal, filter models.EmployeeFilter) ([]models.Employee, *models.Pagination, error)
	FilterOptions(ctx context.Context, actor *models.Principal) (*models.EmployeeFilterOptions, bool, error)
	UpdateAssignment(ctx context.Context, actor *models.Principal, id int, req models.UpdateEmployeeRequest, meta models.RequestMeta) (*models.Employee, error)
	UpdatePhoto(ctx context.Context, actor *models.Principal, id int, photo models.Upload, meta models.RequestMeta) (*models.Employee, error)
	Delete(ctx context.Context, actor *models.Principal, id int, meta models.RequestMeta) error
	PublicProfile(ctx context.Context, id int) (*models.PublicProfile, error)
}

type badgeService interface {
	Badge(ctx context.Context, actor *models.Principal, id int) ([]byte, string, error)
}

type exportService interface {
	ExportMatrix(ctx context.Context, actor *models.Principal) ([]byte, string, error)
}

// EmployeeHandler serves employee endpoints.
type EmployeeHandler struct {
	service employeeService
	badges  badgeService
	exports exportService
	stager  Stager
	tr      Translator
}

// NewEmployeeHandler constructs an EmployeeHandler.
func NewEmployeeHandler(svc employeeService, badges badgeService, exports exportService, stager Stager, tr Translator) *EmployeeHandler {
	return &EmployeeHandler{service: svc, badges: badges, exports: exports, stager: stager, tr: tr}
}

// List godoc
// @Summary List employees
// @Description Employees filtered by name, position and department
// @Tags Employees
// @Produce json
// @Param search query string false "Name search"
// @Param position query string false "Position"
// @Param department query string false "Department"
// @Param page query int false "Page number"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /employees [get]
func (h *EmployeeHandler) List(c *gin.Context) {
	filter := models.EmployeeFilter{
		Search:     strings.TrimSpace(c.Query("search")),
		Position:   strings.TrimSpace(c.Query("position")),
		Department: strings.TrimSpace(c.Query("department")),
	}
	filter.Page, filter.PageSize = pageParams(c)

	actor := principalFrom(c)
	employees, pagination, err := h.service.List(c.Request.Context(), actor, filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	options, hit, err := h.service.FilterOptions(c.Request.Context(), actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, hit)

	response.JSON(c, http.StatusOK, employees, pagination, withMeta(c, map[string]interface{}{"filters": options}))
}

// Create godoc
// @Summary Add employee
// @Description Create an employee from a multipart form with an optional photo
// @Tags Employees
// @Accept mpfd
// @Produce json
// @Param id formData int true "Employee ID"
// @Param first_name formData string true "First name"
// @Param last_name formData string true "Last name"
// @Param position formData string false "Position"
// @Param department formData string false "Department"
// @Param hire_date formData string false "Hire date (YYYY-MM-DD)"
// @Param photo formData file false "Photo"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /employees [post]
func (h *EmployeeHandler) Create(c *gin.Context) {
	id, err := strconv.Atoi(trimmedForm(c, "id"))
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "id must be a number"))
		return
	}
	req := models.CreateEmployeeRequest{
		ID:         id,
		FirstName:  trimmedForm(c, "first_name"),
		LastName:   trimmedForm(c, "last_name"),
		Position:   trimmedForm(c, "position"),
		Department: trimmedForm(c, "department"),
	}
	if raw := trimmedForm(c, "hire_date"); raw != "" {
		hired, err := time.Parse("2006-01-02", raw)
		if err != nil {
			response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "hire_date must be YYYY-MM-DD"))
			return
		}
		req.HireDate = &hired
	}

	photo, err := stageFormFile(c, h.stager, "photo")
	if err != nil {
		response.Error(c, err)
		return
	}

	created, err := h.service.Create(c.Request.Context(), principalFrom(c), req, photo, requestMeta(c))
	if err != nil {
		discardStaged(h.stager, photo)
		response.Error(c, err)
		return
	}

	flashes := []response.Flash{flash(c, h.tr, response.LevelSuccess, "employee.created", created.Employee.FullName())}
	if created.PhotoFailed {
		flashes = append(flashes, flash(c, h.tr, response.LevelWarning, "upload.photo_failed"))
	}
	if created.QRCodeFailed {
		flashes = append(flashes, flash(c, h.tr, response.LevelWarning, "upload.qr_failed"))
	}
	response.Created(c, created.Employee, flashes...)
}

// Get godoc
// @Summary Employee detail
// @Description Employee with assessed skills
// @Tags Employees
// @Produce json
// @Param id path int true "Employee ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /employees/{id} [get]
func (h *EmployeeHandler) Get(c *gin.Context) {
	id, err := intParam(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	detail, err := h.service.Get(c.Request.Context(), principalFrom(c), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, detail, nil)
}

// UpdateAssignment godoc
// @Summary Edit assignment
// @Description Change an employee's position or department
// @Tags Employees
// @Accept json
// @Produce json
// @Param id path int true "Employee ID"
// @Param payload body models.UpdateEmployeeRequest true "Assignment"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /employees/{id} [patch]
func (h *EmployeeHandler) UpdateAssignment(c *gin.Context) {
	id, err := intParam(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	var req models.UpdateEmployeeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid employee payload"))
		return
	}
	employee, err := h.service.UpdateAssignment(c.Request.Context(), principalFrom(c), id, req, requestMeta(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, employee, nil, response.Messages(flash(c, h.tr, response.LevelSuccess, "employee.updated", employee.FullName())))
}

// UpdatePhoto godoc
// @Summary Replace photo
// @Description Upload a new employee photo
// @Tags Employees
// @Accept mpfd
// @Produce json
// @Param id path int true "Employee ID"
// @Param photo formData file true "Photo"
// @Success 200 {object} response.Envelope
// @Failure 502 {object} response.Envelope
// @Router /employees/{id}/photo [post]
func (h *EmployeeHandler) UpdatePhoto(c *gin.Context) {
	id, err := intParam(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	photo, err := stageFormFile(c, h.stager, "photo")
	if err != nil {
		response.Error(c, err)
		return
	}
	if photo == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "photo is required"))
		return
	}
	employee, err := h.service.UpdatePhoto(c.Request.Context(), principalFrom(c), id, *photo, requestMeta(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, employee, nil, response.Messages(flash(c, h.tr, response.LevelSuccess, "employee.photo_updated", employee.FullName())))
}

// Delete godoc
// @Summary Delete employee
// @Description Remove an employee and its skill assessments
// @Tags Employees
// @Produce json
// @Param id path int true "Employee ID"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /employees/{id} [delete]
func (h *EmployeeHandler) Delete(c *gin.Context) {
	id, err := intParam(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	if err := h.service.Delete(c.Request.Context(), principalFrom(c), id, requestMeta(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"id": id}, nil, response.Messages(flash(c, h.tr, response.LevelSuccess, "employee.deleted", id)))
}

// PublicProfile godoc
// @Summary Public employee profile
// @Description Profile reached from the badge QR code
// @Tags Public
// @Produce json
// @Param id path int true "Employee ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /public/employees/{id} [get]
func (h *EmployeeHandler) PublicProfile(c *gin.Context) {
	id, err := intParam(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	profile, err := h.service.PublicProfile(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, profile, nil)
}

// Badge godoc
// @Summary Download badge
// @Description Printable PDF badge
// @Tags Employees
// @Produce application/pdf
// @Param id path int true "Employee ID"
// @Success 200 {file} binary
// @Failure 404 {object} response.Envelope
// @Router /employees/{id}/badge [get]
func (h *EmployeeHandler) Badge(c *gin.Context) {
	id, err := intParam(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	pdf, filename, err := h.badges.Badge(c.Request.Context(), principalFrom(c), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, filename, "application/pdf", pdf)
}

// Export godoc
// @Summary Export skill matrix
// @Description CSV with one row per employee and one column per skill
// @Tags Employees
// @Produce text/csv
// @Success 200 {file} binary
// @Router /employees/export [get]
func (h *EmployeeHandler) Export(c *gin.Context) {
	payload, filename, err := h.exports.ExportMatrix(c.Request.Context(), principalFrom(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, filename, "text/csv; charset=utf-8", payload)
}
