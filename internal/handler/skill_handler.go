package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/STS-Engineer/Skill-Matrix/internal/models"
	appErrors "github.com/STS-Engineer/Skill-Matrix/pkg/errors"
	"github.com/STS-Engineer/Skill-Matrix/pkg/response"
)

type skillService interface {
	List(ctx context.Context, actor *models.Principal) ([]models.Skill, error)
	Create(ctx context.Context, actor *models.Principal, req models.CreateSkillRequest, meta models.RequestMeta) (*models.Skill, error)
	Delete(ctx context.Context, actor *models.Principal, id int, meta models.RequestMeta) error
}

type assignmentService interface {
	Assign(ctx context.Context, actor *models.Principal, employeeID int, req models.AssignSkillRequest, attachment *models.Upload, meta models.RequestMeta) (*models.AssignedSkill, error)
}

// SkillHandler serves the skills catalogue and skill assessments.
type SkillHandler struct {
	skills      skillService
	assignments assignmentService
	stager      Stager
	tr          Translator
}

// NewSkillHandler constructs a SkillHandler.
func NewSkillHandler(skills skillService, assignments assignmentService, stager Stager, tr Translator) *SkillHandler {
	return &SkillHandler{skills: skills, assignments: assignments, stager: stager, tr: tr}
}

// List godoc
// @Summary List skills
// @Tags Skills
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /skills [get]
func (h *SkillHandler) List(c *gin.Context) {
	skills, err := h.skills.List(c.Request.Context(), principalFrom(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, skills, nil)
}

// Create godoc
// @Summary Add skill
// @Tags Skills
// @Accept json
// @Produce json
// @Param payload body models.CreateSkillRequest true "Skill"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /skills [post]
func (h *SkillHandler) Create(c *gin.Context) {
	var req models.CreateSkillRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid skill payload"))
		return
	}
	skill, err := h.skills.Create(c.Request.Context(), principalFrom(c), req, requestMeta(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, skill, flash(c, h.tr, response.LevelSuccess, "skill.created", skill.SkillName))
}

// Delete godoc
// @Summary Delete skill
// @Tags Skills
// @Produce json
// @Param id path int true "Skill ID"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /skills/{id} [delete]
func (h *SkillHandler) Delete(c *gin.Context) {
	id, err := intParam(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	if err := h.skills.Delete(c.Request.Context(), principalFrom(c), id, requestMeta(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"id": id}, nil, response.Messages(flash(c, h.tr, response.LevelSuccess, "skill.deleted", id)))
}

// Assign godoc
// @Summary Assess a skill
// @Description Record a skill level for an employee with an optional attachment
// @Tags Skills
// @Accept mpfd
// @Produce json
// @Param id path int true "Employee ID"
// @Param skill_id formData int true "Skill ID"
// @Param level formData string true "Level A-E"
// @Param last_assessed formData string false "Assessment date (YYYY-MM-DD)"
// @Param trainer formData string false "Trainer"
// @Param remarks formData string false "Remarks"
// @Param attachment formData file false "Certificate"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /employees/{id}/skills [post]
func (h *SkillHandler) Assign(c *gin.Context) {
	employeeID, err := intParam(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	skillID, err := strconv.Atoi(trimmedForm(c, "skill_id"))
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "skill_id must be a number"))
		return
	}
	req := models.AssignSkillRequest{
		SkillID: skillID,
		Level:   trimmedForm(c, "level"),
		Trainer: trimmedForm(c, "trainer"),
		Remarks: trimmedForm(c, "remarks"),
	}
	if raw := trimmedForm(c, "last_assessed"); raw != "" {
		assessed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "last_assessed must be YYYY-MM-DD"))
			return
		}
		req.LastAssessed = &assessed
	}

	attachment, err := stageFormFile(c, h.stager, "attachment")
	if err != nil {
		response.Error(c, err)
		return
	}

	assigned, err := h.assignments.Assign(c.Request.Context(), principalFrom(c), employeeID, req, attachment, requestMeta(c))
	if err != nil {
		discardStaged(h.stager, attachment)
		response.Error(c, err)
		return
	}
	flashes := []response.Flash{flash(c, h.tr, response.LevelSuccess, "skill.assigned", assigned.SkillName, string(assigned.EmployeeSkill.Level))}
	if assigned.AttachmentFailed {
		flashes = append(flashes, flash(c, h.tr, response.LevelWarning, "upload.attachment_failed"))
	}
	response.Created(c, assigned.EmployeeSkill, flashes...)
}
