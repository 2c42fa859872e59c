package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/STS-Engineer/Skill-Matrix/internal/models"
	appErrors "github.com/STS-Engineer/Skill-Matrix/pkg/errors"
	"github.com/STS-Engineer/Skill-Matrix/pkg/response"
)

type userService interface {
	List(ctx context.Context, actor *models.Principal, filter models.UserFilter) ([]models.User, *models.Pagination, error)
	SetRole(ctx context.Context, actor *models.Principal, userID, role string, meta models.RequestMeta) (*models.RoleChange, error)
}

// UserHandler serves role management endpoints.
type UserHandler struct {
	service userService
	tr      Translator
}

// NewUserHandler creates a new user handler.
func NewUserHandler(svc userService, tr Translator) *UserHandler {
	return &UserHandler{service: svc, tr: tr}
}

// List godoc
// @Summary List users
// @Description List users with pagination and filtering
// @Tags Users
// @Produce json
// @Param page query int false "Page number"
// @Param page_size query int false "Page size"
// @Param role query string false "Role filter"
// @Param search query string false "Search term"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /users [get]
func (h *UserHandler) List(c *gin.Context) {
	var filter models.UserFilter
	filter.Page, filter.PageSize = pageParams(c)
	filter.Search = strings.TrimSpace(c.Query("search"))

	if raw := c.Query("role"); raw != "" {
		role, err := models.ParseRole(raw)
		if err != nil {
			response.Error(c, appErrors.Wrap(err, appErrors.ErrInvalidRole.Code, appErrors.ErrInvalidRole.Status, appErrors.ErrInvalidRole.Message))
			return
		}
		filter.Role = &role
	}

	users, pagination, err := h.service.List(c.Request.Context(), principalFrom(c), filter)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, users, pagination)
}

// SetRole godoc
// @Summary Change user role
// @Description Promote or demote a user
// @Tags Users
// @Accept json
// @Produce json
// @Param id path string true "User ID"
// @Param payload body models.UpdateRoleRequest true "Role payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /users/{id}/role [patch]
func (h *UserHandler) SetRole(c *gin.Context) {
	var req models.UpdateRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid role payload"))
		return
	}

	change, err := h.service.SetRole(c.Request.Context(), principalFrom(c), c.Param("id"), req.Role, requestMeta(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, change, nil, response.Messages(
		flash(c, h.tr, response.LevelSuccess, "user.role_changed", change.UserID, change.Old, change.New),
	))
}
