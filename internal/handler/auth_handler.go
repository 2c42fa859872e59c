package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/STS-Engineer/Skill-Matrix/internal/models"
	appErrors "github.com/STS-Engineer/Skill-Matrix/pkg/errors"
	"github.com/STS-Engineer/Skill-Matrix/pkg/response"
)

type authService interface {
	Register(ctx context.Context, req models.RegisterRequest, meta models.RequestMeta) (*models.User, error)
	Login(ctx context.Context, req models.LoginRequest, meta models.RequestMeta) (*models.LoginResponse, error)
	Logout(ctx context.Context, principal *models.Principal, meta models.RequestMeta) error
}

// CookieConfig controls the session cookie.
type CookieConfig struct {
	Name   string
	Secure bool
}

// AuthHandler wires HTTP endpoints to the auth service.
type AuthHandler struct {
	service authService
	cookie  CookieConfig
	tr      Translator
}

// NewAuthHandler creates a new handler.
func NewAuthHandler(svc authService, cookie CookieConfig, tr Translator) *AuthHandler {
	return &AuthHandler{service: svc, cookie: cookie, tr: tr}
}

// Register godoc
// @Summary Register account
// @Description Create a user account when self registration is enabled
// @Tags Authentication
// @Accept json
// @Produce json
// @Param payload body models.RegisterRequest true "Registration payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /auth/register [post]
func (h *AuthHandler) Register(c *gin.Context) {
	var req models.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid registration payload"))
		return
	}

	user, err := h.service.Register(c.Request.Context(), req, requestMeta(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, user, flash(c, h.tr, response.LevelSuccess, "auth.registered"))
}

// Login godoc
// @Summary Authenticate user
// @Description Authenticate user by email and password and open a session
// @Tags Authentication
// @Accept json
// @Produce json
// @Param payload body models.LoginRequest true "Login payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid login payload"))
		return
	}

	res, err := h.service.Login(c.Request.Context(), req, requestMeta(c))
	if err != nil {
		if appErrors.Is(err, appErrors.ErrInvalidCredentials) {
			response.Error(c, err, response.Messages(flash(c, h.tr, response.LevelDanger, "auth.invalid_credentials")))
			return
		}
		response.Error(c, err)
		return
	}

	h.setCookie(c, res.Token, res.ExpiresAt)
	response.JSON(c, http.StatusOK, res, nil, response.Messages(flash(c, h.tr, response.LevelSuccess, "auth.logged_in", res.User.Username)))
}

// Logout godoc
// @Summary Sign out
// @Description End the current session
// @Tags Authentication
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /auth/logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	if err := h.service.Logout(c.Request.Context(), principalFrom(c), requestMeta(c)); err != nil {
		response.Error(c, err)
		return
	}
	h.clearCookie(c)
	response.JSON(c, http.StatusOK, nil, nil, response.Messages(flash(c, h.tr, response.LevelSuccess, "auth.logged_out")))
}

// Me godoc
// @Summary Current principal
// @Description Return the signed in user
// @Tags Authentication
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /auth/me [get]
func (h *AuthHandler) Me(c *gin.Context) {
	principal := principalFrom(c)
	if !principal.Authenticated() {
		response.Error(c, appErrors.ErrNotAuthenticated)
		return
	}
	response.JSON(c, http.StatusOK, principal, nil)
}

func (h *AuthHandler) setCookie(c *gin.Context, token string, expiresAt *time.Time) {
	if h.cookie.Name == "" {
		return
	}
	maxAge := 0
	if expiresAt != nil {
		maxAge = int(time.Until(*expiresAt).Seconds())
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.cookie.Name, token, maxAge, "/", "", h.cookie.Secure, true)
}

func (h *AuthHandler) clearCookie(c *gin.Context) {
	if h.cookie.Name == "" {
		return
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.cookie.Name, "", -1, "/", "", h.cookie.Secure, true)
}
