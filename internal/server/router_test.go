package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/STS-Engineer/Skill-Matrix/internal/handler"
	"github.com/STS-Engineer/Skill-Matrix/internal/models"
	"github.com/STS-Engineer/Skill-Matrix/internal/service"
	"github.com/STS-Engineer/Skill-Matrix/pkg/i18n"
)

type tokenResolver map[string]*models.Principal

func (r tokenResolver) Resolve(_ context.Context, token string) (*models.Principal, error) {
	return r[token], nil
}

type recordingAudit struct {
	entries []models.AuditEntry
}

func (r *recordingAudit) Record(_ context.Context, entry models.AuditEntry) {
	r.entries = append(r.entries, entry)
}

func newTestRouter(t *testing.T, audit *recordingAudit) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	bundle, err := i18n.NewBundle(i18n.English)
	require.NoError(t, err)

	resolver := tokenResolver{
		"user-token":  {UserID: "u1", Username: "ana", Role: models.RoleUser},
		"admin-token": {UserID: "a1", Username: "root", Role: models.RoleAdmin},
	}
	// Services are nil: every request below is settled by the guard before a
	// handler runs.
	return NewRouter(
		Options{APIPrefix: "/api/v1", CookieName: "session", AuditDenied: true},
		Dependencies{Resolver: resolver, Audit: audit, Bundle: bundle, Metrics: service.NewMetricsService()},
		Handlers{
			Auth:      handler.NewAuthHandler(nil, handler.CookieConfig{Name: "session"}, bundle),
			Users:     handler.NewUserHandler(nil, bundle),
			Audit:     handler.NewAuditHandler(nil),
			Employees: handler.NewEmployeeHandler(nil, nil, nil, nil, bundle),
			Skills:    handler.NewSkillHandler(nil, nil, nil, bundle),
			Metrics:   handler.NewMetricsHandler(service.NewMetricsService(), nil),
		},
	)
}

func serve(router *gin.Engine, method, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestRouterRequiresSessionForAuthenticatedRoutes(t *testing.T) {
	router := newTestRouter(t, &recordingAudit{})
	routes := []struct{ method, path string }{
		{http.MethodGet, "/api/v1/employees"},
		{http.MethodPost, "/api/v1/employees"},
		{http.MethodGet, "/api/v1/employees/export"},
		{http.MethodGet, "/api/v1/employees/7"},
		{http.MethodPost, "/api/v1/employees/7/photo"},
		{http.MethodGet, "/api/v1/employees/7/badge"},
		{http.MethodPost, "/api/v1/employees/7/skills"},
		{http.MethodGet, "/api/v1/skills"},
		{http.MethodPost, "/api/v1/skills"},
		{http.MethodPost, "/api/v1/auth/logout"},
		{http.MethodGet, "/api/v1/auth/me"},
		{http.MethodDelete, "/api/v1/employees/7"},
		{http.MethodGet, "/api/v1/audit-logs"},
	}
	for _, route := range routes {
		w := serve(router, route.method, route.path, "")
		assert.Equal(t, http.StatusUnauthorized, w.Code, "%s %s", route.method, route.path)
		assert.Contains(t, w.Body.String(), `"login":"/api/v1/auth/login"`, "%s %s", route.method, route.path)
	}
}

func TestRouterForbidsAdminRoutesForUsers(t *testing.T) {
	audit := &recordingAudit{}
	router := newTestRouter(t, audit)
	routes := []struct{ method, path string }{
		{http.MethodDelete, "/api/v1/employees/7"},
		{http.MethodPatch, "/api/v1/employees/7"},
		{http.MethodDelete, "/api/v1/skills/3"},
		{http.MethodGet, "/api/v1/users"},
		{http.MethodPatch, "/api/v1/users/u2/role"},
		{http.MethodGet, "/api/v1/audit-logs"},
	}
	for _, route := range routes {
		w := serve(router, route.method, route.path, "user-token")
		assert.Equal(t, http.StatusForbidden, w.Code, "%s %s", route.method, route.path)
	}

	require.Len(t, audit.entries, len(routes))
	first := audit.entries[0]
	assert.Equal(t, models.AuditActionAccessDenied, first.Action)
	assert.Equal(t, models.EntityRoute, first.EntityType)
	assert.Equal(t, "/api/v1/employees/:id", first.EntityID)
	require.NotNil(t, first.UserID)
	assert.Equal(t, "u1", *first.UserID)
}

func TestRouterRedirectsBrowsersToLogin(t *testing.T) {
	router := newTestRouter(t, &recordingAudit{})
	req := httptest.NewRequest(http.MethodGet, "/api/v1/employees?page=2", nil)
	req.Header.Set("Accept", "text/html")
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusSeeOther, w.Code)
	location := w.Header().Get("Location")
	assert.True(t, strings.HasPrefix(location, "/api/v1/auth/login?next="))
}

func TestRouterOperationalEndpoints(t *testing.T) {
	router := newTestRouter(t, &recordingAudit{})

	assert.Equal(t, http.StatusOK, serve(router, http.MethodGet, "/health", "").Code)
	assert.Equal(t, http.StatusOK, serve(router, http.MethodGet, "/ready", "").Code)
	metrics := serve(router, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, metrics.Code)
	assert.Equal(t, http.StatusNotFound, serve(router, http.MethodGet, "/docs/index.html", "").Code)
}

func TestRouterSetsContentLanguage(t *testing.T) {
	router := newTestRouter(t, &recordingAudit{})
	req := httptest.NewRequest(http.MethodGet, "/api/v1/employees", nil)
	req.Header.Set("Accept-Language", "es-MX,es;q=0.9")
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "es-MX", w.Header().Get("Content-Language"))
}
