// Package server assembles the HTTP engine: middleware chain, guarded routes
// and operational endpoints.
package server

import (
	"context"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/STS-Engineer/Skill-Matrix/internal/authz"
	"github.com/STS-Engineer/Skill-Matrix/internal/handler"
	"github.com/STS-Engineer/Skill-Matrix/internal/middleware"
	"github.com/STS-Engineer/Skill-Matrix/internal/models"
	"github.com/STS-Engineer/Skill-Matrix/internal/service"
	"github.com/STS-Engineer/Skill-Matrix/pkg/i18n"
	"github.com/STS-Engineer/Skill-Matrix/pkg/logger"
	corsmiddleware "github.com/STS-Engineer/Skill-Matrix/pkg/middleware/cors"
	reqidmiddleware "github.com/STS-Engineer/Skill-Matrix/pkg/middleware/requestid"
)

// PrincipalResolver maps a session token to its principal.
type PrincipalResolver interface {
	Resolve(ctx context.Context, token string) (*models.Principal, error)
}

// AuditRecorder records audit entries without failing the caller.
type AuditRecorder interface {
	Record(ctx context.Context, entry models.AuditEntry)
}

// Options carries the router settings taken from configuration.
type Options struct {
	APIPrefix      string
	AllowedOrigins []string
	CookieName     string
	LoginPath      string
	AuditDenied    bool
	ServeDocs      bool
	// MediaDir is served under /media when media is stored locally.
	MediaDir string
}

// Dependencies are the shared collaborators of the middleware chain.
type Dependencies struct {
	Resolver PrincipalResolver
	Audit    AuditRecorder
	Bundle   *i18n.Bundle
	Metrics  *service.MetricsService
	Logger   *zap.Logger
}

// Handlers groups the HTTP handlers mounted by the router.
type Handlers struct {
	Auth      *handler.AuthHandler
	Users     *handler.UserHandler
	Audit     *handler.AuditHandler
	Employees *handler.EmployeeHandler
	Skills    *handler.SkillHandler
	Metrics   *handler.MetricsHandler
}

// NewRouter builds the gin engine. Every API route passes through the guard
// with the action it performs.
func NewRouter(opts Options, deps Dependencies, h Handlers) *gin.Engine {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if opts.LoginPath == "" {
		opts.LoginPath = opts.APIPrefix + "/auth/login"
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(deps.Logger))
	r.Use(corsmiddleware.New(opts.AllowedOrigins))
	r.Use(middleware.Metrics(deps.Metrics))

	r.GET("/health", h.Metrics.Health)
	r.GET("/ready", h.Metrics.Ready)
	r.GET("/metrics", h.Metrics.Prometheus)
	if opts.ServeDocs {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}
	if opts.MediaDir != "" {
		r.Static("/media", opts.MediaDir)
	}

	guard := middleware.NewGuard(opts.LoginPath, deps.Bundle)
	api := r.Group(opts.APIPrefix)
	api.Use(
		middleware.Locale(deps.Bundle),
		middleware.WithResponseMeta(),
		middleware.ResolvePrincipal(deps.Resolver, opts.CookieName),
	)
	if opts.AuditDenied && deps.Audit != nil {
		api.Use(middleware.AuditDenials(deps.Audit))
	}

	auth := api.Group("/auth")
	auth.POST("/register", guard.Require(authz.ActionRegister), h.Auth.Register)
	auth.POST("/login", guard.Require(authz.ActionLogin), h.Auth.Login)
	auth.POST("/logout", guard.Require(authz.ActionLogout), h.Auth.Logout)
	auth.GET("/me", guard.Require(authz.ActionViewOwnProfile), h.Auth.Me)

	users := api.Group("/users")
	users.GET("", guard.Require(authz.ActionChangeRole), h.Users.List)
	users.PATCH("/:id/role", guard.Require(authz.ActionChangeRole), h.Users.SetRole)

	api.GET("/audit-logs", guard.Require(authz.ActionViewAuditLog), h.Audit.List)

	employees := api.Group("/employees")
	employees.GET("", guard.Require(authz.ActionViewListings), h.Employees.List)
	employees.POST("", guard.Require(authz.ActionAddEmployee), h.Employees.Create)
	employees.GET("/export", guard.Require(authz.ActionExportMatrix), h.Employees.Export)
	employees.GET("/:id", guard.Require(authz.ActionViewListings), h.Employees.Get)
	employees.PATCH("/:id", guard.Require(authz.ActionEditEmployeeAssignment), h.Employees.UpdateAssignment)
	employees.DELETE("/:id", guard.Require(authz.ActionDeleteEmployee), h.Employees.Delete)
	employees.POST("/:id/photo", guard.Require(authz.ActionUpdatePhoto), h.Employees.UpdatePhoto)
	employees.GET("/:id/badge", guard.Require(authz.ActionDownloadBadge), h.Employees.Badge)
	employees.POST("/:id/skills", guard.Require(authz.ActionAssignSkill), h.Skills.Assign)

	skills := api.Group("/skills")
	skills.GET("", guard.Require(authz.ActionViewListings), h.Skills.List)
	skills.POST("", guard.Require(authz.ActionAddSkill), h.Skills.Create)
	skills.DELETE("/:id", guard.Require(authz.ActionDeleteSkill), h.Skills.Delete)

	api.GET("/public/employees/:id", guard.Require(authz.ActionViewPublicProfile), h.Employees.PublicProfile)

	return r
}
