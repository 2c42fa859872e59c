package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/STS-Engineer/Skill-Matrix/internal/handler"
	"github.com/STS-Engineer/Skill-Matrix/internal/repository"
	"github.com/STS-Engineer/Skill-Matrix/internal/server"
	"github.com/STS-Engineer/Skill-Matrix/internal/service"
	"github.com/STS-Engineer/Skill-Matrix/pkg/cache"
	"github.com/STS-Engineer/Skill-Matrix/pkg/config"
	"github.com/STS-Engineer/Skill-Matrix/pkg/database"
	"github.com/STS-Engineer/Skill-Matrix/pkg/i18n"
	"github.com/STS-Engineer/Skill-Matrix/pkg/jobs"
	"github.com/STS-Engineer/Skill-Matrix/pkg/messaging"
	"github.com/STS-Engineer/Skill-Matrix/pkg/storage"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, logr, err := bootstrap()
	if err != nil {
		return err
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()
	if cfg.Database.AutoMigrate {
		result, err := database.Migrate(db)
		if err != nil {
			return err
		}
		logr.Info("migrations applied", zap.Uint("version", result.Version), zap.Bool("changed", result.Changed))
	}

	redisClient, err := cache.NewRedis(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	defer redisClient.Close()

	bundle, err := i18n.NewBundle(cfg.I18n.DefaultLocale)
	if err != nil {
		return err
	}

	var publisher messaging.Publisher
	if cfg.Audit.NATSURL != "" {
		nats, err := messaging.NewNATSPublisher(cfg.Audit.NATSURL, "skill-matrix", logr)
		if err != nil {
			return err
		}
		defer nats.Close() //nolint:errcheck
		publisher = nats
	}

	store, err := newObjectStore(cfg.Media)
	if err != nil {
		return err
	}
	staging, err := storage.NewStagingArea(cfg.Media.StagingDir, cfg.Media.MaxUploadBytes)
	if err != nil {
		return err
	}

	metrics := service.NewMetricsService()
	validate := validator.New()

	userRepo := repository.NewUserRepository(db)
	auditRepo := repository.NewAuditRepository(db)
	employeeRepo := repository.NewEmployeeRepository(db)
	skillRepo := repository.NewSkillRepository(db)
	employeeSkillRepo := repository.NewEmployeeSkillRepository(db)
	sessionRepo := repository.NewSessionRepository(redisClient)
	cacheRepo := repository.NewCacheRepository(redisClient, "skill-matrix:", logr)

	auditSvc := service.NewAuditService(auditRepo, publisher, cfg.Audit.NATSSubject, metrics, logr)
	authSvc := service.NewAuthService(userRepo, sessionRepo, auditSvc, validate, logr, service.AuthConfig{
		Secret:          cfg.Session.Secret,
		SessionTTL:      cfg.Session.TTL,
		AllowSelfSignup: cfg.Auth.AllowSelfSignup,
		Issuer:          "skill-matrix",
	})
	userSvc := service.NewUserService(userRepo, auditSvc, validate, logr)
	mediaSvc := service.NewMediaService(store, staging, metrics, logr)
	cacheSvc := service.NewCacheService(cacheRepo, metrics, cfg.Cache.FilterTTL, logr, cfg.Cache.Enabled)

	cleanup := jobs.NewQueue("media-cleanup", jobs.QueueConfig{
		Workers:    cfg.Media.CleanupWorkers,
		BufferSize: 64,
		MaxRetries: cfg.Media.CleanupRetries,
		RetryDelay: 5 * time.Second,
		Logger:     logr,
	})
	cleanup.Register(service.JobTypeMediaCleanup, mediaSvc.CleanupHandler())
	cleanup.Start(ctx)
	defer cleanup.Stop()

	employeeSvc := service.NewEmployeeService(employeeRepo, employeeSkillRepo, mediaSvc, cacheSvc, cleanup, auditSvc, validate, logr, service.EmployeeConfig{
		PublicBaseURL: cfg.PublicBaseURL,
		FilterTTL:     cfg.Cache.FilterTTL,
	})
	skillSvc := service.NewSkillService(skillRepo, auditSvc, validate, logr)
	assignmentSvc := service.NewEmployeeSkillService(employeeSkillRepo, employeeRepo, skillRepo, mediaSvc, auditSvc, validate, logr)
	exportSvc := service.NewExportService(employeeRepo, skillRepo, employeeSkillRepo, nil, logr)
	badgeSvc := service.NewBadgeService(employeeRepo, nil, service.NewHTTPPhotoFetcher(cfg.Media.FetchTimeout), cfg.PublicBaseURL, logr)

	sweeper := cron.New()
	if _, err := sweeper.AddFunc(cfg.Media.SweepSchedule, func() {
		mediaSvc.SweepStaging(cfg.Media.StagingTTL)
	}); err != nil {
		return fmt.Errorf("schedule staging sweep: %w", err)
	}
	sweeper.Start()
	defer sweeper.Stop()

	var mediaDir string
	if local, ok := store.(*storage.LocalObjectStore); ok {
		mediaDir = local.Dir()
	}

	router := server.NewRouter(
		server.Options{
			APIPrefix:      cfg.APIPrefix,
			AllowedOrigins: cfg.CORS.AllowedOrigins,
			CookieName:     cfg.Session.CookieName,
			AuditDenied:    cfg.Audit.AuditDenied,
			ServeDocs:      cfg.Env != config.EnvProduction,
			MediaDir:       mediaDir,
		},
		server.Dependencies{
			Resolver: authSvc,
			Audit:    auditSvc,
			Bundle:   bundle,
			Metrics:  metrics,
			Logger:   logr,
		},
		server.Handlers{
			Auth:      handler.NewAuthHandler(authSvc, handler.CookieConfig{Name: cfg.Session.CookieName, Secure: cfg.Session.CookieSecure}, bundle),
			Users:     handler.NewUserHandler(userSvc, bundle),
			Audit:     handler.NewAuditHandler(auditSvc),
			Employees: handler.NewEmployeeHandler(employeeSvc, badgeSvc, exportSvc, staging, bundle),
			Skills:    handler.NewSkillHandler(skillSvc, assignmentSvc, staging, bundle),
			Metrics: handler.NewMetricsHandler(metrics, map[string]handler.Pinger{
				"database": db,
				"redis": handler.PingerFunc(func(ctx context.Context) error {
					return redisClient.Ping(ctx).Err()
				}),
			}),
		},
	)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		logr.Info("server starting", zap.String("addr", srv.Addr), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logr.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func newObjectStore(cfg config.MediaConfig) (storage.ObjectStore, error) {
	switch cfg.Provider {
	case config.MediaProviderGitHub:
		return storage.NewGitHubStore(cfg.GitHub, &http.Client{Timeout: 30 * time.Second})
	case config.MediaProviderLocal, "":
		return storage.NewLocalObjectStore(cfg.Local.Dir, cfg.Local.PublicBaseURL)
	default:
		return nil, fmt.Errorf("unknown media provider %q", cfg.Provider)
	}
}
