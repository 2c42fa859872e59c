package main

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/STS-Engineer/Skill-Matrix/internal/repository"
	"github.com/STS-Engineer/Skill-Matrix/internal/service"
	"github.com/STS-Engineer/Skill-Matrix/pkg/database"
)

var seedAdmin struct {
	username string
	email    string
	password string
}

var seedAdminCmd = &cobra.Command{
	Use:   "seed-admin",
	Short: "Create the first administrator account",
	Long: `Creates an admin account. Fails when the email or username is taken.
Flags fall back to ADMIN_USERNAME, ADMIN_EMAIL and ADMIN_PASSWORD.`,
	RunE: runSeedAdmin,
}

func init() {
	flags := seedAdminCmd.Flags()
	flags.StringVar(&seedAdmin.username, "username", "", "admin username")
	flags.StringVar(&seedAdmin.email, "email", "", "admin email")
	flags.StringVar(&seedAdmin.password, "password", "", "admin password")
}

func runSeedAdmin(cmd *cobra.Command, _ []string) error {
	cfg, logr, err := bootstrap()
	if err != nil {
		return err
	}
	defer logr.Sync() //nolint:errcheck

	username := firstNonEmpty(seedAdmin.username, cfg.Admin.Username)
	email := firstNonEmpty(seedAdmin.email, cfg.Admin.Email)
	password := firstNonEmpty(seedAdmin.password, cfg.Admin.Password)
	if username == "" || email == "" || password == "" {
		return errors.New("username, email and password are required")
	}

	db, err := database.NewPostgres(cmd.Context(), cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	auth := service.NewAuthService(repository.NewUserRepository(db), nil, nil, validator.New(), logr, service.AuthConfig{
		Secret: cfg.Session.Secret,
	})
	user, err := auth.SeedAdmin(cmd.Context(), username, email, password)
	if err != nil {
		return fmt.Errorf("seed admin: %w", err)
	}
	logr.Info("admin account ready", zap.String("user_id", user.ID), zap.String("email", user.Email))
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
