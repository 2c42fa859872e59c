package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	_ "github.com/STS-Engineer/Skill-Matrix/api/swagger"
	"github.com/STS-Engineer/Skill-Matrix/pkg/config"
	"github.com/STS-Engineer/Skill-Matrix/pkg/logger"
)

// @title Personnel Skill Matrix API
// @version 1.0.0
// @description Employees, skills and assessments with role based access and an audit trail
// @BasePath /api/v1
// @schemes http https

var version = "dev"

var rootCmd = &cobra.Command{
	Use:           "skill-matrix",
	Short:         "Personnel skill matrix server",
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func main() {
	rootCmd.AddCommand(serveCmd, migrateCmd, seedAdminCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// bootstrap loads configuration and builds the logger shared by every command.
func bootstrap() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	logr, err := logger.New(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("init logger: %w", err)
	}
	return cfg, logr, nil
}
