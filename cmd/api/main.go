package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/yigit/notespace/internal/bootstrap"
	"github.com/yigit/notespace/internal/pkg/logger"
	"github.com/yigit/notespace/internal/server"
)

// @title NoteSpace API
// @version 1.0
// @description Note sharing backend with AI-synthesized topic summaries

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:5000
// @BasePath /api
// @schemes http https

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description JWT token for authorization

var configPath string

var rootCmd = &cobra.Command{
	Use:           "notespace",
	Short:         "NoteSpace note sharing API server",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runServe,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run migrations and start the HTTP server",
	RunE:  runServe,
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending database migrations and exit",
	RunE:  runMigrate,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", bootstrap.DefaultConfigPath, "path to the YAML config file")
	rootCmd.AddCommand(serveCmd, migrateCmd)
}

func runServe(_ *cobra.Command, _ []string) error {
	srv, err := server.NewServer(configPath)
	if err != nil {
		return err
	}
	return srv.Run()
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	cfg, lgr, err := bootstrap.LoadConfigAndSetupLogger(configPath)
	if err != nil {
		return err
	}

	database, err := bootstrap.ConnectDatabase(cfg, lgr)
	if err != nil {
		return err
	}
	defer database.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return bootstrap.RunMigrations(ctx, database.Pool, lgr)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		logger.Error().Err(err).Msg("Application exited with error")
		os.Exit(1)
	}
	logger.Info().Msg("Application finished gracefully.")
}
