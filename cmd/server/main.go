// Package main is the entry point for the utility lineups server.
//
// The main package stays minimal: it parses flags, loads configuration,
// builds the logger and hands off to internal/server. All actual logic lives
// in imported packages.
//
// COMMANDS:
//
//	lineups serve    run the HTTP server (default)
//	lineups migrate  apply database migrations and exit
//	lineups version  print version information
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sakif/utility-lineups/internal/config"
	sqliteRepo "github.com/sakif/utility-lineups/internal/repository/sqlite"
	"github.com/sakif/utility-lineups/internal/server"
)

const (
	Version   = "0.1.0"
	BuildTime = "dev"
	appName   = "lineups"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var (
		configPath string
		logLevel   string
	)

	serve := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), configPath, logLevel)
		},
	}

	cmd := &cobra.Command{
		Use:   appName,
		Short: "Utility lineups server",
		Long: `Serves the utility lineups API: accounts and sessions, grenade
lineups per map with throwing points and media, and share codes.

Unverified accounts may create one utility and one throwing point until
they verify their email.`,
		SilenceUsage: true,
		RunE:         serve.RunE,
	}

	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file path (YAML)")
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error); overrides config")

	cmd.AddCommand(serve)
	cmd.AddCommand(&cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrate(cmd.Context(), configPath, logLevel)
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("%s version %s (build: %s)\n", appName, Version, BuildTime)
		},
	})

	return cmd
}

// setup loads config and builds the logger. The --log-level flag wins over
// the config file and LOG_LEVEL.
func setup(configPath, logLevel string) (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	return cfg, newLogger(cfg.LogLevel), nil
}

func newLogger(levelName string) *slog.Logger {
	level := slog.LevelInfo
	switch strings.ToLower(levelName) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	return logger
}

func runServe(ctx context.Context, configPath, logLevel string) error {
	cfg, logger, err := setup(configPath, logLevel)
	if err != nil {
		return err
	}

	srv, err := server.New(ctx, cfg, logger, server.Options{})
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}

	// Start blocks until SIGINT/SIGTERM.
	return srv.Start(ctx)
}

func runMigrate(ctx context.Context, configPath, logLevel string) error {
	cfg, logger, err := setup(configPath, logLevel)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0o755); err != nil {
		return fmt.Errorf("creating database directory: %w", err)
	}
	conn, err := sqliteRepo.Open(cfg.DBPath)
	if err != nil {
		return err
	}
	defer conn.Close()

	if err := sqliteRepo.Migrate(ctx, conn); err != nil {
		return fmt.Errorf("migrating: %w", err)
	}
	logger.Info("migrations applied", slog.String("database", cfg.DBPath))
	return nil
}
