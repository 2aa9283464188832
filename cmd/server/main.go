package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/ckfr/ops-allocation/internal/config"
	"github.com/ckfr/ops-allocation/internal/database"
	"github.com/ckfr/ops-allocation/internal/logger"
	"github.com/ckfr/ops-allocation/internal/repository"
	"github.com/ckfr/ops-allocation/internal/service"
)

var envFile string

func main() {
	rootCmd := &cobra.Command{
		Use:   "opsctl",
		Short: "Crew allocation service for community operations",
		Long: `opsctl serves the crew allocation API and runs its maintenance tasks:
schema migration, starter seeding, catalog import and slot reconciliation.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return config.LoadEnvFile(envFile)
		},
	}
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file loaded before reading the environment")

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(seedCmd())
	rootCmd.AddCommand(reconcileCmd())
	rootCmd.AddCommand(importCatalogCmd())
	rootCmd.AddCommand(createUserCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// app holds what every command needs once configuration is loaded.
type app struct {
	cfg config.Config
	db  *sql.DB
	log *slog.Logger
}

// setup loads the configuration, installs the logger, opens the configured
// database and brings its schema up to date.
func setup(ctx context.Context) (*app, error) {
	cfg := config.Load()
	log := logger.Init(cfg.Env)

	var (
		db  *sql.DB
		err error
	)
	switch cfg.DBDriver {
	case config.DriverSQLite:
		db, err = database.OpenSQLite(cfg.SQLitePath)
	default:
		db, err = database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	}
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", cfg.DBDriver, err)
	}
	if err := database.Migrate(ctx, db, cfg.DBDriver); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &app{cfg: cfg, db: db, log: log}, nil
}

func (a *app) close() { _ = a.db.Close() }

func (a *app) reconciler() *service.Reconciler {
	return service.NewReconciler(repository.NewSlotRepo(a.db), repository.NewTemplateRepo(a.db), a.log)
}

func (a *app) catalog() *service.CatalogService {
	return service.NewCatalogService(repository.NewShipRepo(a.db), repository.NewTemplateRepo(a.db), a.reconciler(), a.log)
}
