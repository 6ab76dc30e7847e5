package main

// Run database migrations:
//   go run ./cmd/migrate up
//   go run ./cmd/migrate down
//   go run ./cmd/migrate status

import (
	"context"
	"database/sql"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"summary-backend/internal/shared/config"
	"summary-backend/internal/shared/storage/db"
	"summary-backend/internal/shared/telemetry"
)

func main() {
	var envFile string

	rootCmd := &cobra.Command{
		Use:          "migrate",
		Short:        "manage the database schema",
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "optional env file; process environment wins")

	command := func(use, short string, fn func(context.Context, *sql.DB) error) *cobra.Command {
		return &cobra.Command{
			Use:   use,
			Short: short,
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return withDB(cmd.Context(), envFile, fn)
			},
		}
	}
	rootCmd.AddCommand(
		command("up", "apply all pending migrations", db.RunMigrations),
		command("down", "roll back the latest migration", db.RollbackMigration),
		command("status", "print migration status", db.MigrationStatus),
	)

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		telemetry.L().Error("migrate failed", zap.Error(err))
		os.Exit(1)
	}
}

func withDB(ctx context.Context, envFile string, fn func(context.Context, *sql.DB) error) error {
	cfg, err := config.Load(envFile)
	if err != nil {
		return err
	}
	if err := telemetry.Init(cfg.Env); err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer telemetry.Sync()

	if cfg.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	opts := db.OptionsFromEnv(db.DefaultMigrateOptions())
	sqlDB, err := db.Connect(ctx, cfg.DatabaseURL, opts)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer sqlDB.Close()

	return fn(ctx, sqlDB)
}
