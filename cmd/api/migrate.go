package main

import (
	"database/sql"
	"fmt"
	"os"

	_ "github.com/jackc/pgx/v5/stdlib" // registers "pgx" driver for database/sql
	"github.com/pressly/goose/v3"
	"github.com/spf13/cobra"

	"github.com/pkordes/itinerary-sync/backend/internal/config"
	"github.com/pkordes/itinerary-sync/backend/migrations"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			dsn, err := config.DatabaseURL()
			if err != nil {
				return err
			}
			logger := newLogger(os.Getenv("LOG_LEVEL"))

			db, err := sql.Open("pgx", dsn)
			if err != nil {
				return fmt.Errorf("open database: %w", err)
			}
			defer db.Close()

			provider, err := goose.NewProvider(goose.DialectPostgres, db, migrations.FS)
			if err != nil {
				return fmt.Errorf("create goose provider: %w", err)
			}
			results, err := provider.Up(cmd.Context())
			if err != nil {
				return fmt.Errorf("run migrations: %w", err)
			}
			for _, r := range results {
				logger.Info("migration applied", "source", r.Source.Path, "duration_ms", r.Duration.Milliseconds())
			}
			if len(results) == 0 {
				logger.Info("database already up to date")
			}
			return nil
		},
	}
}
