package main

import (
	"errors"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/bigkaa/workrecords/internal/config"
	"github.com/bigkaa/workrecords/internal/database"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Применить миграции PostgreSQL и завершиться",
	Args:  cobra.NoArgs,
	RunE: func(_ *cobra.Command, _ []string) error {
		cfg, logger, err := setup()
		if err != nil {
			return err
		}
		if cfg.StoreDriver != config.StoreDriverPostgres {
			return errors.New("миграции применимы только к WR_STORE_DRIVER=postgres")
		}
		if err := database.Migrate(cfg, logger); err != nil {
			return err
		}
		logger.Info("Миграции применены", slog.String("db_host", cfg.DBHost))
		return nil
	},
}
