package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sanadlabs/sanad/config"
	"github.com/sanadlabs/sanad/db"
	"github.com/sanadlabs/sanad/errors"
	"github.com/sanadlabs/sanad/logger"
)

// DbCmd groups database maintenance commands.
var DbCmd = &cobra.Command{
	Use:   "db",
	Short: "Manage the SANAD database",
	Long: `db — manage the SANAD database

Examples:
  sanad db migrate   # Apply pending schema migrations
  sanad db stats     # Show table row counts and freshness`,
}

var dbMigrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending schema migrations",
	RunE:  runDbMigrate,
}

var dbStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show table row counts and data freshness",
	RunE:  runDbStats,
}

func init() {
	DbCmd.AddCommand(dbMigrateCmd)
	DbCmd.AddCommand(dbStatsCmd)
}

func runDbMigrate(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return errors.Wrap(err, "load configuration")
	}
	database, err := db.OpenWithMigrations(cfg.Database.Path, logger.Logger)
	if err != nil {
		return err
	}
	defer database.Close()

	var version int
	if err := database.QueryRow(`SELECT COALESCE(MAX(version), -1) FROM schema_migrations`).Scan(&version); err != nil {
		return errors.Wrap(err, "read schema version")
	}
	fmt.Printf("Database %s at schema version %d\n", cfg.Database.Path, version)
	return nil
}

func runDbStats(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return errors.Wrap(err, "load configuration")
	}
	database, err := db.OpenWithMigrations(cfg.Database.Path, logger.Logger)
	if err != nil {
		return err
	}
	defer database.Close()

	fmt.Printf("Database: %s\n\n", cfg.Database.Path)
	tables := []string{
		"ingestion_schedules",
		"ingestion_runs",
		"raw_snapshots",
		"data_points",
		"corrections",
		"validation_results",
	}
	for _, table := range tables {
		var count int
		if err := database.QueryRow(`SELECT COUNT(*) FROM ` + table).Scan(&count); err != nil {
			return errors.Wrapf(err, "count rows in %s", table)
		}
		fmt.Printf("%-24s %d\n", table, count)
	}

	var lastRun, lastPoint string
	if err := database.QueryRow(`SELECT COALESCE(MAX(started_at), 'never') FROM ingestion_runs`).Scan(&lastRun); err != nil {
		return errors.Wrap(err, "read last run time")
	}
	if err := database.QueryRow(`SELECT COALESCE(MAX(updated_at), 'never') FROM data_points`).Scan(&lastPoint); err != nil {
		return errors.Wrap(err, "read last data point time")
	}
	fmt.Printf("\nLast run:        %s\n", lastRun)
	fmt.Printf("Last data point: %s\n", lastPoint)
	return nil
}
