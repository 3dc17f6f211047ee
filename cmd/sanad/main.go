package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/sanadlabs/sanad/cmd/sanad/commands"
	"github.com/sanadlabs/sanad/logger"
)

var (
	verboseFlag int
	jsonLogFlag bool
)

var rootCmd = &cobra.Command{
	Use:   "sanad",
	Short: "SANAD - Cross-source economic data triangulation",
	Long: `SANAD - Ingestion and triangulation of conflicting economic data.

SANAD pulls economic indicators from heterogeneous sources on their own
cadences, stores raw and normalized data durably, and triangulates
conflicting reports of the same quantity into confidence-scored values
with auditable provenance.

Available commands:
  catalog  - Load and inspect the source catalog
  ingest   - Run and inspect source ingestion
  validate - Triangulate and score stored data
  correct  - Record a human correction
  db       - Manage the SANAD database

Examples:
  sanad catalog load               # Validate and load sources.toml
  sanad ingest run                 # Start the polling loop
  sanad ingest trigger cby_aden    # Run one source now
  sanad validate run fx_rate_usd   # Triangulate an indicator
  sanad db stats                   # Show database statistics`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := logger.Initialize(jsonLogFlag, verboseFlag); err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logger.Cleanup()
	},
}

func init() {
	rootCmd.PersistentFlags().CountVarP(&verboseFlag, "verbose", "v", "Increase output verbosity (repeat for more detail)")
	rootCmd.PersistentFlags().BoolVarP(&jsonLogFlag, "json", "j", false, "Emit logs as JSON")

	rootCmd.AddCommand(commands.CatalogCmd)
	rootCmd.AddCommand(commands.IngestCmd)
	rootCmd.AddCommand(commands.ValidateCmd)
	rootCmd.AddCommand(commands.CorrectCmd)
	rootCmd.AddCommand(commands.DbCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
