package commands

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/sanadlabs/sanad/ingest"
	"github.com/sanadlabs/sanad/logger"
)

// IngestCmd groups the ingestion lifecycle commands.
var IngestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Run and inspect source ingestion",
	Long: `ingest — run and inspect source ingestion

Examples:
  sanad ingest run                     # Start the polling loop (Ctrl-C to stop)
  sanad ingest trigger cby_aden        # Run one source now, keep its schedule
  sanad ingest trigger --all           # Backfill every source once
  sanad ingest status                  # Print the operational status report
  sanad ingest gaps cby_aden fx_rate_usd`,
}

var ingestRunCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the steady-state polling loop",
	RunE:  runIngestLoop,
}

var ingestTriggerCmd = &cobra.Command{
	Use:   "trigger [source_id]",
	Short: "Run one source (or all) outside its cadence",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runIngestTrigger,
}

var ingestStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the ingestion status report",
	RunE:  runIngestStatus,
}

var ingestGapsCmd = &cobra.Command{
	Use:   "gaps <source_id> <indicator>",
	Short: "List expected observation dates with no stored data",
	Args:  cobra.ExactArgs(2),
	RunE:  runIngestGaps,
}

var triggerAllFlag bool

func init() {
	IngestCmd.AddCommand(ingestRunCmd)
	IngestCmd.AddCommand(ingestTriggerCmd)
	IngestCmd.AddCommand(ingestStatusCmd)
	IngestCmd.AddCommand(ingestGapsCmd)
	ingestTriggerCmd.Flags().BoolVar(&triggerAllFlag, "all", false, "Run every registered source once")
}

func runIngestLoop(cmd *cobra.Command, args []string) error {
	a, err := buildApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return a.orchestrator.Start(ctx)
}

func runIngestTrigger(cmd *cobra.Command, args []string) error {
	a, err := buildApp()
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.orchestrator.SyncSchedules(time.Now().UTC()); err != nil {
		return err
	}

	if triggerAllFlag {
		results := a.orchestrator.RunAll(cmd.Context())
		for sourceID, result := range results {
			fmt.Printf("%-24s %-8s processed=%d loaded=%d duration=%s\n",
				sourceID, result.Status, result.RecordsProcessed, result.RecordsLoaded,
				result.Duration.Round(time.Millisecond))
		}
		fmt.Printf("\n%d sources run\n", len(results))
		return nil
	}

	if len(args) != 1 {
		return fmt.Errorf("provide a source id or --all")
	}
	result, err := a.orchestrator.TriggerOne(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	fmt.Printf("%s %s: processed=%d loaded=%d duration=%s\n",
		result.RunID, result.Status, result.RecordsProcessed, result.RecordsLoaded,
		result.Duration.Round(time.Millisecond))
	for _, msg := range result.Errors {
		fmt.Printf("  error: %s\n", msg)
	}
	return nil
}

func runIngestStatus(cmd *cobra.Command, args []string) error {
	a, err := buildApp()
	if err != nil {
		return err
	}
	defer a.Close()

	report, err := ingest.StatusReport(a.registry, a.schedules, a.runs, a.cfg.Database.Path, time.Now().UTC())
	if err != nil {
		return err
	}
	fmt.Print(report)
	return nil
}

func runIngestGaps(cmd *cobra.Command, args []string) error {
	a, err := buildApp()
	if err != nil {
		return err
	}
	defer a.Close()

	sourceID, indicator := args[0], args[1]
	conn, ok := a.registry.Connector(sourceID)
	if !ok {
		return fmt.Errorf("source %s is not in the catalog", sourceID)
	}

	report, err := ingest.FindGaps(conn.Config(), indicator, a.points, time.Now().UTC(), logger.Logger)
	if err != nil {
		return err
	}
	fmt.Printf("%s / %s: %d expected, %d present, %d missing\n",
		report.SourceID, report.Indicator, report.Expected, report.Present, len(report.Missing))
	for _, date := range report.Missing {
		fmt.Printf("  %s\n", date)
	}
	return nil
}
