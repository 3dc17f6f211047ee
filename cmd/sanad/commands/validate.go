package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sanadlabs/sanad/validate"
)

// ValidateCmd groups the triangulation and coaching commands.
var ValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Triangulate and score stored data",
	Long: `validate — cross-source triangulation over stored data points

Examples:
  sanad validate run fx_rate_usd                 # Full pass over one indicator
  sanad validate run fx_rate_usd --persist       # ...and store the verdicts
  sanad validate weighted fx_rate_usd 2025-03-01 # Tier-weighted consensus value
  sanad validate score fx_rate_usd cby_sanaa     # Correction-based accuracy score`,
}

var validateRunCmd = &cobra.Command{
	Use:   "run <indicator>",
	Short: "Run a comprehensive validation pass over an indicator",
	Args:  cobra.ExactArgs(1),
	RunE:  runValidateRun,
}

var validateWeightedCmd = &cobra.Command{
	Use:   "weighted <indicator> <date>",
	Short: "Compute the tier-weighted consensus value for one date",
	Args:  cobra.ExactArgs(2),
	RunE:  runValidateWeighted,
}

var validateScoreCmd = &cobra.Command{
	Use:   "score <indicator> <source_id>",
	Short: "Show the correction-based accuracy score for a pairing",
	Args:  cobra.ExactArgs(2),
	RunE:  runValidateScore,
}

var (
	validatePersistFlag   bool
	validateNoAnomalyFlag bool
	validateNoRegimeFlag  bool
)

func init() {
	ValidateCmd.AddCommand(validateRunCmd)
	ValidateCmd.AddCommand(validateWeightedCmd)
	ValidateCmd.AddCommand(validateScoreCmd)
	validateRunCmd.Flags().BoolVar(&validatePersistFlag, "persist", false, "Store each point verdict in the validation results table")
	validateRunCmd.Flags().BoolVar(&validateNoAnomalyFlag, "no-anomalies", false, "Skip the per-source anomaly scan")
	validateRunCmd.Flags().BoolVar(&validateNoRegimeFlag, "no-regimes", false, "Skip the cross-regime spread analysis")
}

func runValidateRun(cmd *cobra.Command, args []string) error {
	a, err := buildApp()
	if err != nil {
		return err
	}
	defer a.Close()

	orch, err := a.validationOrchestrator()
	if err != nil {
		return err
	}

	indicator := args[0]
	batch, err := a.points.ListByIndicator(indicator)
	if err != nil {
		return err
	}
	if len(batch) == 0 {
		return fmt.Errorf("no stored data points for indicator %s", indicator)
	}

	report, err := orch.RunComprehensiveValidation(batch, validate.Options{
		DetectAnomalies: !validateNoAnomalyFlag,
		CheckRegimes:    !validateNoRegimeFlag,
		Persist:         validatePersistFlag,
	})
	if err != nil {
		return err
	}

	fmt.Printf("Indicator:          %s\n", indicator)
	fmt.Printf("Points validated:   %d\n", len(report.Points))
	fmt.Printf("Overall valid:      %t\n", report.OverallValid)
	fmt.Printf("Overall confidence: %.1f\n", report.OverallConfidence)

	flagged := 0
	for _, verdict := range report.Points {
		if len(verdict.Result.Issues) == 0 {
			continue
		}
		flagged++
		fmt.Printf("\n%s %s %s (%.2f):\n",
			verdict.Point.SourceID, verdict.Point.Indicator, verdict.Point.DateKey(), verdict.Point.Value)
		for _, issue := range verdict.Result.Issues {
			fmt.Printf("  [%s] %s: %s\n", issue.Severity, issue.Type, issue.Message)
		}
		for _, rec := range verdict.Result.Recommendations {
			fmt.Printf("  -> %s\n", rec)
		}
	}
	if flagged == 0 {
		fmt.Println("\nNo issues found.")
	}

	if report.Regime != nil {
		fmt.Printf("\nRegime spread: avg %.1f%% max %.1f%% trend %s over %d matched pairs\n",
			report.Regime.Spread.AverageSpread, report.Regime.Spread.MaxSpread,
			report.Regime.Spread.Trend, report.Regime.Spread.MatchedPairs)
	}
	for sourceID, anomalyReport := range report.Anomalies {
		if len(anomalyReport.Anomalies) == 0 {
			continue
		}
		fmt.Printf("\nAnomalies in %s (health %.0f):\n", sourceID, anomalyReport.OverallHealth)
		for _, anomaly := range anomalyReport.Anomalies {
			fmt.Printf("  [%s] %s: %s\n", anomaly.Severity, anomaly.Type, anomaly.Message)
		}
	}
	fmt.Printf("\nCoaching: %d corrections on record, trend %s\n",
		report.Coaching.TotalCorrections, report.Coaching.AccuracyTrend)
	return nil
}

func runValidateWeighted(cmd *cobra.Command, args []string) error {
	a, err := buildApp()
	if err != nil {
		return err
	}
	defer a.Close()

	orch, err := a.validationOrchestrator()
	if err != nil {
		return err
	}

	indicator, date := args[0], args[1]
	day, err := parseDate(date)
	if err != nil {
		return err
	}
	points, err := a.points.ListForDate(indicator, day)
	if err != nil {
		return err
	}
	if len(points) == 0 {
		return fmt.Errorf("no data points for %s on %s", indicator, date)
	}

	weighted := orch.Verifier().CalculateWeightedValue(points)
	fmt.Printf("%s on %s: %.2f (confidence %.1f, sources: %v)\n",
		indicator, date, weighted.Value, weighted.Confidence, weighted.SourcesUsed)
	return nil
}

func runValidateScore(cmd *cobra.Command, args []string) error {
	a, err := buildApp()
	if err != nil {
		return err
	}
	defer a.Close()

	orch, err := a.validationOrchestrator()
	if err != nil {
		return err
	}

	indicator, sourceID := args[0], args[1]
	score := orch.Coach().GetAccuracyScore(indicator, sourceID)
	fmt.Printf("%s / %s: score %.0f over %d corrections\n",
		indicator, sourceID, score.Score, score.TotalCorrections)
	for _, issue := range score.CommonIssues {
		fmt.Printf("  common issue: %s\n", issue)
	}
	for _, rec := range orch.Coach().GetRecommendations(indicator, sourceID) {
		fmt.Printf("  past reason: %s\n", rec)
	}
	return nil
}
