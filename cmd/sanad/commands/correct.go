package commands

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/sanadlabs/sanad/types"
)

// CorrectCmd records a human correction against a stored data point.
var CorrectCmd = &cobra.Command{
	Use:   "correct <indicator> <source_id> <date> <corrected_value>",
	Short: "Record a human correction for a stored data point",
	Long: `correct — record a human correction and feed the accuracy coach

The original value is read from storage, replaced with the corrected one,
and the correction is appended to the durable log with its reason.

Example:
  sanad correct fx_rate_usd cby_sanaa 2025-03-01 535 --reason "decimal shift in bulletin"`,
	Args: cobra.ExactArgs(4),
	RunE: runCorrect,
}

var correctReasonFlag string

func init() {
	CorrectCmd.Flags().StringVar(&correctReasonFlag, "reason", "", "Why the original value was wrong (required)")
	CorrectCmd.MarkFlagRequired("reason")
}

func runCorrect(cmd *cobra.Command, args []string) error {
	a, err := buildApp()
	if err != nil {
		return err
	}
	defer a.Close()

	indicator, sourceID, dateArg := args[0], args[1], args[2]
	correctedValue, err := strconv.ParseFloat(args[3], 64)
	if err != nil {
		return fmt.Errorf("corrected value %q is not a number", args[3])
	}
	day, err := parseDate(dateArg)
	if err != nil {
		return err
	}

	stored, err := a.points.ListForDate(indicator, day)
	if err != nil {
		return err
	}
	var original *types.DataPoint
	for i := range stored {
		if stored[i].SourceID == sourceID {
			original = &stored[i]
			break
		}
	}
	if original == nil {
		return fmt.Errorf("no stored point for %s/%s on %s", indicator, sourceID, dateArg)
	}

	corrected := *original
	corrected.Value = correctedValue
	if _, err := a.points.Upsert([]types.DataPoint{corrected}); err != nil {
		return err
	}

	orch, err := a.validationOrchestrator()
	if err != nil {
		return err
	}
	rec, err := orch.Coach().RecordCorrection(*original, corrected, correctReasonFlag)
	if err != nil {
		return err
	}

	fmt.Printf("%s: %s/%s %s corrected %.2f -> %.2f\n",
		rec.ID, indicator, sourceID, dateArg, original.Value, correctedValue)
	return nil
}
