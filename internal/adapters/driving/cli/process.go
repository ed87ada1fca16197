package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/gleanly/glean/internal/core/domain"
	"github.com/gleanly/glean/internal/core/ports/driving"
	"github.com/gleanly/glean/internal/core/services"
)

var processCmd = &cobra.Command{
	Use:   "process [dir-or-file]",
	Short: "Process OCR'd fragments into organised notes",
	Long: `Runs the pipeline once over the given ingest directory or a single
fragment file. Items already processed with unchanged content are
skipped without calling the AI providers.`,
	Args: cobra.ExactArgs(1),
	RunE: runProcess,
}

func init() {
	rootCmd.AddCommand(processCmd)
}

func runProcess(cmd *cobra.Command, args []string) error {
	if err := initServices(); err != nil {
		return err
	}
	if pipelineService == nil {
		return errors.New("pipeline not configured")
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	path := args[0]

	if services.IsFragmentFile(path) {
		fragment, err := services.ReadFragment(path)
		if err != nil {
			return err
		}
		result, err := pipelineService.ProcessOne(ctx, fragment)
		if err != nil {
			return fmt.Errorf("process failed: %w", err)
		}
		printItemResult(cmd, result)
		return nil
	}

	fragments, err := services.ReadFragmentDir(path)
	if err != nil {
		return err
	}
	if len(fragments) == 0 {
		cmd.Println("No fragments found.")
		return nil
	}

	cmd.Printf("Processing %d fragments...\n", len(fragments))

	report, err := pipelineService.ProcessBatch(ctx, fragments)
	if err != nil {
		return fmt.Errorf("process failed: %w", err)
	}

	printReport(cmd, report)
	return nil
}

// printItemResult renders one item's outcome.
func printItemResult(cmd *cobra.Command, result driving.ItemResult) {
	switch {
	case result.Skipped:
		cmd.Printf("  %s: skipped (already processed)\n", result.SourceID)
	case result.State == domain.StateFailed:
		cmd.Printf("  %s: failed: %s\n", result.SourceID, result.Err)
	case result.SupersededID != "":
		cmd.Printf("  %s: %s (superseded %s)\n", result.SourceID, result.Outcome, result.SupersededID)
	default:
		cmd.Printf("  %s: %s\n", result.SourceID, result.Outcome)
	}
}

// printReport renders the run summary.
func printReport(cmd *cobra.Command, report *driving.BatchReport) {
	for i := range report.Items {
		printItemResult(cmd, report.Items[i])
	}

	cmd.Println()
	cmd.Printf("Run %s finished in %s\n", report.RunID, report.Finished.Sub(report.Started).Round(time.Millisecond))
	cmd.Printf("  saved: %d  unclassified: %d  failed: %d  skipped: %d\n",
		report.Count(domain.OutcomeSaved),
		report.Count(domain.OutcomeUnclassified),
		report.Count(domain.OutcomeFailed),
		report.SkippedCount())
	if notesDir != "" {
		cmd.Printf("Notes written to %s\n", notesDir)
	}
}
