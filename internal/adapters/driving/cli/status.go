package cli

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/gleanly/glean/internal/core/domain"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show processed-set counts",
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, _ []string) error {
	if err := initDataServices(); err != nil {
		return err
	}
	if pipelineService == nil {
		return errors.New("pipeline not configured")
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	summary, err := pipelineService.Summary(ctx)
	if err != nil {
		return fmt.Errorf("status failed: %w", err)
	}

	cmd.Println("Processed items")
	cmd.Println("===============")
	cmd.Printf("  Total: %d\n", summary.Total)

	outcomes := make([]string, 0, len(summary.ByOutcome))
	for outcome := range summary.ByOutcome {
		outcomes = append(outcomes, string(outcome))
	}
	sort.Strings(outcomes)
	for _, outcome := range outcomes {
		cmd.Printf("  %s: %d\n", outcome, summary.ByOutcome[domain.Outcome(outcome)])
	}

	cmd.Println()
	cmd.Printf("Embedding index: %d vectors\n", summary.IndexSize)
	return nil
}
