package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var clearYes bool

var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove all processed data",
	Long: `Removes all stored fragments, embeddings and processed-set entries.
Rendered markdown documents are left in place. This cannot be undone.`,
	RunE: runClear,
}

func init() {
	clearCmd.Flags().BoolVarP(&clearYes, "yes", "y", false, "skip confirmation")
	rootCmd.AddCommand(clearCmd)
}

func runClear(cmd *cobra.Command, _ []string) error {
	if err := initDataServices(); err != nil {
		return err
	}
	if pipelineService == nil {
		return errors.New("pipeline not configured")
	}

	if !clearYes {
		cmd.Print("Remove all processed data? [y/N]: ")
		var answer string
		fmt.Fscanln(cmd.InOrStdin(), &answer)
		if answer != "y" && answer != "Y" && answer != "yes" {
			cmd.Println("Aborted.")
			return nil
		}
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	if err := pipelineService.Clear(ctx); err != nil {
		return fmt.Errorf("clear failed: %w", err)
	}

	cmd.Println("All processed data removed.")
	return nil
}
