package cli

import (
	"context"
	"errors"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/gleanly/glean/internal/core/services"
	"github.com/gleanly/glean/internal/watcher"
)

var watchCmd = &cobra.Command{
	Use:   "watch [dir]",
	Short: "Watch an ingest directory and process new fragments",
	Long: `Processes everything currently in the directory, then keeps running
and processes fragment files as they appear. Stop with Ctrl-C.`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	if err := initServices(); err != nil {
		return err
	}
	if pipelineService == nil {
		return errors.New("pipeline not configured")
	}

	dir := args[0]

	w, err := watcher.New(dir, services.IsFragmentFile)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cmd.Printf("Watching %s (Ctrl-C to stop)\n", dir)

	loop := services.NewWatchService(pipelineService, w, dir)
	if err := loop.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	cmd.Println("Watch stopped.")
	return nil
}
