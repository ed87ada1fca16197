package services

import (
	"context"
	"errors"

	"github.com/gleanly/glean/internal/core/ports/driving"
	"github.com/gleanly/glean/internal/logger"
)

// Ensure WatchService implements the interface.
var _ driving.WatchLoop = (*WatchService)(nil)

// PathSource supplies file paths of newly dropped fragments.
type PathSource interface {
	// Paths returns the channel of settled file paths.
	Paths() <-chan string

	// Run dispatches paths until ctx is cancelled.
	Run(ctx context.Context) error
}

// WatchService runs the pipeline indefinitely: one initial batch
// over the ingest directory's existing files, then one state-machine
// entry per newly detected item. Items already settled in the
// processed set are skipped by the pipeline itself, so restarting
// the watch loop is cheap.
type WatchService struct {
	pipeline driving.Pipeline
	source   PathSource
	dir      string
}

// NewWatchService creates a watch loop over dir.
func NewWatchService(pipeline driving.Pipeline, source PathSource, dir string) *WatchService {
	return &WatchService{pipeline: pipeline, source: source, dir: dir}
}

// Run blocks until ctx is cancelled.
func (s *WatchService) Run(ctx context.Context) error {
	// Process whatever is already in the directory first, mirroring
	// a one-shot batch run.
	fragments, err := ReadFragmentDir(s.dir)
	if err != nil {
		return err
	}
	if len(fragments) > 0 {
		report, err := s.pipeline.ProcessBatch(ctx, fragments)
		if err != nil {
			return err
		}
		logger.Info("initial scan: %d items, %d skipped", len(report.Items), report.SkippedCount())
	}

	watchErr := make(chan error, 1)
	go func() {
		watchErr <- s.source.Run(ctx)
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-watchErr:
			if errors.Is(err, context.Canceled) {
				return err
			}
			return err
		case path := <-s.source.Paths():
			fragment, err := ReadFragment(path)
			if err != nil {
				logger.Warn("skipping %s: %v", path, err)
				continue
			}
			result, err := s.pipeline.ProcessOne(ctx, fragment)
			if err != nil {
				logger.Warn("process %s: %v", fragment.Source, err)
				continue
			}
			logger.Info("processed %s: %s", result.SourceID, result.State)
		}
	}
}
