// Package cli implements the glean command line interface.
package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/gleanly/glean/internal/adapters/driven/ai"
	"github.com/gleanly/glean/internal/adapters/driven/config/file"
	"github.com/gleanly/glean/internal/adapters/driven/docs/fswriter"
	"github.com/gleanly/glean/internal/adapters/driven/storage/sqlite"
	"github.com/gleanly/glean/internal/core/domain"
	"github.com/gleanly/glean/internal/core/index"
	"github.com/gleanly/glean/internal/core/ports/driving"
	"github.com/gleanly/glean/internal/core/services"
	"github.com/gleanly/glean/internal/logger"
)

// version is set at build time via -ldflags.
var version = "dev"

// Services wired by initServices. Commands nil-check before use so
// tests can substitute mocks.
var (
	pipelineService driving.Pipeline
	settingsService driving.SettingsService
	notesDir        string
	metadataStore   *sqlite.Store
)

var verbose bool

var rootCmd = &cobra.Command{
	Use:   "glean",
	Short: "Turn photographed study material into organised notes",
	Long: `Glean ingests OCR'd study fragments, classifies them as notes or
wrong questions, links related material, and renders organised
markdown documents per subject group.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		logger.SetVerbose(verbose)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// initServices builds the full pipeline against real adapters. It is
// called lazily by commands that need the pipeline, so commands like
// version and settings never touch the AI providers.
func initServices() error {
	if pipelineService != nil {
		return nil
	}

	if err := initSettings(); err != nil {
		return err
	}

	settings, err := settingsService.Get()
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}

	prompts, err := file.NewPromptStore("")
	if err != nil {
		return fmt.Errorf("init prompt store: %w", err)
	}

	classifier, err := ai.CreateAndValidateClassifier(&settings.Classifier, prompts)
	if err != nil {
		return err
	}
	if classifier == nil {
		return fmt.Errorf("%w: no classifier configured. Run 'glean settings classifier' to configure one",
			domain.ErrClassifierUnavailable)
	}
	embedder, err := ai.CreateAndValidateEmbeddingService(&settings.Embedding)
	if err != nil {
		return err
	}
	if embedder == nil {
		return fmt.Errorf("%w: no embedding provider configured. Run 'glean settings embedding' to configure one",
			domain.ErrEmbeddingUnavailable)
	}

	store, err := sqlite.NewStore(settings.Pipeline.DataDir)
	if err != nil {
		return fmt.Errorf("open metadata store: %w", err)
	}
	metadataStore = store

	idx := index.NewMemory(embedder, store.EmbeddingStore())
	if err := idx.Load(context.Background()); err != nil {
		return fmt.Errorf("load embedding index: %w", err)
	}

	writer, err := fswriter.NewWriter(settings.Pipeline.NotesDir)
	if err != nil {
		return fmt.Errorf("init notes writer: %w", err)
	}
	notesDir = writer.Dir()

	classify := services.NewClassifyService(classifier, settings.Classifier.RequestsPerSecond)
	pipelineService = services.NewOrchestrator(
		classify,
		idx,
		store.FragmentStore(),
		store.ProcessedStore(),
		writer,
		settings.Pipeline,
	)

	return nil
}

// initDataServices wires the pipeline against the stores alone, with
// no AI collaborators. Commands that only read or delete stored data
// must work with every provider down.
func initDataServices() error {
	if pipelineService != nil {
		return nil
	}

	if err := initSettings(); err != nil {
		return err
	}

	settings, err := settingsService.Get()
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}

	store, err := sqlite.NewStore(settings.Pipeline.DataDir)
	if err != nil {
		return fmt.Errorf("open metadata store: %w", err)
	}
	metadataStore = store

	idx := index.NewMemory(nil, store.EmbeddingStore())
	if err := idx.Load(context.Background()); err != nil {
		return fmt.Errorf("load embedding index: %w", err)
	}

	writer, err := fswriter.NewWriter(settings.Pipeline.NotesDir)
	if err != nil {
		return fmt.Errorf("init notes writer: %w", err)
	}
	notesDir = writer.Dir()

	pipelineService = services.NewOrchestrator(
		nil,
		idx,
		store.FragmentStore(),
		store.ProcessedStore(),
		writer,
		settings.Pipeline,
	)
	return nil
}

// initSettings wires the settings service alone. Cheaper than
// initServices; used by commands that only read or write config.
func initSettings() error {
	if settingsService != nil {
		return nil
	}

	configStore, err := file.NewConfigStore("")
	if err != nil {
		return fmt.Errorf("open config store: %w", err)
	}

	settingsService = services.NewSettingsService(configStore, ai.NewConfigValidator())
	return nil
}
