package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gleanly/glean/internal/core/domain"
)

var (
	settingsModel  string
	settingsAPIKey string
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Manage application settings",
	Long: `View and configure the AI providers and pipeline options.

Use subcommands to configure specific settings.`,
	RunE: runSettingsShow,
}

var settingsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current settings",
	RunE:  runSettingsShow,
}

var settingsClassifierCmd = &cobra.Command{
	Use:   "classifier [provider]",
	Short: "Configure the classification provider",
	Long: `Configure the provider used to classify fragments.

Available providers:
  ollama - local Ollama instance (no API key required)
  openai - OpenAI or any chat-completions compatible API`,
	Args: cobra.ExactArgs(1),
	RunE: runSettingsClassifier,
}

var settingsEmbeddingCmd = &cobra.Command{
	Use:   "embedding [provider]",
	Short: "Configure the embedding provider",
	Long:  `Configure the provider used to embed fragments for deduplication and linking.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runSettingsEmbedding,
}

var settingsValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configured providers",
	Long:  `Checks the configured providers are reachable.`,
	RunE:  runSettingsValidate,
}

func init() {
	for _, c := range []*cobra.Command{settingsClassifierCmd, settingsEmbeddingCmd} {
		c.Flags().StringVar(&settingsModel, "model", "", "model to use (provider default if empty)")
		c.Flags().StringVar(&settingsAPIKey, "api-key", "", "API key for cloud providers")
	}

	settingsCmd.AddCommand(settingsShowCmd)
	settingsCmd.AddCommand(settingsClassifierCmd)
	settingsCmd.AddCommand(settingsEmbeddingCmd)
	settingsCmd.AddCommand(settingsValidateCmd)
	rootCmd.AddCommand(settingsCmd)
}

func runSettingsShow(cmd *cobra.Command, _ []string) error {
	if err := initSettings(); err != nil {
		return err
	}
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	settings, err := settingsService.Get()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}

	cmd.Println("Current Settings")
	cmd.Println("================")
	cmd.Println()

	cmd.Println("[Classifier]")
	printProvider(cmd, settings.Classifier.Provider, settings.Classifier.Model,
		settings.Classifier.BaseURL, settings.Classifier.APIKey, settings.Classifier.IsConfigured())
	if settings.Classifier.RequestsPerSecond > 0 {
		cmd.Printf("  Rate limit: %.1f req/s\n", settings.Classifier.RequestsPerSecond)
	}
	cmd.Println()

	cmd.Println("[Embedding]")
	printProvider(cmd, settings.Embedding.Provider, settings.Embedding.Model,
		settings.Embedding.BaseURL, settings.Embedding.APIKey, settings.Embedding.IsConfigured())
	cmd.Println()

	cmd.Println("[Pipeline]")
	cmd.Printf("  Duplicate threshold: %.2f\n", settings.Pipeline.DuplicateThreshold)
	cmd.Printf("  Link threshold: %.2f\n", settings.Pipeline.LinkThreshold)
	cmd.Printf("  Workers: %d\n", settings.Pipeline.Workers)
	cmd.Printf("  Max attempts: %d\n", settings.Pipeline.MaxAttempts)
	cmd.Printf("  Retry backoff: %s\n", settings.Pipeline.RetryBackoff)
	if settings.Pipeline.NotesDir != "" {
		cmd.Printf("  Notes dir: %s\n", settings.Pipeline.NotesDir)
	}
	if settings.Pipeline.DataDir != "" {
		cmd.Printf("  Data dir: %s\n", settings.Pipeline.DataDir)
	}

	return nil
}

func printProvider(cmd *cobra.Command, provider domain.AIProvider, model, baseURL, apiKey string, configured bool) {
	cmd.Printf("  Provider: %s\n", provider)
	cmd.Printf("  Model: %s\n", model)
	if baseURL != "" {
		cmd.Printf("  Base URL: %s\n", baseURL)
	}
	if provider.RequiresAPIKey() {
		if apiKey != "" {
			cmd.Printf("  API Key: %s\n", maskAPIKey(apiKey))
		} else {
			cmd.Printf("  API Key: (not set)\n")
		}
	}
	status := "configured"
	if !configured {
		status = "not configured"
	}
	cmd.Printf("  Status: %s\n", status)
}

func runSettingsClassifier(cmd *cobra.Command, args []string) error {
	if err := initSettings(); err != nil {
		return err
	}

	provider := domain.AIProvider(args[0])
	if err := settingsService.SetClassifierProvider(provider, settingsModel, settingsAPIKey); err != nil {
		return err
	}

	if err := settingsService.ValidateClassifierConfig(); err != nil {
		cmd.Printf("Warning: provider saved but unreachable: %v\n", err)
	} else {
		cmd.Println("Classifier provider configured and reachable.")
	}
	return nil
}

func runSettingsEmbedding(cmd *cobra.Command, args []string) error {
	if err := initSettings(); err != nil {
		return err
	}

	provider := domain.AIProvider(args[0])
	if err := settingsService.SetEmbeddingProvider(provider, settingsModel, settingsAPIKey); err != nil {
		return err
	}

	if err := settingsService.ValidateEmbeddingConfig(); err != nil {
		cmd.Printf("Warning: provider saved but unreachable: %v\n", err)
	} else {
		cmd.Println("Embedding provider configured and reachable.")
	}
	return nil
}

func runSettingsValidate(cmd *cobra.Command, _ []string) error {
	if err := initSettings(); err != nil {
		return err
	}

	if err := settingsService.Validate(); err != nil {
		return err
	}
	if err := settingsService.ValidateClassifierConfig(); err != nil {
		return fmt.Errorf("classifier: %w", err)
	}
	if err := settingsService.ValidateEmbeddingConfig(); err != nil {
		return fmt.Errorf("embedding: %w", err)
	}

	cmd.Println("All providers configured and reachable.")
	return nil
}

func maskAPIKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}
