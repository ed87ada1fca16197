package services

import (
	"fmt"
	"time"

	"github.com/gleanly/glean/internal/core/domain"
	"github.com/gleanly/glean/internal/core/ports/driven"
	"github.com/gleanly/glean/internal/core/ports/driving"
)

// Ensure SettingsService implements the interface.
var _ driving.SettingsService = (*SettingsService)(nil)

// Config keys for settings storage.
//
//nolint:gosec // G101: These are config key names, not actual credentials.
const (
	keyClassifierProvider = "classifier.provider"
	keyClassifierModel    = "classifier.model"
	keyClassifierBaseURL  = "classifier.base_url"
	keyClassifierAPIKey   = "classifier.api_key"
	keyClassifierRPS      = "classifier.requests_per_second"
	keyEmbedProvider      = "embedding.provider"
	keyEmbedModel         = "embedding.model"
	keyEmbedBaseURL       = "embedding.base_url"
	keyEmbedAPIKey        = "embedding.api_key"
	keyDupThreshold       = "pipeline.duplicate_threshold"
	keyLinkThreshold      = "pipeline.link_threshold"
	keyWorkers            = "pipeline.workers"
	keyMaxAttempts        = "pipeline.max_attempts"
	keyRetryBackoff       = "pipeline.retry_backoff"
	keyNotesDir           = "pipeline.notes_dir"
	keyDataDir            = "pipeline.data_dir"
)

// SettingsService manages application settings.
type SettingsService struct {
	configStore driven.ConfigStore
	aiValidator driven.AIConfigValidator
}

// NewSettingsService creates a new settings service.
func NewSettingsService(configStore driven.ConfigStore, aiValidator driven.AIConfigValidator) *SettingsService {
	return &SettingsService{
		configStore: configStore,
		aiValidator: aiValidator,
	}
}

// Get retrieves current application settings.
func (s *SettingsService) Get() (*domain.Settings, error) {
	defaults := domain.DefaultSettings()

	settings := &domain.Settings{
		Classifier: domain.ClassifierSettings{
			Provider:          s.getProvider(keyClassifierProvider, defaults.Classifier.Provider),
			Model:             s.getString(keyClassifierModel, defaults.Classifier.Model),
			BaseURL:           s.configStore.GetString(keyClassifierBaseURL), // No default - empty is valid for cloud providers
			APIKey:            s.configStore.GetString(keyClassifierAPIKey),
			RequestsPerSecond: s.configStore.GetFloat(keyClassifierRPS),
		},
		Embedding: domain.EmbeddingSettings{
			Provider: s.getProvider(keyEmbedProvider, defaults.Embedding.Provider),
			Model:    s.getString(keyEmbedModel, defaults.Embedding.Model),
			BaseURL:  s.configStore.GetString(keyEmbedBaseURL),
			APIKey:   s.configStore.GetString(keyEmbedAPIKey),
		},
		Pipeline: domain.PipelineSettings{
			DuplicateThreshold: s.getFloat(keyDupThreshold, defaults.Pipeline.DuplicateThreshold),
			LinkThreshold:      s.getFloat(keyLinkThreshold, defaults.Pipeline.LinkThreshold),
			Workers:            s.getInt(keyWorkers, defaults.Pipeline.Workers),
			MaxAttempts:        s.getInt(keyMaxAttempts, defaults.Pipeline.MaxAttempts),
			RetryBackoff:       s.getDuration(keyRetryBackoff, defaults.Pipeline.RetryBackoff),
			NotesDir:           s.configStore.GetString(keyNotesDir),
			DataDir:            s.configStore.GetString(keyDataDir),
		},
	}

	return settings, nil
}

// Save persists application settings.
func (s *SettingsService) Save(settings *domain.Settings) error {
	// Save classifier settings
	if err := s.configStore.Set(keyClassifierProvider, settings.Classifier.Provider.String()); err != nil {
		return fmt.Errorf("save classifier provider: %w", err)
	}
	if err := s.configStore.Set(keyClassifierModel, settings.Classifier.Model); err != nil {
		return fmt.Errorf("save classifier model: %w", err)
	}
	if err := s.configStore.Set(keyClassifierBaseURL, settings.Classifier.BaseURL); err != nil {
		return fmt.Errorf("save classifier base_url: %w", err)
	}
	if settings.Classifier.APIKey != "" {
		if err := s.configStore.Set(keyClassifierAPIKey, settings.Classifier.APIKey); err != nil {
			return fmt.Errorf("save classifier api_key: %w", err)
		}
	}
	if settings.Classifier.RequestsPerSecond > 0 {
		if err := s.configStore.Set(keyClassifierRPS, settings.Classifier.RequestsPerSecond); err != nil {
			return fmt.Errorf("save classifier requests_per_second: %w", err)
		}
	}

	// Save embedding settings
	if err := s.configStore.Set(keyEmbedProvider, settings.Embedding.Provider.String()); err != nil {
		return fmt.Errorf("save embedding provider: %w", err)
	}
	if err := s.configStore.Set(keyEmbedModel, settings.Embedding.Model); err != nil {
		return fmt.Errorf("save embedding model: %w", err)
	}
	if err := s.configStore.Set(keyEmbedBaseURL, settings.Embedding.BaseURL); err != nil {
		return fmt.Errorf("save embedding base_url: %w", err)
	}
	if settings.Embedding.APIKey != "" {
		if err := s.configStore.Set(keyEmbedAPIKey, settings.Embedding.APIKey); err != nil {
			return fmt.Errorf("save embedding api_key: %w", err)
		}
	}

	// Save pipeline settings
	if err := s.configStore.Set(keyDupThreshold, settings.Pipeline.DuplicateThreshold); err != nil {
		return fmt.Errorf("save duplicate threshold: %w", err)
	}
	if err := s.configStore.Set(keyLinkThreshold, settings.Pipeline.LinkThreshold); err != nil {
		return fmt.Errorf("save link threshold: %w", err)
	}
	if err := s.configStore.Set(keyWorkers, settings.Pipeline.Workers); err != nil {
		return fmt.Errorf("save workers: %w", err)
	}
	if err := s.configStore.Set(keyMaxAttempts, settings.Pipeline.MaxAttempts); err != nil {
		return fmt.Errorf("save max attempts: %w", err)
	}
	if err := s.configStore.Set(keyRetryBackoff, settings.Pipeline.RetryBackoff.String()); err != nil {
		return fmt.Errorf("save retry backoff: %w", err)
	}
	if settings.Pipeline.NotesDir != "" {
		if err := s.configStore.Set(keyNotesDir, settings.Pipeline.NotesDir); err != nil {
			return fmt.Errorf("save notes dir: %w", err)
		}
	}
	if settings.Pipeline.DataDir != "" {
		if err := s.configStore.Set(keyDataDir, settings.Pipeline.DataDir); err != nil {
			return fmt.Errorf("save data dir: %w", err)
		}
	}

	return nil
}

// SetClassifierProvider configures the classification provider.
func (s *SettingsService) SetClassifierProvider(provider domain.AIProvider, model, apiKey string) error {
	if !provider.IsValid() {
		return fmt.Errorf("invalid classifier provider: %s", provider)
	}
	if provider.RequiresAPIKey() && apiKey == "" {
		return fmt.Errorf("API key required for %s", provider)
	}

	settings, err := s.Get()
	if err != nil {
		return err
	}

	settings.Classifier.Provider = provider

	// Set model - use provided or default
	if model != "" {
		settings.Classifier.Model = model
	} else if defaultModel, ok := domain.DefaultClassifierModels()[provider]; ok {
		settings.Classifier.Model = defaultModel
	}

	// Cloud providers use their canonical endpoint
	if provider.RequiresAPIKey() {
		settings.Classifier.BaseURL = ""
	}
	settings.Classifier.APIKey = apiKey

	return s.Save(settings)
}

// SetEmbeddingProvider configures the embedding provider.
func (s *SettingsService) SetEmbeddingProvider(provider domain.AIProvider, model, apiKey string) error {
	if !provider.IsValid() {
		return fmt.Errorf("invalid embedding provider: %s", provider)
	}
	if provider.RequiresAPIKey() && apiKey == "" {
		return fmt.Errorf("API key required for %s", provider)
	}

	settings, err := s.Get()
	if err != nil {
		return err
	}

	settings.Embedding.Provider = provider

	if model != "" {
		settings.Embedding.Model = model
	} else if defaultModel, ok := domain.DefaultEmbeddingModels()[provider]; ok {
		settings.Embedding.Model = defaultModel
	}

	if provider.RequiresAPIKey() {
		settings.Embedding.BaseURL = ""
	}
	settings.Embedding.APIKey = apiKey

	return s.Save(settings)
}

// Validate checks if current settings are usable by the pipeline.
func (s *SettingsService) Validate() error {
	settings, err := s.Get()
	if err != nil {
		return err
	}

	if !settings.Classifier.IsConfigured() {
		return fmt.Errorf("%w: no classification provider configured", domain.ErrClassifierUnavailable)
	}
	if !settings.Embedding.IsConfigured() {
		return fmt.Errorf("%w: no embedding provider configured", domain.ErrEmbeddingUnavailable)
	}

	p := settings.Pipeline
	if p.DuplicateThreshold <= 0 || p.DuplicateThreshold > 1 {
		return fmt.Errorf("duplicate threshold must be in (0, 1], got %v", p.DuplicateThreshold)
	}
	if p.LinkThreshold <= 0 || p.LinkThreshold > 1 {
		return fmt.Errorf("link threshold must be in (0, 1], got %v", p.LinkThreshold)
	}

	return nil
}

// GetDefaults returns default settings.
func (s *SettingsService) GetDefaults() domain.Settings {
	return domain.DefaultSettings()
}

// ValidateClassifierConfig validates the current classifier configuration by pinging the provider.
func (s *SettingsService) ValidateClassifierConfig() error {
	if s.aiValidator == nil {
		return nil
	}
	settings, err := s.Get()
	if err != nil {
		return err
	}
	return s.aiValidator.ValidateClassifier(&settings.Classifier)
}

// ValidateEmbeddingConfig validates the current embedding configuration by pinging the provider.
func (s *SettingsService) ValidateEmbeddingConfig() error {
	if s.aiValidator == nil {
		return nil
	}
	settings, err := s.Get()
	if err != nil {
		return err
	}
	return s.aiValidator.ValidateEmbedding(&settings.Embedding)
}

// Helper methods for reading config with defaults.

func (s *SettingsService) getString(key, defaultVal string) string {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func (s *SettingsService) getInt(key string, defaultVal int) int {
	val := s.configStore.GetInt(key)
	if val == 0 {
		return defaultVal
	}
	return val
}

func (s *SettingsService) getFloat(key string, defaultVal float64) float64 {
	val := s.configStore.GetFloat(key)
	if val == 0 {
		return defaultVal
	}
	return val
}

func (s *SettingsService) getDuration(key string, defaultVal time.Duration) time.Duration {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return defaultVal
	}
	return d
}

func (s *SettingsService) getProvider(key string, defaultVal domain.AIProvider) domain.AIProvider {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	provider := domain.AIProvider(val)
	if !provider.IsValid() {
		return defaultVal
	}
	return provider
}
