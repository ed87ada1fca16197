// Package ai provides factory functions for creating AI service adapters.
package ai

import (
	"context"
	"fmt"
	"time"

	ollamaclassify "github.com/gleanly/glean/internal/adapters/driven/classifier/ollama"
	openaiclassify "github.com/gleanly/glean/internal/adapters/driven/classifier/openai"
	ollamaembed "github.com/gleanly/glean/internal/adapters/driven/embedding/ollama"
	openaiembed "github.com/gleanly/glean/internal/adapters/driven/embedding/openai"
	"github.com/gleanly/glean/internal/core/domain"
	"github.com/gleanly/glean/internal/core/ports/driven"
)

// pingTimeout is the maximum time to wait for service connectivity validation.
const pingTimeout = 5 * time.Second

// CreateAndValidateClassifier creates a classifier and validates connectivity.
// Returns nil without error if the settings do not configure a provider.
func CreateAndValidateClassifier(settings *domain.ClassifierSettings, prompts driven.PromptStore) (driven.Classifier, error) {
	if settings == nil || !settings.IsConfigured() {
		return nil, nil
	}

	svc, err := CreateClassifier(settings, prompts)
	if err != nil {
		return nil, fmt.Errorf("%w: %w. Run 'glean settings' to fix",
			domain.ErrClassifierUnavailable, err)
	}

	if svc == nil {
		return nil, nil
	}

	// Validate connectivity.
	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()

	if err := svc.Ping(ctx); err != nil {
		svc.Close()
		return nil, fmt.Errorf("%w: service unreachable (%w). Run 'glean settings' to fix",
			domain.ErrClassifierUnavailable, err)
	}

	return svc, nil
}

// CreateAndValidateEmbeddingService creates an embedding service and validates connectivity.
// Returns nil without error if the settings do not configure a provider.
func CreateAndValidateEmbeddingService(settings *domain.EmbeddingSettings) (driven.EmbeddingService, error) {
	if settings == nil || !settings.IsConfigured() {
		return nil, nil
	}

	svc, err := CreateEmbeddingService(settings)
	if err != nil {
		return nil, fmt.Errorf("%w: %w. Run 'glean settings' to fix",
			domain.ErrEmbeddingUnavailable, err)
	}

	if svc == nil {
		return nil, nil
	}

	// Validate connectivity.
	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()

	if err := svc.Ping(ctx); err != nil {
		svc.Close()
		return nil, fmt.Errorf("%w: service unreachable (%w). Run 'glean settings' to fix",
			domain.ErrEmbeddingUnavailable, err)
	}

	return svc, nil
}

// ValidateClassifierConfig validates a classifier configuration by creating
// a service and pinging it. Intended for settings commands that validate
// credentials on save.
func ValidateClassifierConfig(settings *domain.ClassifierSettings) error {
	if settings == nil || !settings.IsConfigured() {
		return nil
	}

	svc, err := CreateClassifier(settings, nil)
	if err != nil {
		return err
	}
	if svc == nil {
		return nil
	}
	defer svc.Close()

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	return svc.Ping(ctx)
}

// ValidateEmbeddingConfig validates an embedding configuration by creating
// a service and pinging it.
func ValidateEmbeddingConfig(settings *domain.EmbeddingSettings) error {
	if settings == nil || !settings.IsConfigured() {
		return nil
	}

	svc, err := CreateEmbeddingService(settings)
	if err != nil {
		return err
	}
	if svc == nil {
		return nil
	}
	defer svc.Close()

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	return svc.Ping(ctx)
}

// CreateClassifier creates the appropriate classifier based on settings.
// Returns nil if the provider is not configured.
func CreateClassifier(settings *domain.ClassifierSettings, prompts driven.PromptStore) (driven.Classifier, error) {
	if settings == nil || !settings.IsConfigured() {
		return nil, nil
	}

	switch settings.Provider {
	case domain.AIProviderOllama:
		svc := ollamaclassify.NewClassifier(ollamaclassify.Config{
			BaseURL: settings.BaseURL,
			Model:   settings.Model,
		})
		svc.SetPromptStore(prompts)
		return svc, nil

	case domain.AIProviderOpenAI:
		svc, err := openaiclassify.NewClassifier(openaiclassify.Config{
			APIKey:  settings.APIKey,
			BaseURL: settings.BaseURL,
			Model:   settings.Model,
		})
		if err != nil {
			return nil, err
		}
		svc.SetPromptStore(prompts)
		return svc, nil

	default:
		return nil, fmt.Errorf("unsupported classifier provider: %s", settings.Provider)
	}
}

// CreateEmbeddingService creates the appropriate embedding service based on
// settings. Returns nil if the provider is not configured.
func CreateEmbeddingService(settings *domain.EmbeddingSettings) (driven.EmbeddingService, error) {
	if settings == nil || !settings.IsConfigured() {
		return nil, nil
	}

	switch settings.Provider {
	case domain.AIProviderOllama:
		return ollamaembed.NewEmbeddingService(ollamaembed.Config{
			BaseURL: settings.BaseURL,
			Model:   settings.Model,
		}), nil

	case domain.AIProviderOpenAI:
		return openaiembed.NewEmbeddingService(openaiembed.Config{
			APIKey:  settings.APIKey,
			BaseURL: settings.BaseURL,
			Model:   settings.Model,
		})

	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", settings.Provider)
	}
}
