package ai

import (
	"github.com/gleanly/glean/internal/core/domain"
	"github.com/gleanly/glean/internal/core/ports/driven"
)

// Ensure ConfigValidator implements the interface.
var _ driven.AIConfigValidator = (*ConfigValidator)(nil)

// ConfigValidator validates AI provider configurations.
type ConfigValidator struct{}

// NewConfigValidator creates a new AI config validator.
func NewConfigValidator() *ConfigValidator {
	return &ConfigValidator{}
}

// ValidateClassifier validates a classifier configuration by pinging the provider.
func (v *ConfigValidator) ValidateClassifier(config *domain.ClassifierSettings) error {
	return ValidateClassifierConfig(config)
}

// ValidateEmbedding validates an embedding configuration by pinging the provider.
func (v *ConfigValidator) ValidateEmbedding(config *domain.EmbeddingSettings) error {
	return ValidateEmbeddingConfig(config)
}
