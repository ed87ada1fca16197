package driven

import "github.com/gleanly/glean/internal/core/domain"

// AIConfigValidator validates AI provider configurations, typically by
// creating a short-lived service and pinging it.
type AIConfigValidator interface {
	// ValidateClassifier validates a classifier configuration.
	ValidateClassifier(config *domain.ClassifierSettings) error

	// ValidateEmbedding validates an embedding configuration.
	ValidateEmbedding(config *domain.EmbeddingSettings) error
}
