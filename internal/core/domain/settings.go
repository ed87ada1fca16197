package domain

import "time"

// AIProvider identifies an AI service provider for classification or
// embeddings.
type AIProvider string

// Available AI providers.
const (
	// AIProviderOllama is a local Ollama instance.
	AIProviderOllama AIProvider = "ollama"

	// AIProviderOpenAI is the OpenAI cloud API, or any endpoint
	// speaking the chat-completions protocol.
	AIProviderOpenAI AIProvider = "openai"
)

// IsValid returns true if the AI provider is recognised.
func (p AIProvider) IsValid() bool {
	switch p {
	case AIProviderOllama, AIProviderOpenAI:
		return true
	default:
		return false
	}
}

// RequiresAPIKey returns true if this provider needs an API key.
func (p AIProvider) RequiresAPIKey() bool {
	return p == AIProviderOpenAI
}

// String returns the string representation.
func (p AIProvider) String() string {
	return string(p)
}

// ClassifierSettings configures the external classification
// collaborator.
type ClassifierSettings struct {
	// Provider selects the classification backend.
	Provider AIProvider

	// BaseURL is the API base URL. Empty uses the provider default.
	BaseURL string

	// APIKey authenticates cloud providers.
	APIKey string

	// Model is the model to classify with.
	Model string

	// RequestsPerSecond throttles outbound calls. Zero disables
	// throttling.
	RequestsPerSecond float64
}

// IsConfigured returns true if the settings name a usable provider.
func (s *ClassifierSettings) IsConfigured() bool {
	if s == nil || !s.Provider.IsValid() {
		return false
	}
	if s.Provider.RequiresAPIKey() && s.APIKey == "" {
		return false
	}
	return true
}

// EmbeddingSettings configures the embedding collaborator.
type EmbeddingSettings struct {
	// Provider selects the embedding backend.
	Provider AIProvider

	// BaseURL is the API base URL. Empty uses the provider default.
	BaseURL string

	// APIKey authenticates cloud providers.
	APIKey string

	// Model is the embedding model.
	Model string
}

// IsConfigured returns true if the settings name a usable provider.
func (s *EmbeddingSettings) IsConfigured() bool {
	if s == nil || !s.Provider.IsValid() {
		return false
	}
	if s.Provider.RequiresAPIKey() && s.APIKey == "" {
		return false
	}
	return true
}

// PipelineSettings are the tunable constants of the processing
// pipeline.
type PipelineSettings struct {
	// DuplicateThreshold is the cosine similarity above which a new
	// capture is treated as the same material re-photographed.
	DuplicateThreshold float64

	// LinkThreshold is the combined relevance score above which a
	// note-question link is created.
	LinkThreshold float64

	// Workers bounds concurrent per-item processing.
	Workers int

	// MaxAttempts bounds retries for retryable collaborator
	// failures.
	MaxAttempts int

	// RetryBackoff is the initial delay between attempts; it doubles
	// per attempt.
	RetryBackoff time.Duration

	// NotesDir is where synthesized documents are written.
	NotesDir string

	// DataDir is where the metadata database lives.
	DataDir string
}

// DefaultPipelineSettings returns the design defaults.
func DefaultPipelineSettings() PipelineSettings {
	return PipelineSettings{
		DuplicateThreshold: 0.95,
		LinkThreshold:      0.55,
		Workers:            4,
		MaxAttempts:        3,
		RetryBackoff:       250 * time.Millisecond,
	}
}

// Settings aggregates all user configuration.
type Settings struct {
	Classifier ClassifierSettings
	Embedding  EmbeddingSettings
	Pipeline   PipelineSettings
}

// Default models per provider.
func DefaultClassifierModels() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderOllama: "llama3.2",
		AIProviderOpenAI: "gpt-4o-mini",
	}
}

// DefaultEmbeddingModels returns the default embedding model per provider.
func DefaultEmbeddingModels() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderOllama: "nomic-embed-text",
		AIProviderOpenAI: "text-embedding-3-small",
	}
}

// DefaultSettings returns the out-of-the-box configuration: local
// Ollama for both collaborators, pipeline defaults.
func DefaultSettings() Settings {
	return Settings{
		Classifier: ClassifierSettings{
			Provider: AIProviderOllama,
			Model:    DefaultClassifierModels()[AIProviderOllama],
		},
		Embedding: EmbeddingSettings{
			Provider: AIProviderOllama,
			Model:    DefaultEmbeddingModels()[AIProviderOllama],
		},
		Pipeline: DefaultPipelineSettings(),
	}
}
