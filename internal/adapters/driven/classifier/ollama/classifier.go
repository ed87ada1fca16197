// Package ollama provides a fragment classifier adapter using Ollama.
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gleanly/glean/internal/core/domain"
	"github.com/gleanly/glean/internal/core/ports/driven"
)

// Ensure Classifier implements the interface.
var _ driven.Classifier = (*Classifier)(nil)

// Default configuration values.
const (
	DefaultBaseURL = "http://localhost:11434"
	DefaultModel   = "llama3.2"
	DefaultTimeout = 120 * time.Second
)

const classifyTemperature = 0.3

// Config holds configuration for the Ollama classifier.
type Config struct {
	// BaseURL is the Ollama API base URL (default: http://localhost:11434).
	BaseURL string

	// Model is the model to use (default: llama3.2).
	Model string

	// Timeout is the request timeout (default: 120s).
	Timeout time.Duration
}

// Classifier classifies study fragments using a local Ollama model.
type Classifier struct {
	client      *http.Client
	baseURL     string
	model       string
	promptStore driven.PromptStore
}

// generateRequest is the Ollama /api/generate request format.
// Format "json" constrains the model to emit a single JSON object.
type generateRequest struct {
	Model   string   `json:"model"`
	Prompt  string   `json:"prompt"`
	Stream  bool     `json:"stream"`
	Format  string   `json:"format,omitempty"`
	Options *options `json:"options,omitempty"`
}

// options holds generation parameters.
type options struct {
	Temperature float64 `json:"temperature,omitempty"`
}

// generateResponse is the Ollama /api/generate response format.
type generateResponse struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
}

// NewClassifier creates a new Ollama classifier.
func NewClassifier(cfg Config) *Classifier {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}

	return &Classifier{
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
		baseURL: cfg.BaseURL,
		model:   cfg.Model,
	}
}

// defaultClassifyPrompt is the fallback prompt when no PromptStore is configured.
const defaultClassifyPrompt = `Analyze the following text extracted from an image and classify it as either a "note" or a "wrong_question".

A "note" is educational content such as formulas, concepts, explanations, or study materials.
A "wrong_question" is a practice problem or test question that was answered incorrectly,
typically with an explanation of the mistake and the correct approach.

Text to analyze:
%s

Respond in JSON format with the following structure:
{
    "classification": "note" or "wrong_question",
    "confidence": a number between 0 and 1,
    "subject": the academic subject, e.g. "Math", "English", "Science" or "Social Studies",
    "content_type": a short label such as "Formula", "Concept" or "Practice Problem",
    "reasoning": "brief explanation of why this classification was chosen",
    "key_concepts": ["list", "of", "key", "concepts"],
    "mistake_explanation": "for wrong questions, what went wrong (empty otherwise)",
    "correct_approach": "for wrong questions, the correct way to solve it (empty otherwise)"
}`

// Classify submits fragment text to the generate endpoint and returns
// the decoded JSON response. Transport failures are reported as
// *domain.ClassificationError; 429 and 5xx are retryable, other
// client errors are not.
func (c *Classifier) Classify(ctx context.Context, text, subjectHint string) (driven.RawClassification, error) {
	promptTemplate := c.loadPrompt(driven.PromptClassify, defaultClassifyPrompt)
	prompt := fmt.Sprintf(promptTemplate, text)
	if subjectHint != "" {
		prompt += fmt.Sprintf("\n\nHint: this fragment is likely from the subject %q.", subjectHint)
	}

	reqBody := generateRequest{
		Model:  c.model,
		Prompt: prompt,
		Stream: false,
		Format: "json",
		Options: &options{
			Temperature: classifyTemperature,
		},
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return nil, &domain.ClassificationError{Err: fmt.Errorf("marshal request: %w", err)}
	}

	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		c.baseURL+"/api/generate",
		bytes.NewReader(jsonBody),
	)
	if err != nil {
		return nil, &domain.ClassificationError{Err: fmt.Errorf("create request: %w", err)}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, &domain.ClassificationError{Retryable: true, Err: fmt.Errorf("send request: %w", err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, readErr := io.ReadAll(resp.Body)
		if readErr != nil {
			body = []byte("failed to read response")
		}
		return nil, &domain.ClassificationError{
			Retryable: retryableStatus(resp.StatusCode),
			Err:       fmt.Errorf("ollama error (status %d): %s", resp.StatusCode, string(body)),
		}
	}

	var genResp generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&genResp); err != nil {
		return nil, &domain.ClassificationError{Retryable: true, Err: fmt.Errorf("decode response: %w", err)}
	}

	return parseContent(genResp.Response), nil
}

// parseContent decodes the model's JSON answer. Malformed content is
// mapped to an unclassified result rather than an error so the item
// lands in the Unclassified bucket instead of being retried.
func parseContent(content string) driven.RawClassification {
	content = strings.TrimSpace(content)

	var raw driven.RawClassification
	if err := json.Unmarshal([]byte(content), &raw); err != nil {
		return driven.RawClassification{
			driven.RawFieldKind:       "unknown",
			driven.RawFieldConfidence: 0.0,
			driven.RawFieldReasoning:  "Could not parse AI response",
		}
	}
	return raw
}

// retryableStatus reports whether an HTTP status is worth retrying.
func retryableStatus(code int) bool {
	return code == http.StatusTooManyRequests || code >= http.StatusInternalServerError
}

// loadPrompt loads a prompt from the store, falling back to the default if unavailable.
func (c *Classifier) loadPrompt(name, fallback string) string {
	if c.promptStore == nil {
		return fallback
	}
	prompt, err := c.promptStore.Load(name)
	if err != nil {
		return fallback
	}
	return prompt
}

// SetPromptStore sets the prompt store for loading customisable prompts.
// If not set, the classifier uses hardcoded default prompts.
func (c *Classifier) SetPromptStore(store driven.PromptStore) {
	c.promptStore = store
}

// ModelName returns the name of the model being used.
func (c *Classifier) ModelName() string {
	return c.model
}

// Ping validates the service is reachable by checking the /api/tags endpoint.
// This is a lightweight check that validates connectivity without running inference.
func (c *Classifier) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/tags", http.NoBody)
	if err != nil {
		return fmt.Errorf("ollama: failed to create ping request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("ollama: ping failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("ollama: API returned status %d (failed to read body: %w)", resp.StatusCode, err)
		}
		return fmt.Errorf("ollama: API returned status %d: %s", resp.StatusCode, string(body))
	}
	return nil
}

// Close releases resources.
func (c *Classifier) Close() error {
	// HTTP client doesn't need explicit cleanup
	return nil
}
