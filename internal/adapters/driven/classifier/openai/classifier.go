// Package openai provides a fragment classifier adapter using an
// OpenAI-compatible chat completions API.
package openai

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
	DefaultBaseURL = "https://api.openai.com/v1"
	DefaultModel   = "gpt-4o-mini"
	DefaultTimeout = 60 * time.Second
)

// Request tuning for classification calls. Low temperature keeps the
// structured output stable across runs.
const (
	classifyTemperature = 0.3
	classifyMaxTokens   = 500
)

// Config holds configuration for the OpenAI classifier.
type Config struct {
	// APIKey is the OpenAI API key (required).
	APIKey string

	// BaseURL is the API base URL (default: https://api.openai.com/v1).
	// Can be changed for Azure OpenAI or compatible APIs.
	BaseURL string

	// Model is the chat model to use (default: gpt-4o-mini).
	Model string

	// Timeout is the request timeout (default: 60s).
	Timeout time.Duration
}

// Classifier classifies study fragments using OpenAI API.
type Classifier struct {
	client      *http.Client
	baseURL     string
	apiKey      string
	model       string
	promptStore driven.PromptStore
}

// chatCompletionRequest is the OpenAI /chat/completions request format.
type chatCompletionRequest struct {
	Model          string              `json:"model"`
	Messages       []chatCompletionMsg `json:"messages"`
	MaxTokens      int                 `json:"max_tokens,omitempty"`
	Temperature    float64             `json:"temperature,omitempty"`
	ResponseFormat *responseFormat     `json:"response_format,omitempty"`
}

// chatCompletionMsg is the OpenAI chat message format.
type chatCompletionMsg struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// responseFormat requests structured output from the model.
type responseFormat struct {
	Type string `json:"type"`
}

// chatCompletionResponse is the OpenAI /chat/completions response format.
type chatCompletionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

// NewClassifier creates a new OpenAI classifier.
func NewClassifier(cfg Config) (*Classifier, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai: API key is required")
	}
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
		apiKey:  cfg.APIKey,
		model:   cfg.Model,
	}, nil
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

// Classify submits fragment text to the chat completions endpoint and
// returns the decoded JSON response. Transport failures are reported
// as *domain.ClassificationError; HTTP 429 and 5xx are retryable,
// other client errors are not.
func (c *Classifier) Classify(ctx context.Context, text, subjectHint string) (driven.RawClassification, error) {
	promptTemplate := c.loadPrompt(driven.PromptClassify, defaultClassifyPrompt)
	prompt := fmt.Sprintf(promptTemplate, text)
	if subjectHint != "" {
		prompt += fmt.Sprintf("\n\nHint: this fragment is likely from the subject %q.", subjectHint)
	}

	reqBody := chatCompletionRequest{
		Model: c.model,
		Messages: []chatCompletionMsg{
			{Role: "user", Content: prompt},
		},
		MaxTokens:      classifyMaxTokens,
		Temperature:    classifyTemperature,
		ResponseFormat: &responseFormat{Type: "json_object"},
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return nil, &domain.ClassificationError{Err: fmt.Errorf("marshal request: %w", err)}
	}

	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		c.baseURL+"/chat/completions",
		bytes.NewReader(jsonBody),
	)
	if err != nil {
		return nil, &domain.ClassificationError{Err: fmt.Errorf("create request: %w", err)}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, &domain.ClassificationError{Retryable: true, Err: fmt.Errorf("send request: %w", err)}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &domain.ClassificationError{Retryable: true, Err: fmt.Errorf("read response: %w", err)}
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &domain.ClassificationError{
			Retryable: retryableStatus(resp.StatusCode),
			Err:       fmt.Errorf("openai error (status %d): %s", resp.StatusCode, string(body)),
		}
	}

	var chatResp chatCompletionResponse
	if err := json.Unmarshal(body, &chatResp); err != nil {
		return nil, &domain.ClassificationError{Retryable: true, Err: fmt.Errorf("decode response: %w", err)}
	}

	if chatResp.Error != nil {
		return nil, &domain.ClassificationError{Err: fmt.Errorf("openai error: %s", chatResp.Error.Message)}
	}

	if len(chatResp.Choices) == 0 {
		return nil, &domain.ClassificationError{Retryable: true, Err: fmt.Errorf("openai: no response choices returned")}
	}

	return parseContent(chatResp.Choices[0].Message.Content), nil
}

// parseContent decodes the model's JSON answer. Malformed content is
// mapped to an unclassified result rather than an error so the item
// lands in the Unclassified bucket instead of being retried.
func parseContent(content string) driven.RawClassification {
	content = strings.TrimSpace(content)
	// Some models wrap JSON in markdown fences despite instructions.
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")
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

// Ping validates the service is reachable by checking the /models endpoint.
// This is a lightweight check that validates the API key without running inference.
func (c *Classifier) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/models", http.NoBody)
	if err != nil {
		return fmt.Errorf("openai: failed to create ping request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("openai: ping failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("openai: API returned status %d (failed to read body: %w)", resp.StatusCode, err)
		}
		return fmt.Errorf("openai: API returned status %d: %s", resp.StatusCode, string(body))
	}
	return nil
}

// Close releases resources.
func (c *Classifier) Close() error {
	// HTTP client doesn't need explicit cleanup
	return nil
}
