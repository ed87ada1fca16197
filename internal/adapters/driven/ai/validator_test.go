package ai

import (
	"testing"

	"github.com/gleanly/glean/internal/core/domain"
)

func TestNewConfigValidator(t *testing.T) {
	v := NewConfigValidator()
	if v == nil {
		t.Fatal("expected non-nil validator")
	}
}

func TestConfigValidator_ValidateClassifier_Unconfigured(t *testing.T) {
	v := NewConfigValidator()

	if err := v.ValidateClassifier(nil); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if err := v.ValidateClassifier(&domain.ClassifierSettings{}); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestConfigValidator_ValidateEmbedding_Unconfigured(t *testing.T) {
	v := NewConfigValidator()

	if err := v.ValidateEmbedding(nil); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if err := v.ValidateEmbedding(&domain.EmbeddingSettings{}); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestConfigValidator_ValidateClassifier_Unreachable(t *testing.T) {
	v := NewConfigValidator()

	err := v.ValidateClassifier(&domain.ClassifierSettings{
		Provider: domain.AIProviderOllama,
		BaseURL:  "http://127.0.0.1:1",
		Model:    "llama3.2",
	})

	if err == nil {
		t.Fatal("expected error for unreachable provider")
	}
}
