package driven

import "context"

// RawClassification is the unvalidated response of the external
// classification collaborator, kept as decoded JSON until the
// classify service validates it into a typed ClassifiedFragment.
// Fields may be missing, extra, or of unexpected types; no untyped
// data propagates past the classify service.
type RawClassification map[string]any

// Well-known raw response fields. The collaborator is prompted to
// return these but is not trusted to.
const (
	RawFieldKind               = "classification"
	RawFieldConfidence         = "confidence"
	RawFieldSubject            = "subject"
	RawFieldContentType        = "content_type"
	RawFieldReasoning          = "reasoning"
	RawFieldKeyConcepts        = "key_concepts"
	RawFieldMistakeExplanation = "mistake_explanation"
	RawFieldCorrectApproach    = "correct_approach"
)

// Classifier calls the external classification collaborator once per
// fragment. Transport, auth and rate limits of the network call are
// the adapter's concern; the core only sees the loosely-typed result
// or a domain.ClassificationError.
//
// Implementations may include:
//   - OpenAI-compatible chat-completion endpoints
//   - Ollama (local models)
type Classifier interface {
	// Classify submits fragment text (plus an optional subject hint)
	// and returns the collaborator's raw structured response.
	// Transport failures are returned as *domain.ClassificationError
	// with Retryable set appropriately.
	Classify(ctx context.Context, text, subjectHint string) (RawClassification, error)

	// ModelName returns the name of the model being used.
	ModelName() string

	// Ping validates the service is reachable by making a
	// lightweight test request.
	Ping(ctx context.Context) error

	// Close releases resources.
	Close() error
}
