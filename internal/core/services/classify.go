package services

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/gleanly/glean/internal/core/domain"
	"github.com/gleanly/glean/internal/core/ports/driven"
	"github.com/gleanly/glean/internal/logger"
)

// unknownLabel substitutes missing subject and content type fields.
const unknownLabel = "Unknown"

// maxKeyConcepts bounds the concepts kept per fragment.
const maxKeyConcepts = 8

// ClassifyService validates the external collaborator's output into
// typed ClassifiedFragments. It calls the collaborator exactly once
// per fragment and performs no index mutation; retry policy and
// indexing belong to the orchestrator.
type ClassifyService struct {
	classifier driven.Classifier
	limiter    *rate.Limiter // nil disables throttling
	now        func() time.Time
}

// NewClassifyService creates a classify service. requestsPerSecond
// of zero disables throttling.
func NewClassifyService(classifier driven.Classifier, requestsPerSecond float64) *ClassifyService {
	var limiter *rate.Limiter
	if requestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), 1)
	}
	return &ClassifyService{
		classifier: classifier,
		limiter:    limiter,
		now:        time.Now,
	}
}

// Classify turns a raw fragment into a ClassifiedFragment.
// Empty text fails with domain.ErrEmptyInput before any external
// call. Collaborator transport failures surface as
// *domain.ClassificationError; malformed response fields are
// repaired, never propagated.
func (s *ClassifyService) Classify(ctx context.Context, fragment domain.Fragment) (domain.ClassifiedFragment, error) {
	text := strings.TrimSpace(fragment.Text)
	if text == "" {
		return domain.ClassifiedFragment{}, fmt.Errorf("%w: fragment %s", domain.ErrEmptyInput, fragment.Source)
	}

	if s.limiter != nil {
		if err := s.limiter.Wait(ctx); err != nil {
			return domain.ClassifiedFragment{}, err
		}
	}

	subjectHint := fragment.Meta["subject_hint"]
	raw, err := s.classifier.Classify(ctx, text, subjectHint)
	if err != nil {
		return domain.ClassifiedFragment{}, domain.AsClassificationError(err)
	}

	classified := s.validate(fragment, raw)
	logger.Debug("classified %s as %s (confidence %.2f, subject %s)",
		fragment.Source, classified.Kind, classified.Confidence, classified.Subject)
	return classified, nil
}

// Ping checks the collaborator is reachable.
func (s *ClassifyService) Ping(ctx context.Context) error {
	return s.classifier.Ping(ctx)
}

// validate repairs the loosely-typed collaborator response into a
// typed fragment. Unknown kinds map to unclassified; missing or
// non-numeric confidence defaults to 0.0 and is flagged.
func (s *ClassifyService) validate(fragment domain.Fragment, raw driven.RawClassification) domain.ClassifiedFragment {
	kind := domain.ParseKind(rawString(raw, driven.RawFieldKind))
	if kind == domain.KindUnclassified {
		logger.Warn("fragment %s: collaborator kind %q not recognised", fragment.Source, rawString(raw, driven.RawFieldKind))
	}

	confidence, confidenceOK := rawConfidence(raw)

	subject := normaliseSubject(rawString(raw, driven.RawFieldSubject))
	contentType := strings.TrimSpace(rawString(raw, driven.RawFieldContentType))
	if contentType == "" {
		contentType = unknownLabel
	}

	concepts := rawStringSlice(raw, driven.RawFieldKeyConcepts)
	if len(concepts) == 0 {
		concepts = extractKeywords(fragment.Text, maxKeyConcepts)
	} else if len(concepts) > maxKeyConcepts {
		concepts = concepts[:maxKeyConcepts]
	}

	return domain.ClassifiedFragment{
		Fragment:           fragment,
		ID:                 fragment.Source.ImageID,
		Kind:               kind,
		Confidence:         confidence,
		LowConfidence:      !confidenceOK,
		Subject:            subject,
		ContentType:        contentType,
		Reasoning:          rawString(raw, driven.RawFieldReasoning),
		KeyConcepts:        concepts,
		MistakeExplanation: rawString(raw, driven.RawFieldMistakeExplanation),
		CorrectApproach:    rawString(raw, driven.RawFieldCorrectApproach),
		ClassifiedAt:       s.now().UTC(),
	}
}

// knownSubjects maps lowercase collaborator subjects to canonical
// names.
var knownSubjects = map[string]string{
	"math":           "Math",
	"mathematics":    "Math",
	"english":        "English",
	"science":        "Science",
	"social studies": "SocialStudies",
	"socialstudies":  "SocialStudies",
	"social_studies": "SocialStudies",
}

// normaliseSubject canonicalises known subjects and passes through
// unknown non-empty ones so novel subjects still group together.
func normaliseSubject(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return unknownLabel
	}
	if canonical, ok := knownSubjects[strings.ToLower(trimmed)]; ok {
		return canonical
	}
	return trimmed
}

// rawString extracts a string field, tolerating absence and
// non-string values.
func rawString(raw driven.RawClassification, field string) string {
	val, ok := raw[field]
	if !ok || val == nil {
		return ""
	}
	str, ok := val.(string)
	if !ok {
		return ""
	}
	return str
}

// rawConfidence extracts the confidence field as a probability.
// The second return is false when the value was missing, non-numeric
// or out of range and 0.0 was substituted.
func rawConfidence(raw driven.RawClassification) (float64, bool) {
	val, ok := raw[driven.RawFieldConfidence]
	if !ok || val == nil {
		return 0, false
	}

	var confidence float64
	switch v := val.(type) {
	case float64:
		confidence = v
	case float32:
		confidence = float64(v)
	case int:
		confidence = float64(v)
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, false
		}
		confidence = parsed
	default:
		return 0, false
	}

	if confidence < 0 || confidence > 1 {
		return 0, false
	}
	return confidence, true
}

// rawStringSlice extracts a string slice field, tolerating absence,
// mixed element types and plain strings.
func rawStringSlice(raw driven.RawClassification, field string) []string {
	val, ok := raw[field]
	if !ok || val == nil {
		return nil
	}

	switch v := val.(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if str, ok := item.(string); ok && strings.TrimSpace(str) != "" {
				out = append(out, strings.TrimSpace(str))
			}
		}
		return out
	default:
		return nil
	}
}
