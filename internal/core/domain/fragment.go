package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// SourceRef identifies the photographed source a fragment was
// extracted from. It is the stable identity for everything derived
// from that image: the classified fragment, its embedding record and
// its processed-set entry all key on ImageID.
type SourceRef struct {
	// ImageID is the unique identifier of the source image.
	ImageID string

	// CapturedAt is when the source was photographed or dropped
	// into the ingest directory.
	CapturedAt time.Time
}

// String returns the stable identity of the source.
func (r SourceRef) String() string {
	return r.ImageID
}

// Fragment is a raw OCR'd text blob plus provenance.
// Fragments are immutable once created.
type Fragment struct {
	// Text is the UTF-8 text extracted by the OCR collaborator.
	Text string

	// Source identifies where the text came from.
	Source SourceRef

	// Meta contains optional preprocessing metadata supplied by the
	// OCR collaborator (quality grade, capture device, etc).
	Meta map[string]string
}

// HashContent returns the content hash used by the processed set to
// detect changed sources between runs.
func HashContent(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

// ClassifiedFragment is a Fragment tagged by the classification
// collaborator and validated by the classify service. It is never
// mutated after creation; reclassifying a source produces a new
// instance that supersedes the old one under the same SourceRef.
type ClassifiedFragment struct {
	Fragment

	// ID is the fragment identity, equal to Source.ImageID.
	ID string

	// Kind is the validated classification outcome.
	Kind Kind

	// Confidence is the collaborator's confidence in [0, 1].
	Confidence float64

	// LowConfidence is set when the collaborator returned a missing
	// or non-numeric confidence and 0.0 was substituted.
	LowConfidence bool

	// Subject is the study subject (Math, English, Science,
	// SocialStudies) or "Unknown".
	Subject string

	// ContentType is a free-form label such as "Practice Problem".
	ContentType string

	// Reasoning is the collaborator's free-text justification.
	Reasoning string

	// KeyConcepts are the concepts cited by the collaborator, or
	// lexically extracted when the collaborator omitted them.
	KeyConcepts []string

	// MistakeExplanation describes the error made, for wrong
	// questions. Empty when the collaborator did not supply one.
	MistakeExplanation string

	// CorrectApproach describes how to solve the problem correctly,
	// for wrong questions.
	CorrectApproach string

	// ClassifiedAt is when the classification was validated.
	ClassifiedAt time.Time
}

// EmbeddingRecord is the semantic vector for one classified
// fragment, keyed by the fragment's identity. Exactly one record
// exists per fragment; re-processing a source supersedes rather than
// duplicates.
type EmbeddingRecord struct {
	// ID is the owning fragment's identity.
	ID string

	// Vector is the fixed-length embedding, L2-normalised.
	Vector []float32

	// Seq orders insertions so that similarity ties can be broken
	// by recency. Higher is more recent.
	Seq int64

	// InsertedAt is when the record was (re)computed.
	InsertedAt time.Time
}
