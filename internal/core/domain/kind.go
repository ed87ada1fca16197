package domain

import "strings"

// Kind is the validated classification of a fragment.
type Kind string

// Fragment kinds.
const (
	// KindNote is educational content: formulas, concepts,
	// explanations, study material.
	KindNote Kind = "note"

	// KindWrongQuestion is a practice problem answered incorrectly,
	// typically with a mistake explanation and correct approach.
	KindWrongQuestion Kind = "wrong_question"

	// KindUnclassified is the outcome when the collaborator returned
	// an unknown or unparseable kind. Unclassified fragments are
	// excluded from linking but still count as processed.
	KindUnclassified Kind = "unclassified"
)

// ParseKind maps a raw collaborator string to a Kind.
// Unknown values map to KindUnclassified, never to a guess.
func ParseKind(raw string) Kind {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "note", "notes":
		return KindNote
	case "wrong_question", "wrong question", "wrongquestion", "wrong-question":
		return KindWrongQuestion
	default:
		return KindUnclassified
	}
}

// Linkable returns true if fragments of this kind participate in
// link inference.
func (k Kind) Linkable() bool {
	return k == KindNote || k == KindWrongQuestion
}

// String returns the string representation.
func (k Kind) String() string {
	return string(k)
}
