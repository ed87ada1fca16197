package domain

import "fmt"

// Link is a validated relationship between exactly one note and one
// wrong question. Links are derived data: the linker recomputes them
// from scratch on every run, so they carry no identity beyond the
// pair itself.
type Link struct {
	// NoteID is the identity of the note end.
	NoteID string

	// QuestionID is the identity of the wrong-question end.
	QuestionID string

	// Score is the combined semantic and lexical relevance that
	// produced the link.
	Score float64

	// Rationale is a short human-readable explanation of why the
	// two fragments were linked.
	Rationale string
}

// Key returns the pair identity used to reject duplicate links.
func (l Link) Key() string {
	return l.NoteID + "\x00" + l.QuestionID
}

// Validate checks the link's referential integrity against the given
// fragment set. A link must reference two existing fragments of the
// correct, distinct kinds.
func (l Link) Validate(byID map[string]ClassifiedFragment) error {
	note, ok := byID[l.NoteID]
	if !ok {
		return fmt.Errorf("%w: note %s does not exist", ErrInconsistentLink, l.NoteID)
	}
	question, ok := byID[l.QuestionID]
	if !ok {
		return fmt.Errorf("%w: question %s does not exist", ErrInconsistentLink, l.QuestionID)
	}
	if l.NoteID == l.QuestionID {
		return fmt.Errorf("%w: link references %s on both ends", ErrInconsistentLink, l.NoteID)
	}
	if note.Kind != KindNote {
		return fmt.Errorf("%w: %s is %s, not a note", ErrInconsistentLink, l.NoteID, note.Kind)
	}
	if question.Kind != KindWrongQuestion {
		return fmt.Errorf("%w: %s is %s, not a wrong question", ErrInconsistentLink, l.QuestionID, question.Kind)
	}
	return nil
}
