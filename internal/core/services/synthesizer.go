package services

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/gleanly/glean/internal/core/domain"
)

// timestampLayout renders generation timestamps in documents.
const timestampLayout = "2006-01-02 15:04:05 UTC"

// notCaptured renders in place of fields the collaborator did not
// supply.
const notCaptured = "(not captured)"

// Synthesizer renders a group into its canonical markdown document.
// Rendering is deterministic: the same group produces byte-identical
// content except for the generation timestamp.
type Synthesizer struct{}

// NewSynthesizer creates a synthesizer.
func NewSynthesizer() *Synthesizer {
	return &Synthesizer{}
}

// Synthesize renders group at the given generation time. The cross
// reference lists of notes and questions are both derived from the
// group's link set, so every note-to-question reference has its
// matching question-to-note reference by construction.
func (s *Synthesizer) Synthesize(group domain.Group, now time.Time) (domain.Document, error) {
	byID := make(map[string]domain.ClassifiedFragment, group.Size())
	for _, member := range group.Members() {
		byID[member.ID] = member
	}
	for _, link := range group.Links {
		if err := link.Validate(byID); err != nil {
			return domain.Document{}, err
		}
	}

	noteRefs, questionRefs := crossReferences(group)
	generated := now.UTC()

	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", group.Name)
	fmt.Fprintf(&b, "Generated: %s\n\n", generated.Format(timestampLayout))
	fmt.Fprintf(&b, "%s\n", group.Summary)

	if len(group.Notes) > 0 {
		b.WriteString("\n## Notes\n")
		for i, note := range group.Notes {
			fmt.Fprintf(&b, "\n### Note %d (%s)\n\n", i+1, note.ID)
			fmt.Fprintf(&b, "%s\n", strings.TrimSpace(note.Text))
			writeFragmentDetails(&b, note)
			writeRefs(&b, "Related wrong questions", noteRefs[note.ID])
		}
	}

	if len(group.Questions) > 0 {
		b.WriteString("\n## Wrong Questions\n")
		for i, question := range group.Questions {
			fmt.Fprintf(&b, "\n### Question %d (%s)\n\n", i+1, question.ID)
			fmt.Fprintf(&b, "%s\n", strings.TrimSpace(question.Text))
			writeFragmentDetails(&b, question)
			fmt.Fprintf(&b, "- Mistake: %s\n", orNotCaptured(question.MistakeExplanation))
			fmt.Fprintf(&b, "- Correct approach: %s\n", orNotCaptured(question.CorrectApproach))
			writeRefs(&b, "Related notes", questionRefs[question.ID])
		}
	}

	b.WriteString("\n---\n\n")
	fmt.Fprintf(&b, "Notes: %d | Wrong questions: %d | Links: %d\n",
		len(group.Notes), len(group.Questions), len(group.Links))
	fmt.Fprintf(&b, "Generated at %s\n", generated.Format(timestampLayout))

	return domain.Document{
		GroupName:   group.Name,
		Subject:     group.Subject,
		GeneratedAt: generated,
		Content:     b.String(),
	}, nil
}

// ref is one cross reference with its link score for ordering.
type ref struct {
	id      string
	score   float64
	textLen int
}

// crossReferences derives both directions of the reference lists
// from the link set. References are ordered by link score, then by
// the brevity of the referenced note, then id.
func crossReferences(group domain.Group) (noteRefs, questionRefs map[string][]ref) {
	textLen := make(map[string]int, group.Size())
	for _, member := range group.Members() {
		textLen[member.ID] = len(member.Text)
	}

	noteRefs = make(map[string][]ref)
	questionRefs = make(map[string][]ref)
	for _, link := range group.Links {
		noteRefs[link.NoteID] = append(noteRefs[link.NoteID],
			ref{id: link.QuestionID, score: link.Score, textLen: textLen[link.QuestionID]})
		questionRefs[link.QuestionID] = append(questionRefs[link.QuestionID],
			ref{id: link.NoteID, score: link.Score, textLen: textLen[link.NoteID]})
	}

	for _, refs := range [...]map[string][]ref{noteRefs, questionRefs} {
		for _, list := range refs {
			sort.Slice(list, func(i, j int) bool {
				if list[i].score != list[j].score {
					return list[i].score > list[j].score
				}
				if list[i].textLen != list[j].textLen {
					return list[i].textLen < list[j].textLen
				}
				return list[i].id < list[j].id
			})
		}
	}
	return noteRefs, questionRefs
}

// writeFragmentDetails renders the shared detail lines of a member.
func writeFragmentDetails(b *strings.Builder, fragment domain.ClassifiedFragment) {
	b.WriteString("\n")
	fmt.Fprintf(b, "- Type: %s", fragment.ContentType)
	if fragment.LowConfidence {
		fmt.Fprintf(b, " | Confidence: %.2f (low)\n", fragment.Confidence)
	} else {
		fmt.Fprintf(b, " | Confidence: %.2f\n", fragment.Confidence)
	}
	if len(fragment.KeyConcepts) > 0 {
		fmt.Fprintf(b, "- Key concepts: %s\n", strings.Join(fragment.KeyConcepts, ", "))
	}
	fmt.Fprintf(b, "- Source: %s\n", fragment.Source.ImageID)
}

// writeRefs renders one direction of the cross reference list.
func writeRefs(b *strings.Builder, label string, refs []ref) {
	if len(refs) == 0 {
		fmt.Fprintf(b, "- %s: none\n", label)
		return
	}
	ids := make([]string, len(refs))
	for i, r := range refs {
		ids[i] = r.id
	}
	fmt.Fprintf(b, "- %s: %s\n", label, strings.Join(ids, ", "))
}

// orNotCaptured substitutes the placeholder for empty values.
func orNotCaptured(value string) string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return notCaptured
	}
	return trimmed
}
