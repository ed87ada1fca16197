package services

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/gleanly/glean/internal/core/domain"
	"github.com/gleanly/glean/internal/core/ports/driven"
	"github.com/gleanly/glean/internal/logger"
)

// Relevance weighting between semantic similarity and lexical
// concept overlap. Semantic similarity dominates so paraphrased
// material still links; the lexical term rewards explicitly shared
// concepts.
const (
	semanticWeight = 0.7
	lexicalWeight  = 0.3
)

// Linker infers note to wrong-question relationships within a
// subject. Link inference is deterministic given the same embedding
// index state: identical input always yields the identical link set.
type Linker struct {
	index     driven.EmbeddingIndex
	threshold float64
}

// NewLinker creates a linker with the given relevance threshold.
func NewLinker(index driven.EmbeddingIndex, threshold float64) *Linker {
	return &Linker{index: index, threshold: threshold}
}

// Link computes the link set over a batch of classified fragments.
// Only same-subject note/wrong-question pairs are considered;
// unclassified fragments never participate. A fragment without an
// embedding record is an internal invariant violation and fails the
// batch.
func (l *Linker) Link(ctx context.Context, fragments []domain.ClassifiedFragment) ([]domain.Link, error) {
	bySubject := make(map[string][]domain.ClassifiedFragment)
	for _, fragment := range fragments {
		if !fragment.Kind.Linkable() {
			continue
		}
		bySubject[fragment.Subject] = append(bySubject[fragment.Subject], fragment)
	}

	subjects := make([]string, 0, len(bySubject))
	for subject := range bySubject {
		subjects = append(subjects, subject)
	}
	sort.Strings(subjects)

	links := make([]domain.Link, 0)
	seen := make(map[string]struct{})
	noteLen := make(map[string]int)

	for _, subject := range subjects {
		notes, questions := splitByKind(bySubject[subject])
		for _, note := range notes {
			noteLen[note.ID] = len(note.Text)
			for _, question := range questions {
				link, ok, err := l.score(ctx, note, question)
				if err != nil {
					return nil, err
				}
				if !ok {
					continue
				}
				if _, dup := seen[link.Key()]; dup {
					return nil, fmt.Errorf("%w: %s", domain.ErrDuplicateLink, link.Key())
				}
				seen[link.Key()] = struct{}{}
				links = append(links, link)
			}
		}
	}

	// Ranking order: higher combined score first, then the more
	// concise note, then ids for stability.
	sort.Slice(links, func(i, j int) bool {
		if links[i].Score != links[j].Score {
			return links[i].Score > links[j].Score
		}
		if noteLen[links[i].NoteID] != noteLen[links[j].NoteID] {
			return noteLen[links[i].NoteID] < noteLen[links[j].NoteID]
		}
		if links[i].NoteID != links[j].NoteID {
			return links[i].NoteID < links[j].NoteID
		}
		return links[i].QuestionID < links[j].QuestionID
	})

	logger.Debug("linker produced %d links from %d fragments", len(links), len(fragments))
	return links, nil
}

// score computes the combined relevance of one note/question pair
// and returns a link when it clears the threshold.
func (l *Linker) score(ctx context.Context, note, question domain.ClassifiedFragment) (domain.Link, bool, error) {
	semantic, err := l.index.Similarity(ctx, note.ID, question.ID)
	if err != nil {
		return domain.Link{}, false, fmt.Errorf("%w: fragment pair %s/%s: %v",
			domain.ErrInconsistentLink, note.ID, question.ID, err)
	}

	noteTokens := conceptTokens(note)
	questionTokens := conceptTokens(question)
	lexical := jaccard(noteTokens, questionTokens)

	combined := semanticWeight*semantic + lexicalWeight*lexical
	if combined < l.threshold {
		return domain.Link{}, false, nil
	}

	return domain.Link{
		NoteID:     note.ID,
		QuestionID: question.ID,
		Score:      combined,
		Rationale:  rationale(semantic, noteTokens, questionTokens),
	}, true, nil
}

// conceptTokens merges a fragment's cited key concepts with the
// salient tokens of its text and mistake explanation.
func conceptTokens(fragment domain.ClassifiedFragment) map[string]struct{} {
	set := tokenSet(fragment.Text)
	for tok := range tokenSet(fragment.MistakeExplanation) {
		set[tok] = struct{}{}
	}
	for _, concept := range fragment.KeyConcepts {
		for _, tok := range tokenize(concept) {
			set[tok] = struct{}{}
		}
	}
	return set
}

// rationale renders a short explanation for a link.
func rationale(semantic float64, noteTokens, questionTokens map[string]struct{}) string {
	shared := sharedTokens(noteTokens, questionTokens)
	if len(shared) > 3 {
		shared = shared[:3]
	}
	if len(shared) == 0 {
		return fmt.Sprintf("semantically related (similarity %.2f)", semantic)
	}
	return fmt.Sprintf("shares %s (similarity %.2f)", strings.Join(shared, ", "), semantic)
}

// splitByKind partitions linkable fragments preserving input order.
func splitByKind(fragments []domain.ClassifiedFragment) (notes, questions []domain.ClassifiedFragment) {
	for _, fragment := range fragments {
		switch fragment.Kind {
		case domain.KindNote:
			notes = append(notes, fragment)
		case domain.KindWrongQuestion:
			questions = append(questions, fragment)
		}
	}
	return notes, questions
}
