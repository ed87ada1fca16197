package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gleanly/glean/internal/core/domain"
)

func TestGroup_LinkedPairFormsNamedGroup(t *testing.T) {
	note := classifiedFragment("note-1", "Friction opposes motion", "Science", domain.KindNote)
	note.KeyConcepts = []string{"friction"}
	question := classifiedFragment("q-1", "Why did the block stop", "Science", domain.KindWrongQuestion)
	question.KeyConcepts = []string{"friction"}

	links := []domain.Link{{NoteID: "note-1", QuestionID: "q-1", Score: 0.7}}

	groups, err := NewGrouper().Group([]domain.ClassifiedFragment{note, question}, links)

	require.NoError(t, err)
	require.Len(t, groups, 1)
	group := groups[0]
	assert.Equal(t, "Science - Friction", group.Name)
	assert.Equal(t, "Science", group.Subject)
	assert.Len(t, group.Notes, 1)
	assert.Len(t, group.Questions, 1)
	assert.Len(t, group.Links, 1)
	assert.NotEmpty(t, group.Summary)
}

func TestGroup_UnlinkedFragmentsFallIntoGeneral(t *testing.T) {
	fragments := []domain.ClassifiedFragment{
		classifiedFragment("note-1", "Friction opposes motion", "Science", domain.KindNote),
		classifiedFragment("q-1", "Why did the block stop", "Science", domain.KindWrongQuestion),
	}

	groups, err := NewGrouper().Group(fragments, nil)

	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.Equal(t, "Science - General", groups[0].Name)
	assert.Equal(t, 2, groups[0].Size())
	assert.Empty(t, groups[0].Links)
}

func TestGroup_ChainedLinksMergeIntoOneComponent(t *testing.T) {
	note := classifiedFragment("note-1", "Friction opposes motion", "Science", domain.KindNote)
	q1 := classifiedFragment("q-1", "Why did the block stop", "Science", domain.KindWrongQuestion)
	q2 := classifiedFragment("q-2", "Compute the braking distance", "Science", domain.KindWrongQuestion)

	links := []domain.Link{
		{NoteID: "note-1", QuestionID: "q-1", Score: 0.7},
		{NoteID: "note-1", QuestionID: "q-2", Score: 0.6},
	}

	groups, err := NewGrouper().Group([]domain.ClassifiedFragment{note, q1, q2}, links)

	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.Equal(t, 3, groups[0].Size())
	assert.Len(t, groups[0].Links, 2)
}

func TestGroup_SubjectsNeverMix(t *testing.T) {
	fragments := []domain.ClassifiedFragment{
		classifiedFragment("note-1", "Friction opposes motion", "Science", domain.KindNote),
		classifiedFragment("note-2", "Fractions share denominators", "Math", domain.KindNote),
	}

	groups, err := NewGrouper().Group(fragments, nil)

	require.NoError(t, err)
	require.Len(t, groups, 2)
	assert.Equal(t, "Math - General", groups[0].Name)
	assert.Equal(t, "Science - General", groups[1].Name)
}

func TestGroup_UnclassifiedExcluded(t *testing.T) {
	fragments := []domain.ClassifiedFragment{
		classifiedFragment("u-1", "illegible scrawl", "Unknown", domain.KindUnclassified),
	}

	groups, err := NewGrouper().Group(fragments, nil)

	require.NoError(t, err)
	assert.Empty(t, groups, "no group from unclassified material")
}

func TestGroup_InvalidLinkFailsBatch(t *testing.T) {
	note := classifiedFragment("note-1", "Friction opposes motion", "Science", domain.KindNote)
	links := []domain.Link{{NoteID: "note-1", QuestionID: "q-missing", Score: 0.7}}

	_, err := NewGrouper().Group([]domain.ClassifiedFragment{note}, links)

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInconsistentLink)
}

func TestGroup_WrongKindLinkFailsBatch(t *testing.T) {
	n1 := classifiedFragment("note-1", "Friction opposes motion", "Science", domain.KindNote)
	n2 := classifiedFragment("note-2", "Gravity pulls downward", "Science", domain.KindNote)
	links := []domain.Link{{NoteID: "note-1", QuestionID: "note-2", Score: 0.7}}

	_, err := NewGrouper().Group([]domain.ClassifiedFragment{n1, n2}, links)

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInconsistentLink)
}

func TestGroup_MembersInCaptureOrder(t *testing.T) {
	older := classifiedFragment("note-b", "Friction opposes motion", "Science", domain.KindNote)
	older.Source.CapturedAt = older.Source.CapturedAt.Add(-time.Second)
	newer := classifiedFragment("note-a", "Gravity pulls downward", "Science", domain.KindNote)

	groups, err := NewGrouper().Group([]domain.ClassifiedFragment{newer, older}, nil)

	require.NoError(t, err)
	require.Len(t, groups, 1)
	require.Len(t, groups[0].Notes, 2)
	assert.Equal(t, "note-b", groups[0].Notes[0].ID, "capture time precedes id in ordering")
	assert.Equal(t, "note-a", groups[0].Notes[1].ID)
}

func TestGroup_DeterministicAcrossRuns(t *testing.T) {
	note := classifiedFragment("note-1", "Friction opposes motion", "Science", domain.KindNote)
	note.KeyConcepts = []string{"friction"}
	question := classifiedFragment("q-1", "Why did the block stop", "Science", domain.KindWrongQuestion)
	question.KeyConcepts = []string{"friction"}
	loose := classifiedFragment("note-2", "Photosynthesis basics", "Science", domain.KindNote)

	fragments := []domain.ClassifiedFragment{note, question, loose}
	links := []domain.Link{{NoteID: "note-1", QuestionID: "q-1", Score: 0.7}}

	first, err := NewGrouper().Group(fragments, links)
	require.NoError(t, err)
	second, err := NewGrouper().Group(fragments, links)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	require.Len(t, first, 2)
}
