package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseKind(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		expected Kind
	}{
		{"note", "note", KindNote},
		{"notes plural", "notes", KindNote},
		{"note with casing and spaces", "  Note ", KindNote},
		{"wrong_question", "wrong_question", KindWrongQuestion},
		{"wrong question with space", "wrong question", KindWrongQuestion},
		{"wrong question hyphenated", "wrong-question", KindWrongQuestion},
		{"wrong question collapsed", "WrongQuestion", KindWrongQuestion},
		{"empty maps to unclassified", "", KindUnclassified},
		{"unknown maps to unclassified", "essay", KindUnclassified},
		{"partial match is not guessed", "notebook", KindUnclassified},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ParseKind(tt.raw))
		})
	}
}

func TestKind_Linkable(t *testing.T) {
	assert.True(t, KindNote.Linkable())
	assert.True(t, KindWrongQuestion.Linkable())
	assert.False(t, KindUnclassified.Linkable())
	assert.False(t, Kind("essay").Linkable())
}

func TestKind_String(t *testing.T) {
	assert.Equal(t, "note", KindNote.String())
	assert.Equal(t, "wrong_question", KindWrongQuestion.String())
	assert.Equal(t, "unclassified", KindUnclassified.String())
}
