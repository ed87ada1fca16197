package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGroup_Size(t *testing.T) {
	group := Group{
		Notes:     []ClassifiedFragment{{ID: "note-1"}, {ID: "note-2"}},
		Questions: []ClassifiedFragment{{ID: "q-1"}},
	}
	assert.Equal(t, 3, group.Size())
	assert.Equal(t, 0, Group{}.Size())
}

func TestGroup_MembersNotesFirst(t *testing.T) {
	group := Group{
		Notes:     []ClassifiedFragment{{ID: "note-1"}},
		Questions: []ClassifiedFragment{{ID: "q-1"}, {ID: "q-2"}},
	}

	members := group.Members()

	assert.Len(t, members, 3)
	assert.Equal(t, "note-1", members[0].ID)
	assert.Equal(t, "q-1", members[1].ID)
	assert.Equal(t, "q-2", members[2].ID)
}

func TestGroup_MembersDoesNotAliasBackingSlices(t *testing.T) {
	group := Group{Notes: []ClassifiedFragment{{ID: "note-1"}}}

	members := group.Members()
	members[0].ID = "mutated"

	assert.Equal(t, "note-1", group.Notes[0].ID)
}
