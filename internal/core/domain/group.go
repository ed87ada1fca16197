package domain

// Group is a named, subject-scoped cluster of linked fragments that
// renders as one study document. Groups are rebuilt wholesale on
// each synthesis run for the affected subject, never patched.
type Group struct {
	// Name is the display name, derived from the subject and the
	// cluster's dominant topic keyword.
	Name string

	// Subject is the study subject the group belongs to.
	Subject string

	// Topic is the dominant keyword the name was derived from.
	Topic string

	// Notes are the member notes in capture order.
	Notes []ClassifiedFragment

	// Questions are the member wrong questions in capture order.
	Questions []ClassifiedFragment

	// Links are the note-question relationships among the members.
	Links []Link

	// Summary is a short generated description of the cluster.
	Summary string
}

// Size returns the total member count.
func (g Group) Size() int {
	return len(g.Notes) + len(g.Questions)
}

// Members returns all member fragments, notes first.
func (g Group) Members() []ClassifiedFragment {
	members := make([]ClassifiedFragment, 0, g.Size())
	members = append(members, g.Notes...)
	members = append(members, g.Questions...)
	return members
}
