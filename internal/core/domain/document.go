package domain

import "time"

// Document is a synthesized study document for one group, ready to
// be written by the persistence collaborator. The core supplies the
// content and a stable sort key; file naming is the writer's concern.
type Document struct {
	// GroupName is the name of the group the document renders.
	GroupName string

	// Subject is the group's subject.
	Subject string

	// GeneratedAt is when the document was synthesized. It is the
	// only part of a document allowed to differ between two renders
	// of the same group.
	GeneratedAt time.Time

	// Content is the rendered markdown.
	Content string
}

// SortKey returns a stable ordering key for deterministic document
// ordering across runs: group name first, generation time second.
func (d Document) SortKey() string {
	return d.GroupName + "\x00" + d.GeneratedAt.UTC().Format(time.RFC3339)
}
