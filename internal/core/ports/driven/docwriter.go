package driven

import (
	"context"

	"github.com/gleanly/glean/internal/core/domain"
)

// DocumentWriter persists synthesized documents. File naming and
// layout are the writer's concern; the core supplies a stable sort
// key per document for deterministic ordering across runs.
type DocumentWriter interface {
	// Write persists a document, replacing any prior version of the
	// same group's document.
	Write(ctx context.Context, doc domain.Document) error
}
