package memory

import (
	"context"
	"sync"

	"github.com/gleanly/glean/internal/core/domain"
	"github.com/gleanly/glean/internal/core/ports/driven"
)

// Ensure DocumentWriter implements the interface.
var _ driven.DocumentWriter = (*DocumentWriter)(nil)

// DocumentWriter is an in-memory implementation of driven.DocumentWriter.
// Documents are kept keyed by group name so tests can inspect what the
// pipeline rendered.
type DocumentWriter struct {
	mu   sync.RWMutex
	docs map[string]domain.Document
}

// NewDocumentWriter creates a new in-memory document writer.
func NewDocumentWriter() *DocumentWriter {
	return &DocumentWriter{
		docs: make(map[string]domain.Document),
	}
}

// Write persists a document, replacing any prior version for the group.
func (w *DocumentWriter) Write(_ context.Context, doc domain.Document) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.docs[doc.GroupName] = doc
	return nil
}

// Get returns the stored document for a group name.
func (w *DocumentWriter) Get(groupName string) (domain.Document, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	doc, ok := w.docs[groupName]
	return doc, ok
}

// Len returns the number of stored documents.
func (w *DocumentWriter) Len() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return len(w.docs)
}
