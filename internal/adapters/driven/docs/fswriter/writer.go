// Package fswriter persists synthesized markdown documents to a
// notes directory on disk.
package fswriter

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/gleanly/glean/internal/core/domain"
	"github.com/gleanly/glean/internal/core/ports/driven"
)

// Ensure Writer implements the interface.
var _ driven.DocumentWriter = (*Writer)(nil)

// Writer writes one markdown file per group into a flat notes
// directory. The filename is a slug of the group name, so rewriting a
// group replaces its previous document.
type Writer struct {
	dir string
}

// NewWriter creates a writer rooted at dir. If dir is empty, defaults
// to ~/.glean/notes.
func NewWriter(dir string) (*Writer, error) {
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("get home directory: %w", err)
		}
		dir = filepath.Join(home, ".glean", "notes")
	}

	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("create notes directory: %w", err)
	}

	return &Writer{dir: dir}, nil
}

// Write persists a document, replacing any prior version of the same
// group's document. The write is atomic: content lands in a temp file
// that is renamed into place.
func (w *Writer) Write(ctx context.Context, doc domain.Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	name := Slug(doc.GroupName) + ".md"
	path := filepath.Join(w.dir, name)

	tmp, err := os.CreateTemp(w.dir, "."+name+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.WriteString(doc.Content); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("write document: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("close temp file: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename document: %w", err)
	}

	return nil
}

// Dir returns the notes directory path.
func (w *Writer) Dir() string {
	return w.dir
}

// Slug converts a group name to a safe, stable filename component.
// Letters and digits are kept (lowercased), runs of anything else
// collapse to a single hyphen.
func Slug(name string) string {
	var b strings.Builder
	lastHyphen := true // suppress leading hyphen
	for _, r := range name {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(unicode.ToLower(r))
			lastHyphen = false
		default:
			if !lastHyphen {
				b.WriteRune('-')
				lastHyphen = true
			}
		}
	}
	slug := strings.TrimSuffix(b.String(), "-")
	if slug == "" {
		slug = "untitled"
	}
	return slug
}
