package services

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gleanly/glean/internal/core/domain"
)

// fragmentExt is the file extension the OCR collaborator writes its
// extracted text under.
const fragmentExt = ".txt"

// ReadFragment loads one OCR text drop as a fragment. The file name
// (without extension) is the source image id; the file modification
// time stands in for the capture timestamp.
func ReadFragment(path string) (domain.Fragment, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return domain.Fragment{}, fmt.Errorf("read fragment %s: %w", path, err)
	}

	info, err := os.Stat(path)
	if err != nil {
		return domain.Fragment{}, fmt.Errorf("stat fragment %s: %w", path, err)
	}

	base := filepath.Base(path)
	return domain.Fragment{
		Text: string(data),
		Source: domain.SourceRef{
			ImageID:    strings.TrimSuffix(base, filepath.Ext(base)),
			CapturedAt: info.ModTime().UTC(),
		},
	}, nil
}

// ReadFragmentDir loads every OCR text drop in dir, ordered by file
// name for deterministic batch input.
func ReadFragmentDir(dir string) ([]domain.Fragment, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read ingest directory %s: %w", dir, err)
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if !strings.EqualFold(filepath.Ext(entry.Name()), fragmentExt) {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)

	fragments := make([]domain.Fragment, 0, len(names))
	for _, name := range names {
		fragment, err := ReadFragment(filepath.Join(dir, name))
		if err != nil {
			return nil, err
		}
		fragments = append(fragments, fragment)
	}
	return fragments, nil
}

// IsFragmentFile reports whether path looks like an OCR text drop.
func IsFragmentFile(path string) bool {
	return strings.EqualFold(filepath.Ext(path), fragmentExt)
}
