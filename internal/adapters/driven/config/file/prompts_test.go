package file

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gleanly/glean/internal/core/ports/driven"
)

func TestPromptStore_LoadCreatesDefaults(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "prompts")
	store, err := NewPromptStore(dir)
	require.NoError(t, err)

	// Constructor does no I/O.
	_, statErr := os.Stat(dir)
	assert.True(t, os.IsNotExist(statErr))

	prompt, err := store.Load(driven.PromptClassify)
	require.NoError(t, err)
	assert.Contains(t, prompt, "%s", "prompt carries the text placeholder")
	assert.Contains(t, prompt, "wrong_question")

	// First Load materialises editable files.
	assert.FileExists(t, filepath.Join(dir, "classify.txt"))
	assert.FileExists(t, filepath.Join(dir, "README.md"))
}

func TestPromptStore_UserEditsWin(t *testing.T) {
	dir := t.TempDir()
	custom := "Classify this: %s"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "classify.txt"), []byte(custom+"\n"), 0o600))

	store, err := NewPromptStore(dir)
	require.NoError(t, err)

	prompt, err := store.Load(driven.PromptClassify)
	require.NoError(t, err)
	assert.Equal(t, custom, prompt, "user file is preferred and trimmed")
}

func TestPromptStore_ExistingFilesNotOverwritten(t *testing.T) {
	dir := t.TempDir()
	custom := "my custom prompt %s"
	path := filepath.Join(dir, "classify.txt")
	require.NoError(t, os.WriteFile(path, []byte(custom), 0o600))

	store, err := NewPromptStore(dir)
	require.NoError(t, err)
	_, err = store.Load(driven.PromptClassify)
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, custom, string(data))
}

func TestPromptStore_ReloadPicksUpEdits(t *testing.T) {
	dir := t.TempDir()
	store, err := NewPromptStore(dir)
	require.NoError(t, err)

	first, err := store.Load(driven.PromptClassify)
	require.NoError(t, err)

	edited := "Edited prompt: %s"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "classify.txt"), []byte(edited), 0o600))

	// Cached until Reload.
	cached, err := store.Load(driven.PromptClassify)
	require.NoError(t, err)
	assert.Equal(t, first, cached)

	store.Reload()
	fresh, err := store.Load(driven.PromptClassify)
	require.NoError(t, err)
	assert.Equal(t, edited, fresh)
}

func TestPromptStore_UnknownPrompt(t *testing.T) {
	store, err := NewPromptStore(t.TempDir())
	require.NoError(t, err)

	_, err = store.Load("nonexistent")

	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "nonexistent"))
}

func TestPromptStore_Dir(t *testing.T) {
	dir := t.TempDir()
	store, err := NewPromptStore(dir)
	require.NoError(t, err)

	assert.Equal(t, dir, store.Dir())
}
