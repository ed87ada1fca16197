package logger

import (
	"bytes"
	"os"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func reset() {
	SetVerbose(false)
	SetOutput(os.Stderr)
}

func TestSetVerbose(t *testing.T) {
	defer reset()

	SetVerbose(false)
	assert.False(t, IsVerbose())

	SetVerbose(true)
	assert.True(t, IsVerbose())

	SetVerbose(false)
	assert.False(t, IsVerbose())
}

func TestDebugRespectsVerbose(t *testing.T) {
	defer reset()

	var buf bytes.Buffer
	SetOutput(&buf)

	SetVerbose(false)
	Debug("classifying fragment %s", "frag-1")
	assert.Zero(t, buf.Len(), "debug output expected only in verbose mode")

	SetVerbose(true)
	Debug("classifying fragment %s", "frag-1")
	assert.Equal(t, "[DEBUG] classifying fragment frag-1\n", buf.String())
}

func TestLevels(t *testing.T) {
	defer reset()

	var buf bytes.Buffer
	SetOutput(&buf)
	SetVerbose(true)

	Info("processed %d fragments", 7)
	Warn("classifier unreachable")
	Section("Linking")

	assert.Equal(t, "[INFO] processed 7 fragments\n[WARN] classifier unreachable\n\n=== Linking ===\n", buf.String())
}

func TestWarnIgnoresVerboseGate(t *testing.T) {
	defer reset()

	var buf bytes.Buffer
	SetOutput(&buf)
	SetVerbose(false)

	Info("processed 7 fragments")
	Warn("classifier unreachable")

	assert.Equal(t, "[WARN] classifier unreachable\n", buf.String())
}

func TestConcurrentAccess(t *testing.T) {
	defer reset()

	var buf bytes.Buffer
	SetOutput(&buf)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			SetVerbose(true)
			Debug("worker %d", n)
			IsVerbose()
			SetVerbose(false)
		}(i)
	}
	wg.Wait()
}
