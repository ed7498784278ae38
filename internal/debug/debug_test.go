package debug

import (
	"bytes"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func saveAndRestoreState() func() {
	originalDebug := EnableDebug
	originalQuiet := QuietMode
	originalOutput := debugOutput
	originalFile := debugFile
	return func() {
		EnableDebug = originalDebug
		QuietMode = originalQuiet
		debugOutput = originalOutput
		debugFile = originalFile
	}
}

func TestSetQuietMode(t *testing.T) {
	defer saveAndRestoreState()()

	SetQuietMode(true)
	assert.True(t, QuietMode)

	SetQuietMode(false)
	assert.False(t, QuietMode)
}

func TestIsDebugEnabled(t *testing.T) {
	defer saveAndRestoreState()()

	EnableDebug = "false"
	QuietMode = false
	os.Unsetenv("DEBUG")
	assert.False(t, IsDebugEnabled())

	EnableDebug = "true"
	assert.True(t, IsDebugEnabled())

	EnableDebug = "false"
	os.Setenv("DEBUG", "1")
	defer os.Unsetenv("DEBUG")
	assert.True(t, IsDebugEnabled())

	QuietMode = true
	assert.False(t, IsDebugEnabled())
}

func TestPrintfWritesWhenEnabled(t *testing.T) {
	defer saveAndRestoreState()()

	EnableDebug = "true"
	QuietMode = false
	var buf bytes.Buffer
	SetDebugOutput(&buf)

	Printf("hello %s", "world")
	assert.Contains(t, buf.String(), "hello world")
}

func TestLogComponentsPrefixCorrectly(t *testing.T) {
	defer saveAndRestoreState()()

	EnableDebug = "true"
	QuietMode = false
	var buf bytes.Buffer
	SetDebugOutput(&buf)

	LogIndexing("pass1 for %s", "a.ts")
	LogGraph("cycle found")
	LogOwnership("acquired by %d", 42)
	LogWatcher("batch of %d events", 3)

	out := buf.String()
	for _, want := range []string{"[DEBUG:INDEX]", "[DEBUG:GRAPH]", "[DEBUG:OWNER]", "[DEBUG:WATCH]"} {
		assert.True(t, strings.Contains(out, want), "expected %q in %q", want, out)
	}
}

func TestQuietModeSuppressesOutput(t *testing.T) {
	defer saveAndRestoreState()()

	EnableDebug = "true"
	QuietMode = true
	var buf bytes.Buffer
	SetDebugOutput(&buf)

	Printf("should not appear")
	assert.Empty(t, buf.String())
}

func TestInitAndCloseDebugLogFile(t *testing.T) {
	defer saveAndRestoreState()()

	path, err := InitDebugLogFile()
	assert.NoError(t, err)
	assert.FileExists(t, path)

	assert.NoError(t, CloseDebugLog())
	os.Remove(path)
}
