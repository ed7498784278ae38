package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetectBuildOutputsFromTSConfig(t *testing.T) {
	dir := t.TempDir()
	tsconfig := `{"compilerOptions": {"outDir": "lib-out"}}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "tsconfig.json"), []byte(tsconfig), 0o644))

	patterns := DetectBuildOutputs(dir)
	assert.Contains(t, patterns, "**/lib-out/**")
}

func TestDetectBuildOutputsNoConfigFiles(t *testing.T) {
	dir := t.TempDir()
	assert.Empty(t, DetectBuildOutputs(dir))
}

func TestDeduplicatePatternsPreservesOrder(t *testing.T) {
	out := DeduplicatePatterns([]string{"a", "b", "a", "c", "b"})
	assert.Equal(t, []string{"a", "b", "c"}, out)
}
