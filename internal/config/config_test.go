package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultsAreValid(t *testing.T) {
	cfg := Defaults()
	require.NoError(t, Validate(cfg))
}

func TestLoadWithNoKDLFilesReturnsDefaults(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("HOME", t.TempDir())

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.True(t, cfg.WatchMode)
	assert.Equal(t, 50, cfg.WatchDebounceMs)
}

func TestLoadMergesProjectKDLOverDefaults(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("HOME", t.TempDir())

	kdl := `
project {
    root "."
}
index {
    watch_debounce_ms 250
    semantic true
}
exclude "**/fixtures/**"
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".gildash.kdl"), []byte(kdl), 0o644))

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, 250, cfg.WatchDebounceMs)
	assert.True(t, cfg.Semantic)
	assert.Contains(t, cfg.Exclude, "**/fixtures/**")
	// default exclusions still present alongside project's own.
	assert.Contains(t, cfg.Exclude, "**/node_modules/**")
}

func TestMergeConfigsUnionsExclusionsAndKeepsBaseInclude(t *testing.T) {
	base := Defaults()
	base.Include = []string{"src/**/*.ts"}
	base.Exclude = []string{"**/a/**"}

	override := Defaults()
	override.Include = nil
	override.Exclude = []string{"**/b/**"}

	merged := mergeConfigs(base, override)
	assert.ElementsMatch(t, []string{"**/a/**", "**/b/**"}, merged.Exclude)
	assert.Equal(t, []string{"src/**/*.ts"}, merged.Include)
}

func TestValidateRejectsHeartbeatNotLessThanHalfStale(t *testing.T) {
	cfg := Defaults()
	cfg.StaleAfterSeconds = 20
	cfg.HeartbeatIntervalSeconds = 15
	assert.Error(t, Validate(cfg))
}

func TestValidateFillsWorkerPoolSizeWhenZero(t *testing.T) {
	cfg := Defaults()
	cfg.WorkerPoolSize = 0
	require.NoError(t, Validate(cfg))
	assert.Greater(t, cfg.WorkerPoolSize, 0)
}

func TestValidateRejectsReaderPollIntervalAboveStale(t *testing.T) {
	cfg := Defaults()
	cfg.ReaderPollIntervalSeconds = cfg.StaleAfterSeconds + 1
	assert.Error(t, Validate(cfg))
}

func TestLoadMergesReaderPollIntervalFromKDL(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("HOME", t.TempDir())

	kdl := `
ownership {
    reader_poll_interval_seconds 10
}
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".gildash.kdl"), []byte(kdl), 0o644))

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, 10, cfg.ReaderPollIntervalSeconds)
}
