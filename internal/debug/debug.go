// Package debug is gildash's level-gated debug logging facility: a
// single process-wide writer, toggled by a build flag or the DEBUG
// environment variable, with named component loggers for each
// subsystem (indexing, graph, ownership, watcher).
package debug

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// EnableDebug is a build-time flag:
// go build -ldflags "-X github.com/standardbeagle/gildash/internal/debug.EnableDebug=true"
var EnableDebug = "false"

// QuietMode suppresses all debug output regardless of EnableDebug/DEBUG,
// used when gildash's output is being consumed by another process over
// a structured channel (e.g. piped CLI output) that debug lines would corrupt.
var QuietMode = false

var (
	debugOutput io.Writer
	debugFile   *os.File
	debugMutex  sync.Mutex
)

// SetQuietMode toggles QuietMode.
func SetQuietMode(enabled bool) { QuietMode = enabled }

// SetDebugOutput sets a custom writer for debug output. Pass nil to
// disable debug output entirely.
func SetDebugOutput(w io.Writer) {
	debugMutex.Lock()
	defer debugMutex.Unlock()
	debugOutput = w
}

// InitDebugLogFile initializes debug logging to a timestamped file
// under os.TempDir()/gildash-debug-logs/. Returns the log path.
func InitDebugLogFile() (string, error) {
	debugMutex.Lock()
	defer debugMutex.Unlock()

	logDir := filepath.Join(os.TempDir(), "gildash-debug-logs")
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create debug log directory: %w", err)
	}

	timestamp := time.Now().Format("2006-01-02T150405")
	logPath := filepath.Join(logDir, fmt.Sprintf("debug-%s.log", timestamp))

	file, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return "", fmt.Errorf("failed to create debug log file: %w", err)
	}

	debugFile = file
	debugOutput = file
	return logPath, nil
}

// CloseDebugLog closes the debug log file if one is open.
func CloseDebugLog() error {
	debugMutex.Lock()
	defer debugMutex.Unlock()

	if debugFile != nil {
		err := debugFile.Close()
		debugFile = nil
		debugOutput = nil
		return err
	}
	return nil
}

// IsDebugEnabled reports whether debug output should be emitted.
func IsDebugEnabled() bool {
	if QuietMode {
		return false
	}
	if EnableDebug == "true" {
		return true
	}
	if v := os.Getenv("DEBUG"); v == "1" || v == "true" {
		return true
	}
	return false
}

func getDebugWriter() io.Writer {
	debugMutex.Lock()
	defer debugMutex.Unlock()
	return debugOutput
}

// Printf prints debug information only when debug mode is enabled and output is configured.
func Printf(format string, args ...interface{}) {
	if !IsDebugEnabled() {
		return
	}
	if w := getDebugWriter(); w != nil {
		fmt.Fprintf(w, "[DEBUG] "+format, args...)
	}
}

// Log provides structured debug logging with component names.
func Log(component, format string, args ...interface{}) {
	if !IsDebugEnabled() {
		return
	}
	if w := getDebugWriter(); w != nil {
		fmt.Fprintf(w, "[DEBUG:%s] "+format, append([]interface{}{component}, args...)...)
	}
}

// LogIndexing logs a message from the index coordinator / indexers.
func LogIndexing(format string, args ...interface{}) { Log("INDEX", format, args...) }

// LogGraph logs a message from the dependency graph engine.
func LogGraph(format string, args ...interface{}) { Log("GRAPH", format, args...) }

// LogOwnership logs a message from the watcher ownership protocol.
func LogOwnership(format string, args ...interface{}) { Log("OWNER", format, args...) }

// LogWatcher logs a message from the filesystem watcher loop.
func LogWatcher(format string, args ...interface{}) { Log("WATCH", format, args...) }

// CatastrophicError records a system-failure message to the debug log.
// Callers still return a typed error to the caller; this only logs.
func CatastrophicError(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	if QuietMode {
		return
	}
	if w := getDebugWriter(); w != nil {
		fmt.Fprintf(w, "[CATASTROPHIC] %s", msg)
	}
}
