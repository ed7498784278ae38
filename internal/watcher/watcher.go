// Package watcher implements the owner coordinator's filesystem watch
// loop (spec.md §4.9): fsnotify events are coalesced per path within a
// short debounce window and dispatched as one batch.
//
// Grounded directly on the teacher's internal/indexing/watcher.go
// (recursive directory watch, event-processing goroutine) and
// internal/indexing/debounced_rebuilder.go (time.AfterFunc debounce,
// pending-set swap-and-clear, SetOnRebuildComplete test-sync hook,
// carried over here as Loop.SetOnBatchComplete).
package watcher

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/standardbeagle/gildash/internal/debug"
	gderrors "github.com/standardbeagle/gildash/internal/errors"
	"github.com/standardbeagle/gildash/internal/types"
)

// DefaultDebounce is the coalescing window (spec.md §4.9 "e.g. 50 ms").
const DefaultDebounce = 50 * time.Millisecond

// Loop watches a project root and dispatches coalesced batches of
// FileChange to OnBatch.
type Loop struct {
	project  string
	root     string
	watcher  *fsnotify.Watcher
	debounce time.Duration

	mu      sync.Mutex
	pending map[string]types.FileChange
	timer   *time.Timer

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	onBatch         func([]types.FileChange)
	onBatchComplete func() // test-synchronization hook
}

// New returns a Loop for project rooted at root, watching recursively.
func New(project, root string, debounce time.Duration) (*Loop, error) {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, gderrors.New(gderrors.Watcher, "watcher.New", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	l := &Loop{
		project:  project,
		root:     root,
		watcher:  fw,
		debounce: debounce,
		pending:  make(map[string]types.FileChange),
		ctx:      ctx,
		cancel:   cancel,
	}
	return l, nil
}

// SetOnBatch registers the callback invoked with each coalesced batch.
func (l *Loop) SetOnBatch(fn func([]types.FileChange)) { l.onBatch = fn }

// SetOnBatchComplete registers a test-only hook invoked after a batch
// has been dispatched to onBatch.
func (l *Loop) SetOnBatchComplete(fn func()) { l.onBatchComplete = fn }

// Start begins watching root recursively and processing events.
func (l *Loop) Start() error {
	if err := l.addWatches(l.root); err != nil {
		return gderrors.New(gderrors.Watcher, "watcher.Start", err)
	}
	l.wg.Add(1)
	go l.processEvents()
	return nil
}

// Stop cancels the loop and waits for its goroutine to exit.
func (l *Loop) Stop() error {
	l.cancel()
	err := l.watcher.Close()
	l.wg.Wait()
	if err != nil {
		return gderrors.New(gderrors.Watcher, "watcher.Stop", err)
	}
	return nil
}

func (l *Loop) addWatches(root string) error {
	return filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil
		}
		if info.IsDir() {
			if err := l.watcher.Add(path); err != nil {
				debug.LogWatcher("failed to watch %s: %v", path, err)
			}
		}
		return nil
	})
}

func (l *Loop) processEvents() {
	defer l.wg.Done()
	for {
		select {
		case <-l.ctx.Done():
			return
		case event, ok := <-l.watcher.Events:
			if !ok {
				return
			}
			l.handleEvent(event)
		case err, ok := <-l.watcher.Errors:
			if !ok {
				return
			}
			debug.LogWatcher("fsnotify error: %v", err)
		}
	}
}

func (l *Loop) handleEvent(event fsnotify.Event) {
	rel, err := filepath.Rel(l.root, event.Name)
	if err != nil {
		return
	}
	rel = filepath.ToSlash(rel)

	kind := types.ChangeModified
	switch {
	case event.Op&fsnotify.Create != 0:
		kind = types.ChangeCreated
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			l.watcher.Add(event.Name)
			return
		}
	case event.Op&fsnotify.Remove != 0, event.Op&fsnotify.Rename != 0:
		kind = types.ChangeRemoved
	case event.Op&fsnotify.Write != 0:
		kind = types.ChangeModified
	default:
		return
	}

	l.schedule(types.FileChange{Project: l.project, Path: rel, Kind: kind})
}

// schedule coalesces a change per path and resets the debounce timer,
// mirroring the teacher's ScheduleRebuild/performRebuild swap-and-clear
// idiom.
func (l *Loop) schedule(change types.FileChange) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.pending[change.Path] = change
	if l.timer != nil {
		l.timer.Stop()
	}
	l.timer = time.AfterFunc(l.debounce, l.dispatch)
}

func (l *Loop) dispatch() {
	l.mu.Lock()
	pending := l.pending
	l.pending = make(map[string]types.FileChange)
	l.mu.Unlock()

	if len(pending) == 0 {
		return
	}
	batch := make([]types.FileChange, 0, len(pending))
	for _, c := range pending {
		batch = append(batch, c)
	}

	if l.onBatch != nil {
		l.onBatch(batch)
	}
	if l.onBatchComplete != nil {
		l.onBatchComplete()
	}
}
