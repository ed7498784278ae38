package watcher

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/standardbeagle/gildash/internal/types"
)

func TestScheduleCoalescesSamePath(t *testing.T) {
	l := &Loop{
		project:  "proj",
		debounce: 10 * time.Millisecond,
		pending:  make(map[string]types.FileChange),
	}

	var mu sync.Mutex
	var batches [][]types.FileChange
	done := make(chan struct{}, 1)
	l.SetOnBatch(func(b []types.FileChange) {
		mu.Lock()
		batches = append(batches, b)
		mu.Unlock()
	})
	l.SetOnBatchComplete(func() { done <- struct{}{} })

	l.schedule(types.FileChange{Project: "proj", Path: "a.ts", Kind: types.ChangeModified})
	l.schedule(types.FileChange{Project: "proj", Path: "a.ts", Kind: types.ChangeModified})
	l.schedule(types.FileChange{Project: "proj", Path: "b.ts", Kind: types.ChangeCreated})

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for batch dispatch")
	}

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, batches, 1)
	assert.Len(t, batches[0], 2)
}

func TestScheduleResetsTimerWithinWindow(t *testing.T) {
	l := &Loop{
		project:  "proj",
		debounce: 30 * time.Millisecond,
		pending:  make(map[string]types.FileChange),
	}

	var count int
	var mu sync.Mutex
	done := make(chan struct{}, 1)
	l.SetOnBatch(func(b []types.FileChange) {
		mu.Lock()
		count++
		mu.Unlock()
	})
	l.SetOnBatchComplete(func() { done <- struct{}{} })

	l.schedule(types.FileChange{Project: "proj", Path: "a.ts", Kind: types.ChangeModified})
	time.Sleep(10 * time.Millisecond)
	l.schedule(types.FileChange{Project: "proj", Path: "a.ts", Kind: types.ChangeModified})

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for batch dispatch")
	}

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 1, count)
}
