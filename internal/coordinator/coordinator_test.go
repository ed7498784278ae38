package coordinator

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/standardbeagle/gildash/internal/config"
	"github.com/standardbeagle/gildash/internal/extract"
	"github.com/standardbeagle/gildash/internal/store"
	"github.com/standardbeagle/gildash/internal/types"
)

func newTestCoordinator(t *testing.T, root string) (*Coordinator, *store.Store) {
	t.Helper()
	ctx := context.Background()

	s, err := store.Open(ctx, filepath.Join(t.TempDir(), "gildash.db"), store.DefaultOptions())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	cfg := config.Defaults()
	cfg.ProjectRoot = root
	cfg.Exclude = []string{"**/.git/**", "**/node_modules/**"}
	cfg.WorkerPoolSize = 2
	cfg.ASTCacheCapacity = 10

	c := New(s, extract.NewStaticExtractor(), cfg)
	t.Cleanup(func() { _ = c.Close() })
	return c, s
}

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	full := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
	require.NoError(t, os.WriteFile(full, []byte(content), 0o644))
}

func TestFullIndexDiscoversSymbolsAndRelations(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "package.json", `{"name":"app"}`)
	writeFile(t, root, "src/util.ts", "export function helper() {}\n")
	writeFile(t, root, "src/main.ts", "import { helper } from './util'\n\nexport function main() {}\n")

	c, s := newTestCoordinator(t, root)
	ctx := context.Background()

	require.NoError(t, c.FullIndex(ctx))

	var symbolCount int
	row := s.DB().QueryRowContext(ctx, "SELECT COUNT(*) FROM symbols")
	require.NoError(t, row.Scan(&symbolCount))
	assert.Equal(t, 2, symbolCount)

	var relationCount int
	row = s.DB().QueryRowContext(ctx, "SELECT COUNT(*) FROM relations")
	require.NoError(t, row.Scan(&relationCount))
	assert.GreaterOrEqual(t, relationCount, 1)
}

func TestFullIndexIsIdempotent(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "package.json", `{"name":"app"}`)
	writeFile(t, root, "src/a.ts", "export function a() {}\n")

	c, s := newTestCoordinator(t, root)
	ctx := context.Background()

	require.NoError(t, c.FullIndex(ctx))
	require.NoError(t, c.FullIndex(ctx))

	var fileCount int
	row := s.DB().QueryRowContext(ctx, "SELECT COUNT(*) FROM files")
	require.NoError(t, row.Scan(&fileCount))
	assert.Equal(t, 1, fileCount)
}

func TestFullIndexDeletesRemovedFiles(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "package.json", `{"name":"app"}`)
	writeFile(t, root, "src/a.ts", "export function a() {}\n")
	writeFile(t, root, "src/b.ts", "export function b() {}\n")

	c, s := newTestCoordinator(t, root)
	ctx := context.Background()
	require.NoError(t, c.FullIndex(ctx))

	require.NoError(t, os.Remove(filepath.Join(root, "src/b.ts")))
	require.NoError(t, c.FullIndex(ctx))

	var fileCount int
	row := s.DB().QueryRowContext(ctx, "SELECT COUNT(*) FROM files")
	require.NoError(t, row.Scan(&fileCount))
	assert.Equal(t, 2, fileCount) // package.json + a.ts
}

func TestCoordinatorCloseRejectsFurtherIndexing(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "package.json", `{"name":"app"}`)

	c, _ := newTestCoordinator(t, root)
	require.NoError(t, c.Close())

	err := c.FullIndex(context.Background())
	assert.Error(t, err)
}

// TestFullIndexAssignsCrossProjectBoundary exercises a tree with two
// projects where one imports across the directory boundary into the
// other, per spec.md §4.1/§4.5 "Boundaries". The relation's
// destination project must resolve to the importED project (libB),
// not fall back to the importing project (appA).
func TestFullIndexAssignsCrossProjectBoundary(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "appA/package.json", `{"name":"appA"}`)
	writeFile(t, root, "appA/src/main.ts", "import { helper } from '../../libB/src/util'\n\nexport function main() {}\n")
	writeFile(t, root, "libB/package.json", `{"name":"libB"}`)
	writeFile(t, root, "libB/src/util.ts", "export function helper() {}\n")

	c, s := newTestCoordinator(t, root)
	ctx := context.Background()
	require.NoError(t, c.FullIndex(ctx))

	out, err := store.NewRelationRepo().GetOutgoing(ctx, s.DB(), "appA", "appA/src/main.ts")
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "libB", out[0].DstProject)
	assert.Equal(t, "libB/src/util.ts", out[0].DstFilePath)
}

// TestFullIndexRetargetsRelationsOnSymbolRename covers spec.md §4.6
// step 4 "Call retargetRelations when a symbol is renamed inside a
// file": a relation pointing at a symbol that later gets renamed, with
// its declaration otherwise untouched, must follow the rename instead
// of dangling on the old name.
func TestFullIndexRetargetsRelationsOnSymbolRename(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "package.json", `{"name":"app"}`)
	writeFile(t, root, "src/a.ts", "export function foo() {}\n")
	writeFile(t, root, "src/b.ts", "export function caller() {}\n")

	c, s := newTestCoordinator(t, root)
	ctx := context.Background()
	require.NoError(t, c.FullIndex(ctx))

	project := filepath.Base(root)
	relations := store.NewRelationRepo()
	oldName := "foo"
	require.NoError(t, relations.ReplaceFileRelations(ctx, s.DB(), project, "src/b.ts", []types.RelationRecord{
		{Type: types.RelCalls, DstProject: project, DstFilePath: "src/a.ts", DstSymbolName: &oldName, MetaJSON: "{}"},
	}))

	writeFile(t, root, "src/a.ts", "export function bar() {}\n")
	require.NoError(t, c.FullIndex(ctx))

	out, err := relations.GetOutgoing(ctx, s.DB(), project, "src/b.ts")
	require.NoError(t, err)
	require.Len(t, out, 1)
	require.NotNil(t, out[0].DstSymbolName)
	assert.Equal(t, "bar", *out[0].DstSymbolName)
}

// TestIncrementalEmitsEventErrorOnReadFailure covers the disposition
// table's "io: record failure; skip file" row (spec.md §7): a change
// referencing a file that vanished between event and read must not be
// silently dropped, it must surface on the event stream.
func TestIncrementalEmitsEventErrorOnReadFailure(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "package.json", `{"name":"app"}`)

	c, _ := newTestCoordinator(t, root)
	ctx := context.Background()
	require.NoError(t, c.FullIndex(ctx))
	<-c.Events() // FullIndex's own EventIndexed

	batch := []types.FileChange{
		{Project: "app", Path: "src/missing.ts", Kind: types.ChangeModified},
	}
	require.NoError(t, c.Incremental(ctx, batch))

	select {
	case ev := <-c.Events():
		require.Equal(t, EventError, ev.Kind)
		require.Error(t, ev.Err)
	case <-time.After(time.Second):
		t.Fatal("expected an EventError for the unreadable file")
	}
}
