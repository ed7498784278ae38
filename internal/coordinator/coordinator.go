package coordinator

import (
	"context"
	"sync"

	"golang.org/x/sync/semaphore"

	"github.com/standardbeagle/gildash/internal/config"
	gderrors "github.com/standardbeagle/gildash/internal/errors"
	"github.com/standardbeagle/gildash/internal/extract"
	"github.com/standardbeagle/gildash/internal/fingerprint"
	"github.com/standardbeagle/gildash/internal/indexer"
	"github.com/standardbeagle/gildash/internal/resolver"
	"github.com/standardbeagle/gildash/internal/store"
	"github.com/standardbeagle/gildash/internal/types"
)

// Coordinator orchestrates project discovery and the two-pass
// full/incremental indexing pipeline (spec.md §4.6), emitting Events
// the dependency graph cache and CLI subscribe to.
type Coordinator struct {
	store     *store.Store
	files     *store.FileRepo
	symbols   *store.SymbolRepo
	relations *store.RelationRepo

	symbolIndexer   *indexer.SymbolIndexer
	relationIndexer *indexer.RelationIndexer

	extractor extract.Extractor
	cfg       *config.Config
	astCache  *ASTCache
	aliases   *resolver.AliasTable

	events    chan Event
	closeOnce sync.Once
	closed    chan struct{}
}

// New returns a Coordinator backed by s, using extractor to parse
// source files per cfg.
func New(s *store.Store, extractor extract.Extractor, cfg *config.Config) *Coordinator {
	files := store.NewFileRepo()
	symbols := store.NewSymbolRepo()
	relations := store.NewRelationRepo()

	return &Coordinator{
		store:           s,
		files:           files,
		symbols:         symbols,
		relations:       relations,
		symbolIndexer:   indexer.NewSymbolIndexer(symbols),
		relationIndexer: indexer.NewRelationIndexer(resolver.New(), relations),
		extractor:       extractor,
		cfg:             cfg,
		astCache:        NewASTCache(cfg.ASTCacheCapacity),
		events:          make(chan Event, 64),
		closed:          make(chan struct{}),
	}
}

// SetAliases configures the alias table the relation indexer resolves
// bare/aliased specifiers against (spec.md §4.1).
func (c *Coordinator) SetAliases(a *resolver.AliasTable) { c.aliases = a }

// Events returns the coordinator's event stream. Closed by Close.
func (c *Coordinator) Events() <-chan Event { return c.events }

// Close is idempotent (sync.Once-guarded, SPEC_FULL.md §5): once
// closed, subsequent FullIndex/Incremental calls fail fast with a
// Closed error.
func (c *Coordinator) Close() error {
	c.closeOnce.Do(func() {
		close(c.closed)
		close(c.events)
	})
	return nil
}

func (c *Coordinator) isClosed() bool {
	select {
	case <-c.closed:
		return true
	default:
		return false
	}
}

func (c *Coordinator) emit(ev Event) {
	select {
	case c.events <- ev:
	case <-c.closed:
	}
}

// pass1Result is one file's Pass 1 outcome, computed in a worker pool
// and serialized back into the transaction by the caller.
type pass1Result struct {
	path        string
	contentHash string
	ast         extract.AST
	rec         types.FileRecord
	err         error
}

// FullIndex runs the full indexing pipeline (spec.md §4.6): discover
// projects, then Pass 1 (file enumeration) and Pass 2 (symbols &
// relations) inside one top-level transaction.
func (c *Coordinator) FullIndex(ctx context.Context) error {
	if c.isClosed() {
		return gderrors.New(gderrors.Closed, "Coordinator.FullIndex", nil)
	}

	projects, err := DiscoverProjects(c.cfg.ProjectRoot, "", c.cfg.Exclude)
	if err != nil {
		return gderrors.New(gderrors.IO, "Coordinator.FullIndex:discover", err)
	}
	bt := newBoundaryTable(c.cfg.ProjectRoot, projects)

	discovered, err := walkSources(c.cfg.ProjectRoot, c.cfg.Include, c.cfg.Exclude)
	if err != nil {
		return gderrors.New(gderrors.IO, "Coordinator.FullIndex:walk", err)
	}

	byProject := make(map[string][]discoveredFile)
	for _, df := range discovered {
		p := bt.ProjectFor(df.Path, projects[0].Name)
		byProject[p] = append(byProject[p], df)
	}

	var changed, deleted []types.FileKey

	err = c.store.Tx(ctx, func(ctx context.Context, ex store.Execer) error {
		for _, p := range projects {
			existing, err := c.files.MapByPath(ctx, ex, p.Name)
			if err != nil {
				return err
			}
			seen := make(map[string]bool, len(byProject[p.Name]))
			results := c.runPass1(ctx, byProject[p.Name])

			for _, res := range results {
				if res.err != nil {
					c.emit(Event{Kind: EventError, Err: gderrors.New(gderrors.Parse, "Coordinator.FullIndex:pass1", res.err).WithPath(p.Name, res.path)})
					continue // recoverable per-file failure; spec.md §7
				}
				seen[res.path] = true
				res.rec.Project = p.Name
				if err := c.files.Upsert(ctx, ex, res.rec); err != nil {
					return err
				}
				if prior, ok := existing[res.path]; !ok || prior.ContentHash != res.contentHash {
					changed = append(changed, types.FileKey{Project: p.Name, Path: res.path})
					c.astCache.Put(p.Name+"::"+res.path, res.ast)
				}
			}

			for path := range existing {
				if !seen[path] {
					if err := c.files.Delete(ctx, ex, p.Name, path); err != nil {
						return err
					}
					deleted = append(deleted, types.FileKey{Project: p.Name, Path: path})
				}
			}
		}

		known, err := c.buildKnownFiles(ctx, ex, projects)
		if err != nil {
			return err
		}

		for _, key := range changed {
			ast, _ := c.astCache.Get(key.Project + "::" + key.Path)
			if err := c.indexFile(ctx, ex, key.Project, key.Path, ast, known, bt); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		c.emit(Event{Kind: EventError, Err: err})
		return err
	}

	c.emit(Event{Kind: EventIndexed, Changed: changed, Deleted: deleted})
	return nil
}

// Incremental runs the incremental indexing pipeline (spec.md §4.6)
// over a batch of filesystem changes, inside one transaction so a
// mid-batch failure leaves the store unchanged.
func (c *Coordinator) Incremental(ctx context.Context, batch []types.FileChange) error {
	if c.isClosed() {
		return gderrors.New(gderrors.Closed, "Coordinator.Incremental", nil)
	}
	if len(batch) == 0 {
		return nil
	}

	projects, err := DiscoverProjects(c.cfg.ProjectRoot, "", c.cfg.Exclude)
	if err != nil {
		return gderrors.New(gderrors.IO, "Coordinator.Incremental:discover", err)
	}
	bt := newBoundaryTable(c.cfg.ProjectRoot, projects)

	var changed, deleted []types.FileKey

	err = c.store.Tx(ctx, func(ctx context.Context, ex store.Execer) error {
		var toReindex []types.FileKey

		for _, change := range batch {
			if !shouldProcess(change.Path, c.cfg.Include, c.cfg.Exclude) {
				continue
			}
			if change.Kind == types.ChangeRemoved {
				if err := c.files.Delete(ctx, ex, change.Project, change.Path); err != nil {
					return err
				}
				c.astCache.Delete(change.Project + "::" + change.Path)
				deleted = append(deleted, types.FileKey{Project: change.Project, Path: change.Path})
				continue
			}

			abs := joinRoot(c.cfg.ProjectRoot, change.Path)
			content, readErr := readFile(abs)
			if readErr != nil {
				c.emit(Event{Kind: EventError, Err: gderrors.New(gderrors.IO, "Coordinator.Incremental:read", readErr).WithPath(change.Project, change.Path)})
				continue // recoverable IO failure; file may have vanished between event and read
			}
			hash := fingerprint.ContentHash(content)

			existing, err := c.files.Get(ctx, ex, change.Project, change.Path)
			if err != nil {
				return err
			}
			reindex := existing == nil || existing.ContentHash != hash

			ast, parseErr := c.extractor.Parse(abs, content)
			if parseErr != nil {
				c.emit(Event{Kind: EventError, Err: gderrors.New(gderrors.Parse, "Coordinator.Incremental:parse", parseErr).WithPath(change.Project, change.Path)})
				continue // recoverable parse failure; spec.md §7
			}
			c.astCache.Put(change.Project+"::"+change.Path, ast)

			info, statErr := statFile(abs)
			var mtimeMs, size int64
			if statErr == nil {
				mtimeMs, size = info.mtimeMs, info.size
			}

			rec := types.FileRecord{
				Project:     change.Project,
				Path:        change.Path,
				MTimeMs:     mtimeMs,
				Size:        size,
				ContentHash: hash,
				UpdatedAt:   nowRFC3339(),
			}
			if err := c.files.Upsert(ctx, ex, rec); err != nil {
				return err
			}
			if reindex {
				key := types.FileKey{Project: change.Project, Path: change.Path}
				changed = append(changed, key)
				toReindex = append(toReindex, key)
			}
		}

		known, err := c.buildKnownFiles(ctx, ex, projects)
		if err != nil {
			return err
		}

		for _, key := range toReindex {
			ast, _ := c.astCache.Get(key.Project + "::" + key.Path)
			if err := c.indexFile(ctx, ex, key.Project, key.Path, ast, known, bt); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		c.emit(Event{Kind: EventError, Err: err})
		return err
	}

	c.emit(Event{Kind: EventIndexed, Changed: changed, Deleted: deleted})
	return nil
}

// runPass1 hashes and parses already-read files concurrently through a
// bounded worker pool (golang.org/x/sync/semaphore, per SPEC_FULL.md
// §4.6), returning one result per file in input order. The caller
// stashes the ASTs of new or changed files in the LRU cache.
func (c *Coordinator) runPass1(ctx context.Context, files []discoveredFile) []pass1Result {
	results := make([]pass1Result, len(files))
	sem := semaphore.NewWeighted(int64(workerCount(c.cfg.WorkerPoolSize)))
	var wg sync.WaitGroup

	for i, df := range files {
		i, df := i, df
		if err := sem.Acquire(ctx, 1); err != nil {
			results[i] = pass1Result{path: df.Path, err: err}
			continue
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer sem.Release(1)
			results[i] = c.processPass1File(df)
		}()
	}
	wg.Wait()
	return results
}

func (c *Coordinator) processPass1File(df discoveredFile) pass1Result {
	hash := fingerprint.ContentHash(df.Content)
	ast, err := c.extractor.Parse(joinRoot(c.cfg.ProjectRoot, df.Path), df.Content)
	if err != nil {
		return pass1Result{path: df.Path, err: err}
	}
	return pass1Result{
		path:        df.Path,
		contentHash: hash,
		ast:         ast,
		rec: types.FileRecord{
			Path:        df.Path,
			MTimeMs:     df.MTimeMs,
			Size:        df.Size,
			ContentHash: hash,
			UpdatedAt:   nowRFC3339(),
		},
	}
}

func workerCount(n int) int {
	if n <= 0 {
		return 1
	}
	return n
}

// buildKnownFiles rebuilds the knownFiles set from current file rows
// across all projects (spec.md §4.6 step 4).
func (c *Coordinator) buildKnownFiles(ctx context.Context, ex store.Execer, projects []Project) (*types.KnownFiles, error) {
	known := types.NewKnownFiles()
	for _, p := range projects {
		recs, err := c.files.ListAll(ctx, ex, p.Name)
		if err != nil {
			return nil, err
		}
		for _, r := range recs {
			known.Add(r.Project, r.Path)
		}
	}
	return known, nil
}

// indexFile runs the symbol indexer then the relation indexer for one
// file, per spec.md §4.6 Pass 2.
func (c *Coordinator) indexFile(ctx context.Context, ex store.Execer, project, path string, ast extract.AST, known *types.KnownFiles, bt *boundaryTable) error {
	rec, err := c.files.Get(ctx, ex, project, path)
	if err != nil {
		return err
	}
	if rec == nil {
		return nil // deleted between Pass 1 and Pass 2
	}
	if ast == nil {
		content, readErr := readFile(joinRoot(c.cfg.ProjectRoot, path))
		if readErr != nil {
			c.emit(Event{Kind: EventError, Err: gderrors.New(gderrors.IO, "Coordinator.indexFile:read", readErr).WithPath(project, path)})
			return nil // recoverable IO failure; spec.md §7
		}
		ast, err = c.extractor.Parse(joinRoot(c.cfg.ProjectRoot, path), content)
		if err != nil {
			c.emit(Event{Kind: EventError, Err: gderrors.New(gderrors.Parse, "Coordinator.indexFile:parse", err).WithPath(project, path)})
			return nil // recoverable parse failure; spec.md §7
		}
	}

	previous, err := c.symbols.GetFileSymbols(ctx, ex, project, path)
	if err != nil {
		return err
	}

	if err := c.symbolIndexer.Index(ctx, ex, c.extractor, project, path, rec.ContentHash, ast); err != nil {
		return err
	}

	if len(previous) > 0 {
		current, err := c.symbols.GetFileSymbols(ctx, ex, project, path)
		if err != nil {
			return err
		}
		for _, ren := range indexer.DetectRenames(previous, current) {
			oldName, newName := ren.OldName, ren.NewName
			if err := c.relations.Retarget(ctx, ex, project, path, &oldName, path, &newName, ""); err != nil {
				return err
			}
		}
	}

	boundaries := indexer.BoundaryTable(bt.ProjectFor)
	return c.relationIndexer.Index(ctx, ex, c.extractor, ast, project, path, c.cfg.ProjectRoot, c.aliases, known, boundaries)
}
