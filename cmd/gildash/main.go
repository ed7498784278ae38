// Command gildash indexes a TypeScript project's declarations and
// cross-file relations into an embedded SQLite store and serves
// dependency-graph queries over it (spec.md §1). Grounded directly on
// the teacher's cmd/lci/main.go urfave/cli/v2 structure.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/standardbeagle/gildash/internal/config"
	"github.com/standardbeagle/gildash/internal/coordinator"
	"github.com/standardbeagle/gildash/internal/debug"
	"github.com/standardbeagle/gildash/internal/display"
	"github.com/standardbeagle/gildash/internal/extract"
	"github.com/standardbeagle/gildash/internal/graph"
	"github.com/standardbeagle/gildash/internal/ownership"
	"github.com/standardbeagle/gildash/internal/store"
	"github.com/standardbeagle/gildash/internal/types"
	"github.com/standardbeagle/gildash/internal/version"
	"github.com/standardbeagle/gildash/internal/watcher"
)

func loadConfigWithOverrides(c *cli.Context) (*config.Config, error) {
	searchDir := c.String("root")
	if searchDir == "" {
		searchDir = "."
	}
	cfg, err := config.Load(searchDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if includeFlags := c.StringSlice("include"); len(includeFlags) > 0 {
		cfg.Include = includeFlags
	}
	if excludeFlags := c.StringSlice("exclude"); len(excludeFlags) > 0 {
		cfg.Exclude = append(cfg.Exclude, excludeFlags...)
	}
	if rootFlag := c.String("root"); rootFlag != "" {
		absRoot, err := filepath.Abs(rootFlag)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve root path %q: %w", rootFlag, err)
		}
		cfg.ProjectRoot = absRoot
	}
	if c.Bool("watch") {
		cfg.WatchMode = true
	}
	return cfg, nil
}

func storePath(cfg *config.Config) string {
	return filepath.Join(cfg.ProjectRoot, ".gildash", "gildash.db")
}

func openStore(ctx context.Context, cfg *config.Config) (*store.Store, error) {
	path := storePath(cfg)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	opts := store.DefaultOptions()
	opts.BusyTimeout = durationMs(cfg.StoreBusyTimeoutMs)
	opts.MaxRetries = cfg.StoreMaxRetries
	return store.Open(ctx, path, opts)
}

func durationMs(ms int) time.Duration {
	return time.Duration(ms) * time.Millisecond
}

func indexCommand(c *cli.Context) error {
	cfg, err := loadConfigWithOverrides(c)
	if err != nil {
		return err
	}
	debug.Log("cli", "indexing project root %s", cfg.ProjectRoot)

	ctx := c.Context
	s, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer s.Close()

	coord := coordinator.New(s, extract.NewStaticExtractor(), cfg)
	defer coord.Close()

	if err := coord.FullIndex(ctx); err != nil {
		return err
	}
	fmt.Println("index complete")
	return nil
}

func watchCommand(c *cli.Context) error {
	cfg, err := loadConfigWithOverrides(c)
	if err != nil {
		return err
	}
	cfg.WatchMode = true

	ctx, cancel := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	s, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer s.Close()

	coord := coordinator.New(s, extract.NewStaticExtractor(), cfg)
	defer coord.Close()

	if err := coord.FullIndex(ctx); err != nil {
		return err
	}

	mgr := ownership.NewManager(s)
	pid := os.Getpid()
	role, err := mgr.Acquire(ctx, pid, ownership.Options{StaleAfterSeconds: &cfg.StaleAfterSeconds})
	if err != nil {
		return err
	}
	debug.Log("cli", "watcher role: %v", role)

	if role != types.RoleOwner {
		return runAsReader(ctx, cfg, coord, mgr, pid)
	}
	return runAsOwner(ctx, cfg, coord, mgr, pid)
}

// runAsReader polls ownership on cfg.ReaderPollIntervalSeconds and
// promotes to owner the moment Acquire succeeds, per spec.md line 189
// and the §6 disposition table's "ownership: downgrade to reader and
// re-probe; never crash" row.
func runAsReader(ctx context.Context, cfg *config.Config, coord *coordinator.Coordinator, mgr *ownership.Manager, pid int) error {
	poll := time.NewTicker(durationMs(cfg.ReaderPollIntervalSeconds * 1000))
	defer poll.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-poll.C:
			role, err := mgr.Acquire(ctx, pid, ownership.Options{StaleAfterSeconds: &cfg.StaleAfterSeconds})
			if err != nil {
				debug.Log("cli", "reader re-probe error: %v", err)
				continue
			}
			if role == types.RoleOwner {
				debug.Log("cli", "promoted to owner")
				return runAsOwner(ctx, cfg, coord, mgr, pid)
			}
		}
	}
}

// runAsOwner starts the heartbeat loop and the watcher's event
// subscription, run by whichever process currently holds ownership
// (spec.md §4.8/§4.9).
func runAsOwner(ctx context.Context, cfg *config.Config, coord *coordinator.Coordinator, mgr *ownership.Manager, pid int) error {
	defer mgr.Release(context.Background(), pid)

	heartbeat := time.NewTicker(durationMs(cfg.HeartbeatIntervalSeconds * 1000))
	defer heartbeat.Stop()
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-heartbeat.C:
				if err := mgr.UpdateHeartbeat(ctx, pid, now); err != nil {
					debug.Log("cli", "heartbeat update error: %v", err)
				}
			}
		}
	}()

	projects, err := coordinator.DiscoverProjects(cfg.ProjectRoot, "", cfg.Exclude)
	if err != nil {
		return err
	}
	fallback := filepath.Base(cfg.ProjectRoot)
	if len(projects) > 0 {
		fallback = projects[0].Name
	}

	loop, err := watcher.New(fallback, cfg.ProjectRoot, durationMs(cfg.WatchDebounceMs))
	if err != nil {
		return err
	}
	loop.SetOnBatch(func(changes []types.FileChange) {
		if err := coord.Incremental(ctx, changes); err != nil {
			debug.Log("cli", "incremental index error: %v", err)
		}
	})
	if err := loop.Start(); err != nil {
		return err
	}
	defer loop.Stop()

	fmt.Println("watching", cfg.ProjectRoot)
	<-ctx.Done()
	return nil
}

func buildGraph(ctx context.Context, s *store.Store) (*graph.Graph, error) {
	relations := store.NewRelationRepo()
	var rows []types.RelationRecord
	err := s.Tx(ctx, func(ctx context.Context, ex store.Execer) error {
		for _, t := range types.GraphRelationTypes {
			rs, err := relations.Search(ctx, ex, store.RelationFilter{Type: t})
			if err != nil {
				return err
			}
			rows = append(rows, rs...)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return graph.Build(rows), nil
}

func parseFileArg(arg, fallbackProject string) types.FileKey {
	if key, err := types.ParseFileKey(arg); err == nil {
		return key
	}
	return types.FileKey{Project: fallbackProject, Path: arg}
}

func queryDepsCommand(c *cli.Context) error {
	cfg, err := loadConfigWithOverrides(c)
	if err != nil {
		return err
	}
	if c.Args().Len() < 1 {
		return fmt.Errorf("usage: gildash query deps <file>")
	}
	ctx := c.Context
	s, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer s.Close()

	g, err := buildGraph(ctx, s)
	if err != nil {
		return err
	}
	root := parseFileArg(c.Args().First(), filepath.Base(cfg.ProjectRoot))
	deps := g.TransitiveDependencies(root)
	fmt.Print(display.NewTreeFormatter(false).FormatList(root, deps))
	return nil
}

func queryDependentsCommand(c *cli.Context) error {
	cfg, err := loadConfigWithOverrides(c)
	if err != nil {
		return err
	}
	if c.Args().Len() < 1 {
		return fmt.Errorf("usage: gildash query dependents <file>")
	}
	ctx := c.Context
	s, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer s.Close()

	g, err := buildGraph(ctx, s)
	if err != nil {
		return err
	}
	root := parseFileArg(c.Args().First(), filepath.Base(cfg.ProjectRoot))
	deps := g.TransitiveDependents(root)
	fmt.Print(display.NewTreeFormatter(false).FormatList(root, deps))
	return nil
}

func queryCyclesCommand(c *cli.Context) error {
	cfg, err := loadConfigWithOverrides(c)
	if err != nil {
		return err
	}
	ctx := c.Context
	s, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer s.Close()

	g, err := buildGraph(ctx, s)
	if err != nil {
		return err
	}
	cycles := g.CyclePaths(graph.CycleOptions{MaxCount: c.Int("max-count")})
	fmt.Print(display.NewTreeFormatter(false).FormatCycles(cycles))
	return nil
}

func queryImpactCommand(c *cli.Context) error {
	cfg, err := loadConfigWithOverrides(c)
	if err != nil {
		return err
	}
	if c.Args().Len() < 1 {
		return fmt.Errorf("usage: gildash query impact <file...>")
	}
	ctx := c.Context
	s, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer s.Close()

	g, err := buildGraph(ctx, s)
	if err != nil {
		return err
	}
	var changed []types.FileKey
	for _, a := range c.Args().Slice() {
		changed = append(changed, parseFileArg(a, filepath.Base(cfg.ProjectRoot)))
	}
	affected := g.Affected(changed)
	root := changed[0]
	fmt.Print(display.NewTreeFormatter(false).FormatList(root, affected))
	return nil
}

func querySearchCommand(c *cli.Context) error {
	cfg, err := loadConfigWithOverrides(c)
	if err != nil {
		return err
	}
	if c.Args().Len() < 1 {
		return fmt.Errorf("usage: gildash query search <prefix>")
	}
	ctx := c.Context
	s, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer s.Close()

	symbols := store.NewSymbolRepo()
	var results []types.SymbolRecord
	err = s.Tx(ctx, func(ctx context.Context, ex store.Execer) error {
		var err error
		results, err = symbols.SearchByPrefix(ctx, ex, "", c.Args().First(), c.Int("limit"))
		return err
	})
	if err != nil {
		return err
	}
	for _, sym := range results {
		fmt.Printf("%s\t%s\t%s:%d\n", sym.Name, sym.Kind, sym.FilePath, sym.Span.Start)
	}
	return nil
}

func main() {
	app := &cli.App{
		Name:    "gildash",
		Usage:   "dependency graph indexer for TypeScript projects",
		Version: version.Version,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "root", Aliases: []string{"r"}, Usage: "project root directory to index"},
			&cli.StringSliceFlag{Name: "include", Usage: "include files matching glob patterns"},
			&cli.StringSliceFlag{Name: "exclude", Usage: "exclude files matching glob patterns"},
			&cli.BoolFlag{Name: "watch", Usage: "enable watch mode"},
		},
		Commands: []*cli.Command{
			{Name: "index", Usage: "run a full index once", Action: indexCommand},
			{Name: "watch", Usage: "start the watcher loop", Action: watchCommand},
			{
				Name:  "query",
				Usage: "query the dependency graph",
				Subcommands: []*cli.Command{
					{Name: "deps", Usage: "list transitive dependencies of a file", Action: queryDepsCommand},
					{Name: "dependents", Usage: "list transitive dependents of a file", Action: queryDependentsCommand},
					{
						Name:  "cycles",
						Usage: "list import cycles",
						Flags: []cli.Flag{&cli.IntFlag{Name: "max-count", Usage: "limit the number of cycles reported"}},
						Action: queryCyclesCommand,
					},
					{Name: "impact", Usage: "list files affected by changing the given file(s)", Action: queryImpactCommand},
					{
						Name:  "search",
						Usage: "search symbols by name prefix",
						Flags: []cli.Flag{&cli.IntFlag{Name: "limit", Value: 50, Usage: "max results"}},
						Action: querySearchCommand,
					},
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "gildash:", err)
		os.Exit(1)
	}
}
