// Package config implements gildash's layered KDL configuration
// (spec.md §9, SPEC_FULL.md §6): defaults, merged with a global
// ~/.gildash.kdl, merged with a project .gildash.kdl, project values
// winning. Grounded directly on the teacher's internal/config/config.go
// Load/LoadWithRoot/mergeConfigs layering.
package config

import (
	"os"
	"runtime"
)

// Config holds every tunable gildash reads at startup. Fields are
// grouped the way the teacher groups Config/Index/Performance, but
// reduced to what the indexing core actually consumes (spec.md §9).
type Config struct {
	ProjectRoot string

	Include []string
	Exclude []string

	WatchMode       bool
	WatchDebounceMs int

	Semantic bool

	StoreBusyTimeoutMs int
	StoreMaxRetries    int

	StaleAfterSeconds         int
	HeartbeatIntervalSeconds  int
	ReaderPollIntervalSeconds int

	GraphCacheTTLSeconds int

	ASTCacheCapacity int
	WorkerPoolSize   int
}

// Defaults returns the built-in configuration (spec.md §4.3 busy
// timeout, §4.6 AST cache capacity, §4.8 staleness/heartbeat, §4.9
// debounce, §9(b) cache TTL).
func Defaults() *Config {
	cwd, err := os.Getwd()
	if err != nil {
		cwd = "."
	}
	return &Config{
		ProjectRoot: cwd,
		Include:     []string{},
		Exclude: []string{
			"**/.git/**",
			"**/.*/**",
			"**/node_modules/**",
			"**/vendor/**",
			"**/dist/**",
			"**/build/**",
			"**/out/**",
			"**/*.d.ts",
		},
		WatchMode:                 true,
		WatchDebounceMs:           50,
		Semantic:                  false,
		StoreBusyTimeoutMs:        5000,
		StoreMaxRetries:           5,
		StaleAfterSeconds:         60,
		HeartbeatIntervalSeconds:  15,
		ReaderPollIntervalSeconds: 30,
		GraphCacheTTLSeconds:      15,
		ASTCacheCapacity:          500,
		WorkerPoolSize:            runtime.NumCPU(),
	}
}

// Load layers ~/.gildash.kdl (global) under <searchDir>/.gildash.kdl
// (project) over Defaults(), project values winning. searchDir
// defaults to "." when empty, mirroring the teacher's
// Load/LoadWithRoot split.
func Load(searchDir string) (*Config, error) {
	if searchDir == "" {
		searchDir = "."
	}

	cfg := Defaults()

	homeDir, err := os.UserHomeDir()
	if err == nil {
		if global, err := LoadKDL(homeDir); err == nil && global != nil {
			cfg = mergeConfigs(cfg, global)
		}
	}

	if project, err := LoadKDL(searchDir); err != nil {
		return nil, err
	} else if project != nil {
		cfg = mergeConfigs(cfg, project)
	}

	if cfg.ProjectRoot == "" || cfg.ProjectRoot == "." {
		cfg.ProjectRoot = searchDir
	}

	cfg.Exclude = DeduplicatePatterns(append(cfg.Exclude, DetectBuildOutputs(cfg.ProjectRoot)...))

	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// mergeConfigs merges override onto base, project-overrides-base
// semantics (teacher's mergeConfigs). LoadKDL always starts a parsed
// document from Defaults(), so override already carries a value for
// every field — merge starts from a full copy of override and only
// special-cases exclusions (unioned, base preserved) and inclusions
// (base kept if override left its list empty).
func mergeConfigs(base, override *Config) *Config {
	merged := *override

	merged.Exclude = mergeExclusions(base.Exclude, override.Exclude)
	if len(override.Include) == 0 && len(base.Include) > 0 {
		merged.Include = base.Include
	}

	return &merged
}

// mergeExclusions unions base and override patterns, deduplicated,
// mirroring the teacher's base-exclusions-are-preserved rule.
func mergeExclusions(base, override []string) []string {
	seen := make(map[string]bool, len(base)+len(override))
	out := make([]string, 0, len(base)+len(override))
	for _, p := range base {
		if !seen[p] {
			seen[p] = true
			out = append(out, p)
		}
	}
	for _, p := range override {
		if !seen[p] {
			seen[p] = true
			out = append(out, p)
		}
	}
	return out
}
