package coordinator

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// ManifestGlob is the default project-manifest glob used to discover
// project roots (spec.md §4.6 step 1); each matching file's containing
// directory becomes a project, named by its directory basename.
const ManifestGlob = "**/package.json"

// Project is one discovered project rooted at Dir.
type Project struct {
	Name string
	Dir  string // absolute
}

// DiscoverProjects walks root for files matching manifestGlob
// (ManifestGlob when empty), skipping any path matching an ignore
// pattern, and returns one Project per matching directory. Grounded on
// the teacher's doublestar-based include/exclude matching in
// internal/indexing/watcher.go's shouldProcessPath.
func DiscoverProjects(root string, manifestGlob string, ignorePatterns []string) ([]Project, error) {
	if manifestGlob == "" {
		manifestGlob = ManifestGlob
	}

	var projects []Project
	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil
		}
		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)

		if info.IsDir() {
			if rel != "." && matchesAny(ignorePatterns, rel+"/") {
				return filepath.SkipDir
			}
			return nil
		}
		if matchesAny(ignorePatterns, rel) {
			return nil
		}
		matched, _ := doublestar.Match(manifestGlob, rel)
		if !matched {
			return nil
		}
		dir := filepath.Dir(path)
		projects = append(projects, Project{Name: filepath.Base(dir), Dir: dir})
		return nil
	})
	if err != nil {
		return nil, err
	}
	if len(projects) == 0 {
		projects = append(projects, Project{Name: filepath.Base(root), Dir: root})
	}
	return projects, nil
}

func matchesAny(patterns []string, path string) bool {
	for _, p := range patterns {
		if matched, _ := doublestar.Match(p, path); matched {
			return true
		}
	}
	return false
}

// boundaryTable resolves a root-relative path to its owning project by
// longest-matching directory prefix, used both to assign each walked
// file to a project and, via indexer.BoundaryTable, to assign a
// relation's destination project (spec.md §4.6 step 1 "build a
// boundary table (path → project)").
type boundaryTable struct {
	// prefixes sorted longest-first so the first match wins.
	prefixes []string
	byPrefix map[string]string
}

// newBoundaryTable builds a boundaryTable from discovered projects,
// each keyed by its directory relative to root ("" for root itself).
func newBoundaryTable(root string, projects []Project) *boundaryTable {
	bt := &boundaryTable{byPrefix: make(map[string]string, len(projects))}
	for _, p := range projects {
		relDir, err := filepath.Rel(root, p.Dir)
		if err != nil || relDir == "." {
			relDir = ""
		}
		relDir = filepath.ToSlash(relDir)
		bt.byPrefix[relDir] = p.Name
		bt.prefixes = append(bt.prefixes, relDir)
	}
	sort.Slice(bt.prefixes, func(i, j int) bool { return len(bt.prefixes[i]) > len(bt.prefixes[j]) })
	return bt
}

// ProjectFor returns the owning project for a root-relative path,
// falling back to fallback when no project directory prefixes it.
func (bt *boundaryTable) ProjectFor(path, fallback string) string {
	for _, prefix := range bt.prefixes {
		if prefix == "" {
			continue
		}
		if path == prefix || strings.HasPrefix(path, prefix+"/") {
			return bt.byPrefix[prefix]
		}
	}
	if root, ok := bt.byPrefix[""]; ok {
		return root
	}
	return fallback
}
