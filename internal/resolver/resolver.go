// Package resolver implements the path & alias resolver (SPEC_FULL.md
// §4.1): a pure, synchronous function mapping an import specifier
// written in a source file to an ordered candidate list of absolute
// paths. It never touches the filesystem — candidate existence is
// checked downstream by the known-file filter (internal/indexer).
//
// Grounded on other_examples' react-analyzer ModuleResolver.Resolve:
// the relative-path join, alias longest-prefix match, and
// extension-candidate loop are the same shape, generalized to the
// ordered .ts/.d.ts/.mts/.cts candidate list spec.md mandates and to
// alias tables supplied by configuration rather than discovered
// tsconfig.json files.
package resolver

import (
	"path/filepath"
	"sort"
	"strings"
)

// extCandidates lists the suffixes appended to an extension-less
// specifier, in the exact order SPEC_FULL.md §4.1 and §9 (open
// question (c)) require: .ts strictly ahead of .d.ts.
var extCandidates = []string{
	".ts", ".d.ts",
	"/index.ts", "/index.d.ts",
	".mts", "/index.mts",
	".cts", "/index.cts",
}

// AliasTable maps alias prefixes (exact or trailing-"*" wildcard) to
// one or more target directories, plus the base directory those
// targets are joined against.
type AliasTable struct {
	BaseDir string
	Aliases map[string][]string
}

// Resolver resolves import specifiers. It is stateless and safe for
// concurrent use by multiple goroutines (pure function wrapped in a
// receiver for symmetry with the other injected collaborators).
type Resolver struct{}

// New returns a Resolver. There is no state to configure: alias tables
// and the current file are passed per call, matching spec.md's
// "resolve(current file, specifier, alias table?)" signature.
func New() *Resolver { return &Resolver{} }

// Resolve returns an ordered candidate list of absolute paths for
// specifier, written in currentFile. aliases may be nil.
func (r *Resolver) Resolve(currentFile, specifier string, aliases *AliasTable) []string {
	if isRelative(specifier) {
		base := filepath.Join(filepath.Dir(currentFile), specifier)
		return candidatesFor(base)
	}

	if aliases != nil {
		if prefix, targets, ok := findLongestMatchingAlias(specifier, aliases.Aliases); ok {
			rest := strings.TrimPrefix(specifier, prefix)
			var out []string
			for _, target := range targets {
				base := filepath.Join(aliases.BaseDir, target, rest)
				out = append(out, candidatesFor(base)...)
			}
			return out
		}
	}

	// Bare specifier with no alias match: this layer returns nothing.
	// A separate bare-specifier candidate builder (BareCandidates) may
	// enumerate likely installed-package paths.
	return nil
}

// BareCandidates enumerates plausible on-disk locations for a bare
// (non-relative, non-aliased) specifier under a node_modules-style
// package directory, per spec.md §4.1 "A separate bare-specifier
// candidate builder may enumerate likely installed-package paths."
// Its output is subject to the same known-file filter downstream.
func (r *Resolver) BareCandidates(projectRoot, specifier string) []string {
	base := filepath.Join(projectRoot, "node_modules", specifier)
	return candidatesFor(base)
}

func isRelative(specifier string) bool {
	return strings.HasPrefix(specifier, ".") || strings.HasPrefix(specifier, "/")
}

// candidatesFor returns base itself (if it already carries an
// extension) followed by the ordered extension/index candidates.
func candidatesFor(base string) []string {
	base = filepath.Clean(base)
	if ext := filepath.Ext(base); ext != "" && ext != "." {
		out := make([]string, 0, len(extCandidates)+1)
		out = append(out, base)
		for _, suffix := range extCandidates {
			out = append(out, withSuffix(base, suffix))
		}
		return out
	}
	out := make([]string, 0, len(extCandidates))
	for _, suffix := range extCandidates {
		out = append(out, withSuffix(base, suffix))
	}
	return out
}

func withSuffix(base, suffix string) string {
	if strings.HasPrefix(suffix, "/") {
		return filepath.Join(base, strings.TrimPrefix(suffix, "/"))
	}
	return base + suffix
}

// findLongestMatchingAlias tries exact matches first, then wildcard
// ("prefix*") aliases, preferring the longest matching prefix so that
// a more specific alias (e.g. "@app/utils/*") wins over a broader one
// (e.g. "@app/*").
func findLongestMatchingAlias(specifier string, aliases map[string][]string) (string, []string, bool) {
	if targets, ok := aliases[specifier]; ok {
		return specifier, targets, true
	}

	type match struct {
		prefix  string
		targets []string
	}
	var matches []match
	for alias, targets := range aliases {
		if !strings.HasSuffix(alias, "*") {
			continue
		}
		prefix := strings.TrimSuffix(alias, "*")
		if strings.HasPrefix(specifier, prefix) {
			matches = append(matches, match{prefix: alias, targets: targets})
		}
	}
	if len(matches) == 0 {
		return "", nil, false
	}
	sort.Slice(matches, func(i, j int) bool {
		return len(matches[i].prefix) > len(matches[j].prefix)
	})
	best := matches[0]
	return strings.TrimSuffix(best.prefix, "*"), best.targets, true
}
