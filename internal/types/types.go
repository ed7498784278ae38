// Package types holds the core value types shared across gildash's
// indexing, storage, and graph packages. Keeping them in one leaf
// package avoids import cycles between store, indexer, and graph.
package types

import (
	"fmt"
	"strings"
)

// SymbolKind enumerates the declaration kinds the extractor recognizes.
type SymbolKind string

const (
	KindFunction    SymbolKind = "function"
	KindClass       SymbolKind = "class"
	KindInterface   SymbolKind = "interface"
	KindEnum        SymbolKind = "enum"
	KindType        SymbolKind = "type"
	KindVariable    SymbolKind = "variable"
	KindMethod      SymbolKind = "method"
	KindProperty    SymbolKind = "property"
	KindGetter      SymbolKind = "getter"
	KindSetter      SymbolKind = "setter"
	KindConstructor SymbolKind = "constructor"
)

// RelationType enumerates the edge kinds a relation row may carry.
type RelationType string

const (
	RelImports        RelationType = "imports"
	RelTypeReferences RelationType = "type-references"
	RelReExports      RelationType = "re-exports"
	RelCalls          RelationType = "calls"
	RelExtends        RelationType = "extends"
	RelImplements     RelationType = "implements"
)

// GraphRelationTypes lists the relation types the dependency graph
// engine builds adjacency from (spec §4.7 build()).
var GraphRelationTypes = []RelationType{RelImports, RelTypeReferences, RelReExports}

// Modifier is a bitset over declaration modifiers, per SPEC_FULL §9
// design note ("represent modifiers as a small bitset rather than a
// string list").
type Modifier uint8

const (
	ModPrivate Modifier = 1 << iota
	ModProtected
	ModPublic
	ModStatic
	ModReadonly
	ModAsync
	ModAbstract
	ModExported
)

// Has reports whether the modifier bitset contains flag.
func (m Modifier) Has(flag Modifier) bool { return m&flag != 0 }

// Span is a declaration's source range as produced by the extractor.
// StaticExtractor reports 1-based line numbers, with Start and End both
// set to the declaration's line.
type Span struct {
	Start int
	End   int
}

// FileKey uniquely identifies a file row: (project, path-relative-to-root).
type FileKey struct {
	Project string
	Path    string
}

func (k FileKey) String() string { return k.Project + "::" + k.Path }

// ParseFileKey splits a "<project>::<path>" known-files key back into
// its components. Used by the CLI to parse <project>::<path> file arguments.
func ParseFileKey(s string) (FileKey, error) {
	for i := 0; i+1 < len(s); i++ {
		if s[i] == ':' && s[i+1] == ':' {
			return FileKey{Project: s[:i], Path: s[i+2:]}, nil
		}
	}
	return FileKey{}, fmt.Errorf("malformed file key %q", s)
}

// FileRecord mirrors the `files` table row (spec §3, §6).
type FileRecord struct {
	Project     string
	Path        string
	MTimeMs     int64
	Size        int64
	ContentHash string
	UpdatedAt   string
	LineCount   *int
}

// Key returns the FileKey identifying this record.
func (f FileRecord) Key() FileKey { return FileKey{Project: f.Project, Path: f.Path} }

// SymbolRecord mirrors the `symbols` table row (spec §3, §6).
type SymbolRecord struct {
	ID          int64
	Project     string
	FilePath    string
	Name        string
	Kind        SymbolKind
	Span        Span
	IsExported  bool
	Signature   *string
	Fingerprint string
	DetailJSON  string
	Modifiers   Modifier
}

// RelationRecord mirrors the `relations` table row (spec §3, §6).
type RelationRecord struct {
	ID            int64
	Project       string
	Type          RelationType
	SrcFilePath   string
	SrcSymbolName *string
	DstProject    string
	DstFilePath   string
	DstSymbolName *string
	MetaJSON      string
}

// WatcherOwnerRow mirrors the singleton `watcher_owner` table (spec §3, §6).
type WatcherOwnerRow struct {
	PID         int
	HeartbeatAt string
	InstanceID  *string
}

// Role is the coordinator's role inside a process (Glossary: Owner / Reader).
type Role int

const (
	RoleReader Role = iota
	RoleOwner
)

func (r Role) String() string {
	if r == RoleOwner {
		return "owner"
	}
	return "reader"
}

// ChangeKind describes a filesystem change event fed to the coordinator.
type ChangeKind int

const (
	ChangeModified ChangeKind = iota
	ChangeCreated
	ChangeRemoved
)

// FileChange is one raw filesystem event coalesced by the watcher loop.
type FileChange struct {
	Project string
	Path    string
	Kind    ChangeKind
}

// KnownFiles is the in-memory mirror of current files rows, keyed
// "<project>::<path>", rebuilt each indexing pass (Glossary).
type KnownFiles struct {
	set map[string]struct{}
}

// NewKnownFiles builds a KnownFiles set from the given "<project>::<path>" keys.
func NewKnownFiles(keys ...string) *KnownFiles {
	kf := &KnownFiles{set: make(map[string]struct{}, len(keys))}
	for _, k := range keys {
		kf.set[k] = struct{}{}
	}
	return kf
}

// Add records a (project, path) pair as known.
func (kf *KnownFiles) Add(project, path string) {
	if kf.set == nil {
		kf.set = make(map[string]struct{})
	}
	kf.set[FileKey{Project: project, Path: path}.String()] = struct{}{}
}

// Contains reports whether (project, path) is a known file.
func (kf *KnownFiles) Contains(project, path string) bool {
	if kf == nil || kf.set == nil {
		return false
	}
	_, ok := kf.set[FileKey{Project: project, Path: path}.String()]
	return ok
}

// ContainsAnyProject reports whether path is known under any project,
// used by the relation indexer's filtering resolver when a candidate's
// owning project isn't known until after it resolves (spec.md §4.5
// step 1 checks membership in a knownFiles set spanning all projects).
func (kf *KnownFiles) ContainsAnyProject(path string) bool {
	if kf == nil || kf.set == nil {
		return false
	}
	suffix := "::" + path
	for k := range kf.set {
		if strings.HasSuffix(k, suffix) {
			return true
		}
	}
	return false
}

// Snapshot returns a copy of the underlying key set.
func (kf *KnownFiles) Snapshot() map[string]struct{} {
	out := make(map[string]struct{}, len(kf.set))
	for k := range kf.set {
		out[k] = struct{}{}
	}
	return out
}

// Len reports the number of known files.
func (kf *KnownFiles) Len() int { return len(kf.set) }
