package coordinator

import "github.com/standardbeagle/gildash/internal/types"

// EventKind enumerates the event stream's variants (spec.md §6 "Events
// emitted": indexed, fileChanged, roleChanged, error).
type EventKind int

const (
	EventIndexed EventKind = iota
	EventFileChanged
	EventRoleChanged
	EventError
)

// Event is the single sum-typed value sent on Coordinator.Events(),
// translating the teacher's callback-struct idiom (FileWatcher's
// onFileChanged/onError fields) into one channel for idiomatic Go
// consumption (SPEC_FULL.md §4.6).
type Event struct {
	Kind EventKind

	// EventIndexed
	Project string
	Changed []types.FileKey
	Deleted []types.FileKey

	// EventFileChanged
	Change types.FileChange

	// EventRoleChanged
	Role types.Role

	// EventError
	Err error
}
