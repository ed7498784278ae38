// Package errors implements gildash's error taxonomy: a small set of
// error "kinds" (not types), each carrying the context a caller needs
// to decide on disposition (fail fast, retry, downgrade, record and
// continue). See SPEC_FULL.md §7.
package errors

import (
	"fmt"
	"time"
)

// Kind classifies an Error for dispatch by callers (spec §7).
type Kind string

const (
	Closed          Kind = "closed"
	Parse           Kind = "parse"
	StoreBusy       Kind = "store-busy"
	StoreIntegrity  Kind = "store-integrity"
	Watcher         Kind = "watcher"
	Ownership       Kind = "ownership"
	IO              Kind = "io"
)

// Error is the single carrier type for every kind in the taxonomy.
// Op names the failing operation; Path is the file or resource
// involved, when applicable.
type Error struct {
	Kind      Kind
	Op        string
	Path      string
	Project   string
	Err       error
	Timestamp time.Time
}

// New builds an Error of the given kind.
func New(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err, Timestamp: time.Now()}
}

// WithPath attaches a file path to the error and returns it for chaining.
func (e *Error) WithPath(project, path string) *Error {
	e.Project = project
	e.Path = path
	return e
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s: %s %s: %v", e.Kind, e.Op, e.Path, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", e.Kind, e.Op, e.Err)
}

// Unwrap exposes the underlying error for errors.Is/As.
func (e *Error) Unwrap() error { return e.Err }

// Is reports kind equality against another *Error, so
// errors.Is(err, &Error{Kind: StoreBusy}) matches any *Error of that
// kind in err's chain. Kind itself is a string, not an error, so it
// cannot be passed to errors.Is directly; IsKind tests for a Kind.
func (e *Error) Is(target error) bool {
	other, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == other.Kind
}

// IsKind reports whether err is a *Error of the given kind.
func IsKind(err error, kind Kind) bool {
	var e *Error
	if as, ok := err.(*Error); ok {
		e = as
	} else if u, ok := err.(interface{ Unwrap() error }); ok {
		return IsKind(u.Unwrap(), kind)
	} else {
		return false
	}
	return e.Kind == kind
}

// Recoverable reports whether the kind is meant to be recorded and
// continue inside a batch rather than surfaced to the caller
// immediately (spec §7 "Propagation").
func (k Kind) Recoverable() bool {
	switch k {
	case Parse, IO:
		return true
	default:
		return false
	}
}

// BatchFailure records one recoverable failure inside an indexing batch
// (spec §7 "recorded per-file; batch continues ... reported in batch
// result's failures").
type BatchFailure struct {
	Project string
	Path    string
	Err     error
}

// MultiError aggregates independent failures, used when a caller needs
// to report more than one non-recoverable error at once (e.g. closing
// several subsystems during shutdown).
type MultiError struct {
	Errors []error
}

// NewMultiError filters nils and wraps the remainder.
func NewMultiError(errs []error) *MultiError {
	filtered := make([]error, 0, len(errs))
	for _, err := range errs {
		if err != nil {
			filtered = append(filtered, err)
		}
	}
	if len(filtered) == 0 {
		return nil
	}
	return &MultiError{Errors: filtered}
}

func (e *MultiError) Error() string {
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	return fmt.Sprintf("%d errors: %v", len(e.Errors), e.Errors)
}

func (e *MultiError) Unwrap() []error { return e.Errors }
