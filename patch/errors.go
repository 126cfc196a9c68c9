package patch

import (
	"errors"
	"fmt"
)

// ErrorKind classifies failures surfaced by parsing and application.
type ErrorKind int

const (
	// ErrMalformedPatch - the patch text itself is invalid (bad or missing
	// headers, empty hunk, empty patch, stray top-level line).
	ErrMalformedPatch ErrorKind = iota

	// ErrUnsafePath - a declared path is absolute or escapes the working
	// directory.
	ErrUnsafePath

	// ErrLocationNotFound - a context anchor or old-lines pattern could not
	// be located after all fallback strategies, including fuzzy search.
	ErrLocationNotFound

	// ErrAmbiguousLocation - a pure-insertion anchor matches more than one
	// place in the file.
	ErrAmbiguousLocation

	// ErrFileSystem - an underlying read, write, mkdir, delete or rename
	// failed for a declared path.
	ErrFileSystem
)

func (k ErrorKind) String() string {
	switch k {
	case ErrMalformedPatch:
		return "malformed patch"
	case ErrUnsafePath:
		return "unsafe path"
	case ErrLocationNotFound:
		return "location not found"
	case ErrAmbiguousLocation:
		return "ambiguous location"
	case ErrFileSystem:
		return "filesystem failure"
	default:
		return "unknown"
	}
}

// Error is the single failure type returned by ParsePatch and Apply.
type Error struct {
	Kind    ErrorKind
	Line    int // 1-based patch source line for parse failures, 0 otherwise
	Message string
	Err     error // wrapped cause, if any
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf reports the taxonomy kind of err, if err (or anything it wraps)
// is a patch error.
func KindOf(err error) (ErrorKind, bool) {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Kind, true
	}
	return 0, false
}

func malformedf(line int, format string, args ...any) *Error {
	return &Error{Kind: ErrMalformedPatch, Line: line, Message: fmt.Sprintf(format, args...)}
}

func unsafePathf(format string, args ...any) *Error {
	return &Error{Kind: ErrUnsafePath, Message: fmt.Sprintf(format, args...)}
}

func notFoundf(format string, args ...any) *Error {
	return &Error{Kind: ErrLocationNotFound, Message: fmt.Sprintf(format, args...)}
}

func ambiguousf(format string, args ...any) *Error {
	return &Error{Kind: ErrAmbiguousLocation, Message: fmt.Sprintf(format, args...)}
}

func fsFailf(cause error, format string, args ...any) *Error {
	return &Error{Kind: ErrFileSystem, Message: fmt.Sprintf(format, args...), Err: cause}
}
