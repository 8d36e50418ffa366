package doublet

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors
var (
	// ErrNotFound is returned when a resource or archive entry is absent.
	// Lookup-shaped operations report absence with a boolean instead.
	ErrNotFound = errors.New("not found")

	// ErrUnsupportedProvider marks a search-path provider that no registered
	// profile recognizes. Container enumeration continues with the explicit
	// search path only.
	ErrUnsupportedProvider = errors.New("unsupported container provider")

	// ErrNotComparable is returned by Size and Bytes of a locator whose
	// reference scheme cannot be resolved to a container chain.
	ErrNotComparable = errors.New("locator is not comparable")

	// ErrInterrupted is recorded when waiting for a background scan was
	// interrupted. It never reaches callers of the Monitor; the scan is
	// recomputed on the caller's goroutine instead.
	ErrInterrupted = errors.New("interrupted during scan")
)

// IOError reports a container or entry that could not be opened or read.
// When raised during a comparison, Other names the second operand so the
// caller can tell which of the two entries was involved.
type IOError struct {
	Op    string // operation, e.g. "size", "read", "compare"
	Ref   string // reference of the entry being resolved
	Other string // second operand of a comparison, empty otherwise
	Err   error  // underlying cause
}

// Error implements the error interface.
func (e *IOError) Error() string {
	if e.Other != "" {
		return fmt.Sprintf("%s %s with %s: %v", e.Op, e.Ref, e.Other, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.Ref, e.Err)
}

// Unwrap returns the underlying cause for use with errors.Is and errors.As.
func (e *IOError) Unwrap() error {
	return e.Err
}

// ValidationError represents one or more invalid options passed to Open.
type ValidationError struct {
	Errors []error
}

// Error implements the error interface.
func (ve *ValidationError) Error() string {
	if len(ve.Errors) == 0 {
		return "validation failed"
	}
	if len(ve.Errors) == 1 {
		return fmt.Sprintf("validation failed: %v", ve.Errors[0])
	}

	var buf strings.Builder
	buf.WriteString(fmt.Sprintf("validation failed with %d errors:\n", len(ve.Errors)))
	for i, err := range ve.Errors {
		fmt.Fprintf(&buf, "  %d. %v\n", i+1, err)
	}
	return buf.String()
}

// Unwrap returns the underlying errors for use with errors.Is and errors.As.
func (ve *ValidationError) Unwrap() []error {
	return ve.Errors
}

// newValidationError creates a ValidationError from a slice of errors.
// Returns nil if the slice is empty.
func newValidationError(errs []error) error {
	if len(errs) == 0 {
		return nil
	}
	return &ValidationError{Errors: errs}
}
