// Package errs defines the error kinds the lifecycle layer reports to its
// callers. The CLI and the HTTP surface each map these to their own
// recovery behavior, so the types here stay transport neutral.
package errs

import (
	"errors"
	"fmt"
)

// ValidationError reports a rejected field value. The caller re-prompts
// the same logical step.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Validation builds a ValidationError for a single field.
func Validation(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// NotFoundError reports a search that matched no project.
type NotFoundError struct {
	Query string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("no project found for %q", e.Query)
}

// NotFound builds a NotFoundError for the given search input.
func NotFound(query string) error {
	return &NotFoundError{Query: query}
}

// IsNotFound reports whether err is a NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// AmbiguousMatchError reports a search that matched more than one project.
// The caller should ask the operator to narrow the input, typically to a
// project number.
type AmbiguousMatchError struct {
	Query   string
	Matches int
}

func (e *AmbiguousMatchError) Error() string {
	return fmt.Sprintf("%d projects match %q, narrow the search", e.Matches, e.Query)
}

// Ambiguous builds an AmbiguousMatchError.
func Ambiguous(query string, matches int) error {
	return &AmbiguousMatchError{Query: query, Matches: matches}
}

// IsAmbiguous reports whether err is an AmbiguousMatchError.
func IsAmbiguous(err error) bool {
	var am *AmbiguousMatchError
	return errors.As(err, &am)
}

// UnavailableError wraps a store error that indicates the database could
// not be reached. It is recoverable: callers report it and let the
// operator retry rather than terminating the session.
type UnavailableError struct {
	Err error
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("store unavailable: %v", e.Err)
}

func (e *UnavailableError) Unwrap() error { return e.Err }

// Unavailable wraps err as an UnavailableError. A nil err returns nil.
func Unavailable(err error) error {
	if err == nil {
		return nil
	}
	return &UnavailableError{Err: err}
}

// IsUnavailable reports whether err is an UnavailableError.
func IsUnavailable(err error) bool {
	var ue *UnavailableError
	return errors.As(err, &ue)
}

// PartialWriteError reports a failure partway through one of the
// non-atomic multi-statement protocols (rename, delete, update-all).
// Steps already executed are not rolled back; Step names the statement
// that failed so operators know what manual reconciliation may be needed.
type PartialWriteError struct {
	Op        string
	Step      string
	Completed []string
	Err       error
}

func (e *PartialWriteError) Error() string {
	return fmt.Sprintf("%s: step %q failed after %d completed step(s): %v", e.Op, e.Step, len(e.Completed), e.Err)
}

func (e *PartialWriteError) Unwrap() error { return e.Err }

// PartialWrite builds a PartialWriteError for op, recording the failed
// step and the steps that already took effect.
func PartialWrite(op, step string, completed []string, err error) error {
	return &PartialWriteError{Op: op, Step: step, Completed: completed, Err: err}
}

// IsPartialWrite reports whether err is a PartialWriteError.
func IsPartialWrite(err error) bool {
	var pw *PartialWriteError
	return errors.As(err, &pw)
}
