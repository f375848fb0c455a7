// Package domain defines core types, interfaces, and errors for the reporting client.
package domain

import (
	"errors"
	"fmt"
	"strings"
)

// ErrPollExhausted is wrapped by poll errors once the configured attempt
// ceiling is reached without a terminal status.
var ErrPollExhausted = errors.New("poll attempts exhausted")

// NotFoundError indicates a locally stored record does not exist.
type NotFoundError struct {
	Message string
}

func (e *NotFoundError) Error() string { return e.Message }

// ValidationError indicates malformed builder or caller input.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// ConflictError indicates an operation that is not allowed in the current state
// (e.g., syncing a cancelled submission).
type ConflictError struct {
	Message string
}

func (e *ConflictError) Error() string { return e.Message }

// NotImplementedError marks code paths the reporting API documents but this
// client does not support.
type NotImplementedError struct {
	Message string
}

func (e *NotImplementedError) Error() string { return "not implemented: " + e.Message }

// LookupError is returned when a catalog key matches no entry or more than one.
type LookupError struct {
	Collection string
	Key        string
	Candidates []Identifier
}

func (e *LookupError) Error() string {
	if len(e.Candidates) > 1 {
		names := make([]string, len(e.Candidates))
		for i, c := range e.Candidates {
			names[i] = c.String()
		}
		return fmt.Sprintf("found multiple matches for %q among the available %s: %s; use the identifier instead",
			e.Key, e.Collection, strings.Join(names, ", "))
	}
	return fmt.Sprintf("cannot find %q among the available %s", e.Key, e.Collection)
}

// Ambiguous reports whether the key matched more than one entry.
func (e *LookupError) Ambiguous() bool { return len(e.Candidates) > 1 }

// RemoteReportError is returned when a polled report reaches a status outside
// the tolerated set. Fields are normalized from either upstream error shape.
type RemoteReportError struct {
	Status  string
	Code    string
	Message string
	Raw     map[string]any
}

func (e *RemoteReportError) Error() string {
	return fmt.Sprintf("invalid report: %s: %s (%s)", e.Status, e.Message, e.Code)
}

// ErrNotFound creates a NotFoundError with a formatted message.
func ErrNotFound(format string, args ...interface{}) *NotFoundError {
	return &NotFoundError{Message: fmt.Sprintf(format, args...)}
}

// ErrValidation creates a ValidationError with a formatted message.
func ErrValidation(format string, args ...interface{}) *ValidationError {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// ErrConflict creates a ConflictError with a formatted message.
func ErrConflict(format string, args ...interface{}) *ConflictError {
	return &ConflictError{Message: fmt.Sprintf(format, args...)}
}

// ErrNotImplemented creates a NotImplementedError with a formatted message.
func ErrNotImplemented(format string, args ...interface{}) *NotImplementedError {
	return &NotImplementedError{Message: fmt.Sprintf(format, args...)}
}

// IsNotFound reports whether err is a NotFoundError or a LookupError with
// no matching entry.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	if errors.As(err, &nf) {
		return true
	}
	var le *LookupError
	return errors.As(err, &le) && !le.Ambiguous()
}

// IsAmbiguous reports whether err is a LookupError with several matching entries.
func IsAmbiguous(err error) bool {
	var le *LookupError
	return errors.As(err, &le) && le.Ambiguous()
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsNotImplemented reports whether err is a NotImplementedError.
func IsNotImplemented(err error) bool {
	var ne *NotImplementedError
	return errors.As(err, &ne)
}
