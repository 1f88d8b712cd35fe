// Package repository contains the data access layer.  Every query in this
// package is pre-scoped by the caller's organization ID before any other
// predicate applies; a row that exists but belongs to another organization
// is indistinguishable from a row that does not exist.  This file defines
// the error types shared by all repositories so the handler layer can map
// failures onto HTTP responses without inspecting SQL errors.
package repository

import (
	"errors"
	"sort"
	"strings"
)

// ErrNotFound is returned when a resource does not exist within the
// caller's organization.  Cross-tenant lookups deliberately return the same
// value so that resource existence never leaks across the tenant boundary.
// Handlers translate this into HTTP 404.
var ErrNotFound = errors.New("not found")

// ErrInvalidCredentials is returned by authentication lookups when the
// username is unknown or the password does not match.  Handlers translate
// it into HTTP 401 without distinguishing the two cases.
var ErrInvalidCredentials = errors.New("invalid credentials")

// ValidationError reports one or more field-level invariant violations.
// Fields maps the offending field name to a human-readable message.  A
// write that produces a ValidationError has been rolled back entirely; no
// partial state is observable.
type ValidationError struct {
	Fields map[string]string
}

// Error renders the field map in a stable order so log lines and test
// assertions are deterministic.
func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for f := range e.Fields {
		names = append(names, f)
	}
	sort.Strings(names)
	var b strings.Builder
	b.WriteString("validation failed:")
	for _, f := range names {
		b.WriteString(" ")
		b.WriteString(f)
		b.WriteString(": ")
		b.WriteString(e.Fields[f])
		b.WriteString(";")
	}
	return strings.TrimSuffix(b.String(), ";")
}

// NewValidationError builds a ValidationError for a single field.
func NewValidationError(field, msg string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: msg}}
}

// Add records another offending field on an existing ValidationError.
func (e *ValidationError) Add(field, msg string) {
	if e.Fields == nil {
		e.Fields = map[string]string{}
	}
	e.Fields[field] = msg
}

// AsValidation unwraps err into a *ValidationError when possible.
func AsValidation(err error) (*ValidationError, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}

// isDuplicate reports whether err is a unique-key violation.  MySQL signals
// these with error 1062; SQLite (used by the test suite) reports a UNIQUE
// constraint failure.  Concurrent writers racing on the same unique key are
// resolved here: exactly one insert wins and the loser surfaces as a
// field-level validation error.
func isDuplicate(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "1062") || strings.Contains(msg, "unique constraint")
}

// isReferenced reports whether err is a foreign-key violation, raised when
// a delete targets a row that other rows still point at.  MySQL signals
// these with error 1451; SQLite reports a FOREIGN KEY constraint failure.
func isReferenced(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "1451") || strings.Contains(msg, "foreign key constraint")
}
