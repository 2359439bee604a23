// Package errors provides error handling for facet.
//
// This package re-exports github.com/cockroachdb/errors, providing:
//   - Stack traces for debugging
//   - Error wrapping and context
//   - PII-safe error formatting
//
// Usage:
//
//	// Create new error
//	err := errors.New("something went wrong")
//
//	// Wrap with context
//	if err := conn.Transact(ctx, ops); err != nil {
//	    return errors.Wrapf(err, "transact failed for partition %q", part)
//	}
//
//	// Check errors
//	if errors.Is(err, errors.ErrInvalidDelta) {
//	    // reject the request, nothing was written
//	}
//
// For full documentation see: https://pkg.go.dev/github.com/cockroachdb/errors
package errors

import (
	crdb "github.com/cockroachdb/errors"
)

// Core error creation and wrapping
var (
	New          = crdb.New
	Newf         = crdb.Newf
	Wrap         = crdb.Wrap
	Wrapf        = crdb.Wrapf
	WithStack    = crdb.WithStack
	WithMessage  = crdb.WithMessage
	WithMessagef = crdb.WithMessagef
)

// User-facing messages and details
var (
	WithHint    = crdb.WithHint
	WithHintf   = crdb.WithHintf
	WithDetail  = crdb.WithDetail
	WithDetailf = crdb.WithDetailf
)

// Error inspection
var (
	Is        = crdb.Is
	IsAny     = crdb.IsAny
	As        = crdb.As
	Unwrap    = crdb.Unwrap
	UnwrapAll = crdb.UnwrapAll
)

// Assertions
var (
	AssertionFailedf = crdb.AssertionFailedf
)

// Sentinel errors for the facet persistence layer.
// Use these with errors.Is() for type-safe error checking and wrap them
// with errors.Wrapf() to add context while preserving the type.
var (
	// ErrInvalidDelta indicates a malformed edit delta. Raised before any
	// backend work, carrying the offending fragment in its message.
	ErrInvalidDelta = New("invalid delta")

	// ErrMissingConnection indicates a delta touched a partition with no
	// routed connection. The message names the requested partition and the
	// available set.
	ErrMissingConnection = New("no connection for partition")

	// ErrBatchTooLarge indicates a fetch batch exceeded the configured
	// maximum. Raised before any query executes.
	ErrBatchTooLarge = New("batch too large")

	// ErrSchemaConflict indicates an incompatible schema change. The message
	// carries a diff of the conflicting attributes.
	ErrSchemaConflict = New("incompatible schema change")

	// ErrNotFound indicates the requested entity does not exist
	ErrNotFound = New("not found")
)

// IsInvalidDelta checks if an error is or wraps ErrInvalidDelta
func IsInvalidDelta(err error) bool {
	return err != nil && Is(err, ErrInvalidDelta)
}

// IsSchemaConflict checks if an error is or wraps ErrSchemaConflict
func IsSchemaConflict(err error) bool {
	return err != nil && Is(err, ErrSchemaConflict)
}

// IsNotFound checks if an error is or wraps ErrNotFound
func IsNotFound(err error) bool {
	return err != nil && Is(err, ErrNotFound)
}

// NewInvalidDelta creates an invalid-delta error with a formatted message
// describing the offending fragment.
func NewInvalidDelta(format string, args ...interface{}) error {
	return Wrap(ErrInvalidDelta, Newf(format, args...).Error())
}
