// Package apperr holds the error taxonomy shared across catdog packages.
package apperr

import "errors"

var (
	ErrNotFound = errors.New("not found")

	// ErrPrecondition marks a missing or invalid input (directory, ledger file).
	ErrPrecondition = errors.New("precondition failed")
	// ErrDurability marks a write or copy that did not durably succeed.
	ErrDurability = errors.New("durable write failed")
	// ErrSchema marks a ledger whose header does not match the supported schema.
	ErrSchema = errors.New("unsupported ledger schema")
	// ErrMalformedRow marks a single ledger row that was skipped during load.
	ErrMalformedRow = errors.New("malformed ledger row")
)
