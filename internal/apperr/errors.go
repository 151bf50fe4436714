// Package apperr defines sentinel errors shared across layers.
package apperr

import "errors"

var (
	ErrNotFound         = errors.New("not found")
	ErrUnavailable      = errors.New("unavailable")
	ErrStoreUnavailable = errors.New("ledger store unavailable")
	ErrMalformedRecord  = errors.New("malformed record")
)
