package internalerr

import "errors"

// Sentinel errors for common cases
var (
	ErrInvalidConfig    = errors.New("invalid configuration")
	ErrEmptyGazetteer   = errors.New("empty place list")
	ErrInvalidEntry     = errors.New("invalid entry")
	ErrStoreUnavailable = errors.New("store unavailable")
	ErrBadOutcome       = errors.New("unknown insert outcome")
)
