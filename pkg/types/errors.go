package types

import "errors"

// Capture pipeline error kinds. Errors produced while processing a clipboard
// event wrap exactly one of these; test with errors.Is.
var (
	ErrListenerUnavailable = errors.New("clipboard listener unavailable")
	ErrClassification      = errors.New("classification failed")
	ErrStorage             = errors.New("storage failure")
	ErrSubtypeDetection    = errors.New("subtype detection failed")
)

// Store errors.
var (
	ErrNotFound        = errors.New("entry not found")
	ErrInvalidID       = errors.New("invalid entry ID")
	ErrInvalidData     = errors.New("invalid entry data")
	ErrInvalidGroup    = errors.New("invalid group")
	ErrInvalidFilter   = errors.New("invalid filter")
	ErrBackendDetached = errors.New("backend is detached")
)
