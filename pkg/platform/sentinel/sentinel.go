package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores return these (optionally
// wrapped) and services translate them into domain errors:
// - ErrNotFound: no record under the requested key
// - ErrConflict: a write raced with another writer
// - ErrUnavailable: the backing store could not be reached
//
// Caller-facing failures (bad input, wrong lifecycle state) belong in
// pkg/domain-errors instead.
var (
	ErrNotFound    = errors.New("not found")
	ErrConflict    = errors.New("conflict")
	ErrUnavailable = errors.New("unavailable")
)
