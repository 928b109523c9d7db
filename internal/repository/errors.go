package repository

import "errors"

var (
	// ErrNotFound indicates the requested record does not exist.
	ErrNotFound = errors.New("repository: not found")
	// ErrConflict indicates a uniqueness or state conflict, e.g. a duplicate
	// (domain, year, sequence) triple surfacing at persistence time. The
	// caller must retry with a fresh allocation, never overwrite.
	ErrConflict = errors.New("repository: conflict")
	// ErrTransient indicates a contention or timeout failure that is safe to
	// retry with backoff.
	ErrTransient = errors.New("repository: transient failure")
)
