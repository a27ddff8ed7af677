package store

import (
	"errors"
	"fmt"
)

var (
	// ErrConflict signals that a conditional write was rejected because the
	// base revision is stale. Retried internally by the Log adapter.
	ErrConflict = errors.New("revision conflict")

	// ErrPersistence signals that all internal conflict retries were
	// exhausted. Callers must treat it as transient and escalate to the
	// retry queue.
	ErrPersistence = errors.New("persistence retries exhausted")
)

// ConflictError carries the revisions involved in a rejected write.
type ConflictError struct {
	Expected Revision
	Current  Revision
}

func (e *ConflictError) Error() string {
	if e.Current == "" {
		return fmt.Sprintf("revision conflict: base %q is stale", e.Expected)
	}
	return fmt.Sprintf("revision conflict: base %q, current %q", e.Expected, e.Current)
}

func (e *ConflictError) Is(target error) bool {
	return target == ErrConflict
}
