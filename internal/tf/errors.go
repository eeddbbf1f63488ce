package tf

import (
	"errors"
	"fmt"

	"github.com/banshee-data/tfbuffer/internal/tf/msg"
)

var (
	// ErrCouldNotFindTransform means no chain of relationships connects the
	// two frames.
	ErrCouldNotFindTransform = errors.New("could not find transform")

	// ErrLookupInPast means the query time precedes every sample stored on
	// some edge of the path.
	ErrLookupInPast = errors.New("attempted lookup in the past")

	// ErrLookupInFuture means the query time follows every sample stored on
	// some edge of the path.
	ErrLookupInFuture = errors.New("attempted lookup in the future")

	// ErrInternalInconsistency means the frame graph references an edge
	// whose time series is missing or empty. Ingestion keeps the two in
	// step, so this indicates a bug rather than bad input.
	ErrInternalInconsistency = errors.New("internal inconsistency")

	// ErrNotImplemented is returned by interface points reserved for later
	// extension.
	ErrNotImplemented = errors.New("not implemented")
)

// LookupError carries the query a lookup failed on. Unwrap yields one of
// the sentinel errors above.
type LookupError struct {
	Source string
	Target string
	Time   msg.Time
	Err    error
}

func (e *LookupError) Error() string {
	return fmt.Sprintf("lookup %s -> %s at %s: %v", e.Source, e.Target, e.Time, e.Err)
}

func (e *LookupError) Unwrap() error { return e.Err }

// IsRetryable reports whether err may clear once more data arrives: the
// frames are not connected yet, or the newest sample is older than the
// query time.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrLookupInFuture) || errors.Is(err, ErrCouldNotFindTransform)
}
