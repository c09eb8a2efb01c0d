package diverset

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidK is returned when k is not positive or exceeds the number
	// of input resources.
	ErrInvalidK = errors.New("k must be positive and at most the number of resources")

	// ErrNoCache is returned by cache operations on a Selector that was
	// built without a cache store.
	ErrNoCache = errors.New("no cache configured")
)

// ErrInsufficientResources indicates that fewer resources could be
// fingerprinted than the selection asked for. Unreadable and too-small
// resources are dropped from the candidate pool rather than failing the
// batch, so this is how a thinned-out pool surfaces.
//
// The original underlying error (if any) can be accessed via errors.Unwrap.
type ErrInsufficientResources struct {
	Valid     int
	Requested int
	cause     error
}

func (e *ErrInsufficientResources) Error() string {
	return fmt.Sprintf("insufficient fingerprintable resources: %d valid, %d requested", e.Valid, e.Requested)
}

func (e *ErrInsufficientResources) Unwrap() error { return e.cause }
