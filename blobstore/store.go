package blobstore

import (
	"context"
	"io"
	"os"
	"time"
)

// ErrNotFound is returned when a blob does not exist.
//
// Implementations should return an error that satisfies `errors.Is(err, ErrNotFound)`.
// The default maps to `os.ErrNotExist`.
var ErrNotFound = os.ErrNotExist

// Info describes the current state of a blob.
//
// Size and ModTime together form the staleness key the fingerprint cache
// compares against; an implementation that cannot report a stable ModTime
// cannot back a cache.
type Info struct {
	// Size is the blob size in bytes.
	Size int64
	// ModTime is the last modification time of the blob.
	ModTime time.Time
}

// Store is an abstraction for accessing resources and persisting cache
// snapshots. Resources are addressed by opaque string names (typically paths
// or object keys).
type Store interface {
	// Open opens a blob for reading.
	Open(ctx context.Context, name string) (Blob, error)

	// Stat returns the current size and modification time of a blob.
	Stat(ctx context.Context, name string) (Info, error)

	// Put writes a blob atomically, replacing any previous content.
	Put(ctx context.Context, name string, data []byte) error

	// Delete removes a blob. Deleting a missing blob is not an error.
	Delete(ctx context.Context, name string) error

	// List returns all blob names with the given prefix.
	List(ctx context.Context, prefix string) ([]string, error)
}

// Blob is a read-only handle to a data blob.
type Blob interface {
	io.Closer

	// ReadAll returns the full blob content.
	// The returned slice is valid until the Blob is closed; implementations
	// may return memory-mapped bytes without copying.
	ReadAll(ctx context.Context) ([]byte, error)

	// Size returns the size of the blob in bytes.
	Size() int64
}

// ReadFile opens, fully reads and closes the named blob, returning a copy of
// its content that stays valid after the handle is closed.
func ReadFile(ctx context.Context, s Store, name string) ([]byte, error) {
	b, err := s.Open(ctx, name)
	if err != nil {
		return nil, err
	}
	defer func() { _ = b.Close() }()

	data, err := b.ReadAll(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}
