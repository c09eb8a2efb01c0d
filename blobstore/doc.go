// Package blobstore provides the storage abstraction behind diverset.
//
// Store plays two roles: it is where candidate resources live (their content
// is opened for fingerprinting, their size and mtime form the cache staleness
// key) and where fingerprint cache snapshots are persisted.
// Implementations must be safe for concurrent use.
//
// # Built-in Implementations
//
//   - LocalStore: Local filesystem with mmap-backed reads and atomic writes
//   - MemoryStore: In-memory store for tests
//   - s3.Store: Amazon S3 (optionally with a DynamoDB commit pointer)
//   - minio.Store: MinIO and other S3-compatible storage
//
// # Custom Implementations
//
// Implement the Store interface to support custom backends:
//
//	type Store interface {
//	    Open(ctx, name) (Blob, error)    // Open for reading
//	    Stat(ctx, name) (Info, error)    // Size + mtime (the staleness key)
//	    Put(ctx, name, data) error       // Atomic write
//	    Delete(ctx, name) error
//	    List(ctx, prefix) ([]string, error)
//	}
//
// A backend without a stable ModTime cannot back the fingerprint cache:
// staleness detection compares (size, mtime) exactly.
package blobstore
