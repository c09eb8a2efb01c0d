// Package cache persists resource fingerprints across runs.
//
// A cache is a snapshot-backed map from resource ID to fingerprint plus the
// staleness key (modification time, size) the fingerprint was computed
// under. An entry is served only while the resource still matches its key
// exactly; anything else is treated as stale and recomputed by the caller.
//
// One cache instance owns its snapshot blob. Sharing a snapshot between
// concurrently writing instances is not coordinated here; use a committing
// store (e.g. blobstore/s3.CommitStore) when multiple publishers race.
package cache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/hupe1980/diverset/blobstore"
	"github.com/hupe1980/diverset/codec"
	"github.com/hupe1980/diverset/fingerprint"
)

// DefaultSnapshotName is the blob name snapshots are stored under.
const DefaultSnapshotName = "FINGERPRINTS"

// Error reports a cache failure. Load failures are deliberately fatal:
// silently starting from an empty cache would hide corruption and quietly
// throw away hours of fingerprint work.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("cache %s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Entry is one cached fingerprint with its staleness key.
type Entry struct {
	Fingerprint fingerprint.Fingerprint `json:"fingerprint"`
	ModTime     int64                   `json:"mod_time_unix_nano"`
	Size        int64                   `json:"size"`
}

// Options for Open.
type Options struct {
	// SnapshotName is the blob name within the snapshot store.
	SnapshotName string

	// Resources is the store resource IDs resolve against for staleness
	// checks. Defaults to a raw-path local store, i.e. IDs are file paths.
	Resources blobstore.Store

	// Codec encodes the snapshot payload.
	Codec codec.Codec

	// Compression compresses the snapshot payload.
	Compression Compression

	// Logger receives debug logging.
	Logger *slog.Logger
}

// Cache is a staleness-checked fingerprint cache. Safe for concurrent use
// by a single process.
type Cache struct {
	mu sync.RWMutex

	snapshots blobstore.Store
	resources blobstore.Store
	name      string
	provider  string

	codec       codec.Codec
	compression Compression
	logger      *slog.Logger

	entries map[string]Entry
	dirty   bool
}

// Open loads the fingerprint snapshot for the given provider from snapshots,
// or starts empty when none exists yet. An unreadable or corrupt snapshot is
// a fatal *Error; delete the snapshot blob to recover.
func Open(ctx context.Context, snapshots blobstore.Store, provider string, optFns ...func(*Options)) (*Cache, error) {
	opts := Options{
		SnapshotName: DefaultSnapshotName,
		Resources:    blobstore.NewLocalStore(""),
		Codec:        codec.Default,
		Compression:  CompressionZstd,
		Logger:       slog.New(slog.DiscardHandler),
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	if !opts.Compression.valid() {
		return nil, &Error{Op: "open", Err: fmt.Errorf("unknown compression %q", opts.Compression)}
	}

	c := &Cache{
		snapshots:   snapshots,
		resources:   opts.Resources,
		name:        opts.SnapshotName,
		provider:    provider,
		codec:       opts.Codec,
		compression: opts.Compression,
		logger:      opts.Logger,
		entries:     make(map[string]Entry),
	}

	data, err := blobstore.ReadFile(ctx, snapshots, c.name)
	if errors.Is(err, blobstore.ErrNotFound) {
		c.logger.DebugContext(ctx, "no fingerprint snapshot, starting empty", "name", c.name)
		return c, nil
	}
	if err != nil {
		return nil, &Error{Op: "load", Err: err}
	}

	entries, err := decodeSnapshot(data, provider)
	if err != nil {
		return nil, &Error{Op: "load", Err: err}
	}

	c.entries = entries
	c.logger.DebugContext(ctx, "loaded fingerprint snapshot", "name", c.name, "entries", len(entries))

	return c, nil
}

// Get returns the cached fingerprint for id if the resource still matches
// the entry's staleness key. A failed Stat counts as stale.
func (c *Cache) Get(ctx context.Context, id string) (fingerprint.Fingerprint, bool) {
	c.mu.RLock()
	entry, ok := c.entries[id]
	c.mu.RUnlock()

	if !ok {
		return "", false
	}

	info, err := c.resources.Stat(ctx, id)
	if err != nil {
		return "", false
	}
	if info.ModTime.UnixNano() != entry.ModTime || info.Size != entry.Size {
		return "", false
	}

	return entry.Fingerprint, true
}

// Set records the fingerprint for id keyed to the resource's current
// modification time and size. When the resource cannot be stated the entry
// is dropped instead of stored; a key taken at the wrong moment would pin a
// wrong fingerprint forever.
func (c *Cache) Set(ctx context.Context, id string, fp fingerprint.Fingerprint) {
	info, err := c.resources.Stat(ctx, id)
	if err != nil {
		c.logger.DebugContext(ctx, "not caching fingerprint, stat failed", "id", id, "error", err)
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[id] = Entry{
		Fingerprint: fp,
		ModTime:     info.ModTime.UnixNano(),
		Size:        info.Size,
	}
	c.dirty = true
}

// GetAll returns all currently valid entries, re-checking staleness for each.
func (c *Cache) GetAll(ctx context.Context) map[string]fingerprint.Fingerprint {
	c.mu.RLock()
	ids := make([]string, 0, len(c.entries))
	for id := range c.entries {
		ids = append(ids, id)
	}
	c.mu.RUnlock()

	out := make(map[string]fingerprint.Fingerprint, len(ids))
	for _, id := range ids {
		if fp, ok := c.Get(ctx, id); ok {
			out[id] = fp
		}
	}

	return out
}

// Len returns the number of stored entries, stale ones included.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Clear drops all entries and persists the empty snapshot immediately.
func (c *Cache) Clear(ctx context.Context) error {
	c.mu.Lock()
	c.entries = make(map[string]Entry)
	c.dirty = true
	c.mu.Unlock()

	return c.Save(ctx)
}

// Save persists the snapshot if anything changed since the last save.
func (c *Cache) Save(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.dirty {
		return nil
	}

	data, err := encodeSnapshot(c.provider, c.codec, c.compression, c.entries)
	if err != nil {
		return &Error{Op: "save", Err: err}
	}

	if err := c.snapshots.Put(ctx, c.name, data); err != nil {
		return &Error{Op: "save", Err: err}
	}

	c.dirty = false
	c.logger.DebugContext(ctx, "saved fingerprint snapshot", "name", c.name, "entries", len(c.entries))

	return nil
}
