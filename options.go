package diverset

import (
	"github.com/hupe1980/diverset/blobstore"
	"github.com/hupe1980/diverset/cache"
	"github.com/hupe1980/diverset/codec"
	"github.com/hupe1980/diverset/resource"
)

// ConcurrencyAll requests one fingerprint worker per logical CPU.
const ConcurrencyAll = -1

type options struct {
	resources        blobstore.Store
	snapshots        blobstore.Store
	snapshotName     string
	concurrency      int
	seed             int64
	seedSet          bool
	codec            codec.Codec
	compression      cache.Compression
	controller       *resource.Controller
	onProgress       func(done, total int)
	logger           *Logger
	metricsCollector MetricsCollector
}

// Option configures Selector construction.
type Option func(*options)

// WithResourceStore configures where resource content is read from and
// statted for cache staleness checks.
//
// The default is a raw-path local store: resource IDs are file paths.
func WithResourceStore(s blobstore.Store) Option {
	return func(o *options) {
		o.resources = s
	}
}

// WithCacheStore enables the fingerprint cache, persisted as a snapshot blob
// in the given store. Without a cache store every selection recomputes all
// fingerprints.
func WithCacheStore(s blobstore.Store) Option {
	return func(o *options) {
		o.snapshots = s
	}
}

// WithCacheDir enables the fingerprint cache in a local directory.
// Shorthand for WithCacheStore(blobstore.NewLocalStore(dir)).
func WithCacheDir(dir string) Option {
	return func(o *options) {
		o.snapshots = blobstore.NewLocalStore(dir)
	}
}

// WithSnapshotName overrides the cache snapshot blob name.
func WithSnapshotName(name string) Option {
	return func(o *options) {
		if name != "" {
			o.snapshotName = name
		}
	}
}

// WithConcurrency sets the number of parallel fingerprint workers.
// 1 runs sequentially; ConcurrencyAll uses one worker per logical CPU.
func WithConcurrency(n int) Option {
	return func(o *options) {
		o.concurrency = n
	}
}

// WithSeed fixes the random seed of the first pick, making selections
// reproducible. Without it every run seeds from the wall clock.
func WithSeed(seed int64) Option {
	return func(o *options) {
		o.seed = seed
		o.seedSet = true
	}
}

// WithCodec configures the codec used for cache snapshot payloads.
//
// If nil is passed, codec.Default is used.
func WithCodec(c codec.Codec) Option {
	return func(o *options) {
		if c == nil {
			c = codec.Default
		}
		o.codec = c
	}
}

// WithCompression configures the cache snapshot payload compression.
func WithCompression(c cache.Compression) Option {
	return func(o *options) {
		o.compression = c
	}
}

// WithController attaches a resource controller shared across selectors,
// bounding global fingerprint concurrency and read throughput.
func WithController(c *resource.Controller) Option {
	return func(o *options) {
		o.controller = c
	}
}

// WithProgress registers a callback invoked as work advances: once per
// attempted resource while fingerprinting, then once per selection round.
// Calls are serialized.
func WithProgress(fn func(done, total int)) Option {
	return func(o *options) {
		o.onProgress = fn
	}
}

// WithLogger configures structured logging. Pass nil to disable.
func WithLogger(l *Logger) Option {
	return func(o *options) {
		if l == nil {
			l = NoopLogger()
		}
		o.logger = l
	}
}

// WithMetricsCollector configures a metrics collector for monitoring
// operations. Pass nil to disable metrics collection.
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(o *options) {
		if mc == nil {
			mc = NoopMetricsCollector{}
		}
		o.metricsCollector = mc
	}
}
