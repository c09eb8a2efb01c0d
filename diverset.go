package diverset

import (
	"context"
	"fmt"
	"time"

	"github.com/hupe1980/diverset/blobstore"
	"github.com/hupe1980/diverset/cache"
	"github.com/hupe1980/diverset/codec"
	"github.com/hupe1980/diverset/fingerprint"
	"github.com/hupe1980/diverset/internal/greedy"
	"github.com/hupe1980/diverset/internal/mapper"
	"github.com/hupe1980/diverset/util"
)

// Selector picks maximally diverse subsets of resources by fingerprint
// distance. Fingerprints are resolved through the optional cache, computed
// in parallel for misses, and fed to a greedy farthest-point selection.
//
// A Selector is safe for concurrent use, but concurrent selections sharing
// one cache snapshot may overwrite each other's saves; share one Selector
// rather than one snapshot.
type Selector struct {
	provider fingerprint.Provider
	opts     options
	cache    *cache.Cache

	logger  *Logger
	metrics MetricsCollector
}

// New creates a Selector. A nil provider defaults to the built-in SimHash.
// When a cache store is configured, the fingerprint snapshot is loaded here;
// a corrupt snapshot fails construction with a *cache.Error.
func New(ctx context.Context, provider fingerprint.Provider, optFns ...Option) (*Selector, error) {
	if provider == nil {
		provider = fingerprint.NewSimHash()
	}

	opts := options{
		resources:        blobstore.NewLocalStore(""),
		snapshotName:     cache.DefaultSnapshotName,
		concurrency:      1,
		codec:            codec.Default,
		compression:      cache.CompressionZstd,
		logger:           NoopLogger(),
		metricsCollector: NoopMetricsCollector{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	s := &Selector{
		provider: provider,
		opts:     opts,
		logger:   opts.logger,
		metrics:  opts.metricsCollector,
	}

	if opts.snapshots != nil {
		c, err := cache.Open(ctx, opts.snapshots, provider.Name(), func(o *cache.Options) {
			o.SnapshotName = opts.snapshotName
			o.Resources = opts.resources
			o.Codec = opts.codec
			o.Compression = opts.compression
			o.Logger = opts.logger.Logger
		})
		if err != nil {
			return nil, err
		}
		s.cache = c
	}

	return s, nil
}

// Select picks the k most mutually dissimilar resources from ids and
// returns them in selection order.
//
// Resources that cannot be read or fingerprinted are dropped from the
// candidate pool; if fewer than k remain the call fails with
// *ErrInsufficientResources. Duplicate IDs stay in the pool as independent
// candidates, but a winner's Index always reports the ID's first occurrence.
func (s *Selector) Select(ctx context.Context, ids []string, k int) (*Result, error) {
	start := time.Now()

	res, err := s.doSelect(ctx, ids, k, start)

	s.metrics.RecordSelect(k, time.Since(start), err)
	s.logger.LogSelect(ctx, k, len(ids), err)

	return res, err
}

func (s *Selector) doSelect(ctx context.Context, ids []string, k int, start time.Time) (*Result, error) {
	if k <= 0 || k > len(ids) {
		return nil, fmt.Errorf("%w: k=%d with %d resources", ErrInvalidK, k, len(ids))
	}

	fps, err := s.resolveFingerprints(ctx, ids)
	if err != nil {
		return nil, err
	}

	firstIdx := make(map[string]int, len(ids))
	for i, id := range ids {
		if _, ok := firstIdx[id]; !ok {
			firstIdx[id] = i
		}
	}

	items := make([]greedy.Item, 0, len(ids))
	for _, id := range ids {
		fp, ok := fps[id]
		if !ok {
			continue
		}
		items = append(items, greedy.Item{ID: id, Fingerprint: fp})
	}

	if len(items) < k {
		return nil, &ErrInsufficientResources{Valid: len(items), Requested: k}
	}

	seed := s.opts.seed
	if !s.opts.seedSet {
		seed = time.Now().UnixNano()
	}

	var onRound greedy.RoundFunc
	if s.opts.onProgress != nil {
		onRound = s.opts.onProgress
	}

	picked, scores, err := greedy.Select(items, k, s.provider.Distance, util.NewRNG(seed), onRound)
	if err != nil {
		return nil, err
	}

	if err := s.SaveCache(ctx); err != nil {
		return nil, err
	}

	picks := make([]Pick, len(picked))
	for i, p := range picked {
		item := items[p]
		picks[i] = Pick{
			Index:       firstIdx[item.ID],
			ID:          item.ID,
			Fingerprint: item.Fingerprint,
			Score:       scores[i],
		}
	}

	return newResult(picks, time.Since(start)), nil
}

// ComputeFingerprints resolves fingerprints for ids without selecting,
// warming the cache if one is configured. IDs that cannot be fingerprinted
// are absent from the returned map.
func (s *Selector) ComputeFingerprints(ctx context.Context, ids []string) (map[string]fingerprint.Fingerprint, error) {
	fps, err := s.resolveFingerprints(ctx, ids)
	if err != nil {
		return nil, err
	}

	if err := s.SaveCache(ctx); err != nil {
		return nil, err
	}

	return fps, nil
}

// resolveFingerprints returns fingerprints for every distinct ID that can be
// fingerprinted, consulting the cache first and computing misses in
// parallel. Computed fingerprints are written back to the cache but not yet
// persisted.
func (s *Selector) resolveFingerprints(ctx context.Context, ids []string) (map[string]fingerprint.Fingerprint, error) {
	start := time.Now()

	unique := make([]string, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		unique = append(unique, id)
	}

	out := make(map[string]fingerprint.Fingerprint, len(unique))

	misses := unique
	if s.cache != nil {
		misses = misses[:0:0]
		for _, id := range unique {
			if fp, ok := s.cache.Get(ctx, id); ok {
				out[id] = fp
			} else {
				misses = append(misses, id)
			}
		}
	}
	cached := len(out)

	if s.opts.onProgress != nil {
		for i := 0; i < cached; i++ {
			s.opts.onProgress(i+1, len(unique))
		}
	}

	failed := 0
	computed, err := mapper.Map(ctx, misses, s.fingerprintResource, mapper.Options{
		Concurrency: s.opts.concurrency,
		Controller:  s.opts.controller,
		OnProgress: func(done, total int) {
			if s.opts.onProgress != nil {
				s.opts.onProgress(cached+done, len(unique))
			}
		},
		OnError: func(id string, err error) {
			failed++
			s.logger.WarnContext(ctx, "resource dropped", "id", id, "error", err)
		},
	})
	if err != nil {
		return nil, err
	}

	for id, fp := range computed {
		out[id] = fp
		if s.cache != nil {
			s.cache.Set(ctx, id, fp)
		}
	}

	s.metrics.RecordFingerprintBatch(len(unique), cached, failed, time.Since(start))
	s.logger.LogFingerprintBatch(ctx, len(unique), cached, len(computed), failed)

	return out, nil
}

// fingerprintResource reads one resource and derives its fingerprint.
func (s *Selector) fingerprintResource(ctx context.Context, id string) (fingerprint.Fingerprint, error) {
	blob, err := s.opts.resources.Open(ctx, id)
	if err != nil {
		return "", fmt.Errorf("%w: %w", fingerprint.ErrInvalidResource, err)
	}
	defer blob.Close()

	if err := s.opts.controller.WaitIO(ctx, blob.Size()); err != nil {
		return "", err
	}

	data, err := blob.ReadAll(ctx)
	if err != nil {
		return "", fmt.Errorf("%w: %w", fingerprint.ErrInvalidResource, err)
	}

	return s.provider.Fingerprint(data)
}

// CachedFingerprints returns the currently valid cache entries, re-checking
// staleness for each. Fails with ErrNoCache when no cache is configured.
func (s *Selector) CachedFingerprints(ctx context.Context) (map[string]fingerprint.Fingerprint, error) {
	if s.cache == nil {
		return nil, ErrNoCache
	}
	return s.cache.GetAll(ctx), nil
}

// ClearCache drops all cached fingerprints and persists the empty snapshot.
// Fails with ErrNoCache when no cache is configured.
func (s *Selector) ClearCache(ctx context.Context) error {
	if s.cache == nil {
		return ErrNoCache
	}
	return s.cache.Clear(ctx)
}

// SaveCache persists the cache snapshot if it changed since the last save.
// A no-op when no cache is configured.
func (s *Selector) SaveCache(ctx context.Context) error {
	if s.cache == nil {
		return nil
	}

	start := time.Now()
	err := s.cache.Save(ctx)

	s.metrics.RecordCacheSave(time.Since(start), err)
	if err != nil {
		s.logger.LogCacheSave(ctx, s.cache.Len(), err)
	}

	return err
}

// Close flushes the cache. The Selector must not be used afterwards.
func (s *Selector) Close(ctx context.Context) error {
	return s.SaveCache(ctx)
}

// Select is a one-shot convenience: it builds a Selector with the given
// options, runs a single selection, and flushes the cache.
func Select(ctx context.Context, ids []string, k int, optFns ...Option) (*Result, error) {
	s, err := New(ctx, nil, optFns...)
	if err != nil {
		return nil, err
	}

	return s.Select(ctx, ids, k)
}
