// Package mapper runs a fingerprint function over a batch of resource IDs
// with bounded concurrency.
package mapper

import (
	"context"
	"runtime"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/diverset/fingerprint"
	"github.com/hupe1980/diverset/resource"
)

// All requests one worker per logical CPU.
const All = -1

// Func computes the fingerprint for a single resource ID.
type Func func(ctx context.Context, id string) (fingerprint.Fingerprint, error)

// Options control how a batch is mapped.
type Options struct {
	// Concurrency is the number of parallel workers. 0 and 1 run
	// sequentially; All uses runtime.NumCPU().
	Concurrency int

	// Controller optionally gates worker slots across batches. May be nil.
	Controller *resource.Controller

	// OnProgress, if set, is called after every attempted resource with the
	// number of attempts so far. Calls are serialized.
	OnProgress func(done, total int)

	// OnError, if set, is called for every resource whose fingerprint
	// failed. Failures never abort the batch; the resource is simply
	// absent from the result. Calls are serialized.
	OnError func(id string, err error)
}

// Map computes fingerprints for every distinct ID in ids and returns them
// keyed by ID. Duplicate IDs are computed once. Per-resource failures are
// reported through Options.OnError and otherwise swallowed; the only error
// Map itself returns is context cancellation.
func Map(ctx context.Context, ids []string, fn Func, opts Options) (map[string]fingerprint.Fingerprint, error) {
	unique := dedupe(ids)

	workers := opts.Concurrency
	if workers == All {
		workers = runtime.NumCPU()
	}
	if workers < 1 {
		workers = 1
	}

	if workers == 1 {
		return mapSequential(ctx, unique, fn, opts)
	}

	return mapParallel(ctx, unique, fn, opts, workers)
}

func mapSequential(ctx context.Context, ids []string, fn Func, opts Options) (map[string]fingerprint.Fingerprint, error) {
	out := make(map[string]fingerprint.Fingerprint, len(ids))

	for i, id := range ids {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		if err := opts.Controller.AcquireWorker(ctx); err != nil {
			return nil, err
		}
		fp, err := fn(ctx, id)
		opts.Controller.ReleaseWorker()

		if err != nil {
			if opts.OnError != nil {
				opts.OnError(id, err)
			}
		} else {
			out[id] = fp
		}

		if opts.OnProgress != nil {
			opts.OnProgress(i+1, len(ids))
		}
	}

	return out, nil
}

func mapParallel(ctx context.Context, ids []string, fn Func, opts Options, workers int) (map[string]fingerprint.Fingerprint, error) {
	out := make(map[string]fingerprint.Fingerprint, len(ids))

	var (
		mu   sync.Mutex
		done int
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for _, id := range ids {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			if err := opts.Controller.AcquireWorker(gctx); err != nil {
				return err
			}
			fp, err := fn(gctx, id)
			opts.Controller.ReleaseWorker()

			mu.Lock()
			defer mu.Unlock()

			if err != nil {
				if opts.OnError != nil {
					opts.OnError(id, err)
				}
			} else {
				out[id] = fp
			}

			done++
			if opts.OnProgress != nil {
				opts.OnProgress(done, len(ids))
			}

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return out, nil
}

// dedupe returns ids with later duplicates removed, preserving first-seen
// order.
func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
