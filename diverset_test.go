package diverset

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/diverset/blobstore"
	"github.com/hupe1980/diverset/fingerprint"
	"github.com/hupe1980/diverset/resource"
)

// numProvider reads a two-digit position from the resource content and
// measures distance as the absolute difference, giving tests exact control
// over the geometry.
type numProvider struct{}

func (numProvider) Name() string { return "num" }

func (numProvider) Fingerprint(data []byte) (fingerprint.Fingerprint, error) {
	if len(data) < fingerprint.MinSize {
		return "", fingerprint.ErrInvalidResource
	}
	return fingerprint.Fingerprint(strings.TrimSpace(string(data[:2]))), nil
}

func (numProvider) Distance(a, b fingerprint.Fingerprint) (float64, error) {
	x, err := strconv.Atoi(string(a))
	if err != nil {
		return 0, fmt.Errorf("%w: %q", fingerprint.ErrMalformedFingerprint, a)
	}
	y, err := strconv.Atoi(string(b))
	if err != nil {
		return 0, fmt.Errorf("%w: %q", fingerprint.ErrMalformedFingerprint, b)
	}
	return math.Abs(float64(x - y)), nil
}

// countingProvider counts fingerprint computations to observe cache hits.
type countingProvider struct {
	fingerprint.Provider
	calls atomic.Int64
}

func (p *countingProvider) Fingerprint(data []byte) (fingerprint.Fingerprint, error) {
	p.calls.Add(1)
	return p.Provider.Fingerprint(data)
}

// seedResources stores n resources at positions 0..n-1 on the number line
// and returns their IDs.
func seedResources(t *testing.T, store *blobstore.MemoryStore, n int) []string {
	t.Helper()

	ids := make([]string, n)
	for i := range ids {
		ids[i] = fmt.Sprintf("res-%02d.bin", i)
		content := fmt.Sprintf("%02d %s", i, strings.Repeat("x", 80))
		require.NoError(t, store.Put(context.Background(), ids[i], []byte(content)))
	}
	return ids
}

func TestSelect(t *testing.T) {
	ctx := context.Background()

	t.Run("PicksAreDiverse", func(t *testing.T) {
		resources := blobstore.NewMemoryStore()
		ids := seedResources(t, resources, 10)

		s, err := New(ctx, numProvider{}, WithResourceStore(resources), WithSeed(1))
		require.NoError(t, err)

		result, err := s.Select(ctx, ids, 3)
		require.NoError(t, err)

		require.Equal(t, 3, result.Len())
		assert.True(t, math.IsInf(result.At(0).Score, 1))

		scores := result.Scores()
		for i := 2; i < len(scores); i++ {
			assert.LessOrEqual(t, scores[i], scores[i-1])
		}

		// Whatever the random first pick, the second pick on a 0..9 line is
		// always at least distance 5 away.
		assert.GreaterOrEqual(t, result.At(1).Score, float64(5))

		assert.Positive(t, result.Elapsed())
	})

	t.Run("SameSeedSameSelection", func(t *testing.T) {
		resources := blobstore.NewMemoryStore()
		ids := seedResources(t, resources, 20)

		run := func() []string {
			s, err := New(ctx, numProvider{}, WithResourceStore(resources), WithSeed(99))
			require.NoError(t, err)
			result, err := s.Select(ctx, ids, 5)
			require.NoError(t, err)
			return result.IDs()
		}

		assert.Equal(t, run(), run())
	})

	t.Run("InvalidK", func(t *testing.T) {
		resources := blobstore.NewMemoryStore()
		ids := seedResources(t, resources, 3)

		s, err := New(ctx, numProvider{}, WithResourceStore(resources))
		require.NoError(t, err)

		_, err = s.Select(ctx, ids, 0)
		require.ErrorIs(t, err, ErrInvalidK)

		_, err = s.Select(ctx, ids, 4)
		require.ErrorIs(t, err, ErrInvalidK)

		_, err = s.Select(ctx, nil, 1)
		require.ErrorIs(t, err, ErrInvalidK)
	})

	t.Run("UnreadableResourcesAreDropped", func(t *testing.T) {
		resources := blobstore.NewMemoryStore()
		ids := seedResources(t, resources, 4)
		ids = append(ids, "missing.bin")

		s, err := New(ctx, numProvider{}, WithResourceStore(resources), WithSeed(1))
		require.NoError(t, err)

		result, err := s.Select(ctx, ids, 4)
		require.NoError(t, err)
		assert.NotContains(t, result.IDs(), "missing.bin")
	})

	t.Run("InsufficientResources", func(t *testing.T) {
		resources := blobstore.NewMemoryStore()
		ids := seedResources(t, resources, 2)
		require.NoError(t, resources.Put(ctx, "tiny.bin", []byte("x")))
		ids = append(ids, "tiny.bin", "missing.bin")

		s, err := New(ctx, numProvider{}, WithResourceStore(resources))
		require.NoError(t, err)

		_, err = s.Select(ctx, ids, 3)

		var ierr *ErrInsufficientResources
		require.ErrorAs(t, err, &ierr)
		assert.Equal(t, 2, ierr.Valid)
		assert.Equal(t, 3, ierr.Requested)
	})

	t.Run("DuplicateIDsAreIndependentPositions", func(t *testing.T) {
		resources := blobstore.NewMemoryStore()
		ids := seedResources(t, resources, 2)
		input := []string{ids[0], ids[1], ids[0]}

		s, err := New(ctx, numProvider{}, WithResourceStore(resources), WithSeed(1))
		require.NoError(t, err)

		result, err := s.Select(ctx, input, 3)
		require.NoError(t, err)

		require.Equal(t, 3, result.Len())

		// Both picks of the duplicated ID report its first occurrence.
		indices := result.Indices()
		sort.Ints(indices)
		assert.Equal(t, []int{0, 0, 1}, indices)
	})

	t.Run("ConcurrentFingerprinting", func(t *testing.T) {
		resources := blobstore.NewMemoryStore()
		ids := seedResources(t, resources, 30)

		s, err := New(ctx, numProvider{},
			WithResourceStore(resources),
			WithConcurrency(ConcurrencyAll),
			WithController(resource.NewController(resource.Config{MaxWorkers: 4, IOLimitBytesPerSec: 1 << 20})),
			WithSeed(7),
		)
		require.NoError(t, err)

		result, err := s.Select(ctx, ids, 10)
		require.NoError(t, err)
		assert.Equal(t, 10, result.Len())
	})

	t.Run("ProgressIsReported", func(t *testing.T) {
		resources := blobstore.NewMemoryStore()
		ids := seedResources(t, resources, 6)

		var calls atomic.Int64
		s, err := New(ctx, numProvider{},
			WithResourceStore(resources),
			WithSeed(1),
			WithProgress(func(done, total int) {
				calls.Add(1)
				assert.LessOrEqual(t, done, total)
			}),
		)
		require.NoError(t, err)

		_, err = s.Select(ctx, ids, 2)
		require.NoError(t, err)

		// Once per fingerprinted resource plus once per selection round.
		assert.EqualValues(t, 6+2, calls.Load())
	})

	t.Run("MetricsAreRecorded", func(t *testing.T) {
		resources := blobstore.NewMemoryStore()
		ids := seedResources(t, resources, 5)

		metrics := &BasicMetricsCollector{}
		s, err := New(ctx, numProvider{},
			WithResourceStore(resources),
			WithMetricsCollector(metrics),
			WithSeed(1),
		)
		require.NoError(t, err)

		_, err = s.Select(ctx, ids, 2)
		require.NoError(t, err)

		stats := metrics.GetStats()
		assert.EqualValues(t, 1, stats.SelectCount)
		assert.EqualValues(t, 1, stats.FingerprintBatches)
		assert.EqualValues(t, 5, stats.FingerprintResources)
		assert.Zero(t, stats.SelectErrors)
	})

	t.Run("CanceledContext", func(t *testing.T) {
		resources := blobstore.NewMemoryStore()
		ids := seedResources(t, resources, 3)

		s, err := New(ctx, numProvider{}, WithResourceStore(resources))
		require.NoError(t, err)

		canceled, cancel := context.WithCancel(ctx)
		cancel()

		_, err = s.Select(canceled, ids, 2)
		require.ErrorIs(t, err, context.Canceled)
	})
}

func TestSelectorCache(t *testing.T) {
	ctx := context.Background()

	t.Run("SecondRunComputesNothing", func(t *testing.T) {
		resources := blobstore.NewMemoryStore()
		snapshots := blobstore.NewMemoryStore()
		ids := seedResources(t, resources, 8)

		p1 := &countingProvider{Provider: numProvider{}}
		s1, err := New(ctx, p1,
			WithResourceStore(resources),
			WithCacheStore(snapshots),
			WithSeed(1),
		)
		require.NoError(t, err)

		_, err = s1.Select(ctx, ids, 3)
		require.NoError(t, err)
		assert.EqualValues(t, 8, p1.calls.Load())

		p2 := &countingProvider{Provider: numProvider{}}
		s2, err := New(ctx, p2,
			WithResourceStore(resources),
			WithCacheStore(snapshots),
			WithSeed(1),
		)
		require.NoError(t, err)

		_, err = s2.Select(ctx, ids, 3)
		require.NoError(t, err)
		assert.Zero(t, p2.calls.Load())
	})

	t.Run("ChangedResourceIsRecomputed", func(t *testing.T) {
		resources := blobstore.NewMemoryStore()
		snapshots := blobstore.NewMemoryStore()
		ids := seedResources(t, resources, 4)

		s1, err := New(ctx, numProvider{}, WithResourceStore(resources), WithCacheStore(snapshots), WithSeed(1))
		require.NoError(t, err)
		_, err = s1.Select(ctx, ids, 2)
		require.NoError(t, err)

		content := fmt.Sprintf("%02d %s", 99, strings.Repeat("y", 80))
		require.NoError(t, resources.Put(ctx, ids[0], []byte(content)))

		p := &countingProvider{Provider: numProvider{}}
		s2, err := New(ctx, p, WithResourceStore(resources), WithCacheStore(snapshots), WithSeed(1))
		require.NoError(t, err)
		_, err = s2.Select(ctx, ids, 2)
		require.NoError(t, err)

		assert.EqualValues(t, 1, p.calls.Load())
	})

	t.Run("ComputeFingerprintsWarmsCache", func(t *testing.T) {
		resources := blobstore.NewMemoryStore()
		snapshots := blobstore.NewMemoryStore()
		ids := seedResources(t, resources, 4)

		s, err := New(ctx, numProvider{}, WithResourceStore(resources), WithCacheStore(snapshots))
		require.NoError(t, err)

		fps, err := s.ComputeFingerprints(ctx, append(ids, "missing.bin"))
		require.NoError(t, err)

		assert.Len(t, fps, 4)
		assert.NotContains(t, fps, "missing.bin")

		cached, err := s.CachedFingerprints(ctx)
		require.NoError(t, err)
		assert.Len(t, cached, 4)
	})

	t.Run("ClearCache", func(t *testing.T) {
		resources := blobstore.NewMemoryStore()
		snapshots := blobstore.NewMemoryStore()
		ids := seedResources(t, resources, 3)

		s, err := New(ctx, numProvider{}, WithResourceStore(resources), WithCacheStore(snapshots))
		require.NoError(t, err)

		_, err = s.ComputeFingerprints(ctx, ids)
		require.NoError(t, err)

		cached, err := s.CachedFingerprints(ctx)
		require.NoError(t, err)
		require.Len(t, cached, 3)

		require.NoError(t, s.ClearCache(ctx))

		cached, err = s.CachedFingerprints(ctx)
		require.NoError(t, err)
		assert.Empty(t, cached)

		// The wipe is already persisted; a fresh selector sees it.
		s2, err := New(ctx, numProvider{}, WithResourceStore(resources), WithCacheStore(snapshots))
		require.NoError(t, err)

		cached, err = s2.CachedFingerprints(ctx)
		require.NoError(t, err)
		assert.Empty(t, cached)
	})

	t.Run("NoCacheConfigured", func(t *testing.T) {
		resources := blobstore.NewMemoryStore()
		ids := seedResources(t, resources, 3)

		s, err := New(ctx, numProvider{}, WithResourceStore(resources))
		require.NoError(t, err)

		_, err = s.ComputeFingerprints(ctx, ids)
		require.NoError(t, err)

		// Cache-specific operations fail loudly instead of pretending an
		// empty cache exists.
		_, err = s.CachedFingerprints(ctx)
		require.ErrorIs(t, err, ErrNoCache)
		require.ErrorIs(t, s.ClearCache(ctx), ErrNoCache)

		// Flushing is still a harmless no-op.
		assert.NoError(t, s.SaveCache(ctx))
		assert.NoError(t, s.Close(ctx))
	})

	t.Run("CorruptSnapshotFailsConstruction", func(t *testing.T) {
		snapshots := blobstore.NewMemoryStore()
		require.NoError(t, snapshots.Put(ctx, "FINGERPRINTS", []byte("not a snapshot")))

		_, err := New(ctx, numProvider{}, WithCacheStore(snapshots))
		require.Error(t, err)
	})
}

func TestPackageLevelSelect(t *testing.T) {
	ctx := context.Background()

	resources := blobstore.NewMemoryStore()
	ids := make([]string, 6)
	for i := range ids {
		ids[i] = fmt.Sprintf("doc-%d.txt", i)
		content := strings.Repeat(fmt.Sprintf("paragraph %d of document %d. ", i*7, i), 8)
		require.NoError(t, resources.Put(ctx, ids[i], []byte(content)))
	}

	// Default provider (SimHash) end to end.
	result, err := Select(ctx, ids, 3, WithResourceStore(resources), WithSeed(42))
	require.NoError(t, err)

	require.Equal(t, 3, result.Len())
	for p := range result.All() {
		assert.NotEmpty(t, p.Fingerprint)
	}
}

func TestResult(t *testing.T) {
	ctx := context.Background()

	resources := blobstore.NewMemoryStore()
	ids := seedResources(t, resources, 10)

	s, err := New(ctx, numProvider{}, WithResourceStore(resources), WithSeed(1))
	require.NoError(t, err)

	result, err := s.Select(ctx, ids, 4)
	require.NoError(t, err)

	t.Run("Range", func(t *testing.T) {
		mid := result.Range(1, 3)
		require.Len(t, mid, 2)
		assert.Equal(t, result.At(1), mid[0])
		assert.Equal(t, result.At(2), mid[1])

		assert.Empty(t, result.Range(2, 2))
		assert.Equal(t, result.Indices(), pickIndices(result.Range(0, result.Len())))

		// A range is a copy; mutating it must not reach the result.
		mid[0].ID = "mutated"
		assert.NotEqual(t, "mutated", result.At(1).ID)

		assert.Panics(t, func() { result.Range(0, result.Len()+1) })
	})

	t.Run("ToMap", func(t *testing.T) {
		m := result.ToMap()

		assert.Equal(t, result.Indices(), m["indices"])
		assert.Equal(t, result.IDs(), m["ids"])
		assert.Equal(t, result.Fingerprints(), m["fingerprints"])
		assert.Equal(t, result.Scores(), m["scores"])
		assert.Equal(t, result.Elapsed(), m["elapsed"])
	})
}

func pickIndices(picks []Pick) []int {
	out := make([]int, len(picks))
	for i, p := range picks {
		out[i] = p.Index
	}
	return out
}
