package diverset

import (
	"sync/atomic"
	"time"
)

// MetricsCollector defines an interface for collecting operational metrics.
// Implement this interface to integrate with monitoring systems like Prometheus.
type MetricsCollector interface {
	// RecordFingerprintBatch is called after each fingerprint batch.
	// total is the number of distinct resources resolved, cached how many
	// came from the cache, failed how many could not be fingerprinted.
	RecordFingerprintBatch(total, cached, failed int, duration time.Duration)

	// RecordSelect is called after each selection.
	// k is the requested selection size, duration is the time taken,
	// err is nil if successful.
	RecordSelect(k int, duration time.Duration, err error)

	// RecordCacheSave is called after each cache snapshot save attempt.
	RecordCacheSave(duration time.Duration, err error)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
// Use this when metrics collection is not needed.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordFingerprintBatch(int, int, int, time.Duration) {}
func (NoopMetricsCollector) RecordSelect(int, time.Duration, error)              {}
func (NoopMetricsCollector) RecordCacheSave(time.Duration, error)                {}

// BasicMetricsCollector provides simple in-memory metrics collection.
// Useful for debugging and basic monitoring without external dependencies.
type BasicMetricsCollector struct {
	FingerprintBatches   atomic.Int64
	FingerprintResources atomic.Int64
	FingerprintCached    atomic.Int64
	FingerprintFailed    atomic.Int64
	SelectCount          atomic.Int64
	SelectErrors         atomic.Int64
	SelectTotalNanos     atomic.Int64
	CacheSaves           atomic.Int64
	CacheSaveErrors      atomic.Int64
}

// RecordFingerprintBatch implements MetricsCollector.
func (b *BasicMetricsCollector) RecordFingerprintBatch(total, cached, failed int, duration time.Duration) {
	b.FingerprintBatches.Add(1)
	b.FingerprintResources.Add(int64(total))
	b.FingerprintCached.Add(int64(cached))
	b.FingerprintFailed.Add(int64(failed))
}

// RecordSelect implements MetricsCollector.
func (b *BasicMetricsCollector) RecordSelect(k int, duration time.Duration, err error) {
	b.SelectCount.Add(1)
	b.SelectTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.SelectErrors.Add(1)
	}
}

// RecordCacheSave implements MetricsCollector.
func (b *BasicMetricsCollector) RecordCacheSave(duration time.Duration, err error) {
	b.CacheSaves.Add(1)
	if err != nil {
		b.CacheSaveErrors.Add(1)
	}
}

// GetStats returns a snapshot of current metrics.
func (b *BasicMetricsCollector) GetStats() BasicMetricsStats {
	return BasicMetricsStats{
		FingerprintBatches:   b.FingerprintBatches.Load(),
		FingerprintResources: b.FingerprintResources.Load(),
		FingerprintCached:    b.FingerprintCached.Load(),
		FingerprintFailed:    b.FingerprintFailed.Load(),
		SelectCount:          b.SelectCount.Load(),
		SelectErrors:         b.SelectErrors.Load(),
		SelectAvgNanos:       b.getAvgSelectNanos(),
		CacheSaves:           b.CacheSaves.Load(),
		CacheSaveErrors:      b.CacheSaveErrors.Load(),
	}
}

func (b *BasicMetricsCollector) getAvgSelectNanos() int64 {
	count := b.SelectCount.Load()
	if count == 0 {
		return 0
	}
	return b.SelectTotalNanos.Load() / count
}

// BasicMetricsStats is a snapshot of BasicMetricsCollector state.
type BasicMetricsStats struct {
	FingerprintBatches   int64
	FingerprintResources int64
	FingerprintCached    int64
	FingerprintFailed    int64
	SelectCount          int64
	SelectErrors         int64
	SelectAvgNanos       int64
	CacheSaves           int64
	CacheSaveErrors      int64
}
