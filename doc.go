// Package diverset selects maximally diverse subsets of resources by
// fingerprint distance.
//
// Resources (files, blobs, any opaque byte content) are reduced to compact
// similarity fingerprints, and a greedy farthest-point pass picks the k
// resources that are most mutually dissimilar. Fingerprints are cached
// across runs keyed on (modification time, size), so repeated selections
// over a mostly unchanged corpus only fingerprint what changed.
//
// Quick start:
//
//	result, err := diverset.Select(ctx, paths, 10,
//	    diverset.WithCacheDir(".diverset"),
//	    diverset.WithConcurrency(diverset.ConcurrencyAll),
//	)
//
// For repeated selections build a Selector once with New and reuse it.
package diverset
