package diverset

import (
	"iter"
	"time"

	"github.com/hupe1980/diverset/fingerprint"
)

// Pick is one selected resource.
type Pick struct {
	// Index is the position of the resource in the input slice. For
	// duplicated IDs this is the first occurrence.
	Index int

	// ID is the resource identifier.
	ID string

	// Fingerprint is the similarity token the selection was based on.
	Fingerprint fingerprint.Fingerprint

	// Score is the diversity score: the distance to the nearest
	// previously-selected resource at the moment of selection. The first
	// pick has score +Inf.
	Score float64
}

// Result is an immutable selection outcome, ordered by selection round.
// Scores are non-increasing after the first pick.
type Result struct {
	picks   []Pick
	elapsed time.Duration
}

func newResult(picks []Pick, elapsed time.Duration) *Result {
	return &Result{picks: picks, elapsed: elapsed}
}

// Len returns the number of selected resources.
func (r *Result) Len() int {
	return len(r.picks)
}

// At returns the i-th pick in selection order.
func (r *Result) At(i int) Pick {
	return r.picks[i]
}

// All iterates the picks in selection order.
func (r *Result) All() iter.Seq[Pick] {
	return func(yield func(Pick) bool) {
		for _, p := range r.picks {
			if !yield(p) {
				return
			}
		}
	}
}

// Range returns a copy of the picks in positions [lo, hi) of the selection
// order. It panics when the bounds are out of range, like a slice expression.
func (r *Result) Range(lo, hi int) []Pick {
	return append([]Pick(nil), r.picks[lo:hi]...)
}

// Indices returns the input positions of the picks, in selection order.
func (r *Result) Indices() []int {
	out := make([]int, len(r.picks))
	for i, p := range r.picks {
		out[i] = p.Index
	}
	return out
}

// IDs returns the resource IDs of the picks, in selection order.
func (r *Result) IDs() []string {
	out := make([]string, len(r.picks))
	for i, p := range r.picks {
		out[i] = p.ID
	}
	return out
}

// Scores returns the diversity scores of the picks, in selection order.
func (r *Result) Scores() []float64 {
	out := make([]float64, len(r.picks))
	for i, p := range r.picks {
		out[i] = p.Score
	}
	return out
}

// Fingerprints returns the fingerprints of the picks, in selection order.
func (r *Result) Fingerprints() []fingerprint.Fingerprint {
	out := make([]fingerprint.Fingerprint, len(r.picks))
	for i, p := range r.picks {
		out[i] = p.Fingerprint
	}
	return out
}

// ToMap exports the result as a structured map, preserving selection order
// in every slice:
//
//	"indices":      []int
//	"ids":          []string
//	"fingerprints": []fingerprint.Fingerprint
//	"scores":       []float64
//	"elapsed":      time.Duration
//
// Useful for serialization and reporting without walking the picks manually.
func (r *Result) ToMap() map[string]any {
	return map[string]any{
		"indices":      r.Indices(),
		"ids":          r.IDs(),
		"fingerprints": r.Fingerprints(),
		"scores":       r.Scores(),
		"elapsed":      r.elapsed,
	}
}

// Elapsed returns the wall-clock duration of the selection.
func (r *Result) Elapsed() time.Duration {
	return r.elapsed
}
