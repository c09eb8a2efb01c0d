// Package greedy implements max-min (farthest-point) subset selection.
//
// At every step the unselected candidate with the maximum minimum distance to
// the already-selected set is picked. This is a greedy heuristic: exact
// max-min-diversity optimization is NP-hard, and the frontier it produces is
// non-increasing after the first pick.
package greedy

import (
	"fmt"
	"math"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/hupe1980/diverset/fingerprint"
)

// Sentinel is the diversity score of the first pick. There is no prior
// selection to compare against, so its score is "maximal" by definition.
var Sentinel = math.Inf(1)

// Item is one selection candidate.
type Item struct {
	ID          string
	Fingerprint fingerprint.Fingerprint
}

// DistanceFunc scores the dissimilarity of two fingerprints.
type DistanceFunc func(a, b fingerprint.Fingerprint) (float64, error)

// IntSource yields uniform random ints in [0, n). It seeds the first pick;
// every later pick is fully determined by the distances and the tie-break
// rule.
type IntSource interface {
	Intn(n int) int
}

// RoundFunc is called after each pick with the number of picks made so far.
type RoundFunc func(picked, total int)

// Select picks k maximally dissimilar items and returns their positions in
// items, in selection order, along with the per-pick diversity scores.
//
// scores[0] is always Sentinel; scores[t] for t >= 1 is the distance from
// pick t to its nearest previously-selected item at the moment of selection,
// and the sequence scores[1:] is non-increasing.
//
// The scan visits candidates in ascending position order and a later
// candidate replaces the running winner only on a strictly greater score, so
// ties break toward the lower position. This tie-break is part of the
// observable contract.
//
// Complexity: one O(n) distance scan per round, O(k*n) total.
func Select(items []Item, k int, dist DistanceFunc, rng IntSource, onRound RoundFunc) ([]int, []float64, error) {
	n := len(items)
	if k < 1 || k > n {
		return nil, nil, fmt.Errorf("greedy: k out of range: %d not in [1, %d]", k, n)
	}

	// minDist[i] is the distance from candidate i to its nearest selected
	// item so far; +Inf means "never compared".
	minDist := make([]float64, n)
	for i := range minDist {
		minDist[i] = math.Inf(1)
	}

	selected := roaring.New()
	picked := make([]int, 0, k)
	scores := make([]float64, 0, k)

	first := rng.Intn(n)
	picked = append(picked, first)
	scores = append(scores, Sentinel)
	selected.Add(uint32(first))
	if onRound != nil {
		onRound(1, k)
	}

	for round := 1; round < k; round++ {
		current := items[picked[len(picked)-1]].Fingerprint

		next := -1
		nextScore := math.Inf(-1)

		for i := 0; i < n; i++ {
			if selected.Contains(uint32(i)) {
				continue
			}

			d, err := dist(current, items[i].Fingerprint)
			if err != nil {
				return nil, nil, fmt.Errorf("greedy: distance %q <-> %q: %w", items[picked[len(picked)-1]].ID, items[i].ID, err)
			}
			if d < minDist[i] {
				minDist[i] = d
			}

			// Strictly greater keeps the earlier candidate on ties.
			if minDist[i] > nextScore {
				nextScore = minDist[i]
				next = i
			}
		}

		picked = append(picked, next)
		scores = append(scores, nextScore)
		selected.Add(uint32(next))
		if onRound != nil {
			onRound(round+1, k)
		}
	}

	return picked, scores, nil
}
