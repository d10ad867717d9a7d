package engine

import (
	"context"
	"math"

	"github.com/google/uuid"
	"github.com/lintang-b-s/saferoutex/pkg"
	da "github.com/lintang-b-s/saferoutex/pkg/datastructure"
	"github.com/lintang-b-s/saferoutex/pkg/geo"
)

const (
	labelPrimary  = "primary"
	labelFastest  = "fastest"
	labelSafest   = "safest"
	labelBalanced = "balanced"
)

type weightPreset struct {
	label   string
	weights da.ObjectiveWeights
}

// alternativePresets distinct objective emphases for alternative candidates.
// each keeps a small weight on the other objectives so the candidate is still
// a sane delivery route rather than a degenerate single-objective one.
func alternativePresets() []weightPreset {
	return []weightPreset{
		{label: labelFastest, weights: da.NewObjectiveWeights(0.1, 0.7, 0.1, 0.1)},
		{label: labelSafest, weights: da.NewObjectiveWeights(0.1, 0.15, 0.7, 0.05)},
		{label: labelBalanced, weights: da.NewObjectiveWeights(0.25, 0.25, 0.25, 0.25)},
	}
}

// generateAlternatives re-sequence the same stops under each preset weighting
// and keep the candidates that differ meaningfully from the primary and from
// each other. reuses the already-built matrix via reweighting, no extra
// provider traffic.
func (e *Engine) generateAlternatives(ctx context.Context, primary *da.OptimizedRoute,
	start geo.Coordinate, stops []da.Stop, matrix *da.CostMatrix,
	objectives []pkg.Objective) []*da.OptimizedRoute {

	kept := []*da.OptimizedRoute{primary}
	alternatives := make([]*da.OptimizedRoute, 0, 3)

	for _, preset := range alternativePresets() {
		reweighted := matrix.Reweight(preset.weights)
		order := e.sequencer.Sequence(reweighted, stops)

		candidate := e.assembleRoute(ctx, primary.GetId(), uuid.NewString(), preset.label,
			start, stops, order, reweighted, objectives)

		if isDuplicateRoute(candidate, kept) {
			continue
		}
		kept = append(kept, candidate)
		alternatives = append(alternatives, candidate)
	}

	return alternatives
}

// isDuplicateRoute a candidate duplicates an existing route when it visits the
// stops in the same order, or when its distance/duration profile is nearly
// indistinguishable.
func isDuplicateRoute(candidate *da.OptimizedRoute, existing []*da.OptimizedRoute) bool {
	for _, r := range existing {
		if sameOrder(candidate.GetStopOrder(), r.GetStopOrder()) {
			return true
		}
		if routeSimilarity(candidate, r) >= pkg.ROUTE_SIMILARITY_THRESHOLD {
			return true
		}
	}
	return false
}

func sameOrder(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// routeSimilarity in [0,1], the product of distance and duration closeness.
func routeSimilarity(a, b *da.OptimizedRoute) float64 {
	am, bm := a.GetMetrics(), b.GetMetrics()
	return ratioCloseness(am.GetTotalDistanceMeters(), bm.GetTotalDistanceMeters()) *
		ratioCloseness(am.GetTotalDurationSecond(), bm.GetTotalDurationSecond())
}

func ratioCloseness(x, y float64) float64 {
	if x == 0 && y == 0 {
		return 1.0
	}
	return math.Min(x, y) / math.Max(x, y)
}
