package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/lintang-b-s/saferoutex/pkg"
	"github.com/lintang-b-s/saferoutex/pkg/costmatrix"
	da "github.com/lintang-b-s/saferoutex/pkg/datastructure"
	"github.com/lintang-b-s/saferoutex/pkg/geo"
	"github.com/lintang-b-s/saferoutex/pkg/safety"
	"github.com/lintang-b-s/saferoutex/pkg/sequencer"
	"github.com/lintang-b-s/saferoutex/pkg/util"
	"go.uber.org/zap"
)

type outageProvider struct{}

func (outageProvider) GetDistanceDuration(ctx context.Context, origin, dest geo.Coordinate,
	departAt time.Time) (costmatrix.DistanceDuration, error) {
	return costmatrix.DistanceDuration{}, errors.New("provider outage")
}

func newTestEngine(provider costmatrix.GeoCostProvider) *Engine {
	log := zap.NewNop()
	feedback := safety.NewFeedbackStore()
	extractor := safety.NewExtractor(safety.NewCrimeSnapshot(nil),
		safety.NewSafeZoneIndex(nil), feedback, nil, time.Second, log)
	model := safety.NewModel(pkg.MIN_RETRAIN_SAMPLES, pkg.RETRAIN_R2_TOLERANCE, 0, log)
	scorer := safety.NewScorer(extractor, model)
	trainer := safety.NewTrainer(model, extractor, feedback, time.Hour, log)

	builder := costmatrix.NewBuilder(provider, scorer, 200*time.Millisecond, 4, log)
	seq := sequencer.New(pkg.PRIORITY_COST_TOLERANCE, 200, 10)

	return New(nil, nil, builder, seq, model, scorer, feedback, trainer,
		time.Second, 0.5, log)
}

func deliveryStops() []da.Stop {
	return []da.Stop{
		da.NewStop("a", geo.NewCoordinate(-7.78, 110.36), pkg.PRIORITY_LOW, nil, 2, ""),
		da.NewStop("b", geo.NewCoordinate(-7.76, 110.38), pkg.PRIORITY_LOW, nil, 1, ""),
		da.NewStop("c", geo.NewCoordinate(-7.75, 110.40), pkg.PRIORITY_HIGH, nil, 3, "fragile"),
		da.NewStop("d", geo.NewCoordinate(-7.79, 110.39), pkg.PRIORITY_LOW, nil, 1, ""),
	}
}

func TestOptimizeValidation(t *testing.T) {
	eng := newTestEngine(costmatrix.NewHaversineProvider(30))
	start := geo.NewCoordinate(-7.77, 110.37)

	testCases := []struct {
		name  string
		stops []da.Stop
	}{
		{name: "no stops", stops: nil},
		{name: "duplicate stop ids", stops: []da.Stop{
			da.NewStop("a", geo.NewCoordinate(1, 1), pkg.PRIORITY_LOW, nil, 0, ""),
			da.NewStop("a", geo.NewCoordinate(2, 2), pkg.PRIORITY_LOW, nil, 0, ""),
		}},
		{name: "empty stop id", stops: []da.Stop{
			da.NewStop("", geo.NewCoordinate(1, 1), pkg.PRIORITY_LOW, nil, 0, ""),
		}},
		{name: "invalid coordinate", stops: []da.Stop{
			da.NewStop("a", geo.NewCoordinate(91, 1), pkg.PRIORITY_LOW, nil, 0, ""),
		}},
	}

	for _, tt := range testCases {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := eng.Optimize(context.Background(), start, tt.stops, nil)
			if !errors.Is(err, util.ErrBadParamInput) {
				t.Errorf("expected ErrBadParamInput, got %v", err)
			}
		})
	}
}

func TestOptimizeEndToEnd(t *testing.T) {
	eng := newTestEngine(costmatrix.NewHaversineProvider(30))
	start := geo.NewCoordinate(-7.77, 110.37)
	stops := deliveryStops()

	primary, alternatives, err := eng.Optimize(context.Background(), start, stops,
		[]pkg.Objective{pkg.OBJECTIVE_TIME, pkg.OBJECTIVE_SAFETY})
	if err != nil {
		t.Fatalf("optimize failed: %v", err)
	}

	if primary.GetId() == "" || primary.GetVersionId() == "" {
		t.Error("route must carry id and version id")
	}
	if primary.GetLabel() != labelPrimary {
		t.Errorf("primary label %q", primary.GetLabel())
	}
	if len(primary.GetStopOrder()) != len(stops) {
		t.Fatalf("order visits %d of %d stops", len(primary.GetStopOrder()), len(stops))
	}
	seen := map[string]bool{}
	for _, id := range primary.GetStopOrder() {
		if seen[id] {
			t.Fatalf("stop %s visited twice", id)
		}
		seen[id] = true
	}
	if len(primary.GetSegments()) != len(stops) {
		t.Errorf("expected %d segments, got %d", len(stops), len(primary.GetSegments()))
	}
	if primary.GetSegments()[0].GetFromStopId() != "" {
		t.Error("first segment must leave from the start position")
	}
	m := primary.GetMetrics()
	if m.GetTotalDistanceMeters() <= 0 || m.GetTotalDurationSecond() <= 0 {
		t.Errorf("empty metrics: %+v", m)
	}
	if m.GetMinSegmentSafety() > m.GetAverageSafetyScore()+1e-9 {
		t.Error("min segment safety cannot exceed the average")
	}
	if primary.IsDegraded() {
		t.Error("healthy provider must not degrade the route")
	}

	for _, alt := range alternatives {
		if alt.GetId() != primary.GetId() {
			t.Error("alternatives share the primary route id")
		}
		if alt.GetVersionId() == primary.GetVersionId() {
			t.Error("alternatives need their own version id")
		}
		if sameOrder(alt.GetStopOrder(), primary.GetStopOrder()) {
			t.Errorf("alternative %q duplicates the primary order", alt.GetLabel())
		}
	}
}

func TestOptimizeDeterministicOrder(t *testing.T) {
	eng := newTestEngine(costmatrix.NewHaversineProvider(30))
	start := geo.NewCoordinate(-7.77, 110.37)
	stops := deliveryStops()

	first, _, err := eng.Optimize(context.Background(), start, stops, nil)
	if err != nil {
		t.Fatalf("optimize failed: %v", err)
	}
	second, _, err := eng.Optimize(context.Background(), start, stops, nil)
	if err != nil {
		t.Fatalf("optimize failed: %v", err)
	}

	if !sameOrder(first.GetStopOrder(), second.GetStopOrder()) {
		t.Errorf("identical input produced different orders: %v vs %v",
			first.GetStopOrder(), second.GetStopOrder())
	}
}

func TestOptimizeProviderOutageDegrades(t *testing.T) {
	eng := newTestEngine(outageProvider{})
	start := geo.NewCoordinate(-7.77, 110.37)

	primary, _, err := eng.Optimize(context.Background(), start, deliveryStops(), nil)
	if err != nil {
		t.Fatalf("outage must degrade, not fail: %v", err)
	}
	if !primary.IsDegraded() {
		t.Error("route built on fallback estimates must be flagged degraded")
	}
	if len(primary.GetStopOrder()) != 4 {
		t.Error("degraded route still visits every stop")
	}
}

func TestReoptimizeCancelledContext(t *testing.T) {
	eng := newTestEngine(costmatrix.NewHaversineProvider(30))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := eng.Reoptimize(ctx, geo.NewCoordinate(-7.77, 110.37), deliveryStops(), nil)
	if !errors.Is(err, util.ErrOptimizationTimeout) {
		t.Errorf("expected ErrOptimizationTimeout, got %v", err)
	}
}

func TestRouteSimilarity(t *testing.T) {
	start := geo.NewCoordinate(0, 0)
	stops := deliveryStops()
	segA := []da.RouteSegment{da.NewRouteSegment("", "a", start, stops[0].GetCoordinate(),
		1000, 120, 90, pkg.TRAFFIC_FREE_FLOW, "", false)}
	segB := []da.RouteSegment{da.NewRouteSegment("", "a", start, stops[0].GetCoordinate(),
		2000, 300, 90, pkg.TRAFFIC_FREE_FLOW, "", false)}

	same := da.NewOptimizedRoute("r", "v1", "x", start, stops[:1], []string{"a"}, segA, nil, false)
	near := da.NewOptimizedRoute("r", "v2", "y", start, stops[:1], []string{"a"}, segA, nil, false)
	far := da.NewOptimizedRoute("r", "v3", "z", start, stops[:1], []string{"a"}, segB, nil, false)

	if routeSimilarity(same, near) < pkg.ROUTE_SIMILARITY_THRESHOLD {
		t.Error("identical profiles must be similar")
	}
	if routeSimilarity(same, far) >= pkg.ROUTE_SIMILARITY_THRESHOLD {
		t.Error("doubled distance and duration must not be similar")
	}
	if !isDuplicateRoute(near, []*da.OptimizedRoute{same}) {
		t.Error("near-identical candidate must be deduplicated")
	}
}
