package tracker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/lintang-b-s/saferoutex/pkg"
	da "github.com/lintang-b-s/saferoutex/pkg/datastructure"
	"github.com/lintang-b-s/saferoutex/pkg/geo"
	"github.com/lintang-b-s/saferoutex/pkg/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubReoptimizer struct {
	calls chan []da.Stop
	fail  bool
}

func (s *stubReoptimizer) Reoptimize(ctx context.Context, start geo.Coordinate,
	stops []da.Stop, objectives []pkg.Objective) (*da.OptimizedRoute, error) {
	if s.calls != nil {
		s.calls <- stops
	}
	if s.fail {
		return nil, util.WrapErrorf(errors.New("matrix build failed"),
			util.ErrProviderUnavailable, "re-optimization unavailable")
	}

	order := make([]string, 0, len(stops))
	for _, st := range stops {
		order = append(order, st.GetId())
	}
	return da.NewOptimizedRoute("ignored", "fresh-version", "primary", start,
		stops, order, buildSegments(start, stops), objectives, false), nil
}

func buildSegments(start geo.Coordinate, stops []da.Stop) []da.RouteSegment {
	segments := make([]da.RouteSegment, 0, len(stops))
	prevId, prev := "", start
	for _, s := range stops {
		segments = append(segments, da.NewRouteSegment(prevId, s.GetId(), prev,
			s.GetCoordinate(), geo.HaversineMeters(prev, s.GetCoordinate()), 100, 90,
			pkg.TRAFFIC_FREE_FLOW, "", false))
		prevId, prev = s.GetId(), s.GetCoordinate()
	}
	return segments
}

func testRoute() *da.OptimizedRoute {
	start := geo.NewCoordinate(0, 0)
	stops := []da.Stop{
		da.NewStop("a", geo.NewCoordinate(0, 0.01), pkg.PRIORITY_LOW, nil, 0, ""),
		da.NewStop("b", geo.NewCoordinate(0, 0.02), pkg.PRIORITY_LOW, nil, 0, ""),
	}
	return da.NewOptimizedRoute("route-1", "v1", "primary", start, stops,
		[]string{"a", "b"}, buildSegments(start, stops), nil, false)
}

func newTestTracker(reopt Reoptimizer) *Tracker {
	return New(reopt, pkg.DEVIATION_DISTANCE_THRESHOLD_METERS,
		pkg.DEVIATION_ETA_SLIP_THRESHOLD_SECOND, 5*time.Second, zap.NewNop())
}

func waitForState(t *testing.T, trk *Tracker, routeId string, want pkg.RouteState) Snapshot {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		snap, err := trk.Status(routeId)
		require.NoError(t, err)
		if snap.State == want {
			return snap
		}
		time.Sleep(5 * time.Millisecond)
	}
	snap, _ := trk.Status(routeId)
	t.Fatalf("route never reached %s, stuck at %s", want, snap.State)
	return Snapshot{}
}

func TestLifecycleHappyPath(t *testing.T) {
	trk := newTestTracker(&stubReoptimizer{})
	trk.Watch(testRoute())

	snap, err := trk.Status("route-1")
	require.NoError(t, err)
	assert.Equal(t, pkg.ROUTE_PLANNED, snap.State)

	// on-route position starts the trip without deviating
	snap, err = trk.ReportPosition("route-1", geo.NewCoordinate(0, 0.005), time.Now())
	require.NoError(t, err)
	assert.Equal(t, pkg.ROUTE_IN_PROGRESS, snap.State)

	snap, err = trk.MarkDelivered("route-1", "a")
	require.NoError(t, err)
	assert.Equal(t, pkg.ROUTE_IN_PROGRESS, snap.State)

	snap, err = trk.MarkDelivered("route-1", "b")
	require.NoError(t, err)
	assert.Equal(t, pkg.ROUTE_COMPLETED, snap.State)

	// completed routes ignore further updates
	snap, err = trk.ReportPosition("route-1", geo.NewCoordinate(1, 1), time.Now())
	require.NoError(t, err)
	assert.Equal(t, pkg.ROUTE_COMPLETED, snap.State)
}

func TestDeviationTriggersReoptimization(t *testing.T) {
	reopt := &stubReoptimizer{calls: make(chan []da.Stop, 1)}
	trk := newTestTracker(reopt)
	trk.Watch(testRoute())

	now := time.Now()
	_, err := trk.ReportPosition("route-1", geo.NewCoordinate(0, 0.005), now)
	require.NoError(t, err)

	// ~1.1km off the planned segments
	snap, err := trk.ReportPosition("route-1", geo.NewCoordinate(0.01, 0.005), now.Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, pkg.ROUTE_REOPTIMIZING, snap.State)

	snap = waitForState(t, trk, "route-1", pkg.ROUTE_IN_PROGRESS)
	assert.NotEqual(t, "v1", snap.VersionId, "re-optimization must mint a new version")
	assert.False(t, snap.Degraded)

	route, err := trk.Route("route-1")
	require.NoError(t, err)
	assert.Equal(t, "route-1", route.GetId(), "route id survives re-optimization")
}

func TestReoptimizationExcludesDeliveredStops(t *testing.T) {
	reopt := &stubReoptimizer{calls: make(chan []da.Stop, 1)}
	trk := newTestTracker(reopt)
	trk.Watch(testRoute())

	now := time.Now()
	_, err := trk.ReportPosition("route-1", geo.NewCoordinate(0, 0.005), now)
	require.NoError(t, err)
	_, err = trk.MarkDelivered("route-1", "a")
	require.NoError(t, err)

	_, err = trk.ReportPosition("route-1", geo.NewCoordinate(0.01, 0.015), now.Add(time.Minute))
	require.NoError(t, err)

	select {
	case remaining := <-reopt.calls:
		require.Len(t, remaining, 1)
		assert.Equal(t, "b", remaining[0].GetId(), "delivered stop must be excluded")
	case <-time.After(2 * time.Second):
		t.Fatal("re-optimizer was never called")
	}
}

func TestReoptimizationFailureKeepsLastKnownGood(t *testing.T) {
	trk := newTestTracker(&stubReoptimizer{fail: true})
	trk.Watch(testRoute())

	now := time.Now()
	_, err := trk.ReportPosition("route-1", geo.NewCoordinate(0, 0.005), now)
	require.NoError(t, err)
	_, err = trk.ReportPosition("route-1", geo.NewCoordinate(0.01, 0.005), now.Add(time.Minute))
	require.NoError(t, err)

	snap := waitForState(t, trk, "route-1", pkg.ROUTE_DEVIATED)
	assert.True(t, snap.Degraded, "failed re-optimization must flag degraded")
	assert.Equal(t, "v1", snap.VersionId, "last-known-good route keeps serving")
}

func TestEtaSlipCountsAsDeviation(t *testing.T) {
	reopt := &stubReoptimizer{}
	trk := newTestTracker(reopt)
	trk.Watch(testRoute()) // planned duration 200s

	now := time.Now()
	_, err := trk.ReportPosition("route-1", geo.NewCoordinate(0, 0.005), now)
	require.NoError(t, err)

	// still on the line, but 15 minutes in on a ~3 minute plan
	snap, err := trk.ReportPosition("route-1", geo.NewCoordinate(0, 0.006), now.Add(15*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, pkg.ROUTE_REOPTIMIZING, snap.State)
}

func TestCompletionCountsEveryOriginalStop(t *testing.T) {
	reopt := &stubReoptimizer{}
	trk := newTestTracker(reopt)

	start := geo.NewCoordinate(0, 0)
	stops := []da.Stop{
		da.NewStop("a", geo.NewCoordinate(0, 0.01), pkg.PRIORITY_LOW, nil, 0, ""),
		da.NewStop("b", geo.NewCoordinate(0, 0.02), pkg.PRIORITY_LOW, nil, 0, ""),
		da.NewStop("c", geo.NewCoordinate(0, 0.03), pkg.PRIORITY_LOW, nil, 0, ""),
	}
	trk.Watch(da.NewOptimizedRoute("route-1", "v1", "primary", start, stops,
		[]string{"a", "b", "c"}, buildSegments(start, stops), nil, false))

	now := time.Now()
	_, err := trk.ReportPosition("route-1", geo.NewCoordinate(0, 0.005), now)
	require.NoError(t, err)
	_, err = trk.MarkDelivered("route-1", "a")
	require.NoError(t, err)

	// deviate so the route is re-optimized over the remaining {b, c} only
	_, err = trk.ReportPosition("route-1", geo.NewCoordinate(0.01, 0.015), now.Add(time.Minute))
	require.NoError(t, err)
	waitForState(t, trk, "route-1", pkg.ROUTE_IN_PROGRESS)

	// one of the two remaining stops delivered, c is still outstanding
	snap, err := trk.MarkDelivered("route-1", "b")
	require.NoError(t, err)
	assert.Equal(t, pkg.ROUTE_IN_PROGRESS, snap.State,
		"stop c is undelivered, route must not be COMPLETED")

	snap, err = trk.MarkDelivered("route-1", "c")
	require.NoError(t, err)
	assert.Equal(t, pkg.ROUTE_COMPLETED, snap.State)
}

func TestMidRouteEtaSlip(t *testing.T) {
	reopt := &stubReoptimizer{}
	trk := newTestTracker(reopt)

	start := geo.NewCoordinate(0, 0)
	a := geo.NewCoordinate(0, 0.01)
	b := geo.NewCoordinate(0, 0.02)
	stops := []da.Stop{
		da.NewStop("a", a, pkg.PRIORITY_LOW, nil, 0, ""),
		da.NewStop("b", b, pkg.PRIORITY_LOW, nil, 0, ""),
	}
	// two 20-minute legs, 40 minutes planned in total
	segments := []da.RouteSegment{
		da.NewRouteSegment("", "a", start, a, 1100, 1200, 90, pkg.TRAFFIC_FREE_FLOW, "", false),
		da.NewRouteSegment("a", "b", a, b, 1100, 1200, 90, pkg.TRAFFIC_FREE_FLOW, "", false),
	}
	trk.Watch(da.NewOptimizedRoute("route-1", "v1", "primary", start, stops,
		[]string{"a", "b"}, segments, nil, false))

	now := time.Now()
	_, err := trk.ReportPosition("route-1", geo.NewCoordinate(0, 0.005), now)
	require.NoError(t, err)
	_, err = trk.MarkDelivered("route-1", "a")
	require.NoError(t, err)

	// on the remaining leg ~32 minutes in: the last 20-minute leg projects
	// arrival ~12 minutes late, well before the full 40-minute plan elapses
	snap, err := trk.ReportPosition("route-1", geo.NewCoordinate(0, 0.015), now.Add(1900*time.Second))
	require.NoError(t, err)
	assert.Equal(t, pkg.ROUTE_REOPTIMIZING, snap.State,
		"projected arrival slip must flag deviation mid-route")
}

func TestCancelFromAnyState(t *testing.T) {
	trk := newTestTracker(&stubReoptimizer{})
	trk.Watch(testRoute())

	snap, err := trk.Cancel("route-1")
	require.NoError(t, err)
	assert.Equal(t, pkg.ROUTE_CANCELLED, snap.State)

	// cancelled is terminal
	snap, err = trk.ReportPosition("route-1", geo.NewCoordinate(0, 0.005), time.Now())
	require.NoError(t, err)
	assert.Equal(t, pkg.ROUTE_CANCELLED, snap.State)
}

func TestUnknownRoute(t *testing.T) {
	trk := newTestTracker(&stubReoptimizer{})

	_, err := trk.Status("missing")
	assert.ErrorIs(t, err, util.ErrNotFound)

	_, err = trk.MarkDelivered("missing", "a")
	assert.ErrorIs(t, err, util.ErrNotFound)
}

func TestMarkDeliveredUnknownStop(t *testing.T) {
	trk := newTestTracker(&stubReoptimizer{})
	trk.Watch(testRoute())

	_, err := trk.MarkDelivered("route-1", "nope")
	assert.ErrorIs(t, err, util.ErrNotFound)
}
