package tracker

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/lintang-b-s/saferoutex/pkg"
	da "github.com/lintang-b-s/saferoutex/pkg/datastructure"
	"github.com/lintang-b-s/saferoutex/pkg/geo"
	"github.com/lintang-b-s/saferoutex/pkg/util"
	"go.uber.org/zap"
)

// Reoptimizer rebuilds a route from the rider's current position over the
// remaining stops only. implemented by the optimization engine.
type Reoptimizer interface {
	Reoptimize(ctx context.Context, start geo.Coordinate, stops []da.Stop,
		objectives []pkg.Objective) (*da.OptimizedRoute, error)
}

// RouteTracker state machine of one live route. each route has a single
// logical owner, the internal mutex only orders concurrent position updates
// against re-optimization completions.
type RouteTracker struct {
	mu sync.Mutex

	route     *da.OptimizedRoute
	state     pkg.RouteState
	delivered map[string]bool
	degraded  bool

	// stop count of the originally optimized route. re-optimization shrinks
	// rt.route to the undelivered stops, completion still counts every stop
	totalStops int

	startedAt time.Time

	// cancel of the in-flight re-optimization, superseded by fresher updates
	reoptCancel context.CancelFunc
}

func (rt *RouteTracker) snapshotLocked() Snapshot {
	return Snapshot{
		RouteId:   rt.route.GetId(),
		VersionId: rt.route.GetVersionId(),
		State:     rt.state,
		Degraded:  rt.degraded,
	}
}

// Snapshot externally visible route status.
type Snapshot struct {
	RouteId   string
	VersionId string
	State     pkg.RouteState
	Degraded  bool
}

// Tracker owns every live route state machine and reacts to position
// updates. deviation handling is event driven, nothing polls.
type Tracker struct {
	mu     sync.RWMutex
	routes map[string]*RouteTracker

	reoptimizer Reoptimizer

	deviationMeters float64
	etaSlipSecond   float64
	reoptTimeout    time.Duration

	log *zap.Logger
}

func New(reoptimizer Reoptimizer, deviationMeters, etaSlipSecond float64,
	reoptTimeout time.Duration, log *zap.Logger) *Tracker {
	return &Tracker{
		routes:          make(map[string]*RouteTracker),
		reoptimizer:     reoptimizer,
		deviationMeters: deviationMeters,
		etaSlipSecond:   etaSlipSecond,
		reoptTimeout:    reoptTimeout,
		log:             log,
	}
}

// Watch register a freshly optimized route in PLANNED state.
func (t *Tracker) Watch(route *da.OptimizedRoute) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.routes[route.GetId()] = &RouteTracker{
		route:      route,
		state:      pkg.ROUTE_PLANNED,
		delivered:  make(map[string]bool),
		totalStops: len(route.GetStops()),
	}
}

func (t *Tracker) get(routeId string) (*RouteTracker, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	rt, ok := t.routes[routeId]
	if !ok {
		return nil, util.WrapErrorf(nil, util.ErrNotFound, "route %s is not tracked", routeId)
	}
	return rt, nil
}

// Status current snapshot of a tracked route.
func (t *Tracker) Status(routeId string) (Snapshot, error) {
	rt, err := t.get(routeId)
	if err != nil {
		return Snapshot{}, err
	}
	rt.mu.Lock()
	defer rt.mu.Unlock()
	return rt.snapshotLocked(), nil
}

// MarkDelivered record per-stop delivery progress. delivered stops are
// immutable: re-optimization can never reorder or drop them.
func (t *Tracker) MarkDelivered(routeId, stopId string) (Snapshot, error) {
	rt, err := t.get(routeId)
	if err != nil {
		return Snapshot{}, err
	}

	rt.mu.Lock()
	defer rt.mu.Unlock()

	// stops delivered before a re-optimization are no longer part of the
	// current route but stay delivered
	if _, ok := rt.route.GetStop(stopId); !ok && !rt.delivered[stopId] {
		return Snapshot{}, util.WrapErrorf(nil, util.ErrNotFound,
			"stop %s is not part of route %s", stopId, routeId)
	}
	rt.delivered[stopId] = true

	if len(rt.delivered) == rt.totalStops {
		rt.state = pkg.ROUTE_COMPLETED
		if rt.reoptCancel != nil {
			rt.reoptCancel()
			rt.reoptCancel = nil
		}
	}
	return rt.snapshotLocked(), nil
}

// Cancel terminal transition, allowed from any state.
func (t *Tracker) Cancel(routeId string) (Snapshot, error) {
	rt, err := t.get(routeId)
	if err != nil {
		return Snapshot{}, err
	}

	rt.mu.Lock()
	defer rt.mu.Unlock()
	if rt.reoptCancel != nil {
		rt.reoptCancel()
		rt.reoptCancel = nil
	}
	rt.state = pkg.ROUTE_CANCELLED
	return rt.snapshotLocked(), nil
}

// ReportPosition handle one live position update. the first update moves the
// route to IN_PROGRESS; later ones may detect deviation and kick off an
// asynchronous re-optimization from the reported position.
func (t *Tracker) ReportPosition(routeId string, position geo.Coordinate,
	timestamp time.Time) (Snapshot, error) {

	rt, err := t.get(routeId)
	if err != nil {
		return Snapshot{}, err
	}

	rt.mu.Lock()
	defer rt.mu.Unlock()

	switch rt.state {
	case pkg.ROUTE_COMPLETED, pkg.ROUTE_CANCELLED:
		return rt.snapshotLocked(), nil
	case pkg.ROUTE_PLANNED:
		rt.state = pkg.ROUTE_IN_PROGRESS
		rt.startedAt = timestamp
	}

	if rt.state == pkg.ROUTE_IN_PROGRESS && t.isDeviated(rt, position, timestamp) {
		rt.state = pkg.ROUTE_DEVIATED
		t.log.Info("route deviated",
			zap.String("route_id", routeId),
			zap.Float64("lat", position.Lat), zap.Float64("lon", position.Lon))
	}

	// a fresher update supersedes any re-optimization still in flight:
	// always optimize from the freshest known position
	if rt.state == pkg.ROUTE_DEVIATED || rt.state == pkg.ROUTE_REOPTIMIZING {
		if rt.reoptCancel != nil {
			rt.reoptCancel()
		}
		rt.state = pkg.ROUTE_REOPTIMIZING

		ctx, cancel := context.WithTimeout(context.Background(), t.reoptTimeout)
		rt.reoptCancel = cancel
		go t.reoptimize(ctx, rt, position)
	}

	return rt.snapshotLocked(), nil
}

// isDeviated off the current planned segment beyond the distance threshold,
// or projected arrival slipping beyond the ETA threshold.
func (t *Tracker) isDeviated(rt *RouteTracker, position geo.Coordinate, now time.Time) bool {
	minDist := pkg.INF_WEIGHT
	remainingSecond := 0.0
	for _, seg := range rt.route.GetSegments() {
		if rt.delivered[seg.GetToStopId()] {
			continue
		}
		remainingSecond += seg.GetDurationSecond()
		d := geo.PointLinePerpendicularDistance(seg.GetFrom(), seg.GetTo(), position)
		if d < minDist {
			minDist = d
		}
	}
	if minDist > t.deviationMeters {
		return true
	}

	// projected arrival: time spent so far plus the undelivered legs still
	// ahead, compared against the planned total
	planned := rt.route.GetMetrics().GetTotalDurationSecond()
	projected := now.Sub(rt.startedAt).Seconds() + remainingSecond
	return projected-planned > t.etaSlipSecond
}

// remainingStopsLocked undelivered stops of the tracked route.
func (rt *RouteTracker) remainingStopsLocked() []da.Stop {
	remaining := make([]da.Stop, 0, len(rt.route.GetStops()))
	for _, id := range rt.route.GetStopOrder() {
		if rt.delivered[id] {
			continue
		}
		if s, ok := rt.route.GetStop(id); ok {
			remaining = append(remaining, s)
		}
	}
	return remaining
}

func (t *Tracker) reoptimize(ctx context.Context, rt *RouteTracker, position geo.Coordinate) {
	rt.mu.Lock()
	remaining := rt.remainingStopsLocked()
	objectives := rt.route.GetObjectives()
	routeId := rt.route.GetId()
	rt.mu.Unlock()

	newRoute, err := t.reoptimizer.Reoptimize(ctx, position, remaining, objectives)

	rt.mu.Lock()
	defer rt.mu.Unlock()

	if ctx.Err() != nil {
		// superseded by a fresher update or cancelled, drop this result
		return
	}
	if rt.state != pkg.ROUTE_REOPTIMIZING {
		return
	}

	if err != nil {
		// keep serving the last-known-good route
		rt.state = pkg.ROUTE_DEVIATED
		rt.degraded = true
		t.log.Warn("re-optimization failed, serving last-known-good route",
			zap.String("route_id", routeId), zap.Error(err))
		return
	}

	versioned := da.NewOptimizedRoute(routeId, uuid.NewString(), newRoute.GetLabel(),
		newRoute.GetStart(), newRoute.GetStops(), newRoute.GetStopOrder(),
		newRoute.GetSegments(), newRoute.GetObjectives(), newRoute.IsDegraded())
	rt.route = versioned
	rt.state = pkg.ROUTE_IN_PROGRESS
	rt.degraded = false
	rt.reoptCancel = nil
	t.log.Info("re-optimized route activated",
		zap.String("route_id", routeId),
		zap.String("version_id", versioned.GetVersionId()),
		zap.Int("remaining_stops", len(remaining)))
}

// Route last-known optimized route of a tracked id.
func (t *Tracker) Route(routeId string) (*da.OptimizedRoute, error) {
	rt, err := t.get(routeId)
	if err != nil {
		return nil, err
	}
	rt.mu.Lock()
	defer rt.mu.Unlock()
	return rt.route, nil
}

// RouteExport durable view of one tracked route, consumed by the persistence
// layer on shutdown.
type RouteExport struct {
	RouteId   string
	VersionId string
	State     pkg.RouteState
	Degraded  bool
	StopOrder []string
	Delivered []string
}

// Export snapshot of every tracked route.
func (t *Tracker) Export() []RouteExport {
	t.mu.RLock()
	trackers := make([]*RouteTracker, 0, len(t.routes))
	for _, rt := range t.routes {
		trackers = append(trackers, rt)
	}
	t.mu.RUnlock()

	out := make([]RouteExport, 0, len(trackers))
	for _, rt := range trackers {
		rt.mu.Lock()
		delivered := make([]string, 0, len(rt.delivered))
		for id := range rt.delivered {
			delivered = append(delivered, id)
		}
		sort.Strings(delivered)
		out = append(out, RouteExport{
			RouteId:   rt.route.GetId(),
			VersionId: rt.route.GetVersionId(),
			State:     rt.state,
			Degraded:  rt.degraded,
			StopOrder: append([]string{}, rt.route.GetStopOrder()...),
			Delivered: delivered,
		})
		rt.mu.Unlock()
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RouteId < out[j].RouteId })
	return out
}

// Delivered snapshot of delivered stop ids.
func (t *Tracker) Delivered(routeId string) (map[string]bool, error) {
	rt, err := t.get(routeId)
	if err != nil {
		return nil, err
	}
	rt.mu.Lock()
	defer rt.mu.Unlock()
	out := make(map[string]bool, len(rt.delivered))
	for k, v := range rt.delivered {
		out[k] = v
	}
	return out, nil
}
