package datastructure

import (
	"time"

	"github.com/lintang-b-s/saferoutex/pkg"
	"github.com/lintang-b-s/saferoutex/pkg/geo"
)

// RouteSegment leg between two consecutive stops. computed per optimization
// build, invalidated whenever the route is re-optimized.
type RouteSegment struct {
	fromStopId     string
	toStopId       string
	from           geo.Coordinate
	to             geo.Coordinate
	distanceMeters float64
	durationSecond float64
	safetyScore    float64
	trafficLevel   pkg.TrafficLevel
	polyline       string
	approximate    bool
}

func NewRouteSegment(fromStopId, toStopId string, from, to geo.Coordinate,
	distanceMeters, durationSecond, safetyScore float64,
	trafficLevel pkg.TrafficLevel, polyline string, approximate bool) RouteSegment {
	return RouteSegment{
		fromStopId:     fromStopId,
		toStopId:       toStopId,
		from:           from,
		to:             to,
		distanceMeters: distanceMeters,
		durationSecond: durationSecond,
		safetyScore:    safetyScore,
		trafficLevel:   trafficLevel,
		polyline:       polyline,
		approximate:    approximate,
	}
}

func (rs RouteSegment) GetFromStopId() string {
	return rs.fromStopId
}

func (rs RouteSegment) GetToStopId() string {
	return rs.toStopId
}

func (rs RouteSegment) GetFrom() geo.Coordinate {
	return rs.from
}

func (rs RouteSegment) GetTo() geo.Coordinate {
	return rs.to
}

func (rs RouteSegment) GetDistanceMeters() float64 {
	return rs.distanceMeters
}

func (rs RouteSegment) GetDurationSecond() float64 {
	return rs.durationSecond
}

func (rs RouteSegment) GetSafetyScore() float64 {
	return rs.safetyScore
}

func (rs RouteSegment) GetTrafficLevel() pkg.TrafficLevel {
	return rs.trafficLevel
}

func (rs RouteSegment) GetPolyline() string {
	return rs.polyline
}

func (rs RouteSegment) IsApproximate() bool {
	return rs.approximate
}

// RouteMetrics aggregates of one optimized route.
type RouteMetrics struct {
	totalDistanceMeters float64
	totalDurationSecond float64
	averageSafetyScore  float64
	minSegmentSafety    float64
	fuelEstimateLiter   float64
}

func NewRouteMetrics(segments []RouteSegment) RouteMetrics {
	m := RouteMetrics{minSegmentSafety: pkg.MAX_SAFETY_SCORE}
	if len(segments) == 0 {
		return m
	}
	safetySum := 0.0
	for _, s := range segments {
		m.totalDistanceMeters += s.distanceMeters
		m.totalDurationSecond += s.durationSecond
		safetySum += s.safetyScore
		if s.safetyScore < m.minSegmentSafety {
			m.minSegmentSafety = s.safetyScore
		}
	}
	m.averageSafetyScore = safetySum / float64(len(segments))
	m.fuelEstimateLiter = m.totalDistanceMeters / 1000.0 * pkg.FUEL_CONSUMPTION_PER_KM
	return m
}

func (m RouteMetrics) GetTotalDistanceMeters() float64 {
	return m.totalDistanceMeters
}

func (m RouteMetrics) GetTotalDurationSecond() float64 {
	return m.totalDurationSecond
}

func (m RouteMetrics) GetAverageSafetyScore() float64 {
	return m.averageSafetyScore
}

func (m RouteMetrics) GetMinSegmentSafety() float64 {
	return m.minSegmentSafety
}

func (m RouteMetrics) GetFuelEstimateLiter() float64 {
	return m.fuelEstimateLiter
}

// OptimizedRoute one ordered visiting plan: the stop sequence, its segments
// and aggregate metrics. label distinguishes the primary route from its
// alternatives (fastest / safest / balanced).
type OptimizedRoute struct {
	id         string
	versionId  string
	label      string
	start      geo.Coordinate
	stopOrder  []string
	stops      []Stop
	segments   []RouteSegment
	metrics    RouteMetrics
	objectives []pkg.Objective
	degraded   bool
	createdAt  time.Time
}

func NewOptimizedRoute(id, versionId, label string, start geo.Coordinate, stops []Stop,
	stopOrder []string, segments []RouteSegment, objectives []pkg.Objective,
	degraded bool) *OptimizedRoute {
	return &OptimizedRoute{
		id:         id,
		versionId:  versionId,
		label:      label,
		start:      start,
		stops:      stops,
		stopOrder:  stopOrder,
		segments:   segments,
		metrics:    NewRouteMetrics(segments),
		objectives: objectives,
		degraded:   degraded,
		createdAt:  time.Now(),
	}
}

func (r *OptimizedRoute) GetId() string {
	return r.id
}

func (r *OptimizedRoute) GetVersionId() string {
	return r.versionId
}

func (r *OptimizedRoute) GetLabel() string {
	return r.label
}

func (r *OptimizedRoute) GetStart() geo.Coordinate {
	return r.start
}

func (r *OptimizedRoute) GetStopOrder() []string {
	return r.stopOrder
}

func (r *OptimizedRoute) GetStops() []Stop {
	return r.stops
}

// GetStop lookup by stop id.
func (r *OptimizedRoute) GetStop(id string) (Stop, bool) {
	for _, s := range r.stops {
		if s.GetId() == id {
			return s, true
		}
	}
	return Stop{}, false
}

func (r *OptimizedRoute) GetSegments() []RouteSegment {
	return r.segments
}

func (r *OptimizedRoute) GetMetrics() RouteMetrics {
	return r.metrics
}

func (r *OptimizedRoute) GetObjectives() []pkg.Objective {
	return r.objectives
}

func (r *OptimizedRoute) IsDegraded() bool {
	return r.degraded
}

func (r *OptimizedRoute) GetCreatedAt() time.Time {
	return r.createdAt
}
