package engine

import (
	"context"

	"github.com/lintang-b-s/saferoutex/pkg"
	da "github.com/lintang-b-s/saferoutex/pkg/datastructure"
	"github.com/lintang-b-s/saferoutex/pkg/engine/routing"
	"github.com/lintang-b-s/saferoutex/pkg/geo"
	"go.uber.org/zap"
)

// assembleRoute turn a visiting order into a full route: one segment per leg,
// with turn-level geometry from the road arena when both endpoints snap, and
// the matrix cell's provider polyline (or a straight line) otherwise.
func (e *Engine) assembleRoute(ctx context.Context, routeId, versionId, label string,
	start geo.Coordinate, stops []da.Stop, order []int, matrix *da.CostMatrix,
	objectives []pkg.Objective) *da.OptimizedRoute {

	segments := make([]da.RouteSegment, 0, len(order))
	stopOrder := make([]string, 0, len(order))

	prevIdx := 0 // matrix index of the start
	prevId := ""
	prevCoord := start
	for _, stop := range order {
		s := stops[stop]
		cell := matrix.Get(prevIdx, stop+1)

		segments = append(segments,
			e.buildSegment(ctx, prevId, s.GetId(), prevCoord, s.GetCoordinate(), cell, matrix.GetWeights()))
		stopOrder = append(stopOrder, s.GetId())

		prevIdx = stop + 1
		prevId = s.GetId()
		prevCoord = s.GetCoordinate()
	}

	return da.NewOptimizedRoute(routeId, versionId, label, start, stops, stopOrder,
		segments, objectives, matrix.IsDegraded())
}

func (e *Engine) buildSegment(ctx context.Context, fromId, toId string,
	from, to geo.Coordinate, cell da.CostCell, weights da.ObjectiveWeights) da.RouteSegment {

	if e.graph != nil && e.snapIndex != nil {
		if seg, ok := e.searchLeg(ctx, fromId, toId, from, to, cell, weights); ok {
			return seg
		}
	}

	polyline := cell.GetPolyline()
	if polyline == "" {
		polyline = geo.PolylineFromCoords([]geo.Coordinate{from, to})
	}
	return da.NewRouteSegment(fromId, toId, from, to,
		cell.GetDistanceMeters(), cell.GetDurationSecond(), cell.GetSafetyScore(),
		cell.GetTrafficLevel(), polyline, false)
}

// searchLeg run one bounded A* search over the arena. a timed-out search still
// yields geometry, flagged approximate; a failed snap or no-path falls back to
// the matrix cell.
func (e *Engine) searchLeg(ctx context.Context, fromId, toId string,
	from, to geo.Coordinate, cell da.CostCell, weights da.ObjectiveWeights) (da.RouteSegment, bool) {

	source, okS := e.snapIndex.SnapToVertex(e.graph, from, e.snapRadiusKm)
	target, okT := e.snapIndex.SnapToVertex(e.graph, to, e.snapRadiusKm)
	if !okS || !okT || source == target {
		return da.RouteSegment{}, false
	}

	legCtx, cancel := context.WithTimeout(ctx, e.legSearchTimeout)
	defer cancel()

	path, err := routing.NewAstar(e.graph, weights).ShortestPath(legCtx, source, target)
	if err != nil {
		e.log.Debug("leg path search failed, using matrix cell geometry",
			zap.String("from", fromId), zap.String("to", toId), zap.Error(err))
		return da.RouteSegment{}, false
	}

	duration := path.GetDurationSecond()
	if cell.GetTrafficPenalty() > 0 {
		// arena edges carry free-segment times, apply the provider's congestion
		duration *= 1.0 + cell.GetTrafficPenalty()
	}

	return da.NewRouteSegment(fromId, toId, from, to,
		path.GetDistanceMeters(), duration, path.GetMinSafety(),
		cell.GetTrafficLevel(), path.Polyline(), path.IsApproximate()), true
}
