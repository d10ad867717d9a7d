package routing

import (
	"context"

	"github.com/lintang-b-s/saferoutex/pkg"
	da "github.com/lintang-b-s/saferoutex/pkg/datastructure"
	"github.com/lintang-b-s/saferoutex/pkg/geo"
	"github.com/lintang-b-s/saferoutex/pkg/util"
)

// Astar single-pair search over the road arena. edge cost is the same
// weighted combination the cost matrix uses, the heuristic is the haversine
// distance priced at free-flow speed with zero safety/traffic penalty, which
// never overestimates the remaining cost.
type Astar struct {
	graph   *da.Graph
	weights da.ObjectiveWeights

	gScore    map[da.Index]float64
	cameFrom  map[da.Index]da.Index
	pq        *da.MinHeap[da.AstarQueryKey]
	inFringe  map[da.Index]*da.PriorityQueueNode[da.AstarQueryKey]
	pathStats map[da.Index]edgeStats

	numSettledNodes int
}

type edgeStats struct {
	distanceMeters float64
	durationSecond float64
	minSafety      float64
	safetySum      float64
	edgeCount      int
}

func NewAstar(graph *da.Graph, weights da.ObjectiveWeights) *Astar {
	return &Astar{
		graph:     graph,
		weights:   weights,
		gScore:    make(map[da.Index]float64),
		cameFrom:  make(map[da.Index]da.Index),
		pq:        da.NewFourAryHeap[da.AstarQueryKey](),
		inFringe:  make(map[da.Index]*da.PriorityQueueNode[da.AstarQueryKey]),
		pathStats: make(map[da.Index]edgeStats),
	}
}

func (as *Astar) edgeCost(e *da.OutEdge) float64 {
	safetyPenalty := (pkg.MAX_SAFETY_SCORE - e.GetSafetyScore()) / pkg.MAX_SAFETY_SCORE
	return as.weights.Combine(e.GetLengthMeters(), e.TravelTimeSecond(),
		safetyPenalty, e.GetTrafficLevel().Penalty())
}

// heuristic admissible remaining-cost lower bound toward target.
func (as *Astar) heuristic(v, target da.Index) float64 {
	distMeters := geo.HaversineMeters(as.graph.GetVertexCoordinate(v), as.graph.GetVertexCoordinate(target))
	freeFlowSecond := distMeters / (pkg.FREE_FLOW_SPEED_KMH / 3.6)
	return as.weights.Combine(distMeters, freeFlowSecond, 0, 0)
}

// ShortestPath search from source to target. returns ErrPathNotFound when
// the frontier empties, and the best partial path flagged approximate when
// ctx expires mid-search.
func (as *Astar) ShortestPath(ctx context.Context, source, target da.Index) (*Path, error) {
	as.gScore[source] = 0
	as.pathStats[source] = edgeStats{minSafety: pkg.MAX_SAFETY_SCORE}

	sourceNode := da.NewPriorityQueueNode(as.heuristic(source, target),
		da.NewAstarQueryKey(source, pkg.MAX_SAFETY_SCORE))
	as.pq.Insert(sourceNode)
	as.inFringe[source] = sourceNode

	closestToGoal := source
	closestH := as.heuristic(source, target)

	for !as.pq.IsEmpty() {
		if as.numSettledNodes%cancelCheckInterval == 0 && util.StopConcurrentOperation(ctx) {
			// deadline hit: surface the best partial toward the goal
			partial := as.reconstruct(source, closestToGoal)
			partial.approximate = true
			return partial, nil
		}

		queryKey, _ := as.pq.ExtractMin()
		uItem := queryKey.GetItem()
		uId := uItem.GetNode()
		delete(as.inFringe, uId)
		as.numSettledNodes++

		if uId == target {
			return as.reconstruct(source, target), nil
		}

		h := as.heuristic(uId, target)
		if h < closestH {
			closestH = h
			closestToGoal = uId
		}

		as.graph.ForOutEdgesOf(uId, func(e *da.OutEdge) {
			vId := e.GetHead()
			if vId == uId {
				return
			}

			newG := as.gScore[uId] + as.edgeCost(e)
			if newG >= pkg.INF_WEIGHT {
				return
			}

			oldG, visited := as.gScore[vId]
			if visited && newG >= oldG {
				return
			}

			as.gScore[vId] = newG
			as.cameFrom[vId] = uId
			as.pathStats[vId] = as.accumulate(as.pathStats[uId], e)

			// tiny safety bonus orders equal-f entries toward the safer edge
			priority := newG + as.heuristic(vId, target) - safetyTieBreakScale*e.GetSafetyScore()

			if node, inQueue := as.inFringe[vId]; inQueue {
				if err := as.pq.DecreaseKey(node, priority); err != nil {
					// rank went up (different tie-break term): reinsert
					fresh := da.NewPriorityQueueNode(priority, da.NewAstarQueryKey(vId, e.GetSafetyScore()))
					as.pq.Insert(fresh)
					as.inFringe[vId] = fresh
				}
			} else {
				node := da.NewPriorityQueueNode(priority, da.NewAstarQueryKey(vId, e.GetSafetyScore()))
				as.pq.Insert(node)
				as.inFringe[vId] = node
			}
		})
	}

	return nil, util.WrapErrorf(nil, util.ErrPathNotFound,
		"no path from vertex %d to vertex %d", source, target)
}

func (as *Astar) accumulate(prev edgeStats, e *da.OutEdge) edgeStats {
	next := prev
	next.distanceMeters += e.GetLengthMeters()
	next.durationSecond += e.TravelTimeSecond()
	next.safetySum += e.GetSafetyScore()
	next.edgeCount++
	if e.GetSafetyScore() < next.minSafety {
		next.minSafety = e.GetSafetyScore()
	}
	return next
}

func (as *Astar) reconstruct(source, target da.Index) *Path {
	p := newPath()

	vertices := []da.Index{target}
	cur := target
	for cur != source {
		prev, ok := as.cameFrom[cur]
		if !ok {
			break
		}
		vertices = append(vertices, prev)
		cur = prev
	}
	vertices = util.ReverseG(vertices)

	p.coords = make([]geo.Coordinate, 0, len(vertices))
	for _, v := range vertices {
		p.coords = append(p.coords, as.graph.GetVertexCoordinate(v))
	}

	stats := as.pathStats[target]
	p.distanceMeters = stats.distanceMeters
	p.durationSecond = stats.durationSecond
	p.minSafety = stats.minSafety
	if stats.edgeCount > 0 {
		p.avgSafety = stats.safetySum / float64(stats.edgeCount)
	}
	p.cost = as.gScore[target]
	return p
}

const (
	cancelCheckInterval = 64
	safetyTieBreakScale = 1e-9
)
