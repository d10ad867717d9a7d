package datastructure

import (
	"github.com/lintang-b-s/saferoutex/pkg"
	"github.com/lintang-b-s/saferoutex/pkg/geo"
)

// OutEdge directed road edge stored in a flat arena. edges reference vertices
// by index, never by pointer, so route snapshots stay cheap to copy.
type OutEdge struct {
	edgeId       Index
	tail         Index
	head         Index
	lengthMeters float64
	speedKmh     float64
	safetyScore  float64
	trafficLevel pkg.TrafficLevel
}

func NewOutEdge(edgeId, tail, head Index, lengthMeters, speedKmh, safetyScore float64,
	trafficLevel pkg.TrafficLevel) OutEdge {
	return OutEdge{
		edgeId:       edgeId,
		tail:         tail,
		head:         head,
		lengthMeters: lengthMeters,
		speedKmh:     speedKmh,
		safetyScore:  safetyScore,
		trafficLevel: trafficLevel,
	}
}

func (e *OutEdge) GetEdgeId() Index {
	return e.edgeId
}

func (e *OutEdge) GetTail() Index {
	return e.tail
}

func (e *OutEdge) GetHead() Index {
	return e.head
}

func (e *OutEdge) GetLengthMeters() float64 {
	return e.lengthMeters
}

func (e *OutEdge) GetSpeedKmh() float64 {
	return e.speedKmh
}

func (e *OutEdge) GetSafetyScore() float64 {
	return e.safetyScore
}

func (e *OutEdge) GetTrafficLevel() pkg.TrafficLevel {
	return e.trafficLevel
}

// TrafficMultiplier duration multiplier for the edge traffic level.
func (e *OutEdge) TrafficMultiplier() float64 {
	switch e.trafficLevel {
	case pkg.TRAFFIC_FREE_FLOW:
		return 1.0
	case pkg.TRAFFIC_LIGHT:
		return 1.15
	case pkg.TRAFFIC_MODERATE:
		return 1.35
	case pkg.TRAFFIC_HEAVY:
		return 1.7
	default:
		return 2.2
	}
}

// TravelTimeSecond traffic-adjusted edge traversal time.
func (e *OutEdge) TravelTimeSecond() float64 {
	if e.speedKmh <= 0 {
		return pkg.INF_WEIGHT
	}
	freeFlow := e.lengthMeters / (e.speedKmh / 3.6)
	return freeFlow * e.TrafficMultiplier()
}

// Graph flat vertex/edge arena with CSR adjacency offsets. built once from a
// road snapshot, read-only during searches.
type Graph struct {
	coords   []geo.Coordinate
	edges    []OutEdge // grouped by tail
	firstOut []Index   // len = numVertices+1
	built    bool
}

func NewGraph(coords []geo.Coordinate, edges []OutEdge) *Graph {
	g := &Graph{
		coords: coords,
		edges:  edges,
	}
	g.buildOffsets()
	return g
}

func (g *Graph) buildOffsets() {
	n := len(g.coords)
	counts := make([]Index, n+1)
	for _, e := range g.edges {
		counts[e.tail+1]++
	}
	for i := 1; i <= n; i++ {
		counts[i] += counts[i-1]
	}

	sorted := make([]OutEdge, len(g.edges))
	next := make([]Index, n)
	for _, e := range g.edges {
		pos := counts[e.tail] + next[e.tail]
		sorted[pos] = e
		next[e.tail]++
	}

	g.edges = sorted
	g.firstOut = counts
	g.built = true
}

func (g *Graph) NumberOfVertices() int {
	return len(g.coords)
}

func (g *Graph) NumberOfEdges() int {
	return len(g.edges)
}

func (g *Graph) GetVertexCoordinate(v Index) geo.Coordinate {
	return g.coords[v]
}

func (g *Graph) GetOutEdge(id Index) *OutEdge {
	return &g.edges[id]
}

// ForOutEdgesOf iterate outgoing edges of vertex u.
func (g *Graph) ForOutEdgesOf(u Index, fn func(e *OutEdge)) {
	for i := g.firstOut[u]; i < g.firstOut[u+1]; i++ {
		fn(&g.edges[i])
	}
}

// NewGridGraph synthetic rows x cols road grid around origin with cellKm
// spacing, bidirectional edges. used by the engine when no road snapshot is
// configured and by tests.
func NewGridGraph(origin geo.Coordinate, rows, cols int, cellKm, speedKmh float64) *Graph {
	coords := make([]geo.Coordinate, 0, rows*cols)
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			lat, lon := geo.GetDestinationPoint(origin.Lat, origin.Lon, 0, float64(r)*cellKm)
			lat, lon = geo.GetDestinationPoint(lat, lon, 90, float64(c)*cellKm)
			coords = append(coords, geo.NewCoordinate(lat, lon))
		}
	}

	vid := func(r, c int) Index { return Index(r*cols + c) }

	edges := make([]OutEdge, 0, rows*cols*4)
	eid := Index(0)
	addPair := func(a, b Index) {
		length := geo.HaversineMeters(coords[a], coords[b])
		edges = append(edges, NewOutEdge(eid, a, b, length, speedKmh, pkg.MAX_SAFETY_SCORE, pkg.TRAFFIC_FREE_FLOW))
		eid++
		edges = append(edges, NewOutEdge(eid, b, a, length, speedKmh, pkg.MAX_SAFETY_SCORE, pkg.TRAFFIC_FREE_FLOW))
		eid++
	}

	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			if c+1 < cols {
				addPair(vid(r, c), vid(r, c+1))
			}
			if r+1 < rows {
				addPair(vid(r, c), vid(r+1, c))
			}
		}
	}

	return NewGraph(coords, edges)
}
