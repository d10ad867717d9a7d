package routing

import (
	"context"
	"errors"
	"testing"

	"github.com/lintang-b-s/saferoutex/pkg"
	da "github.com/lintang-b-s/saferoutex/pkg/datastructure"
	"github.com/lintang-b-s/saferoutex/pkg/geo"
	"github.com/lintang-b-s/saferoutex/pkg/util"
)

func gridArena() *da.Graph {
	return da.NewGridGraph(geo.NewCoordinate(-7.80, 110.35), 10, 10, 0.5, 30)
}

func balancedWeights() da.ObjectiveWeights {
	return da.NewObjectiveWeights(0.25, 0.25, 0.25, 0.25)
}

func TestShortestPathOnGrid(t *testing.T) {
	graph := gridArena()
	source := da.Index(0)
	target := da.Index(graph.NumberOfVertices() - 1)

	path, err := NewAstar(graph, balancedWeights()).ShortestPath(context.Background(), source, target)
	if err != nil {
		t.Fatalf("grid search failed: %v", err)
	}
	if path.IsApproximate() {
		t.Error("uninterrupted search must not be approximate")
	}
	if len(path.GetCoords()) < 2 {
		t.Fatalf("path has %d coords", len(path.GetCoords()))
	}

	first := path.GetCoords()[0]
	last := path.GetCoords()[len(path.GetCoords())-1]
	if first != graph.GetVertexCoordinate(source) || last != graph.GetVertexCoordinate(target) {
		t.Error("path must start at source and end at target")
	}

	// no path can be shorter than the straight line
	straight := geo.HaversineMeters(graph.GetVertexCoordinate(source), graph.GetVertexCoordinate(target))
	if path.GetDistanceMeters() < straight-1.0 {
		t.Errorf("path distance %f below straight-line %f", path.GetDistanceMeters(), straight)
	}
	if path.GetMinSafety() > path.GetAvgSafety()+1e-9 {
		t.Errorf("min safety %f above average %f", path.GetMinSafety(), path.GetAvgSafety())
	}
}

func TestShortestPathCostNeverBelowHeuristic(t *testing.T) {
	graph := gridArena()
	weights := balancedWeights()
	source := da.Index(3)
	target := da.Index(graph.NumberOfVertices() - 7)

	as := NewAstar(graph, weights)
	path, err := as.ShortestPath(context.Background(), source, target)
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}

	lowerBound := as.heuristic(source, target)
	if path.GetCost() < lowerBound-1e-6 {
		t.Errorf("optimal cost %f below admissible lower bound %f", path.GetCost(), lowerBound)
	}
}

func TestShortestPathDisconnected(t *testing.T) {
	// two separate islands
	coords := []geo.Coordinate{
		geo.NewCoordinate(0, 0), geo.NewCoordinate(0, 0.001),
		geo.NewCoordinate(1, 1), geo.NewCoordinate(1, 1.001),
	}
	edges := []da.OutEdge{
		da.NewOutEdge(0, 0, 1, 110, 30, 100, pkg.TRAFFIC_FREE_FLOW),
		da.NewOutEdge(1, 1, 0, 110, 30, 100, pkg.TRAFFIC_FREE_FLOW),
		da.NewOutEdge(2, 2, 3, 110, 30, 100, pkg.TRAFFIC_FREE_FLOW),
		da.NewOutEdge(3, 3, 2, 110, 30, 100, pkg.TRAFFIC_FREE_FLOW),
	}
	graph := da.NewGraph(coords, edges)

	_, err := NewAstar(graph, balancedWeights()).ShortestPath(context.Background(), 0, 2)
	if err == nil {
		t.Fatal("disconnected search must fail")
	}
	if !errors.Is(err, util.ErrPathNotFound) {
		t.Errorf("expected ErrPathNotFound, got %v", err)
	}
}

func TestShortestPathCancelledReturnsPartial(t *testing.T) {
	graph := gridArena()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	path, err := NewAstar(graph, balancedWeights()).ShortestPath(ctx, 0,
		da.Index(graph.NumberOfVertices()-1))
	if err != nil {
		t.Fatalf("cancelled search should return its best partial, got error %v", err)
	}
	if !path.IsApproximate() {
		t.Error("partial result must be flagged approximate")
	}
}

func TestSafetyWeightedSearchAvoidsUnsafeEdges(t *testing.T) {
	// diamond: two same-length routes from 0 to 3, one through low-safety edges
	coords := []geo.Coordinate{
		geo.NewCoordinate(0, 0),
		geo.NewCoordinate(0.001, 0.001),
		geo.NewCoordinate(-0.001, 0.001),
		geo.NewCoordinate(0, 0.002),
	}
	edges := []da.OutEdge{
		da.NewOutEdge(0, 0, 1, 200, 30, 20, pkg.TRAFFIC_FREE_FLOW),
		da.NewOutEdge(1, 0, 2, 200, 30, 95, pkg.TRAFFIC_FREE_FLOW),
		da.NewOutEdge(2, 1, 3, 200, 30, 20, pkg.TRAFFIC_FREE_FLOW),
		da.NewOutEdge(3, 2, 3, 200, 30, 95, pkg.TRAFFIC_FREE_FLOW),
	}
	graph := da.NewGraph(coords, edges)

	// safety-weighted search must avoid the unsafe side entirely
	weights := da.NewObjectiveWeights(0, 0, 1, 0)
	path, err := NewAstar(graph, weights).ShortestPath(context.Background(), 0, 3)
	if err != nil {
		t.Fatalf("diamond search failed: %v", err)
	}
	if path.GetMinSafety() < 90 {
		t.Errorf("safety-weighted path went through unsafe edge, min safety %f", path.GetMinSafety())
	}
}
