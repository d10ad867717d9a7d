package spatialindex

import (
	"math"

	"github.com/lintang-b-s/saferoutex/pkg"
	"github.com/lintang-b-s/saferoutex/pkg/datastructure"
	"github.com/lintang-b-s/saferoutex/pkg/geo"
	"github.com/tidwall/rtree"
	"go.uber.org/zap"
)

type Rtree struct {
	tr *rtree.RTreeG[datastructure.Index]
}

func NewRtree() *Rtree {
	var tr rtree.RTreeG[datastructure.Index]
	return &Rtree{
		tr: &tr,
	}
}

// Build. index every graph vertex with a leaf bounding box of radius
// boundingBoxRadius (in km), so snapping queries stay local.
func (rt *Rtree) Build(graph *datastructure.Graph, boundingBoxRadius float64, log *zap.Logger) {
	log.Info("Building R-tree spatial index...")

	for v := 0; v < graph.NumberOfVertices(); v++ {
		c := graph.GetVertexCoordinate(datastructure.Index(v))

		lowerLat, lowerLon := geo.GetDestinationPoint(c.Lat, c.Lon, 225, boundingBoxRadius)
		upperLat, upperLon := geo.GetDestinationPoint(c.Lat, c.Lon, 45, boundingBoxRadius)

		minLat := math.Min(lowerLat, upperLat)
		minLon := math.Min(lowerLon, upperLon)
		maxLat := math.Max(lowerLat, upperLat)
		maxLon := math.Max(lowerLon, upperLon)

		rt.tr.Insert([2]float64{minLon, minLat}, [2]float64{maxLon, maxLat},
			datastructure.Index(v))
	}

	log.Info("R-tree spatial index built.", zap.Int("vertices", graph.NumberOfVertices()))
}

// SnapToVertex nearest indexed vertex to the query coordinate within
// searchRadius (km). found=false when nothing is indexed nearby.
func (rt *Rtree) SnapToVertex(graph *datastructure.Graph, c geo.Coordinate,
	searchRadius float64) (datastructure.Index, bool) {

	lowerLat, lowerLon := geo.GetDestinationPoint(c.Lat, c.Lon, 225, searchRadius)
	upperLat, upperLon := geo.GetDestinationPoint(c.Lat, c.Lon, 45, searchRadius)

	best := datastructure.INVALID_VERTEX_ID
	bestDist := pkg.INF_WEIGHT

	rt.tr.Search([2]float64{math.Min(lowerLon, upperLon), math.Min(lowerLat, upperLat)},
		[2]float64{math.Max(lowerLon, upperLon), math.Max(lowerLat, upperLat)},
		func(min, max [2]float64, v datastructure.Index) bool {
			d := geo.HaversineMeters(c, graph.GetVertexCoordinate(v))
			if d < bestDist {
				bestDist = d
				best = v
			}
			return true
		})

	if best == datastructure.INVALID_VERTEX_ID {
		return 0, false
	}
	return best, true
}
