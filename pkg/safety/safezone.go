package safety

import (
	"math"

	"github.com/lintang-b-s/saferoutex/pkg/geo"
	"github.com/tidwall/rtree"
)

// SafeZone known safe location (police station, hospital, 24h store, ...).
type SafeZone struct {
	Id    string
	Name  string
	Coord geo.Coordinate
}

// SafeZoneIndex r-tree over safe zones for nearest-distance and density
// queries. built once at startup, read-only afterwards.
type SafeZoneIndex struct {
	tr    *rtree.RTreeG[SafeZone]
	count int
}

func NewSafeZoneIndex(zones []SafeZone) *SafeZoneIndex {
	var tr rtree.RTreeG[SafeZone]
	for _, z := range zones {
		tr.Insert([2]float64{z.Coord.Lon, z.Coord.Lat}, [2]float64{z.Coord.Lon, z.Coord.Lat}, z)
	}
	return &SafeZoneIndex{tr: &tr, count: len(zones)}
}

// NearestDistanceKm distance to the closest safe zone. ok=false when the
// index is empty.
func (idx *SafeZoneIndex) NearestDistanceKm(coord geo.Coordinate) (float64, bool) {
	if idx.count == 0 {
		return 0, false
	}

	best := math.MaxFloat64
	idx.tr.Nearby(
		func(min, max [2]float64, data SafeZone, item bool) float64 {
			// squared degree distance is fine as a priority, the real
			// distance is computed on the visited zone below
			dx := min[0] - coord.Lon
			dy := min[1] - coord.Lat
			return dx*dx + dy*dy
		},
		func(min, max [2]float64, z SafeZone, dist float64) bool {
			best = geo.CalculateHaversineDistance(coord.Lat, coord.Lon, z.Coord.Lat, z.Coord.Lon)
			return false // first hit is the nearest
		})

	if best == math.MaxFloat64 {
		return 0, false
	}
	return best, true
}

// DensityWithin fraction of indexed zones within radiusKm, saturating at 5
// zones so one dense downtown block does not dominate the feature.
func (idx *SafeZoneIndex) DensityWithin(coord geo.Coordinate, radiusKm float64) float64 {
	if idx.count == 0 {
		return 0
	}

	latDelta := radiusKm / 111.0
	lonDelta := radiusKm / (111.0 * math.Cos(coord.Lat*math.Pi/180.0))

	within := 0
	idx.tr.Search(
		[2]float64{coord.Lon - lonDelta, coord.Lat - latDelta},
		[2]float64{coord.Lon + lonDelta, coord.Lat + latDelta},
		func(min, max [2]float64, z SafeZone) bool {
			if geo.CalculateHaversineDistance(coord.Lat, coord.Lon, z.Coord.Lat, z.Coord.Lon) <= radiusKm {
				within++
			}
			return true
		})

	return math.Min(1.0, float64(within)/5.0)
}
