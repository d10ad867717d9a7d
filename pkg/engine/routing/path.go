package routing

import (
	"github.com/lintang-b-s/saferoutex/pkg"
	"github.com/lintang-b-s/saferoutex/pkg/geo"
)

// Path turn-level result of one A* search between consecutive stops.
type Path struct {
	coords         []geo.Coordinate
	distanceMeters float64
	durationSecond float64
	minSafety      float64
	avgSafety      float64
	cost           float64
	approximate    bool
}

func newPath() *Path {
	return &Path{minSafety: pkg.MAX_SAFETY_SCORE, avgSafety: pkg.MAX_SAFETY_SCORE}
}

func (p *Path) GetCoords() []geo.Coordinate {
	return p.coords
}

func (p *Path) GetDistanceMeters() float64 {
	return p.distanceMeters
}

func (p *Path) GetDurationSecond() float64 {
	return p.durationSecond
}

func (p *Path) GetMinSafety() float64 {
	return p.minSafety
}

func (p *Path) GetAvgSafety() float64 {
	return p.avgSafety
}

func (p *Path) GetCost() float64 {
	return p.cost
}

// IsApproximate true when the search timed out and returned its best partial.
func (p *Path) IsApproximate() bool {
	return p.approximate
}

func (p *Path) Polyline() string {
	return geo.PolylineFromCoords(p.coords)
}
