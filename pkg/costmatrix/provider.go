package costmatrix

import (
	"context"
	"time"

	"github.com/lintang-b-s/saferoutex/pkg"
	"github.com/lintang-b-s/saferoutex/pkg/geo"
)

// DistanceDuration pairwise answer of the geospatial cost provider.
type DistanceDuration struct {
	DistanceMeters float64
	DurationSecond float64
	Polyline       string
	TrafficLevel   pkg.TrafficLevel
}

// GeoCostProvider external pairwise distance/duration/polyline source.
type GeoCostProvider interface {
	GetDistanceDuration(ctx context.Context, origin, dest geo.Coordinate,
		departAt time.Time) (DistanceDuration, error)
}

// HaversineProvider local estimate used both as the default provider in
// development and as the degraded fallback when the real provider fails.
type HaversineProvider struct {
	speedKmh float64
}

func NewHaversineProvider(speedKmh float64) *HaversineProvider {
	if speedKmh <= 0 {
		speedKmh = pkg.DEFAULT_SPEED_KMH
	}
	return &HaversineProvider{speedKmh: speedKmh}
}

func (p *HaversineProvider) GetDistanceDuration(ctx context.Context, origin, dest geo.Coordinate,
	departAt time.Time) (DistanceDuration, error) {
	dist := geo.HaversineMeters(origin, dest)
	return DistanceDuration{
		DistanceMeters: dist,
		DurationSecond: geo.EstimateTravelTime(origin, dest, p.speedKmh),
		Polyline:       geo.PolylineFromCoords([]geo.Coordinate{origin, dest}),
		TrafficLevel:   pkg.TRAFFIC_FREE_FLOW,
	}, nil
}

// TrafficPenalty map a traffic level onto a [0,1] penalty.
func TrafficPenalty(level pkg.TrafficLevel) float64 {
	return level.Penalty()
}
