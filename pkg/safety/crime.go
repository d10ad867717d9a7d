package safety

import (
	"math"
	"sync"
	"time"

	"github.com/lintang-b-s/saferoutex/pkg/geo"
	"github.com/lintang-b-s/saferoutex/pkg/util"
)

// CrimeRecord one incident from the read-only crime data store.
type CrimeRecord struct {
	Coord      geo.Coordinate
	Severity   float64 // [0,1]
	OccurredAt time.Time
}

// cell ~1.1km grid key, crime and feedback aggregates share it.
type cellKey struct {
	lat int32
	lon int32
}

const cellSizeDeg = 0.01

func cellOf(c geo.Coordinate) cellKey {
	return cellKey{
		lat: int32(math.Floor(c.Lat / cellSizeDeg)),
		lon: int32(math.Floor(c.Lon / cellSizeDeg)),
	}
}

type crimeCell struct {
	count       int
	severitySum float64
}

// CrimeSnapshot periodically refreshed read-only view of the crime store,
// aggregated per grid cell. Refresh swaps the whole cell map so readers never
// observe a half-built snapshot.
type CrimeSnapshot struct {
	mu       sync.RWMutex
	cells    map[cellKey]crimeCell
	maxCount int
}

func NewCrimeSnapshot(records []CrimeRecord) *CrimeSnapshot {
	cs := &CrimeSnapshot{cells: make(map[cellKey]crimeCell)}
	cs.Refresh(records)
	return cs
}

func (cs *CrimeSnapshot) Refresh(records []CrimeRecord) {
	cells := make(map[cellKey]crimeCell, len(records))
	maxCount := 0
	for _, r := range records {
		key := cellOf(r.Coord)
		cell := cells[key]
		cell.count++
		cell.severitySum += util.Clamp(r.Severity, 0, 1)
		cells[key] = cell
		if cell.count > maxCount {
			maxCount = cell.count
		}
	}

	cs.mu.Lock()
	cs.cells = cells
	cs.maxCount = maxCount
	cs.mu.Unlock()
}

// CellStats density (count normalized against the busiest cell) and mean
// severity for the cell containing coord. ok=false when the cell has no data.
func (cs *CrimeSnapshot) CellStats(coord geo.Coordinate) (density, severity float64, ok bool) {
	cs.mu.RLock()
	defer cs.mu.RUnlock()

	cell, found := cs.cells[cellOf(coord)]
	if !found || cs.maxCount == 0 {
		return 0, 0, false
	}
	return float64(cell.count) / float64(cs.maxCount), cell.severitySum / float64(cell.count), true
}

// Urbanization proxy from incident coverage of the 3x3 neighborhood: dense
// urban areas report from more surrounding cells.
func (cs *CrimeSnapshot) Urbanization(coord geo.Coordinate) float64 {
	cs.mu.RLock()
	defer cs.mu.RUnlock()

	center := cellOf(coord)
	covered := 0
	for dlat := int32(-1); dlat <= 1; dlat++ {
		for dlon := int32(-1); dlon <= 1; dlon++ {
			if _, ok := cs.cells[cellKey{lat: center.lat + dlat, lon: center.lon + dlon}]; ok {
				covered++
			}
		}
	}
	return float64(covered) / 9.0
}
