package datastructure

import (
	"github.com/lintang-b-s/saferoutex/pkg"
)

// ObjectiveWeights normalized weight per objective. weights of unrequested
// objectives are zero, requested objectives split the weight evenly unless
// the caller overrides them.
type ObjectiveWeights struct {
	distance float64
	time     float64
	safety   float64
	fuel     float64
}

func NewObjectiveWeights(distance, time, safety, fuel float64) ObjectiveWeights {
	return ObjectiveWeights{distance: distance, time: time, safety: safety, fuel: fuel}
}

// NewObjectiveWeightsFromList even split across the requested objectives.
func NewObjectiveWeightsFromList(objectives []pkg.Objective) ObjectiveWeights {
	if len(objectives) == 0 {
		// balanced default
		return NewObjectiveWeights(0.25, 0.25, 0.25, 0.25)
	}
	share := 1.0 / float64(len(objectives))
	w := ObjectiveWeights{}
	for _, o := range objectives {
		switch o {
		case pkg.OBJECTIVE_DISTANCE:
			w.distance += share
		case pkg.OBJECTIVE_TIME:
			w.time += share
		case pkg.OBJECTIVE_SAFETY:
			w.safety += share
		case pkg.OBJECTIVE_FUEL:
			w.fuel += share
		}
	}
	return w
}

func (w ObjectiveWeights) GetDistance() float64 {
	return w.distance
}

func (w ObjectiveWeights) GetTime() float64 {
	return w.time
}

func (w ObjectiveWeights) GetSafety() float64 {
	return w.safety
}

func (w ObjectiveWeights) GetFuel() float64 {
	return w.fuel
}

// Combine collapse per-objective costs into one scalar. distance in meter,
// duration in second, safetyPenalty & trafficPenalty in [0,1].
func (w ObjectiveWeights) Combine(distanceM, durationS, safetyPenalty, trafficPenalty float64) float64 {
	// scale distance/duration into comparable magnitudes (km, minute)
	fuelLiter := distanceM / 1000.0 * pkg.FUEL_CONSUMPTION_PER_KM
	return w.distance*(distanceM/1000.0) +
		w.time*(durationS/60.0) +
		w.safety*(safetyPenalty*10.0+trafficPenalty) +
		w.fuel*fuelLiter*10.0
}

// CostCell directed pairwise costs between two stops.
type CostCell struct {
	distanceMeters float64
	durationSecond float64
	safetyPenalty  float64
	trafficPenalty float64
	combined       float64
	trafficLevel   pkg.TrafficLevel
	polyline       string
	degraded       bool
}

func NewCostCell(distanceMeters, durationSecond, safetyPenalty, trafficPenalty, combined float64,
	trafficLevel pkg.TrafficLevel, polyline string, degraded bool) CostCell {
	return CostCell{
		distanceMeters: distanceMeters,
		durationSecond: durationSecond,
		safetyPenalty:  safetyPenalty,
		trafficPenalty: trafficPenalty,
		combined:       combined,
		trafficLevel:   trafficLevel,
		polyline:       polyline,
		degraded:       degraded,
	}
}

func (c CostCell) GetDistanceMeters() float64 {
	return c.distanceMeters
}

func (c CostCell) GetDurationSecond() float64 {
	return c.durationSecond
}

func (c CostCell) GetSafetyPenalty() float64 {
	return c.safetyPenalty
}

func (c CostCell) GetSafetyScore() float64 {
	return pkg.MAX_SAFETY_SCORE - c.safetyPenalty*pkg.MAX_SAFETY_SCORE
}

func (c CostCell) GetTrafficPenalty() float64 {
	return c.trafficPenalty
}

func (c CostCell) GetCombined() float64 {
	return c.combined
}

func (c CostCell) GetTrafficLevel() pkg.TrafficLevel {
	return c.trafficLevel
}

func (c CostCell) GetPolyline() string {
	return c.polyline
}

func (c CostCell) IsDegraded() bool {
	return c.degraded
}

// CostMatrix directed N x N cost table over start + stops. index 0 is always
// the start position, stop i maps to row/column i+1. never assumed symmetric.
type CostMatrix struct {
	n        int
	cells    []CostCell // row-major, n*n
	weights  ObjectiveWeights
	degraded bool
}

func NewCostMatrix(n int, weights ObjectiveWeights) *CostMatrix {
	return &CostMatrix{
		n:       n,
		cells:   make([]CostCell, n*n),
		weights: weights,
	}
}

func (m *CostMatrix) Dim() int {
	return m.n
}

func (m *CostMatrix) GetWeights() ObjectiveWeights {
	return m.weights
}

func (m *CostMatrix) Set(from, to int, cell CostCell) {
	m.cells[from*m.n+to] = cell
	if cell.degraded {
		m.degraded = true
	}
}

func (m *CostMatrix) Get(from, to int) CostCell {
	return m.cells[from*m.n+to]
}

func (m *CostMatrix) GetCombined(from, to int) float64 {
	if from == to {
		return 0
	}
	return m.cells[from*m.n+to].combined
}

// IsDegraded true when at least one cell fell back to haversine estimates.
func (m *CostMatrix) IsDegraded() bool {
	return m.degraded
}

// Reweight re-price every cell under a different objective weighting. raw
// distance/duration/penalty components are reused, no provider round trips.
func (m *CostMatrix) Reweight(weights ObjectiveWeights) *CostMatrix {
	out := NewCostMatrix(m.n, weights)
	for from := 0; from < m.n; from++ {
		for to := 0; to < m.n; to++ {
			if from == to {
				continue
			}
			c := m.Get(from, to)
			c.combined = weights.Combine(c.distanceMeters, c.durationSecond,
				c.safetyPenalty, c.trafficPenalty)
			out.Set(from, to, c)
		}
	}
	return out
}
