package sequencer

import (
	"time"

	"github.com/lintang-b-s/saferoutex/pkg"
	"github.com/lintang-b-s/saferoutex/pkg/datastructure"
)

// Sequencer orders stops against a prebuilt cost matrix: greedy
// nearest-neighbor baseline, 2-opt/or-opt refinement, exact dynamic program
// for small instances, then a priority pull pass bounded by the cost
// tolerance. deterministic for identical matrices.
type Sequencer struct {
	priorityTolerance float64
	maxIterations     int
	exactThreshold    int
}

func New(priorityTolerance float64, maxIterations, exactThreshold int) *Sequencer {
	if maxIterations <= 0 {
		maxIterations = 200
	}
	return &Sequencer{
		priorityTolerance: priorityTolerance,
		maxIterations:     maxIterations,
		exactThreshold:    exactThreshold,
	}
}

// Sequence visiting order of stops as indices into stops. matrix row/column
// of stop i is i+1, row 0 is the fixed start.
func (sq *Sequencer) Sequence(matrix *datastructure.CostMatrix, stops []datastructure.Stop) []int {
	n := len(stops)
	if n == 0 {
		return []int{}
	}
	if n == 1 {
		return []int{0}
	}

	var order []int
	if n <= sq.exactThreshold {
		order = solveExact(matrix, n)
	} else {
		order = greedyNearestNeighbor(matrix, n)
		order = sq.twoOpt(matrix, order)
		order = sq.orOpt(matrix, order)
	}

	order = sq.deadlinePull(matrix, stops, order)
	order = sq.priorityPull(matrix, stops, order)
	return order
}

// greedyNearestNeighbor cheapest next stop by combined cost, ties broken
// toward the lower stop index for determinism.
func greedyNearestNeighbor(matrix *datastructure.CostMatrix, n int) []int {
	visited := make([]bool, n)
	order := make([]int, 0, n)

	current := 0 // matrix index of the start
	for len(order) < n {
		best := -1
		bestCost := pkg.INF_WEIGHT
		for stop := 0; stop < n; stop++ {
			if visited[stop] {
				continue
			}
			cost := matrix.GetCombined(current, stop+1)
			if cost < bestCost {
				bestCost = cost
				best = stop
			}
		}

		visited[best] = true
		order = append(order, best)
		current = best + 1
	}

	return order
}

// RouteCost total combined cost of visiting order from the start.
func RouteCost(matrix *datastructure.CostMatrix, order []int) float64 {
	cost := 0.0
	current := 0
	for _, stop := range order {
		cost += matrix.GetCombined(current, stop+1)
		current = stop + 1
	}
	return cost
}

// MinSegmentSafety lowest per-segment safety score along the order. used as
// the tie-break so one dangerous leg is never masked by many safe ones.
func MinSegmentSafety(matrix *datastructure.CostMatrix, order []int) float64 {
	minSafety := pkg.MAX_SAFETY_SCORE
	current := 0
	for _, stop := range order {
		s := matrix.Get(current, stop+1).GetSafetyScore()
		if s < minSafety {
			minSafety = s
		}
		current = stop + 1
	}
	return minSafety
}

// betterOrder true when the candidate ordering wins: lower cost, or equal
// cost with a higher minimum segment safety.
func betterOrder(matrix *datastructure.CostMatrix, candidate []int, candidateCost float64,
	incumbentCost, incumbentMinSafety float64) bool {
	if candidateCost < incumbentCost-costEpsilon {
		return true
	}
	if candidateCost <= incumbentCost+costEpsilon {
		return MinSegmentSafety(matrix, candidate) > incumbentMinSafety+safetyEpsilon
	}
	return false
}

const (
	costEpsilon   = 1e-9
	safetyEpsilon = 1e-9
)

// deadlinePull bubble time-windowed stops ahead of stops with a later window
// or no window at all. windows are a soft constraint like priority: each swap
// is accepted only while the total cost stays within the tolerance budget,
// and a windowed stop never overtakes a higher-priority one.
func (sq *Sequencer) deadlinePull(matrix *datastructure.CostMatrix,
	stops []datastructure.Stop, order []int) []int {

	baseCost := RouteCost(matrix, order)
	budget := baseCost * (1.0 + sq.priorityTolerance)

	improved := true
	for iter := 0; improved && iter < sq.maxIterations; iter++ {
		improved = false
		for i := 0; i+1 < len(order); i++ {
			a, b := order[i], order[i+1]
			bEnd, bWindowed := windowDeadline(stops[b])
			if !bWindowed {
				continue
			}
			if aEnd, aWindowed := windowDeadline(stops[a]); aWindowed && !aEnd.After(bEnd) {
				continue
			}
			if stops[a].GetPriority() > stops[b].GetPriority() {
				continue
			}

			order[i], order[i+1] = order[i+1], order[i]
			if RouteCost(matrix, order) <= budget+costEpsilon {
				improved = true
			} else {
				order[i], order[i+1] = order[i+1], order[i]
			}
		}
	}

	return order
}

func windowDeadline(s datastructure.Stop) (time.Time, bool) {
	w := s.GetWindow()
	if w == nil {
		return time.Time{}, false
	}
	return w.GetEnd(), true
}

// priorityPull bubble higher-priority stops toward the front of the order,
// accepting each swap only while the total cost stays within the configured
// tolerance of the cost-optimal baseline. with tolerance zero, priority never
// overrides cost.
func (sq *Sequencer) priorityPull(matrix *datastructure.CostMatrix,
	stops []datastructure.Stop, order []int) []int {

	baseCost := RouteCost(matrix, order)
	budget := baseCost * (1.0 + sq.priorityTolerance)

	improved := true
	for iter := 0; improved && iter < sq.maxIterations; iter++ {
		improved = false
		for i := 0; i+1 < len(order); i++ {
			a, b := order[i], order[i+1]
			if stops[b].GetPriority() <= stops[a].GetPriority() {
				continue
			}

			order[i], order[i+1] = order[i+1], order[i]
			if RouteCost(matrix, order) <= budget+costEpsilon {
				improved = true
			} else {
				order[i], order[i+1] = order[i+1], order[i]
			}
		}
	}

	return order
}
