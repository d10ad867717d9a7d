package datastructure

import (
	"testing"

	"github.com/lintang-b-s/saferoutex/pkg"
)

func TestObjectiveWeightsFromList(t *testing.T) {
	testCases := []struct {
		name       string
		objectives []pkg.Objective
		want       ObjectiveWeights
	}{
		{
			name:       "empty list gets balanced default",
			objectives: nil,
			want:       NewObjectiveWeights(0.25, 0.25, 0.25, 0.25),
		},
		{
			name:       "single objective takes full weight",
			objectives: []pkg.Objective{pkg.OBJECTIVE_SAFETY},
			want:       NewObjectiveWeights(0, 0, 1, 0),
		},
		{
			name:       "two objectives split evenly",
			objectives: []pkg.Objective{pkg.OBJECTIVE_TIME, pkg.OBJECTIVE_DISTANCE},
			want:       NewObjectiveWeights(0.5, 0.5, 0, 0),
		},
	}

	for _, tt := range testCases {
		t.Run(tt.name, func(t *testing.T) {
			if got := NewObjectiveWeightsFromList(tt.objectives); got != tt.want {
				t.Errorf("weights %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestCombineMonotone(t *testing.T) {
	w := NewObjectiveWeights(0.25, 0.25, 0.25, 0.25)

	base := w.Combine(1000, 120, 0.1, 0)
	if w.Combine(2000, 120, 0.1, 0) <= base {
		t.Error("longer distance must cost more")
	}
	if w.Combine(1000, 240, 0.1, 0) <= base {
		t.Error("longer duration must cost more")
	}
	if w.Combine(1000, 120, 0.5, 0) <= base {
		t.Error("higher safety penalty must cost more")
	}
	if w.Combine(1000, 120, 0.1, 0.7) <= base {
		t.Error("heavier traffic must cost more")
	}
	if w.Combine(0, 0, 0, 0) != 0 {
		t.Error("zero inputs must combine to zero")
	}
}

func TestCostMatrixDegradedPropagation(t *testing.T) {
	w := NewObjectiveWeights(0.25, 0.25, 0.25, 0.25)
	m := NewCostMatrix(2, w)

	m.Set(0, 1, NewCostCell(1000, 120, 0, 0, 1, pkg.TRAFFIC_FREE_FLOW, "", false))
	if m.IsDegraded() {
		t.Error("healthy cell must not degrade the matrix")
	}
	m.Set(1, 0, NewCostCell(1000, 120, 0, 0, 1, pkg.TRAFFIC_FREE_FLOW, "", true))
	if !m.IsDegraded() {
		t.Error("one degraded cell degrades the whole matrix")
	}
}

func TestCostMatrixReweight(t *testing.T) {
	timeOnly := NewObjectiveWeights(0, 1, 0, 0)
	distOnly := NewObjectiveWeights(1, 0, 0, 0)

	m := NewCostMatrix(2, timeOnly)
	// short but slow leg
	m.Set(0, 1, NewCostCell(500, 600, 0, 0, timeOnly.Combine(500, 600, 0, 0),
		pkg.TRAFFIC_FREE_FLOW, "poly", false))

	r := m.Reweight(distOnly)
	if r.GetCombined(0, 1) != distOnly.Combine(500, 600, 0, 0) {
		t.Errorf("reweighted combined %f", r.GetCombined(0, 1))
	}
	if r.Get(0, 1).GetPolyline() != "poly" {
		t.Error("reweighting must keep the raw cell data")
	}
	if m.GetCombined(0, 1) != timeOnly.Combine(500, 600, 0, 0) {
		t.Error("reweighting must not mutate the source matrix")
	}
}

func TestCellSafetyScoreFromPenalty(t *testing.T) {
	cell := NewCostCell(1000, 120, 0.35, 0, 1, pkg.TRAFFIC_FREE_FLOW, "", false)
	if got := cell.GetSafetyScore(); got != 65 {
		t.Errorf("safety score %f, want 65", got)
	}
}
