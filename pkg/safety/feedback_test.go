package safety

import (
	"math"
	"testing"
	"time"

	"github.com/lintang-b-s/saferoutex/pkg/geo"
)

func TestFeedbackValidation(t *testing.T) {
	store := NewFeedbackStore()

	if err := store.Append(FeedbackRecord{Rating: 0}); err == nil {
		t.Error("rating 0 must be rejected")
	}
	if err := store.Append(FeedbackRecord{Rating: 6}); err == nil {
		t.Error("rating 6 must be rejected")
	}
	if err := store.Append(FeedbackRecord{Rating: 3, Coord: geo.NewCoordinate(1, 1),
		Timestamp: time.Now()}); err != nil {
		t.Errorf("valid feedback rejected: %v", err)
	}
	if store.Len() != 1 {
		t.Errorf("expected 1 stored record, got %d", store.Len())
	}
}

func TestDecayWeightHalfLife(t *testing.T) {
	testCases := []struct {
		name string
		age  time.Duration
		want float64
	}{
		{name: "fresh", age: 0, want: 1.0},
		{name: "one half life", age: 30 * 24 * time.Hour, want: 0.5},
		{name: "two half lives", age: 60 * 24 * time.Hour, want: 0.25},
		{name: "clock skew clamps to fresh", age: -time.Hour, want: 1.0},
	}
	for _, tt := range testCases {
		t.Run(tt.name, func(t *testing.T) {
			if got := decayWeight(tt.age); math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("decayWeight(%v) = %f, want %f", tt.age, got, tt.want)
			}
		})
	}
}

func TestAggregateWeighsRecentFeedbackHigher(t *testing.T) {
	now := time.Now()
	coord := geo.NewCoordinate(-7.77, 110.37)

	store := NewFeedbackStore()
	// old glowing review vs fresh incident report in the same cell
	_ = store.Append(FeedbackRecord{Rating: 5, Coord: coord,
		Timestamp: now.AddDate(0, -6, 0)})
	_ = store.Append(FeedbackRecord{Rating: 1, IncidentType: "harassment", Coord: coord,
		Timestamp: now})

	agg := store.Aggregate(coord, now)
	if agg.MeanRating >= 3.0 {
		t.Errorf("decayed mean %f should lean toward the fresh low rating", agg.MeanRating)
	}
	if agg.IncidentRate <= 0.5 {
		t.Errorf("decayed incident rate %f should be dominated by the fresh incident", agg.IncidentRate)
	}
}

func TestAggregateEmptyCell(t *testing.T) {
	store := NewFeedbackStore()
	agg := store.Aggregate(geo.NewCoordinate(0, 0), time.Now())
	if agg.WeightedCount != 0 {
		t.Errorf("empty cell should aggregate to zero, got %+v", agg)
	}
}

func TestLabelFromFeedback(t *testing.T) {
	testCases := []struct {
		name   string
		record FeedbackRecord
		want   float64
	}{
		{name: "felt safe", record: FeedbackRecord{Rating: 5}, want: 100},
		{name: "neutral", record: FeedbackRecord{Rating: 3}, want: 60},
		{name: "incident drags label down", record: FeedbackRecord{Rating: 3, IncidentType: "theft"}, want: 30},
		{name: "worst case clamps at zero", record: FeedbackRecord{Rating: 1, IncidentType: "assault"}, want: 0},
	}
	for _, tt := range testCases {
		t.Run(tt.name, func(t *testing.T) {
			if got := LabelFromFeedback(tt.record); got != tt.want {
				t.Errorf("LabelFromFeedback = %f, want %f", got, tt.want)
			}
		})
	}
}
