package datastructure

import (
	"time"

	"github.com/lintang-b-s/saferoutex/pkg"
	"github.com/lintang-b-s/saferoutex/pkg/geo"
)

// TimeWindow optional delivery window of a stop.
type TimeWindow struct {
	start time.Time
	end   time.Time
}

func NewTimeWindow(start, end time.Time) *TimeWindow {
	return &TimeWindow{start: start, end: end}
}

func (tw *TimeWindow) GetStart() time.Time {
	return tw.start
}

func (tw *TimeWindow) GetEnd() time.Time {
	return tw.end
}

func (tw *TimeWindow) Contains(t time.Time) bool {
	return !t.Before(tw.start) && !t.After(tw.end)
}

// Stop immutable delivery stop input. the optimizer only assigns a sequence
// index, it never mutates the stop itself.
type Stop struct {
	id           string
	coord        geo.Coordinate
	priority     pkg.Priority
	window       *TimeWindow
	weightKg     float64
	instructions string
}

func NewStop(id string, coord geo.Coordinate, priority pkg.Priority,
	window *TimeWindow, weightKg float64, instructions string) Stop {
	return Stop{
		id:           id,
		coord:        coord,
		priority:     priority,
		window:       window,
		weightKg:     weightKg,
		instructions: instructions,
	}
}

func (s Stop) GetId() string {
	return s.id
}

func (s Stop) GetCoordinate() geo.Coordinate {
	return s.coord
}

func (s Stop) GetPriority() pkg.Priority {
	return s.priority
}

func (s Stop) GetWindow() *TimeWindow {
	return s.window
}

func (s Stop) GetWeightKg() float64 {
	return s.weightKg
}

func (s Stop) GetInstructions() string {
	return s.instructions
}
