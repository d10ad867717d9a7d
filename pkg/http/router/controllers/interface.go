package controllers

import (
	"context"
	"time"

	"github.com/lintang-b-s/saferoutex/pkg"
	da "github.com/lintang-b-s/saferoutex/pkg/datastructure"
	"github.com/lintang-b-s/saferoutex/pkg/geo"
	"github.com/lintang-b-s/saferoutex/pkg/safety"
	"github.com/lintang-b-s/saferoutex/pkg/tracker"
)

type OptimizerService interface {
	Optimize(ctx context.Context, start geo.Coordinate, stops []da.Stop,
		objectives []pkg.Objective) (*da.OptimizedRoute, []*da.OptimizedRoute, error)
	Route(routeId string) (*da.OptimizedRoute, error)
	Status(routeId string) (tracker.Snapshot, error)
	ReportPosition(routeId string, position geo.Coordinate, timestamp time.Time) (tracker.Snapshot, error)
	MarkDelivered(routeId, stopId string) (tracker.Snapshot, error)
	CancelRoute(routeId string) (tracker.Snapshot, error)
}

type SafetyService interface {
	ScoreLocation(ctx context.Context, coord geo.Coordinate, t time.Time) safety.ScoreResult
	SubmitFeedback(record safety.FeedbackRecord) error
	RetrainNow(ctx context.Context) (*safety.ModelVersion, error)
	ActiveModelVersion() *safety.ModelVersion
}
