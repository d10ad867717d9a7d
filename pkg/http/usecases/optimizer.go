package usecases

import (
	"context"
	"time"

	"github.com/lintang-b-s/saferoutex/pkg"
	da "github.com/lintang-b-s/saferoutex/pkg/datastructure"
	"github.com/lintang-b-s/saferoutex/pkg/engine"
	"github.com/lintang-b-s/saferoutex/pkg/geo"
	"github.com/lintang-b-s/saferoutex/pkg/safety"
	"github.com/lintang-b-s/saferoutex/pkg/tracker"
	"go.uber.org/zap"
)

// OptimizerService use case layer between the HTTP controllers and the
// engine: every optimized route is handed to the tracker so deviation
// handling starts immediately.
type OptimizerService struct {
	engine  *engine.Engine
	tracker *tracker.Tracker
	log     *zap.Logger
}

func NewOptimizerService(eng *engine.Engine, trk *tracker.Tracker,
	log *zap.Logger) *OptimizerService {
	return &OptimizerService{engine: eng, tracker: trk, log: log}
}

func (s *OptimizerService) Optimize(ctx context.Context, start geo.Coordinate,
	stops []da.Stop, objectives []pkg.Objective) (*da.OptimizedRoute, []*da.OptimizedRoute, error) {

	primary, alternatives, err := s.engine.Optimize(ctx, start, stops, objectives)
	if err != nil {
		return nil, nil, err
	}
	s.tracker.Watch(primary)
	return primary, alternatives, nil
}

func (s *OptimizerService) Route(routeId string) (*da.OptimizedRoute, error) {
	return s.tracker.Route(routeId)
}

func (s *OptimizerService) Status(routeId string) (tracker.Snapshot, error) {
	return s.tracker.Status(routeId)
}

func (s *OptimizerService) ReportPosition(routeId string, position geo.Coordinate,
	timestamp time.Time) (tracker.Snapshot, error) {
	return s.tracker.ReportPosition(routeId, position, timestamp)
}

func (s *OptimizerService) MarkDelivered(routeId, stopId string) (tracker.Snapshot, error) {
	return s.tracker.MarkDelivered(routeId, stopId)
}

func (s *OptimizerService) CancelRoute(routeId string) (tracker.Snapshot, error) {
	return s.tracker.Cancel(routeId)
}

func (s *OptimizerService) ScoreLocation(ctx context.Context, coord geo.Coordinate,
	t time.Time) safety.ScoreResult {
	return s.engine.ScoreLocation(ctx, coord, t)
}

func (s *OptimizerService) SubmitFeedback(record safety.FeedbackRecord) error {
	return s.engine.SubmitFeedback(record)
}

func (s *OptimizerService) RetrainNow(ctx context.Context) (*safety.ModelVersion, error) {
	return s.engine.RetrainNow(ctx)
}

func (s *OptimizerService) ActiveModelVersion() *safety.ModelVersion {
	return s.engine.ActiveModelVersion()
}
