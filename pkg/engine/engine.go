package engine

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/lintang-b-s/saferoutex/pkg"
	"github.com/lintang-b-s/saferoutex/pkg/costmatrix"
	da "github.com/lintang-b-s/saferoutex/pkg/datastructure"
	"github.com/lintang-b-s/saferoutex/pkg/geo"
	"github.com/lintang-b-s/saferoutex/pkg/safety"
	"github.com/lintang-b-s/saferoutex/pkg/sequencer"
	"github.com/lintang-b-s/saferoutex/pkg/spatialindex"
	"github.com/lintang-b-s/saferoutex/pkg/util"
	"go.uber.org/zap"
)

// Engine facade over the optimization pipeline: safety scoring, cost matrix
// build, stop sequencing, per-leg path search and alternative generation.
type Engine struct {
	graph     *da.Graph
	snapIndex *spatialindex.Rtree

	builder   *costmatrix.Builder
	sequencer *sequencer.Sequencer

	model    *safety.Model
	scorer   *safety.Scorer
	feedback *safety.FeedbackStore
	trainer  *safety.Trainer

	legSearchTimeout time.Duration
	snapRadiusKm     float64

	log *zap.Logger
}

func New(graph *da.Graph, snapIndex *spatialindex.Rtree, builder *costmatrix.Builder,
	seq *sequencer.Sequencer, model *safety.Model, scorer *safety.Scorer,
	feedback *safety.FeedbackStore, trainer *safety.Trainer,
	legSearchTimeout time.Duration, snapRadiusKm float64, log *zap.Logger) *Engine {
	return &Engine{
		graph:            graph,
		snapIndex:        snapIndex,
		builder:          builder,
		sequencer:        seq,
		model:            model,
		scorer:           scorer,
		feedback:         feedback,
		trainer:          trainer,
		legSearchTimeout: legSearchTimeout,
		snapRadiusKm:     snapRadiusKm,
		log:              log,
	}
}

// ScoreLocation safety score of one location at one time. never fails, the
// extractor substitutes neutral defaults for unavailable signals.
func (e *Engine) ScoreLocation(ctx context.Context, coord geo.Coordinate,
	t time.Time) safety.ScoreResult {
	return e.scorer.ScoreLocation(ctx, coord, t)
}

func validateStops(stops []da.Stop) error {
	if len(stops) == 0 {
		return util.WrapErrorf(nil, util.ErrBadParamInput, "optimization request has no stops")
	}
	seen := make(map[string]struct{}, len(stops))
	for _, s := range stops {
		id := s.GetId()
		if id == "" {
			return util.WrapErrorf(nil, util.ErrBadParamInput, "stop with empty id")
		}
		if _, dup := seen[id]; dup {
			return util.WrapErrorf(nil, util.ErrBadParamInput, "duplicate stop id %s", id)
		}
		seen[id] = struct{}{}

		c := s.GetCoordinate()
		if c.Lat < -90 || c.Lat > 90 || c.Lon < -180 || c.Lon > 180 {
			return util.WrapErrorf(nil, util.ErrBadParamInput,
				"stop %s has invalid coordinate (%f, %f)", id, c.Lat, c.Lon)
		}
	}
	return nil
}

// Optimize build the primary route plus deduplicated alternatives. identical
// input and identical model version yield an identical stop order.
func (e *Engine) Optimize(ctx context.Context, start geo.Coordinate, stops []da.Stop,
	objectives []pkg.Objective) (*da.OptimizedRoute, []*da.OptimizedRoute, error) {

	if err := validateStops(stops); err != nil {
		return nil, nil, err
	}

	departAt := time.Now()
	weights := da.NewObjectiveWeightsFromList(objectives)

	matrix := e.builder.Build(ctx, start, stops, weights, departAt)
	order := e.sequencer.Sequence(matrix, stops)

	primary := e.assembleRoute(ctx, uuid.NewString(), uuid.NewString(), labelPrimary,
		start, stops, order, matrix, objectives)

	alternatives := e.generateAlternatives(ctx, primary, start, stops, matrix, objectives)

	e.log.Info("route optimized",
		zap.String("route_id", primary.GetId()),
		zap.Int("stops", len(stops)),
		zap.Int("alternatives", len(alternatives)),
		zap.Bool("degraded", primary.IsDegraded()),
		zap.Float64("total_distance_m", primary.GetMetrics().GetTotalDistanceMeters()))

	return primary, alternatives, nil
}

// Reoptimize rebuild a single route over the remaining stops from the rider's
// current position. no alternatives, deviation recovery wants one answer fast.
func (e *Engine) Reoptimize(ctx context.Context, start geo.Coordinate, stops []da.Stop,
	objectives []pkg.Objective) (*da.OptimizedRoute, error) {

	if err := validateStops(stops); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, util.WrapErrorf(err, util.ErrOptimizationTimeout, "re-optimization cancelled")
	}

	departAt := time.Now()
	weights := da.NewObjectiveWeightsFromList(objectives)

	matrix := e.builder.Build(ctx, start, stops, weights, departAt)
	order := e.sequencer.Sequence(matrix, stops)

	return e.assembleRoute(ctx, uuid.NewString(), uuid.NewString(), labelPrimary,
		start, stops, order, matrix, objectives), nil
}

// SubmitFeedback append one rider safety report. scoring keeps serving the
// active model version, retraining happens on the trainer's own schedule.
func (e *Engine) SubmitFeedback(record safety.FeedbackRecord) error {
	return e.feedback.Append(record)
}

// RetrainNow trigger a retraining cycle and wait for its outcome.
func (e *Engine) RetrainNow(ctx context.Context) (*safety.ModelVersion, error) {
	return e.trainer.RetrainNow(ctx)
}

// ActiveModelVersion nil until the first successful retrain or restore.
func (e *Engine) ActiveModelVersion() *safety.ModelVersion {
	return e.model.ActiveVersion()
}
