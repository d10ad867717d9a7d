package costmatrix

import (
	"context"
	"time"

	"github.com/lintang-b-s/saferoutex/pkg"
	"github.com/lintang-b-s/saferoutex/pkg/concurrent"
	"github.com/lintang-b-s/saferoutex/pkg/datastructure"
	"github.com/lintang-b-s/saferoutex/pkg/geo"
	"github.com/lintang-b-s/saferoutex/pkg/safety"
	"go.uber.org/zap"
)

// LocationScorer safety score of one location/time, served by the shared
// scoring model.
type LocationScorer interface {
	ScoreLocation(ctx context.Context, coord geo.Coordinate, t time.Time) safety.ScoreResult
}

// Builder combines provider distance/duration, traffic and safety scoring
// into the directed per-objective cost matrix of one optimization request.
// provider outages degrade single cells to haversine estimates, they never
// fail the build.
type Builder struct {
	provider        GeoCostProvider
	fallback        *HaversineProvider
	scorer          LocationScorer
	providerTimeout time.Duration
	numWorkers      int
	log             *zap.Logger
}

func NewBuilder(provider GeoCostProvider, scorer LocationScorer,
	providerTimeout time.Duration, numWorkers int, log *zap.Logger) *Builder {
	if numWorkers <= 0 {
		numWorkers = 8
	}
	return &Builder{
		provider:        provider,
		fallback:        NewHaversineProvider(pkg.DEFAULT_SPEED_KMH),
		scorer:          scorer,
		providerTimeout: providerTimeout,
		numWorkers:      numWorkers,
		log:             log,
	}
}

type pairJob struct {
	from, to int
	origin   geo.Coordinate
	dest     geo.Coordinate
}

type pairResult struct {
	from, to int
	dd       DistanceDuration
	degraded bool
}

// Build directed cost matrix over start + stops. index 0 is the start, stop i
// maps to index i+1. pairwise provider queries are batched across a bounded
// worker pool, each with its own timeout.
func (b *Builder) Build(ctx context.Context, start geo.Coordinate, stops []datastructure.Stop,
	weights datastructure.ObjectiveWeights, departAt time.Time) *datastructure.CostMatrix {

	points := make([]geo.Coordinate, 0, len(stops)+1)
	points = append(points, start)
	for _, s := range stops {
		points = append(points, s.GetCoordinate())
	}
	n := len(points)

	// one safety score per destination point, reused by every incoming edge
	safetyPenalties := make([]float64, n)
	for i, p := range points {
		res := b.scorer.ScoreLocation(ctx, p, departAt)
		safetyPenalties[i] = (pkg.MAX_SAFETY_SCORE - res.Score) / pkg.MAX_SAFETY_SCORE
	}

	pool := concurrent.NewWorkerPool[pairJob, pairResult](b.numWorkers, n*n)
	pool.Start(func(job pairJob) pairResult {
		return b.queryPair(ctx, job, departAt)
	})

	numJobs := 0
	for from := 0; from < n; from++ {
		for to := 0; to < n; to++ {
			if from == to {
				continue
			}
			pool.AddJob(pairJob{from: from, to: to, origin: points[from], dest: points[to]})
			numJobs++
		}
	}
	pool.Close()
	pool.Wait()

	matrix := datastructure.NewCostMatrix(n, weights)
	for res := range pool.CollectResults() {
		safetyPenalty := safetyPenalties[res.to]
		trafficPenalty := TrafficPenalty(res.dd.TrafficLevel)
		combined := weights.Combine(res.dd.DistanceMeters, res.dd.DurationSecond,
			safetyPenalty, trafficPenalty)

		matrix.Set(res.from, res.to, datastructure.NewCostCell(
			res.dd.DistanceMeters, res.dd.DurationSecond, safetyPenalty, trafficPenalty,
			combined, res.dd.TrafficLevel, res.dd.Polyline, res.degraded))
	}

	if matrix.IsDegraded() {
		b.log.Warn("cost matrix built with degraded cells",
			zap.Int("dim", n))
	}
	return matrix
}

func (b *Builder) queryPair(ctx context.Context, job pairJob, departAt time.Time) pairResult {
	pctx, cancel := context.WithTimeout(ctx, b.providerTimeout)
	defer cancel()

	dd, err := b.provider.GetDistanceDuration(pctx, job.origin, job.dest, departAt)
	if err == nil {
		return pairResult{from: job.from, to: job.to, dd: dd}
	}

	b.log.Debug("provider query failed, falling back to haversine estimate",
		zap.Int("from", job.from), zap.Int("to", job.to), zap.Error(err))

	dd, _ = b.fallback.GetDistanceDuration(ctx, job.origin, job.dest, departAt)
	return pairResult{from: job.from, to: job.to, dd: dd, degraded: true}
}
