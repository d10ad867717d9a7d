package safety

import (
	"context"
	"time"

	"github.com/lintang-b-s/saferoutex/pkg/geo"
)

// Scorer single entry point for location scoring: feature extraction against
// the current snapshots, then prediction by the active model version.
type Scorer struct {
	extractor *Extractor
	model     *Model
}

func NewScorer(extractor *Extractor, model *Model) *Scorer {
	return &Scorer{extractor: extractor, model: model}
}

func (s *Scorer) ScoreLocation(ctx context.Context, coord geo.Coordinate,
	t time.Time) ScoreResult {
	return s.model.Score(s.extractor.Extract(ctx, coord, t))
}
