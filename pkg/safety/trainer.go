package safety

import (
	"context"
	"time"

	"github.com/lintang-b-s/saferoutex/pkg"
	"github.com/lintang-b-s/saferoutex/pkg/util"
	"go.uber.org/zap"
)

// Trainer background retraining worker. retraining runs off the request path
// on its own goroutine, scoring keeps reading the active version throughout.
type Trainer struct {
	model     *Model
	extractor *Extractor
	feedback  *FeedbackStore
	interval  time.Duration
	trigger   chan chan retrainResult
	log       *zap.Logger
}

type retrainResult struct {
	version *ModelVersion
	err     error
}

func NewTrainer(model *Model, extractor *Extractor, feedback *FeedbackStore,
	interval time.Duration, log *zap.Logger) *Trainer {
	return &Trainer{
		model:     model,
		extractor: extractor,
		feedback:  feedback,
		interval:  interval,
		trigger:   make(chan chan retrainResult, 1),
		log:       log,
	}
}

// Run periodic retraining loop. blocks until ctx is cancelled.
func (tr *Trainer) Run(ctx context.Context) {
	ticker := time.NewTicker(tr.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := tr.retrain(ctx); err != nil {
				tr.log.Debug("periodic retrain skipped", zap.Error(err))
			}
		case reply := <-tr.trigger:
			version, err := tr.retrain(ctx)
			reply <- retrainResult{version: version, err: err}
		}
	}
}

// RetrainNow explicit trigger. the retrain itself still runs on the worker
// goroutine; this only waits for its outcome.
func (tr *Trainer) RetrainNow(ctx context.Context) (*ModelVersion, error) {
	reply := make(chan retrainResult, 1)
	select {
	case tr.trigger <- reply:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	select {
	case res := <-reply:
		return res.version, res.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (tr *Trainer) retrain(ctx context.Context) (*ModelVersion, error) {
	records := tr.feedback.All()
	if len(records) < tr.model.minSamples {
		return nil, util.WrapErrorf(nil, util.ErrBadParamInput,
			"not enough feedback for retraining: %d < %d", len(records), tr.model.minSamples)
	}

	samples := make([]Sample, 0, len(records))
	for _, r := range records {
		samples = append(samples, Sample{
			Features: tr.extractor.Extract(ctx, r.Coord, r.Timestamp),
			Label:    LabelFromFeedback(r),
		})
	}

	return tr.model.Retrain(samples)
}

// LabelFromFeedback map a feedback record onto the 0-100 safety label scale.
// an explicit incident drags the label down regardless of the rating.
func LabelFromFeedback(r FeedbackRecord) float64 {
	label := float64(r.Rating) * 20.0
	if r.IncidentType != "" {
		label -= 30.0
	}
	return util.Clamp(label, pkg.MIN_SAFETY_SCORE, pkg.MAX_SAFETY_SCORE)
}
