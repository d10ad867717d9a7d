package safety

import (
	"math"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"github.com/lintang-b-s/saferoutex/pkg"
	"github.com/lintang-b-s/saferoutex/pkg/util"
	"go.uber.org/zap"
)

// Sample one training example: feature vector plus observed safety label in
// [0,100], derived from rider feedback.
type Sample struct {
	Features FeatureVector
	Label    float64
}

// ModelVersion immutable trained snapshot. versions live in an arena owned by
// the Model, exactly one of them is active at a time.
type ModelVersion struct {
	id          int
	weights     []float64 // NumFeatures + 1, bias last
	trainedAt   time.Time
	sampleCount int
	mae         float64
	r2          float64
}

func NewModelVersion(id int, weights []float64, trainedAt time.Time,
	sampleCount int, mae, r2 float64) *ModelVersion {
	return &ModelVersion{
		id:          id,
		weights:     weights,
		trainedAt:   trainedAt,
		sampleCount: sampleCount,
		mae:         mae,
		r2:          r2,
	}
}

func (mv *ModelVersion) GetId() int {
	return mv.id
}

func (mv *ModelVersion) GetWeights() []float64 {
	return mv.weights
}

func (mv *ModelVersion) GetTrainedAt() time.Time {
	return mv.trainedAt
}

func (mv *ModelVersion) GetSampleCount() int {
	return mv.sampleCount
}

func (mv *ModelVersion) GetMAE() float64 {
	return mv.mae
}

func (mv *ModelVersion) GetR2() float64 {
	return mv.r2
}

func (mv *ModelVersion) predict(fv FeatureVector) float64 {
	x := fv.ToSlice()
	sum := mv.weights[len(mv.weights)-1] // bias
	for i, xi := range x {
		sum += mv.weights[i] * xi
	}
	return sum
}

// ScoreResult bounded safety score plus its factor breakdown.
type ScoreResult struct {
	Score        float64
	RiskLevel    pkg.RiskLevel
	Factors      map[string]float64
	ModelVersion int // 0 when the rule-based fallback produced the score
}

func riskLevelOf(score float64) pkg.RiskLevel {
	switch {
	case score >= pkg.RISK_LOW_CUTOFF:
		return pkg.RISK_LOW
	case score >= pkg.RISK_MEDIUM_CUTOFF:
		return pkg.RISK_MEDIUM
	default:
		return pkg.RISK_HIGH
	}
}

// Model versioned safety scoring model. scoring reads the active version via
// an atomic pointer so retraining never blocks or tears a concurrent read.
type Model struct {
	active atomic.Pointer[ModelVersion]

	mu       sync.Mutex // guards retraining + version arena
	versions []*ModelVersion

	minSamples  int
	r2Tolerance float64

	// nightWeightBoost explicit, auditable extra weight on the night feature
	// for callers that opt into more conservative night scoring. [0,1], 0 off.
	nightWeightBoost float64

	log *zap.Logger
}

func NewModel(minSamples int, r2Tolerance, nightWeightBoost float64, log *zap.Logger) *Model {
	return &Model{
		minSamples:       minSamples,
		r2Tolerance:      r2Tolerance,
		nightWeightBoost: util.Clamp(nightWeightBoost, 0, 1),
		log:              log,
	}
}

func (m *Model) ActiveVersion() *ModelVersion {
	return m.active.Load()
}

// Activate force-install a version, used when restoring persisted weights.
func (m *Model) Activate(mv *ModelVersion) {
	m.mu.Lock()
	m.versions = append(m.versions, mv)
	m.mu.Unlock()
	m.active.Store(mv)
}

// Score deterministic per active model version, always bounded to [0,100].
// falls back to the rule-based weighted sum when no version is trained yet.
func (m *Model) Score(fv FeatureVector) ScoreResult {
	active := m.active.Load()
	if active == nil {
		return m.ruleBasedScore(fv)
	}

	raw := active.predict(fv)
	raw -= m.nightPenalty(fv)
	score := util.Clamp(raw, pkg.MIN_SAFETY_SCORE, pkg.MAX_SAFETY_SCORE)

	factors := make(map[string]float64, NumFeatures)
	names := FeatureNames()
	x := fv.ToSlice()
	for i, name := range names {
		factors[name] = active.weights[i] * x[i]
	}

	return ScoreResult{
		Score:        score,
		RiskLevel:    riskLevelOf(score),
		Factors:      factors,
		ModelVersion: active.id,
	}
}

func (m *Model) nightPenalty(fv FeatureVector) float64 {
	return m.nightWeightBoost * nightBoostScale * fv.IsNight
}

// ruleBasedScore hand-tuned weighted sum over raw features, serving until the
// first version is trained.
func (m *Model) ruleBasedScore(fv FeatureVector) ScoreResult {
	factors := map[string]float64{
		"crime_density":        -35.0 * fv.CrimeDensity,
		"crime_severity":       -15.0 * fv.CrimeSeverity,
		"dist_to_safe_zone_km": -4.0 * util.Clamp(fv.DistToSafeZoneKm, 0, maxSafeZoneDistKm),
		"safe_zone_density":    5.0 * fv.SafeZoneDensity,
		"feedback_mean":        5.0 * (fv.FeedbackMean - 3.0) / 2.0 * math.Min(1.0, fv.FeedbackVolume),
		"feedback_volume":      0,
		"incident_rate":        -10.0 * fv.IncidentRate,
		"is_night":             -(12.0 + m.nightWeightBoost*nightBoostScale) * fv.IsNight,
		"is_rush_hour":         -3.0 * fv.IsRushHour,
		"urbanization":         -5.0 * (1.0 - fv.Urbanization),
		"weather_hazard":       -10.0 * fv.WeatherHazard,
	}

	score := pkg.MAX_SAFETY_SCORE
	for _, contribution := range factors {
		score += contribution
	}
	score = util.Clamp(score, pkg.MIN_SAFETY_SCORE, pkg.MAX_SAFETY_SCORE)

	return ScoreResult{
		Score:     score,
		RiskLevel: riskLevelOf(score),
		Factors:   factors,
	}
}

const nightBoostScale = 10.0

// Retrain fit a ridge regression on samples, validate on a held-out 20%
// split, and activate the new version only when validation R2 does not
// regress beyond the tolerance versus the currently active version.
// the old version keeps serving readers throughout.
func (m *Model) Retrain(samples []Sample) (*ModelVersion, error) {
	if len(samples) < m.minSamples {
		return nil, util.WrapErrorf(nil, util.ErrBadParamInput,
			"retrain needs at least %d samples, got %d", m.minSamples, len(samples))
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	// fixed seed: identical sample sets train identical versions
	shuffled := make([]Sample, len(samples))
	copy(shuffled, samples)
	rng := rand.New(rand.NewSource(trainShuffleSeed))
	rng.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})

	validationSize := int(float64(len(shuffled)) * pkg.VALIDATION_SPLIT_FRAC)
	if validationSize < 1 {
		validationSize = 1
	}
	train := shuffled[validationSize:]
	validation := shuffled[:validationSize]

	weights, err := fitRidge(train, ridgeLambda)
	if err != nil {
		return nil, err
	}

	candidate := NewModelVersion(len(m.versions)+1, weights, time.Now(), len(samples), 0, 0)
	candidate.mae, candidate.r2 = validate(candidate, validation)

	active := m.active.Load()
	if active != nil && candidate.r2 < active.r2-m.r2Tolerance {
		m.log.Warn("retrained model rejected, keeping active version",
			zap.Int("candidate_version", candidate.id),
			zap.Float64("candidate_r2", candidate.r2),
			zap.Int("active_version", active.id),
			zap.Float64("active_r2", active.r2))
		return nil, util.WrapErrorf(nil, util.ErrRetrainRejected,
			"validation R2 %.4f regressed beyond tolerance %.2f vs active %.4f",
			candidate.r2, m.r2Tolerance, active.r2)
	}

	m.versions = append(m.versions, candidate)
	m.active.Store(candidate)
	m.log.Info("activated new model version",
		zap.Int("version", candidate.id),
		zap.Int("samples", candidate.sampleCount),
		zap.Float64("mae", candidate.mae),
		zap.Float64("r2", candidate.r2))
	return candidate, nil
}

const (
	ridgeLambda      = 1.0
	trainShuffleSeed = 42
)

// fitRidge solve (X^T X + lambda I) w = X^T y by gaussian elimination.
// bias column is not regularized.
func fitRidge(train []Sample, lambda float64) ([]float64, error) {
	d := NumFeatures + 1

	xtx := make([][]float64, d)
	for i := range xtx {
		xtx[i] = make([]float64, d)
	}
	xty := make([]float64, d)

	row := make([]float64, d)
	for _, s := range train {
		copy(row, s.Features.ToSlice())
		row[d-1] = 1.0
		for i := 0; i < d; i++ {
			for j := 0; j < d; j++ {
				xtx[i][j] += row[i] * row[j]
			}
			xty[i] += row[i] * s.Label
		}
	}
	for i := 0; i < d-1; i++ {
		xtx[i][i] += lambda
	}

	return solveLinearSystem(xtx, xty)
}

// solveLinearSystem gaussian elimination with partial pivoting.
func solveLinearSystem(a [][]float64, b []float64) ([]float64, error) {
	n := len(b)
	for col := 0; col < n; col++ {
		pivot := col
		for r := col + 1; r < n; r++ {
			if math.Abs(a[r][col]) > math.Abs(a[pivot][col]) {
				pivot = r
			}
		}
		a[col], a[pivot] = a[pivot], a[col]
		b[col], b[pivot] = b[pivot], b[col]

		if math.Abs(a[col][col]) < 1e-12 {
			return nil, util.WrapErrorf(nil, util.ErrInternalServerError,
				"singular design matrix at column %d", col)
		}

		for r := col + 1; r < n; r++ {
			factor := a[r][col] / a[col][col]
			for c := col; c < n; c++ {
				a[r][c] -= factor * a[col][c]
			}
			b[r] -= factor * b[col]
		}
	}

	w := make([]float64, n)
	for r := n - 1; r >= 0; r-- {
		sum := b[r]
		for c := r + 1; c < n; c++ {
			sum -= a[r][c] * w[c]
		}
		w[r] = sum / a[r][r]
	}
	return w, nil
}

func validate(mv *ModelVersion, validation []Sample) (mae, r2 float64) {
	if len(validation) == 0 {
		return 0, 0
	}

	var absErrSum, labelSum float64
	for _, s := range validation {
		pred := util.Clamp(mv.predict(s.Features), pkg.MIN_SAFETY_SCORE, pkg.MAX_SAFETY_SCORE)
		absErrSum += math.Abs(pred - s.Label)
		labelSum += s.Label
	}
	mae = absErrSum / float64(len(validation))

	labelMean := labelSum / float64(len(validation))
	var ssRes, ssTot float64
	for _, s := range validation {
		pred := util.Clamp(mv.predict(s.Features), pkg.MIN_SAFETY_SCORE, pkg.MAX_SAFETY_SCORE)
		ssRes += (s.Label - pred) * (s.Label - pred)
		ssTot += (s.Label - labelMean) * (s.Label - labelMean)
	}
	if ssTot == 0 {
		if ssRes == 0 {
			return mae, 1.0
		}
		return mae, 0
	}
	return mae, 1.0 - ssRes/ssTot
}
