package safety

import (
	"math"
	"sync"
	"time"

	"github.com/lintang-b-s/saferoutex/pkg"
	"github.com/lintang-b-s/saferoutex/pkg/geo"
	"github.com/lintang-b-s/saferoutex/pkg/util"
)

// FeedbackRecord rider safety feedback, append-only.
type FeedbackRecord struct {
	RouteId      string
	RiderId      string
	Coord        geo.Coordinate
	Rating       int // 1..5, 5 = felt safe
	IncidentType string
	Timestamp    time.Time
}

func (fr FeedbackRecord) Validate() error {
	if fr.Rating < 1 || fr.Rating > 5 {
		return util.WrapErrorf(nil, util.ErrBadParamInput, "feedback rating must be 1..5, got %d", fr.Rating)
	}
	return nil
}

// FeedbackAggregate decayed per-cell aggregate of rider feedback.
type FeedbackAggregate struct {
	MeanRating    float64 // decayed-weight mean, 1..5
	WeightedCount float64
	IncidentRate  float64 // decayed fraction of records reporting an incident
}

// FeedbackStore append-only feedback collection with per-cell lookup. reads
// apply exponential recency decay with a 30 day half life, so a six month old
// incident weighs an eighth of a fresh one.
type FeedbackStore struct {
	mu      sync.RWMutex
	byCell  map[cellKey][]FeedbackRecord
	records []FeedbackRecord
}

func NewFeedbackStore() *FeedbackStore {
	return &FeedbackStore{
		byCell: make(map[cellKey][]FeedbackRecord),
	}
}

func (fs *FeedbackStore) Append(record FeedbackRecord) error {
	if err := record.Validate(); err != nil {
		return err
	}

	fs.mu.Lock()
	defer fs.mu.Unlock()

	key := cellOf(record.Coord)
	fs.byCell[key] = append(fs.byCell[key], record)
	fs.records = append(fs.records, record)
	return nil
}

func (fs *FeedbackStore) Len() int {
	fs.mu.RLock()
	defer fs.mu.RUnlock()
	return len(fs.records)
}

// All snapshot copy of every record, oldest first. used by the retrainer.
func (fs *FeedbackStore) All() []FeedbackRecord {
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	out := make([]FeedbackRecord, len(fs.records))
	copy(out, fs.records)
	return out
}

func decayWeight(age time.Duration) float64 {
	ageDays := age.Hours() / 24.0
	if ageDays < 0 {
		ageDays = 0
	}
	return math.Pow(0.5, ageDays/pkg.FEEDBACK_DECAY_HALF_LIFE_DAYS)
}

// Aggregate decayed aggregate of the cell containing coord, as of now.
func (fs *FeedbackStore) Aggregate(coord geo.Coordinate, now time.Time) FeedbackAggregate {
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	records := fs.byCell[cellOf(coord)]
	if len(records) == 0 {
		return FeedbackAggregate{}
	}

	var weightSum, ratingSum, incidentSum float64
	for _, r := range records {
		w := decayWeight(now.Sub(r.Timestamp))
		weightSum += w
		ratingSum += w * float64(r.Rating)
		if r.IncidentType != "" {
			incidentSum += w
		}
	}

	if weightSum == 0 {
		return FeedbackAggregate{}
	}

	return FeedbackAggregate{
		MeanRating:    ratingSum / weightSum,
		WeightedCount: weightSum,
		IncidentRate:  incidentSum / weightSum,
	}
}
