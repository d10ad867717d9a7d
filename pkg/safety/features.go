package safety

import (
	"context"
	"math"
	"time"

	"github.com/lintang-b-s/saferoutex/pkg/geo"
	"github.com/lintang-b-s/saferoutex/pkg/util"
	"go.uber.org/zap"
)

// FeatureVector numeric inputs of the safety scoring model. all fields are
// normalized into [0,1] except distToSafeZoneKm (clamped to [0,5]) and
// feedbackMean (1..5 rating scale, 3 = neutral).
type FeatureVector struct {
	CrimeDensity     float64
	CrimeSeverity    float64
	DistToSafeZoneKm float64
	SafeZoneDensity  float64
	FeedbackMean     float64
	FeedbackVolume   float64
	IncidentRate     float64
	IsNight          float64
	IsRushHour       float64
	Urbanization     float64
	WeatherHazard    float64
}

const NumFeatures = 11

// ToSlice fixed feature order, must match FeatureNames.
func (fv FeatureVector) ToSlice() []float64 {
	return []float64{
		fv.CrimeDensity,
		fv.CrimeSeverity,
		fv.DistToSafeZoneKm,
		fv.SafeZoneDensity,
		fv.FeedbackMean,
		fv.FeedbackVolume,
		fv.IncidentRate,
		fv.IsNight,
		fv.IsRushHour,
		fv.Urbanization,
		fv.WeatherHazard,
	}
}

func FeatureNames() []string {
	return []string{
		"crime_density",
		"crime_severity",
		"dist_to_safe_zone_km",
		"safe_zone_density",
		"feedback_mean",
		"feedback_volume",
		"incident_rate",
		"is_night",
		"is_rush_hour",
		"urbanization",
		"weather_hazard",
	}
}

// DefaultFeatureVector regional fallback when local data is missing. neutral
// feedback, median urbanization, no known hazards.
func DefaultFeatureVector(t time.Time) FeatureVector {
	return FeatureVector{
		CrimeDensity:     0.3,
		CrimeSeverity:    0.3,
		DistToSafeZoneKm: 2.0,
		SafeZoneDensity:  0.2,
		FeedbackMean:     3.0,
		FeedbackVolume:   0,
		IncidentRate:     0,
		IsNight:          nightFlag(t),
		IsRushHour:       rushHourFlag(t),
		Urbanization:     0.5,
		WeatherHazard:    0,
	}
}

func nightFlag(t time.Time) float64 {
	h := t.Hour()
	if h >= 21 || h < 5 {
		return 1
	}
	return 0
}

func rushHourFlag(t time.Time) float64 {
	h := t.Hour()
	if (h >= 7 && h < 10) || (h >= 16 && h < 19) {
		return 1
	}
	return 0
}

// WeatherProvider external hazard collaborator, 0-100 where 100 is the worst.
type WeatherProvider interface {
	GetHazardScore(ctx context.Context, coord geo.Coordinate, t time.Time) (float64, error)
}

// StaticWeatherProvider fixed hazard score, the collaborator used when no
// live weather service is configured.
type StaticWeatherProvider struct {
	hazard float64
}

func NewStaticWeatherProvider(hazard float64) *StaticWeatherProvider {
	return &StaticWeatherProvider{hazard: util.Clamp(hazard, 0, 100)}
}

func (p *StaticWeatherProvider) GetHazardScore(ctx context.Context, coord geo.Coordinate,
	t time.Time) (float64, error) {
	return p.hazard, nil
}

// Extractor builds a FeatureVector for a location/time against the current
// crime/safe-zone/feedback snapshot. deterministic for a fixed snapshot, and
// never fails the request: missing local data degrades to regional defaults.
type Extractor struct {
	crime          *CrimeSnapshot
	zones          *SafeZoneIndex
	feedback       *FeedbackStore
	weather        WeatherProvider
	weatherTimeout time.Duration
	log            *zap.Logger
}

func NewExtractor(crime *CrimeSnapshot, zones *SafeZoneIndex, feedback *FeedbackStore,
	weather WeatherProvider, weatherTimeout time.Duration, log *zap.Logger) *Extractor {
	return &Extractor{
		crime:          crime,
		zones:          zones,
		feedback:       feedback,
		weather:        weather,
		weatherTimeout: weatherTimeout,
		log:            log,
	}
}

func (ex *Extractor) Extract(ctx context.Context, coord geo.Coordinate, t time.Time) FeatureVector {
	fv := DefaultFeatureVector(t)

	if ex.crime != nil {
		if density, severity, ok := ex.crime.CellStats(coord); ok {
			fv.CrimeDensity = density
			fv.CrimeSeverity = severity
			fv.Urbanization = ex.crime.Urbanization(coord)
		}
	}

	if ex.zones != nil {
		if distKm, ok := ex.zones.NearestDistanceKm(coord); ok {
			fv.DistToSafeZoneKm = util.Clamp(distKm, 0, maxSafeZoneDistKm)
			fv.SafeZoneDensity = ex.zones.DensityWithin(coord, safeZoneDensityRadiusKm)
		}
	}

	if ex.feedback != nil {
		agg := ex.feedback.Aggregate(coord, t)
		if agg.WeightedCount > 0 {
			fv.FeedbackMean = agg.MeanRating
			fv.FeedbackVolume = math.Min(1.0, math.Log1p(agg.WeightedCount)/math.Log1p(feedbackVolumeSaturation))
			fv.IncidentRate = agg.IncidentRate
		}
	}

	if ex.weather != nil {
		wctx, cancel := context.WithTimeout(ctx, ex.weatherTimeout)
		hazard, err := ex.weather.GetHazardScore(wctx, coord, t)
		cancel()
		if err != nil {
			ex.log.Debug("weather hazard unavailable, using default",
				zap.Float64("lat", coord.Lat), zap.Float64("lon", coord.Lon), zap.Error(err))
		} else {
			fv.WeatherHazard = util.Clamp(hazard/100.0, 0, 1)
		}
	}

	return fv
}

const (
	maxSafeZoneDistKm        = 5.0
	safeZoneDensityRadiusKm  = 2.0
	feedbackVolumeSaturation = 50.0
)
