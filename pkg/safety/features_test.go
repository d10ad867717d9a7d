package safety

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/lintang-b-s/saferoutex/pkg/geo"
	"go.uber.org/zap"
)

func TestNightAndRushHourFlags(t *testing.T) {
	testCases := []struct {
		name      string
		hour      int
		wantNight float64
	}{
		{name: "2pm is day", hour: 14, wantNight: 0},
		{name: "10pm is night", hour: 22, wantNight: 1},
		{name: "3am is night", hour: 3, wantNight: 1},
		{name: "6am is day", hour: 6, wantNight: 0},
	}
	for _, tt := range testCases {
		t.Run(tt.name, func(t *testing.T) {
			at := time.Date(2026, 3, 1, tt.hour, 0, 0, 0, time.UTC)
			if got := nightFlag(at); got != tt.wantNight {
				t.Errorf("nightFlag(%02d:00) = %f, want %f", tt.hour, got, tt.wantNight)
			}
		})
	}
}

func TestExtractUsesLocalCrimeData(t *testing.T) {
	coord := geo.NewCoordinate(-7.77, 110.37)
	crime := NewCrimeSnapshot([]CrimeRecord{
		{Coord: coord, Severity: 0.8, OccurredAt: time.Now()},
		{Coord: coord, Severity: 0.6, OccurredAt: time.Now()},
	})

	ex := NewExtractor(crime, NewSafeZoneIndex(nil), NewFeedbackStore(), nil,
		time.Second, zap.NewNop())
	fv := ex.Extract(context.Background(), coord, time.Now())

	if fv.CrimeDensity <= 0 {
		t.Error("local incidents must raise crime density")
	}
	if fv.CrimeSeverity != 0.7 {
		t.Errorf("mean severity %f, want 0.7", fv.CrimeSeverity)
	}
}

func TestExtractFallsBackToDefaults(t *testing.T) {
	ex := NewExtractor(NewCrimeSnapshot(nil), NewSafeZoneIndex(nil),
		NewFeedbackStore(), nil, time.Second, zap.NewNop())

	at := time.Date(2026, 3, 1, 14, 0, 0, 0, time.UTC)
	fv := ex.Extract(context.Background(), geo.NewCoordinate(50, 50), at)
	want := DefaultFeatureVector(at)

	if fv != want {
		t.Errorf("no data for the cell should yield regional defaults: %+v vs %+v", fv, want)
	}
}

type brokenWeather struct{}

func (brokenWeather) GetHazardScore(ctx context.Context, coord geo.Coordinate,
	t time.Time) (float64, error) {
	return 0, errors.New("weather api down")
}

type stormyWeather struct{}

func (stormyWeather) GetHazardScore(ctx context.Context, coord geo.Coordinate,
	t time.Time) (float64, error) {
	return 80, nil
}

func TestExtractWeatherDegradesGracefully(t *testing.T) {
	coord := geo.NewCoordinate(-7.77, 110.37)

	broken := NewExtractor(nil, nil, nil, brokenWeather{}, 50*time.Millisecond, zap.NewNop())
	fv := broken.Extract(context.Background(), coord, time.Now())
	if fv.WeatherHazard != 0 {
		t.Errorf("unavailable weather must default to 0 hazard, got %f", fv.WeatherHazard)
	}

	stormy := NewExtractor(nil, nil, nil, stormyWeather{}, 50*time.Millisecond, zap.NewNop())
	fv = stormy.Extract(context.Background(), coord, time.Now())
	if fv.WeatherHazard != 0.8 {
		t.Errorf("weather hazard %f, want 0.8", fv.WeatherHazard)
	}
}

func TestStaticWeatherProvider(t *testing.T) {
	ex := NewExtractor(nil, nil, nil, NewStaticWeatherProvider(40), 50*time.Millisecond,
		zap.NewNop())
	fv := ex.Extract(context.Background(), geo.NewCoordinate(-7.77, 110.37), time.Now())
	if fv.WeatherHazard != 0.4 {
		t.Errorf("static hazard 40 must normalize to 0.4, got %f", fv.WeatherHazard)
	}

	clamped := NewStaticWeatherProvider(900)
	hazard, err := clamped.GetHazardScore(context.Background(),
		geo.NewCoordinate(0, 0), time.Now())
	if err != nil {
		t.Fatalf("static provider must not fail: %v", err)
	}
	if hazard != 100 {
		t.Errorf("hazard must clamp to the 0-100 scale, got %f", hazard)
	}
}

func TestFeatureVectorSliceOrder(t *testing.T) {
	if len(FeatureNames()) != NumFeatures {
		t.Fatalf("%d feature names for %d features", len(FeatureNames()), NumFeatures)
	}
	fv := FeatureVector{CrimeDensity: 1, WeatherHazard: 2}
	x := fv.ToSlice()
	if len(x) != NumFeatures {
		t.Fatalf("slice length %d", len(x))
	}
	if x[0] != 1 || x[NumFeatures-1] != 2 {
		t.Error("slice order must match the declared feature order")
	}
}
