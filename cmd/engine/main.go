package main

import (
	"context"
	"flag"

	"github.com/lintang-b-s/saferoutex/pkg"
	"github.com/lintang-b-s/saferoutex/pkg/costmatrix"
	"github.com/lintang-b-s/saferoutex/pkg/datastructure"
	"github.com/lintang-b-s/saferoutex/pkg/engine"
	"github.com/lintang-b-s/saferoutex/pkg/geo"
	"github.com/lintang-b-s/saferoutex/pkg/http"
	"github.com/lintang-b-s/saferoutex/pkg/http/usecases"
	"github.com/lintang-b-s/saferoutex/pkg/logger"
	"github.com/lintang-b-s/saferoutex/pkg/safety"
	"github.com/lintang-b-s/saferoutex/pkg/sequencer"
	"github.com/lintang-b-s/saferoutex/pkg/spatialindex"
	"github.com/lintang-b-s/saferoutex/pkg/storage"
	"github.com/lintang-b-s/saferoutex/pkg/tracker"
	"github.com/lintang-b-s/saferoutex/pkg/util"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

var (
	leafBoundingBoxRadius = flag.Float64("leaf_bounding_box_radius", 0.05, "leaf node (r-tree) bounding box radius in km")
	useRateLimit          = flag.Bool("rate_limit", false, "enable per-client rate limiting")
)

func main() {
	flag.Parse()
	logger, err := logger.New()
	if err != nil {
		panic(err)
	}

	if err := util.ReadConfig(); err != nil {
		logger.Warn("no config file found, using defaults", zap.Error(err))
	}
	setDefaults()

	crimeRecords, err := storage.LoadCrimeRecords(viper.GetString("CRIME_DATA_FILE"))
	if err != nil {
		panic(err)
	}
	safeZones, err := storage.LoadSafeZones(viper.GetString("SAFE_ZONE_DATA_FILE"))
	if err != nil {
		panic(err)
	}
	logger.Info("safety datasets loaded",
		zap.Int("crime_records", len(crimeRecords)), zap.Int("safe_zones", len(safeZones)))

	crime := safety.NewCrimeSnapshot(crimeRecords)
	zones := safety.NewSafeZoneIndex(safeZones)
	feedback := safety.NewFeedbackStore()

	weather := safety.NewStaticWeatherProvider(viper.GetFloat64("WEATHER_BASE_HAZARD"))
	extractor := safety.NewExtractor(crime, zones, feedback, weather,
		viper.GetDuration("WEATHER_TIMEOUT"), logger)
	model := safety.NewModel(pkg.MIN_RETRAIN_SAMPLES, pkg.RETRAIN_R2_TOLERANCE,
		viper.GetFloat64("NIGHT_WEIGHT_BOOST"), logger)

	modelStore := storage.NewModelStore(viper.GetString("MODEL_FILE"))
	if mv, found, err := modelStore.Load(); err != nil {
		logger.Warn("failed restoring model version", zap.Error(err))
	} else if found {
		model.Activate(mv)
		logger.Info("restored persisted model version", zap.Int("version", mv.GetId()))
	}

	trainer := safety.NewTrainer(model, extractor, feedback,
		viper.GetDuration("RETRAIN_INTERVAL"), logger)

	origin := geo.NewCoordinate(viper.GetFloat64("ARENA_ORIGIN_LAT"),
		viper.GetFloat64("ARENA_ORIGIN_LON"))
	graph := datastructure.NewGridGraph(origin, viper.GetInt("ARENA_ROWS"),
		viper.GetInt("ARENA_COLS"), viper.GetFloat64("ARENA_CELL_KM"),
		pkg.DEFAULT_SPEED_KMH)

	rtree := spatialindex.NewRtree()
	rtree.Build(graph, *leafBoundingBoxRadius, logger)

	provider := costmatrix.NewHaversineProvider(pkg.DEFAULT_SPEED_KMH)
	scorer := safety.NewScorer(extractor, model)

	ctx, cleanup, err := NewContext()
	if err != nil {
		panic(err)
	}
	go trainer.Run(ctx)

	builder := costmatrix.NewBuilder(provider, scorer,
		viper.GetDuration("PROVIDER_TIMEOUT"), viper.GetInt("MATRIX_WORKERS"), logger)
	seq := sequencer.New(pkg.PRIORITY_COST_TOLERANCE,
		viper.GetInt("SEQUENCER_MAX_ITERATIONS"), viper.GetInt("SEQUENCER_EXACT_THRESHOLD"))

	optimizerEngine := engine.New(graph, rtree, builder, seq, model, scorer,
		feedback, trainer, viper.GetDuration("LEG_SEARCH_TIMEOUT"),
		viper.GetFloat64("SNAP_RADIUS_KM"), logger)

	routeTracker := tracker.New(optimizerEngine,
		pkg.DEVIATION_DISTANCE_THRESHOLD_METERS, pkg.DEVIATION_ETA_SLIP_THRESHOLD_SECOND,
		viper.GetDuration("REOPT_TIMEOUT"), logger)

	api := http.NewServer(logger)

	optimizerService := usecases.NewOptimizerService(optimizerEngine, routeTracker, logger)
	api.Use(ctx, logger, *useRateLimit, optimizerService, optimizerService)

	signal := http.GracefulShutdown()

	if mv := model.ActiveVersion(); mv != nil {
		if err := modelStore.Save(mv); err != nil {
			logger.Warn("failed persisting model version", zap.Error(err))
		}
	}
	if err := persistRoutes(routeTracker, viper.GetString("ROUTE_STATE_FILE")); err != nil {
		logger.Warn("failed persisting route states", zap.Error(err))
	}

	logger.Info("SafeRouteX Optimization Engine Server Stopped", zap.String("signal", signal.String()))
	cleanup()
}

func persistRoutes(trk *tracker.Tracker, filename string) error {
	exports := trk.Export()
	records := make([]storage.RouteRecord, 0, len(exports))
	for _, e := range exports {
		records = append(records, storage.RouteRecord{
			RouteId:   e.RouteId,
			VersionId: e.VersionId,
			State:     e.State.String(),
			Degraded:  e.Degraded,
			StopOrder: e.StopOrder,
			Delivered: e.Delivered,
		})
	}
	return storage.NewRouteStore(filename).Save(records)
}

func setDefaults() {
	viper.SetDefault("CRIME_DATA_FILE", "./data/crime.txt")
	viper.SetDefault("SAFE_ZONE_DATA_FILE", "./data/safezones.txt")
	viper.SetDefault("MODEL_FILE", "./data/safety_model.txt")
	viper.SetDefault("ROUTE_STATE_FILE", "./data/routes.txt")

	viper.SetDefault("WEATHER_TIMEOUT", "500ms")
	viper.SetDefault("WEATHER_BASE_HAZARD", 0.0)
	viper.SetDefault("NIGHT_WEIGHT_BOOST", 0.0)
	viper.SetDefault("RETRAIN_INTERVAL", "1h")

	viper.SetDefault("ARENA_ORIGIN_LAT", -7.7651)
	viper.SetDefault("ARENA_ORIGIN_LON", 110.3755)
	viper.SetDefault("ARENA_ROWS", 60)
	viper.SetDefault("ARENA_COLS", 60)
	viper.SetDefault("ARENA_CELL_KM", 0.25)

	viper.SetDefault("PROVIDER_TIMEOUT", "2s")
	viper.SetDefault("MATRIX_WORKERS", 8)
	viper.SetDefault("SEQUENCER_MAX_ITERATIONS", 200)
	viper.SetDefault("SEQUENCER_EXACT_THRESHOLD", 10)

	viper.SetDefault("LEG_SEARCH_TIMEOUT", "2s")
	viper.SetDefault("SNAP_RADIUS_KM", 0.5)
	viper.SetDefault("REOPT_TIMEOUT", "30s")
}

func NewContext() (context.Context, func(), error) {
	ctx, cancel := context.WithCancel(context.Background())
	cb := func() {
		cancel()
	}

	return ctx, cb, nil
}
