package controllers

import (
	"time"

	"github.com/lintang-b-s/saferoutex/pkg"
	da "github.com/lintang-b-s/saferoutex/pkg/datastructure"
	"github.com/lintang-b-s/saferoutex/pkg/geo"
	"github.com/lintang-b-s/saferoutex/pkg/safety"
	"github.com/lintang-b-s/saferoutex/pkg/tracker"
)

type stopRequest struct {
	Id           string  `json:"id" validate:"required"`
	Lat          float64 `json:"lat" validate:"min=-90,max=90"`
	Lon          float64 `json:"lon" validate:"min=-180,max=180"`
	Priority     string  `json:"priority" validate:"omitempty,oneof=low medium high"`
	WindowStart  int64   `json:"window_start" validate:"omitempty,min=0"`
	WindowEnd    int64   `json:"window_end" validate:"omitempty,min=0,gtefield=WindowStart"`
	WeightKg     float64 `json:"weight_kg" validate:"omitempty,min=0"`
	Instructions string  `json:"instructions"`
}

func (s stopRequest) ToStop() da.Stop {
	var window *da.TimeWindow
	if s.WindowEnd > 0 {
		window = da.NewTimeWindow(time.Unix(s.WindowStart, 0), time.Unix(s.WindowEnd, 0))
	}
	return da.NewStop(s.Id, geo.NewCoordinate(s.Lat, s.Lon), pkg.GetPriority(s.Priority),
		window, s.WeightKg, s.Instructions)
}

type optimizeRequest struct {
	StartLat   float64       `json:"start_lat" validate:"min=-90,max=90"`
	StartLon   float64       `json:"start_lon" validate:"min=-180,max=180"`
	Stops      []stopRequest `json:"stops" validate:"required,min=1,dive"`
	Objectives []string      `json:"objectives" validate:"omitempty,dive,oneof=distance time safety fuel"`
}

func (req optimizeRequest) ToObjectives() []pkg.Objective {
	objectives := make([]pkg.Objective, 0, len(req.Objectives))
	for _, o := range req.Objectives {
		objectives = append(objectives, pkg.GetObjective(o))
	}
	return objectives
}

type positionRequest struct {
	Lat       float64 `json:"lat" validate:"min=-90,max=90"`
	Lon       float64 `json:"lon" validate:"min=-180,max=180"`
	Timestamp int64   `json:"timestamp" validate:"omitempty,min=0"`
}

type deliveredRequest struct {
	StopId string `json:"stop_id" validate:"required"`
}

type scoreRequest struct {
	Lat       float64 `json:"lat" validate:"min=-90,max=90"`
	Lon       float64 `json:"lon" validate:"min=-180,max=180"`
	Timestamp int64   `json:"timestamp" validate:"omitempty,min=0"`
}

type feedbackRequest struct {
	RouteId      string  `json:"route_id"`
	RiderId      string  `json:"rider_id" validate:"required"`
	Lat          float64 `json:"lat" validate:"min=-90,max=90"`
	Lon          float64 `json:"lon" validate:"min=-180,max=180"`
	Rating       int     `json:"rating" validate:"required,min=1,max=5"`
	IncidentType string  `json:"incident_type"`
}

func (req feedbackRequest) ToRecord() safety.FeedbackRecord {
	return safety.FeedbackRecord{
		RouteId:      req.RouteId,
		RiderId:      req.RiderId,
		Coord:        geo.NewCoordinate(req.Lat, req.Lon),
		Rating:       req.Rating,
		IncidentType: req.IncidentType,
		Timestamp:    time.Now(),
	}
}

type segmentResponse struct {
	FromStopId     string  `json:"from_stop_id"`
	ToStopId       string  `json:"to_stop_id"`
	DistanceMeters float64 `json:"distance_meters"`
	DurationSecond float64 `json:"duration_second"`
	SafetyScore    float64 `json:"safety_score"`
	TrafficLevel   string  `json:"traffic_level"`
	Polyline       string  `json:"polyline"`
	Approximate    bool    `json:"approximate,omitempty"`
}

type metricsResponse struct {
	TotalDistanceMeters float64 `json:"total_distance_meters"`
	TotalDurationSecond float64 `json:"total_duration_second"`
	AverageSafetyScore  float64 `json:"average_safety_score"`
	MinSegmentSafety    float64 `json:"min_segment_safety"`
	FuelEstimateLiter   float64 `json:"fuel_estimate_liter"`
}

type routeResponse struct {
	Id         string            `json:"id"`
	VersionId  string            `json:"version_id"`
	Label      string            `json:"label"`
	StopOrder  []string          `json:"stop_order"`
	Segments   []segmentResponse `json:"segments"`
	Metrics    metricsResponse   `json:"metrics"`
	Objectives []string          `json:"objectives"`
	Degraded   bool              `json:"degraded"`
}

func NewRouteResponse(route *da.OptimizedRoute) routeResponse {
	segments := make([]segmentResponse, 0, len(route.GetSegments()))
	for _, s := range route.GetSegments() {
		segments = append(segments, segmentResponse{
			FromStopId:     s.GetFromStopId(),
			ToStopId:       s.GetToStopId(),
			DistanceMeters: s.GetDistanceMeters(),
			DurationSecond: s.GetDurationSecond(),
			SafetyScore:    s.GetSafetyScore(),
			TrafficLevel:   s.GetTrafficLevel().String(),
			Polyline:       s.GetPolyline(),
			Approximate:    s.IsApproximate(),
		})
	}

	m := route.GetMetrics()
	objectives := make([]string, 0, len(route.GetObjectives()))
	for _, o := range route.GetObjectives() {
		objectives = append(objectives, o.String())
	}

	return routeResponse{
		Id:        route.GetId(),
		VersionId: route.GetVersionId(),
		Label:     route.GetLabel(),
		StopOrder: route.GetStopOrder(),
		Segments:  segments,
		Metrics: metricsResponse{
			TotalDistanceMeters: m.GetTotalDistanceMeters(),
			TotalDurationSecond: m.GetTotalDurationSecond(),
			AverageSafetyScore:  m.GetAverageSafetyScore(),
			MinSegmentSafety:    m.GetMinSegmentSafety(),
			FuelEstimateLiter:   m.GetFuelEstimateLiter(),
		},
		Objectives: objectives,
		Degraded:   route.IsDegraded(),
	}
}

type optimizeResponse struct {
	Route        routeResponse   `json:"route"`
	Alternatives []routeResponse `json:"alternatives"`
}

func NewOptimizeResponse(primary *da.OptimizedRoute, alternatives []*da.OptimizedRoute) optimizeResponse {
	alts := make([]routeResponse, 0, len(alternatives))
	for _, alt := range alternatives {
		alts = append(alts, NewRouteResponse(alt))
	}
	return optimizeResponse{Route: NewRouteResponse(primary), Alternatives: alts}
}

type statusResponse struct {
	RouteId   string `json:"route_id"`
	VersionId string `json:"version_id"`
	State     string `json:"state"`
	Degraded  bool   `json:"degraded"`
}

func NewStatusResponse(snap tracker.Snapshot) statusResponse {
	return statusResponse{
		RouteId:   snap.RouteId,
		VersionId: snap.VersionId,
		State:     snap.State.String(),
		Degraded:  snap.Degraded,
	}
}

type scoreResponse struct {
	Score        float64            `json:"score"`
	RiskLevel    string             `json:"risk_level"`
	Factors      map[string]float64 `json:"factors"`
	ModelVersion int                `json:"model_version"`
}

func NewScoreResponse(res safety.ScoreResult) scoreResponse {
	return scoreResponse{
		Score:        res.Score,
		RiskLevel:    res.RiskLevel.String(),
		Factors:      res.Factors,
		ModelVersion: res.ModelVersion,
	}
}

type modelVersionResponse struct {
	Id          int     `json:"id"`
	SampleCount int     `json:"sample_count"`
	MAE         float64 `json:"mae"`
	R2          float64 `json:"r2"`
	TrainedAt   string  `json:"trained_at"`
}

func NewModelVersionResponse(mv *safety.ModelVersion) modelVersionResponse {
	return modelVersionResponse{
		Id:          mv.GetId(),
		SampleCount: mv.GetSampleCount(),
		MAE:         mv.GetMAE(),
		R2:          mv.GetR2(),
		TrainedAt:   mv.GetTrainedAt().Format(time.RFC3339),
	}
}
