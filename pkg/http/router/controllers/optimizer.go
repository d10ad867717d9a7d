package controllers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	enTranslations "github.com/go-playground/validator/v10/translations/en"
	"github.com/julienschmidt/httprouter"
	da "github.com/lintang-b-s/saferoutex/pkg/datastructure"
	"github.com/lintang-b-s/saferoutex/pkg/geo"
	helper "github.com/lintang-b-s/saferoutex/pkg/http/router/routerhelper"
	"github.com/lintang-b-s/saferoutex/pkg/util"
	"go.uber.org/zap"
)

type optimizerAPI struct {
	optimizerService OptimizerService
	safetyService    SafetyService
	log              *zap.Logger
}

func New(optimizerService OptimizerService, safetyService SafetyService,
	log *zap.Logger) *optimizerAPI {
	return &optimizerAPI{
		optimizerService: optimizerService,
		safetyService:    safetyService,
		log:              log,
	}
}

func (api *optimizerAPI) Routes(group *helper.RouteGroup) {
	group.POST("/routes/optimize", api.optimize)
	group.GET("/routes/:id", api.route)
	group.GET("/routes/:id/status", api.status)
	group.POST("/routes/:id/position", api.reportPosition)
	group.POST("/routes/:id/delivered", api.markDelivered)
	group.POST("/routes/:id/cancel", api.cancel)

	group.POST("/safety/score", api.scoreLocation)
	group.POST("/safety/feedback", api.submitFeedback)
	group.POST("/safety/retrain", api.retrain)
	group.GET("/safety/model", api.modelVersion)
}

func (api *optimizerAPI) validateRequest(w http.ResponseWriter, r *http.Request,
	request interface{}) bool {
	validate := validator.New()
	if err := validate.Struct(request); err != nil {
		english := en.New()
		uni := ut.New(english, english)
		trans, _ := uni.GetTranslator("en")
		_ = enTranslations.RegisterDefaultTranslations(validate, trans)
		vv := translateError(err, trans)
		vvString := []string{}
		for _, v := range vv {
			vvString = append(vvString, v.Error())
		}
		api.BadRequestResponse(w, r, fmt.Errorf("validation error: %v", vvString))
		return false
	}
	return true
}

func (api *optimizerAPI) decodeBody(w http.ResponseWriter, r *http.Request,
	request interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(request); err != nil {
		api.BadRequestResponse(w, r, err)
		return false
	}
	if err := r.Body.Close(); err != nil {
		api.ServerErrorResponse(w, r, err)
		return false
	}
	return true
}

func (api *optimizerAPI) optimize(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
	var request optimizeRequest
	if !api.decodeBody(w, r, &request) {
		return
	}
	if !api.validateRequest(w, r, request) {
		return
	}

	stops := make([]da.Stop, 0, len(request.Stops))
	for _, s := range request.Stops {
		stops = append(stops, s.ToStop())
	}

	primary, alternatives, err := api.optimizerService.Optimize(r.Context(),
		geo.NewCoordinate(request.StartLat, request.StartLon), stops, request.ToObjectives())
	if err != nil {
		api.getStatusCode(w, r, err)
		return
	}

	headers := make(http.Header)
	if err := api.writeJSON(w, http.StatusOK,
		envelope{"data": NewOptimizeResponse(primary, alternatives)}, headers); err != nil {
		api.ServerErrorResponse(w, r, err)
	}
}

func (api *optimizerAPI) route(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
	route, err := api.optimizerService.Route(p.ByName("id"))
	if err != nil {
		api.getStatusCode(w, r, err)
		return
	}

	headers := make(http.Header)
	if err := api.writeJSON(w, http.StatusOK,
		envelope{"data": NewRouteResponse(route)}, headers); err != nil {
		api.ServerErrorResponse(w, r, err)
	}
}

func (api *optimizerAPI) status(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
	snap, err := api.optimizerService.Status(p.ByName("id"))
	if err != nil {
		api.getStatusCode(w, r, err)
		return
	}

	headers := make(http.Header)
	if err := api.writeJSON(w, http.StatusOK,
		envelope{"data": NewStatusResponse(snap)}, headers); err != nil {
		api.ServerErrorResponse(w, r, err)
	}
}

func (api *optimizerAPI) reportPosition(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
	var request positionRequest
	if !api.decodeBody(w, r, &request) {
		return
	}
	if !api.validateRequest(w, r, request) {
		return
	}

	timestamp := time.Now()
	if request.Timestamp > 0 {
		timestamp = time.Unix(request.Timestamp, 0)
	}

	snap, err := api.optimizerService.ReportPosition(p.ByName("id"),
		geo.NewCoordinate(request.Lat, request.Lon), timestamp)
	if err != nil {
		api.getStatusCode(w, r, err)
		return
	}

	headers := make(http.Header)
	if err := api.writeJSON(w, http.StatusOK,
		envelope{"data": NewStatusResponse(snap)}, headers); err != nil {
		api.ServerErrorResponse(w, r, err)
	}
}

func (api *optimizerAPI) markDelivered(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
	var request deliveredRequest
	if !api.decodeBody(w, r, &request) {
		return
	}
	if !api.validateRequest(w, r, request) {
		return
	}

	snap, err := api.optimizerService.MarkDelivered(p.ByName("id"), request.StopId)
	if err != nil {
		api.getStatusCode(w, r, err)
		return
	}

	headers := make(http.Header)
	if err := api.writeJSON(w, http.StatusOK,
		envelope{"data": NewStatusResponse(snap)}, headers); err != nil {
		api.ServerErrorResponse(w, r, err)
	}
}

func (api *optimizerAPI) cancel(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
	snap, err := api.optimizerService.CancelRoute(p.ByName("id"))
	if err != nil {
		api.getStatusCode(w, r, err)
		return
	}

	headers := make(http.Header)
	if err := api.writeJSON(w, http.StatusOK,
		envelope{"data": NewStatusResponse(snap)}, headers); err != nil {
		api.ServerErrorResponse(w, r, err)
	}
}

func (api *optimizerAPI) scoreLocation(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
	var request scoreRequest
	if !api.decodeBody(w, r, &request) {
		return
	}
	if !api.validateRequest(w, r, request) {
		return
	}

	at := time.Now()
	if request.Timestamp > 0 {
		at = time.Unix(request.Timestamp, 0)
	}

	result := api.safetyService.ScoreLocation(r.Context(),
		geo.NewCoordinate(request.Lat, request.Lon), at)

	headers := make(http.Header)
	if err := api.writeJSON(w, http.StatusOK,
		envelope{"data": NewScoreResponse(result)}, headers); err != nil {
		api.ServerErrorResponse(w, r, err)
	}
}

func (api *optimizerAPI) submitFeedback(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
	var request feedbackRequest
	if !api.decodeBody(w, r, &request) {
		return
	}
	if !api.validateRequest(w, r, request) {
		return
	}

	if err := api.safetyService.SubmitFeedback(request.ToRecord()); err != nil {
		api.getStatusCode(w, r, err)
		return
	}

	headers := make(http.Header)
	if err := api.writeJSON(w, http.StatusAccepted,
		envelope{"data": "feedback accepted"}, headers); err != nil {
		api.ServerErrorResponse(w, r, err)
	}
}

func (api *optimizerAPI) retrain(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
	mv, err := api.safetyService.RetrainNow(r.Context())
	if err != nil {
		api.getStatusCode(w, r, err)
		return
	}

	headers := make(http.Header)
	if err := api.writeJSON(w, http.StatusOK,
		envelope{"data": NewModelVersionResponse(mv)}, headers); err != nil {
		api.ServerErrorResponse(w, r, err)
	}
}

func (api *optimizerAPI) modelVersion(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
	mv := api.safetyService.ActiveModelVersion()
	if mv == nil {
		api.getStatusCode(w, r, util.WrapErrorf(nil, util.ErrModelNotTrained,
			"no trained model version is active, scoring uses the rule-based fallback"))
		return
	}

	headers := make(http.Header)
	if err := api.writeJSON(w, http.StatusOK,
		envelope{"data": NewModelVersionResponse(mv)}, headers); err != nil {
		api.ServerErrorResponse(w, r, err)
	}
}
