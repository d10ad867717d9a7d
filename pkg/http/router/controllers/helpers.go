package controllers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/lintang-b-s/saferoutex/pkg/util"
	"go.uber.org/zap"
)

type envelope map[string]interface{}

func (api *optimizerAPI) writeJSON(w http.ResponseWriter, status int, data envelope,
	headers http.Header) error {
	js, err := json.MarshalIndent(data, "", "\t")
	if err != nil {
		return err
	}
	js = append(js, '\n')

	for key, value := range headers {
		w.Header()[key] = value
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(js)
	return nil
}

func (api *optimizerAPI) errorResponse(w http.ResponseWriter, r *http.Request,
	status int, message interface{}) {
	env := envelope{"error": message}
	if err := api.writeJSON(w, status, env, nil); err != nil {
		api.log.Error("failed writing error response", zap.Error(err))
		w.WriteHeader(http.StatusInternalServerError)
	}
}

func (api *optimizerAPI) ServerErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	api.log.Error("internal server error",
		zap.String("method", r.Method), zap.String("path", r.URL.Path), zap.Error(err))
	api.errorResponse(w, r, http.StatusInternalServerError,
		"the server encountered a problem and could not process your request")
}

func (api *optimizerAPI) BadRequestResponse(w http.ResponseWriter, r *http.Request, err error) {
	api.errorResponse(w, r, http.StatusBadRequest, err.Error())
}

func (api *optimizerAPI) NotFoundResponse(w http.ResponseWriter, r *http.Request, err error) {
	api.errorResponse(w, r, http.StatusNotFound, err.Error())
}

// getStatusCode map a wrapped service error onto the HTTP status taxonomy.
func (api *optimizerAPI) getStatusCode(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, util.ErrBadParamInput):
		api.BadRequestResponse(w, r, err)
	case errors.Is(err, util.ErrNotFound), errors.Is(err, util.ErrPathNotFound):
		api.NotFoundResponse(w, r, err)
	case errors.Is(err, util.ErrConflict), errors.Is(err, util.ErrModelNotTrained):
		api.errorResponse(w, r, http.StatusConflict, err.Error())
	case errors.Is(err, util.ErrRetrainRejected):
		api.errorResponse(w, r, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, util.ErrProviderUnavailable), errors.Is(err, util.ErrDataUnavailable):
		api.errorResponse(w, r, http.StatusServiceUnavailable, err.Error())
	case errors.Is(err, util.ErrOptimizationTimeout):
		api.errorResponse(w, r, http.StatusGatewayTimeout, err.Error())
	default:
		api.ServerErrorResponse(w, r, err)
	}
}

func translateError(err error, trans ut.Translator) (errs []error) {
	if err == nil {
		return nil
	}
	validatorErrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return []error{err}
	}
	for _, e := range validatorErrs {
		translatedErr := fmt.Errorf("%s", e.Translate(trans))
		errs = append(errs, translatedErr)
	}
	return errs
}
