package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/timzifer/dashwidget/internal/errs"
	"github.com/timzifer/dashwidget/registry"
)

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// SuccessEnvelope wraps the payload of a successful request.
type SuccessEnvelope struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
}

func writeSuccess(w http.ResponseWriter, r *http.Request, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(SuccessEnvelope{Success: true, Data: data}); err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("failed to encode success response")
	}
}

func writeError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(ErrorResponse{Code: code, Message: message}); err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Int("status", status).Str("code", code).Msg("failed to encode error response")
	}
}

func handleError(w http.ResponseWriter, r *http.Request, err error) {
	log := zerolog.Ctx(r.Context())

	var (
		notFound      *errs.NotFoundError
		exists        *errs.AlreadyExistsError
		validation    *errs.ValidationError
		database      *errs.DatabaseError
		configMissing *registry.ConfigNotFoundError
		cycle         *registry.CyclicConfigError
	)
	switch {
	case errors.As(err, &notFound):
		log.Warn().Str("error", notFound.Message).Msg("resource not found")
		writeError(w, r, http.StatusNotFound, "not_found", notFound.Message)
	case errors.As(err, &configMissing):
		log.Warn().Err(configMissing).Msg("widget config not found")
		writeError(w, r, http.StatusNotFound, "not_found", configMissing.Error())
	case errors.As(err, &exists):
		log.Warn().Str("error", exists.Message).Msg("resource already exists")
		writeError(w, r, http.StatusConflict, "already_exists", exists.Message)
	case errors.As(err, &validation):
		log.Warn().Str("error", validation.Message).Msg("validation failed")
		writeError(w, r, http.StatusBadRequest, "invalid_input", validation.Message)
	case errors.As(err, &cycle):
		log.Error().Err(cycle).Msg("widget config cycle")
		writeError(w, r, http.StatusUnprocessableEntity, "invalid_config", cycle.Error())
	case errors.As(err, &database):
		log.Error().Str("operation", database.Operation).Err(database.Err).Msg(database.Message)
		writeError(w, r, http.StatusInternalServerError, "internal_error", "An error occurred")
	default:
		log.Error().Err(err).Str("type", fmt.Sprintf("%T", err)).Msg("unexpected error")
		writeError(w, r, http.StatusInternalServerError, "internal_error", "An unexpected error occurred")
	}
}

func decodeJSON(r *http.Request, dst interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return errs.NewValidationError(fmt.Sprintf("invalid request body: %v", err))
	}
	return nil
}
