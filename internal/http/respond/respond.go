package respond

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/MrJamesThe3rd/conciliador/internal/alert"
	"github.com/MrJamesThe3rd/conciliador/internal/logger"
	"github.com/MrJamesThe3rd/conciliador/internal/pipeline"
	"github.com/MrJamesThe3rd/conciliador/internal/rules"
	"github.com/MrJamesThe3rd/conciliador/internal/statement"
	"github.com/MrJamesThe3rd/conciliador/internal/transaction"
)

type errorResponse struct {
	Error string `json:"error"`
}

// JSON writes v with the given status. A nil v writes only the status line.
func JSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	if v == nil {
		w.WriteHeader(status)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		log := logger.FromContext(r.Context())
		log.Error().Err(err).Msg("failed to encode response")
	}
}

func Error(w http.ResponseWriter, r *http.Request, status int, msg string) {
	JSON(w, r, status, errorResponse{Error: msg})
}

// Err maps a service error to its HTTP status. Unknown errors are logged and hidden.
func Err(w http.ResponseWriter, r *http.Request, err error) {
	status := StatusOf(err)
	if status == http.StatusInternalServerError {
		log := logger.FromContext(r.Context())
		log.Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
		Error(w, r, status, "internal error")

		return
	}

	Error(w, r, status, err.Error())
}

func StatusOf(err error) int {
	switch {
	case errors.Is(err, transaction.ErrNotFound),
		errors.Is(err, pipeline.ErrNotFound),
		errors.Is(err, statement.ErrUploadNotFound),
		errors.Is(err, rules.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, pipeline.ErrRunBusy),
		errors.Is(err, pipeline.ErrRunActive),
		errors.Is(err, pipeline.ErrInvalidTransition),
		errors.Is(err, transaction.ErrSuperseded):
		return http.StatusConflict
	case errors.Is(err, transaction.ErrInvalidStatus):
		return http.StatusUnprocessableEntity
	case errors.Is(err, pipeline.ErrInvalidPeriod),
		errors.Is(err, statement.ErrInvalidUpload),
		errors.Is(err, rules.ErrInvalidRule),
		errors.Is(err, alert.ErrInvalidEvent):
		return http.StatusBadRequest
	}

	return http.StatusInternalServerError
}
