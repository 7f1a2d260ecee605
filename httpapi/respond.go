package httpapi

import (
	"errors"
	"net/http"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/MrEthical07/panelcore"
)

type validationBody struct {
	Error      string                `json:"error"`
	Violations []panelcore.Violation `json:"violations"`
}

func writeJSON(w http.ResponseWriter, logger zerolog.Logger, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		logger.Error().Err(err).Msg("marshal response")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	if _, err := w.Write(data); err != nil {
		logger.Debug().Err(err).Msg("write response")
	}
}

// writeError maps err to a status by class. Unauthenticated and forbidden bodies
// never say why.
func writeError(w http.ResponseWriter, logger zerolog.Logger, err error) {
	var verr *panelcore.ValidationError
	switch {
	case errors.As(err, &verr):
		writeJSON(w, logger, http.StatusBadRequest, validationBody{
			Error:      "validation_failed",
			Violations: verr.Violations,
		})
	case errors.Is(err, panelcore.ErrUnauthenticated):
		http.Error(w, "unauthorized", http.StatusUnauthorized)
	case errors.Is(err, panelcore.ErrForbidden):
		http.Error(w, "forbidden", http.StatusForbidden)
	case errors.Is(err, panelcore.ErrNotFound):
		http.Error(w, "not found", http.StatusNotFound)
	case errors.Is(err, panelcore.ErrStorage):
		logger.Error().Err(err).Msg("storage unavailable")
		http.Error(w, "service unavailable", http.StatusServiceUnavailable)
	default:
		logger.Error().Err(err).Msg("unhandled error")
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}
