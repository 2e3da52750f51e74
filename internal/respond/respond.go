// Package respond writes the JSON bodies the API returns.
package respond

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/dukerupert/cashtrackr/internal/apperr"
	"github.com/dukerupert/cashtrackr/internal/logging"
)

// JSON writes v with the given status.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// Message writes a bare JSON string, the shape of every success message.
func Message(w http.ResponseWriter, status int, msg string) {
	JSON(w, status, msg)
}

type errorBody struct {
	Error string `json:"error"`
}

type validationBody struct {
	Errors []apperr.FieldError `json:"errors"`
}

// Error renders err. Field errors become {"errors": [...]}, other domain
// errors {"error": msg}. Internal failures are logged and the client only
// sees the generic message.
func Error(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	ae := apperr.From(err)
	if ae.Kind == apperr.KindInternal {
		logger.ErrorContext(r.Context(), "request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"request_id", logging.RequestID(r.Context()),
			"error", err,
		)
		JSON(w, http.StatusInternalServerError, errorBody{Error: apperr.InternalMessage})
		return
	}
	if len(ae.Fields) > 0 {
		JSON(w, ae.Status, validationBody{Errors: ae.Fields})
		return
	}
	JSON(w, ae.Status, errorBody{Error: ae.Message})
}
