package main

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/sideseat/sideseat/internal/apierr"
)

// writeJSON encodes v as the response body with a 200 status.
func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(v)
}

// writeNoContent replies 204 with no body, used by the delete endpoints
// (spec §6).
func writeNoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

// writeError maps an apierr.Kind to its HTTP status and writes a small
// JSON error body. Errors outside the apierr taxonomy are treated as
// internal errors and never echoed to the caller.
func writeError(w http.ResponseWriter, err error) {
	apiErr, ok := apierr.As(err)
	if !ok {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	status := http.StatusInternalServerError
	switch apiErr.Kind {
	case apierr.KindValidation, apierr.KindDecode:
		status = http.StatusBadRequest
	case apierr.KindNotFound:
		status = http.StatusNotFound
	case apierr.KindAuthorization:
		status = http.StatusForbidden
	case apierr.KindBackpressure:
		status = http.StatusServiceUnavailable
		w.Header().Set("Retry-After", strconv.Itoa(apiErr.RetryAfter))
	case apierr.KindStorage:
		status = http.StatusInternalServerError
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": apiErr.Public()})
}
