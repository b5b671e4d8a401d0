// Package handlers holds the JSON response helpers shared by every HTTP
// handler in the studio service.
package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// RespondJSON writes data as a JSON body with the given status code.
func RespondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// RespondError writes the error as an {"error": "..."} JSON body. Server
// faults are logged at error level, client faults at warn.
func RespondError(w http.ResponseWriter, logger *slog.Logger, status int, err error) {
	if status >= http.StatusInternalServerError {
		logger.Error("request failed", "error", err, "status", status)
	} else {
		logger.Warn("request rejected", "error", err, "status", status)
	}
	RespondJSON(w, status, map[string]string{"error": err.Error()})
}
