package handlers

import (
	"encoding/json"
	"net/http"

	"trafficcam/internal/errs"
	"trafficcam/internal/logger"
)

// errorResponse is the JSON shape of every failed request.
type errorResponse struct {
	Error string    `json:"error"`
	Kind  errs.Kind `json:"kind,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}, logger *logger.Logger) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("Error encoding JSON response: %v", err)
	}
}

// writeError maps the error taxonomy to HTTP statuses: unknown camera
// 404, duplicate record 409, inference failure 502, anything else 500.
func writeError(w http.ResponseWriter, err error, logger *logger.Logger) {
	status := http.StatusInternalServerError
	switch errs.KindOf(err) {
	case errs.KindUnknownCamera:
		status = http.StatusNotFound
	case errs.KindDuplicateRecord:
		status = http.StatusConflict
	case errs.KindInference:
		status = http.StatusBadGateway
	}

	if status == http.StatusInternalServerError {
		logger.Error("Request failed: %v", err)
	} else {
		logger.Warning("Request rejected: %v", err)
	}

	writeJSON(w, status, errorResponse{Error: err.Error(), Kind: errs.KindOf(err)}, logger)
}

func writeBadRequest(w http.ResponseWriter, msg string, logger *logger.Logger) {
	writeJSON(w, http.StatusBadRequest, errorResponse{Error: msg}, logger)
}
