package handlers

import (
	"net/http"
	"strconv"

	"trafficcam/internal/logger"
	"trafficcam/internal/models"
	"trafficcam/internal/registry"
)

// ListCamerasHandler returns every registered camera.
func ListCamerasHandler(reg *registry.Registry, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, reg.All(), logger)
	}
}

type nearestResponse struct {
	Camera         models.Camera `json:"camera"`
	DistanceMeters float64       `json:"distance_meters"`
}

// NearestCameraHandler returns the registered camera closest to the
// lat/lon query coordinates.
func NearestCameraHandler(reg *registry.Registry, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		lat, err := strconv.ParseFloat(r.URL.Query().Get("lat"), 64)
		if err != nil {
			writeBadRequest(w, "lat must be a number", logger)
			return
		}
		lon, err := strconv.ParseFloat(r.URL.Query().Get("lon"), 64)
		if err != nil {
			writeBadRequest(w, "lon must be a number", logger)
			return
		}

		cam, dist := reg.Nearest(lat, lon)
		writeJSON(w, http.StatusOK, nearestResponse{Camera: cam, DistanceMeters: dist}, logger)
	}
}
