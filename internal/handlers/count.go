package handlers

import (
	"io"
	"net/http"
	"time"

	"trafficcam/internal/logger"
	"trafficcam/internal/services"
)

// maxImageBytes bounds an uploaded frame. Traffic camera JPEGs are a
// few hundred kilobytes; 10 MB leaves headroom without letting one
// request exhaust memory.
const maxImageBytes = 10 << 20

// CountHandler accepts one frame and returns the persisted count
// record. Multipart form fields: "image" (file), "camera_id",
// optional "timestamp" (RFC3339, defaults to server time).
func CountHandler(manager *services.Manager, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		r.Body = http.MaxBytesReader(w, r.Body, maxImageBytes)
		if err := r.ParseMultipartForm(maxImageBytes); err != nil {
			writeBadRequest(w, "invalid multipart form: "+err.Error(), logger)
			return
		}

		cameraID := r.FormValue("camera_id")
		if cameraID == "" {
			writeBadRequest(w, "camera_id is required", logger)
			return
		}

		ts := time.Now()
		if v := r.FormValue("timestamp"); v != "" {
			parsed, err := time.Parse(time.RFC3339, v)
			if err != nil {
				writeBadRequest(w, "timestamp must be RFC3339", logger)
				return
			}
			ts = parsed
		}

		file, _, err := r.FormFile("image")
		if err != nil {
			writeBadRequest(w, "image file is required", logger)
			return
		}
		defer file.Close()

		image, err := io.ReadAll(file)
		if err != nil {
			writeBadRequest(w, "failed to read image: "+err.Error(), logger)
			return
		}
		if len(image) == 0 {
			writeBadRequest(w, "image file is empty", logger)
			return
		}

		rec, err := manager.Process(r.Context(), image, cameraID, ts)
		if err != nil {
			writeError(w, err, logger)
			return
		}

		writeJSON(w, http.StatusCreated, rec, logger)
	}
}
