package handlers

import (
	"net/http"
	"strconv"
	"time"

	"trafficcam/internal/logger"
	"trafficcam/internal/models"
	"trafficcam/internal/stats"
)

// GetRecordsHandler returns count records, chronologically, optionally
// filtered by camera_id, from, to (RFC3339) and limit.
func GetRecordsHandler(agg *stats.Aggregator, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		filter := &models.RecordFilter{
			CameraID: r.URL.Query().Get("camera_id"),
		}

		var ok bool
		if filter.From, ok = parseTimeParam(w, r, "from", logger); !ok {
			return
		}
		if filter.To, ok = parseTimeParam(w, r, "to", logger); !ok {
			return
		}
		if v := r.URL.Query().Get("limit"); v != "" {
			limit, err := strconv.Atoi(v)
			if err != nil || limit <= 0 {
				writeBadRequest(w, "limit must be a positive integer", logger)
				return
			}
			filter.Limit = limit
		}

		records, err := agg.Records(filter)
		if err != nil {
			writeError(w, err, logger)
			return
		}
		if records == nil {
			records = []models.CountRecord{}
		}

		writeJSON(w, http.StatusOK, records, logger)
	}
}

// GetSummaryHandler returns per-camera aggregates over a time range,
// optionally restricted to a bounding box given as min_lat, min_lon,
// max_lat, max_lon.
func GetSummaryHandler(agg *stats.Aggregator, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		from, ok := parseTimeParam(w, r, "from", logger)
		if !ok {
			return
		}
		to, ok := parseTimeParam(w, r, "to", logger)
		if !ok {
			return
		}

		var box models.BoundingBox
		boxParams := []struct {
			name string
			dst  *float64
		}{
			{"min_lat", &box.MinLat},
			{"min_lon", &box.MinLon},
			{"max_lat", &box.MaxLat},
			{"max_lon", &box.MaxLon},
		}
		boxSet := 0
		for _, p := range boxParams {
			v := r.URL.Query().Get(p.name)
			if v == "" {
				continue
			}
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				writeBadRequest(w, p.name+" must be a number", logger)
				return
			}
			*p.dst = f
			boxSet++
		}
		if boxSet != 0 && boxSet != len(boxParams) {
			writeBadRequest(w, "bounding box requires min_lat, min_lon, max_lat and max_lon", logger)
			return
		}

		summary, err := agg.Summary(from, to, box)
		if err != nil {
			writeError(w, err, logger)
			return
		}

		writeJSON(w, http.StatusOK, summary, logger)
	}
}

// ExportRecordsHandler streams the whole record table as CSV.
func ExportRecordsHandler(agg *stats.Aggregator, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		w.Header().Set("Content-Disposition", `attachment; filename="count_records.csv"`)

		if err := agg.Export(w); err != nil {
			logger.Error("CSV export failed: %v", err)
		}
	}
}

// parseTimeParam reads an optional RFC3339 query parameter. The
// second return value is false when the response has already been
// written.
func parseTimeParam(w http.ResponseWriter, r *http.Request, name string, logger *logger.Logger) (time.Time, bool) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return time.Time{}, true
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		writeBadRequest(w, name+" must be RFC3339", logger)
		return time.Time{}, false
	}
	return t, true
}
