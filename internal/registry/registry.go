// Package registry loads and serves the camera identity table.
//
// The source is a CSV file with one row per camera:
//
//	camera_id,latitude,longitude
//	1001,1.29531,103.87107
//
// The registry is validated eagerly at load time and read-only
// afterwards.
package registry

import (
	"encoding/csv"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"trafficcam/internal/errs"
	"trafficcam/internal/geo"
	"trafficcam/internal/models"
)

// Registry maps camera ids to their geographic coordinates.
type Registry struct {
	cameras map[string]models.Camera
}

// Load reads and validates the camera table. Duplicate ids and
// out-of-range coordinates abort the load with a ConfigError.
func Load(path string) (*Registry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &errs.ConfigError{Source: path, Reason: "cannot open camera table", Err: err}
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = 3

	rows, err := r.ReadAll()
	if err != nil {
		return nil, &errs.ConfigError{Source: path, Reason: "malformed CSV", Err: err}
	}

	cameras := make(map[string]models.Camera, len(rows))
	for i, row := range rows {
		if i == 0 && strings.EqualFold(strings.TrimSpace(row[0]), "camera_id") {
			continue // optional header
		}

		id := strings.TrimSpace(row[0])
		if id == "" {
			return nil, &errs.ConfigError{Source: path, Reason: fmt.Sprintf("row %d: empty camera id", i+1)}
		}
		if _, dup := cameras[id]; dup {
			return nil, &errs.ConfigError{Source: path, Reason: fmt.Sprintf("row %d: duplicate camera id %q", i+1, id)}
		}

		lat, err := strconv.ParseFloat(strings.TrimSpace(row[1]), 64)
		if err != nil {
			return nil, &errs.ConfigError{Source: path, Reason: fmt.Sprintf("row %d: camera %q: bad latitude", i+1, id), Err: err}
		}
		lon, err := strconv.ParseFloat(strings.TrimSpace(row[2]), 64)
		if err != nil {
			return nil, &errs.ConfigError{Source: path, Reason: fmt.Sprintf("row %d: camera %q: bad longitude", i+1, id), Err: err}
		}
		if lat < -90 || lat > 90 {
			return nil, &errs.ConfigError{Source: path, Reason: fmt.Sprintf("row %d: camera %q: latitude %v outside [-90,90]", i+1, id, lat)}
		}
		if lon < -180 || lon > 180 {
			return nil, &errs.ConfigError{Source: path, Reason: fmt.Sprintf("row %d: camera %q: longitude %v outside [-180,180]", i+1, id, lon)}
		}

		cameras[id] = models.Camera{ID: id, Latitude: lat, Longitude: lon}
	}

	if len(cameras) == 0 {
		return nil, &errs.ConfigError{Source: path, Reason: "no camera entries"}
	}

	return &Registry{cameras: cameras}, nil
}

// Lookup returns the camera for the given id or an
// UnknownCameraError.
func (r *Registry) Lookup(cameraID string) (models.Camera, error) {
	cam, ok := r.cameras[cameraID]
	if !ok {
		return models.Camera{}, &errs.UnknownCameraError{CameraID: cameraID}
	}
	return cam, nil
}

// Has reports whether the camera id is registered.
func (r *Registry) Has(cameraID string) bool {
	_, ok := r.cameras[cameraID]
	return ok
}

// All returns every registered camera sorted by id.
func (r *Registry) All() []models.Camera {
	cams := make([]models.Camera, 0, len(r.cameras))
	for _, cam := range r.cameras {
		cams = append(cams, cam)
	}
	sort.Slice(cams, func(i, j int) bool { return cams[i].ID < cams[j].ID })
	return cams
}

// Nearest returns the registered camera closest to the given
// coordinate by great-circle distance, with the distance in meters.
func (r *Registry) Nearest(lat, lon float64) (models.Camera, float64) {
	var best models.Camera
	bestDist := -1.0
	for _, cam := range r.cameras {
		d := geo.Haversine(lat, lon, cam.Latitude, cam.Longitude)
		if bestDist < 0 || d < bestDist || (d == bestDist && cam.ID < best.ID) {
			best, bestDist = cam, d
		}
	}
	return best, bestDist
}

// Len returns the number of registered cameras.
func (r *Registry) Len() int { return len(r.cameras) }
