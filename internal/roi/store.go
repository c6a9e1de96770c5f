// Package roi loads and serves per-camera region-of-interest polygons.
//
// The source is a CSV file with one row per camera:
//
//	camera_id,polygon
//	1001,"[[0,0],[1280,0],[1280,720],[0,720]]"
//
// The polygon column is a JSON array of [x,y] pixel pairs. The store
// is validated eagerly at load time and read-only afterwards, so
// concurrent reads need no locking.
package roi

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"trafficcam/internal/errs"
	"trafficcam/internal/geo"
)

// Store maps camera ids to their countable region.
type Store struct {
	polygons map[string]geo.Polygon
}

// Load reads and validates the ROI table. Any malformed row aborts the
// load with a ConfigError; the service must not start on a partial ROI
// table.
func Load(path string) (*Store, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &errs.ConfigError{Source: path, Reason: "cannot open ROI table", Err: err}
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = 2

	rows, err := r.ReadAll()
	if err != nil {
		return nil, &errs.ConfigError{Source: path, Reason: "malformed CSV", Err: err}
	}

	polygons := make(map[string]geo.Polygon, len(rows))
	for i, row := range rows {
		if i == 0 && strings.EqualFold(strings.TrimSpace(row[0]), "camera_id") {
			continue // optional header
		}

		id := strings.TrimSpace(row[0])
		if id == "" {
			return nil, &errs.ConfigError{Source: path, Reason: fmt.Sprintf("row %d: empty camera id", i+1)}
		}
		if _, dup := polygons[id]; dup {
			return nil, &errs.ConfigError{Source: path, Reason: fmt.Sprintf("row %d: duplicate ROI for camera %q", i+1, id)}
		}

		poly, err := parsePolygon(row[1])
		if err != nil {
			return nil, &errs.ConfigError{Source: path, Reason: fmt.Sprintf("row %d: camera %q", i+1, id), Err: err}
		}
		polygons[id] = poly
	}

	if len(polygons) == 0 {
		return nil, &errs.ConfigError{Source: path, Reason: "no ROI entries"}
	}

	return &Store{polygons: polygons}, nil
}

// parsePolygon decodes a JSON array of [x,y] pairs and rejects
// degenerate rings.
func parsePolygon(s string) (geo.Polygon, error) {
	var pairs [][]float64
	if err := json.Unmarshal([]byte(s), &pairs); err != nil {
		return nil, fmt.Errorf("polygon is not a JSON point array: %w", err)
	}
	if len(pairs) < 3 {
		return nil, fmt.Errorf("polygon has %d vertices, need at least 3", len(pairs))
	}

	poly := make(geo.Polygon, 0, len(pairs))
	for _, p := range pairs {
		if len(p) != 2 {
			return nil, fmt.Errorf("polygon vertex %v is not an [x,y] pair", p)
		}
		poly = append(poly, geo.Point{X: p[0], Y: p[1]})
	}
	return poly, nil
}

// Polygon returns the ROI for a camera, or false if none is
// configured.
func (s *Store) Polygon(cameraID string) (geo.Polygon, bool) {
	poly, ok := s.polygons[cameraID]
	return poly, ok
}

// Contains reports whether the point lies inside the camera's ROI.
// The boundary is inclusive. A camera without a configured ROI
// contains nothing.
func (s *Store) Contains(cameraID string, p geo.Point) bool {
	poly, ok := s.polygons[cameraID]
	if !ok {
		return false
	}
	return poly.Contains(p)
}

// Len returns the number of configured ROIs.
func (s *Store) Len() int { return len(s.polygons) }
