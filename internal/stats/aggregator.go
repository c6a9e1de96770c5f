// Package stats turns counts into durable, queryable per-camera
// time-series records and answers aggregate queries.
package stats

import (
	"io"
	"sync"
	"time"

	"trafficcam/internal/models"
	"trafficcam/internal/registry"
	"trafficcam/internal/repository"
)

// Density model: counts are observed over three lanes of roughly
// 100 m, so density is vehicles per lane-kilometer over 0.3 km. Above
// jamDensity the road segment is considered jammed.
const (
	observedLaneKm = 0.100 * 3
	jamDensity     = 23.33
)

// peakRange is a daily local-time window.
type peakRange struct {
	start, end time.Duration // offset from midnight
}

var peakHours = []peakRange{
	{start: 8 * time.Hour, end: 10 * time.Hour},
	{start: 18 * time.Hour, end: 20*time.Hour + 30*time.Minute},
}

// Aggregator validates counts against the registry, denormalizes
// camera coordinates, and appends records through the repository.
// Writes for the same camera are serialized to keep the per-camera
// series in timestamp order under concurrent requests.
type Aggregator struct {
	registry *registry.Registry
	repo     repository.CountRepository

	mu      sync.Mutex
	writers map[string]*sync.Mutex
}

// New creates an Aggregator.
func New(reg *registry.Registry, repo repository.CountRepository) *Aggregator {
	return &Aggregator{
		registry: reg,
		repo:     repo,
		writers:  make(map[string]*sync.Mutex),
	}
}

// Record appends one observation. The camera must exist in the
// registry; a duplicate (camera, timestamp) is rejected by the store
// with DuplicateRecordError and nothing is written. A count of zero is
// a legitimate observation and is recorded like any other.
func (a *Aggregator) Record(cameraID string, ts time.Time, count int) (*models.CountRecord, error) {
	cam, err := a.registry.Lookup(cameraID)
	if err != nil {
		return nil, err
	}

	density := float64(count) / observedLaneKm
	rec := &models.CountRecord{
		CameraID:     cam.ID,
		Timestamp:    ts,
		VehicleCount: count,
		Latitude:     cam.Latitude,
		Longitude:    cam.Longitude,
		Density:      density,
		Jam:          density >= jamDensity,
		IsWeekday:    isWeekday(ts),
		IsPeak:       isPeak(ts),
	}

	w := a.writer(cameraID)
	w.Lock()
	defer w.Unlock()

	id, err := a.repo.Insert(rec)
	if err != nil {
		return nil, err
	}
	rec.ID = id
	return rec, nil
}

// Query returns the camera's records within [from, to] in
// chronological order.
func (a *Aggregator) Query(cameraID string, from, to time.Time) ([]models.CountRecord, error) {
	if _, err := a.registry.Lookup(cameraID); err != nil {
		return nil, err
	}
	return a.repo.Query(&models.RecordFilter{CameraID: cameraID, From: from, To: to})
}

// Records returns records for all cameras matching the filter.
func (a *Aggregator) Records(filter *models.RecordFilter) ([]models.CountRecord, error) {
	return a.repo.Query(filter)
}

// Summary aggregates per camera over a time range, optionally limited
// to a geographic bounding box. A box covering no cameras yields an
// empty summary, not an error.
func (a *Aggregator) Summary(from, to time.Time, box models.BoundingBox) (*models.Summary, error) {
	rows, err := a.repo.Summary(from, to, box)
	if err != nil {
		return nil, err
	}
	if rows == nil {
		rows = []models.SummaryRow{}
	}
	return &models.Summary{From: from, To: to, Cameras: rows}, nil
}

// Export writes every record as CSV.
func (a *Aggregator) Export(w io.Writer) error {
	return a.repo.ExportCSV(w)
}

// writer returns the per-camera write lock, creating it on first use.
func (a *Aggregator) writer(cameraID string) *sync.Mutex {
	a.mu.Lock()
	defer a.mu.Unlock()
	w, ok := a.writers[cameraID]
	if !ok {
		w = &sync.Mutex{}
		a.writers[cameraID] = w
	}
	return w
}

func isWeekday(ts time.Time) bool {
	switch ts.Weekday() {
	case time.Saturday, time.Sunday:
		return false
	}
	return true
}

func isPeak(ts time.Time) bool {
	midnight := time.Date(ts.Year(), ts.Month(), ts.Day(), 0, 0, 0, 0, ts.Location())
	offset := ts.Sub(midnight)
	for _, p := range peakHours {
		if offset >= p.start && offset <= p.end {
			return true
		}
	}
	return false
}
