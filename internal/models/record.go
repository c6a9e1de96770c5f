package models

import "time"

// CountRecord is one persisted observation of vehicle count for a
// camera at a point in time. Records are append-only: once written
// they are never updated.
type CountRecord struct {
	ID           int64     `json:"id"`
	CameraID     string    `json:"camera_id"`
	Timestamp    time.Time `json:"timestamp"`
	VehicleCount int       `json:"vehicle_count"`
	Latitude     float64   `json:"latitude"`
	Longitude    float64   `json:"longitude"`
	Density      float64   `json:"density"`
	Jam          bool      `json:"jam"`
	IsWeekday    bool      `json:"is_weekday"`
	IsPeak       bool      `json:"is_peak"`
}

// RecordFilter contains query options for count records.
type RecordFilter struct {
	CameraID string
	From     time.Time
	To       time.Time
	Limit    int
}

// BoundingBox is a geographic query window. The zero value means no
// geographic filtering, so a degenerate box pinned exactly to the
// origin cannot be expressed.
type BoundingBox struct {
	MinLat float64
	MinLon float64
	MaxLat float64
	MaxLon float64
}

// IsZero reports whether the box has not been set.
func (b BoundingBox) IsZero() bool {
	return b.MinLat == 0 && b.MinLon == 0 && b.MaxLat == 0 && b.MaxLon == 0
}

// SummaryRow aggregates count records for one camera over a time
// range.
type SummaryRow struct {
	CameraID  string  `json:"camera_id"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Records   int     `json:"records"`
	Total     int     `json:"total_vehicles"`
	Mean      float64 `json:"mean_vehicles"`
	Max       int     `json:"max_vehicles"`
	JamCount  int     `json:"jam_count"`
}

// Summary is the response of an aggregate query.
type Summary struct {
	From    time.Time    `json:"from"`
	To      time.Time    `json:"to"`
	Cameras []SummaryRow `json:"cameras"`
}
