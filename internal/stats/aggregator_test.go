package stats

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"trafficcam/internal/errs"
	"trafficcam/internal/models"
	"trafficcam/internal/registry"
	"trafficcam/internal/repository/sqlite"
)

func newTestAggregator(t *testing.T) *Aggregator {
	t.Helper()
	dir := t.TempDir()

	camPath := filepath.Join(dir, "cameras.csv")
	content := "CAM01,1.29531,103.87107\nCAM02,1.27414,103.85162\n"
	if err := os.WriteFile(camPath, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write camera file: %v", err)
	}
	reg, err := registry.Load(camPath)
	if err != nil {
		t.Fatalf("Failed to load registry: %v", err)
	}

	db, err := sqlite.New(filepath.Join(dir, "counts.db"))
	if err != nil {
		t.Fatalf("Failed to create database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	return New(reg, sqlite.NewCountRepository(db))
}

func TestRecord_RoundTrip(t *testing.T) {
	agg := newTestAggregator(t)
	ts := time.Date(2025, 3, 12, 9, 0, 0, 0, time.UTC) // Wednesday, peak

	rec, err := agg.Record("CAM01", ts, 6)
	if err != nil {
		t.Fatalf("Record failed: %v", err)
	}
	if rec.ID <= 0 {
		t.Errorf("record id = %d, expected positive", rec.ID)
	}
	if rec.Latitude != 1.29531 || rec.Longitude != 103.87107 {
		t.Errorf("coordinates not denormalized: %+v", rec)
	}

	got, err := agg.Query("CAM01", ts.Add(-time.Minute), ts.Add(time.Minute))
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("Query returned %d records, expected 1", len(got))
	}
	if got[0].VehicleCount != 6 || !got[0].Timestamp.Equal(ts) || got[0].CameraID != "CAM01" {
		t.Errorf("round trip mismatch: %+v", got[0])
	}
}

func TestRecord_ZeroCountIsValid(t *testing.T) {
	agg := newTestAggregator(t)
	ts := time.Date(2025, 3, 12, 3, 0, 0, 0, time.UTC)

	rec, err := agg.Record("CAM01", ts, 0)
	if err != nil {
		t.Fatalf("Record failed for zero count: %v", err)
	}
	if rec.VehicleCount != 0 {
		t.Errorf("count = %d, expected 0", rec.VehicleCount)
	}
	if rec.Jam {
		t.Error("zero count should not be a jam")
	}
}

func TestRecord_UnknownCamera(t *testing.T) {
	agg := newTestAggregator(t)

	_, err := agg.Record("CAM99", time.Now(), 3)
	var unknownErr *errs.UnknownCameraError
	if !errors.As(err, &unknownErr) {
		t.Fatalf("expected UnknownCameraError, got %v", err)
	}

	// Nothing must be written for the failed request.
	got, err := agg.Records(&models.RecordFilter{})
	if err != nil {
		t.Fatalf("Records failed: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("found %d records after rejected request, expected 0", len(got))
	}
}

func TestRecord_DuplicateRejectedIdempotently(t *testing.T) {
	agg := newTestAggregator(t)
	ts := time.Date(2025, 3, 12, 9, 0, 0, 0, time.UTC)

	if _, err := agg.Record("CAM01", ts, 4); err != nil {
		t.Fatalf("first Record failed: %v", err)
	}

	_, err := agg.Record("CAM01", ts, 4)
	var dupErr *errs.DuplicateRecordError
	if !errors.As(err, &dupErr) {
		t.Fatalf("expected DuplicateRecordError, got %v", err)
	}

	got, err := agg.Query("CAM01", ts.Add(-time.Minute), ts.Add(time.Minute))
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(got) != 1 {
		t.Errorf("found %d records, expected exactly 1", len(got))
	}
}

func TestRecord_DerivedColumns(t *testing.T) {
	agg := newTestAggregator(t)

	tests := []struct {
		name      string
		ts        time.Time
		count     int
		isWeekday bool
		isPeak    bool
		jam       bool
	}{
		{"weekday morning peak", time.Date(2025, 3, 12, 8, 30, 0, 0, time.UTC), 3, true, true, false},
		{"weekday evening peak boundary", time.Date(2025, 3, 12, 20, 30, 0, 0, time.UTC), 3, true, true, false},
		{"weekday off peak", time.Date(2025, 3, 12, 14, 0, 0, 0, time.UTC), 3, true, false, false},
		{"saturday", time.Date(2025, 3, 15, 8, 30, 0, 0, time.UTC), 3, false, true, false},
		{"jammed", time.Date(2025, 3, 12, 12, 0, 0, 0, time.UTC), 8, true, false, true},
	}

	for _, tt := range tests {
		// Timestamps are distinct across cases, so every record lands.
		rec, err := agg.Record("CAM01", tt.ts, tt.count)
		if err != nil {
			t.Fatalf("%s: Record failed: %v", tt.name, err)
		}
		if rec.IsWeekday != tt.isWeekday {
			t.Errorf("%s: IsWeekday = %v, expected %v", tt.name, rec.IsWeekday, tt.isWeekday)
		}
		if rec.IsPeak != tt.isPeak {
			t.Errorf("%s: IsPeak = %v, expected %v", tt.name, rec.IsPeak, tt.isPeak)
		}
		if rec.Jam != tt.jam {
			t.Errorf("%s: Jam = %v, expected %v", tt.name, rec.Jam, tt.jam)
		}
	}
}

func TestQuery_UnknownCamera(t *testing.T) {
	agg := newTestAggregator(t)
	_, err := agg.Query("CAM99", time.Time{}, time.Time{})
	var unknownErr *errs.UnknownCameraError
	if !errors.As(err, &unknownErr) {
		t.Fatalf("expected UnknownCameraError, got %v", err)
	}
}

func TestSummary_EmptyBoxIsNotAnError(t *testing.T) {
	agg := newTestAggregator(t)
	ts := time.Date(2025, 3, 12, 9, 0, 0, 0, time.UTC)

	if _, err := agg.Record("CAM01", ts, 5); err != nil {
		t.Fatalf("Record failed: %v", err)
	}

	// Bounding box far away from every configured camera.
	summary, err := agg.Summary(ts.Add(-time.Hour), ts.Add(time.Hour), models.BoundingBox{MinLat: 50, MinLon: 0, MaxLat: 51, MaxLon: 1})
	if err != nil {
		t.Fatalf("Summary failed: %v", err)
	}
	if len(summary.Cameras) != 0 {
		t.Errorf("summary has %d cameras, expected 0", len(summary.Cameras))
	}
}

func TestSummary_PerCamera(t *testing.T) {
	agg := newTestAggregator(t)
	base := time.Date(2025, 3, 12, 9, 0, 0, 0, time.UTC)

	for i, n := range []int{2, 4} {
		if _, err := agg.Record("CAM01", base.Add(time.Duration(i)*time.Minute), n); err != nil {
			t.Fatalf("Record failed: %v", err)
		}
	}
	if _, err := agg.Record("CAM02", base, 10); err != nil {
		t.Fatalf("Record failed: %v", err)
	}

	summary, err := agg.Summary(base.Add(-time.Hour), base.Add(time.Hour), models.BoundingBox{})
	if err != nil {
		t.Fatalf("Summary failed: %v", err)
	}
	if len(summary.Cameras) != 2 {
		t.Fatalf("summary has %d cameras, expected 2", len(summary.Cameras))
	}

	cam01 := summary.Cameras[0]
	if cam01.CameraID != "CAM01" || cam01.Total != 6 || cam01.Mean != 3 {
		t.Errorf("CAM01 summary wrong: %+v", cam01)
	}
}
