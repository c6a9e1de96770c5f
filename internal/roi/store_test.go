package roi

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"trafficcam/internal/errs"
	"trafficcam/internal/geo"
)

func writeROIFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "rois.csv")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write ROI file: %v", err)
	}
	return path
}

func TestLoad_Valid(t *testing.T) {
	path := writeROIFile(t, `camera_id,polygon
CAM01,"[[0,0],[100,0],[100,100],[0,100]]"
CAM02,"[[10,10],[200,10],[105,180]]"
`)

	store, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if store.Len() != 2 {
		t.Errorf("Len = %d, expected 2", store.Len())
	}
	if _, ok := store.Polygon("CAM01"); !ok {
		t.Error("CAM01 polygon should exist")
	}
	if _, ok := store.Polygon("CAM99"); ok {
		t.Error("CAM99 polygon should not exist")
	}
}

func TestLoad_NoHeader(t *testing.T) {
	path := writeROIFile(t, `CAM01,"[[0,0],[100,0],[100,100],[0,100]]"
`)

	store, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if store.Len() != 1 {
		t.Errorf("Len = %d, expected 1", store.Len())
	}
}

func TestLoad_ConfigErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"degenerate polygon", `CAM01,"[[0,0],[100,0]]"` + "\n"},
		{"non-numeric coordinates", `CAM01,"[[0,0],[x,0],[100,100]]"` + "\n"},
		{"not a point array", `CAM01,"{}"` + "\n"},
		{"vertex not a pair", `CAM01,"[[0,0],[1,2,3],[100,100]]"` + "\n"},
		{"empty camera id", `,"[[0,0],[100,0],[100,100]]"` + "\n"},
		{"duplicate camera", `CAM01,"[[0,0],[100,0],[100,100]]"` + "\n" + `CAM01,"[[0,0],[50,0],[50,50]]"` + "\n"},
		{"empty file", ""},
	}

	for _, tt := range tests {
		path := writeROIFile(t, tt.content)
		_, err := Load(path)
		if err == nil {
			t.Errorf("%s: expected error, got nil", tt.name)
			continue
		}
		var cfgErr *errs.ConfigError
		if !errors.As(err, &cfgErr) {
			t.Errorf("%s: expected ConfigError, got %T: %v", tt.name, err, err)
		}
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.csv"))
	var cfgErr *errs.ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("expected ConfigError for missing file, got %v", err)
	}
}

func TestContains_RectangularROI(t *testing.T) {
	path := writeROIFile(t, `CAM01,"[[0,0],[100,0],[100,100],[0,100]]"
`)
	store, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if !store.Contains("CAM01", geo.Point{X: 50, Y: 50}) {
		t.Error("centroid (50,50) should be inside the ROI")
	}
	if store.Contains("CAM01", geo.Point{X: 150, Y: 150}) {
		t.Error("centroid (150,150) should be outside the ROI")
	}
	if !store.Contains("CAM01", geo.Point{X: 100, Y: 50}) {
		t.Error("boundary point should be inside (inclusive rule)")
	}
	if store.Contains("CAM99", geo.Point{X: 50, Y: 50}) {
		t.Error("unconfigured camera should contain nothing")
	}
}
