package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"trafficcam/internal/logger"
	"trafficcam/internal/models"
	"trafficcam/internal/registry"
	"trafficcam/internal/repository/sqlite"
	ws "trafficcam/internal/services/websocket"
	"trafficcam/internal/stats"
)

func newTestFixture(t *testing.T) (*stats.Aggregator, *registry.Registry, *logger.Logger) {
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

	log := logger.New(filepath.Join(dir, "logs"))
	return stats.New(reg, sqlite.NewCountRepository(db)), reg, log
}

func TestGetRecordsHandler(t *testing.T) {
	agg, _, log := newTestFixture(t)
	ts := time.Date(2025, 3, 12, 9, 0, 0, 0, time.UTC)

	if _, err := agg.Record("CAM01", ts, 5); err != nil {
		t.Fatalf("Record failed: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/records?camera_id=CAM01", nil)
	rr := httptest.NewRecorder()
	GetRecordsHandler(agg, log)(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, expected 200", rr.Code)
	}

	var records []models.CountRecord
	if err := json.Unmarshal(rr.Body.Bytes(), &records); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if len(records) != 1 || records[0].VehicleCount != 5 {
		t.Errorf("unexpected records: %+v", records)
	}
}

func TestGetRecordsHandler_EmptyIsJSONArray(t *testing.T) {
	agg, _, log := newTestFixture(t)

	req := httptest.NewRequest(http.MethodGet, "/api/records", nil)
	rr := httptest.NewRecorder()
	GetRecordsHandler(agg, log)(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, expected 200", rr.Code)
	}
	if strings.TrimSpace(rr.Body.String()) != "[]" {
		t.Errorf("body = %q, expected empty JSON array", rr.Body.String())
	}
}

func TestGetRecordsHandler_BadParams(t *testing.T) {
	agg, _, log := newTestFixture(t)

	for _, url := range []string{
		"/api/records?from=yesterday",
		"/api/records?to=tomorrow",
		"/api/records?limit=-5",
	} {
		req := httptest.NewRequest(http.MethodGet, url, nil)
		rr := httptest.NewRecorder()
		GetRecordsHandler(agg, log)(rr, req)
		if rr.Code != http.StatusBadRequest {
			t.Errorf("%s: status = %d, expected 400", url, rr.Code)
		}
	}
}

func TestGetSummaryHandler(t *testing.T) {
	agg, _, log := newTestFixture(t)
	ts := time.Date(2025, 3, 12, 9, 0, 0, 0, time.UTC)

	if _, err := agg.Record("CAM01", ts, 4); err != nil {
		t.Fatalf("Record failed: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/summary", nil)
	rr := httptest.NewRecorder()
	GetSummaryHandler(agg, log)(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, expected 200", rr.Code)
	}

	var summary models.Summary
	if err := json.Unmarshal(rr.Body.Bytes(), &summary); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if len(summary.Cameras) != 1 || summary.Cameras[0].Total != 4 {
		t.Errorf("unexpected summary: %+v", summary)
	}
}

func TestGetSummaryHandler_PartialBoundingBox(t *testing.T) {
	agg, _, log := newTestFixture(t)

	req := httptest.NewRequest(http.MethodGet, "/api/summary?min_lat=1.0&max_lat=2.0", nil)
	rr := httptest.NewRecorder()
	GetSummaryHandler(agg, log)(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Errorf("status = %d, expected 400 for partial box", rr.Code)
	}
}

func TestGetSummaryHandler_ExcludingBox(t *testing.T) {
	agg, _, log := newTestFixture(t)
	ts := time.Date(2025, 3, 12, 9, 0, 0, 0, time.UTC)

	if _, err := agg.Record("CAM01", ts, 4); err != nil {
		t.Fatalf("Record failed: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/summary?min_lat=50&min_lon=0&max_lat=51&max_lon=1", nil)
	rr := httptest.NewRecorder()
	GetSummaryHandler(agg, log)(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, expected 200", rr.Code)
	}

	var summary models.Summary
	if err := json.Unmarshal(rr.Body.Bytes(), &summary); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if len(summary.Cameras) != 0 {
		t.Errorf("summary has %d cameras, expected 0", len(summary.Cameras))
	}
}

func TestExportRecordsHandler(t *testing.T) {
	agg, _, log := newTestFixture(t)
	ts := time.Date(2025, 3, 12, 9, 0, 0, 0, time.UTC)

	if _, err := agg.Record("CAM01", ts, 4); err != nil {
		t.Fatalf("Record failed: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/records/export", nil)
	rr := httptest.NewRecorder()
	ExportRecordsHandler(agg, log)(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, expected 200", rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/csv") {
		t.Errorf("Content-Type = %q, expected text/csv", ct)
	}
	if !strings.Contains(rr.Body.String(), "CAM01") {
		t.Errorf("export missing record row: %q", rr.Body.String())
	}
}

func TestListCamerasHandler(t *testing.T) {
	_, reg, log := newTestFixture(t)

	req := httptest.NewRequest(http.MethodGet, "/api/cameras", nil)
	rr := httptest.NewRecorder()
	ListCamerasHandler(reg, log)(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, expected 200", rr.Code)
	}

	var cameras []models.Camera
	if err := json.Unmarshal(rr.Body.Bytes(), &cameras); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if len(cameras) != 2 {
		t.Errorf("got %d cameras, expected 2", len(cameras))
	}
}

func TestNearestCameraHandler(t *testing.T) {
	_, reg, log := newTestFixture(t)

	req := httptest.NewRequest(http.MethodGet, "/api/cameras/nearest?lat=1.2950&lon=103.8710", nil)
	rr := httptest.NewRecorder()
	NearestCameraHandler(reg, log)(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, expected 200", rr.Code)
	}

	var resp struct {
		Camera models.Camera `json:"camera"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if resp.Camera.ID != "CAM01" {
		t.Errorf("nearest = %s, expected CAM01", resp.Camera.ID)
	}
}

func TestNearestCameraHandler_MissingCoords(t *testing.T) {
	_, reg, log := newTestFixture(t)

	req := httptest.NewRequest(http.MethodGet, "/api/cameras/nearest", nil)
	rr := httptest.NewRecorder()
	NearestCameraHandler(reg, log)(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Errorf("status = %d, expected 400", rr.Code)
	}
}

func TestLiveWebsocketHandler_PingsViewers(t *testing.T) {
	_, _, log := newTestFixture(t)
	hub := ws.NewHubService(log)
	go hub.Run()

	old := pingPeriod
	pingPeriod = 20 * time.Millisecond
	defer func() { pingPeriod = old }()

	srv := httptest.NewServer(LiveWebsocketHandler(hub, log))
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	if err != nil {
		t.Fatalf("Failed to dial: %v", err)
	}
	defer conn.Close()

	pinged := make(chan struct{}, 1)
	conn.SetPingHandler(func(appData string) error {
		select {
		case pinged <- struct{}{}:
		default:
		}
		return conn.WriteControl(websocket.PongMessage, nil, time.Now().Add(time.Second))
	})

	// Control frames are only processed while reading.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	// A viewer that never sends anything must still be kept alive.
	select {
	case <-pinged:
	case <-time.After(time.Second):
		t.Error("no ping received from the server")
	}
}
