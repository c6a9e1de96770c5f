package services

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"time"

	"trafficcam/internal/counter"
	"trafficcam/internal/detector"
	"trafficcam/internal/errs"
	"trafficcam/internal/logger"
	"trafficcam/internal/models"
	"trafficcam/internal/registry"
	"trafficcam/internal/services/websocket"
	"trafficcam/internal/stats"
)

// Manager runs the inference → count → record pipeline for one
// request. Detector backends are pooled: each holds its own network,
// so independent requests infer concurrently without a global lock.
type Manager struct {
	pool             chan detector.Detector
	registry         *registry.Registry
	counter          *counter.Counter
	aggregator       *stats.Aggregator
	hub              *websocket.HubService
	logger           *logger.Logger
	inferenceTimeout time.Duration
}

// LiveEvent is the message broadcast to live viewers after each
// processed frame.
type LiveEvent struct {
	Record     *models.CountRecord `json:"record"`
	Detections []models.Detection  `json:"detections"`
	Image      string              `json:"image,omitempty"` // base64 JPEG with boxes drawn
}

func NewManager(detectors []detector.Detector, reg *registry.Registry, cnt *counter.Counter,
	agg *stats.Aggregator, hub *websocket.HubService, inferenceTimeout time.Duration, logger *logger.Logger) *Manager {

	pool := make(chan detector.Detector, len(detectors))
	for _, d := range detectors {
		pool <- d
	}

	m := &Manager{
		pool:             pool,
		registry:         reg,
		counter:          cnt,
		aggregator:       agg,
		hub:              hub,
		logger:           logger,
		inferenceTimeout: inferenceTimeout,
	}

	m.logger.Info("Manager started with %d detector worker(s)", len(detectors))
	return m
}

// Process runs one full cycle for a frame and returns the persisted
// record. The camera is validated before any inference work; a failed
// cycle records nothing.
func (m *Manager) Process(ctx context.Context, image []byte, cameraID string, ts time.Time) (*models.CountRecord, error) {
	if !m.registry.Has(cameraID) {
		return nil, &errs.UnknownCameraError{CameraID: cameraID}
	}

	d := <-m.pool
	detections, err := m.detect(ctx, d, image)
	m.release(d)
	if err != nil {
		return nil, err
	}

	count, err := m.counter.Count(cameraID, detections)
	if err != nil {
		return nil, err
	}

	rec, err := m.aggregator.Record(cameraID, ts, count)
	if err != nil {
		return nil, err
	}

	m.logger.Info("Camera %s: %d vehicle(s) at %s", cameraID, count, ts.Format(time.RFC3339))

	go m.publish(image, detections, rec)
	return rec, nil
}

// release returns a worker to the pool. A timed-out forward pass keeps
// the network busy past Detect's return, and the networks are not safe
// for concurrent calls, so a worker reporting in-flight work is
// re-pooled only once that work has settled.
func (m *Manager) release(d detector.Detector) {
	idler, ok := d.(detector.Idler)
	if !ok {
		m.pool <- d
		return
	}
	select {
	case <-idler.Idle():
		m.pool <- d
	default:
		m.logger.Warning("Detector still busy after request deadline, re-pooling when it settles")
		go func() {
			<-idler.Idle()
			m.pool <- d
		}()
	}
}

// detect runs inference under the configured timeout.
func (m *Manager) detect(ctx context.Context, d detector.Detector, image []byte) ([]models.Detection, error) {
	ictx, cancel := context.WithTimeout(ctx, m.inferenceTimeout)
	defer cancel()
	return d.Detect(ictx, image)
}

// publish sends the record (and an annotated frame, when someone is
// watching) to the live hub. Failures here never affect the request.
func (m *Manager) publish(image []byte, detections []models.Detection, rec *models.CountRecord) {
	event := LiveEvent{Record: rec, Detections: detections}

	if m.hub.GetClientCount() > 0 && len(detections) > 0 {
		annotated, err := detector.Annotate(image, detections)
		if err != nil {
			m.logger.Error("Failed to annotate frame for camera %s: %v", rec.CameraID, err)
		} else {
			event.Image = base64.StdEncoding.EncodeToString(annotated)
		}
	}

	msg, err := json.Marshal(event)
	if err != nil {
		m.logger.Error("Failed to encode live event: %v", err)
		return
	}
	m.hub.Broadcast(msg)
}
