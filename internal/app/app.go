package app

import (
	"fmt"
	"net/http"

	"trafficcam/internal/config"
	"trafficcam/internal/counter"
	"trafficcam/internal/detector"
	"trafficcam/internal/errs"
	"trafficcam/internal/logger"
	"trafficcam/internal/registry"
	"trafficcam/internal/repository/sqlite"
	"trafficcam/internal/roi"
	"trafficcam/internal/routes"
	"trafficcam/internal/services"
	ws "trafficcam/internal/services/websocket"
	"trafficcam/internal/stats"
)

type App struct {
	config     *config.Config
	logger     *logger.Logger
	registry   *registry.Registry
	rois       *roi.Store
	db         *sqlite.DB
	detectors  []detector.Detector
	counter    *counter.Counter
	aggregator *stats.Aggregator
	hub        *ws.HubService
	manager    *services.Manager
}

// New wires the service. Any configuration problem aborts startup:
// the service never runs with a partially loaded camera or ROI table.
func New() (*App, error) {
	cfg := config.Load()
	log := logger.New(cfg.LogDirectory)

	reg, err := registry.Load(cfg.CamerasPath)
	if err != nil {
		return nil, err
	}
	rois, err := roi.Load(cfg.ROIPath)
	if err != nil {
		return nil, err
	}

	// Every registered camera needs a countable region, otherwise its
	// counts would silently read as zero.
	for _, cam := range reg.All() {
		if _, ok := rois.Polygon(cam.ID); !ok {
			return nil, &errs.ConfigError{Source: cfg.ROIPath, Reason: fmt.Sprintf("no ROI configured for camera %q", cam.ID)}
		}
	}

	db, err := sqlite.New(cfg.DatabasePath)
	if err != nil {
		return nil, &errs.ConfigError{Source: cfg.DatabasePath, Reason: "cannot open record store", Err: err}
	}

	// One network per worker: a gocv net is not safe for concurrent
	// forward passes.
	detectors := make([]detector.Detector, 0, cfg.DetectorWorkers)
	for i := 0; i < cfg.DetectorWorkers; i++ {
		d, err := detector.NewDNN(cfg.ModelPath, cfg.ModelConfigPath, cfg.ConfidenceThreshold, cfg.VehicleClasses)
		if err != nil {
			return nil, &errs.ConfigError{Source: cfg.ModelPath, Reason: "cannot load detection model", Err: err}
		}
		detectors = append(detectors, d)
	}

	cnt := counter.New(reg, rois, cfg.DedupIoUThreshold, cfg.TrackingWindow, cfg.TrackingMaxAge)
	agg := stats.New(reg, sqlite.NewCountRepository(db))
	hub := ws.NewHubService(log)
	manager := services.NewManager(detectors, reg, cnt, agg, hub, cfg.InferenceTimeout, log)

	log.Info("Loaded %d camera(s), %d ROI(s)", reg.Len(), rois.Len())

	return &App{
		config:     cfg,
		logger:     log,
		registry:   reg,
		rois:       rois,
		db:         db,
		detectors:  detectors,
		counter:    cnt,
		aggregator: agg,
		hub:        hub,
		manager:    manager,
	}, nil
}

// Run starts the hub and serves HTTP until the listener fails.
func (a *App) Run() error {
	go a.hub.Run()

	router := routes.SetupRoutes(a.manager, a.aggregator, a.registry, a.hub, a.config, a.logger)

	a.logger.Info("Traffic count server listening on :%d", a.config.Port)
	return http.ListenAndServe(fmt.Sprintf(":%d", a.config.Port), router)
}

// Close releases detector networks and the record store.
func (a *App) Close() {
	for _, d := range a.detectors {
		if closer, ok := d.(*detector.DNN); ok {
			closer.Close()
		}
	}
	if a.db != nil {
		a.db.Close()
	}
}
