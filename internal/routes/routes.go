package routes

import (
	"net/http"

	"trafficcam/internal/config"
	"trafficcam/internal/handlers"
	"trafficcam/internal/logger"
	"trafficcam/internal/middleware"
	"trafficcam/internal/registry"
	"trafficcam/internal/services"
	ws "trafficcam/internal/services/websocket"
	"trafficcam/internal/stats"
)

// SetupRoutes registers the API endpoints and wraps the mux with the
// authentication middleware.
func SetupRoutes(manager *services.Manager, agg *stats.Aggregator, reg *registry.Registry,
	hub *ws.HubService, cfg *config.Config, logger *logger.Logger) http.Handler {
	mux := http.NewServeMux()

	// Pipeline
	mux.HandleFunc("/api/count", handlers.CountHandler(manager, logger))

	// Records and aggregates
	mux.HandleFunc("/api/records", handlers.GetRecordsHandler(agg, logger))
	mux.HandleFunc("/api/records/export", handlers.ExportRecordsHandler(agg, logger))
	mux.HandleFunc("/api/summary", handlers.GetSummaryHandler(agg, logger))

	// Cameras
	mux.HandleFunc("/api/cameras", handlers.ListCamerasHandler(reg, logger))
	mux.HandleFunc("/api/cameras/nearest", handlers.NearestCameraHandler(reg, logger))

	// Live viewers
	mux.HandleFunc("/api/live", handlers.LiveWebsocketHandler(hub, logger))

	// Log endpoints
	mux.HandleFunc("/logs/info", handlers.ShowInfoLogsHandler(cfg))
	mux.HandleFunc("/logs/warning", handlers.ShowWarningLogsHandler(cfg))
	mux.HandleFunc("/logs/error", handlers.ShowErrorLogsHandler(cfg))

	return middleware.AuthMiddleware(cfg.APIKey, mux)
}
