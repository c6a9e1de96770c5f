package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port                int
	APIKey              string // empty disables authentication
	ModelPath           string
	ModelConfigPath     string
	CamerasPath         string // CSV: camera_id,latitude,longitude
	ROIPath             string // CSV: camera_id,polygon
	DatabasePath        string
	ConfidenceThreshold float64       // discard detections below this score
	VehicleClasses      []string      // detector labels counted as vehicles
	DedupIoUThreshold   float64       // boxes overlapping above this across frames are the same vehicle
	TrackingWindow      int           // frames of per-camera dedup memory
	TrackingMaxAge      time.Duration // entries older than this are evicted
	InferenceTimeout    time.Duration
	DetectorWorkers     int // parallel detector backends (one net each)
	LogDirectory        string
}

func Load() *Config {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	return &Config{
		Port:                getEnvAsInt("PORT", 8080),
		APIKey:              getEnv("API_KEY", ""),
		ModelPath:           getEnv("MODEL_PATH", filepath.Join(".", "model", "frozen_inference_graph.pb")),
		ModelConfigPath:     getEnv("MODEL_CONFIG_PATH", filepath.Join(".", "model", "ssd_mobilenet_v1_coco_2017_11_17.pbtxt")),
		CamerasPath:         getEnv("CAMERAS_PATH", filepath.Join(".", "data", "cameras.csv")),
		ROIPath:             getEnv("ROI_PATH", filepath.Join(".", "data", "rois.csv")),
		DatabasePath:        getEnv("DATABASE_PATH", filepath.Join(".", "data", "counts.db")),
		ConfidenceThreshold: getEnvAsFloat("CONFIDENCE_THRESHOLD", 0.5),
		VehicleClasses:      getEnvAsList("VEHICLE_CLASSES", []string{"car", "motorcycle", "bus", "truck"}),
		DedupIoUThreshold:   getEnvAsFloat("DEDUP_IOU_THRESHOLD", 0.45),
		TrackingWindow:      getEnvAsInt("TRACKING_WINDOW", 4),
		TrackingMaxAge:      getEnvAsDuration("TRACKING_MAX_AGE", 10*time.Second),
		InferenceTimeout:    getEnvAsDuration("INFERENCE_TIMEOUT", 5*time.Second),
		DetectorWorkers:     getEnvAsInt("DETECTOR_WORKERS", 3),
		LogDirectory:        getEnv("LOG_DIR", filepath.Join(".", "logs")),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvAsList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parts := strings.Split(value, ",")
	list := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			list = append(list, p)
		}
	}
	if len(list) == 0 {
		return defaultValue
	}
	return list
}
