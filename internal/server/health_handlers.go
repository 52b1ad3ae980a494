package server

import (
	"fmt"
	"net/http"
	"os"
	"time"
)

// HealthStatus represents operational status for the /health endpoint.
type HealthStatus struct {
	Status    string                 `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Database  string                 `json:"database"`
	Storage   string                 `json:"storage"`
	Scanning  bool                   `json:"scanning"`
	Videos    int                    `json:"videoCount"`
	Details   map[string]interface{} `json:"details,omitempty"`
}

// handleHealthCheck returns basic liveness + dependency checks.
func (vs *VideoServer) handleHealthCheck(w http.ResponseWriter, r *http.Request) {
	health := &HealthStatus{
		Status:    "healthy",
		Timestamp: time.Now(),
		Database:  "ok",
		Storage:   "ok",
		Scanning:  vs.controller.GetState().IsScanning,
		Details:   make(map[string]interface{}),
	}

	// Check database connectivity
	stats, err := vs.db.GetLibraryStats()
	if err != nil {
		health.Status = "unhealthy"
		health.Database = "error"
		health.Details["database_error"] = err.Error()
	} else {
		health.Videos = stats.TotalVideos
	}

	// Check library path accessibility
	if err := vs.checkStorageHealth(); err != nil {
		health.Status = "unhealthy"
		health.Storage = "error"
		health.Details["storage_error"] = err.Error()
	}

	if health.Status == "unhealthy" {
		w.WriteHeader(http.StatusServiceUnavailable)
	}

	writeJSON(w, health)
}

// checkStorageHealth validates that every configured library root exists.
func (vs *VideoServer) checkStorageHealth() error {
	for _, root := range vs.config.Library.Paths {
		if _, err := os.Stat(root); err != nil {
			return fmt.Errorf("library path %s: %w", root, err)
		}
	}
	return nil
}
