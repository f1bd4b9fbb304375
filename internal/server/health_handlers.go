package server

import (
	"fmt"
	"net/http"
	"time"
)

// HealthStatus represents operational status for the /health endpoint.
type HealthStatus struct {
	Status    string                 `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Database  string                 `json:"database"`
	Library   string                 `json:"library"`
	Sessions  int                    `json:"activeSessions"`
	Tracks    int                    `json:"trackCount"`
	Details   map[string]interface{} `json:"details,omitempty"`
}

// handleHealthCheck returns basic liveness + dependency checks.
func (hs *HyggeServer) handleHealthCheck(w http.ResponseWriter, r *http.Request) {
	health := &HealthStatus{
		Status:    "healthy",
		Timestamp: time.Now(),
		Database:  "ok",
		Library:   "ok",
		Sessions:  len(hs.sessions.All()),
		Details:   make(map[string]interface{}),
	}

	tracks, err := hs.db.GetAllTracks()
	if err != nil {
		health.Status = "unhealthy"
		health.Database = "error"
		health.Details["database_error"] = err.Error()
	} else {
		health.Tracks = len(tracks)
	}

	if !hs.fileExists(hs.config.Library.Path) {
		health.Status = "unhealthy"
		health.Library = "error"
		health.Details["library_error"] = fmt.Sprintf("library path %s not accessible", hs.config.Library.Path)
	}

	if health.Status == "unhealthy" {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
	}

	hs.respondJSON(w, health)
}
