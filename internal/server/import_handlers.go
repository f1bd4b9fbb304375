package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// handleImport starts a remote audio import into a category.
func (hs *HyggeServer) handleImport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		hs.respondWithError(w, r, http.StatusMethodNotAllowed, "Method not allowed", nil)
		return
	}

	if hs.importer == nil {
		hs.respondWithError(w, r, http.StatusServiceUnavailable, "Import functionality not available. Please install yt-dlp.", nil)
		return
	}

	var req struct {
		URL      string `json:"url"`
		Title    string `json:"title,omitempty"`
		Category string `json:"category,omitempty"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		hs.respondWithError(w, r, http.StatusBadRequest, "Invalid JSON", err)
		return
	}

	if verr := hs.validateURL(req.URL); verr != nil {
		hs.respondWithValidationError(w, r, []ValidationError{*verr})
		return
	}

	if err := hs.importer.ValidateURL(req.URL); err != nil {
		hs.respondWithError(w, r, http.StatusBadRequest, fmt.Sprintf("Invalid URL: %v", err), nil)
		return
	}

	job, err := hs.importer.Import(req.URL, req.Title, req.Category)
	if err != nil {
		hs.respondWithError(w, r, http.StatusInternalServerError, "Failed to start import", err)
		return
	}

	hs.respondJSON(w, map[string]interface{}{
		"job_id":  job.ID,
		"status":  job.Status,
		"message": "Import started",
	})
}

// handleGetImports returns import job status, for all jobs or one by ID.
func (hs *HyggeServer) handleGetImports(w http.ResponseWriter, r *http.Request) {
	if hs.importer == nil {
		hs.respondWithError(w, r, http.StatusServiceUnavailable, "Import functionality not available.", nil)
		return
	}

	if r.Method == http.MethodDelete {
		hs.handleCleanupImports(w, r)
		return
	}

	pathParts := strings.Split(r.URL.Path, "/")
	if len(pathParts) >= 4 && pathParts[3] != "" {
		jobID := pathParts[3]
		job, exists := hs.importer.GetJob(jobID)
		if !exists {
			hs.respondWithError(w, r, http.StatusNotFound, "Import job not found", nil)
			return
		}
		hs.respondJSON(w, job)
		return
	}

	hs.respondJSON(w, hs.importer.GetAllJobs())
}

// handleCleanupImports removes finished jobs older than ?age= minutes.
func (hs *HyggeServer) handleCleanupImports(w http.ResponseWriter, r *http.Request) {
	ageMinutes := 60
	if ageStr := r.URL.Query().Get("age"); ageStr != "" {
		fmt.Sscanf(ageStr, "%d", &ageMinutes)
	}
	if ageMinutes < 1 {
		ageMinutes = 1
	}

	hs.importer.CleanupCompletedJobs(time.Duration(ageMinutes) * time.Minute)
	hs.respondJSON(w, map[string]any{"message": "cleanup complete", "age_minutes": ageMinutes})
}

// handleValidateURL checks whether a URL can be imported.
func (hs *HyggeServer) handleValidateURL(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		hs.respondWithError(w, r, http.StatusMethodNotAllowed, "Method not allowed", nil)
		return
	}

	if hs.importer == nil {
		hs.respondWithError(w, r, http.StatusServiceUnavailable, "Import functionality not available.", nil)
		return
	}

	var req struct {
		URL string `json:"url"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		hs.respondWithError(w, r, http.StatusBadRequest, "Invalid JSON", err)
		return
	}
	if req.URL == "" {
		hs.respondWithError(w, r, http.StatusBadRequest, "URL is required", nil)
		return
	}

	err := hs.importer.ValidateURL(req.URL)
	response := map[string]interface{}{
		"url":   req.URL,
		"valid": err == nil,
	}
	if err != nil {
		response["message"] = err.Error()
	} else {
		response["message"] = "URL is valid and supported"
	}

	hs.respondJSON(w, response)
}
