package server

import (
	"encoding/json"
	"net/http"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
)

// ValidationError represents a validation error with details
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

// ValidationResult contains validation results
type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Errors []ValidationError `json:"errors,omitempty"`
}

// respondJSON writes v as a JSON response body.
func (hs *HyggeServer) respondJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		hs.logger.WithError(err).Error("Failed to encode JSON response")
	}
}

// respondWithValidationError sends a structured validation error response
func (hs *HyggeServer) respondWithValidationError(w http.ResponseWriter, r *http.Request, errors []ValidationError) {
	hs.logger.WithFields(logrus.Fields{
		"method": r.Method,
		"path":   r.URL.Path,
		"errors": errors,
	}).Warn("Validation failed")

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusBadRequest)

	hs.respondJSON(w, ValidationResult{
		Valid:  false,
		Errors: errors,
	})
}

// respondWithError sends a structured error response
func (hs *HyggeServer) respondWithError(w http.ResponseWriter, r *http.Request, statusCode int, message string, err error) {
	logEntry := hs.logger.WithFields(logrus.Fields{
		"method":      r.Method,
		"path":        r.URL.Path,
		"status_code": statusCode,
		"message":     message,
	})

	if err != nil {
		logEntry = logEntry.WithError(err)
	}

	if statusCode >= 500 {
		logEntry.Error("Server error")
	} else {
		logEntry.Warn("Client error")
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	hs.respondJSON(w, map[string]interface{}{
		"error":   message,
		"code":    statusCode,
		"success": false,
	})
}

// validateTrackID validates and parses a track ID from the URL path
func (hs *HyggeServer) validateTrackID(pathParts []string, minParts int) (int, *ValidationError) {
	if len(pathParts) < minParts {
		return 0, &ValidationError{
			Field:   "track_id",
			Message: "Track ID is required",
			Code:    "MISSING_TRACK_ID",
		}
	}

	trackIDStr := pathParts[minParts-1]
	if trackIDStr == "" {
		return 0, &ValidationError{
			Field:   "track_id",
			Message: "Track ID cannot be empty",
			Code:    "EMPTY_TRACK_ID",
		}
	}

	trackID, err := strconv.Atoi(trackIDStr)
	if err != nil {
		return 0, &ValidationError{
			Field:   "track_id",
			Message: "Track ID must be a valid integer",
			Code:    "INVALID_TRACK_ID_FORMAT",
		}
	}

	if trackID <= 0 {
		return 0, &ValidationError{
			Field:   "track_id",
			Message: "Track ID must be positive",
			Code:    "INVALID_TRACK_ID_VALUE",
		}
	}

	return trackID, nil
}

// validateCollectionID validates and parses a collection ID from the URL path
func (hs *HyggeServer) validateCollectionID(pathParts []string, minParts int) (int, *ValidationError) {
	if len(pathParts) < minParts {
		return 0, &ValidationError{
			Field:   "collection_id",
			Message: "Collection ID is required",
			Code:    "MISSING_COLLECTION_ID",
		}
	}

	collectionIDStr := pathParts[minParts-1]
	if collectionIDStr == "" {
		return 0, &ValidationError{
			Field:   "collection_id",
			Message: "Collection ID cannot be empty",
			Code:    "EMPTY_COLLECTION_ID",
		}
	}

	collectionID, err := strconv.Atoi(collectionIDStr)
	if err != nil {
		return 0, &ValidationError{
			Field:   "collection_id",
			Message: "Collection ID must be a valid integer",
			Code:    "INVALID_COLLECTION_ID_FORMAT",
		}
	}

	if collectionID <= 0 {
		return 0, &ValidationError{
			Field:   "collection_id",
			Message: "Collection ID must be positive",
			Code:    "INVALID_COLLECTION_ID_VALUE",
		}
	}

	return collectionID, nil
}

// validateSearchQuery validates search query parameters
func (hs *HyggeServer) validateSearchQuery(query string) *ValidationError {
	if len(query) > 1000 {
		return &ValidationError{
			Field:   "search",
			Message: "Search query too long (max 1000 characters)",
			Code:    "SEARCH_QUERY_TOO_LONG",
		}
	}

	if strings.Contains(query, "\x00") {
		return &ValidationError{
			Field:   "search",
			Message: "Search query contains invalid characters",
			Code:    "INVALID_SEARCH_CHARACTERS",
		}
	}

	return nil
}

// validateFilePath ensures file path is within the configured library
func (hs *HyggeServer) validateFilePath(filePath string) *ValidationError {
	cleanPath := filepath.Clean(filePath)
	absPath, err := filepath.Abs(cleanPath)
	if err != nil {
		return &ValidationError{
			Field:   "file_path",
			Message: "Invalid file path",
			Code:    "INVALID_FILE_PATH",
		}
	}

	absLibrary, err := filepath.Abs(hs.config.Library.Path)
	if err != nil {
		return &ValidationError{
			Field:   "file_path",
			Message: "Server configuration error",
			Code:    "CONFIG_ERROR",
		}
	}

	relPath, err := filepath.Rel(absLibrary, absPath)
	if err != nil || strings.HasPrefix(relPath, "..") {
		return &ValidationError{
			Field:   "file_path",
			Message: "File path outside allowed directory",
			Code:    "PATH_TRAVERSAL_DENIED",
		}
	}

	return nil
}

// validateURL validates import and article URLs
func (hs *HyggeServer) validateURL(urlStr string) *ValidationError {
	if urlStr == "" {
		return &ValidationError{
			Field:   "url",
			Message: "URL is required",
			Code:    "MISSING_URL",
		}
	}

	if len(urlStr) > 2048 {
		return &ValidationError{
			Field:   "url",
			Message: "URL too long (max 2048 characters)",
			Code:    "URL_TOO_LONG",
		}
	}

	parsedURL, err := url.Parse(urlStr)
	if err != nil {
		return &ValidationError{
			Field:   "url",
			Message: "Invalid URL format",
			Code:    "INVALID_URL_FORMAT",
		}
	}

	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return &ValidationError{
			Field:   "url",
			Message: "URL must use HTTP or HTTPS protocol",
			Code:    "INVALID_URL_PROTOCOL",
		}
	}

	return nil
}

// validateCollectionName validates collection name
func (hs *HyggeServer) validateCollectionName(name string) *ValidationError {
	if name == "" {
		return &ValidationError{
			Field:   "name",
			Message: "Collection name is required",
			Code:    "MISSING_COLLECTION_NAME",
		}
	}

	if len(name) > 255 {
		return &ValidationError{
			Field:   "name",
			Message: "Collection name too long (max 255 characters)",
			Code:    "COLLECTION_NAME_TOO_LONG",
		}
	}

	if strings.Contains(name, "\x00") || strings.Contains(name, "\n") || strings.Contains(name, "\r") {
		return &ValidationError{
			Field:   "name",
			Message: "Collection name contains invalid characters",
			Code:    "INVALID_COLLECTION_NAME_CHARACTERS",
		}
	}

	return nil
}

// validateCollectionDescription validates collection description
func (hs *HyggeServer) validateCollectionDescription(description string) *ValidationError {
	if len(description) > 1000 {
		return &ValidationError{
			Field:   "description",
			Message: "Collection description too long (max 1000 characters)",
			Code:    "COLLECTION_DESCRIPTION_TOO_LONG",
		}
	}

	return nil
}
