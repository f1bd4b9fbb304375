package server

import (
	"net/http"
	"os"
	"strings"

	"hygge/internal/cache"
	"hygge/pkg/models"
)

// handleGetTracks returns tracks filtered by category/subcategory or search,
// newest first.
func (hs *HyggeServer) handleGetTracks(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	search := query.Get("search")
	category := query.Get("category")
	subcategory := query.Get("subcategory")

	if verr := hs.validateSearchQuery(search); verr != nil {
		hs.respondWithValidationError(w, r, []ValidationError{*verr})
		return
	}

	var tracks []models.Track
	var err error

	switch {
	case search != "":
		tracks, err = hs.db.SearchTracks(search)
	case category != "":
		key := cache.CategoryKey(category, subcategory)
		if cached, ok := hs.trackCache.GetTracks(key); ok {
			hs.respondJSON(w, cached)
			return
		}
		tracks, err = hs.db.GetTracksByCategory(category, subcategory)
		if err == nil {
			hs.trackCache.SetTracks(key, tracks)
		}
	default:
		tracks, err = hs.db.GetAllTracks()
	}

	if err != nil {
		hs.respondWithError(w, r, http.StatusInternalServerError, "Error retrieving tracks", err)
		return
	}

	hs.respondJSON(w, tracks)
}

// handleGetTrackCount responds with a JSON count of all tracks.
func (hs *HyggeServer) handleGetTrackCount(w http.ResponseWriter, r *http.Request) {
	tracks, err := hs.db.GetAllTracks()
	if err != nil {
		hs.respondWithError(w, r, http.StatusInternalServerError, "Error retrieving track count", err)
		return
	}

	hs.respondJSON(w, map[string]int{"count": len(tracks)})
}

// handleStreamTrack streams a track by ID with Range support for seeking.
func (hs *HyggeServer) handleStreamTrack(w http.ResponseWriter, r *http.Request) {
	pathParts := strings.Split(r.URL.Path, "/")
	trackID, verr := hs.validateTrackID(pathParts, 3)
	if verr != nil {
		hs.respondWithValidationError(w, r, []ValidationError{*verr})
		return
	}

	track, err := hs.db.GetTrackByID(trackID)
	if err != nil {
		hs.respondWithError(w, r, http.StatusNotFound, "Track not found", err)
		return
	}

	if verr := hs.validateFilePath(track.FilePath); verr != nil {
		hs.respondWithValidationError(w, r, []ValidationError{*verr})
		return
	}

	contentType := hs.extractor.GetContentType(track.FilePath)
	if err := hs.streamFile(w, r, track.FilePath, contentType); err != nil {
		hs.logger.WithError(err).WithField("file_path", track.FilePath).Error("Streaming failed")
	}
}

// handleCoverArt serves embedded cover art by content hash ID.
func (hs *HyggeServer) handleCoverArt(w http.ResponseWriter, r *http.Request) {
	pathParts := strings.Split(r.URL.Path, "/")
	if len(pathParts) < 3 || pathParts[2] == "" {
		hs.respondWithError(w, r, http.StatusBadRequest, "Invalid cover ID", nil)
		return
	}

	coverID := pathParts[2]
	data, exists := hs.extractor.GetCover(coverID)
	if !exists {
		// Cold cache after restart: re-scan is the only source of covers
		hs.respondWithError(w, r, http.StatusNotFound, "Cover not found", nil)
		return
	}

	w.Header().Set("Content-Type", hs.extractor.GetCoverMimeType(data))
	w.Header().Set("Cache-Control", "public, max-age=3600")
	w.Write(data)
}

func (hs *HyggeServer) fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
