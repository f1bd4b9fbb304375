package server

import (
	"encoding/json"
	"net/http"
	"strings"
)

// handleCollections serves the collection list and creation.
func (hs *HyggeServer) handleCollections(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		collections, err := hs.db.GetAllCollections()
		if err != nil {
			hs.respondWithError(w, r, http.StatusInternalServerError, "Error retrieving collections", err)
			return
		}
		hs.respondJSON(w, collections)

	case http.MethodPost:
		var req struct {
			Name        string `json:"name"`
			Description string `json:"description"`
			Category    string `json:"category"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			hs.respondWithError(w, r, http.StatusBadRequest, "Invalid JSON", err)
			return
		}

		var errs []ValidationError
		if verr := hs.validateCollectionName(req.Name); verr != nil {
			errs = append(errs, *verr)
		}
		if verr := hs.validateCollectionDescription(req.Description); verr != nil {
			errs = append(errs, *verr)
		}
		if len(errs) > 0 {
			hs.respondWithValidationError(w, r, errs)
			return
		}

		id, err := hs.db.CreateCollection(req.Name, req.Description, req.Category)
		if err != nil {
			hs.respondWithError(w, r, http.StatusInternalServerError, "Error creating collection", err)
			return
		}

		hs.respondJSON(w, map[string]interface{}{
			"id":      id,
			"message": "Collection created",
		})

	default:
		hs.respondWithError(w, r, http.StatusMethodNotAllowed, "Method not allowed", nil)
	}
}

// handleCollectionByID routes /api/collections/{id}[/tracks[/{trackId}]].
func (hs *HyggeServer) handleCollectionByID(w http.ResponseWriter, r *http.Request) {
	pathParts := strings.Split(r.URL.Path, "/")

	if len(pathParts) >= 5 && pathParts[4] == "tracks" {
		switch r.Method {
		case http.MethodGet:
			hs.handleGetCollectionTracks(w, r, pathParts)
		case http.MethodPost:
			hs.handleAddTrackToCollection(w, r, pathParts)
		case http.MethodDelete:
			hs.handleRemoveTrackFromCollection(w, r, pathParts)
		default:
			hs.respondWithError(w, r, http.StatusMethodNotAllowed, "Method not allowed", nil)
		}
		return
	}

	switch r.Method {
	case http.MethodDelete:
		hs.handleDeleteCollection(w, r, pathParts)
	case http.MethodPut:
		hs.handleUpdateCollection(w, r, pathParts)
	default:
		hs.respondWithError(w, r, http.StatusMethodNotAllowed, "Method not allowed", nil)
	}
}

func (hs *HyggeServer) handleGetCollectionTracks(w http.ResponseWriter, r *http.Request, pathParts []string) {
	collectionID, verr := hs.validateCollectionID(pathParts, 4)
	if verr != nil {
		hs.respondWithValidationError(w, r, []ValidationError{*verr})
		return
	}

	tracks, err := hs.db.GetCollectionTracks(collectionID)
	if err != nil {
		hs.respondWithError(w, r, http.StatusInternalServerError, "Error retrieving collection tracks", err)
		return
	}

	hs.respondJSON(w, tracks)
}

func (hs *HyggeServer) handleAddTrackToCollection(w http.ResponseWriter, r *http.Request, pathParts []string) {
	collectionID, verr := hs.validateCollectionID(pathParts, 4)
	if verr != nil {
		hs.respondWithValidationError(w, r, []ValidationError{*verr})
		return
	}

	var req struct {
		TrackID int `json:"trackId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		hs.respondWithError(w, r, http.StatusBadRequest, "Invalid JSON", err)
		return
	}

	if err := hs.db.AddTrackToCollection(collectionID, req.TrackID); err != nil {
		hs.respondWithError(w, r, http.StatusInternalServerError, "Error adding track to collection", err)
		return
	}

	hs.respondJSON(w, map[string]string{"message": "Track added to collection"})
}

func (hs *HyggeServer) handleRemoveTrackFromCollection(w http.ResponseWriter, r *http.Request, pathParts []string) {
	collectionID, verr := hs.validateCollectionID(pathParts, 4)
	if verr != nil {
		hs.respondWithValidationError(w, r, []ValidationError{*verr})
		return
	}

	trackID, verr := hs.validateTrackID(pathParts, 6)
	if verr != nil {
		hs.respondWithValidationError(w, r, []ValidationError{*verr})
		return
	}

	if err := hs.db.RemoveTrackFromCollection(collectionID, trackID); err != nil {
		hs.respondWithError(w, r, http.StatusInternalServerError, "Error removing track from collection", err)
		return
	}

	hs.respondJSON(w, map[string]string{"message": "Track removed from collection"})
}

func (hs *HyggeServer) handleDeleteCollection(w http.ResponseWriter, r *http.Request, pathParts []string) {
	collectionID, verr := hs.validateCollectionID(pathParts, 4)
	if verr != nil {
		hs.respondWithValidationError(w, r, []ValidationError{*verr})
		return
	}

	if err := hs.db.DeleteCollection(collectionID); err != nil {
		hs.respondWithError(w, r, http.StatusInternalServerError, "Error deleting collection", err)
		return
	}

	hs.respondJSON(w, map[string]string{"message": "Collection deleted"})
}

func (hs *HyggeServer) handleUpdateCollection(w http.ResponseWriter, r *http.Request, pathParts []string) {
	collectionID, verr := hs.validateCollectionID(pathParts, 4)
	if verr != nil {
		hs.respondWithValidationError(w, r, []ValidationError{*verr})
		return
	}

	var req struct {
		Name        string `json:"name"`
		Description string `json:"description"`
		Category    string `json:"category"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		hs.respondWithError(w, r, http.StatusBadRequest, "Invalid JSON", err)
		return
	}

	if verr := hs.validateCollectionName(req.Name); verr != nil {
		hs.respondWithValidationError(w, r, []ValidationError{*verr})
		return
	}

	if err := hs.db.UpdateCollection(collectionID, req.Name, req.Description, req.Category); err != nil {
		hs.respondWithError(w, r, http.StatusInternalServerError, "Error updating collection", err)
		return
	}

	hs.respondJSON(w, map[string]string{"message": "Collection updated"})
}
