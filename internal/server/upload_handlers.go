package server

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
)

// handleUploadTrack accepts a media file upload into a library category.
func (hs *HyggeServer) handleUploadTrack(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		hs.respondWithError(w, r, http.StatusMethodNotAllowed, "Method not allowed", nil)
		return
	}

	// 256 MB.
	if err := r.ParseMultipartForm(256 << 20); err != nil {
		hs.respondWithError(w, r, http.StatusBadRequest, "Failed to parse upload form", err)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		hs.respondWithError(w, r, http.StatusBadRequest, "No file provided", err)
		return
	}
	defer file.Close()

	if !hs.config.IsFormatSupported(strings.ToLower(filepath.Ext(header.Filename))) {
		hs.respondWithError(w, r, http.StatusBadRequest,
			"Invalid file type. Supported formats: "+strings.Join(hs.config.Library.SupportedFormats, ", "), nil)
		return
	}

	category := r.FormValue("category")
	if category == "" {
		category = hs.config.Library.DefaultCategory
	}

	targetDir := filepath.Join(hs.config.Library.Path, category)
	if err := os.MkdirAll(targetDir, 0755); err != nil {
		hs.respondWithError(w, r, http.StatusInternalServerError, "Failed to create category directory", err)
		return
	}

	// Base() strips any path components a hostile client sends
	safeFilename := filepath.Base(header.Filename)
	if safeFilename == "." || safeFilename == "/" {
		safeFilename = "uploaded_file" + filepath.Ext(header.Filename)
	}

	destPath := filepath.Join(targetDir, safeFilename)
	counter := 1
	for hs.fileExists(destPath) {
		ext := filepath.Ext(safeFilename)
		nameWithoutExt := strings.TrimSuffix(safeFilename, ext)
		destPath = filepath.Join(targetDir, fmt.Sprintf("%s_%d%s", nameWithoutExt, counter, ext))
		counter++
	}

	destFile, err := os.Create(destPath)
	if err != nil {
		hs.respondWithError(w, r, http.StatusInternalServerError, "Failed to create destination file", err)
		return
	}
	defer destFile.Close()

	if _, err := io.Copy(destFile, file); err != nil {
		os.Remove(destPath)
		hs.respondWithError(w, r, http.StatusInternalServerError, "Failed to save file", err)
		return
	}

	track, err := hs.extractor.ExtractFromFile(destPath, hs.config.Library.Path)
	if err != nil {
		hs.logger.WithError(err).WithField("file_path", destPath).Warn("Failed to extract metadata from upload")
	} else {
		trackID, err := hs.db.InsertTrack(track)
		if err != nil {
			hs.logger.WithError(err).WithField("file_path", destPath).Error("Failed to index uploaded track")
		} else {
			hs.trackCache.InvalidateTracks()
			hs.logger.WithFields(logrus.Fields{
				"filename": filepath.Base(destPath),
				"track_id": trackID,
				"category": track.Category,
				"title":    track.Title,
			}).Info("File uploaded and added to library")
		}
	}

	hs.respondJSON(w, map[string]interface{}{
		"success":  true,
		"message":  "File uploaded successfully",
		"filename": filepath.Base(destPath),
		"category": category,
	})
}
