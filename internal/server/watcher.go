package server

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"
)

// startFileWatcher initializes fsnotify watcher for recursive library monitoring.
func (hs *HyggeServer) startFileWatcher() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	hs.watcher = watcher

	go hs.watchFiles()

	if err := hs.addDirectoryToWatcher(hs.config.Library.Path); err != nil {
		return err
	}

	hs.logger.WithField("library_path", hs.config.Library.Path).Info("File watcher started")
	return nil
}

// addDirectoryToWatcher recursively walks and adds subdirectories to watcher.
func (hs *HyggeServer) addDirectoryToWatcher(dir string) error {
	return filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return hs.watcher.Add(path)
		}
		return nil
	})
}

// watchFiles selects on watcher channels and dispatches events.
func (hs *HyggeServer) watchFiles() {
	defer hs.watcher.Close()

	for {
		select {
		case event, ok := <-hs.watcher.Events:
			if !ok {
				return
			}
			hs.handleFileEvent(event)

		case err, ok := <-hs.watcher.Errors:
			if !ok {
				return
			}
			hs.logger.WithError(err).Error("File watcher error")
		}
	}
}

// handleFileEvent applies filtering & delegates creation/removal actions.
func (hs *HyggeServer) handleFileEvent(event fsnotify.Event) {
	// Ignore temporary files and hidden files
	fileName := filepath.Base(event.Name)
	if strings.HasPrefix(fileName, ".") || strings.HasSuffix(fileName, ".tmp") {
		return
	}

	isMediaFile := hs.extractor.IsMediaFile(event.Name)

	switch {
	case event.Has(fsnotify.Create) && isMediaFile:
		go func(name string) {
			time.Sleep(500 * time.Millisecond) // Ensure file is fully written
			hs.handleNewFile(name)
		}(event.Name)

	case event.Has(fsnotify.Remove) && isMediaFile:
		go hs.handleRemovedFile(event.Name)

	case event.Has(fsnotify.Create):
		// A new subdirectory may be a new category or subcategory
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			hs.watcher.Add(event.Name)
			hs.logger.WithField("directory", event.Name).Info("Watching new directory")
		}
	}
}

// handleNewFile extracts metadata & inserts new track if unseen.
func (hs *HyggeServer) handleNewFile(filePath string) {
	hs.logger.WithField("file_path", filePath).Info("New media file detected")

	exists, err := hs.db.TrackExists(filePath)
	if err != nil {
		hs.logger.WithError(err).WithField("file_path", filePath).Error("Error checking if track exists")
		return
	}
	if exists {
		hs.logger.WithField("file_path", filePath).Debug("Track already indexed")
		return
	}

	track, err := hs.extractor.ExtractFromFile(filePath, hs.config.Library.Path)
	if err != nil {
		hs.logger.WithError(err).WithField("file_path", filePath).Error("Error extracting metadata")
		return
	}

	id, err := hs.db.InsertTrack(track)
	if err != nil {
		hs.logger.WithError(err).Error("Error indexing new track")
		return
	}

	hs.trackCache.InvalidateTracks()

	hs.logger.WithFields(logrus.Fields{
		"title":    track.Title,
		"category": track.Category,
		"kind":     track.Kind,
		"id":       id,
	}).Info("Added new track")
}

// handleRemovedFile removes track rows referencing deleted media files.
func (hs *HyggeServer) handleRemovedFile(filePath string) {
	hs.logger.WithField("file_path", filePath).Info("Media file removed")

	if err := hs.db.RemoveTrackByPath(filePath); err != nil {
		hs.logger.WithError(err).WithField("file_path", filePath).Error("Error removing track from database")
		return
	}

	hs.trackCache.InvalidateTracks()
	hs.logger.WithField("file_path", filePath).Info("Removed track from database")
}

// stopFileWatcher closes the watcher (idempotent).
func (hs *HyggeServer) stopFileWatcher() {
	if hs.watcher != nil {
		hs.watcher.Close()
	}
}
