package server

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"hygge/internal/assistant"
	"hygge/internal/cache"
	"hygge/internal/clock"
	"hygge/internal/config"
	"hygge/internal/database"
	"hygge/internal/importer"
	"hygge/internal/metadata"
	"hygge/internal/position"
	"hygge/internal/session"
	"hygge/internal/tunnel"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"
)

// HyggeServer is the companion server backing the mobile app: catalog,
// streaming, playback sessions, activity tracking, and the assistant proxy.
type HyggeServer struct {
	db         *database.Database
	config     *config.Config
	logger     *logrus.Logger
	watcher    *fsnotify.Watcher
	extractor  *metadata.Extractor
	importer   *importer.Importer
	tunnelSvc  *tunnel.Service
	assistant  *assistant.Service
	sessions   *session.Manager
	trackCache *cache.TrackCache
	positions  *position.FileStore
	mux        *http.ServeMux
	httpServer *http.Server
}

// NewHyggeServer wires the server's components together. Optional services
// (importer, tunnel, assistant) degrade to nil when unavailable.
func NewHyggeServer(cfg *config.Config, db *database.Database, logger *logrus.Logger) (*HyggeServer, error) {
	positions, err := position.NewFileStore(cfg.Player.PositionPath, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open position store: %w", err)
	}

	imp, err := importer.NewImporter(cfg, db, logger)
	if err != nil {
		logger.WithError(err).Warn("Importer not available")
		imp = nil
	}

	tunnelSvc, err := tunnel.NewService(&cfg.Tunnel)
	if err != nil {
		logger.WithError(err).Warn("Tunnel service not available")
		tunnelSvc = nil
	}

	assist, err := assistant.NewService(&cfg.Assistant, db, logger)
	if err != nil {
		logger.WithError(err).Warn("Assistant not available")
		assist = nil
	}

	sessions := session.NewManager(positions, db, clock.System{}, logger,
		time.Duration(cfg.Player.PositionSaveSeconds)*time.Second,
		time.Duration(cfg.Player.SessionTimeout)*time.Second)

	server := &HyggeServer{
		db:         db,
		config:     cfg,
		logger:     logger,
		extractor:  metadata.NewExtractor(cfg.Library.SupportedFormats, cfg.Library.DefaultCategory),
		importer:   imp,
		tunnelSvc:  tunnelSvc,
		assistant:  assist,
		sessions:   sessions,
		trackCache: cache.NewTrackCache(),
		positions:  positions,
		mux:        http.NewServeMux(),
	}

	return server, nil
}

// ScanLibrary walks the library directory and indexes every media file.
func (hs *HyggeServer) ScanLibrary() error {
	if !hs.config.Library.ScanOnStartup {
		hs.logger.Info("Skipping library scan (disabled in config)")
		return nil
	}

	hs.logger.WithField("library_path", hs.config.Library.Path).Info("Scanning media library")

	var wg sync.WaitGroup
	var trackCount int64
	jobs := make(chan string, 100)

	numWorkers := runtime.NumCPU()
	for i := 0; i < numWorkers; i++ {
		go func() {
			for path := range jobs {
				track, err := hs.extractor.ExtractFromFile(path, hs.config.Library.Path)
				if err != nil {
					hs.logger.WithError(err).WithField("file_path", path).Error("Failed to extract metadata")
					wg.Done()
					continue
				}
				if _, err := hs.db.InsertTrack(track); err != nil {
					hs.logger.WithError(err).WithField("file_path", path).Error("Failed to index track")
				} else {
					atomic.AddInt64(&trackCount, 1)
				}
				wg.Done()
			}
		}()
	}

	walkErr := filepath.Walk(hs.config.Library.Path, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if hs.extractor.IsMediaFile(path) {
			wg.Add(1)
			jobs <- path
		}
		return nil
	})

	close(jobs)
	wg.Wait()

	hs.trackCache.InvalidateTracks()
	hs.logger.WithField("track_count", trackCount).Info("Library scan complete")
	return walkErr
}

// Start runs the HTTP server until it fails or Shutdown is called.
func (hs *HyggeServer) Start() error {
	if hs.config.Library.WatchForChanges {
		if err := hs.startFileWatcher(); err != nil {
			hs.logger.WithError(err).Warn("Could not start file watcher")
		}
	}

	hs.setupRoutes()

	localAddress := fmt.Sprintf("http://%s", hs.config.GetAddress())
	hs.logger.WithFields(logrus.Fields{
		"address": localAddress,
		"library": hs.config.Library.Path,
	}).Info("Hygge companion server starting")

	if hs.tunnelSvc != nil {
		if err := hs.tunnelSvc.Start(context.Background(), localAddress); err != nil {
			hs.logger.WithError(err).Warn("Could not start tunnel")
		}
	}

	handler := hs.panicRecoveryMiddleware(hs.corsMiddleware(hs.requestLoggingMiddleware(hs.mux)))

	hs.httpServer = &http.Server{
		Addr:        hs.config.GetAddress(),
		Handler:     handler,
		ReadTimeout: time.Duration(hs.config.Server.ReadTimeout) * time.Second,
	}

	if err := hs.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (hs *HyggeServer) setupRoutes() {
	// Catalog
	hs.mux.HandleFunc("/api/tracks", hs.handleGetTracks)
	hs.mux.HandleFunc("/api/tracks/count", hs.handleGetTrackCount)
	hs.mux.HandleFunc("/stream/", hs.handleStreamTrack)
	hs.mux.HandleFunc("/cover/", hs.handleCoverArt)
	hs.mux.HandleFunc("/health", hs.handleHealthCheck)

	// Playback sessions
	hs.mux.HandleFunc("/api/player/session", hs.handleCreateSession)
	hs.mux.HandleFunc("/api/player/session/close", hs.handleCloseSession)
	hs.mux.HandleFunc("/api/player/sessions", hs.handleGetSessions)
	hs.mux.HandleFunc("/api/player/state", hs.handlePlayerState)
	hs.mux.HandleFunc("/api/player/toggle", hs.handleToggle)
	hs.mux.HandleFunc("/api/player/next", hs.handleNext)
	hs.mux.HandleFunc("/api/player/previous", hs.handlePrevious)
	hs.mux.HandleFunc("/api/player/seek", hs.handleSeek)
	hs.mux.HandleFunc("/api/player/speed", hs.handleSpeed)
	hs.mux.HandleFunc("/api/player/volume", hs.handleVolume)
	hs.mux.HandleFunc("/api/player/shuffle", hs.handleShuffle)
	hs.mux.HandleFunc("/api/player/repeat", hs.handleRepeat)
	hs.mux.HandleFunc("/api/player/events", hs.handlePlayerEvents)
	hs.mux.HandleFunc("/api/player/commands", hs.handlePlayerCommands)

	// Activity summaries
	hs.mux.HandleFunc("/api/activity", hs.handleGetActivity)

	// Collections
	hs.mux.HandleFunc("/api/collections", hs.handleCollections)
	hs.mux.HandleFunc("/api/collections/", hs.handleCollectionByID)

	// Uploads and imports
	hs.mux.HandleFunc("/api/upload", hs.handleUploadTrack)
	hs.mux.HandleFunc("/api/import", hs.handleImport)
	hs.mux.HandleFunc("/api/imports", hs.handleGetImports)
	hs.mux.HandleFunc("/api/imports/", hs.handleGetImports)
	hs.mux.HandleFunc("/api/validate-url", hs.handleValidateURL)

	// Assistant
	hs.mux.HandleFunc("/api/assistant/ask", hs.handleAssistantAsk)
	hs.mux.HandleFunc("/api/assistant/summarize", hs.handleAssistantSummarize)
}

// Shutdown gracefully stops the server and tears down playback sessions so
// final minute flushes reach the database.
func (hs *HyggeServer) Shutdown() {
	hs.logger.Info("Shutting down companion server...")

	if hs.httpServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := hs.httpServer.Shutdown(ctx); err != nil {
			hs.logger.WithError(err).Warn("HTTP server shutdown error")
		}
	}

	hs.stopFileWatcher()
	hs.sessions.Close()
	hs.trackCache.Stop()

	if hs.tunnelSvc != nil {
		hs.tunnelSvc.Stop()
	}
	if err := hs.positions.Close(); err != nil {
		hs.logger.WithError(err).Warn("Position store close error")
	}

	hs.logger.Info("Companion server shutdown complete")
}
