package main

import (
	"os"
	"os/signal"
	"syscall"

	"hygge/internal/config"
	"hygge/internal/database"
	"hygge/internal/server"

	"github.com/sirupsen/logrus"
)

func main() {
	configPath := "./config.toml"
	if len(os.Args) > 1 {
		configPath = os.Args[1]
	}

	// Initialize basic logger for startup
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})

	// Load configuration
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		logger.WithError(err).Fatal("Error loading configuration")
	}

	configureLogger(logger, cfg)

	// Check if the library directory exists
	if _, err := os.Stat(cfg.Library.Path); os.IsNotExist(err) {
		logger.WithField("library_path", cfg.Library.Path).Fatal("Library directory does not exist. Please create it and add your media files.")
	}

	// Initialize database
	db, err := database.NewDatabase(cfg.Database.Path)
	if err != nil {
		logger.WithError(err).Fatal("Error initializing database")
	}
	defer db.Close()

	// Create and configure the companion server
	hyggeServer, err := server.NewHyggeServer(cfg, db, logger)
	if err != nil {
		logger.WithError(err).Fatal("Error creating server")
	}

	// Scan the media library
	if err := hyggeServer.ScanLibrary(); err != nil {
		logger.WithError(err).Fatal("Error scanning media library")
	}

	// Check track count and warn if empty
	if cfg.Library.ScanOnStartup {
		tracks, err := db.GetAllTracks()
		if err != nil {
			logger.WithError(err).Warn("Could not get track count")
		} else if len(tracks) == 0 {
			logger.WithField("supported_formats", cfg.Library.SupportedFormats).Warn("No supported media files found in the library")
		}
	}

	// Handle graceful shutdown
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	// Start the server in a goroutine
	go func() {
		if err := hyggeServer.Start(); err != nil {
			logger.WithError(err).Fatal("Server failed")
		}
	}()

	// Wait for shutdown signal
	<-c

	logger.Info("Received shutdown signal")
	hyggeServer.Shutdown()
}

// configureLogger applies the configured level, format, and output file.
func configureLogger(logger *logrus.Logger, cfg *config.Config) {
	if level, err := logrus.ParseLevel(cfg.Logging.Level); err == nil {
		logger.SetLevel(level)
	}

	if cfg.Logging.Format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}

	if cfg.Logging.File != "" {
		f, err := os.OpenFile(cfg.Logging.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			logger.WithError(err).Warn("Could not open log file, logging to stderr")
			return
		}
		logger.SetOutput(f)
	}
}
