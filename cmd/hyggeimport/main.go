// hyggeimport is a small CLI for pulling remote audio into the library
// without running the full server.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"hygge/internal/config"
	"hygge/internal/database"
	"hygge/internal/importer"

	"github.com/sirupsen/logrus"
)

func main() {
	configPath := flag.String("config", "./config.toml", "path to the server config file")
	category := flag.String("category", "", "library category for the imported audio")
	title := flag.String("title", "", "override the source title")
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: hyggeimport [flags] <url>")
		flag.PrintDefaults()
		os.Exit(2)
	}
	url := flag.Arg(0)

	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		logger.WithError(err).Fatal("Error loading configuration")
	}

	db, err := database.NewDatabase(cfg.Database.Path)
	if err != nil {
		logger.WithError(err).Fatal("Error initializing database")
	}
	defer db.Close()

	imp, err := importer.NewImporter(cfg, db, logger)
	if err != nil {
		logger.WithError(err).Fatal("Importer not available")
	}

	if err := imp.ValidateURL(url); err != nil {
		logger.WithError(err).Fatal("URL rejected")
	}

	job, err := imp.Import(url, *title, *category)
	if err != nil {
		logger.WithError(err).Fatal("Failed to start import")
	}

	logger.WithField("job_id", job.ID).Info("Import started")

	// Poll until the background job settles
	for {
		time.Sleep(time.Second)

		current, ok := imp.GetJob(job.ID)
		if !ok {
			logger.Fatal("Import job disappeared")
		}

		switch current.Status {
		case importer.StatusCompleted:
			logger.WithField("output", current.OutputPath).Info("Import complete")
			return
		case importer.StatusFailed:
			logger.WithField("error", current.Error).Fatal("Import failed")
		}
	}
}
