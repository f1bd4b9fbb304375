// Package importer pulls remote audio into the library with yt-dlp. Each
// import lands in the target category's directory so the file watcher and
// scanner pick it up like any other library file.
package importer

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"hygge/internal/config"
	"hygge/internal/database"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// JobStatus represents the status of an import job
type JobStatus string

const (
	StatusPending     JobStatus = "pending"
	StatusDownloading JobStatus = "downloading"
	StatusProcessing  JobStatus = "processing"
	StatusCompleted   JobStatus = "completed"
	StatusFailed      JobStatus = "failed"
)

// Job represents one import
type Job struct {
	ID          string     `json:"id"`
	URL         string     `json:"url"`
	Title       string     `json:"title"`
	Category    string     `json:"category"`
	Status      JobStatus  `json:"status"`
	Progress    int        `json:"progress"`
	Error       string     `json:"error,omitempty"`
	OutputPath  string     `json:"output_path,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// Importer runs yt-dlp imports into the library
type Importer struct {
	cfg       *config.Config
	db        *database.Database
	logger    *logrus.Logger
	jobs      map[string]*Job
	jobsMux   sync.RWMutex
	ytDlpPath string
	slots     chan struct{} // bounds concurrent yt-dlp processes
}

// NewImporter creates an importer, verifying yt-dlp is reachable
func NewImporter(cfg *config.Config, db *database.Database, logger *logrus.Logger) (*Importer, error) {
	if !cfg.Importer.Enabled {
		return nil, fmt.Errorf("importer disabled in config")
	}

	imp := &Importer{
		cfg:    cfg,
		db:     db,
		logger: logger,
		jobs:   make(map[string]*Job),
		slots:  make(chan struct{}, maxConcurrent(cfg)),
	}

	if err := imp.checkYtDlp(); err != nil {
		return nil, fmt.Errorf("yt-dlp not available: %w", err)
	}

	return imp, nil
}

func maxConcurrent(cfg *config.Config) int {
	if cfg.Importer.MaxConcurrent > 0 {
		return cfg.Importer.MaxConcurrent
	}
	return 2
}

// checkYtDlp verifies that yt-dlp is installed and accessible
func (imp *Importer) checkYtDlp() error {
	candidates := []string{imp.cfg.Importer.YtDlpPath, "yt-dlp", "./yt-dlp"}
	for _, path := range candidates {
		if path == "" {
			continue
		}
		if _, err := exec.LookPath(path); err == nil {
			imp.ytDlpPath = path
			return nil
		}
	}
	return fmt.Errorf("yt-dlp not found in PATH")
}

// ValidateURL checks scheme and, when an allow-list is configured, the host.
func (imp *Importer) ValidateURL(rawURL string) error {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("invalid URL: must use http or https")
	}

	if len(imp.cfg.Importer.AllowedDomains) > 0 {
		host := strings.ToLower(parsed.Hostname())
		allowed := false
		for _, domain := range imp.cfg.Importer.AllowedDomains {
			if host == domain || strings.HasSuffix(host, "."+domain) {
				allowed = true
				break
			}
		}
		if !allowed {
			return fmt.Errorf("domain %q is not in the allowed list", host)
		}
	}

	return nil
}

// Import starts an import for a URL into the given category.
func (imp *Importer) Import(rawURL, customTitle, category string) (*Job, error) {
	if category == "" {
		category = imp.cfg.Library.DefaultCategory
	}

	job := &Job{
		ID:        uuid.New().String(),
		URL:       rawURL,
		Title:     customTitle,
		Category:  category,
		Status:    StatusPending,
		CreatedAt: time.Now(),
	}

	imp.jobsMux.Lock()
	imp.jobs[job.ID] = job
	imp.jobsMux.Unlock()

	imp.persist(job)

	go imp.process(job)

	return job, nil
}

// process runs the import on a bounded worker slot.
func (imp *Importer) process(job *Job) {
	imp.slots <- struct{}{}
	defer func() { <-imp.slots }()

	imp.update(job.ID, StatusDownloading, 0, "")

	meta, err := imp.probe(job.URL)
	if err != nil {
		imp.update(job.ID, StatusFailed, 0, fmt.Sprintf("failed to read source metadata: %v", err))
		return
	}

	title := job.Title
	if title == "" {
		title = meta.Title
	}
	if title == "" {
		title = meta.Uploader
	}

	safeTitle := sanitizeFilename(title)
	filename := fmt.Sprintf("%s.%%(ext)s", safeTitle)
	outputPath := filepath.Join(imp.cfg.Library.Path, job.Category, filename)

	imp.jobsMux.Lock()
	job.Title = title
	imp.jobsMux.Unlock()

	imp.update(job.ID, StatusProcessing, 25, "")

	cmd := exec.Command(imp.ytDlpPath,
		"--extract-audio",
		"--audio-format", imp.cfg.Importer.AudioFormat,
		"--audio-quality", imp.cfg.Importer.AudioQuality,
		"--output", outputPath,
		"--no-playlist",
		job.URL,
	)

	output, err := cmd.CombinedOutput()
	if err != nil {
		imp.logger.WithError(err).WithField("url", job.URL).Error("Import failed")
		imp.update(job.ID, StatusFailed, 0, fmt.Sprintf("download failed: %v: %s", err, string(output)))
		return
	}

	actualPath := strings.Replace(outputPath, ".%(ext)s", "."+imp.cfg.Importer.AudioFormat, 1)

	imp.jobsMux.Lock()
	job.OutputPath = actualPath
	now := time.Now()
	job.CompletedAt = &now
	imp.jobsMux.Unlock()

	imp.update(job.ID, StatusCompleted, 100, "")

	imp.logger.WithFields(logrus.Fields{
		"title":    title,
		"category": job.Category,
		"path":     actualPath,
	}).Info("Import completed")
}

// sourceMetadata is the subset of yt-dlp's JSON dump we care about
type sourceMetadata struct {
	Title    string `json:"title"`
	Uploader string `json:"uploader"`
	Duration int    `json:"duration"`
}

// probe extracts metadata from a URL without downloading
func (imp *Importer) probe(rawURL string) (*sourceMetadata, error) {
	cmd := exec.Command(imp.ytDlpPath, "--dump-json", "--no-playlist", rawURL)

	output, err := cmd.Output()
	if err != nil {
		return nil, err
	}

	var meta sourceMetadata
	if err := json.Unmarshal(output, &meta); err != nil {
		return nil, fmt.Errorf("failed to parse metadata: %w", err)
	}

	return &meta, nil
}

// sanitizeFilename removes invalid characters from filenames
func sanitizeFilename(filename string) string {
	invalid := []string{"/", "\\", ":", "*", "?", "\"", "<", ">", "|"}
	result := filename
	for _, char := range invalid {
		result = strings.ReplaceAll(result, char, "_")
	}
	return strings.TrimSpace(result)
}

// update changes a job's status and mirrors it to the database.
func (imp *Importer) update(jobID string, status JobStatus, progress int, errMsg string) {
	imp.jobsMux.Lock()
	job, exists := imp.jobs[jobID]
	if exists {
		job.Status = status
		job.Progress = progress
		if errMsg != "" {
			job.Error = errMsg
		}
	}
	imp.jobsMux.Unlock()

	if exists {
		imp.persist(job)
	}
}

// persist mirrors the job record into sqlite so history survives restarts.
func (imp *Importer) persist(job *Job) {
	imp.jobsMux.RLock()
	created := job.CreatedAt
	completed := job.CompletedAt
	err := imp.db.UpsertImportJob(job.ID, job.URL, job.Title, job.Category,
		string(job.Status), job.Progress, job.Error, job.OutputPath, &created, completed)
	imp.jobsMux.RUnlock()

	if err != nil {
		imp.logger.WithError(err).WithField("job_id", job.ID).Warn("Failed to persist import job")
	}
}

// GetJob returns an import job by ID
func (imp *Importer) GetJob(jobID string) (*Job, bool) {
	imp.jobsMux.RLock()
	defer imp.jobsMux.RUnlock()

	job, exists := imp.jobs[jobID]
	return job, exists
}

// GetAllJobs returns all import jobs
func (imp *Importer) GetAllJobs() []*Job {
	imp.jobsMux.RLock()
	defer imp.jobsMux.RUnlock()

	jobs := make([]*Job, 0, len(imp.jobs))
	for _, job := range imp.jobs {
		jobs = append(jobs, job)
	}
	return jobs
}

// CleanupCompletedJobs removes finished jobs older than maxAge from memory.
// Database history is untouched.
func (imp *Importer) CleanupCompletedJobs(maxAge time.Duration) {
	imp.jobsMux.Lock()
	defer imp.jobsMux.Unlock()

	cutoff := time.Now().Add(-maxAge)
	for id, job := range imp.jobs {
		if job.Status == StatusCompleted || job.Status == StatusFailed {
			if job.CompletedAt != nil && job.CompletedAt.Before(cutoff) {
				delete(imp.jobs, id)
			}
		}
	}
}
