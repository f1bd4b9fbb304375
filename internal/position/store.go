// Package position remembers where the user left off in a given track. The
// store is a small local key-value file, independent of the content catalog;
// records are never synced anywhere and live until explicitly cleared.
package position

import (
	"database/sql"
	"fmt"
	"strconv"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/sirupsen/logrus"
)

const keyPrefix = "audio_position_"

// Store is the last-played-offset store keyed by track ID.
type Store interface {
	// Get returns the saved offset in seconds, or 0 if no record exists.
	Get(trackID int) float64
	// Set overwrites the saved offset unconditionally.
	Set(trackID int, seconds float64)
	// Clear removes the record (called when a track finishes naturally).
	Clear(trackID int)
}

// FileStore is a Store backed by a local SQLite key-value file. Values are
// stored as string-encoded floating-point seconds under keys of the form
// audio_position_<trackId>.
type FileStore struct {
	conn   *sql.DB
	logger *logrus.Logger
}

// NewFileStore opens (or creates) the position file at the provided path.
// Caller should Close() it when finished.
func NewFileStore(path string, logger *logrus.Logger) (*FileStore, error) {
	conn, err := sql.Open("sqlite3", path+"?cache=shared&mode=rwc")
	if err != nil {
		return nil, fmt.Errorf("failed to open position store: %w", err)
	}

	// A single writer is plenty for a per-device store
	conn.SetMaxOpenConns(1)
	conn.SetConnMaxLifetime(15 * time.Minute)

	schema := `
	CREATE TABLE IF NOT EXISTS positions (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);`
	if _, err := conn.Exec(schema); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create position table: %w", err)
	}

	return &FileStore{conn: conn, logger: logger}, nil
}

// Get returns the saved offset for a track, or 0 if none exists or the
// stored value cannot be parsed.
func (s *FileStore) Get(trackID int) float64 {
	var value string
	err := s.conn.QueryRow("SELECT value FROM positions WHERE key = ?", key(trackID)).Scan(&value)
	if err == sql.ErrNoRows {
		return 0
	}
	if err != nil {
		s.logger.WithError(err).WithField("track_id", trackID).Warn("Failed to read saved position")
		return 0
	}

	seconds, err := strconv.ParseFloat(value, 64)
	if err != nil {
		s.logger.WithField("track_id", trackID).Warn("Discarding unparsable saved position")
		return 0
	}
	return seconds
}

// Set overwrites the saved offset for a track.
func (s *FileStore) Set(trackID int, seconds float64) {
	value := strconv.FormatFloat(seconds, 'f', -1, 64)
	_, err := s.conn.Exec(`
		INSERT INTO positions (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP`,
		key(trackID), value)
	if err != nil {
		s.logger.WithError(err).WithField("track_id", trackID).Warn("Failed to save position")
	}
}

// Clear removes the saved offset for a track.
func (s *FileStore) Clear(trackID int) {
	if _, err := s.conn.Exec("DELETE FROM positions WHERE key = ?", key(trackID)); err != nil {
		s.logger.WithError(err).WithField("track_id", trackID).Warn("Failed to clear position")
	}
}

// Close closes the underlying store file.
func (s *FileStore) Close() error {
	return s.conn.Close()
}

func key(trackID int) string {
	return keyPrefix + strconv.Itoa(trackID)
}
