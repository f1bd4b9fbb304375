package database

import (
	"database/sql"
	"fmt"
	"time"

	"hygge/pkg/models"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/sirupsen/logrus"
)

// Database wraps a *sql.DB providing higher-level helper methods for
// interacting with the application's persistent store. It is safe for
// concurrent use because the underlying *sql.DB is concurrency-safe.
type Database struct {
	conn   *sql.DB
	logger *logrus.Logger

	// Prepared statements for better performance
	insertTrackStmt   *sql.Stmt
	updateTrackStmt   *sql.Stmt
	getTrackByIDStmt  *sql.Stmt
	trackExistsStmt   *sql.Stmt
	removeTrackStmt   *sql.Stmt
	searchTracksStmt  *sql.Stmt
	incrementPlayStmt *sql.Stmt
	insertPlayStmt    *sql.Stmt
	addMinutesStmt    *sql.Stmt
}

// NewDatabase opens (or creates) a SQLite database at the provided path and
// ensures all required tables and indices exist. It also applies lightweight
// performance-oriented pragmas (WAL, cache sizing). Caller should Close() it
// when finished.
func NewDatabase(dbPath string) (*Database, error) {
	// Initialize logger
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	conn, err := sql.Open("sqlite3", dbPath+"?cache=shared&mode=rwc")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Configure connection pool - adjusted for SQLite
	conn.SetMaxOpenConns(5) // SQLite works better with fewer connections
	conn.SetMaxIdleConns(2)
	conn.SetConnMaxLifetime(15 * time.Minute)

	// Enable WAL mode for better concurrency
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA cache_size=2000;",
		"PRAGMA temp_store=memory;",
		"PRAGMA foreign_keys=ON;",
		"PRAGMA auto_vacuum=INCREMENTAL;",
	}

	for _, pragma := range pragmas {
		if _, err := conn.Exec(pragma); err != nil {
			logger.WithError(err).WithField("pragma", pragma).Warn("Failed to set pragma")
		}
	}

	db := &Database{
		conn:   conn,
		logger: logger,
	}

	if err := db.createTables(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	if err := db.prepareStatements(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to prepare statements: %w", err)
	}

	logger.WithField("db_path", dbPath).Info("Database initialized successfully")
	return db, nil
}

// createTables creates tables and indices if they do not already exist, then
// executes any migrations. This is idempotent and safe to call multiple times.
func (db *Database) createTables() error {
	// Create tracks table
	tracksTable := `
	CREATE TABLE IF NOT EXISTS tracks (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		title TEXT NOT NULL,
		artist TEXT,
		description TEXT,
		category TEXT NOT NULL,
		subcategory TEXT,
		kind TEXT NOT NULL DEFAULT 'audio',
		duration INTEGER DEFAULT 0,
		file_path TEXT NOT NULL UNIQUE,
		file_size INTEGER NOT NULL,
		has_cover BOOLEAN DEFAULT FALSE,
		cover_id TEXT,
		play_count INTEGER DEFAULT 0,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);`

	// Create collections table
	collectionsTable := `
	CREATE TABLE IF NOT EXISTS collections (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		description TEXT,
		category TEXT,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);`

	// Create collection_tracks junction table
	collectionTracksTable := `
	CREATE TABLE IF NOT EXISTS collection_tracks (
		collection_id INTEGER,
		track_id INTEGER,
		position INTEGER,
		added_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY (collection_id) REFERENCES collections(id) ON DELETE CASCADE,
		FOREIGN KEY (track_id) REFERENCES tracks(id) ON DELETE CASCADE,
		PRIMARY KEY (collection_id, track_id)
	);`

	// Create play_events table (one row per play/view)
	playEventsTable := `
	CREATE TABLE IF NOT EXISTS play_events (
		id TEXT PRIMARY KEY,
		track_id INTEGER NOT NULL,
		user_id TEXT NOT NULL,
		played_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY (track_id) REFERENCES tracks(id) ON DELETE CASCADE
	);`

	// Create activity_minutes table (per user/day/activity-type aggregate)
	activityMinutesTable := `
	CREATE TABLE IF NOT EXISTS activity_minutes (
		user_id TEXT NOT NULL,
		day TEXT NOT NULL,
		activity TEXT NOT NULL,
		minutes INTEGER NOT NULL DEFAULT 0,
		PRIMARY KEY (user_id, day, activity)
	);`

	// Create summaries table (cached assistant article summaries)
	summariesTable := `
	CREATE TABLE IF NOT EXISTS summaries (
		article_id TEXT PRIMARY KEY,
		url TEXT NOT NULL,
		summary TEXT NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);`

	// Create import_jobs table (for persistence of media imports)
	importJobsTable := `
	CREATE TABLE IF NOT EXISTS import_jobs (
		id TEXT PRIMARY KEY,
		url TEXT NOT NULL,
		title TEXT,
		category TEXT,
		status TEXT,
		progress INTEGER,
		error TEXT,
		output_path TEXT,
		created_at DATETIME,
		completed_at DATETIME
	);`

	// Create indices for better performance
	indices := []string{
		"CREATE INDEX IF NOT EXISTS idx_tracks_category ON tracks(category, subcategory);",
		"CREATE INDEX IF NOT EXISTS idx_tracks_created ON tracks(created_at);",
		"CREATE INDEX IF NOT EXISTS idx_tracks_search ON tracks(title, artist, description);",
		"CREATE INDEX IF NOT EXISTS idx_tracks_file_path ON tracks(file_path);",
		"CREATE INDEX IF NOT EXISTS idx_collection_tracks_collection ON collection_tracks(collection_id);",
		"CREATE INDEX IF NOT EXISTS idx_collection_tracks_position ON collection_tracks(collection_id, position);",
		"CREATE INDEX IF NOT EXISTS idx_play_events_track ON play_events(track_id);",
		"CREATE INDEX IF NOT EXISTS idx_play_events_user ON play_events(user_id, played_at);",
		"CREATE INDEX IF NOT EXISTS idx_import_jobs_status ON import_jobs(status);",
	}

	tables := []string{
		tracksTable, collectionsTable, collectionTracksTable,
		playEventsTable, activityMinutesTable, summariesTable, importJobsTable,
	}
	for _, table := range tables {
		if _, err := db.conn.Exec(table); err != nil {
			return err
		}
	}

	for _, index := range indices {
		if _, err := db.conn.Exec(index); err != nil {
			return err
		}
	}

	// Run migrations
	if err := db.runMigrations(); err != nil {
		return err
	}

	return nil
}

// runMigrations performs incremental schema updates in-place. Each migration
// should be idempotent and safe to re-run; keep them lightweight.
func (db *Database) runMigrations() error {
	// Migration 1: Add subcategory column to tracks table if it doesn't exist
	var columnExists bool
	err := db.conn.QueryRow(`
		SELECT COUNT(*) > 0
		FROM pragma_table_info('tracks')
		WHERE name = 'subcategory'`).Scan(&columnExists)

	if err != nil {
		return err
	}

	if !columnExists {
		_, err = db.conn.Exec("ALTER TABLE tracks ADD COLUMN subcategory TEXT")
		if err != nil {
			return err
		}
	}

	// Migration 2: Add category column to collections table if it doesn't exist
	var categoryExists bool
	err = db.conn.QueryRow(`
		SELECT COUNT(*) > 0
		FROM pragma_table_info('collections')
		WHERE name = 'category'`).Scan(&categoryExists)

	if err != nil {
		return err
	}

	if !categoryExists {
		_, err = db.conn.Exec("ALTER TABLE collections ADD COLUMN category TEXT")
		if err != nil {
			return err
		}

		db.logger.Info("Added category column to collections table")
	}

	return nil
}

const trackColumns = `id, title, COALESCE(artist, ''), COALESCE(description, ''), category,
	COALESCE(subcategory, ''), kind, duration, file_path, file_size, has_cover,
	COALESCE(cover_id, ''), play_count, created_at`

// prepareStatements prepares commonly used SQL statements for better performance
func (db *Database) prepareStatements() error {
	var err error

	// Insert track statement
	db.insertTrackStmt, err = db.conn.Prepare(`
		INSERT INTO tracks (title, artist, description, category, subcategory, kind, duration, file_path, file_size, has_cover, cover_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert track statement: %w", err)
	}

	// Update track statement
	db.updateTrackStmt, err = db.conn.Prepare(`
		UPDATE tracks SET title = ?, artist = ?, description = ?, category = ?, subcategory = ?, kind = ?, duration = ?, file_size = ?, has_cover = ?, cover_id = ?
		WHERE id = ?`)
	if err != nil {
		return fmt.Errorf("failed to prepare update track statement: %w", err)
	}

	// Get track by ID statement
	db.getTrackByIDStmt, err = db.conn.Prepare(`
		SELECT ` + trackColumns + ` FROM tracks WHERE id = ?`)
	if err != nil {
		return fmt.Errorf("failed to prepare get track by ID statement: %w", err)
	}

	// Track exists statement
	db.trackExistsStmt, err = db.conn.Prepare(`
		SELECT COUNT(*) FROM tracks WHERE file_path = ?`)
	if err != nil {
		return fmt.Errorf("failed to prepare track exists statement: %w", err)
	}

	// Remove track statement
	db.removeTrackStmt, err = db.conn.Prepare(`
		DELETE FROM tracks WHERE file_path = ?`)
	if err != nil {
		return fmt.Errorf("failed to prepare remove track statement: %w", err)
	}

	// Search tracks statement
	db.searchTracksStmt, err = db.conn.Prepare(`
		SELECT ` + trackColumns + `
		FROM tracks
		WHERE title LIKE ? OR artist LIKE ? OR description LIKE ?
		ORDER BY created_at DESC`)
	if err != nil {
		return fmt.Errorf("failed to prepare search tracks statement: %w", err)
	}

	// Increment play count statement
	db.incrementPlayStmt, err = db.conn.Prepare(`
		UPDATE tracks SET play_count = play_count + 1 WHERE id = ?`)
	if err != nil {
		return fmt.Errorf("failed to prepare increment play count statement: %w", err)
	}

	// Insert play event statement
	db.insertPlayStmt, err = db.conn.Prepare(`
		INSERT INTO play_events (id, track_id, user_id, played_at) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert play event statement: %w", err)
	}

	// Activity minute upsert statement
	db.addMinutesStmt, err = db.conn.Prepare(`
		INSERT INTO activity_minutes (user_id, day, activity, minutes) VALUES (?, ?, ?, ?)
		ON CONFLICT(user_id, day, activity) DO UPDATE SET minutes = minutes + excluded.minutes`)
	if err != nil {
		return fmt.Errorf("failed to prepare add minutes statement: %w", err)
	}

	return nil
}

// InsertTrack inserts a new track or updates an existing track (matched by
// file_path) returning the track's database ID.
func (db *Database) InsertTrack(track models.Track) (int, error) {
	// Check if track already exists
	var existingID int
	err := db.conn.QueryRow("SELECT id FROM tracks WHERE file_path = ?", track.FilePath).Scan(&existingID)
	if err == nil {
		// Track exists, update it using prepared statement
		_, err = db.updateTrackStmt.Exec(
			track.Title, track.Artist, track.Description, track.Category, track.Subcategory,
			string(track.Kind), track.Duration, track.FileSize, track.HasCover, track.CoverID,
			existingID)
		if err != nil {
			db.logger.WithError(err).WithField("track_id", existingID).Error("Failed to update existing track")
		}
		return existingID, err
	}

	// Insert new track using prepared statement
	result, err := db.insertTrackStmt.Exec(
		track.Title, track.Artist, track.Description, track.Category, track.Subcategory,
		string(track.Kind), track.Duration, track.FilePath, track.FileSize, track.HasCover, track.CoverID)
	if err != nil {
		db.logger.WithError(err).WithField("file_path", track.FilePath).Error("Failed to insert new track")
		return 0, err
	}

	id, err := result.LastInsertId()
	if err != nil {
		db.logger.WithError(err).Error("Failed to get last insert ID")
		return 0, err
	}

	return int(id), nil
}

// GetAllTracks returns all tracks ordered by creation time descending.
func (db *Database) GetAllTracks() ([]models.Track, error) {
	rows, err := db.conn.Query(`
		SELECT ` + trackColumns + `
		FROM tracks
		ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTrackRows(rows)
}

// GetTracksByCategory returns tracks for a category (and optional
// subcategory) ordered by creation time descending.
func (db *Database) GetTracksByCategory(category, subcategory string) ([]models.Track, error) {
	var rows *sql.Rows
	var err error

	if subcategory != "" {
		rows, err = db.conn.Query(`
			SELECT `+trackColumns+`
			FROM tracks
			WHERE category = ? AND subcategory = ?
			ORDER BY created_at DESC`, category, subcategory)
	} else {
		rows, err = db.conn.Query(`
			SELECT `+trackColumns+`
			FROM tracks
			WHERE category = ?
			ORDER BY created_at DESC`, category)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTrackRows(rows)
}

// GetTrackByID returns a single track by its ID.
func (db *Database) GetTrackByID(id int) (*models.Track, error) {
	row := db.getTrackByIDStmt.QueryRow(id)

	track, err := scanTrackRow(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("track with ID %d not found", id)
	}
	if err != nil {
		return nil, err
	}
	return track, nil
}

// SearchTracks performs a simple LIKE-based search over title, artist and
// description, newest first.
func (db *Database) SearchTracks(query string) ([]models.Track, error) {
	pattern := "%" + query + "%"
	rows, err := db.searchTracksStmt.Query(pattern, pattern, pattern)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTrackRows(rows)
}

// RemoveTrackByPath deletes a track row identified by its file path.
func (db *Database) RemoveTrackByPath(filePath string) error {
	_, err := db.removeTrackStmt.Exec(filePath)
	if err != nil {
		db.logger.WithError(err).WithField("file_path", filePath).Error("Failed to remove track")
	}
	return err
}

// TrackExists returns true if a track exists with the given file path.
func (db *Database) TrackExists(filePath string) (bool, error) {
	var count int
	err := db.trackExistsStmt.QueryRow(filePath).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// RecordPlay increments a track's play counter and inserts the
// corresponding play event. This is the one-shot play/view signal a player
// session fires on its first play transition.
func (db *Database) RecordPlay(trackID int, userID string) error {
	if _, err := db.incrementPlayStmt.Exec(trackID); err != nil {
		return fmt.Errorf("failed to increment play count: %w", err)
	}

	_, err := db.insertPlayStmt.Exec(uuid.New().String(), trackID, userID, time.Now())
	if err != nil {
		return fmt.Errorf("failed to insert play event: %w", err)
	}
	return nil
}

// AddMinutes upserts a minute delta onto the (user, day, activity)
// aggregate.
func (db *Database) AddMinutes(userID, day, activity string, minutes int) error {
	if minutes <= 0 {
		return nil
	}
	_, err := db.addMinutesStmt.Exec(userID, day, activity, minutes)
	if err != nil {
		return fmt.Errorf("failed to add activity minutes: %w", err)
	}
	return nil
}

// GetActivityForDay returns all activity aggregates for a user on a day.
func (db *Database) GetActivityForDay(userID, day string) ([]models.ActivityRecord, error) {
	rows, err := db.conn.Query(`
		SELECT user_id, day, activity, minutes
		FROM activity_minutes
		WHERE user_id = ? AND day = ?
		ORDER BY activity`, userID, day)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanActivityRows(rows)
}

// GetActivitySince returns a user's activity aggregates from the given day
// onward, oldest first. Day strings compare correctly because of the
// YYYY-MM-DD format.
func (db *Database) GetActivitySince(userID, day string) ([]models.ActivityRecord, error) {
	rows, err := db.conn.Query(`
		SELECT user_id, day, activity, minutes
		FROM activity_minutes
		WHERE user_id = ? AND day >= ?
		ORDER BY day, activity`, userID, day)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanActivityRows(rows)
}

// CreateCollection inserts a new collection and returns its ID.
func (db *Database) CreateCollection(name, description, category string) (int, error) {
	result, err := db.conn.Exec(`
		INSERT INTO collections (name, description, category) VALUES (?, ?, ?)`,
		name, description, category)
	if err != nil {
		return 0, err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, err
	}
	return int(id), nil
}

// GetAllCollections returns all collections along with derived track counts.
func (db *Database) GetAllCollections() ([]models.Collection, error) {
	rows, err := db.conn.Query(`
		SELECT c.id, c.name, COALESCE(c.description, ''), COALESCE(c.category, ''), c.created_at,
			COUNT(ct.track_id) as track_count
		FROM collections c
		LEFT JOIN collection_tracks ct ON c.id = ct.collection_id
		GROUP BY c.id
		ORDER BY c.created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var collections []models.Collection
	for rows.Next() {
		var c models.Collection
		if err := rows.Scan(&c.ID, &c.Name, &c.Description, &c.Category, &c.CreatedAt, &c.TrackCount); err != nil {
			return nil, err
		}
		collections = append(collections, c)
	}
	return collections, rows.Err()
}

// GetCollectionTracks returns tracks for a collection ordered by stored
// position. This is the ordered list a player session mounts over.
func (db *Database) GetCollectionTracks(collectionID int) ([]models.Track, error) {
	rows, err := db.conn.Query(`
		SELECT t.id, t.title, COALESCE(t.artist, ''), COALESCE(t.description, ''), t.category,
			COALESCE(t.subcategory, ''), t.kind, t.duration, t.file_path, t.file_size, t.has_cover,
			COALESCE(t.cover_id, ''), t.play_count, t.created_at
		FROM tracks t
		JOIN collection_tracks ct ON t.id = ct.track_id
		WHERE ct.collection_id = ?
		ORDER BY ct.position`, collectionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTrackRows(rows)
}

// AddTrackToCollection appends a track to the end of a collection (if not
// already present).
func (db *Database) AddTrackToCollection(collectionID, trackID int) error {
	var nextPosition int
	err := db.conn.QueryRow(`
		SELECT COALESCE(MAX(position), -1) + 1
		FROM collection_tracks WHERE collection_id = ?`, collectionID).Scan(&nextPosition)
	if err != nil {
		return err
	}

	_, err = db.conn.Exec(`
		INSERT OR IGNORE INTO collection_tracks (collection_id, track_id, position)
		VALUES (?, ?, ?)`, collectionID, trackID, nextPosition)
	return err
}

// RemoveTrackFromCollection removes a specific track from the given
// collection.
func (db *Database) RemoveTrackFromCollection(collectionID, trackID int) error {
	_, err := db.conn.Exec(`
		DELETE FROM collection_tracks WHERE collection_id = ? AND track_id = ?`,
		collectionID, trackID)
	return err
}

// DeleteCollection deletes the collection and any collection_tracks entries
// referencing it.
func (db *Database) DeleteCollection(collectionID int) error {
	_, err := db.conn.Exec("DELETE FROM collections WHERE id = ?", collectionID)
	return err
}

// UpdateCollection updates collection metadata (name, description, category).
func (db *Database) UpdateCollection(collectionID int, name, description, category string) error {
	_, err := db.conn.Exec(`
		UPDATE collections SET name = ?, description = ?, category = ? WHERE id = ?`,
		name, description, category, collectionID)
	return err
}

// GetSummary returns a cached article summary, or sql.ErrNoRows if none
// exists.
func (db *Database) GetSummary(articleID string) (string, error) {
	var summary string
	err := db.conn.QueryRow("SELECT summary FROM summaries WHERE article_id = ?", articleID).Scan(&summary)
	return summary, err
}

// SaveSummary caches an article summary by article ID.
func (db *Database) SaveSummary(articleID, url, summary string) error {
	_, err := db.conn.Exec(`
		INSERT INTO summaries (article_id, url, summary) VALUES (?, ?, ?)
		ON CONFLICT(article_id) DO UPDATE SET url = excluded.url, summary = excluded.summary`,
		articleID, url, summary)
	return err
}

// UpsertImportJob inserts or updates an import job record by ID.
func (db *Database) UpsertImportJob(jobID, url, title, category, status string, progress int, errMsg, outputPath string, createdAt, completedAt *time.Time) error {
	_, err := db.conn.Exec(`
		INSERT INTO import_jobs (id, url, title, category, status, progress, error, output_path, created_at, completed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title, category = excluded.category, status = excluded.status,
			progress = excluded.progress, error = excluded.error,
			output_path = excluded.output_path, completed_at = excluded.completed_at`,
		jobID, url, title, category, status, progress, errMsg, outputPath, createdAt, completedAt)
	if err != nil {
		db.logger.WithError(err).WithField("job_id", jobID).Error("Failed to upsert import job")
	}
	return err
}

// Close closes the underlying database connection and prepared statements.
func (db *Database) Close() error {
	statements := []*sql.Stmt{
		db.insertTrackStmt, db.updateTrackStmt, db.getTrackByIDStmt,
		db.trackExistsStmt, db.removeTrackStmt, db.searchTracksStmt,
		db.incrementPlayStmt, db.insertPlayStmt, db.addMinutesStmt,
	}
	for _, stmt := range statements {
		if stmt != nil {
			stmt.Close()
		}
	}
	return db.conn.Close()
}

// scanner abstracts *sql.Row and *sql.Rows for single-track scanning.
type scanner interface {
	Scan(dest ...interface{}) error
}

// scanTrackRow scans a single track from a row using the trackColumns order.
func scanTrackRow(row scanner) (*models.Track, error) {
	var track models.Track
	var kind string
	err := row.Scan(
		&track.ID, &track.Title, &track.Artist, &track.Description, &track.Category,
		&track.Subcategory, &kind, &track.Duration, &track.FilePath, &track.FileSize,
		&track.HasCover, &track.CoverID, &track.PlayCount, &track.CreatedAt)
	if err != nil {
		return nil, err
	}
	track.Kind = models.MediaKind(kind)
	return &track, nil
}

// scanTrackRows collects all tracks from a result set. It centralizes row
// iteration logic to reduce duplication across query helpers.
func scanTrackRows(rows *sql.Rows) ([]models.Track, error) {
	var tracks []models.Track
	for rows.Next() {
		track, err := scanTrackRow(rows)
		if err != nil {
			return nil, err
		}
		tracks = append(tracks, *track)
	}
	return tracks, rows.Err()
}

func scanActivityRows(rows *sql.Rows) ([]models.ActivityRecord, error) {
	var records []models.ActivityRecord
	for rows.Next() {
		var rec models.ActivityRecord
		if err := rows.Scan(&rec.UserID, &rec.Day, &rec.Activity, &rec.Minutes); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}
