package database

import (
	"path/filepath"
	"testing"

	"hygge/pkg/models"
)

func newTestDatabase(t *testing.T) *Database {
	t.Helper()

	db, err := NewDatabase(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to create test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	return db
}

func TestDatabase(t *testing.T) {
	db := newTestDatabase(t)

	t.Run("InsertAndGetTrack", func(t *testing.T) {
		track := models.Track{
			Title:       "Morning Calm",
			Artist:      "Anna Holt",
			Description: "A short guided meditation",
			Category:    "meditation",
			Subcategory: "breathing",
			Kind:        models.KindAudio,
			Duration:    600,
			FilePath:    "/test/morning-calm.mp3",
			FileSize:    1024000,
		}

		// Insert track
		id, err := db.InsertTrack(track)
		if err != nil {
			t.Fatalf("Failed to insert track: %v", err)
		}

		// Get track by ID
		retrievedTrack, err := db.GetTrackByID(id)
		if err != nil {
			t.Fatalf("Failed to get track by ID: %v", err)
		}

		// Verify track data
		if retrievedTrack.Title != track.Title {
			t.Errorf("Expected title %s, got %s", track.Title, retrievedTrack.Title)
		}
		if retrievedTrack.Category != track.Category {
			t.Errorf("Expected category %s, got %s", track.Category, retrievedTrack.Category)
		}
		if retrievedTrack.Kind != models.KindAudio {
			t.Errorf("Expected kind audio, got %s", retrievedTrack.Kind)
		}
	})

	t.Run("InsertDuplicatePathUpdates", func(t *testing.T) {
		track := models.Track{
			Title:    "Evening Wind Down",
			Category: "sleep",
			Kind:     models.KindAudio,
			FilePath: "/test/evening-calm.mp3",
			FileSize: 2048,
		}

		if _, err := db.InsertTrack(track); err != nil {
			t.Fatalf("Failed to insert track: %v", err)
		}

		track.Title = "Evening Calm"
		track.FileSize = 4096

		id, err := db.InsertTrack(track)
		if err != nil {
			t.Fatalf("Failed to upsert track: %v", err)
		}

		updated, err := db.GetTrackByID(id)
		if err != nil {
			t.Fatalf("Failed to get updated track: %v", err)
		}
		if updated.Title != "Evening Calm" {
			t.Errorf("Expected updated title, got %s", updated.Title)
		}
		if updated.FileSize != 4096 {
			t.Errorf("Expected updated file size, got %d", updated.FileSize)
		}

		// The upsert must not touch tracks at other paths.
		tracks, err := db.GetTracksByCategory("meditation", "breathing")
		if err != nil {
			t.Fatalf("Failed to get tracks by subcategory: %v", err)
		}
		if len(tracks) != 1 || tracks[0].Title != "Morning Calm" {
			t.Errorf("Expected original breathing track to survive upsert, got %v", tracks)
		}
	})

	t.Run("GetTracksByCategory", func(t *testing.T) {
		_, err := db.InsertTrack(models.Track{
			Title:    "Sun Salutation",
			Category: "yoga",
			Kind:     models.KindVideo,
			FilePath: "/test/sun-salutation.mp4",
			FileSize: 4096,
		})
		if err != nil {
			t.Fatalf("Failed to insert yoga track: %v", err)
		}

		tracks, err := db.GetTracksByCategory("yoga", "")
		if err != nil {
			t.Fatalf("Failed to get tracks by category: %v", err)
		}
		if len(tracks) != 1 || tracks[0].Category != "yoga" {
			t.Errorf("Expected one yoga track, got %d", len(tracks))
		}

		tracks, err = db.GetTracksByCategory("meditation", "breathing")
		if err != nil {
			t.Fatalf("Failed to get tracks by subcategory: %v", err)
		}
		if len(tracks) != 1 {
			t.Errorf("Expected one breathing track, got %d", len(tracks))
		}
	})

	t.Run("SearchTracks", func(t *testing.T) {
		tracks, err := db.SearchTracks("Calm")
		if err != nil {
			t.Fatalf("Failed to search tracks: %v", err)
		}
		if len(tracks) == 0 {
			t.Error("Expected to find tracks with 'Calm'")
		}
	})
}

func TestRecordPlay(t *testing.T) {
	db := newTestDatabase(t)

	id, err := db.InsertTrack(models.Track{
		Title:    "Body Scan",
		Category: "meditation",
		Kind:     models.KindAudio,
		FilePath: "/test/body-scan.mp3",
		FileSize: 512,
	})
	if err != nil {
		t.Fatalf("Failed to insert track: %v", err)
	}

	if err := db.RecordPlay(id, "user-1"); err != nil {
		t.Fatalf("Failed to record play: %v", err)
	}
	if err := db.RecordPlay(id, "user-2"); err != nil {
		t.Fatalf("Failed to record second play: %v", err)
	}

	track, err := db.GetTrackByID(id)
	if err != nil {
		t.Fatalf("Failed to get track: %v", err)
	}
	if track.PlayCount != 2 {
		t.Errorf("Expected play count 2, got %d", track.PlayCount)
	}
}

func TestActivityMinutes(t *testing.T) {
	db := newTestDatabase(t)

	// Deltas onto the same aggregate accumulate
	if err := db.AddMinutes("user-1", "2026-03-14", "meditation", 1); err != nil {
		t.Fatalf("Failed to add minutes: %v", err)
	}
	if err := db.AddMinutes("user-1", "2026-03-14", "meditation", 2); err != nil {
		t.Fatalf("Failed to add more minutes: %v", err)
	}
	if err := db.AddMinutes("user-1", "2026-03-14", "yoga", 5); err != nil {
		t.Fatalf("Failed to add yoga minutes: %v", err)
	}

	records, err := db.GetActivityForDay("user-1", "2026-03-14")
	if err != nil {
		t.Fatalf("Failed to get activity: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("Expected 2 activity records, got %d", len(records))
	}

	byActivity := make(map[string]int)
	for _, rec := range records {
		byActivity[rec.Activity] = rec.Minutes
	}
	if byActivity["meditation"] != 3 {
		t.Errorf("Expected 3 meditation minutes, got %d", byActivity["meditation"])
	}
	if byActivity["yoga"] != 5 {
		t.Errorf("Expected 5 yoga minutes, got %d", byActivity["yoga"])
	}

	// Zero and negative deltas are ignored
	if err := db.AddMinutes("user-1", "2026-03-14", "meditation", 0); err != nil {
		t.Fatalf("Zero delta failed: %v", err)
	}
	records, _ = db.GetActivityForDay("user-1", "2026-03-14")
	for _, rec := range records {
		if rec.Activity == "meditation" && rec.Minutes != 3 {
			t.Errorf("Zero delta changed aggregate to %d", rec.Minutes)
		}
	}
}

func TestActivitySince(t *testing.T) {
	db := newTestDatabase(t)

	db.AddMinutes("user-1", "2026-03-10", "meditation", 10)
	db.AddMinutes("user-1", "2026-03-12", "meditation", 20)
	db.AddMinutes("user-1", "2026-03-14", "meditation", 30)

	records, err := db.GetActivitySince("user-1", "2026-03-12")
	if err != nil {
		t.Fatalf("Failed to get activity since: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("Expected 2 records, got %d", len(records))
	}
	if records[0].Day != "2026-03-12" || records[1].Day != "2026-03-14" {
		t.Errorf("Records not ordered oldest first: %+v", records)
	}
}

func TestCollections(t *testing.T) {
	db := newTestDatabase(t)

	var trackIDs []int
	for _, path := range []string{"/test/a.mp3", "/test/b.mp3", "/test/c.mp3"} {
		id, err := db.InsertTrack(models.Track{
			Title:    "Sleep Story",
			Category: "sleep",
			Kind:     models.KindAudio,
			FilePath: path,
			FileSize: 100,
		})
		if err != nil {
			t.Fatalf("Failed to insert track: %v", err)
		}
		trackIDs = append(trackIDs, id)
	}

	collID, err := db.CreateCollection("Sleep Series", "Seven nights of rest", "sleep")
	if err != nil {
		t.Fatalf("Failed to create collection: %v", err)
	}

	for _, id := range trackIDs {
		if err := db.AddTrackToCollection(collID, id); err != nil {
			t.Fatalf("Failed to add track %d: %v", id, err)
		}
	}

	tracks, err := db.GetCollectionTracks(collID)
	if err != nil {
		t.Fatalf("Failed to get collection tracks: %v", err)
	}
	if len(tracks) != 3 {
		t.Fatalf("Expected 3 tracks, got %d", len(tracks))
	}
	// Order follows insertion position, not creation time
	for i, id := range trackIDs {
		if tracks[i].ID != id {
			t.Errorf("Position %d: expected track %d, got %d", i, id, tracks[i].ID)
		}
	}

	if err := db.RemoveTrackFromCollection(collID, trackIDs[1]); err != nil {
		t.Fatalf("Failed to remove track: %v", err)
	}
	tracks, _ = db.GetCollectionTracks(collID)
	if len(tracks) != 2 {
		t.Errorf("Expected 2 tracks after removal, got %d", len(tracks))
	}

	collections, err := db.GetAllCollections()
	if err != nil {
		t.Fatalf("Failed to list collections: %v", err)
	}
	if len(collections) != 1 || collections[0].TrackCount != 2 {
		t.Errorf("Expected one collection with 2 tracks, got %+v", collections)
	}

	if err := db.DeleteCollection(collID); err != nil {
		t.Fatalf("Failed to delete collection: %v", err)
	}
}

func TestSummaries(t *testing.T) {
	db := newTestDatabase(t)

	if _, err := db.GetSummary("article-1"); err == nil {
		t.Error("Expected error for missing summary")
	}

	if err := db.SaveSummary("article-1", "https://example.com/post", "A calm read."); err != nil {
		t.Fatalf("Failed to save summary: %v", err)
	}

	summary, err := db.GetSummary("article-1")
	if err != nil {
		t.Fatalf("Failed to get summary: %v", err)
	}
	if summary != "A calm read." {
		t.Errorf("Unexpected summary: %q", summary)
	}
}
