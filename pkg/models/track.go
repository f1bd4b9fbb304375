package models

import "time"

// MediaKind distinguishes audio tracks from video items.
type MediaKind string

const (
	KindAudio MediaKind = "audio"
	KindVideo MediaKind = "video"
)

// Track represents a playable content item in the library
type Track struct {
	ID          int       `json:"id"`
	Title       string    `json:"title"`
	Artist      string    `json:"artist,omitempty"`
	Description string    `json:"description,omitempty"`
	Category    string    `json:"category"`
	Subcategory string    `json:"subcategory,omitempty"`
	Kind        MediaKind `json:"kind"`
	Duration    int       `json:"duration"` // in seconds, 0 until known
	FilePath    string    `json:"-"`        // don't expose file path to client
	FileSize    int64     `json:"fileSize"`
	HasCover    bool      `json:"hasCover"`
	CoverID     string    `json:"coverId,omitempty"` // For caching cover art
	PlayCount   int       `json:"playCount"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Collection represents a curated, ordered list of tracks (a program such
// as a sleep series or a guided meditation course)
type Collection struct {
	ID          int       `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Category    string    `json:"category,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	TrackCount  int       `json:"trackCount"`
}

// CollectionTrack represents the relationship between collections and tracks
type CollectionTrack struct {
	CollectionID int `json:"collectionId"`
	TrackID      int `json:"trackId"`
	Position     int `json:"position"`
}

// PlayEvent records a single play/view of a track by a user
type PlayEvent struct {
	ID       string    `json:"id"`
	TrackID  int       `json:"trackId"`
	UserID   string    `json:"userId"`
	PlayedAt time.Time `json:"playedAt"`
}

// ActivityRecord is the per-user/day/activity-type minute aggregate
type ActivityRecord struct {
	UserID   string `json:"userId"`
	Day      string `json:"day"` // YYYY-MM-DD
	Activity string `json:"activity"`
	Minutes  int    `json:"minutes"`
}

// ActivityForCategory maps a track category to the activity type credited
// for time spent playing it. Meditation and yoga accrue their own totals;
// reading, sleep, and music all count as listening time.
func ActivityForCategory(category string) string {
	switch category {
	case "meditation", "yoga":
		return category
	default:
		return "listening"
	}
}
