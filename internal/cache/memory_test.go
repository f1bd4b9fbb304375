package cache

import (
	"testing"
	"time"

	"hygge/pkg/models"
)

func TestSetGetDelete(t *testing.T) {
	c := NewMemoryCache(time.Minute)
	defer c.Stop()

	c.Set("a", 1)
	if v, ok := c.Get("a"); !ok || v.(int) != 1 {
		t.Errorf("Get(a) = %v, %v, want 1, true", v, ok)
	}

	c.Delete("a")
	if _, ok := c.Get("a"); ok {
		t.Error("expected a to be deleted")
	}
}

func TestExpiredEntriesNotReturned(t *testing.T) {
	c := NewMemoryCache(-time.Second)
	defer c.Stop()

	c.Set("a", 1)
	if _, ok := c.Get("a"); ok {
		t.Error("expired entry should not be returned")
	}
}

func TestDeletePrefix(t *testing.T) {
	c := NewMemoryCache(time.Minute)
	defer c.Stop()

	c.Set("tracks:music:", 1)
	c.Set("tracks:podcasts:tech", 2)
	c.Set("other", 3)

	c.DeletePrefix("tracks:")

	if c.Size() != 1 {
		t.Errorf("Size() = %d, want 1", c.Size())
	}
	if _, ok := c.Get("other"); !ok {
		t.Error("unrelated key should survive prefix delete")
	}
}

func TestTrackCacheRoundTrip(t *testing.T) {
	tc := NewTrackCache()
	defer tc.Stop()

	key := CategoryKey("music", "ambient")
	if key != "tracks:music:ambient" {
		t.Errorf("CategoryKey = %q", key)
	}

	tc.SetTracks(key, []models.Track{{ID: 1, Title: "Rain"}})

	tracks, ok := tc.GetTracks(key)
	if !ok || len(tracks) != 1 || tracks[0].ID != 1 {
		t.Fatalf("GetTracks = %v, %v", tracks, ok)
	}

	tc.InvalidateTracks()
	if _, ok := tc.GetTracks(key); ok {
		t.Error("expected cache to be invalidated")
	}
}
