package player

import (
	"testing"
	"time"

	"hygge/internal/clock"
	"hygge/pkg/models"

	"github.com/sirupsen/logrus"
)

// fakeMedia records the commands the controller issues, mimicking a bound
// media element.
type fakeMedia struct {
	loaded   []models.Track
	playing  bool
	position float64
	rate     float64
	volume   float64
	seeks    []float64
}

func (f *fakeMedia) Load(track models.Track) {
	f.loaded = append(f.loaded, track)
	f.playing = false
	f.position = 0
}

func (f *fakeMedia) Play()  { f.playing = true }
func (f *fakeMedia) Pause() { f.playing = false }

func (f *fakeMedia) SeekTo(seconds float64) {
	f.position = seconds
	f.seeks = append(f.seeks, seconds)
}

func (f *fakeMedia) SetRate(multiplier float64) { f.rate = multiplier }
func (f *fakeMedia) SetVolume(volume float64)   { f.volume = volume }

// memStore is an in-memory position.Store.
type memStore struct {
	m map[int]float64
}

func newMemStore() *memStore                  { return &memStore{m: make(map[int]float64)} }
func (s *memStore) Get(trackID int) float64   { return s.m[trackID] }
func (s *memStore) Set(trackID int, v float64) { s.m[trackID] = v }
func (s *memStore) Clear(trackID int)         { delete(s.m, trackID) }

func testQueue(n int) []models.Track {
	tracks := make([]models.Track, n)
	for i := range tracks {
		tracks[i] = models.Track{
			ID:       i + 1,
			Title:    "Track",
			Category: "meditation",
			Kind:     models.KindAudio,
			Duration: 300,
		}
	}
	return tracks
}

func newTestController(t *testing.T, media *fakeMedia, store *memStore) *Controller {
	t.Helper()

	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel) // Reduce noise in tests

	clk := clock.NewManual(time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC))
	c := NewController(media, store, clk, logger, 5*time.Second)
	t.Cleanup(c.Close)

	return c
}

func TestTogglePlayPauseIdempotence(t *testing.T) {
	media := &fakeMedia{}
	c := newTestController(t, media, newMemStore())

	if err := c.LoadQueue(testQueue(3), 0); err != nil {
		t.Fatalf("LoadQueue: %v", err)
	}

	if err := c.TogglePlayPause(); err != nil {
		t.Fatalf("first toggle: %v", err)
	}
	if s := c.State(); !s.IsPlaying || s.Phase != Playing || !media.playing {
		t.Fatalf("after first toggle: phase=%v media.playing=%v", s.Phase, media.playing)
	}

	if err := c.TogglePlayPause(); err != nil {
		t.Fatalf("second toggle: %v", err)
	}
	if s := c.State(); s.IsPlaying || s.Phase != Paused || media.playing {
		t.Errorf("after second toggle: phase=%v media.playing=%v, want paused", s.Phase, media.playing)
	}
}

func TestToggleWithNoTrackFails(t *testing.T) {
	c := newTestController(t, &fakeMedia{}, newMemStore())

	if err := c.TogglePlayPause(); err != ErrNoTrack {
		t.Errorf("TogglePlayPause on idle controller = %v, want ErrNoTrack", err)
	}
}

func TestRepeatOneRestartsOnEnd(t *testing.T) {
	media := &fakeMedia{}
	store := newMemStore()
	c := newTestController(t, media, store)

	c.LoadQueue(testQueue(3), 1)
	c.SetRepeat(RepeatOne)
	c.TogglePlayPause()
	c.HandleProgress(299, 300)
	store.Set(2, 299)

	c.HandleEnded()

	s := c.State()
	if s.Track == nil || s.Track.ID != 2 {
		t.Fatalf("track changed under repeat-one: %+v", s.Track)
	}
	if s.CurrentTime != 0 {
		t.Errorf("elapsed time = %v, want 0", s.CurrentTime)
	}
	if !s.IsPlaying || !media.playing {
		t.Errorf("playing flag lost across repeat-one restart")
	}
	if store.Get(2) != 0 {
		t.Errorf("saved position not cleared on natural completion")
	}
}

func TestEndAdvancesSequentially(t *testing.T) {
	media := &fakeMedia{}
	c := newTestController(t, media, newMemStore())

	c.LoadQueue(testQueue(3), 0)
	c.TogglePlayPause()
	c.HandleEnded()

	s := c.State()
	if s.Index != 1 {
		t.Fatalf("index after end = %d, want 1", s.Index)
	}
	if !s.IsPlaying {
		t.Errorf("playback did not continue onto the next track")
	}
	if len(media.loaded) != 2 {
		t.Errorf("loaded %d tracks, want 2", len(media.loaded))
	}
}

func TestEndOfQueueWithoutRepeatStops(t *testing.T) {
	media := &fakeMedia{}
	store := newMemStore()
	c := newTestController(t, media, store)

	c.LoadQueue(testQueue(3), 2)
	c.TogglePlayPause()
	c.HandleProgress(300, 300)
	c.HandleEnded()

	s := c.State()
	if s.Phase != Idle || s.IsPlaying || media.playing {
		t.Errorf("after final track: phase=%v media.playing=%v, want idle", s.Phase, media.playing)
	}
	if store.Get(3) != 0 {
		t.Errorf("final track position not cleared")
	}
}

func TestEndOfQueueWithRepeatAllWraps(t *testing.T) {
	media := &fakeMedia{}
	c := newTestController(t, media, newMemStore())

	c.LoadQueue(testQueue(3), 2)
	c.SetRepeat(RepeatAll)
	c.TogglePlayPause()
	c.HandleEnded()

	s := c.State()
	if s.Index != 0 || !s.IsPlaying {
		t.Errorf("after wrap: index=%d playing=%v, want index 0 playing", s.Index, s.IsPlaying)
	}
}

func TestNextAtBoundaryWithoutRepeatIsNoop(t *testing.T) {
	media := &fakeMedia{}
	c := newTestController(t, media, newMemStore())

	c.LoadQueue(testQueue(3), 2)
	c.TogglePlayPause()
	c.Next()

	s := c.State()
	if s.Index != 2 || !s.IsPlaying {
		t.Errorf("next at last index changed state: index=%d playing=%v", s.Index, s.IsPlaying)
	}
}

func TestNextPreservesPausedState(t *testing.T) {
	media := &fakeMedia{}
	c := newTestController(t, media, newMemStore())

	c.LoadQueue(testQueue(3), 0)
	c.Next()

	s := c.State()
	if s.Index != 1 {
		t.Fatalf("index = %d, want 1", s.Index)
	}
	if s.IsPlaying || media.playing {
		t.Errorf("advancing while paused started playback")
	}
}

func TestPreviousRestartsAfterThreeSeconds(t *testing.T) {
	media := &fakeMedia{}
	c := newTestController(t, media, newMemStore())

	c.LoadQueue(testQueue(3), 1)
	c.TogglePlayPause()
	c.HandleProgress(10, 300)
	c.Previous()

	s := c.State()
	if s.Index != 1 {
		t.Errorf("index = %d, want 1 (restart, not step back)", s.Index)
	}
	if s.CurrentTime != 0 {
		t.Errorf("current time = %v, want 0", s.CurrentTime)
	}
	if !s.IsPlaying {
		t.Errorf("restart lost the playing flag")
	}
}

func TestPreviousStepsBackEarlyInTrack(t *testing.T) {
	media := &fakeMedia{}
	c := newTestController(t, media, newMemStore())

	c.LoadQueue(testQueue(3), 1)
	c.HandleProgress(2, 300)
	c.Previous()

	if s := c.State(); s.Index != 0 {
		t.Errorf("index = %d, want 0", s.Index)
	}
}

func TestSingleTrackQueueControlsAreInert(t *testing.T) {
	media := &fakeMedia{}
	c := newTestController(t, media, newMemStore())

	c.LoadQueue(testQueue(1), 0)
	c.TogglePlayPause()
	c.HandleProgress(10, 300)

	c.Next()
	c.Previous()

	s := c.State()
	if s.Index != 0 || !s.IsPlaying || s.CurrentTime != 10 {
		t.Errorf("controls were not inert for a single-track queue: %+v", s)
	}
}

func TestSpeedCycling(t *testing.T) {
	media := &fakeMedia{}
	c := newTestController(t, media, newMemStore())
	c.LoadQueue(testQueue(2), 0)

	want := []float64{1.5, 2, 0.5, 1}
	for i, w := range want {
		got := c.CycleSpeed()
		if got != w {
			t.Fatalf("cycle %d: speed = %v, want %v", i, got, w)
		}
		if media.rate != w {
			t.Fatalf("cycle %d: media rate = %v, want %v", i, media.rate, w)
		}
	}
}

func TestSpeedReappliedOnTrackChange(t *testing.T) {
	media := &fakeMedia{}
	c := newTestController(t, media, newMemStore())

	c.LoadQueue(testQueue(3), 0)
	c.CycleSpeed() // 1.5
	c.Next()

	if media.rate != 1.5 {
		t.Errorf("rate after track change = %v, want 1.5", media.rate)
	}
}

func TestSeekPersistsImmediately(t *testing.T) {
	media := &fakeMedia{}
	store := newMemStore()
	c := newTestController(t, media, store)

	c.LoadQueue(testQueue(2), 0)
	c.HandleProgress(0, 200)

	if err := c.SeekFraction(0.5); err != nil {
		t.Fatalf("SeekFraction: %v", err)
	}

	if media.position != 100 {
		t.Errorf("media position = %v, want 100", media.position)
	}
	if store.Get(1) != 100 {
		t.Errorf("position not persisted on seek: %v", store.Get(1))
	}
}

func TestSeekClampsFraction(t *testing.T) {
	media := &fakeMedia{}
	c := newTestController(t, media, newMemStore())

	c.LoadQueue(testQueue(2), 0)
	c.HandleProgress(0, 200)
	c.SeekFraction(1.5)

	if media.position != 200 {
		t.Errorf("media position = %v, want clamped to 200", media.position)
	}
}

func TestLoadRestoresSavedPosition(t *testing.T) {
	media := &fakeMedia{}
	store := newMemStore()
	store.Set(1, 42.5)
	c := newTestController(t, media, store)

	c.LoadQueue(testQueue(2), 0)

	if media.position != 42.5 {
		t.Errorf("media position = %v, want restored 42.5", media.position)
	}
	if s := c.State(); s.CurrentTime != 42.5 {
		t.Errorf("state current time = %v, want 42.5", s.CurrentTime)
	}
}

func TestSavePositionOnlyWhilePlaying(t *testing.T) {
	media := &fakeMedia{}
	store := newMemStore()
	c := newTestController(t, media, store)

	c.LoadQueue(testQueue(2), 0)
	c.HandleProgress(33, 300)
	c.savePosition()
	if store.Get(1) != 0 {
		t.Errorf("position saved while paused")
	}

	c.TogglePlayPause()
	c.savePosition()
	if store.Get(1) != 33 {
		t.Errorf("saved position = %v, want 33", store.Get(1))
	}
}

func TestSetVolumeAppliesDirectly(t *testing.T) {
	media := &fakeMedia{}
	c := newTestController(t, media, newMemStore())
	c.LoadQueue(testQueue(2), 0)

	c.SetVolume(0.3)
	if media.volume != 0.3 {
		t.Errorf("media volume = %v, want 0.3", media.volume)
	}

	c.SetVolume(4)
	if media.volume != 1 {
		t.Errorf("media volume = %v, want clamped to 1", media.volume)
	}
}

func TestSetRepeatRejectsUnknownMode(t *testing.T) {
	c := newTestController(t, &fakeMedia{}, newMemStore())

	if err := c.SetRepeat("twice"); err != ErrInvalidRepeatMode {
		t.Errorf("SetRepeat(twice) = %v, want ErrInvalidRepeatMode", err)
	}
}

func TestLoadQueueValidation(t *testing.T) {
	c := newTestController(t, &fakeMedia{}, newMemStore())

	if err := c.LoadQueue(nil, 0); err != ErrEmptyQueue {
		t.Errorf("empty queue = %v, want ErrEmptyQueue", err)
	}
	if err := c.LoadQueue(testQueue(2), 5); err != ErrInvalidIndex {
		t.Errorf("bad start index = %v, want ErrInvalidIndex", err)
	}
}

func TestSubscribeReceivesStateChanges(t *testing.T) {
	c := newTestController(t, &fakeMedia{}, newMemStore())
	ch := c.Subscribe()

	c.LoadQueue(testQueue(2), 0)

	select {
	case s := <-ch:
		if s.Phase != Loaded {
			t.Errorf("notified phase = %v, want loaded", s.Phase)
		}
	default:
		t.Error("no state notification after LoadQueue")
	}

	c.Unsubscribe(ch)
}
