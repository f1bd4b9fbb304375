package player

import (
	"errors"
	"math/rand"
	"sync"
	"time"

	"hygge/internal/clock"
	"hygge/internal/position"
	"hygge/pkg/models"

	"github.com/sirupsen/logrus"
)

var (
	// ErrNoTrack is returned for gestures that need a loaded track.
	ErrNoTrack = errors.New("no track loaded")
	// ErrEmptyQueue is returned when a queue with no tracks is mounted.
	ErrEmptyQueue = errors.New("track queue is empty")
	// ErrInvalidIndex is returned for a start index outside the queue.
	ErrInvalidIndex = errors.New("track index out of range")
	// ErrInvalidRepeatMode is returned for repeat modes outside none/one/all.
	ErrInvalidRepeatMode = errors.New("invalid repeat mode")
)

// Controller owns the playback state machine for one mounted player: it
// drives the media source, restores and saves positions, decides track
// advances, and feeds the playing signal to its observer. All methods are
// safe for concurrent use.
type Controller struct {
	mu        sync.Mutex
	media     MediaSource
	positions position.Store
	clk       clock.Clock
	logger    *logrus.Logger
	observer  Observer
	listeners []chan State

	queue    []models.Track
	index    int
	phase    Phase
	shuffle  bool
	repeat   RepeatMode
	speed    float64
	volume   float64
	current  float64 // seconds into the current track
	duration float64 // seconds, 0 until known

	// playReported gates the one-shot play-count signal per loaded track
	playReported bool

	rng        *rand.Rand
	saveTicker clock.Ticker
	done       chan struct{}
	closeOnce  sync.Once
}

// NewController creates a playback controller bound to a media source. The
// position save ticker starts immediately and runs until Close; it only
// writes while a track is actually playing.
func NewController(media MediaSource, positions position.Store, clk clock.Clock, logger *logrus.Logger, saveInterval time.Duration) *Controller {
	c := &Controller{
		media:     media,
		positions: positions,
		clk:       clk,
		logger:    logger,
		phase:     Idle,
		index:     -1,
		repeat:    RepeatNone,
		speed:     1,
		volume:    1.0,
		rng:       rand.New(rand.NewSource(clk.Now().UnixNano())),
		done:      make(chan struct{}),
	}

	c.saveTicker = clk.NewTicker(saveInterval)
	go c.saveLoop()

	return c
}

// SetObserver registers the playback lifecycle observer. Must be called
// before the first LoadQueue.
func (c *Controller) SetObserver(obs Observer) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.observer = obs
}

// LoadQueue mounts an ordered track list and binds the track at start,
// paused. Any previously loaded track is replaced.
func (c *Controller) LoadQueue(tracks []models.Track, start int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(tracks) == 0 {
		return ErrEmptyQueue
	}
	if start < 0 || start >= len(tracks) {
		return ErrInvalidIndex
	}

	c.queue = tracks
	c.loadTrack(start, false)
	return nil
}

// loadTrack binds the track at idx (must be called with lock held). When
// autoplay is set the track starts playing immediately, which is how track
// advances preserve the playing flag.
func (c *Controller) loadTrack(idx int, autoplay bool) {
	track := c.queue[idx]

	c.index = idx
	c.current = 0
	c.duration = float64(track.Duration)
	c.playReported = false

	c.media.Load(track)
	// Loading resets the element; reapply the selected speed
	c.media.SetRate(c.speed)
	c.phase = Loaded

	if saved := c.positions.Get(track.ID); saved > 0 {
		c.current = saved
		c.media.SeekTo(saved)
		c.logger.WithFields(logrus.Fields{
			"track_id": track.ID,
			"position": saved,
		}).Debug("Restored saved position")
	}

	if autoplay {
		c.startPlayback()
	}
	c.notifyListeners()
}

// startPlayback moves to Playing and fires the paired media call and
// observer signals (must be called with lock held).
func (c *Controller) startPlayback() {
	c.media.Play()
	c.phase = Playing

	if !c.playReported {
		c.playReported = true
		if c.observer != nil {
			c.observer.TrackStarted(c.queue[c.index])
		}
	}
	if c.observer != nil {
		c.observer.PlayingChanged(true)
	}
}

// pausePlayback moves to Paused and fires the paired media call and
// observer signal (must be called with lock held).
func (c *Controller) pausePlayback() {
	c.media.Pause()
	c.phase = Paused
	if c.observer != nil {
		c.observer.PlayingChanged(false)
	}
}

// TogglePlayPause flips between Playing and Paused. Idempotent per click:
// two toggles return to the original state. A controller with no track
// loaded returns ErrNoTrack.
func (c *Controller) TogglePlayPause() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.phase {
	case Idle, Ended:
		return ErrNoTrack
	case Playing:
		c.pausePlayback()
	case Loaded, Paused:
		c.startPlayback()
	}
	c.notifyListeners()
	return nil
}

// Next advances to the following track under the current shuffle/repeat
// policy, preserving the playing flag. Inert for queues of length <= 1.
func (c *Controller) Next() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.queue) <= 1 || c.index < 0 {
		return
	}

	move, ok := Next(c.index, len(c.queue), c.shuffle, c.repeat, c.rng)
	if !ok {
		return
	}
	c.applyMove(move)
}

// Previous restarts the current track when more than 3 seconds have
// elapsed, otherwise steps back under the current repeat policy. Inert for
// queues of length <= 1.
func (c *Controller) Previous() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.queue) <= 1 || c.index < 0 {
		return
	}

	move, ok := Previous(c.index, len(c.queue), c.repeat, c.current)
	if !ok {
		return
	}
	c.applyMove(move)
}

// applyMove executes a navigator decision, carrying the playing flag across
// the track change (must be called with lock held).
func (c *Controller) applyMove(move Move) {
	wasPlaying := c.phase == Playing

	if move.Restart {
		c.current = 0
		c.media.SeekTo(0)
		if wasPlaying {
			c.media.Play()
		}
		c.notifyListeners()
		return
	}
	c.loadTrack(move.Index, wasPlaying)
}

// HandleEnded reacts to the natural end of the current track: the saved
// position is cleared first, then repeat/shuffle policy decides whether the
// same track restarts, the next one loads, or the session parks in Idle.
func (c *Controller) HandleEnded() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.index < 0 || c.phase != Playing {
		return
	}

	finished := c.queue[c.index]
	c.positions.Clear(finished.ID)
	c.phase = Ended

	if c.repeat == RepeatOne {
		c.current = 0
		c.media.SeekTo(0)
		c.media.Play()
		c.phase = Playing
		c.notifyListeners()
		return
	}

	move, ok := Next(c.index, len(c.queue), c.shuffle, c.repeat, c.rng)
	if !ok {
		// Nothing further to play: park the session
		c.media.Pause()
		c.phase = Idle
		c.current = 0
		if c.observer != nil {
			c.observer.PlayingChanged(false)
		}
		c.notifyListeners()
		return
	}

	if move.Restart {
		c.current = 0
		c.media.SeekTo(0)
		c.media.Play()
		c.phase = Playing
		c.notifyListeners()
		return
	}
	c.loadTrack(move.Index, true)
}

// SeekFraction jumps to fraction × duration and persists the new position
// immediately.
func (c *Controller) SeekFraction(fraction float64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.phase == Idle || c.index < 0 {
		return ErrNoTrack
	}

	if fraction < 0 {
		fraction = 0
	} else if fraction > 1 {
		fraction = 1
	}

	c.current = fraction * c.duration
	c.media.SeekTo(c.current)
	c.positions.Set(c.queue[c.index].ID, c.current)
	c.notifyListeners()
	return nil
}

// CycleSpeed steps to the next multiplier in the fixed ladder, wrapping
// after the last entry, and applies it regardless of play/pause state. The
// new speed is returned.
func (c *Controller) CycleSpeed() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.speed = NextSpeed(c.speed)
	c.media.SetRate(c.speed)
	c.notifyListeners()
	return c.speed
}

// SetVolume applies a linear volume fraction directly to the media element.
// Not persisted.
func (c *Controller) SetVolume(volume float64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if volume < 0 {
		volume = 0
	} else if volume > 1 {
		volume = 1
	}
	c.volume = volume
	c.media.SetVolume(volume)
	c.notifyListeners()
}

// SetShuffle toggles uniform-random track advance.
func (c *Controller) SetShuffle(on bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.shuffle = on
	c.notifyListeners()
}

// SetRepeat selects the repeat mode.
func (c *Controller) SetRepeat(mode RepeatMode) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !ValidRepeatMode(mode) {
		return ErrInvalidRepeatMode
	}
	c.repeat = mode
	c.notifyListeners()
	return nil
}

// HandleProgress ingests a time-progress event from the media source. The
// element emits these at its native granularity; the controller just keeps
// the latest values, and the save ticker handles persistence.
func (c *Controller) HandleProgress(seconds, duration float64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.index < 0 {
		return
	}
	c.current = seconds
	if duration > 0 {
		c.duration = duration
	}
	c.notifyListeners()
}

// State returns a snapshot of the current session state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshot()
}

// snapshot builds the immutable state copy (must be called with lock held).
func (c *Controller) snapshot() State {
	s := State{
		Index:       c.index,
		Phase:       c.phase,
		IsPlaying:   c.phase == Playing,
		CurrentTime: c.current,
		Duration:    c.duration,
		Shuffle:     c.shuffle,
		Repeat:      c.repeat,
		Speed:       c.speed,
		Volume:      c.volume,
		UpdatedAt:   c.clk.Now(),
	}
	if c.index >= 0 && c.index < len(c.queue) {
		track := c.queue[c.index]
		s.Track = &track
	}
	return s
}

// Subscribe adds a listener for state changes
func (c *Controller) Subscribe() <-chan State {
	c.mu.Lock()
	defer c.mu.Unlock()

	ch := make(chan State, 10) // Buffered channel to prevent blocking
	c.listeners = append(c.listeners, ch)
	return ch
}

// Unsubscribe removes a listener (call this when done to prevent memory leaks)
func (c *Controller) Unsubscribe(ch <-chan State) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i, listener := range c.listeners {
		if listener == ch {
			close(listener)
			c.listeners = append(c.listeners[:i], c.listeners[i+1:]...)
			break
		}
	}
}

// notifyListeners sends state updates to all subscribers (must be called with lock held)
func (c *Controller) notifyListeners() {
	s := c.snapshot()
	for i := len(c.listeners) - 1; i >= 0; i-- {
		select {
		case c.listeners[i] <- s:
			// Successfully sent
		default:
			// Channel is full, remove it
			close(c.listeners[i])
			c.listeners = append(c.listeners[:i], c.listeners[i+1:]...)
		}
	}
}

// saveLoop persists the playing position on an explicit interval rather
// than piggybacking on progress callbacks, so irregular event timing cannot
// skip saves.
func (c *Controller) saveLoop() {
	for {
		select {
		case <-c.done:
			return
		case <-c.saveTicker.C():
			c.savePosition()
		}
	}
}

// savePosition writes the current offset while actually playing.
func (c *Controller) savePosition() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.phase != Playing || c.index < 0 {
		return
	}
	c.positions.Set(c.queue[c.index].ID, c.current)
}

// Close cancels the save ticker and releases subscribers. The controller
// must not be used afterwards.
func (c *Controller) Close() {
	c.closeOnce.Do(func() {
		c.saveTicker.Stop()
		close(c.done)

		c.mu.Lock()
		defer c.mu.Unlock()
		for _, listener := range c.listeners {
			close(listener)
		}
		c.listeners = nil
	})
}
