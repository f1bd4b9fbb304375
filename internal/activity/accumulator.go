// Package activity converts continuous playback time into whole-minute
// activity credits reported to the aggregation store. Fractions of a minute
// are dropped, never rounded up.
package activity

import (
	"sync"
	"time"

	"hygge/internal/clock"
	"hygge/pkg/models"

	"github.com/sirupsen/logrus"
)

// Reporter is the external aggregation endpoint the accumulator feeds.
// Implementations are expected to be cheap to call; failures are logged and
// abandoned with no retry.
type Reporter interface {
	// AddMinutes upserts a minute delta for (user, day, activity-type).
	AddMinutes(userID, day, activity string, minutes int) error
	// RecordPlay increments a track's play counter and inserts the
	// corresponding play event, once per session track.
	RecordPlay(trackID int, userID string) error
}

// Accumulator counts elapsed playback seconds on a wall-clock interval and
// reports one minute of activity at every positive multiple of 60. It
// implements player.Observer so a controller can feed it play/pause
// boundaries directly. One accumulator serves one mounted player.
type Accumulator struct {
	reporter Reporter
	clk      clock.Clock
	logger   *logrus.Logger
	userID   string
	activity string

	mu       sync.Mutex
	playing  bool
	elapsed  int // whole seconds of accumulated playback
	reported int // whole minutes already reported

	ticker    clock.Ticker
	done      chan struct{}
	closeOnce sync.Once
}

// NewAccumulator creates an accumulator for one user and activity type and
// starts its one-second interval. The interval runs until Close but only
// accumulates while the playing flag is set, so a paused-but-mounted player
// adds nothing.
func NewAccumulator(reporter Reporter, clk clock.Clock, logger *logrus.Logger, userID, activity string) *Accumulator {
	a := &Accumulator{
		reporter: reporter,
		clk:      clk,
		logger:   logger,
		userID:   userID,
		activity: activity,
		done:     make(chan struct{}),
	}

	a.ticker = clk.NewTicker(time.Second)
	go a.run()

	return a
}

func (a *Accumulator) run() {
	for {
		select {
		case <-a.done:
			return
		case <-a.ticker.C():
			a.tick()
		}
	}
}

// tick advances the counter by one second of playback and reports a minute
// at each multiple of 60.
func (a *Accumulator) tick() {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.playing {
		return
	}

	a.elapsed++
	if a.elapsed%60 == 0 {
		a.reported++
		go a.report(a.activity, 1)
	}
}

// report issues one fire-and-forget minute delta. A failure is logged and
// the credit is lost; there is no retry or queued replay.
func (a *Accumulator) report(activity string, minutes int) {
	day := a.clk.Now().Format("2006-01-02")
	if err := a.reporter.AddMinutes(a.userID, day, activity, minutes); err != nil {
		a.logger.WithError(err).WithFields(logrus.Fields{
			"user_id":  a.userID,
			"activity": activity,
			"minutes":  minutes,
		}).Warn("Failed to report activity minutes")
	}
}

// PlayingChanged implements player.Observer.
func (a *Accumulator) PlayingChanged(playing bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.playing = playing
}

// TrackStarted implements player.Observer: the one-shot play/view count
// signal, distinct from minute accumulation. Starting a track also retargets
// minute credits to the activity type of its category.
func (a *Accumulator) TrackStarted(track models.Track) {
	a.mu.Lock()
	a.activity = models.ActivityForCategory(track.Category)
	a.mu.Unlock()

	go func() {
		if err := a.reporter.RecordPlay(track.ID, a.userID); err != nil {
			a.logger.WithError(err).WithField("track_id", track.ID).Warn("Failed to record play")
		}
	}()
}

// Elapsed returns the whole seconds of playback accumulated so far.
func (a *Accumulator) Elapsed() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.elapsed
}

// Close cancels the interval and flushes any whole minutes not yet reported.
// The final report is synchronous so the close handler finishes it before
// the player unmounts; the sub-minute remainder is dropped.
func (a *Accumulator) Close() {
	a.closeOnce.Do(func() {
		a.ticker.Stop()
		close(a.done)

		a.mu.Lock()
		activity := a.activity
		remaining := a.elapsed/60 - a.reported
		if remaining > 0 {
			a.reported += remaining
		}
		a.mu.Unlock()

		if remaining > 0 {
			a.report(activity, remaining)
		}
	})
}
