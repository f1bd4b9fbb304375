package player

import "hygge/pkg/models"

// MediaSource is the command surface of the bound media element. The
// controller drives it; progress and end-of-track events flow back through
// HandleProgress and HandleEnded on the controller.
//
// Implementations must tolerate commands in any order; a Load replaces the
// bound track wholesale and implicitly pauses.
type MediaSource interface {
	// Load binds a new track, replacing the current one. The element is
	// paused afterwards; the controller reapplies rate and restores any
	// saved position itself.
	Load(track models.Track)
	Play()
	Pause()
	SeekTo(seconds float64)
	SetRate(multiplier float64)
	SetVolume(volume float64)
}

// Observer is notified of playback lifecycle changes. The session minute
// accumulator hangs off this so it can gate its counter on the playing
// signal and fire the one-shot play-count report.
type Observer interface {
	// PlayingChanged fires on every play/pause boundary.
	PlayingChanged(playing bool)
	// TrackStarted fires once per loaded track, on its first play.
	TrackStarted(track models.Track)
}
