package player

import (
	"time"

	"hygge/pkg/models"
)

// Phase is the playback controller's lifecycle phase. Every transition is
// paired with the corresponding media source call so the bound media element
// can never disagree with the controller's own flags.
type Phase int

const (
	// Idle means no track is loaded.
	Idle Phase = iota
	// Loaded means a track is bound and paused, position possibly restored.
	Loaded
	// Playing means the media source is actively advancing time.
	Playing
	// Paused means a track is bound and playback is suspended.
	Paused
	// Ended is the transient phase entered when a track finishes naturally,
	// before the controller advances or parks in Idle.
	Ended
)

// String returns the lower-case phase name.
func (p Phase) String() string {
	switch p {
	case Idle:
		return "idle"
	case Loaded:
		return "loaded"
	case Playing:
		return "playing"
	case Paused:
		return "paused"
	case Ended:
		return "ended"
	default:
		return "unknown"
	}
}

// MarshalJSON encodes the phase as its string name.
func (p Phase) MarshalJSON() ([]byte, error) {
	return []byte(`"` + p.String() + `"`), nil
}

// RepeatMode controls track-advance behavior at list boundaries.
type RepeatMode string

const (
	RepeatNone RepeatMode = "none"
	RepeatOne  RepeatMode = "one"
	RepeatAll  RepeatMode = "all"
)

// ValidRepeatMode reports whether mode is one of none/one/all.
func ValidRepeatMode(mode RepeatMode) bool {
	switch mode {
	case RepeatNone, RepeatOne, RepeatAll:
		return true
	}
	return false
}

// Speeds is the fixed playback speed ladder. CycleSpeed walks it in order
// and wraps after the last entry.
var Speeds = []float64{0.5, 1, 1.5, 2}

// NextSpeed returns the speed following current in the ladder. Unknown
// values reset to the first entry.
func NextSpeed(current float64) float64 {
	for i, s := range Speeds {
		if s == current {
			return Speeds[(i+1)%len(Speeds)]
		}
	}
	return Speeds[0]
}

// State is an immutable snapshot of the controller's session state.
type State struct {
	Track       *models.Track `json:"track,omitempty"`
	Index       int           `json:"index"`
	Phase       Phase         `json:"phase"`
	IsPlaying   bool          `json:"isPlaying"`
	CurrentTime float64       `json:"currentTime"` // in seconds
	Duration    float64       `json:"duration"`    // in seconds
	Shuffle     bool          `json:"shuffle"`
	Repeat      RepeatMode    `json:"repeat"`
	Speed       float64       `json:"speed"`
	Volume      float64       `json:"volume"` // 0.0 to 1.0
	UpdatedAt   time.Time     `json:"updatedAt"`
}
