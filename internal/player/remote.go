package player

import (
	"fmt"
	"sync"

	"hygge/pkg/models"
)

// Command is a playback instruction queued for the client-side media
// element. Clients drain the queue by polling and apply commands in order.
type Command struct {
	Action  string  `json:"action"`
	TrackID int     `json:"trackId,omitempty"`
	URL     string  `json:"url,omitempty"`
	Value   float64 `json:"value,omitempty"`
}

// RemoteBinding implements MediaSource by translating engine calls into a
// command queue consumed by a remote media element. The queue is bounded;
// when a client stops polling, the oldest commands are discarded first.
type RemoteBinding struct {
	mu       sync.Mutex
	pending  []Command
	maxQueue int
}

// NewRemoteBinding creates a command queue binding for one client.
func NewRemoteBinding() *RemoteBinding {
	return &RemoteBinding{
		maxQueue: 128,
	}
}

func (b *RemoteBinding) push(cmd Command) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(b.pending) >= b.maxQueue {
		b.pending = b.pending[1:]
	}
	b.pending = append(b.pending, cmd)
}

// Load queues a source change for the media element.
func (b *RemoteBinding) Load(track models.Track) {
	b.push(Command{
		Action:  "load",
		TrackID: track.ID,
		URL:     fmt.Sprintf("/stream/%d", track.ID),
	})
}

// Play queues a play command.
func (b *RemoteBinding) Play() {
	b.push(Command{Action: "play"})
}

// Pause queues a pause command.
func (b *RemoteBinding) Pause() {
	b.push(Command{Action: "pause"})
}

// SeekTo queues an absolute seek in seconds.
func (b *RemoteBinding) SeekTo(seconds float64) {
	b.push(Command{Action: "seek", Value: seconds})
}

// SetRate queues a playback rate change.
func (b *RemoteBinding) SetRate(rate float64) {
	b.push(Command{Action: "rate", Value: rate})
}

// SetVolume queues a volume change.
func (b *RemoteBinding) SetVolume(volume float64) {
	b.push(Command{Action: "volume", Value: volume})
}

// Drain returns and clears all queued commands.
func (b *RemoteBinding) Drain() []Command {
	b.mu.Lock()
	defer b.mu.Unlock()

	cmds := b.pending
	b.pending = nil
	return cmds
}
