package player

import "math/rand"

// previousRestartThreshold is the elapsed time beyond which "previous"
// restarts the current track instead of moving backward.
const previousRestartThreshold = 3.0 // seconds

// Move is the result of a track-advance decision.
type Move struct {
	// Index is the queue position to play next.
	Index int
	// Restart means stay on the current track and rewind it to 0.
	Restart bool
}

// Next computes where playback goes after the current track, either because
// the user pressed next or because the track ended naturally.
//
// Repeat-one never advances: the current track restarts. Shuffle picks
// uniformly among all other indices, with no play history. Sequential
// forward motion wraps to 0 only under repeat-all; otherwise overflowing the
// list is a no-op and the second return is false.
func Next(current, length int, shuffle bool, repeat RepeatMode, rng *rand.Rand) (Move, bool) {
	if length == 0 || current < 0 || current >= length {
		return Move{}, false
	}

	if repeat == RepeatOne {
		return Move{Index: current, Restart: true}, true
	}

	if length == 1 {
		if repeat == RepeatAll {
			return Move{Index: current, Restart: true}, true
		}
		return Move{}, false
	}

	if shuffle {
		// Uniform over the other length-1 indices; skip past the current one
		next := rng.Intn(length - 1)
		if next >= current {
			next++
		}
		return Move{Index: next}, true
	}

	if current+1 < length {
		return Move{Index: current + 1}, true
	}
	if repeat == RepeatAll {
		return Move{Index: 0}, true
	}
	return Move{}, false
}

// Previous computes where playback goes when the user presses previous.
//
// More than 3 elapsed seconds restarts the current track (double-tap-back
// semantics). Otherwise the index decrements, wrapping to the last index
// only under repeat-all; at index 0 without repeat-all the operation is a
// no-op and the second return is false.
func Previous(current, length int, repeat RepeatMode, elapsed float64) (Move, bool) {
	if length == 0 || current < 0 || current >= length {
		return Move{}, false
	}

	if elapsed > previousRestartThreshold {
		return Move{Index: current, Restart: true}, true
	}

	if current > 0 {
		return Move{Index: current - 1}, true
	}
	if repeat == RepeatAll {
		return Move{Index: length - 1}, true
	}
	return Move{}, false
}
