package player

import (
	"math/rand"
	"testing"
)

func TestNextSequential(t *testing.T) {
	rng := rand.New(rand.NewSource(1))

	tests := []struct {
		name        string
		current     int
		length      int
		repeat      RepeatMode
		wantIndex   int
		wantRestart bool
		wantOK      bool
	}{
		{
			name:    "middle of list advances",
			current: 1, length: 5, repeat: RepeatNone,
			wantIndex: 2, wantOK: true,
		},
		{
			name:    "last index without repeat-all is a no-op",
			current: 4, length: 5, repeat: RepeatNone,
			wantOK: false,
		},
		{
			name:    "last index with repeat-all wraps to zero",
			current: 4, length: 5, repeat: RepeatAll,
			wantIndex: 0, wantOK: true,
		},
		{
			name:    "repeat-one restarts instead of advancing",
			current: 2, length: 5, repeat: RepeatOne,
			wantIndex: 2, wantRestart: true, wantOK: true,
		},
		{
			name:    "single track with repeat-all restarts",
			current: 0, length: 1, repeat: RepeatAll,
			wantIndex: 0, wantRestart: true, wantOK: true,
		},
		{
			name:    "single track without repeat is a no-op",
			current: 0, length: 1, repeat: RepeatNone,
			wantOK: false,
		},
		{
			name:    "empty list is a no-op",
			current: 0, length: 0, repeat: RepeatAll,
			wantOK: false,
		},
		{
			name:    "out of range index is a no-op",
			current: 7, length: 5, repeat: RepeatAll,
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			move, ok := Next(tt.current, tt.length, false, tt.repeat, rng)
			if ok != tt.wantOK {
				t.Fatalf("Next() ok = %v, want %v", ok, tt.wantOK)
			}
			if !ok {
				return
			}
			if move.Index != tt.wantIndex || move.Restart != tt.wantRestart {
				t.Errorf("Next() = {Index: %d, Restart: %v}, want {Index: %d, Restart: %v}",
					move.Index, move.Restart, tt.wantIndex, tt.wantRestart)
			}
		})
	}
}

func TestNextShuffleExcludesSelf(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	for i := 0; i < 200; i++ {
		move, ok := Next(2, 5, true, RepeatNone, rng)
		if !ok {
			t.Fatal("Next() with shuffle returned no move")
		}
		if move.Index == 2 {
			t.Fatal("shuffle returned the current index")
		}
		if move.Index < 0 || move.Index >= 5 {
			t.Fatalf("shuffle returned out-of-range index %d", move.Index)
		}
	}
}

func TestNextShuffleCoversAllOtherIndices(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	seen := make(map[int]bool)

	for i := 0; i < 500; i++ {
		move, _ := Next(2, 5, true, RepeatNone, rng)
		seen[move.Index] = true
	}

	for _, want := range []int{0, 1, 3, 4} {
		if !seen[want] {
			t.Errorf("index %d never chosen by shuffle", want)
		}
	}
}

func TestPrevious(t *testing.T) {
	tests := []struct {
		name        string
		current     int
		length      int
		repeat      RepeatMode
		elapsed     float64
		wantIndex   int
		wantRestart bool
		wantOK      bool
	}{
		{
			name:    "steps back within list",
			current: 3, length: 5, repeat: RepeatNone, elapsed: 1,
			wantIndex: 2, wantOK: true,
		},
		{
			name:    "more than three seconds restarts current",
			current: 3, length: 5, repeat: RepeatNone, elapsed: 3.5,
			wantIndex: 3, wantRestart: true, wantOK: true,
		},
		{
			name:    "exactly three seconds still steps back",
			current: 3, length: 5, repeat: RepeatNone, elapsed: 3,
			wantIndex: 2, wantOK: true,
		},
		{
			name:    "index zero without repeat-all is a no-op",
			current: 0, length: 5, repeat: RepeatNone, elapsed: 0,
			wantOK: false,
		},
		{
			name:    "index zero with repeat-all wraps to last",
			current: 0, length: 5, repeat: RepeatAll, elapsed: 0,
			wantIndex: 4, wantOK: true,
		},
		{
			name:    "empty list is a no-op",
			current: 0, length: 0, repeat: RepeatAll, elapsed: 10,
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			move, ok := Previous(tt.current, tt.length, tt.repeat, tt.elapsed)
			if ok != tt.wantOK {
				t.Fatalf("Previous() ok = %v, want %v", ok, tt.wantOK)
			}
			if !ok {
				return
			}
			if move.Index != tt.wantIndex || move.Restart != tt.wantRestart {
				t.Errorf("Previous() = {Index: %d, Restart: %v}, want {Index: %d, Restart: %v}",
					move.Index, move.Restart, tt.wantIndex, tt.wantRestart)
			}
		})
	}
}

func TestSequentialWrapLaw(t *testing.T) {
	// For any list length N under repeat-all, next from N-1 yields 0 and
	// previous from 0 yields N-1
	rng := rand.New(rand.NewSource(3))

	for n := 2; n <= 10; n++ {
		move, ok := Next(n-1, n, false, RepeatAll, rng)
		if !ok || move.Index != 0 || move.Restart {
			t.Errorf("Next(%d, %d) under repeat-all = %+v, %v; want index 0", n-1, n, move, ok)
		}

		move, ok = Previous(0, n, RepeatAll, 0)
		if !ok || move.Index != n-1 || move.Restart {
			t.Errorf("Previous(0, %d) under repeat-all = %+v, %v; want index %d", n, move, ok, n-1)
		}
	}
}

func TestNextSpeedCycles(t *testing.T) {
	speed := 1.0
	want := []float64{1.5, 2, 0.5, 1}

	for i, w := range want {
		speed = NextSpeed(speed)
		if speed != w {
			t.Fatalf("step %d: NextSpeed = %v, want %v", i, speed, w)
		}
	}
}

func TestNextSpeedUnknownValueResets(t *testing.T) {
	if got := NextSpeed(1.25); got != 0.5 {
		t.Errorf("NextSpeed(1.25) = %v, want 0.5", got)
	}
}
