package position

import (
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
)

func newTestStore(t *testing.T) *FileStore {
	t.Helper()

	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel) // Reduce noise in tests

	store, err := NewFileStore(filepath.Join(t.TempDir(), "positions.db"), logger)
	if err != nil {
		t.Fatalf("Failed to create position store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	return store
}

func TestPositionRoundTrip(t *testing.T) {
	store := newTestStore(t)

	store.Set(42, 127.5)
	if got := store.Get(42); got != 127.5 {
		t.Errorf("Get(42) = %v, want 127.5", got)
	}

	// Overwrites are unconditional
	store.Set(42, 3.25)
	if got := store.Get(42); got != 3.25 {
		t.Errorf("Get(42) after overwrite = %v, want 3.25", got)
	}
}

func TestPositionMissingTrackReturnsZero(t *testing.T) {
	store := newTestStore(t)

	if got := store.Get(999); got != 0 {
		t.Errorf("Get(999) = %v, want 0 for missing record", got)
	}
}

func TestPositionClear(t *testing.T) {
	store := newTestStore(t)

	store.Set(7, 61)
	store.Clear(7)

	if got := store.Get(7); got != 0 {
		t.Errorf("Get(7) after Clear = %v, want 0", got)
	}

	// Clearing a missing record is harmless
	store.Clear(7)
}

func TestPositionsAreIndependent(t *testing.T) {
	store := newTestStore(t)

	store.Set(1, 10)
	store.Set(2, 20)
	store.Clear(1)

	if got := store.Get(2); got != 20 {
		t.Errorf("Get(2) = %v, want 20 after clearing track 1", got)
	}
}
