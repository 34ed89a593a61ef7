package fsutil

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

// StateDir is the directory under the output root holding engine state.
const StateDir = ".gridflow"

// ErrLocked is returned when another process holds the output root.
var ErrLocked = errors.New("output root is locked by another run")

// RootLock is an exclusive advisory lock on an output root.
type RootLock struct {
	fl *flock.Flock
}

// LockRoot takes the lock for root without waiting. It creates the state
// directory when needed.
func LockRoot(root string) (*RootLock, error) {
	dir := filepath.Join(root, StateDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating state directory: %w", err)
	}

	fl := flock.New(filepath.Join(dir, "lock"))
	locked, err := fl.TryLock()
	if err != nil {
		return nil, fmt.Errorf("locking %s: %w", fl.Path(), err)
	}
	if !locked {
		return nil, fmt.Errorf("%w: %s", ErrLocked, fl.Path())
	}
	return &RootLock{fl: fl}, nil
}

// Unlock releases the lock.
func (l *RootLock) Unlock() error {
	return l.fl.Unlock()
}
