// Package lockfile guards against two coordinator daemons advancing
// the same queue. The lock is a flock-held PID file next to the
// database.
package lockfile

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// ErrLocked means another process already holds the lock
var ErrLocked = errors.New("lock already held by another process")

type lock struct {
	f    *os.File
	path string
}

// Close releases the lock and removes the PID file
func (l *lock) Close() error {
	err := l.f.Close()
	_ = os.Remove(l.path)
	return err
}

// Acquire takes an exclusive non-blocking lock on path, writing the
// current PID into it. Returns ErrLocked if another process holds it.
func Acquire(path string) (io.Closer, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create lock directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open lock file: %w", err)
	}

	if err := flockExclusive(f); err != nil {
		_ = f.Close()
		return nil, err
	}

	if err := f.Truncate(0); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("failed to truncate lock file: %w", err)
	}
	if _, err := fmt.Fprintf(f, "%d\n", os.Getpid()); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("failed to write pid: %w", err)
	}

	return &lock{f: f, path: path}, nil
}
