package lock

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/gofrs/flock"

	"github.com/custodia-labs/policycite/internal/core/ports/driven"
)

// FileName is the lock file created inside the data directory.
const FileName = "writer.lock"

// Ensure FileLock implements the interface.
var _ driven.WriterLock = (*FileLock)(nil)

// FileLock is a writer lock backed by an flock on <dataDir>/writer.lock.
// Readers never take it.
type FileLock struct {
	mu     sync.Mutex
	path   string
	flock  *flock.Flock
	locked bool
}

// NewFileLock creates a writer lock for the given data directory.
func NewFileLock(dataDir string) *FileLock {
	path := filepath.Join(dataDir, FileName)
	return &FileLock{
		path:  path,
		flock: flock.New(path),
	}
}

// TryLock attempts to take the lock without blocking.
// Returns false when another writer holds it.
func (l *FileLock) TryLock() (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.locked {
		return false, nil
	}

	if err := os.MkdirAll(filepath.Dir(l.path), 0700); err != nil {
		return false, fmt.Errorf("failed to create lock directory: %w", err)
	}

	acquired, err := l.flock.TryLock()
	if err != nil {
		return false, fmt.Errorf("failed to acquire writer lock: %w", err)
	}
	l.locked = acquired
	return acquired, nil
}

// Unlock releases the lock. Unlocking an unheld lock is a no-op.
func (l *FileLock) Unlock() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.locked {
		return nil
	}
	l.locked = false
	if err := l.flock.Unlock(); err != nil {
		return fmt.Errorf("failed to release writer lock: %w", err)
	}
	return nil
}

// Path returns the lock file path.
func (l *FileLock) Path() string {
	return l.path
}

// IsLocked reports whether this instance holds the lock.
func (l *FileLock) IsLocked() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.locked
}
