package cache

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gofrs/flock"
)

// Locker manages file-based locks for cache operations.
type Locker struct {
	locksDir string
}

// NewLocker creates a Locker that stores lock files in the given directory.
func NewLocker(locksDir string) *Locker {
	return &Locker{locksDir: locksDir}
}

// lockPath returns the path to the lock file for a package.
func (l *Locker) lockPath(id PackageIdentity) string {
	// Flat naming, with path separators and drive-letter colons sanitized.
	name := fmt.Sprintf("%s-%s.lock", strings.ToLower(id.ID), id.Version)
	name = strings.ReplaceAll(name, "/", "-")
	name = strings.ReplaceAll(name, "\\", "-")
	name = strings.ReplaceAll(name, ":", "-")
	return filepath.Join(l.locksDir, name)
}

// AcquireExclusive acquires an exclusive lock for the given package.
// The returned function releases the lock and should be called when done.
// Returns an error if the context is cancelled while waiting for the lock.
func (l *Locker) AcquireExclusive(ctx context.Context, id PackageIdentity) (unlock func() error, err error) {
	if err := os.MkdirAll(l.locksDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create locks directory: %w", err)
	}

	fl := flock.New(l.lockPath(id))

	locked, err := fl.TryLockContext(ctx, 100_000_000) // 100ms retry interval
	if err != nil {
		return nil, fmt.Errorf("failed to acquire lock: %w", err)
	}
	if !locked {
		return nil, fmt.Errorf("failed to acquire lock: %v", ctx.Err())
	}

	return fl.Unlock, nil
}
