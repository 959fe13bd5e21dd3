package cache

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// completeMarker is written last during Add; an install directory without it
// is treated as absent.
const completeMarker = ".complete"

// FilesystemCache implements Cache on the local filesystem, one directory
// per (id, version) pair.
type FilesystemCache struct {
	baseDir string
	locker  *Locker
}

// NewFilesystemCache creates a filesystem-backed cache rooted at baseDir.
func NewFilesystemCache(baseDir string) *FilesystemCache {
	locksDir := filepath.Join(baseDir, ".locks")
	return &FilesystemCache{
		baseDir: baseDir,
		locker:  NewLocker(locksDir),
	}
}

// packageDir returns the install directory for a package.
func (c *FilesystemCache) packageDir(id PackageIdentity) string {
	return filepath.Join(c.baseDir, strings.ToLower(id.ID), id.Version)
}

// artifactName returns the file name the artifact is stored under.
func artifactName(id PackageIdentity) string {
	return fmt.Sprintf("%s.%s.nupkg", strings.ToLower(id.ID), id.Version)
}

// Has reports whether the package is fully installed: both the artifact and
// the completion marker must exist.
func (c *FilesystemCache) Has(ctx context.Context, id PackageIdentity) (bool, error) {
	dir := c.packageDir(id)

	if _, err := os.Stat(filepath.Join(dir, completeMarker)); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("checking cache for %s/%s: %w", id.ID, id.Version, err)
	}

	if _, err := os.Stat(filepath.Join(dir, artifactName(id))); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("checking cache for %s/%s: %w", id.ID, id.Version, err)
	}

	return true, nil
}

// Add installs the artifact stream under the identity. The stream is written
// into a temp directory, renamed into place atomically, and only then marked
// complete, so concurrent readers never observe a partial install.
func (c *FilesystemCache) Add(ctx context.Context, source string, id PackageIdentity, r io.Reader) error {
	unlock, err := c.locker.AcquireExclusive(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to acquire cache lock: %w", err)
	}
	defer unlock()

	// Re-check under the lock - another process may have installed while we waited.
	present, err := c.Has(ctx, id)
	if err != nil {
		return err
	}
	if present {
		return nil
	}

	tmpDir, err := c.createTempDir()
	if err != nil {
		return fmt.Errorf("failed to create temp directory: %w", err)
	}

	dest := filepath.Join(tmpDir, artifactName(id))
	if err := writeFile(dest, r); err != nil {
		os.RemoveAll(tmpDir)
		return fmt.Errorf("writing artifact from %s: %w", source, err)
	}

	finalDir := c.packageDir(id)
	if err := os.MkdirAll(filepath.Dir(finalDir), 0755); err != nil {
		os.RemoveAll(tmpDir)
		return fmt.Errorf("failed to create cache directory: %w", err)
	}

	// A stale directory without the marker blocks the rename; clear it.
	if _, statErr := os.Stat(finalDir); statErr == nil {
		if err := os.RemoveAll(finalDir); err != nil {
			os.RemoveAll(tmpDir)
			return fmt.Errorf("failed to clear stale install: %w", err)
		}
	}

	if err := os.Rename(tmpDir, finalDir); err != nil {
		os.RemoveAll(tmpDir)
		return fmt.Errorf("failed to move package into cache: %w", err)
	}

	marker := filepath.Join(finalDir, completeMarker)
	if err := os.WriteFile(marker, nil, 0644); err != nil {
		return fmt.Errorf("failed to mark install complete: %w", err)
	}

	return nil
}

// createTempDir creates a unique temporary directory under the cache's .tmp
// directory, on the same filesystem so the final rename is atomic.
func (c *FilesystemCache) createTempDir() (string, error) {
	tmpBase := filepath.Join(c.baseDir, ".tmp")
	if err := os.MkdirAll(tmpBase, 0755); err != nil {
		return "", err
	}

	var randBytes [8]byte
	if _, err := rand.Read(randBytes[:]); err != nil {
		return "", err
	}
	suffix := hex.EncodeToString(randBytes[:])

	tmpDir := filepath.Join(tmpBase, suffix)
	if err := os.MkdirAll(tmpDir, 0755); err != nil {
		return "", err
	}
	return tmpDir, nil
}

// writeFile streams r into path and syncs it to disk.
func writeFile(path string, r io.Reader) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return err
	}

	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
