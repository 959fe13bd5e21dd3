// Package cache implements the directory-backed local package cache the
// ensure orchestrator installs into.
package cache

import (
	"context"
	"io"
)

// PackageIdentity identifies one cached package artifact.
type PackageIdentity struct {
	ID      string
	Version string
}

// Cache defines the local package cache operations.
type Cache interface {
	// Has reports whether the identity is fully installed in the cache.
	Has(ctx context.Context, id PackageIdentity) (bool, error)

	// Add installs the artifact stream under the identity. source is a
	// human-readable label for where the bytes came from, used in errors.
	// No partially written artifact is ever visible to Has.
	Add(ctx context.Context, source string, id PackageIdentity, r io.Reader) error
}
