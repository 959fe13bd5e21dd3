// Package ensure guarantees that a specific NuGet package is present in the
// local package cache, downloading the latest listed stable version from the
// registry when it is missing.
package ensure

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-logr/logr"

	"github.com/nupkg-tools/ensure/cache"
	"github.com/nupkg-tools/ensure/registry"
)

const (
	// DefaultPackageID is the package this tool keeps available.
	DefaultPackageID = "NuGet.CommandLine"

	// DefaultDownloadCacheMaxAge bounds how long a shared download-cache
	// artifact is considered fresh.
	DefaultDownloadCacheMaxAge = 30 * time.Minute
)

// Config carries the process-wide settings resolved once at startup. Zero
// fields are filled with defaults by New.
type Config struct {
	// PackageID is the id of the package to ensure present.
	PackageID string

	// CacheRoot is the local package cache directory
	// (default: ~/.nuget/packages).
	CacheRoot string

	// DownloadCacheDir is the shared, age-bounded download cache used by the
	// primary download path (default: <user cache dir>/nupkg-ensure/v3-cache).
	DownloadCacheDir string

	// DownloadCacheMaxAge bounds the age of reusable download-cache entries.
	DownloadCacheMaxAge time.Duration
}

// Client orchestrates the ensure-present operation.
type Client struct {
	cfg      Config
	registry registry.Registry
	cache    cache.Cache
	logger   logr.Logger
}

// Result describes what EnsurePresent did.
type Result struct {
	// Identity is the resolved package identity.
	Identity registry.PackageIdentity

	// AlreadyCached is true when the package was present and nothing was
	// downloaded.
	AlreadyCached bool

	// UsedFallback is true when the primary download path failed and the
	// package was installed via the direct-download retry.
	UsedFallback bool
}

// New creates a Client from the given configuration and options. Ambient
// defaults (home and user cache directories) are resolved here, once, and
// never read again.
func New(cfg Config, opts ...Option) (*Client, error) {
	c := &Client{
		cfg:    cfg,
		logger: logr.Discard(),
	}

	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}

	if c.cfg.PackageID == "" {
		c.cfg.PackageID = DefaultPackageID
	}
	if c.cfg.DownloadCacheMaxAge == 0 {
		c.cfg.DownloadCacheMaxAge = DefaultDownloadCacheMaxAge
	}

	if c.registry == nil {
		c.registry = registry.NewNuGet("", nil)
	}

	if c.cache == nil {
		if c.cfg.CacheRoot == "" {
			homeDir, err := os.UserHomeDir()
			if err != nil {
				return nil, fmt.Errorf("failed to get home directory: %w", err)
			}
			c.cfg.CacheRoot = filepath.Join(homeDir, ".nuget", "packages")
		}
		c.cache = cache.NewFilesystemCache(c.cfg.CacheRoot)
	}

	if c.cfg.DownloadCacheDir == "" {
		cacheDir, err := os.UserCacheDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get user cache directory: %w", err)
		}
		c.cfg.DownloadCacheDir = filepath.Join(cacheDir, "nupkg-ensure", "v3-cache")
	}

	return c, nil
}

// EnsurePresent guarantees the configured package's latest listed stable
// version exists in the local cache. The operation is idempotent: when the
// package is already cached, nothing is downloaded.
func (c *Client) EnsurePresent(ctx context.Context) (Result, error) {
	id := c.cfg.PackageID

	c.logger.Info("querying registry", "package", id)
	entries, err := c.registry.ListVersions(ctx, id)
	if err != nil {
		return Result{}, fmt.Errorf("listing versions for %s: %w", id, err)
	}

	target, err := LatestStable(id, entries)
	if err != nil {
		return Result{}, err
	}

	ident := registry.PackageIdentity{ID: id, Version: target.Version}
	cacheID := cache.PackageIdentity{ID: id, Version: target.Version.String()}
	c.logger.Info("resolved latest stable version", "package", ident.String())

	present, err := c.cache.Has(ctx, cacheID)
	if err != nil {
		return Result{}, fmt.Errorf("checking cache for %s: %w", ident, err)
	}
	if present {
		c.logger.Info("package already in cache, nothing to do", "package", ident.String())
		return Result{Identity: ident, AlreadyCached: true}, nil
	}

	c.logger.Info("downloading package", "package", ident.String())
	dctx := registry.NewCachedContext(c.cfg.DownloadCacheDir, c.cfg.DownloadCacheMaxAge)
	primaryErr := c.install(ctx, ident, cacheID, dctx)
	if primaryErr == nil {
		c.logger.Info("package installed", "package", ident.String())
		return Result{Identity: ident}, nil
	}

	// A fallback under a cancelled context cannot succeed; propagate instead
	// of churning a temp directory.
	if ctx.Err() != nil {
		return Result{}, fmt.Errorf("ensuring %s: %w", ident, ctx.Err())
	}

	downloadErr := &ErrDownloadFailed{ID: id, Version: target.Version.String(), Err: primaryErr}
	c.logger.Error(downloadErr, "primary download failed, retrying with direct download",
		"package", ident.String())

	if fallbackErr := c.installDirect(ctx, ident, cacheID); fallbackErr != nil {
		return Result{}, &ErrInstallFailed{
			ID:       id,
			Version:  target.Version.String(),
			Primary:  downloadErr,
			Fallback: fallbackErr,
		}
	}

	c.logger.Info("package installed via direct download", "package", ident.String())
	return Result{Identity: ident, UsedFallback: true}, nil
}

// install downloads the artifact under the given download context and adds
// it to the local cache.
func (c *Client) install(ctx context.Context, ident registry.PackageIdentity, cacheID cache.PackageIdentity, dctx registry.DownloadContext) error {
	stream, err := c.registry.Download(ctx, ident, dctx)
	if err != nil {
		return err
	}
	defer stream.Close()

	source := "registry"
	if dctx.Direct() {
		source = "registry (direct)"
	}

	if err := c.cache.Add(ctx, source, cacheID, stream); err != nil {
		return fmt.Errorf("adding %s to cache: %w", ident, err)
	}
	return nil
}

// installDirect retries the install with the shared download cache bypassed,
// staging through a fresh temporary directory that is removed on every exit
// path.
func (c *Client) installDirect(ctx context.Context, ident registry.PackageIdentity, cacheID cache.PackageIdentity) error {
	tmpDir, err := os.MkdirTemp("", "nupkg-ensure-")
	if err != nil {
		return fmt.Errorf("creating temp directory: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	return c.install(ctx, ident, cacheID, registry.NewDirectContext(tmpDir))
}
