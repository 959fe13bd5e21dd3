package registry

import (
	"strings"
	"time"

	"github.com/Masterminds/semver/v3"
)

// PackageIdentity uniquely identifies one installable package artifact.
type PackageIdentity struct {
	ID      string
	Version *semver.Version
}

// String returns the canonical "id/version" form used in logs and errors.
func (p PackageIdentity) String() string {
	if p.Version == nil {
		return p.ID
	}
	return p.ID + "/" + p.Version.String()
}

// LowerID returns the package id folded to lower case, the form NuGet v3
// endpoints expect in URLs.
func (p PackageIdentity) LowerID() string {
	return strings.ToLower(p.ID)
}

// VersionEntry is one published version of a package as reported by the
// registration index.
type VersionEntry struct {
	Version *semver.Version
	Listed  bool
}

// Prerelease reports whether the entry carries a prerelease tag (e.g. "2.1.0-beta").
func (e VersionEntry) Prerelease() bool {
	return e.Version != nil && e.Version.Prerelease() != ""
}

// DownloadContext selects between the shared, age-bounded download cache and a
// fresh, isolated directory when fetching a package artifact.
type DownloadContext struct {
	dir    string
	maxAge time.Duration
	direct bool
}

// NewCachedContext returns a context that consults and populates the shared
// download cache at dir. Cached artifacts older than maxAge are refetched.
func NewCachedContext(dir string, maxAge time.Duration) DownloadContext {
	return DownloadContext{dir: dir, maxAge: maxAge}
}

// NewDirectContext returns a context that bypasses the shared cache entirely
// and stages the download under dir.
func NewDirectContext(dir string) DownloadContext {
	return DownloadContext{dir: dir, direct: true}
}

// Direct reports whether the context bypasses the shared download cache.
func (d DownloadContext) Direct() bool { return d.direct }

// Dir returns the directory the context stages or caches downloads in.
func (d DownloadContext) Dir() string { return d.dir }

// MaxAge returns how long a cached artifact remains valid. Zero means cached
// artifacts never expire.
func (d DownloadContext) MaxAge() time.Duration { return d.maxAge }
