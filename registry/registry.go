package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Masterminds/semver/v3"
	"github.com/rs/dnscache"
)

// Registry defines the operations the ensure orchestrator needs from a
// package registry.
type Registry interface {
	// ListVersions returns every published version of the package, with its
	// listed flag, in registration-index order.
	ListVersions(ctx context.Context, id string) ([]VersionEntry, error)

	// Download returns a stream of the exact package artifact. The download
	// context decides whether the shared download cache may be consulted.
	// The caller owns the returned stream and must close it.
	Download(ctx context.Context, ident PackageIdentity, dctx DownloadContext) (io.ReadCloser, error)
}

const nugetBaseURL = "https://api.nuget.org"

// NuGetRegistry implements Registry against a NuGet v3 endpoint using the
// registration index for metadata and the flat container for artifacts.
type NuGetRegistry struct {
	baseURL string
	client  *http.Client
}

// NewNuGet creates a NuGetRegistry for the given base URL. An empty baseURL
// selects nuget.org; a nil client selects a default client with a DNS-cached
// transport.
func NewNuGet(baseURL string, client *http.Client) *NuGetRegistry {
	if baseURL == "" {
		baseURL = nugetBaseURL
	}
	if client == nil {
		client = newHTTPClient()
	}
	return &NuGetRegistry{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client:  client,
	}
}

// newHTTPClient builds an HTTP client whose dialer resolves hosts through a
// shared DNS cache, refreshed in the background for the process lifetime.
func newHTTPClient() *http.Client {
	resolver := &dnscache.Resolver{}
	go func() {
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()
		for range ticker.C {
			resolver.Refresh(true)
		}
	}()

	dialer := &net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
	}

	return &http.Client{
		Timeout: 5 * time.Minute, // package artifacts can be large
		Transport: &http.Transport{
			DialContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
				host, port, err := net.SplitHostPort(addr)
				if err != nil {
					return nil, err
				}
				ips, err := resolver.LookupHost(ctx, host)
				if err != nil {
					return nil, err
				}
				var lastErr error
				for _, ip := range ips {
					conn, dialErr := dialer.DialContext(ctx, network, net.JoinHostPort(ip, port))
					if dialErr == nil {
						return conn, nil
					}
					lastErr = dialErr
				}
				return nil, lastErr
			},
			MaxIdleConnsPerHost: 4,
		},
	}
}

// Registration index wire shapes. Pages either inline their leaves or point
// at a separate page document via "@id".
type registrationIndex struct {
	Items []registrationPage `json:"items"`
}

type registrationPage struct {
	URL   string             `json:"@id"`
	Items []registrationLeaf `json:"items"`
}

type registrationLeaf struct {
	CatalogEntry catalogEntry `json:"catalogEntry"`
}

type catalogEntry struct {
	ID      string `json:"id"`
	Version string `json:"version"`
	Listed  *bool  `json:"listed"`
}

// ListVersions fetches the registration index for the package and flattens
// every page into version entries. Entries whose version does not parse as
// semver are skipped.
func (r *NuGetRegistry) ListVersions(ctx context.Context, id string) ([]VersionEntry, error) {
	lower := strings.ToLower(id)
	url := fmt.Sprintf("%s/registration5-semver1/%s/index.json", r.baseURL, lower)

	var index registrationIndex
	if err := r.getJSON(ctx, url, &index); err != nil {
		var httpErr *HTTPError
		if errors.As(err, &httpErr) && httpErr.StatusCode == http.StatusNotFound {
			return nil, &NotFoundError{ID: id}
		}
		return nil, fmt.Errorf("fetching registration index for %s: %w", id, err)
	}

	var entries []VersionEntry
	for _, page := range index.Items {
		leaves := page.Items
		if leaves == nil && page.URL != "" {
			var full registrationPage
			if err := r.getJSON(ctx, page.URL, &full); err != nil {
				return nil, fmt.Errorf("fetching registration page for %s: %w", id, err)
			}
			leaves = full.Items
		}

		for _, leaf := range leaves {
			v, err := semver.NewVersion(leaf.CatalogEntry.Version)
			if err != nil {
				continue
			}
			// The registration protocol omits "listed" on older entries;
			// absence means listed.
			listed := leaf.CatalogEntry.Listed == nil || *leaf.CatalogEntry.Listed
			entries = append(entries, VersionEntry{Version: v, Listed: listed})
		}
	}

	return entries, nil
}

// Download fetches the .nupkg artifact for the identity. With a cached
// context, a fresh-enough artifact already in the download cache is returned
// without touching the network, and new downloads populate the cache. With a
// direct context, the artifact is staged under the context directory and the
// shared cache is never consulted.
func (r *NuGetRegistry) Download(ctx context.Context, ident PackageIdentity, dctx DownloadContext) (io.ReadCloser, error) {
	name := artifactName(ident)

	if !dctx.Direct() {
		if f, ok := r.openFresh(filepath.Join(dctx.Dir(), name), dctx.MaxAge()); ok {
			return f, nil
		}
	}

	url := fmt.Sprintf("%s/v3-flatcontainer/%s/%s/%s",
		r.baseURL, ident.LowerID(), ident.Version.String(), name)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating download request: %w", err)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("downloading %s: %w", ident, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, &NotFoundError{ID: ident.ID, Version: ident.Version.String()}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &HTTPError{StatusCode: resp.StatusCode, URL: url}
	}

	// Stage the response through a file so the returned stream is complete:
	// a connection dropped mid-transfer surfaces here, not as a truncated
	// artifact handed to the cache.
	dest := filepath.Join(dctx.Dir(), name)
	if err := writeFileAtomic(dest, resp.Body); err != nil {
		return nil, fmt.Errorf("staging %s: %w", ident, err)
	}

	f, err := os.Open(dest)
	if err != nil {
		return nil, fmt.Errorf("opening staged artifact: %w", err)
	}
	return f, nil
}

// artifactName returns the flat-container file name for an identity.
func artifactName(ident PackageIdentity) string {
	return fmt.Sprintf("%s.%s.nupkg", ident.LowerID(), ident.Version.String())
}

// openFresh opens path if it exists and is newer than maxAge. A zero maxAge
// accepts any age.
func (r *NuGetRegistry) openFresh(path string, maxAge time.Duration) (io.ReadCloser, bool) {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return nil, false
	}
	if maxAge > 0 && time.Since(info.ModTime()) > maxAge {
		return nil, false
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, false
	}
	return f, true
}

// writeFileAtomic streams src into dest via a temp file in the same
// directory, so a partial write is never visible under the final name.
func writeFileAtomic(dest string, src io.Reader) error {
	dir := filepath.Dir(dest)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(dest)+".*.partial")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := io.Copy(tmp, src); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("writing artifact: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(tmpPath, dest); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("renaming artifact: %w", err)
	}
	return nil
}

// getJSON fetches url and decodes the response body into v.
func (r *NuGetRegistry) getJSON(ctx context.Context, url string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return &HTTPError{StatusCode: resp.StatusCode, URL: url}
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}
