package ensure

import (
	"net/http"

	"github.com/go-logr/logr"

	"github.com/nupkg-tools/ensure/cache"
	"github.com/nupkg-tools/ensure/registry"
)

// Option configures a Client.
type Option func(*Client) error

// WithLogger sets a custom logger for the client.
// If not set, logging is disabled (logr.Discard() is used).
func WithLogger(logger logr.Logger) Option {
	return func(c *Client) error {
		c.logger = logger
		return nil
	}
}

// WithRegistry sets a custom registry implementation.
func WithRegistry(r registry.Registry) Option {
	return func(c *Client) error {
		c.registry = r
		return nil
	}
}

// WithCache sets a custom cache implementation.
func WithCache(store cache.Cache) Option {
	return func(c *Client) error {
		c.cache = store
		return nil
	}
}

// WithHTTPClient sets a custom HTTP client for the default NuGet registry.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) error {
		c.registry = registry.NewNuGet("", client)
		return nil
	}
}
