// Package secret implements the unified credential lookup chain of
// spec.md §4.B: a totally-ordered list of backends, probed for
// availability and walked in order until one yields a hit.
package secret

import (
	"context"
	"sync"

	"github.com/gravitational/trace"
	"github.com/sirupsen/logrus"

	"github.com/rustconn/rustconn/lib/catalog"
)

// Backend is one credential source in the Chain.
type Backend interface {
	// ID is the stable, lowercase identifier of the backend variant.
	ID() string
	// DisplayName is a human-readable label for UI enablement lists.
	DisplayName() string
	// IsAvailable probes the backend synchronously with a short internal
	// timeout; it must never block indefinitely.
	IsAvailable(ctx context.Context) bool
	// Get resolves key to Credentials, or returns a NotFound-classified
	// error if the backend has no entry for it.
	Get(ctx context.Context, key string) (*catalog.Credentials, error)
	// Set stores (or replaces) the Credentials for key.
	Set(ctx context.Context, key string, creds *catalog.Credentials) error
	// Delete removes the entry for key, if any.
	Delete(ctx context.Context, key string) error
}

// Chain is an ordered list of Backends, probed and queried in order.
type Chain struct {
	log      *logrus.Entry
	mu       sync.RWMutex
	backends []Backend
}

// New builds a Chain over the given backends, preserving their order.
func New(backends ...Backend) *Chain {
	return &Chain{
		log:      logrus.NewEntry(logrus.StandardLogger()).WithField(trace.Component, "secret"),
		backends: backends,
	}
}

// Backends returns the configured backend list, in lookup order.
func (c *Chain) Backends() []Backend {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Backend, len(c.backends))
	copy(out, c.backends)
	return out
}

// AnyAvailable reports whether at least one backend is currently usable.
func (c *Chain) AnyAvailable(ctx context.Context) bool {
	for _, b := range c.Backends() {
		if b.IsAvailable(ctx) {
			return true
		}
	}
	return false
}

// Lookup walks the chain in order and returns the first non-error hit.
// If every backend misses or errors, the last backend's error is
// returned, wrapped; if there are no backends at all, NotFound.
func (c *Chain) Lookup(ctx context.Context, key string) (*catalog.Credentials, error) {
	backends := c.Backends()
	if len(backends) == 0 {
		return nil, trace.NotFound("no secret backends configured")
	}

	var lastErr error
	for _, b := range backends {
		creds, err := b.Get(ctx, key)
		if err == nil {
			return creds, nil
		}
		c.log.WithField("backend", b.ID()).Debugf("miss: %v", err)
		lastErr = err
	}
	return nil, trace.Wrap(lastErr, "no backend resolved credentials for %q", key)
}

// Store writes creds to the named backend.
func (c *Chain) Store(ctx context.Context, backendID, key string, creds *catalog.Credentials) error {
	for _, b := range c.Backends() {
		if b.ID() == backendID {
			return trace.Wrap(b.Set(ctx, key, creds))
		}
	}
	return trace.NotFound("backend %q not configured", backendID)
}

// Delete removes key from the named backend.
func (c *Chain) Delete(ctx context.Context, backendID, key string) error {
	for _, b := range c.Backends() {
		if b.ID() == backendID {
			return trace.Wrap(b.Delete(ctx, key))
		}
	}
	return trace.NotFound("backend %q not configured", backendID)
}
