package secret

import (
	"context"
	"sync"

	"github.com/gravitational/trace"

	"github.com/rustconn/rustconn/lib/catalog"
)

// MemoryBackend is the ephemeral, session-bounded "don't save" backend.
// Entries never touch disk and are lost when the process exits.
type MemoryBackend struct {
	mu      sync.RWMutex
	entries map[string]*catalog.Credentials
}

// NewMemoryBackend builds an empty MemoryBackend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{entries: make(map[string]*catalog.Credentials)}
}

func (m *MemoryBackend) ID() string           { return "memory" }
func (m *MemoryBackend) DisplayName() string  { return "Memory (this session only)" }
func (m *MemoryBackend) IsAvailable(context.Context) bool { return true }

func (m *MemoryBackend) Get(_ context.Context, key string) (*catalog.Credentials, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.entries[key]
	if !ok {
		return nil, trace.NotFound("no memory-backend entry for %q", key)
	}
	return catalog.NewCredentials(c.Username, c.Password(), c.Domain), nil
}

func (m *MemoryBackend) Set(_ context.Context, key string, creds *catalog.Credentials) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = catalog.NewCredentials(creds.Username, creds.Password(), creds.Domain)
	return nil
}

func (m *MemoryBackend) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok := m.entries[key]; ok {
		c.Wipe()
		delete(m.entries, key)
	}
	return nil
}

// Clear wipes and drops every stored entry.
func (m *MemoryBackend) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.entries {
		c.Wipe()
	}
	m.entries = make(map[string]*catalog.Credentials)
}
