// Package config implements spec.md §6's on-disk persistence: a
// per-user directory of versioned YAML documents (settings, connections,
// templates, snippets) guarded by an advisory file lock, so the catalog
// survives a restart.
package config

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"
	"github.com/gravitational/trace"
	"gopkg.in/yaml.v3"

	"github.com/rustconn/rustconn/lib/catalog"
)

// currentVersion is written to every document's top-level version field.
// Bump it when a document's shape changes in a way that needs migration.
const currentVersion = 1

const lockTimeout = 5 * time.Second

// Settings is the contents of settings.yaml: process-wide preferences
// that aren't tied to any one connection.
type Settings struct {
	Version           int    `yaml:"version"`
	SearchHistorySize int    `yaml:"search_history_size,omitempty"`
	DefaultTerminal   string `yaml:"default_terminal,omitempty"`
	LogDir            string `yaml:"log_dir,omitempty"`
}

type connectionsDocument struct {
	Version     int                        `yaml:"version"`
	Connections []*catalog.Connection      `yaml:"connections"`
	Groups      []*catalog.ConnectionGroup `yaml:"groups"`
}

type templatesDocument struct {
	Version   int                           `yaml:"version"`
	Templates []*catalog.ConnectionTemplate `yaml:"templates"`
}

type snippetsDocument struct {
	Version  int                `yaml:"version"`
	Snippets []*catalog.Snippet `yaml:"snippets"`
}

// Dir resolves the per-user configuration directory: $XDG_CONFIG_HOME/rustconn,
// falling back to $HOME/.config/rustconn, mirroring the teacher's
// profile.FullProfilePath-style resolution.
func Dir() (string, error) {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "rustconn"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", trace.Wrap(err, "resolving home directory")
	}
	return filepath.Join(home, ".config", "rustconn"), nil
}

// Store loads and saves a Catalog's state and Settings under Dir, one
// YAML file per document, each guarded independently by an advisory
// lock so a concurrent save from another process instance can't
// interleave with a read.
type Store struct {
	dir string
}

// NewStore builds a Store rooted at dir, creating it if necessary.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, trace.Wrap(err, "creating config directory %q", dir)
	}
	if err := os.MkdirAll(filepath.Join(dir, "logs"), 0o700); err != nil {
		return nil, trace.Wrap(err, "creating log directory")
	}
	return &Store{dir: dir}, nil
}

func (s *Store) path(name string) string     { return filepath.Join(s.dir, name) }
func (s *Store) lockPath(name string) string { return s.path(name) + ".lock" }

func (s *Store) withLock(name string, fn func() error) error {
	lock := flock.New(s.lockPath(name))
	ctx, cancel := context.WithTimeout(context.Background(), lockTimeout)
	defer cancel()
	locked, err := lock.TryLockContext(ctx, 50*time.Millisecond)
	if err != nil {
		return trace.Wrap(err, "locking %q", name)
	}
	if !locked {
		return trace.ConnectionProblem(nil, "timed out acquiring lock on %q", name)
	}
	defer lock.Unlock()
	return fn()
}

// LoadSettings reads settings.yaml, returning defaults if it doesn't
// exist yet.
func (s *Store) LoadSettings() (Settings, error) {
	var out Settings
	err := s.withLock("settings.yaml", func() error {
		data, err := os.ReadFile(s.path("settings.yaml"))
		if os.IsNotExist(err) {
			out = Settings{Version: currentVersion, SearchHistorySize: 20}
			return nil
		}
		if err != nil {
			return trace.Wrap(err)
		}
		return trace.Wrap(yaml.Unmarshal(data, &out))
	})
	return out, trace.Wrap(err)
}

// SaveSettings writes settings.yaml.
func (s *Store) SaveSettings(settings Settings) error {
	settings.Version = currentVersion
	return s.withLock("settings.yaml", func() error {
		return s.writeYAML("settings.yaml", settings)
	})
}

// LoadInto reads connections.yaml/templates.yaml/snippets.yaml and
// populates cat via its Create* methods. Missing files are treated as
// empty, so a fresh config directory produces an empty Catalog.
func (s *Store) LoadInto(cat *catalog.Catalog) error {
	var conns connectionsDocument
	if err := s.readYAMLOrEmpty("connections.yaml", &conns); err != nil {
		return trace.Wrap(err)
	}
	// CreateGroup assigns fresh ids, so saved group references are mapped
	// onto the ids of the restored groups.
	newGroupIDs := make(map[uuid.UUID]uuid.UUID, len(conns.Groups))
	for _, g := range conns.Groups {
		restored := *g
		if g.ParentID != nil {
			pid := newGroupIDs[*g.ParentID]
			restored.ParentID = &pid
		}
		created, err := cat.CreateGroup(&restored)
		if err != nil {
			return trace.Wrap(err, "restoring group %q", g.Name)
		}
		newGroupIDs[g.ID] = created.ID
	}
	for _, c := range conns.Connections {
		if c.GroupID != nil {
			gid := newGroupIDs[*c.GroupID]
			c.GroupID = &gid
		}
		if _, err := cat.CreateConnection(c); err != nil {
			return trace.Wrap(err, "restoring connection %q", c.Name)
		}
	}

	var tmpls templatesDocument
	if err := s.readYAMLOrEmpty("templates.yaml", &tmpls); err != nil {
		return trace.Wrap(err)
	}
	for _, t := range tmpls.Templates {
		if _, err := cat.CreateTemplate(t); err != nil {
			return trace.Wrap(err, "restoring template %q", t.Name)
		}
	}

	var snips snippetsDocument
	if err := s.readYAMLOrEmpty("snippets.yaml", &snips); err != nil {
		return trace.Wrap(err)
	}
	for _, sn := range snips.Snippets {
		if _, err := cat.CreateSnippet(sn); err != nil {
			return trace.Wrap(err, "restoring snippet %q", sn.Name)
		}
	}
	return nil
}

// SaveFrom snapshots cat's connections/groups/templates/snippets and
// writes them to their respective YAML documents.
func (s *Store) SaveFrom(cat *catalog.Catalog) error {
	conns := connectionsDocument{
		Version:     currentVersion,
		Connections: cat.ListConnections(),
		Groups:      cat.ListGroups(),
	}
	if err := s.withLock("connections.yaml", func() error {
		return s.writeYAML("connections.yaml", conns)
	}); err != nil {
		return trace.Wrap(err)
	}

	tmpls := templatesDocument{Version: currentVersion, Templates: cat.ListTemplates()}
	if err := s.withLock("templates.yaml", func() error {
		return s.writeYAML("templates.yaml", tmpls)
	}); err != nil {
		return trace.Wrap(err)
	}

	snips := snippetsDocument{Version: currentVersion, Snippets: cat.ListSnippets()}
	return s.withLock("snippets.yaml", func() error {
		return s.writeYAML("snippets.yaml", snips)
	})
}

func (s *Store) readYAMLOrEmpty(name string, out interface{}) error {
	return s.withLock(name, func() error {
		data, err := os.ReadFile(s.path(name))
		if os.IsNotExist(err) {
			return nil
		}
		if err != nil {
			return trace.Wrap(err)
		}
		return trace.Wrap(yaml.Unmarshal(data, out))
	})
}

// writeYAML marshals v and writes it to name via a temp-file-plus-rename,
// so a crash mid-write never leaves a half-written document behind.
func (s *Store) writeYAML(name string, v interface{}) error {
	data, err := yaml.Marshal(v)
	if err != nil {
		return trace.Wrap(err)
	}
	tmp := s.path(name) + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return trace.Wrap(err)
	}
	return trace.Wrap(os.Rename(tmp, s.path(name)))
}
