package catalog

import (
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/gravitational/trace"
	"github.com/jonboulle/clockwork"
	"github.com/sirupsen/logrus"
)

// Config is the catalog's configuration.
type Config struct {
	// Clock is used for all timestamping so tests can inject a fake clock.
	Clock clockwork.Clock
	// Log is a component logger.
	Log *logrus.Entry
	// SearchHistorySize bounds the search history ring.
	SearchHistorySize int
}

// CheckAndSetDefaults validates the config and fills in defaults.
func (c *Config) CheckAndSetDefaults() error {
	if c.Clock == nil {
		c.Clock = clockwork.NewRealClock()
	}
	if c.Log == nil {
		c.Log = logrus.NewEntry(logrus.StandardLogger()).WithField(trace.Component, "catalog")
	}
	if c.SearchHistorySize <= 0 {
		c.SearchHistorySize = 20
	}
	return nil
}

// Catalog is the process-wide, single-writer store of connections, groups,
// templates and snippets described in spec.md §3/§4.A.
type Catalog struct {
	Config

	mu sync.RWMutex

	connections map[uuid.UUID]*Connection
	groups      map[uuid.UUID]*ConnectionGroup
	templates   map[uuid.UUID]*ConnectionTemplate
	snippets    map[uuid.UUID]*Snippet

	searchHistory []string
	clipboard     *Connection
}

// New creates an empty Catalog.
func New(cfg Config) (*Catalog, error) {
	if err := cfg.CheckAndSetDefaults(); err != nil {
		return nil, trace.Wrap(err)
	}
	return &Catalog{
		Config:      cfg,
		connections: make(map[uuid.UUID]*Connection),
		groups:      make(map[uuid.UUID]*ConnectionGroup),
		templates:   make(map[uuid.UUID]*ConnectionTemplate),
		snippets:    make(map[uuid.UUID]*Snippet),
	}, nil
}

func namesCollide(a, b string) bool {
	return strings.EqualFold(a, b)
}

// validateProtocolConfig enforces invariant 3: protocol tag agreement.
func validateProtocolConfig(protocol Protocol, cfg ProtocolConfig) error {
	tag, ok := cfg.Tag()
	if !ok || tag != protocol {
		return ErrProtocolMismatch(string(protocol))
	}
	return nil
}

// --- Connections ---------------------------------------------------------

// CreateConnection validates and inserts a new Connection, assigning it a
// fresh id and timestamps.
func (cat *Catalog) CreateConnection(c *Connection) (*Connection, error) {
	if c.Name == "" {
		return nil, ErrValidationFailed("name", "must not be empty")
	}
	if err := validateProtocolConfig(c.Protocol, c.Config); err != nil {
		return nil, trace.Wrap(err)
	}
	if c.GroupID != nil {
		cat.mu.RLock()
		_, ok := cat.groups[*c.GroupID]
		cat.mu.RUnlock()
		if !ok {
			return nil, trace.NotFound("group %s not found", *c.GroupID)
		}
	}

	cat.mu.Lock()
	defer cat.mu.Unlock()

	for _, existing := range cat.connections {
		if namesCollide(existing.Name, c.Name) {
			return nil, ErrDuplicateName("connection", c.Name)
		}
	}

	now := cat.Clock.Now().UTC()
	clone := c.Clone()
	clone.ID = uuid.New()
	clone.CreatedAt = now
	clone.UpdatedAt = now
	cat.connections[clone.ID] = clone

	cat.Log.Debugf("created connection %s (%s)", clone.ID, clone.Name)
	return clone.Clone(), nil
}

// UpdateConnection replaces the stored Connection for id with the fields of
// updated, rejecting name collisions and protocol/config disagreement.
func (cat *Catalog) UpdateConnection(id uuid.UUID, updated *Connection) (*Connection, error) {
	if updated.Name == "" {
		return nil, ErrValidationFailed("name", "must not be empty")
	}
	if err := validateProtocolConfig(updated.Protocol, updated.Config); err != nil {
		return nil, trace.Wrap(err)
	}

	cat.mu.Lock()
	defer cat.mu.Unlock()

	existing, ok := cat.connections[id]
	if !ok {
		return nil, trace.NotFound("connection %s not found", id)
	}

	for otherID, other := range cat.connections {
		if otherID == id {
			continue
		}
		if namesCollide(other.Name, updated.Name) {
			return nil, ErrDuplicateName("connection", updated.Name)
		}
	}

	clone := updated.Clone()
	clone.ID = id
	clone.CreatedAt = existing.CreatedAt
	clone.UpdatedAt = cat.Clock.Now().UTC()
	cat.connections[id] = clone

	return clone.Clone(), nil
}

// DeleteConnection removes a Connection. Deleting an already-gone id
// returns NotFound rather than succeeding silently.
func (cat *Catalog) DeleteConnection(id uuid.UUID) error {
	cat.mu.Lock()
	defer cat.mu.Unlock()

	if _, ok := cat.connections[id]; !ok {
		return trace.NotFound("connection %s not found", id)
	}
	delete(cat.connections, id)
	return nil
}

// GetConnection returns a copy of the Connection with the given id.
func (cat *Catalog) GetConnection(id uuid.UUID) (*Connection, error) {
	cat.mu.RLock()
	defer cat.mu.RUnlock()

	c, ok := cat.connections[id]
	if !ok {
		return nil, trace.NotFound("connection %s not found", id)
	}
	return c.Clone(), nil
}

// ListConnections returns a copy of all connections, ordered by SortOrder
// then Name.
func (cat *Catalog) ListConnections() []*Connection {
	cat.mu.RLock()
	defer cat.mu.RUnlock()

	out := make([]*Connection, 0, len(cat.connections))
	for _, c := range cat.connections {
		out = append(out, c.Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].SortOrder != out[j].SortOrder {
			return out[i].SortOrder < out[j].SortOrder
		}
		return strings.ToLower(out[i].Name) < strings.ToLower(out[j].Name)
	})
	return out
}

// MoveConnectionToGroup reparents a Connection. A no-op if the group is
// unchanged.
func (cat *Catalog) MoveConnectionToGroup(connID uuid.UUID, groupID *uuid.UUID) error {
	cat.mu.Lock()
	defer cat.mu.Unlock()

	c, ok := cat.connections[connID]
	if !ok {
		return trace.NotFound("connection %s not found", connID)
	}
	if groupID != nil {
		if _, ok := cat.groups[*groupID]; !ok {
			return trace.NotFound("group %s not found", *groupID)
		}
	}
	if (c.GroupID == nil) == (groupID == nil) && (c.GroupID == nil || *c.GroupID == *groupID) {
		return nil
	}
	c.GroupID = groupID
	c.UpdatedAt = cat.Clock.Now().UTC()
	return nil
}

// GenerateUniqueName appends " (N)" to base until the result is unique
// among existing connection names.
func (cat *Catalog) GenerateUniqueName(base string) string {
	cat.mu.RLock()
	defer cat.mu.RUnlock()
	return cat.generateUniqueNameLocked(base)
}

func (cat *Catalog) generateUniqueNameLocked(base string) string {
	candidate := base
	n := 2
	for {
		collision := false
		for _, c := range cat.connections {
			if namesCollide(c.Name, candidate) {
				collision = true
				break
			}
		}
		if !collision {
			return candidate
		}
		candidate = base + " (" + itoa(n) + ")"
		n++
	}
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}

// --- Groups ----------------------------------------------------------------

// CreateGroup validates and inserts a new ConnectionGroup.
func (cat *Catalog) CreateGroup(g *ConnectionGroup) (*ConnectionGroup, error) {
	if g.Name == "" {
		return nil, ErrValidationFailed("name", "must not be empty")
	}

	cat.mu.Lock()
	defer cat.mu.Unlock()

	for _, existing := range cat.groups {
		if namesCollide(existing.Name, g.Name) {
			return nil, ErrDuplicateName("group", g.Name)
		}
	}
	if g.ParentID != nil {
		if _, ok := cat.groups[*g.ParentID]; !ok {
			return nil, trace.NotFound("group %s not found", *g.ParentID)
		}
	}

	now := cat.Clock.Now().UTC()
	clone := *g
	clone.ID = uuid.New()
	clone.CreatedAt = now
	clone.UpdatedAt = now
	cat.groups[clone.ID] = &clone

	out := clone
	return &out, nil
}

// UpdateGroup updates name/parent, rejecting collisions and cycles.
func (cat *Catalog) UpdateGroup(id uuid.UUID, g *ConnectionGroup) (*ConnectionGroup, error) {
	cat.mu.Lock()
	defer cat.mu.Unlock()

	existing, ok := cat.groups[id]
	if !ok {
		return nil, trace.NotFound("group %s not found", id)
	}
	for otherID, other := range cat.groups {
		if otherID == id {
			continue
		}
		if namesCollide(other.Name, g.Name) {
			return nil, ErrDuplicateName("group", g.Name)
		}
	}
	if g.ParentID != nil {
		if _, ok := cat.groups[*g.ParentID]; !ok {
			return nil, trace.NotFound("group %s not found", *g.ParentID)
		}
		if cat.wouldCycleLocked(id, *g.ParentID) {
			return nil, ErrCycleInHierarchy(id.String())
		}
	}

	clone := *g
	clone.ID = id
	clone.CreatedAt = existing.CreatedAt
	clone.UpdatedAt = cat.Clock.Now().UTC()
	cat.groups[id] = &clone

	out := clone
	return &out, nil
}

// wouldCycleLocked reports whether setting id's parent to newParent would
// create a cycle, by walking newParent's ancestry looking for id.
func (cat *Catalog) wouldCycleLocked(id, newParent uuid.UUID) bool {
	current := newParent
	seen := map[uuid.UUID]bool{}
	for {
		if current == id {
			return true
		}
		if seen[current] {
			// Pre-existing cycle shouldn't happen, but don't loop forever.
			return true
		}
		seen[current] = true
		g, ok := cat.groups[current]
		if !ok || g.ParentID == nil {
			return false
		}
		current = *g.ParentID
	}
}

// DeleteGroupCascade deletes a group and all descendant groups. Connections
// that lay inside the deleted subtree are reparented to the deleted root's
// parent (or ungrouped, if the root had none) — see DESIGN.md for why
// reparent-to-parent was chosen over orphan-to-ungrouped.
func (cat *Catalog) DeleteGroupCascade(id uuid.UUID) error {
	cat.mu.Lock()
	defer cat.mu.Unlock()

	root, ok := cat.groups[id]
	if !ok {
		return trace.NotFound("group %s not found", id)
	}

	toDelete := cat.subtreeLocked(id)
	toDelete[id] = true

	for _, c := range cat.connections {
		if c.GroupID != nil && toDelete[*c.GroupID] {
			c.GroupID = root.ParentID
			c.UpdatedAt = cat.Clock.Now().UTC()
		}
	}
	for gid := range toDelete {
		delete(cat.groups, gid)
	}
	return nil
}

// subtreeLocked returns the set of descendant group ids of root (exclusive
// of root itself).
func (cat *Catalog) subtreeLocked(root uuid.UUID) map[uuid.UUID]bool {
	children := map[uuid.UUID][]uuid.UUID{}
	for gid, g := range cat.groups {
		if g.ParentID != nil {
			children[*g.ParentID] = append(children[*g.ParentID], gid)
		}
	}
	out := map[uuid.UUID]bool{}
	var walk func(uuid.UUID)
	walk = func(id uuid.UUID) {
		for _, child := range children[id] {
			if !out[child] {
				out[child] = true
				walk(child)
			}
		}
	}
	walk(root)
	return out
}

// GetGroup returns a copy of the group with the given id.
func (cat *Catalog) GetGroup(id uuid.UUID) (*ConnectionGroup, error) {
	cat.mu.RLock()
	defer cat.mu.RUnlock()
	g, ok := cat.groups[id]
	if !ok {
		return nil, trace.NotFound("group %s not found", id)
	}
	out := *g
	return &out, nil
}

// ListGroups returns a copy of all groups.
func (cat *Catalog) ListGroups() []*ConnectionGroup {
	cat.mu.RLock()
	defer cat.mu.RUnlock()
	out := make([]*ConnectionGroup, 0, len(cat.groups))
	for _, g := range cat.groups {
		gc := *g
		out = append(out, &gc)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SortOrder < out[j].SortOrder })
	return out
}

// --- Templates ---------------------------------------------------------

// CreateTemplate validates and inserts a new ConnectionTemplate.
func (cat *Catalog) CreateTemplate(t *ConnectionTemplate) (*ConnectionTemplate, error) {
	if t.Name == "" {
		return nil, ErrValidationFailed("name", "must not be empty")
	}
	if err := validateProtocolConfig(t.Protocol, t.Config); err != nil {
		return nil, trace.Wrap(err)
	}

	cat.mu.Lock()
	defer cat.mu.Unlock()

	for _, existing := range cat.templates {
		if namesCollide(existing.Name, t.Name) {
			return nil, ErrDuplicateName("template", t.Name)
		}
	}

	now := cat.Clock.Now().UTC()
	clone := *t
	clone.ID = uuid.New()
	clone.CreatedAt = now
	clone.UpdatedAt = now
	cat.templates[clone.ID] = &clone

	out := clone
	return &out, nil
}

// DeleteTemplate removes a ConnectionTemplate.
func (cat *Catalog) DeleteTemplate(id uuid.UUID) error {
	cat.mu.Lock()
	defer cat.mu.Unlock()
	if _, ok := cat.templates[id]; !ok {
		return trace.NotFound("template %s not found", id)
	}
	delete(cat.templates, id)
	return nil
}

// InstantiateTemplate clones a template into a new, catalog-registered
// Connection, uniquifying its name if needed.
func (cat *Catalog) InstantiateTemplate(id uuid.UUID) (*Connection, error) {
	cat.mu.Lock()
	t, ok := cat.templates[id]
	if !ok {
		cat.mu.Unlock()
		return nil, trace.NotFound("template %s not found", id)
	}
	now := cat.Clock.Now().UTC()
	conn := t.Instantiate(now)
	conn.Name = cat.generateUniqueNameLocked(conn.Name)
	cat.connections[conn.ID] = conn
	cat.mu.Unlock()

	return conn.Clone(), nil
}

// ListTemplates returns a copy of all templates.
func (cat *Catalog) ListTemplates() []*ConnectionTemplate {
	cat.mu.RLock()
	defer cat.mu.RUnlock()
	out := make([]*ConnectionTemplate, 0, len(cat.templates))
	for _, t := range cat.templates {
		tc := *t
		out = append(out, &tc)
	}
	return out
}

// --- Snippets ------------------------------------------------------------

// CreateSnippet validates and inserts a new Snippet, enforcing that its
// Variables list exactly matches the ${name} identifiers in Command.
func (cat *Catalog) CreateSnippet(s *Snippet) (*Snippet, error) {
	if s.Name == "" {
		return nil, ErrValidationFailed("name", "must not be empty")
	}
	if s.Command == "" {
		return nil, ErrValidationFailed("command", "must not be empty")
	}
	s.Variables = reconcileSnippetVariables(s.Command, s.Variables)

	cat.mu.Lock()
	defer cat.mu.Unlock()

	for _, existing := range cat.snippets {
		if namesCollide(existing.Name, s.Name) {
			return nil, ErrDuplicateName("snippet", s.Name)
		}
	}

	now := cat.Clock.Now().UTC()
	clone := *s
	clone.ID = uuid.New()
	clone.CreatedAt = now
	clone.UpdatedAt = now
	cat.snippets[clone.ID] = &clone

	out := clone
	return &out, nil
}

// DeleteSnippet removes a Snippet.
func (cat *Catalog) DeleteSnippet(id uuid.UUID) error {
	cat.mu.Lock()
	defer cat.mu.Unlock()
	if _, ok := cat.snippets[id]; !ok {
		return trace.NotFound("snippet %s not found", id)
	}
	delete(cat.snippets, id)
	return nil
}

// ListSnippets returns a copy of all snippets.
func (cat *Catalog) ListSnippets() []*Snippet {
	cat.mu.RLock()
	defer cat.mu.RUnlock()
	out := make([]*Snippet, 0, len(cat.snippets))
	for _, s := range cat.snippets {
		sc := *s
		out = append(out, &sc)
	}
	return out
}

// --- Clipboard -------------------------------------------------------------

// CopyToClipboard stashes a copy of the given Connection in the catalog's
// single-slot intra-process clipboard.
func (cat *Catalog) CopyToClipboard(id uuid.UUID) error {
	cat.mu.Lock()
	defer cat.mu.Unlock()
	c, ok := cat.connections[id]
	if !ok {
		return trace.NotFound("connection %s not found", id)
	}
	cat.clipboard = c.Clone()
	return nil
}

// PasteFromClipboard creates a new, catalog-registered Connection from the
// clipboard contents with a fresh id and a uniquified name.
func (cat *Catalog) PasteFromClipboard() (*Connection, error) {
	cat.mu.Lock()
	defer cat.mu.Unlock()
	if cat.clipboard == nil {
		return nil, trace.NotFound("clipboard is empty")
	}

	now := cat.Clock.Now().UTC()
	clone := cat.clipboard.Clone()
	clone.ID = uuid.New()
	clone.Name = cat.generateUniqueNameLocked(clone.Name)
	clone.CreatedAt = now
	clone.UpdatedAt = now
	cat.connections[clone.ID] = clone

	return clone.Clone(), nil
}
