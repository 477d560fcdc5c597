// Package importexport implements the bidirectional mapping between the
// catalog's object graph and the seven external connection-manager formats
// named in spec.md §4.C, plus a native round-trip format.
package importexport

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/gravitational/trace"
	"github.com/sirupsen/logrus"

	"github.com/rustconn/rustconn/lib/catalog"
)

var log = logrus.NewEntry(logrus.StandardLogger()).WithField(trace.Component, "importexport")

// ImportResult is the output of Adapter.Import: a set of Connections and
// Groups ready for insertion into the Catalog, plus any non-fatal warnings.
type ImportResult struct {
	Connections []*catalog.Connection
	Groups      []*catalog.ConnectionGroup
	Warnings    []string
}

// ExportOptions carries per-adapter export knobs. Adapters ignore keys they
// don't recognize.
type ExportOptions struct {
	// IncludePasswords includes cleartext/encrypted password material in
	// formats that support it. Default false: export is metadata-only
	// unless explicitly requested.
	IncludePasswords bool
}

// Adapter is a single external-format plugin.
type Adapter interface {
	// FormatID is the stable, lowercase identifier (e.g. "ansible_ini").
	FormatID() string
	// DisplayName is the human-readable label.
	DisplayName() string
	// Supports reports whether this format can carry connections using
	// protocol.
	Supports(protocol catalog.Protocol) bool
	// Import parses raw bytes into an ImportResult.
	Import(data []byte) (*ImportResult, error)
	// Export serializes connections/groups into the format's bytes.
	Export(conns []*catalog.Connection, groups []*catalog.ConnectionGroup, opts ExportOptions) ([]byte, error)
}

// Engine dispatches to registered Adapters by FormatID.
type Engine struct {
	adapters map[string]Adapter
}

// NewEngine builds an Engine over the given adapters.
func NewEngine(adapters ...Adapter) *Engine {
	e := &Engine{adapters: make(map[string]Adapter, len(adapters))}
	for _, a := range adapters {
		e.adapters[a.FormatID()] = a
	}
	return e
}

// Adapter looks up a registered adapter by format id.
func (e *Engine) Adapter(formatID string) (Adapter, error) {
	a, ok := e.adapters[formatID]
	if !ok {
		return nil, trace.NotFound("import/export format %q not registered", formatID)
	}
	return a, nil
}

// Adapters returns every registered adapter.
func (e *Engine) Adapters() []Adapter {
	out := make([]Adapter, 0, len(e.adapters))
	for _, a := range e.adapters {
		out = append(out, a)
	}
	return out
}

// Import runs formatID's adapter over data, then reshapes the result for
// insertion: a parent Group named "{SourceName} Import" is synthesized,
// every top-level imported Group is reparented under it, and every
// imported Connection with no group is assigned to it directly. Name
// collisions are resolved via uniquify, which callers typically back with
// catalog.Catalog.GenerateUniqueName.
func Import(e *Engine, formatID string, data []byte, sourceName string, uniquify func(string) string) (*ImportResult, error) {
	adapter, err := e.Adapter(formatID)
	if err != nil {
		return nil, trace.Wrap(err)
	}

	result, err := adapter.Import(data)
	if err != nil {
		return nil, trace.Wrap(err, "importing %s", formatID)
	}

	parent := &catalog.ConnectionGroup{
		ID:   uuid.New(),
		Name: uniquify(fmt.Sprintf("%s Import", sourceName)),
	}

	for _, g := range result.Groups {
		if g.ParentID == nil {
			g.ParentID = &parent.ID
		}
		g.Name = uniquify(g.Name)
	}
	for _, c := range result.Connections {
		if c.GroupID == nil {
			c.GroupID = &parent.ID
		}
		c.Name = uniquify(c.Name)
	}

	result.Groups = append([]*catalog.ConnectionGroup{parent}, result.Groups...)
	return result, nil
}

// Export runs formatID's adapter over conns/groups, dropping (with a
// warning) any connection the adapter's Supports rejects.
func Export(e *Engine, formatID string, conns []*catalog.Connection, groups []*catalog.ConnectionGroup, opts ExportOptions) ([]byte, []string, error) {
	adapter, err := e.Adapter(formatID)
	if err != nil {
		return nil, nil, trace.Wrap(err)
	}

	var supported []*catalog.Connection
	var warnings []string
	for _, c := range conns {
		if adapter.Supports(c.Protocol) {
			supported = append(supported, c)
		} else {
			warnings = append(warnings, fmt.Sprintf("skipped %q: %s does not support protocol %s", c.Name, formatID, c.Protocol))
		}
	}

	data, err := adapter.Export(supported, groups, opts)
	if err != nil {
		return nil, warnings, trace.Wrap(err, "exporting %s", formatID)
	}
	return data, warnings, nil
}
