// Package formats implements the per-format adapters of spec.md §4.C.
package formats

import (
	"github.com/google/uuid"

	"github.com/rustconn/rustconn/lib/catalog"
)

func newConnection(name, host string, port int, protocol catalog.Protocol, cfg catalog.ProtocolConfig) *catalog.Connection {
	return &catalog.Connection{
		ID:       uuid.New(),
		Name:     name,
		Host:     host,
		Port:     port,
		Protocol: protocol,
		Config:   cfg,
	}
}

func newGroup(name string, parentID *uuid.UUID) *catalog.ConnectionGroup {
	return &catalog.ConnectionGroup{
		ID:       uuid.New(),
		Name:     name,
		ParentID: parentID,
	}
}

// groupPaths returns, for every group, the backslash-joined path from its
// root ancestor down to itself — used by MobaXterm's nested-folder export.
func groupPaths(groups []*catalog.ConnectionGroup) map[uuid.UUID]string {
	byID := make(map[uuid.UUID]*catalog.ConnectionGroup, len(groups))
	for _, g := range groups {
		byID[g.ID] = g
	}

	var pathOf func(id uuid.UUID) string
	memo := make(map[uuid.UUID]string)
	pathOf = func(id uuid.UUID) string {
		if p, ok := memo[id]; ok {
			return p
		}
		g := byID[id]
		if g == nil {
			return ""
		}
		if g.ParentID == nil {
			memo[id] = g.Name
			return g.Name
		}
		p := pathOf(*g.ParentID) + `\` + g.Name
		memo[id] = p
		return p
	}

	out := make(map[uuid.UUID]string, len(groups))
	for _, g := range groups {
		out[g.ID] = pathOf(g.ID)
	}
	return out
}
