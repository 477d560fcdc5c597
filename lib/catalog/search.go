package catalog

import (
	"strings"

	"github.com/google/uuid"
)

// Search evaluates query against the catalog's connections and returns the
// matches, then records query in the search history ring.
//
// query is a space-separated list of terms. A term of the form key:value
// constrains a specific facet (protocol, tag, group, prop); any other
// token is a bare substring match tried against name, host and username.
// All terms must match (AND semantics).
func (cat *Catalog) Search(query string) []*Connection {
	terms := parseSearchQuery(query)

	cat.mu.Lock()
	defer cat.mu.Unlock()

	var out []*Connection
	for _, c := range cat.connections {
		if matchesAllTerms(c, terms, cat.groups) {
			out = append(out, c.Clone())
		}
	}

	cat.recordSearchLocked(query)
	return out
}

type searchTerm struct {
	key   string // "" for a bare token
	value string
}

func parseSearchQuery(query string) []searchTerm {
	fields := strings.Fields(query)
	terms := make([]searchTerm, 0, len(fields))
	for _, f := range fields {
		if idx := strings.IndexByte(f, ':'); idx > 0 {
			terms = append(terms, searchTerm{
				key:   strings.ToLower(f[:idx]),
				value: f[idx+1:],
			})
			continue
		}
		terms = append(terms, searchTerm{value: f})
	}
	return terms
}

func matchesAllTerms(c *Connection, terms []searchTerm, groups map[uuid.UUID]*ConnectionGroup) bool {
	for _, t := range terms {
		if !matchesTerm(c, t, groups) {
			return false
		}
	}
	return true
}

func matchesTerm(c *Connection, t searchTerm, groups map[uuid.UUID]*ConnectionGroup) bool {
	switch t.key {
	case "protocol":
		return strings.EqualFold(string(c.Protocol), t.value)
	case "tag":
		needle := strings.ToLower(t.value)
		for _, tag := range c.Tags {
			if strings.Contains(strings.ToLower(tag), needle) {
				return true
			}
		}
		return false
	case "group":
		if c.GroupID == nil {
			return strings.EqualFold(t.value, "none") || t.value == ""
		}
		g, ok := groups[*c.GroupID]
		return ok && strings.Contains(strings.ToLower(g.Name), strings.ToLower(t.value))
	case "prop":
		needle := strings.ToLower(t.value)
		for _, p := range c.CustomProperties {
			if strings.Contains(strings.ToLower(p.Name), needle) {
				return true
			}
		}
		return false
	case "":
		needle := strings.ToLower(t.value)
		return strings.Contains(strings.ToLower(c.Name), needle) ||
			strings.Contains(strings.ToLower(c.Host), needle) ||
			strings.Contains(strings.ToLower(c.Username), needle)
	default:
		// Unknown facet keys never match, rather than degrading to a
		// substring search over the raw term.
		return false
	}
}

// recordSearchLocked pushes query to the front of the search history ring,
// promoting an existing occurrence instead of duplicating it, and
// truncating to SearchHistorySize. Callers must hold cat.mu.
func (cat *Catalog) recordSearchLocked(query string) {
	query = strings.TrimSpace(query)
	if query == "" {
		return
	}
	for i, q := range cat.searchHistory {
		if q == query {
			cat.searchHistory = append(cat.searchHistory[:i], cat.searchHistory[i+1:]...)
			break
		}
	}
	cat.searchHistory = append([]string{query}, cat.searchHistory...)
	if len(cat.searchHistory) > cat.SearchHistorySize {
		cat.searchHistory = cat.searchHistory[:cat.SearchHistorySize]
	}
}

// SearchHistory returns a copy of the recorded search queries, most recent
// first.
func (cat *Catalog) SearchHistory() []string {
	cat.mu.RLock()
	defer cat.mu.RUnlock()
	out := make([]string, len(cat.searchHistory))
	copy(out, cat.searchHistory)
	return out
}
