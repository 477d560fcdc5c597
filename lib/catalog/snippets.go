package catalog

import "regexp"

var snippetVarPattern = regexp.MustCompile(`\$\{([a-zA-Z_][a-zA-Z0-9_]*)\}`)

// reconcileSnippetVariables derives the set of ${name} placeholders
// referenced by command and returns a Variables list covering exactly that
// set, reusing the description/default of any variable already present in
// existing under the same name and dropping entries for names no longer
// referenced.
func reconcileSnippetVariables(command string, existing []SnippetVariable) []SnippetVariable {
	byName := make(map[string]SnippetVariable, len(existing))
	for _, v := range existing {
		byName[v.Name] = v
	}

	seen := make(map[string]bool)
	var out []SnippetVariable
	for _, m := range snippetVarPattern.FindAllStringSubmatch(command, -1) {
		name := m[1]
		if seen[name] {
			continue
		}
		seen[name] = true
		if v, ok := byName[name]; ok {
			out = append(out, v)
		} else {
			out = append(out, SnippetVariable{Name: name})
		}
	}
	return out
}

// ExpandSnippet substitutes ${name} placeholders in a Snippet's Command
// with values, falling back to each variable's DefaultValue when values
// omits an entry.
func ExpandSnippet(s *Snippet, values map[string]string) string {
	return snippetVarPattern.ReplaceAllStringFunc(s.Command, func(token string) string {
		name := token[2 : len(token)-1]
		if v, ok := values[name]; ok {
			return v
		}
		for _, sv := range s.Variables {
			if sv.Name == name {
				return sv.DefaultValue
			}
		}
		return ""
	})
}
