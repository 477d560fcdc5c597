package formats

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/rustconn/rustconn/lib/catalog"
	"github.com/rustconn/rustconn/lib/importexport"
)

// AnsibleINI implements spec.md §4.C's Ansible INI format: [group] host
// lines with ansible_* inline variables, [group:vars], and [group:children]
// (accepted on import, never emitted on export since RustConn's group
// forest has no separate "vars"/"children" concept to round-trip).
type AnsibleINI struct{}

func (AnsibleINI) FormatID() string    { return "ansible_ini" }
func (AnsibleINI) DisplayName() string { return "Ansible Inventory (INI)" }

func (AnsibleINI) Supports(p catalog.Protocol) bool { return p == catalog.ProtocolSSH }

func (AnsibleINI) Import(data []byte) (*importexport.ImportResult, error) {
	result := &importexport.ImportResult{}
	groupIDs := map[string]uuid.UUID{}

	var currentGroup string
	inVarsSection := false

	lines := strings.Split(string(data), "\n")
	for lineNum, raw := range lines {
		line := strings.TrimSpace(raw)
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, ";") {
			continue
		}

		if strings.HasPrefix(line, "[") && strings.HasSuffix(line, "]") {
			section := line[1 : len(line)-1]
			switch {
			case strings.Contains(section, ":vars"):
				inVarsSection = true
				continue
			case strings.Contains(section, ":children"):
				inVarsSection = false
				currentGroup = ""
				continue
			default:
				inVarsSection = false
				if _, exists := groupIDs[section]; !exists {
					g := newGroup(section, nil)
					groupIDs[section] = g.ID
					result.Groups = append(result.Groups, g)
				}
				currentGroup = section
				continue
			}
		}

		if inVarsSection {
			continue
		}

		conn := parseAnsibleHostLine(line, lineNum+1, currentGroup, groupIDs, result)
		if conn != nil {
			result.Connections = append(result.Connections, conn)
		}
	}

	return result, nil
}

func parseAnsibleHostLine(line string, lineNum int, currentGroup string, groupIDs map[string]uuid.UUID, result *importexport.ImportResult) *catalog.Connection {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil
	}
	hostPattern := fields[0]

	if strings.Contains(hostPattern, "[") && strings.Contains(hostPattern, ":") {
		result.Warnings = append(result.Warnings, fmt.Sprintf("line %d: skipped host range %q", lineNum, hostPattern))
		return nil
	}

	vars := map[string]string{}
	for _, kv := range fields[1:] {
		if idx := strings.IndexByte(kv, '='); idx > 0 {
			vars[kv[:idx]] = kv[idx+1:]
		}
	}

	hostname := hostPattern
	if h, ok := vars["ansible_host"]; ok {
		hostname = h
	}
	if strings.ContainsAny(hostname, "*?") {
		result.Warnings = append(result.Warnings, fmt.Sprintf("line %d: skipped wildcard host %q", lineNum, hostPattern))
		return nil
	}

	port := 22
	if p, ok := vars["ansible_port"]; ok {
		if n, err := strconv.Atoi(p); err == nil {
			port = n
		}
	} else if p, ok := vars["ansible_ssh_port"]; ok {
		if n, err := strconv.Atoi(p); err == nil {
			port = n
		}
	}

	conn := newConnection(hostPattern, hostname, port, catalog.ProtocolSSH, catalog.ProtocolConfig{
		SSH: &catalog.SshConfig{KeyPath: vars["ansible_ssh_private_key_file"]},
	})
	if u, ok := vars["ansible_user"]; ok {
		conn.Username = u
	} else if u, ok := vars["ansible_ssh_user"]; ok {
		conn.Username = u
	}
	if currentGroup != "" {
		gid := groupIDs[currentGroup]
		conn.GroupID = &gid
	}
	return conn
}

func (AnsibleINI) Export(conns []*catalog.Connection, groups []*catalog.ConnectionGroup, _ importexport.ExportOptions) ([]byte, error) {
	byGroup := map[uuid.UUID]string{}
	for _, g := range groups {
		byGroup[g.ID] = g.Name
	}

	grouped := map[string][]*catalog.Connection{}
	var ungrouped []*catalog.Connection
	for _, c := range conns {
		if c.Protocol != catalog.ProtocolSSH {
			continue
		}
		if c.GroupID != nil {
			if name, ok := byGroup[*c.GroupID]; ok {
				grouped[name] = append(grouped[name], c)
				continue
			}
		}
		ungrouped = append(ungrouped, c)
	}

	var buf bytes.Buffer
	writeHosts := func(conns []*catalog.Connection) {
		for _, c := range conns {
			fmt.Fprintf(&buf, "%s ansible_host=%s", c.Name, c.Host)
			if c.Port != 22 {
				fmt.Fprintf(&buf, " ansible_port=%d", c.Port)
			}
			if c.Username != "" {
				fmt.Fprintf(&buf, " ansible_user=%s", c.Username)
			}
			if c.Config.SSH != nil && c.Config.SSH.KeyPath != "" {
				fmt.Fprintf(&buf, " ansible_ssh_private_key_file=%s", c.Config.SSH.KeyPath)
			}
			buf.WriteByte('\n')
		}
	}

	if len(ungrouped) > 0 {
		buf.WriteString("[ungrouped]\n")
		writeHosts(ungrouped)
		buf.WriteByte('\n')
	}
	for name, conns := range grouped {
		fmt.Fprintf(&buf, "[%s]\n", name)
		writeHosts(conns)
		buf.WriteByte('\n')
	}

	return buf.Bytes(), nil
}
