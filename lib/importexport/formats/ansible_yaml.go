package formats

import (
	"github.com/google/uuid"
	"github.com/gravitational/trace"
	"gopkg.in/yaml.v3"

	"github.com/rustconn/rustconn/lib/catalog"
	"github.com/rustconn/rustconn/lib/importexport"
)

// AnsibleYAML implements spec.md §4.C's Ansible YAML inventory format:
// all.children.{group}.hosts.{name}.ansible_* or top-level groups.
type AnsibleYAML struct{}

func (AnsibleYAML) FormatID() string    { return "ansible_yaml" }
func (AnsibleYAML) DisplayName() string { return "Ansible Inventory (YAML)" }

func (AnsibleYAML) Supports(p catalog.Protocol) bool { return p == catalog.ProtocolSSH }

type ansibleYAMLGroup struct {
	Hosts    map[string]map[string]any `yaml:"hosts"`
	Children map[string]ansibleYAMLGroup `yaml:"children"`
}

func (AnsibleYAML) Import(data []byte) (*importexport.ImportResult, error) {
	var root map[string]ansibleYAMLGroup
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, trace.Wrap(err, "parsing Ansible YAML inventory")
	}

	result := &importexport.ImportResult{}

	if all, ok := root["all"]; ok {
		processAnsibleYAMLHosts(all.Hosts, nil, result)
		for name, child := range all.Children {
			processAnsibleYAMLGroup(name, child, nil, result)
		}
		for name, group := range root {
			if name == "all" {
				continue
			}
			processAnsibleYAMLGroup(name, group, nil, result)
		}
		return result, nil
	}

	for name, group := range root {
		processAnsibleYAMLGroup(name, group, nil, result)
	}
	return result, nil
}

func processAnsibleYAMLGroup(name string, group ansibleYAMLGroup, parentID *uuid.UUID, result *importexport.ImportResult) {
	g := newGroup(name, parentID)
	result.Groups = append(result.Groups, g)

	processAnsibleYAMLHosts(group.Hosts, &g.ID, result)
	for childName, child := range group.Children {
		processAnsibleYAMLGroup(childName, child, &g.ID, result)
	}
}

func processAnsibleYAMLHosts(hosts map[string]map[string]any, groupID *uuid.UUID, result *importexport.ImportResult) {
	for name, vars := range hosts {
		hostname := name
		port := 22
		var username, keyPath string

		if h, ok := vars["ansible_host"].(string); ok {
			hostname = h
		}
		if p, ok := vars["ansible_port"].(int); ok {
			port = p
		}
		if u, ok := vars["ansible_user"].(string); ok {
			username = u
		}
		if k, ok := vars["ansible_ssh_private_key_file"].(string); ok {
			keyPath = k
		}

		conn := newConnection(name, hostname, port, catalog.ProtocolSSH, catalog.ProtocolConfig{
			SSH: &catalog.SshConfig{KeyPath: keyPath},
		})
		conn.Username = username
		conn.GroupID = groupID
		result.Connections = append(result.Connections, conn)
	}
}

func (AnsibleYAML) Export(conns []*catalog.Connection, groups []*catalog.ConnectionGroup, _ importexport.ExportOptions) ([]byte, error) {
	byGroup := map[uuid.UUID]string{}
	for _, g := range groups {
		byGroup[g.ID] = g.Name
	}

	children := map[string]ansibleYAMLGroup{}
	rootHosts := map[string]map[string]any{}

	for _, c := range conns {
		if c.Protocol != catalog.ProtocolSSH {
			continue
		}
		vars := map[string]any{"ansible_host": c.Host}
		if c.Port != 22 {
			vars["ansible_port"] = c.Port
		}
		if c.Username != "" {
			vars["ansible_user"] = c.Username
		}
		if c.Config.SSH != nil && c.Config.SSH.KeyPath != "" {
			vars["ansible_ssh_private_key_file"] = c.Config.SSH.KeyPath
		}

		if c.GroupID != nil {
			if name, ok := byGroup[*c.GroupID]; ok {
				g := children[name]
				if g.Hosts == nil {
					g.Hosts = map[string]map[string]any{}
				}
				g.Hosts[c.Name] = vars
				children[name] = g
				continue
			}
		}
		rootHosts[c.Name] = vars
	}

	doc := map[string]any{
		"all": map[string]any{
			"hosts":    rootHosts,
			"children": children,
		},
	}
	return yaml.Marshal(doc)
}
