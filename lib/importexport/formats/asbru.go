package formats

import (
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/gravitational/trace"
	"gopkg.in/yaml.v3"

	"github.com/rustconn/rustconn/lib/catalog"
	"github.com/rustconn/rustconn/lib/importexport"
)

// AsbruCM implements spec.md §4.C's Asbru-CM format: a single flat
// UUID-keyed YAML map where both groups and connections appear as
// siblings, distinguished by the "_is_group" flag and linked to their
// parent via a "parent" key. Grounded on rustconn-core's asbru importer
// in original_source/.
type AsbruCM struct{}

func (AsbruCM) FormatID() string    { return "asbru" }
func (AsbruCM) DisplayName() string { return "Ásbrú Connection Manager" }

func (AsbruCM) Supports(p catalog.Protocol) bool { return p == catalog.ProtocolSSH }

type asbruNode struct {
	IsGroup     bool              `yaml:"_is_group"`
	Parent      string            `yaml:"parent"`
	Name        string            `yaml:"name"`
	Title       string            `yaml:"title"`
	IP          string            `yaml:"ip"`
	Host        string            `yaml:"host"`
	Port        string            `yaml:"port"`
	User        string            `yaml:"user"`
	Type        string            `yaml:"type"`
	Method      string            `yaml:"method"`
	AuthType    string            `yaml:"auth_type"`
	PublicKey   string            `yaml:"public key"`
	Options     string            `yaml:"options"`
	Description string            `yaml:"description"`
}

var asbruSkipKeys = map[string]bool{
	"defaults":     true,
	"environments": true,
}

func (AsbruCM) Import(data []byte) (*importexport.ImportResult, error) {
	var root map[string]asbruNode
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, trace.Wrap(err, "parsing Asbru-CM YAML")
	}

	result := &importexport.ImportResult{}
	groupIDs := map[string]uuid.UUID{}

	// First pass: materialize groups so parent lookups in pass two resolve
	// regardless of map iteration order.
	for key, node := range root {
		if strings.HasPrefix(key, "__") || asbruSkipKeys[key] {
			continue
		}
		if node.IsGroup {
			groupIDs[key] = uuid.New()
		}
	}

	for key, node := range root {
		if !node.IsGroup {
			continue
		}
		id := groupIDs[key]
		var parentID *uuid.UUID
		if node.Parent != "" && node.Parent != "__PAC__ROOT__" {
			if pid, ok := groupIDs[node.Parent]; ok {
				parentID = &pid
			}
		}
		name := node.Name
		if name == "" {
			name = node.Title
		}
		result.Groups = append(result.Groups, &catalog.ConnectionGroup{ID: id, Name: name, ParentID: parentID})
	}

	for key, node := range root {
		if strings.HasPrefix(key, "__") || asbruSkipKeys[key] || node.IsGroup {
			continue
		}
		if node.Method != "" && !strings.EqualFold(node.Method, "ssh") {
			result.Warnings = append(result.Warnings, "skipped non-SSH entry "+key+" (method "+node.Method+")")
			continue
		}

		host := node.IP
		if host == "" {
			host = node.Host
		}
		if host == "" {
			result.Warnings = append(result.Warnings, "skipped entry "+key+": no host/ip")
			continue
		}

		port := 22
		if node.Port != "" {
			if p, err := strconv.Atoi(node.Port); err == nil {
				port = p
			}
		}

		name := node.Name
		if name == "" {
			name = node.Title
		}
		if name == "" {
			name = key
		}

		ssh := &catalog.SshConfig{}
		if node.AuthType == "publickey" || node.PublicKey != "" {
			ssh.AuthMethod = catalog.SSHAuthPublicKey
			ssh.KeyPath = node.PublicKey
		}
		if node.Options != "" {
			ssh.CustomOptions = parseAsbruOptions(node.Options)
		}

		conn := newConnection(name, host, port, catalog.ProtocolSSH, catalog.ProtocolConfig{SSH: ssh})
		conn.Username = node.User
		if node.Parent != "" && node.Parent != "__PAC__ROOT__" {
			if pid, ok := groupIDs[node.Parent]; ok {
				conn.GroupID = &pid
			}
		}
		result.Connections = append(result.Connections, conn)
	}

	return result, nil
}

// parseAsbruOptions splits Ásbrú's free-form SSH command-line flag string
// (e.g. "-o StrictHostKeyChecking=no -C") into a custom-options map. Bare
// flags with no value are recorded against an empty value.
func parseAsbruOptions(options string) map[string]string {
	out := map[string]string{}
	fields := strings.Fields(options)
	for i := 0; i < len(fields); i++ {
		f := fields[i]
		if f == "-o" && i+1 < len(fields) {
			i++
			if idx := strings.IndexByte(fields[i], '='); idx > 0 {
				out[fields[i][:idx]] = fields[i][idx+1:]
			} else {
				out[fields[i]] = ""
			}
			continue
		}
		out[strings.TrimLeft(f, "-")] = ""
	}
	return out
}

func (AsbruCM) Export(conns []*catalog.Connection, groups []*catalog.ConnectionGroup, _ importexport.ExportOptions) ([]byte, error) {
	out := map[string]asbruNode{}
	groupKeys := map[uuid.UUID]string{}

	for i, g := range groups {
		key := "group_" + strconv.Itoa(i)
		groupKeys[g.ID] = key
		parent := "__PAC__ROOT__"
		if g.ParentID != nil {
			if pk, ok := groupKeys[*g.ParentID]; ok {
				parent = pk
			}
		}
		out[key] = asbruNode{IsGroup: true, Name: g.Name, Title: g.Name, Parent: parent}
	}

	for i, c := range conns {
		if c.Protocol != catalog.ProtocolSSH {
			continue
		}
		key := "conn_" + strconv.Itoa(i)
		parent := "__PAC__ROOT__"
		if c.GroupID != nil {
			if pk, ok := groupKeys[*c.GroupID]; ok {
				parent = pk
			}
		}
		node := asbruNode{
			Name:        c.Name,
			Title:       c.Name,
			IP:          c.Host,
			Port:        strconv.Itoa(c.Port),
			User:        c.Username,
			Method:      "SSH",
			Parent:      parent,
		}
		if c.Config.SSH != nil {
			node.PublicKey = c.Config.SSH.KeyPath
			if c.Config.SSH.AuthMethod == catalog.SSHAuthPublicKey {
				node.AuthType = "publickey"
			}
		}
		out[key] = node
	}

	return yaml.Marshal(out)
}
