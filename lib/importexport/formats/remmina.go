package formats

import (
	"bytes"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/gravitational/trace"
	"gopkg.in/ini.v1"

	"github.com/rustconn/rustconn/lib/catalog"
	"github.com/rustconn/rustconn/lib/importexport"
)

// Remmina implements spec.md §4.C's Remmina format: normally one INI file
// per connection with keys protocol/server/username/domain/resolution
// under a "[remmina]" section. Remmina's own `remmina:` group tag is
// materialized as a Group on import. Since RustConn moves whole catalogs
// rather than single files, Export concatenates one INI document per
// connection, each preceded by a "# remmina-file: <name>.remmina" marker
// that Import uses to split a combined blob back into connections —
// each marked block remains byte-identical to a standalone Remmina file.
type Remmina struct{}

func (Remmina) FormatID() string    { return "remmina" }
func (Remmina) DisplayName() string { return "Remmina" }

func (Remmina) Supports(p catalog.Protocol) bool {
	switch p {
	case catalog.ProtocolSSH, catalog.ProtocolRDP, catalog.ProtocolVNC:
		return true
	default:
		return false
	}
}

const remminaFileMarker = "# remmina-file: "

func (Remmina) Import(data []byte) (*importexport.ImportResult, error) {
	result := &importexport.ImportResult{}
	groupIDByTag := map[string]catalog.ConnectionGroup{}

	for _, block := range splitRemminaBlocks(data) {
		if strings.TrimSpace(block) == "" {
			continue
		}
		cfg, err := ini.Load([]byte(block))
		if err != nil {
			result.Warnings = append(result.Warnings, "skipped malformed Remmina block: "+err.Error())
			continue
		}
		sec := cfg.Section("remmina")
		if len(sec.Keys()) == 0 {
			sec = cfg.Section("")
		}

		protocol := strings.ToUpper(sec.Key("protocol").String())
		server := sec.Key("server").String()
		if server == "" {
			result.Warnings = append(result.Warnings, "skipped Remmina entry with no server")
			continue
		}
		host, port := splitRemminaServer(server)

		var proto catalog.Protocol
		var cfgUnion catalog.ProtocolConfig
		switch protocol {
		case "SSH":
			proto = catalog.ProtocolSSH
			cfgUnion.SSH = &catalog.SshConfig{}
		case "RDP":
			proto = catalog.ProtocolRDP
			rdp := &catalog.RdpConfig{}
			if res := sec.Key("resolution").String(); res != "" {
				if w, h, ok := parseRemminaResolution(res); ok {
					rdp.Resolution = &catalog.Resolution{Width: w, Height: h}
				}
			}
			cfgUnion.RDP = rdp
		case "VNC":
			proto = catalog.ProtocolVNC
			cfgUnion.VNC = &catalog.VncConfig{}
		default:
			result.Warnings = append(result.Warnings, "skipped Remmina entry with unsupported protocol "+protocol)
			continue
		}

		name := sec.Key("name").String()
		if name == "" {
			name = server
		}

		conn := newConnection(name, host, port, proto, cfgUnion)
		conn.Username = sec.Key("username").String()
		conn.Domain = sec.Key("domain").String()

		if group := sec.Key("group").String(); group != "" {
			g, ok := groupIDByTag[group]
			if !ok {
				g = *newGroup(group, nil)
				groupIDByTag[group] = g
				result.Groups = append(result.Groups, &g)
			}
			id := g.ID
			conn.GroupID = &id
			conn.Tags = append(conn.Tags, "remmina:"+group)
		}

		result.Connections = append(result.Connections, conn)
	}

	return result, nil
}

func splitRemminaBlocks(data []byte) []string {
	text := string(data)
	if !strings.Contains(text, remminaFileMarker) {
		return []string{text}
	}
	parts := strings.Split(text, remminaFileMarker)
	var blocks []string
	for i, p := range parts {
		if i == 0 {
			continue
		}
		if idx := strings.IndexByte(p, '\n'); idx >= 0 {
			blocks = append(blocks, p[idx+1:])
		}
	}
	return blocks
}

func splitRemminaServer(server string) (string, int) {
	if idx := strings.LastIndexByte(server, ':'); idx > 0 {
		if p, err := strconv.Atoi(server[idx+1:]); err == nil {
			return server[:idx], p
		}
	}
	return server, 0
}

func parseRemminaResolution(res string) (int, int, bool) {
	parts := strings.SplitN(res, "x", 2)
	if len(parts) != 2 {
		return 0, 0, false
	}
	w, err1 := strconv.Atoi(parts[0])
	h, err2 := strconv.Atoi(parts[1])
	if err1 != nil || err2 != nil {
		return 0, 0, false
	}
	return w, h, true
}

func (Remmina) Export(conns []*catalog.Connection, groups []*catalog.ConnectionGroup, _ importexport.ExportOptions) ([]byte, error) {
	byGroup := map[uuid.UUID]string{}
	for _, g := range groups {
		byGroup[g.ID] = g.Name
	}

	var buf bytes.Buffer
	for _, c := range conns {
		cfg := ini.Empty()
		sec, err := cfg.NewSection("remmina")
		if err != nil {
			return nil, trace.Wrap(err, "creating Remmina section for %q", c.Name)
		}

		switch c.Protocol {
		case catalog.ProtocolSSH:
			sec.Key("protocol").SetValue("SSH")
		case catalog.ProtocolRDP:
			sec.Key("protocol").SetValue("RDP")
			if c.Config.RDP != nil && c.Config.RDP.Resolution != nil {
				r := c.Config.RDP.Resolution
				sec.Key("resolution").SetValue(strconv.Itoa(r.Width) + "x" + strconv.Itoa(r.Height))
			}
		case catalog.ProtocolVNC:
			sec.Key("protocol").SetValue("VNC")
		default:
			continue
		}

		sec.Key("name").SetValue(c.Name)
		server := c.Host
		if c.Port != 0 {
			server = c.Host + ":" + strconv.Itoa(c.Port)
		}
		sec.Key("server").SetValue(server)
		if c.Username != "" {
			sec.Key("username").SetValue(c.Username)
		}
		if c.Domain != "" {
			sec.Key("domain").SetValue(c.Domain)
		}
		if c.GroupID != nil {
			if name, ok := byGroup[*c.GroupID]; ok {
				sec.Key("group").SetValue(name)
			}
		}

		buf.WriteString(remminaFileMarker + c.Name + ".remmina\n")
		if _, err := cfg.WriteTo(&buf); err != nil {
			return nil, trace.Wrap(err, "writing Remmina entry %q", c.Name)
		}
		buf.WriteByte('\n')
	}

	return buf.Bytes(), nil
}
