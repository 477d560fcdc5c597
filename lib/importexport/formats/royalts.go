package formats

import (
	"github.com/beevik/etree"
	"github.com/google/uuid"
	"github.com/gravitational/trace"

	"github.com/rustconn/rustconn/lib/catalog"
	"github.com/rustconn/rustconn/lib/importexport"
)

// RoyalTS implements spec.md §4.C's Royal TS XML format: a
// <RoyalDocument> of <RoyalFolder> and <Royal{SSH,RDP,VNC}Connection>
// elements, linked by fresh Royal-side ids via <ParentID>. Export-only,
// grounded on rustconn-core's royalts exporter in original_source/: that
// exporter has no matching importer, so this format is write-only here
// too (Import reports it unsupported).
type RoyalTS struct{}

func (RoyalTS) FormatID() string    { return "royalts" }
func (RoyalTS) DisplayName() string { return "Royal TS" }

func (RoyalTS) Supports(p catalog.Protocol) bool {
	switch p {
	case catalog.ProtocolSSH, catalog.ProtocolRDP, catalog.ProtocolVNC:
		return true
	default:
		return false
	}
}

func (RoyalTS) Import(data []byte) (*importexport.ImportResult, error) {
	return nil, trace.BadParameter("royalts: import is not supported, Royal TS is export-only")
}

func (RoyalTS) Export(conns []*catalog.Connection, groups []*catalog.ConnectionGroup, _ importexport.ExportOptions) ([]byte, error) {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="utf-8"`)
	root := doc.CreateElement("RoyalDocument")

	groupRoyalID := map[uuid.UUID]string{}
	for _, g := range groups {
		groupRoyalID[g.ID] = uuid.New().String()
	}

	for _, g := range groups {
		folder := root.CreateElement("RoyalFolder")
		folder.CreateElement("ID").SetText(groupRoyalID[g.ID])
		folder.CreateElement("Name").SetText(g.Name)
		if g.ParentID != nil {
			if pid, ok := groupRoyalID[*g.ParentID]; ok {
				folder.CreateElement("ParentID").SetText(pid)
			}
		}
	}

	for _, c := range conns {
		switch c.Protocol {
		case catalog.ProtocolSSH:
			writeRoyalSSH(root, c, groupRoyalID)
		case catalog.ProtocolRDP:
			writeRoyalRDP(root, c, groupRoyalID)
		case catalog.ProtocolVNC:
			writeRoyalVNC(root, c, groupRoyalID)
		}
	}

	doc.Indent(2)
	return doc.WriteToBytes()
}

func writeRoyalParent(el *etree.Element, c *catalog.Connection, groupRoyalID map[uuid.UUID]string) {
	if c.GroupID != nil {
		if gid, ok := groupRoyalID[*c.GroupID]; ok {
			el.CreateElement("ParentID").SetText(gid)
		}
	}
}

func writeRoyalSSH(root *etree.Element, c *catalog.Connection, groupRoyalID map[uuid.UUID]string) {
	el := root.CreateElement("RoyalSSHConnection")
	el.CreateElement("ID").SetText(uuid.New().String())
	el.CreateElement("Name").SetText(c.Name)
	el.CreateElement("URI").SetText(c.Host)
	el.CreateElement("Port").SetText(itoa(c.Port))
	writeRoyalParent(el, c, groupRoyalID)
	if c.Username != "" {
		el.CreateElement("CredentialUsername").SetText(c.Username)
	}
	if c.Config.SSH != nil && c.Config.SSH.KeyPath != "" {
		el.CreateElement("PrivateKeyFile").SetText(c.Config.SSH.KeyPath)
	}
}

func writeRoyalRDP(root *etree.Element, c *catalog.Connection, groupRoyalID map[uuid.UUID]string) {
	el := root.CreateElement("RoyalRDPConnection")
	el.CreateElement("ID").SetText(uuid.New().String())
	el.CreateElement("Name").SetText(c.Name)
	el.CreateElement("URI").SetText(c.Host)
	el.CreateElement("Port").SetText(itoa(c.Port))
	writeRoyalParent(el, c, groupRoyalID)
	if c.Username != "" {
		el.CreateElement("CredentialUsername").SetText(c.Username)
	}
	if c.Domain != "" {
		el.CreateElement("CredentialDomain").SetText(c.Domain)
	}
	if c.Config.RDP != nil {
		if r := c.Config.RDP.Resolution; r != nil {
			el.CreateElement("DesktopWidth").SetText(itoa(r.Width))
			el.CreateElement("DesktopHeight").SetText(itoa(r.Height))
		}
		if gw := c.Config.RDP.Gateway; gw != nil {
			el.CreateElement("RDGatewayHost").SetText(gw.Hostname)
		}
	}
}

func writeRoyalVNC(root *etree.Element, c *catalog.Connection, groupRoyalID map[uuid.UUID]string) {
	el := root.CreateElement("RoyalVNCConnection")
	el.CreateElement("ID").SetText(uuid.New().String())
	el.CreateElement("Name").SetText(c.Name)
	el.CreateElement("URI").SetText(c.Host)
	el.CreateElement("VNCPort").SetText(itoa(c.Port))
	writeRoyalParent(el, c, groupRoyalID)
	if c.Config.VNC != nil && c.Config.VNC.ViewOnly {
		el.CreateElement("ViewOnly").SetText("true")
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
