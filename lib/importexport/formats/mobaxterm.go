package formats

import (
	"fmt"
	"sort"
	"strings"

	"github.com/gravitational/trace"
	"golang.org/x/text/encoding/charmap"

	"github.com/rustconn/rustconn/lib/catalog"
	"github.com/rustconn/rustconn/lib/importexport"
)

const (
	mobaIconSSH        = 109
	mobaIconRDP        = 91
	mobaIconVNC        = 128
	mobaIconFolder     = 41
	mobaIconRootFolder = 42

	mobaSessionSSH = 0
	mobaSessionRDP = 4
	mobaSessionVNC = 5
)

// MobaXterm implements spec.md §4.C's MobaXterm session file format:
// Windows-1252 INI with CRLF terminators, one [Bookmarks] section for the
// root and [Bookmarks_N] per nested folder sorted by path, with a
// per-session escaped `#icon#params#terminal_settings#0# #-1` line.
// Export-only: grounded on rustconn-core's mobaxterm exporter in
// original_source/, which likewise has no matching importer.
type MobaXterm struct{}

func (MobaXterm) FormatID() string    { return "mobaxterm" }
func (MobaXterm) DisplayName() string { return "MobaXterm" }

func (MobaXterm) Supports(p catalog.Protocol) bool {
	switch p {
	case catalog.ProtocolSSH, catalog.ProtocolRDP, catalog.ProtocolVNC:
		return true
	default:
		return false
	}
}

func (MobaXterm) Import(data []byte) (*importexport.ImportResult, error) {
	return nil, trace.BadParameter("mobaxterm: import is not supported, MobaXterm sessions are export-only")
}

var mobaEscapeReplacer = strings.NewReplacer(
	"%", "__PERCENT__",
	"#", "__DIEZE__",
	";", "__PTVIRG__",
	`"`, "__DBLQUO__",
	"|", "__PIPE__",
)

func mobaEscape(s string) string { return mobaEscapeReplacer.Replace(s) }

func mobaTerminalSettings() string {
	return "MobaFont%10%0%0%-1%15%236,236,236%30,30,30%180,180,192%0%-1%0%%xterm%-1%0%" +
		"_Std_Colors_0_%80%24%0%0%-1%<none>%%0%0%-1%-1"
}

func mobaResolutionID(w, h int) string {
	switch [2]int{w, h} {
	case [2]int{640, 480}:
		return "2"
	case [2]int{800, 600}:
		return "3"
	case [2]int{1024, 768}:
		return "4"
	case [2]int{1152, 864}:
		return "5"
	case [2]int{1280, 720}:
		return "6"
	case [2]int{1280, 968}:
		return "7"
	case [2]int{1280, 1024}:
		return "8"
	case [2]int{1400, 1050}:
		return "9"
	case [2]int{1600, 1200}:
		return "10"
	case [2]int{1920, 1080}:
		return "11"
	case [2]int{1920, 1200}:
		return "14"
	case [2]int{2560, 1440}:
		return "24"
	case [2]int{3840, 2160}:
		return "26"
	default:
		return "0"
	}
}

func mobaColorDepthID(d int) string {
	switch d {
	case 8:
		return "1"
	case 16:
		return "2"
	case 24:
		return "3"
	case 32:
		return "4"
	default:
		return "0"
	}
}

func mobaConnectionLine(c *catalog.Connection) (string, error) {
	switch c.Protocol {
	case catalog.ProtocolSSH:
		return mobaSSHLine(c), nil
	case catalog.ProtocolRDP:
		return mobaRDPLine(c), nil
	case catalog.ProtocolVNC:
		return mobaVNCLine(c), nil
	default:
		return "", trace.BadParameter("unsupported protocol %s", c.Protocol)
	}
}

func mobaSSHLine(c *catalog.Connection) string {
	params := make([]string, 35)
	params[0] = itoa(mobaSessionSSH)
	params[1] = mobaEscape(c.Host)
	params[2] = itoa(c.Port)
	params[3] = mobaEscape(c.Username)
	params[5] = "0"
	params[6] = "0"
	if c.Config.SSH != nil {
		if c.Config.SSH.StartupCommand != "" {
			params[7] = mobaEscape(c.Config.SSH.StartupCommand)
		}
		if c.Config.SSH.KeyPath != "" {
			params[14] = mobaEscape(c.Config.SSH.KeyPath)
		}
		if c.Config.SSH.AuthMethod == catalog.SSHAuthAgent {
			params[33] = "-1"
		} else {
			params[33] = "0"
		}
		if c.Config.SSH.AgentForwarding {
			params[34] = "-1"
		} else {
			params[34] = "0"
		}
	}
	return fmt.Sprintf("#%d#%s#%s#0# #-1", mobaIconSSH, strings.Join(params, "%"), mobaTerminalSettings())
}

func mobaRDPLine(c *catalog.Connection) string {
	params := make([]string, 32)
	params[0] = itoa(mobaSessionRDP)
	params[1] = mobaEscape(c.Host)
	params[2] = itoa(c.Port)
	params[3] = mobaEscape(c.Username)
	params[10] = "0"
	if c.Config.RDP != nil {
		rdp := c.Config.RDP
		if rdp.Resolution != nil {
			params[10] = mobaResolutionID(rdp.Resolution.Width, rdp.Resolution.Height)
		}
		if rdp.AudioRedirect {
			params[16] = "1"
		} else {
			params[16] = "0"
		}
		params[19] = "-1"
		params[28] = mobaColorDepthID(rdp.ColorDepth)
	}
	return fmt.Sprintf("#%d#%s#%s#0# #-1", mobaIconRDP, strings.Join(params, "%"), mobaTerminalSettings())
}

func mobaVNCLine(c *catalog.Connection) string {
	params := make([]string, 18)
	params[0] = itoa(mobaSessionVNC)
	params[1] = mobaEscape(c.Host)
	params[2] = itoa(c.Port)
	params[3] = "-1"
	params[4] = "0"
	if c.Config.VNC != nil && c.Config.VNC.ViewOnly {
		params[4] = "-1"
	}
	return fmt.Sprintf("#%d#%s#%s#0# #-1", mobaIconVNC, strings.Join(params, "%"), mobaTerminalSettings())
}

func (MobaXterm) Export(conns []*catalog.Connection, groups []*catalog.ConnectionGroup, _ importexport.ExportOptions) ([]byte, error) {
	paths := groupPaths(groups)

	byPath := map[string][]*catalog.Connection{}
	var root []*catalog.Connection
	for _, c := range conns {
		if c.GroupID != nil {
			if p, ok := paths[*c.GroupID]; ok && p != "" {
				byPath[p] = append(byPath[p], c)
				continue
			}
		}
		root = append(root, c)
	}

	var buf strings.Builder
	writeSection := func(conns []*catalog.Connection) int {
		written := 0
		for _, c := range conns {
			line, err := mobaConnectionLine(c)
			if err != nil {
				continue
			}
			fmt.Fprintf(&buf, "%s=%s\n", mobaEscape(c.Name), line)
			written++
		}
		return written
	}

	buf.WriteString("[Bookmarks]\n")
	buf.WriteString("SubRep=\n")
	fmt.Fprintf(&buf, "ImgNum=%d\n", mobaIconRootFolder)
	writeSection(root)

	sortedPaths := make([]string, 0, len(byPath))
	for p := range byPath {
		sortedPaths = append(sortedPaths, p)
	}
	sort.Strings(sortedPaths)

	for i, p := range sortedPaths {
		fmt.Fprintf(&buf, "[Bookmarks_%d]\n", i+1)
		fmt.Fprintf(&buf, "SubRep=%s\n", mobaEscape(p))
		fmt.Fprintf(&buf, "ImgNum=%d\n", mobaIconFolder)
		writeSection(byPath[p])
	}

	crlf := strings.ReplaceAll(buf.String(), "\n", "\r\n")

	encoded, err := charmap.Windows1252.NewEncoder().String(crlf)
	if err != nil {
		return nil, trace.Wrap(err, "encoding MobaXterm session file as Windows-1252")
	}
	return []byte(encoded), nil
}
