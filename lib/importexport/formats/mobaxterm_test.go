package formats_test

import (
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/charmap"

	"github.com/rustconn/rustconn/lib/catalog"
	"github.com/rustconn/rustconn/lib/importexport"
	"github.com/rustconn/rustconn/lib/importexport/formats"
)

func decodeWin1252(t *testing.T, data []byte) string {
	t.Helper()
	out, err := charmap.Windows1252.NewDecoder().Bytes(data)
	require.NoError(t, err)
	return string(out)
}

func TestMobaXtermExportWritesBookmarksSection(t *testing.T) {
	conn := &catalog.Connection{
		Name:     "myserver",
		Host:     "192.168.1.100",
		Port:     22,
		Protocol: catalog.ProtocolSSH,
		Config:   catalog.ProtocolConfig{SSH: &catalog.SshConfig{}},
	}
	data, err := formats.MobaXterm{}.Export([]*catalog.Connection{conn}, nil, importexport.ExportOptions{})
	require.NoError(t, err)

	text := decodeWin1252(t, data)
	require.Contains(t, text, "[Bookmarks]")
	require.Contains(t, text, "#109#")
	require.Contains(t, text, "192.168.1.100")
	require.Contains(t, text, "\r\n")
}

func TestMobaXtermExportGroupsNestedFolder(t *testing.T) {
	parent := &catalog.ConnectionGroup{ID: newTestUUID(), Name: "Site"}
	child := &catalog.ConnectionGroup{ID: newTestUUID(), Name: "Rack1", ParentID: &parent.ID}
	conn := &catalog.Connection{
		Name:     "rdp1",
		Host:     "10.0.0.5",
		Port:     3389,
		Protocol: catalog.ProtocolRDP,
		GroupID:  &child.ID,
		Config: catalog.ProtocolConfig{RDP: &catalog.RdpConfig{
			Resolution: &catalog.Resolution{Width: 1920, Height: 1080},
			ColorDepth: 32,
		}},
	}

	data, err := formats.MobaXterm{}.Export(
		[]*catalog.Connection{conn},
		[]*catalog.ConnectionGroup{parent, child},
		importexport.ExportOptions{},
	)
	require.NoError(t, err)
	text := decodeWin1252(t, data)
	require.Contains(t, text, "[Bookmarks_1]")
	require.Contains(t, text, `Site\Rack1`)
	require.Contains(t, text, "#91#")
	require.Contains(t, text, "%11%")
	require.Contains(t, text, "%4%")
}

func TestMobaXtermImportUnsupported(t *testing.T) {
	_, err := formats.MobaXterm{}.Import([]byte("[Bookmarks]"))
	require.Error(t, err)
}
