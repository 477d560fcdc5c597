package formats_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rustconn/rustconn/lib/catalog"
	"github.com/rustconn/rustconn/lib/importexport"
	"github.com/rustconn/rustconn/lib/importexport/formats"
)

func TestRemminaImportParsesKeyedFields(t *testing.T) {
	data := []byte(`[remmina]
protocol=RDP
server=10.0.0.5:3389
username=admin
domain=CORP
resolution=1920x1080
`)
	result, err := formats.Remmina{}.Import(data)
	require.NoError(t, err)
	require.Len(t, result.Connections, 1)

	conn := result.Connections[0]
	require.Equal(t, catalog.ProtocolRDP, conn.Protocol)
	require.Equal(t, "10.0.0.5", conn.Host)
	require.Equal(t, 3389, conn.Port)
	require.Equal(t, "admin", conn.Username)
	require.Equal(t, "CORP", conn.Domain)
	require.Equal(t, 1920, conn.Config.RDP.Resolution.Width)
}

func TestRemminaExportImportRoundTrip(t *testing.T) {
	conn := &catalog.Connection{
		Name:     "web-rdp",
		Host:     "10.0.0.9",
		Port:     3389,
		Username: "svc",
		Protocol: catalog.ProtocolRDP,
		Config:   catalog.ProtocolConfig{RDP: &catalog.RdpConfig{}},
	}
	data, err := formats.Remmina{}.Export([]*catalog.Connection{conn}, nil, importexport.ExportOptions{})
	require.NoError(t, err)

	result, err := formats.Remmina{}.Import(data)
	require.NoError(t, err)
	require.Len(t, result.Connections, 1)
	require.Equal(t, "10.0.0.9", result.Connections[0].Host)
	require.Equal(t, 3389, result.Connections[0].Port)
}

func TestRemminaImportTagsConnectionWithGroup(t *testing.T) {
	data := []byte(`[remmina]
protocol=SSH
server=10.0.0.1:22
group=Production
`)
	result, err := formats.Remmina{}.Import(data)
	require.NoError(t, err)
	require.Len(t, result.Groups, 1)
	require.Equal(t, "Production", result.Groups[0].Name)
	require.Contains(t, result.Connections[0].Tags, "remmina:Production")
}
