package formats_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rustconn/rustconn/lib/catalog"
	"github.com/rustconn/rustconn/lib/importexport"
	"github.com/rustconn/rustconn/lib/importexport/formats"
)

func TestNativeExportImportRoundTrip(t *testing.T) {
	group := &catalog.ConnectionGroup{ID: newTestUUID(), Name: "Prod"}
	conn := &catalog.Connection{
		ID:       newTestUUID(),
		Name:     "db1",
		Host:     "10.0.0.1",
		Port:     22,
		Username: "root",
		Protocol: catalog.ProtocolSSH,
		GroupID:  &group.ID,
		Tags:     []string{"infra"},
		Config:   catalog.ProtocolConfig{SSH: &catalog.SshConfig{KeyPath: "/k"}},
	}

	data, err := formats.Native{}.Export([]*catalog.Connection{conn}, []*catalog.ConnectionGroup{group}, importexport.ExportOptions{})
	require.NoError(t, err)

	result, err := formats.Native{}.Import(data)
	require.NoError(t, err)
	require.Len(t, result.Connections, 1)
	require.Len(t, result.Groups, 1)
	require.Equal(t, conn.ID, result.Connections[0].ID)
	require.Equal(t, "db1", result.Connections[0].Name)
	require.Equal(t, "/k", result.Connections[0].Config.SSH.KeyPath)
	require.Equal(t, []string{"infra"}, result.Connections[0].Tags)
}

func TestNativeImportRejectsNewerVersion(t *testing.T) {
	_, err := formats.Native{}.Import([]byte(`{"version": 999}`))
	require.Error(t, err)
}
