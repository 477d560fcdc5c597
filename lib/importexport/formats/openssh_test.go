package formats_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rustconn/rustconn/lib/catalog"
	"github.com/rustconn/rustconn/lib/importexport"
	"github.com/rustconn/rustconn/lib/importexport/formats"
)

func TestOpenSSHImportParsesHostBlocks(t *testing.T) {
	data := []byte(`Host bastion
    HostName bastion.example.com
    Port 2222
    User jump
    IdentityFile ~/.ssh/bastion_key

Host internal
    HostName 10.0.0.5
    User deploy
    ProxyJump bastion
    ControlMaster auto
`)
	result, err := formats.OpenSSHConfig{}.Import(data)
	require.NoError(t, err)
	require.Len(t, result.Connections, 2)

	require.Equal(t, "bastion.example.com", result.Connections[0].Host)
	require.Equal(t, 2222, result.Connections[0].Port)
	require.Equal(t, "jump", result.Connections[0].Username)

	require.Equal(t, "bastion", result.Connections[1].Config.SSH.ProxyJump)
	require.True(t, result.Connections[1].Config.SSH.UseControlMaster)
}

func TestOpenSSHImportSkipsWildcardHosts(t *testing.T) {
	data := []byte("Host *\n    ForwardAgent yes\n\nHost real\n    HostName 10.0.0.1\n")
	result, err := formats.OpenSSHConfig{}.Import(data)
	require.NoError(t, err)
	require.Len(t, result.Connections, 1)
	require.Len(t, result.Warnings, 1)
}

func TestOpenSSHExportWritesHostBlock(t *testing.T) {
	conn := &catalog.Connection{
		Name:     "db",
		Host:     "10.0.0.9",
		Port:     22,
		Username: "root",
		Protocol: catalog.ProtocolSSH,
		Config:   catalog.ProtocolConfig{SSH: &catalog.SshConfig{KeyPath: "/home/u/.ssh/id_ed25519"}},
	}
	data, err := formats.OpenSSHConfig{}.Export([]*catalog.Connection{conn}, nil, importexport.ExportOptions{})
	require.NoError(t, err)
	out := string(data)
	require.Contains(t, out, "Host db")
	require.Contains(t, out, "HostName 10.0.0.9")
	require.Contains(t, out, "IdentityFile /home/u/.ssh/id_ed25519")
}
