package formats_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rustconn/rustconn/lib/catalog"
	"github.com/rustconn/rustconn/lib/importexport"
	"github.com/rustconn/rustconn/lib/importexport/formats"
)

func TestAnsibleINIImportParsesInlineVars(t *testing.T) {
	data := []byte(`[web]
web1.example.com ansible_host=10.0.0.1 ansible_port=2222 ansible_user=deploy
web2.example.com

[web:vars]
ansible_python_interpreter=/usr/bin/python3
`)
	result, err := formats.AnsibleINI{}.Import(data)
	require.NoError(t, err)
	require.Len(t, result.Connections, 2)
	require.Len(t, result.Groups, 1)

	first := result.Connections[0]
	require.Equal(t, "10.0.0.1", first.Host)
	require.Equal(t, 2222, first.Port)
	require.Equal(t, "deploy", first.Username)
	require.NotNil(t, first.GroupID)
}

func TestAnsibleINIImportSkipsHostRangesAndWildcards(t *testing.T) {
	data := []byte(`web[1:10].example.com
*.example.com
plain.example.com
`)
	result, err := formats.AnsibleINI{}.Import(data)
	require.NoError(t, err)
	require.Len(t, result.Connections, 1)
	require.Equal(t, "plain.example.com", result.Connections[0].Host)
	require.Len(t, result.Warnings, 2)
}

func TestAnsibleINIExportRoundTripsHostVars(t *testing.T) {
	conn := &catalog.Connection{
		Name:     "db1",
		Host:     "10.0.0.5",
		Port:     2200,
		Username: "root",
		Protocol: catalog.ProtocolSSH,
		Config:   catalog.ProtocolConfig{SSH: &catalog.SshConfig{}},
	}
	data, err := formats.AnsibleINI{}.Export([]*catalog.Connection{conn}, nil, importexport.ExportOptions{})
	require.NoError(t, err)
	require.Contains(t, string(data), "ansible_host=10.0.0.5")
	require.Contains(t, string(data), "ansible_port=2200")
	require.Contains(t, string(data), "ansible_user=root")
}

func TestAnsibleYAMLImportHandlesNestedChildren(t *testing.T) {
	data := []byte(`all:
  children:
    web:
      hosts:
        web1:
          ansible_host: 10.0.0.1
          ansible_port: 2222
`)
	result, err := formats.AnsibleYAML{}.Import(data)
	require.NoError(t, err)
	require.Len(t, result.Connections, 1)
	require.Equal(t, "10.0.0.1", result.Connections[0].Host)
	require.Equal(t, 2222, result.Connections[0].Port)
	require.Len(t, result.Groups, 1)
	require.Equal(t, "web", result.Groups[0].Name)
}

func TestAnsibleYAMLExportProducesValidYAML(t *testing.T) {
	conn := &catalog.Connection{
		Name:     "web1",
		Host:     "10.0.0.1",
		Port:     22,
		Protocol: catalog.ProtocolSSH,
		Config:   catalog.ProtocolConfig{SSH: &catalog.SshConfig{}},
	}
	data, err := formats.AnsibleYAML{}.Export([]*catalog.Connection{conn}, nil, importexport.ExportOptions{})
	require.NoError(t, err)
	require.True(t, strings.Contains(string(data), "all:"))
	require.True(t, strings.Contains(string(data), "web1:"))
}
