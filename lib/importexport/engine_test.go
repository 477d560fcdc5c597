package importexport_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rustconn/rustconn/lib/catalog"
	"github.com/rustconn/rustconn/lib/importexport"
	"github.com/rustconn/rustconn/lib/importexport/formats"
)

func newEngine() *importexport.Engine {
	return importexport.NewEngine(
		formats.AnsibleINI{},
		formats.AnsibleYAML{},
		formats.OpenSSHConfig{},
		formats.Remmina{},
		formats.AsbruCM{},
		formats.RoyalTS{},
		formats.MobaXterm{},
		formats.Native{},
	)
}

func TestEngineAdapterLookupMissingFormat(t *testing.T) {
	e := newEngine()
	_, err := e.Adapter("does-not-exist")
	require.Error(t, err)
}

func TestEngineAllFormatsRegistered(t *testing.T) {
	e := newEngine()
	require.Len(t, e.Adapters(), 8)
}

func TestImportSynthesizesSourceGroupAndUniquifiesNames(t *testing.T) {
	e := newEngine()
	data := []byte("[web]\nweb1 ansible_host=10.0.0.1\n")

	seen := map[string]bool{}
	uniquify := func(name string) string {
		if !seen[name] {
			seen[name] = true
			return name
		}
		return name + " (1)"
	}

	result, err := importexport.Import(e, "ansible_ini", data, "Ansible", uniquify)
	require.NoError(t, err)
	require.Len(t, result.Groups, 2) // synthesized parent + "web"
	require.Equal(t, "Ansible Import", result.Groups[0].Name)

	// the "web" group should be reparented under the synthesized parent
	require.NotNil(t, result.Groups[1].ParentID)
	require.Equal(t, result.Groups[0].ID, *result.Groups[1].ParentID)
}

func TestExportWarnsOnUnsupportedProtocol(t *testing.T) {
	e := newEngine()
	conns := []*catalog.Connection{
		{Name: "vnc1", Host: "10.0.0.1", Port: 5900, Protocol: catalog.ProtocolVNC, Config: catalog.ProtocolConfig{VNC: &catalog.VncConfig{}}},
	}

	_, warnings, err := importexport.Export(e, "ansible_ini", conns, nil, importexport.ExportOptions{})
	require.NoError(t, err)
	require.Len(t, warnings, 1)
}
