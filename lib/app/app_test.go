package app_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rustconn/rustconn/lib/app"
	"github.com/rustconn/rustconn/lib/catalog"
	"github.com/rustconn/rustconn/lib/secret"
)

func newTestApp(t *testing.T) *app.App {
	t.Helper()
	a, err := app.New(app.Config{
		ConfigDir:      t.TempDir(),
		SecretBackends: []secret.Backend{secret.NewMemoryBackend()},
	})
	require.NoError(t, err)
	return a
}

func sshConnection(t *testing.T, a *app.App) *catalog.Connection {
	t.Helper()
	conn, err := a.Catalog.CreateConnection(&catalog.Connection{
		Name:     "localhost",
		Protocol: catalog.ProtocolSSH,
		Host:     "127.0.0.1",
		Port:     22,
		Config:   catalog.ProtocolConfig{SSH: &catalog.SshConfig{}},
	})
	require.NoError(t, err)
	return conn
}

func TestNewWiresCatalogChainAndSessions(t *testing.T) {
	a := newTestApp(t)
	require.NotNil(t, a.Catalog)
	require.NotNil(t, a.Chain)
	require.NotNil(t, a.Sessions)
	require.NotNil(t, a.Store)
}

func TestLaunchUnsupportedProtocolErrors(t *testing.T) {
	a := newTestApp(t)
	conn, err := a.Catalog.CreateConnection(&catalog.Connection{
		Name:     "box",
		Protocol: catalog.ProtocolSPICE,
		Host:     "127.0.0.1",
		Port:     5900,
		Config:   catalog.ProtocolConfig{SPICE: &catalog.SpiceConfig{}},
	})
	require.NoError(t, err)

	resolve := func(ctx context.Context) (*catalog.Credentials, error) {
		return catalog.NewCredentials("user", "pw", ""), nil
	}
	_, err = a.Launch(context.Background(), conn, resolve)
	require.Error(t, err)
}

func TestLaunchRDPWithoutTransportFactoryErrors(t *testing.T) {
	a := newTestApp(t)
	conn, err := a.Catalog.CreateConnection(&catalog.Connection{
		Name:     "win-box",
		Protocol: catalog.ProtocolRDP,
		Host:     "127.0.0.1",
		Port:     3389,
		Config:   catalog.ProtocolConfig{RDP: &catalog.RdpConfig{}},
	})
	require.NoError(t, err)

	resolve := func(ctx context.Context) (*catalog.Credentials, error) {
		return catalog.NewCredentials("user", "pw", ""), nil
	}
	_, err = a.Launch(context.Background(), conn, resolve)
	require.Error(t, err)
}

func TestSavePersistsCatalogToConfigDir(t *testing.T) {
	a := newTestApp(t)
	sshConnection(t, a)
	require.NoError(t, a.Save())

	restored, err := app.New(app.Config{ConfigDir: a.ConfigDir})
	require.NoError(t, err)
	conns := restored.Catalog.ListConnections()
	require.Len(t, conns, 1)
	require.Equal(t, "localhost", conns[0].Name)
}

func TestShutdownDisconnectsSessionsAndSaves(t *testing.T) {
	a := newTestApp(t)
	sshConnection(t, a)
	a.Shutdown()

	restored, err := app.New(app.Config{ConfigDir: a.ConfigDir})
	require.NoError(t, err)
	require.Len(t, restored.Catalog.ListConnections(), 1)
}
