package config_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rustconn/rustconn/lib/catalog"
	"github.com/rustconn/rustconn/lib/config"
)

func newTestStore(t *testing.T) *config.Store {
	t.Helper()
	store, err := config.NewStore(t.TempDir())
	require.NoError(t, err)
	return store
}

func TestLoadSettingsDefaultsWhenFileMissing(t *testing.T) {
	store := newTestStore(t)
	settings, err := store.LoadSettings()
	require.NoError(t, err)
	require.Equal(t, 20, settings.SearchHistorySize)
}

func TestSaveAndLoadSettingsRoundTrips(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.SaveSettings(config.Settings{
		SearchHistorySize: 50,
		DefaultTerminal:   "alacritty",
	}))

	settings, err := store.LoadSettings()
	require.NoError(t, err)
	require.Equal(t, 50, settings.SearchHistorySize)
	require.Equal(t, "alacritty", settings.DefaultTerminal)
}

func TestSaveFromAndLoadIntoRoundTripsCatalog(t *testing.T) {
	dir := t.TempDir()
	store, err := config.NewStore(dir)
	require.NoError(t, err)

	cat, err := catalog.New(catalog.Config{})
	require.NoError(t, err)

	group, err := cat.CreateGroup(&catalog.ConnectionGroup{Name: "prod"})
	require.NoError(t, err)

	_, err = cat.CreateConnection(&catalog.Connection{
		Name:     "web-1",
		Protocol: catalog.ProtocolSSH,
		Host:     "web-1.example.com",
		Port:     22,
		GroupID:  &group.ID,
		Config:   catalog.ProtocolConfig{SSH: &catalog.SshConfig{}},
	})
	require.NoError(t, err)

	require.NoError(t, store.SaveFrom(cat))

	restored, err := catalog.New(catalog.Config{})
	require.NoError(t, err)
	require.NoError(t, store.LoadInto(restored))

	conns := restored.ListConnections()
	require.Len(t, conns, 1)
	require.Equal(t, "web-1", conns[0].Name)

	groups := restored.ListGroups()
	require.Len(t, groups, 1)
	require.Equal(t, "prod", groups[0].Name)
}

func TestDirPrefersXDGConfigHome(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/tmp/xdg-test-home")
	dir, err := config.Dir()
	require.NoError(t, err)
	require.Equal(t, filepath.Join("/tmp/xdg-test-home", "rustconn"), dir)
}
