package terminal_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/rustconn/rustconn/lib/catalog"
	"github.com/rustconn/rustconn/lib/terminal"
)

func TestOpenSessionLogDisabledReturnsNil(t *testing.T) {
	conn := sshConnection()
	conn.Log = nil
	w, err := terminal.OpenSessionLog(conn, uuid.New())
	require.NoError(t, err)
	require.Nil(t, w)
}

func TestOpenSessionLogWritesUnderConfiguredDir(t *testing.T) {
	dir := t.TempDir()
	conn := sshConnection()
	conn.Log = &catalog.LogConfig{Enabled: true, Dir: dir}
	sessionID := uuid.New()

	w, err := terminal.OpenSessionLog(conn, sessionID)
	require.NoError(t, err)
	require.NotNil(t, w)
	defer w.Close()

	_, err = w.Write([]byte("hello session\n"))
	require.NoError(t, err)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Contains(t, entries[0].Name(), conn.Name)
	require.Contains(t, entries[0].Name(), sessionID.String())

	data, err := os.ReadFile(filepath.Join(dir, entries[0].Name()))
	require.NoError(t, err)
	require.Equal(t, "hello session\n", string(data))
}
