package terminal_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rustconn/rustconn/lib/catalog"
	"github.com/rustconn/rustconn/lib/terminal"
)

func TestDialDirectRejectsNonSSHConnection(t *testing.T) {
	conn := sshConnection()
	conn.Protocol = catalog.ProtocolRDP
	_, err := terminal.DialDirect(context.Background(), conn, nil)
	require.Error(t, err)
}

func TestDialDirectFailsFastOnUnreachableHost(t *testing.T) {
	conn := sshConnection()
	conn.Config.SSH.AuthMethod = catalog.SSHAuthPassword
	conn.Host = "127.0.0.1"
	conn.Port = 1 // nothing listens here
	creds := catalog.NewCredentials("deploy", "hunter2", "")

	_, err := terminal.DialDirect(context.Background(), conn, creds)
	require.Error(t, err)
}

func TestDialDirectPasswordAuthRequiresCredentials(t *testing.T) {
	conn := sshConnection()
	conn.Config.SSH.AuthMethod = catalog.SSHAuthPassword
	_, err := terminal.DialDirect(context.Background(), conn, nil)
	require.Error(t, err)
}

func TestDialDirectPublicKeyAuthRequiresKeyPath(t *testing.T) {
	conn := sshConnection()
	conn.Config.SSH.AuthMethod = catalog.SSHAuthPublicKey
	_, err := terminal.DialDirect(context.Background(), conn, nil)
	require.Error(t, err)
}

func TestDialDirectAgentAuthRequiresSSHAuthSock(t *testing.T) {
	t.Setenv("SSH_AUTH_SOCK", "")
	conn := sshConnection()
	conn.Config.SSH.AuthMethod = catalog.SSHAuthAgent
	_, err := terminal.DialDirect(context.Background(), conn, nil)
	require.Error(t, err)
}
