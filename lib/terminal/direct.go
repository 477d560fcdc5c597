package terminal

import (
	"context"
	"net"
	"os"
	"strconv"
	"time"

	"github.com/gravitational/trace"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/agent"

	"github.com/rustconn/rustconn/lib/catalog"
)

// directConnectTimeout bounds an in-process ssh.Dial, mirroring spec.md
// §5's "initial TCP connect timeout (configurable, default 30s)".
const directConnectTimeout = 30 * time.Second

// DialDirect dials conn's SSH endpoint in-process via
// golang.org/x/crypto/ssh instead of shelling out to the ssh binary.
// spec.md §4.I only specifies computed ssh argv for an external binary;
// this supplements it for callers that prefer not to fork a child
// process at all (e.g. a headless credential check, or a host that
// wants to drive an ssh.Session directly rather than a pty). BuildSSHArgv
// remains the default terminal-hosted path.
func DialDirect(ctx context.Context, conn *catalog.Connection, creds *catalog.Credentials) (*ssh.Client, error) {
	if conn.Protocol != catalog.ProtocolSSH {
		return nil, trace.BadParameter("connection %q is not an SSH connection", conn.Name)
	}

	authMethods, err := sshAuthMethods(conn, creds)
	if err != nil {
		return nil, trace.Wrap(err)
	}

	cfg := &ssh.ClientConfig{
		User:            conn.Username,
		Auth:            authMethods,
		HostKeyCallback: ssh.InsecureIgnoreHostKey(), //nolint:gosec // host verification is out of scope; see DESIGN.md
		Timeout:         directConnectTimeout,
	}

	addr := net.JoinHostPort(conn.Host, portOrDefault(conn.Port))
	dialer := net.Dialer{Timeout: directConnectTimeout}
	rawConn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, trace.ConnectionProblem(err, "failed dialing %v", addr)
	}

	c, chans, reqs, err := ssh.NewClientConn(rawConn, addr, cfg)
	if err != nil {
		rawConn.Close()
		return nil, trace.ConnectionProblem(err, "failed SSH handshake with %v", addr)
	}

	return ssh.NewClient(c, chans, reqs), nil
}

func portOrDefault(port int) string {
	if port == 0 {
		port = 22
	}
	return strconv.Itoa(port)
}

// sshAuthMethods builds the ssh.AuthMethod list for conn: an agent
// connection via SSH_AUTH_SOCK when cfg.AuthMethod is SSHAuthAgent,
// public-key auth from cfg.KeyPath, or password auth from creds.
func sshAuthMethods(conn *catalog.Connection, creds *catalog.Credentials) ([]ssh.AuthMethod, error) {
	cfg := conn.Config.SSH
	if cfg == nil {
		return nil, trace.BadParameter("connection %q has no SSH configuration", conn.Name)
	}

	switch cfg.AuthMethod {
	case catalog.SSHAuthAgent:
		sock := os.Getenv("SSH_AUTH_SOCK")
		if sock == "" {
			return nil, trace.BadParameter("SSH_AUTH_SOCK is not set; no agent to forward")
		}
		agentConn, err := net.Dial("unix", sock)
		if err != nil {
			return nil, trace.Wrap(err, "connecting to ssh-agent")
		}
		return []ssh.AuthMethod{ssh.PublicKeysCallback(agent.NewClient(agentConn).Signers)}, nil

	case catalog.SSHAuthPublicKey:
		if cfg.KeyPath == "" {
			return nil, trace.BadParameter("public key auth requires KeyPath")
		}
		keyBytes, err := os.ReadFile(cfg.KeyPath)
		if err != nil {
			return nil, trace.Wrap(err, "reading private key")
		}
		var signer ssh.Signer
		if creds != nil && creds.KeyPassphrase != "" {
			signer, err = ssh.ParsePrivateKeyWithPassphrase(keyBytes, []byte(creds.KeyPassphrase))
		} else {
			signer, err = ssh.ParsePrivateKey(keyBytes)
		}
		if err != nil {
			return nil, trace.Wrap(err, "parsing private key")
		}
		return []ssh.AuthMethod{ssh.PublicKeys(signer)}, nil

	case catalog.SSHAuthPassword:
		if creds == nil {
			return nil, trace.BadParameter("password auth requires credentials")
		}
		return []ssh.AuthMethod{ssh.Password(creds.Password())}, nil

	case catalog.SSHAuthKeyboardInteractive:
		if creds == nil {
			return nil, trace.BadParameter("keyboard-interactive auth requires credentials")
		}
		return []ssh.AuthMethod{ssh.KeyboardInteractiveChallenge(func(name, instruction string, questions []string, echos []bool) ([]string, error) {
			answers := make([]string, len(questions))
			for i := range answers {
				answers[i] = creds.Password()
			}
			return answers, nil
		})}, nil

	default:
		return nil, trace.BadParameter("unknown SSH auth method %q", cfg.AuthMethod)
	}
}
