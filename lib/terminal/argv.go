// Package terminal implements spec.md §4.I: building the argv for a
// terminal-hosted session (SSH via the ssh binary, or a Zero-Trust
// provider's proxy command), wrapping it in the user's login shell, and
// rotating session-log capture. It supplies the *exec.Cmd that
// lib/session.NewTerminalWorker wraps — command construction and
// process/pty lifecycle are deliberately kept in separate packages.
package terminal

import (
	"fmt"
	"os"
	"os/exec"
	"sort"
	"strconv"
	"strings"

	"github.com/gravitational/trace"

	"github.com/rustconn/rustconn/lib/catalog"
)

// BuildSSHArgv composes the ssh argv for conn per spec.md §4.I: ssh, then
// (if port≠22) -p PORT, optional -i KEY, optional -J PROXY,
// -o ControlMaster=auto when requested, -A when agent forwarding is on,
// -o K=V for each custom option (sorted by key), then USER@HOST or HOST.
func BuildSSHArgv(conn *catalog.Connection) ([]string, error) {
	if conn.Protocol != catalog.ProtocolSSH {
		return nil, trace.BadParameter("connection %q is not an SSH connection", conn.Name)
	}
	cfg := conn.Config.SSH
	if cfg == nil {
		return nil, trace.BadParameter("connection %q has no SSH configuration", conn.Name)
	}

	argv := []string{"ssh"}

	if conn.Port != 0 && conn.Port != 22 {
		argv = append(argv, "-p", strconv.Itoa(conn.Port))
	}
	if cfg.KeyPath != "" {
		argv = append(argv, "-i", cfg.KeyPath)
	}
	if cfg.ProxyJump != "" {
		argv = append(argv, "-J", cfg.ProxyJump)
	}
	if cfg.UseControlMaster {
		argv = append(argv, "-o", "ControlMaster=auto")
	}
	if cfg.AgentForwarding {
		argv = append(argv, "-A")
	}
	for _, opt := range orderedOptions(cfg.CustomOptions) {
		argv = append(argv, "-o", fmt.Sprintf("%s=%s", opt.k, opt.v))
	}

	argv = append(argv, destination(conn.Username, conn.Host))
	return argv, nil
}

// orderedOptions returns opts as a deterministic slice of key-value pairs,
// sorted by key, so argv construction is stable across runs — custom
// options are a map, and map iteration order is not.
func orderedOptions(opts map[string]string) []struct{ k, v string } {
	keys := make([]string, 0, len(opts))
	for k := range opts {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]struct{ k, v string }, 0, len(keys))
	for _, k := range keys {
		out = append(out, struct{ k, v string }{k, opts[k]})
	}
	return out
}

func destination(username, host string) string {
	if username == "" {
		return host
	}
	return username + "@" + host
}

// BuildZeroTrustCommand expands conn's provider template over {host},
// {port}, {user} and returns the literal command line to run via the
// login shell, per spec.md §6's provider template table.
func BuildZeroTrustCommand(conn *catalog.Connection) (string, error) {
	if conn.Protocol != catalog.ProtocolZeroTrust {
		return "", trace.BadParameter("connection %q is not a Zero-Trust connection", conn.Name)
	}
	cfg := conn.Config.ZeroTrust
	if cfg == nil {
		return "", trace.BadParameter("connection %q has no Zero-Trust configuration", conn.Name)
	}

	tmpl := cfg.CommandTemplate
	if tmpl == "" {
		var err error
		tmpl, err = defaultTemplate(cfg.Provider)
		if err != nil {
			return "", trace.Wrap(err)
		}
	}

	port := strconv.Itoa(conn.Port)
	replacer := strings.NewReplacer(
		"{host}", conn.Host,
		"{port}", port,
		"{user}", conn.Username,
	)
	expanded := replacer.Replace(tmpl)

	for k, v := range cfg.Params {
		expanded = strings.ReplaceAll(expanded, "{"+k+"}", v)
	}

	return expanded, nil
}

// defaultTemplate returns the built-in command template for a provider
// variant, per spec.md §6's illustrative expansions, extended to cover
// every ZeroTrustProvider the catalog defines.
func defaultTemplate(p catalog.ZeroTrustProvider) (string, error) {
	switch p {
	case catalog.ProviderAwsSsm:
		return "aws ssm start-session --target {host}", nil
	case catalog.ProviderGcpIap:
		return "gcloud compute start-iap-tunnel {host} {port}", nil
	case catalog.ProviderAzureBastion:
		return "az network bastion ssh --name {host} --target-resource-id {host}", nil
	case catalog.ProviderAzureSsh:
		return "az ssh vm --ip {host}", nil
	case catalog.ProviderOciBastion:
		return "oci bastion session create-managed-ssh --bastion-id {host}", nil
	case catalog.ProviderCloudflareAccess:
		return "cloudflared access ssh --hostname {host}", nil
	case catalog.ProviderTeleport:
		return "tsh ssh {user}@{host}", nil
	case catalog.ProviderTailscaleSsh:
		return "tailscale ssh {user}@{host}", nil
	case catalog.ProviderBoundary:
		return "boundary connect ssh -target-id {host}", nil
	case catalog.ProviderGeneric:
		return "ssh {user}@{host} -p {port}", nil
	default:
		return "", trace.BadParameter("unknown zero-trust provider %q", p)
	}
}

// WrapLoginShell wraps command to run via the user's login shell so the
// child inherits the full PATH, per spec.md §4.I. Falls back to /bin/sh
// when $SHELL is unset.
func WrapLoginShell(command string) []string {
	shell := os.Getenv("SHELL")
	if shell == "" {
		shell = "/bin/sh"
	}
	return []string{shell, "-c", command}
}

// BuildCommand returns the argv to execute for conn: the computed ssh
// argv for ProtocolSSH, or the provider command wrapped in the login
// shell for ProtocolZeroTrust.
func BuildCommand(conn *catalog.Connection) ([]string, error) {
	switch conn.Protocol {
	case catalog.ProtocolSSH:
		return BuildSSHArgv(conn)
	case catalog.ProtocolZeroTrust:
		cmd, err := BuildZeroTrustCommand(conn)
		if err != nil {
			return nil, trace.Wrap(err)
		}
		return WrapLoginShell(cmd), nil
	default:
		return nil, trace.BadParameter("protocol %q has no terminal-hosted command", conn.Protocol)
	}
}

// NewCmd builds an *exec.Cmd for conn, ready to be passed to
// session.NewTerminalWorker.
func NewCmd(conn *catalog.Connection) (*exec.Cmd, error) {
	argv, err := BuildCommand(conn)
	if err != nil {
		return nil, trace.Wrap(err)
	}
	if len(argv) == 0 {
		return nil, trace.BadParameter("empty argv for connection %q", conn.Name)
	}
	return exec.Command(argv[0], argv[1:]...), nil
}
