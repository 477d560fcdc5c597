package secret

import (
	"bytes"
	"context"
	"os/exec"
	"strings"
	"time"

	"github.com/gravitational/trace"
	"github.com/sirupsen/logrus"

	"github.com/rustconn/rustconn/lib/catalog"
)

// KeePassCLIBackend holds a path to a KDBX file and unlock inputs, and
// shells out to the keepassxc-cli tool for every operation rather than
// parsing the file format itself.
type KeePassCLIBackend struct {
	log        *logrus.Entry
	Binary     string // defaults to "keepassxc-cli"
	DBPath     string
	Password   string
	KeyFile    string
	LookupPath func(key string) string // maps a connection key to an entry path/title
}

// NewKeePassCLIBackend builds a KeePassCLIBackend over dbPath, unlocked
// with password and/or keyFile.
func NewKeePassCLIBackend(dbPath, password, keyFile string) *KeePassCLIBackend {
	return &KeePassCLIBackend{
		log:      logrus.NewEntry(logrus.StandardLogger()).WithField(trace.Component, "secret:keepass_cli"),
		Binary:   "keepassxc-cli",
		DBPath:   dbPath,
		Password: password,
		KeyFile:  keyFile,
		LookupPath: func(key string) string {
			return key
		},
	}
}

func (k *KeePassCLIBackend) ID() string          { return "keepass_cli" }
func (k *KeePassCLIBackend) DisplayName() string { return "KeePass database (CLI)" }

func (k *KeePassCLIBackend) IsAvailable(ctx context.Context) bool {
	if k.DBPath == "" {
		return false
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	cmd := exec.CommandContext(ctx, k.Binary, "--version")
	return cmd.Run() == nil
}

func (k *KeePassCLIBackend) baseArgs(sub string) []string {
	args := []string{sub, k.DBPath}
	if k.KeyFile != "" {
		args = append(args, "--key-file", k.KeyFile)
	}
	return args
}

func (k *KeePassCLIBackend) run(ctx context.Context, args []string, entry string) (string, error) {
	cmd := exec.CommandContext(ctx, k.Binary, append(args, entry)...)
	var stdin bytes.Buffer
	stdin.WriteString(k.Password + "\n")
	cmd.Stdin = &stdin

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return "", trace.Wrap(err, "keepassxc-cli: %s", strings.TrimSpace(stderr.String()))
	}
	return stdout.String(), nil
}

func (k *KeePassCLIBackend) Get(ctx context.Context, key string) (*catalog.Credentials, error) {
	entry := k.LookupPath(key)

	out, err := k.run(ctx, k.baseArgs("show"), entry)
	if err != nil {
		return nil, trace.NotFound("keepassxc-cli: no entry for %q: %v", key, err)
	}

	var username, password string
	for _, line := range strings.Split(out, "\n") {
		switch {
		case strings.HasPrefix(line, "UserName: "):
			username = strings.TrimPrefix(line, "UserName: ")
		case strings.HasPrefix(line, "Password: "):
			password = strings.TrimPrefix(line, "Password: ")
		}
	}
	return catalog.NewCredentials(username, password, ""), nil
}

func (k *KeePassCLIBackend) Set(ctx context.Context, key string, creds *catalog.Credentials) error {
	entry := k.LookupPath(key)

	_, probeErr := k.run(ctx, k.baseArgs("show"), entry)
	sub := "add"
	if probeErr == nil {
		sub = "edit"
	}

	args := k.baseArgs(sub)
	args = append(args, "--username", creds.Username, "--password-prompt")
	cmd := exec.CommandContext(ctx, k.Binary, append(args, entry)...)

	var stdin bytes.Buffer
	stdin.WriteString(k.Password + "\n")
	stdin.WriteString(creds.Password() + "\n")
	cmd.Stdin = &stdin

	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return trace.Wrap(err, "keepassxc-cli %s: %s", sub, strings.TrimSpace(stderr.String()))
	}
	return nil
}

func (k *KeePassCLIBackend) Delete(ctx context.Context, key string) error {
	entry := k.LookupPath(key)
	_, err := k.run(ctx, k.baseArgs("rm"), entry)
	if err != nil {
		return trace.Wrap(err, "keepassxc-cli rm")
	}
	return nil
}
