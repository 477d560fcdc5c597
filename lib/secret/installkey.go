package secret

import (
	"crypto/rand"
	"io"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
	"github.com/gravitational/trace"
)

// InstallationKeyPath returns the platform-specific location of the
// process-installation secret used to derive the encrypt-at-rest key.
func InstallationKeyPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", trace.Wrap(err, "resolving user config directory")
	}
	return filepath.Join(dir, "rustconn", "install.key"), nil
}

// LoadOrCreateInstallationKey reads the installation secret, generating and
// persisting a fresh one (0600, flock-guarded against concurrent first-run
// races) if none exists yet. Loss of this file is handled gracefully by
// Decrypt, never fatally.
func LoadOrCreateInstallationKey() ([KeySize]byte, error) {
	var key [KeySize]byte

	path, err := InstallationKeyPath()
	if err != nil {
		return key, trace.Wrap(err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return key, trace.Wrap(err, "creating config directory")
	}

	lock := flock.New(path + ".lock")
	if err := lock.Lock(); err != nil {
		return key, trace.Wrap(err, "locking installation key")
	}
	defer lock.Unlock()

	raw, err := os.ReadFile(path)
	if err == nil && len(raw) == KeySize {
		copy(key[:], raw)
		return key, nil
	}

	if _, err := io.ReadFull(rand.Reader, key[:]); err != nil {
		return key, trace.Wrap(err, "generating installation key")
	}
	if err := os.WriteFile(path, key[:], 0o600); err != nil {
		return key, trace.Wrap(err, "persisting installation key")
	}
	return key, nil
}
