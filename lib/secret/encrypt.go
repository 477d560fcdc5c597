package secret

import (
	"crypto/rand"
	"encoding/base64"
	"io"

	"github.com/gravitational/trace"
	"golang.org/x/crypto/nacl/secretbox"
)

// KeySize is the secretbox key length in bytes.
const KeySize = 32

// Encrypt seals plaintext under key (a process-installation secret — see
// spec.md §4.B) and returns a base64 string safe to store alongside a
// Connection's other fields. A fresh random nonce is prepended to the
// ciphertext on every call.
func Encrypt(key [KeySize]byte, plaintext string) (string, error) {
	var nonce [24]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return "", trace.Wrap(err, "generating nonce")
	}

	sealed := secretbox.Seal(nonce[:], []byte(plaintext), &nonce, &key)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Decrypt opens a value produced by Encrypt. Per spec.md §4.B, loss of the
// installation secret invalidates stored fields gracefully: a bad key or
// corrupt ciphertext returns ok=false, never an error.
func Decrypt(key [KeySize]byte, encoded string) (plaintext string, ok bool) {
	sealed, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", false
	}
	if len(sealed) < 24 {
		return "", false
	}

	var nonce [24]byte
	copy(nonce[:], sealed[:24])

	opened, ok := secretbox.Open(nil, sealed[24:], &nonce, &key)
	if !ok {
		return "", false
	}
	return string(opened), true
}
