package secret_test

import (
	"context"
	"crypto/rand"
	"io"
	"testing"

	"github.com/gravitational/trace"
	"github.com/stretchr/testify/require"

	"github.com/rustconn/rustconn/lib/catalog"
	"github.com/rustconn/rustconn/lib/secret"
)

// alwaysMissBackend never has anything, to exercise chain fallthrough.
type alwaysMissBackend struct{}

func (alwaysMissBackend) ID() string                              { return "always_miss" }
func (alwaysMissBackend) DisplayName() string                     { return "Always Miss" }
func (alwaysMissBackend) IsAvailable(context.Context) bool        { return true }
func (alwaysMissBackend) Set(context.Context, string, *catalog.Credentials) error { return nil }
func (alwaysMissBackend) Delete(context.Context, string) error    { return nil }
func (alwaysMissBackend) Get(context.Context, string) (*catalog.Credentials, error) {
	return nil, trace.NotFound("miss")
}

func TestChainLookupFallsThroughToLaterBackend(t *testing.T) {
	mem := secret.NewMemoryBackend()
	require.NoError(t, mem.Set(context.Background(), "db-1", catalog.NewCredentials("alice", "hunter2", "")))

	chain := secret.New(alwaysMissBackend{}, mem)

	creds, err := chain.Lookup(context.Background(), "db-1")
	require.NoError(t, err)
	require.Equal(t, "alice", creds.Username)
	require.Equal(t, "hunter2", creds.Password())
}

func TestChainLookupNotFoundWhenNoBackendHits(t *testing.T) {
	chain := secret.New(alwaysMissBackend{})
	_, err := chain.Lookup(context.Background(), "missing")
	require.Error(t, err)
}

func TestChainAnyAvailable(t *testing.T) {
	chain := secret.New(secret.NewMemoryBackend())
	require.True(t, chain.AnyAvailable(context.Background()))
}

func TestMemoryBackendDeleteWipesEntry(t *testing.T) {
	mem := secret.NewMemoryBackend()
	ctx := context.Background()
	require.NoError(t, mem.Set(ctx, "k", catalog.NewCredentials("u", "p", "")))
	require.NoError(t, mem.Delete(ctx, "k"))

	_, err := mem.Get(ctx, "k")
	require.Error(t, err)
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	var key [secret.KeySize]byte
	_, err := io.ReadFull(rand.Reader, key[:])
	require.NoError(t, err)

	ciphertext, err := secret.Encrypt(key, "s3cret")
	require.NoError(t, err)

	plaintext, ok := secret.Decrypt(key, ciphertext)
	require.True(t, ok)
	require.Equal(t, "s3cret", plaintext)
}

func TestDecryptWithWrongKeyFailsGracefully(t *testing.T) {
	var key, wrongKey [secret.KeySize]byte
	_, err := io.ReadFull(rand.Reader, key[:])
	require.NoError(t, err)
	_, err = io.ReadFull(rand.Reader, wrongKey[:])
	require.NoError(t, err)

	ciphertext, err := secret.Encrypt(key, "s3cret")
	require.NoError(t, err)

	_, ok := secret.Decrypt(wrongKey, ciphertext)
	require.False(t, ok)
}

func TestDecryptOfGarbageFailsGracefully(t *testing.T) {
	var key [secret.KeySize]byte
	_, ok := secret.Decrypt(key, "not-base64-ciphertext!!")
	require.False(t, ok)
}
