package credentials

import (
	"bytes"
	"context"
	"crypto/rand"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestDecrypter(t *testing.T) *AESGCMDecrypter {
	t.Helper()
	key := make([]byte, 32)
	_, err := rand.Read(key)
	require.NoError(t, err)
	dec, err := NewAESGCMDecrypter(key)
	require.NoError(t, err)
	return dec
}

func systemKeys() map[string]string {
	return map[string]string{
		"gemini": "system-gemini-key",
		"claude": "system-claude-key",
	}
}

func TestResolveWithoutUserUsesSystemKey(t *testing.T) {
	resolver := NewResolver(NewMemoryKeyStore(), newTestDecrypter(t), systemKeys(), zap.NewNop())

	res, err := resolver.Resolve(context.Background(), "", "gemini", false)
	require.NoError(t, err)
	assert.Equal(t, "system-gemini-key", res.Credential)
	assert.False(t, res.UsedBYOK)
}

func TestResolveUserKey(t *testing.T) {
	dec := newTestDecrypter(t)
	store := NewMemoryKeyStore()

	blob, err := dec.Encrypt("user-gemini-key")
	require.NoError(t, err)
	store.Put("user-1", "gemini", blob)

	resolver := NewResolver(store, dec, systemKeys(), zap.NewNop())

	res, err := resolver.Resolve(context.Background(), "user-1", "gemini", false)
	require.NoError(t, err)
	assert.Equal(t, "user-gemini-key", res.Credential)
	assert.True(t, res.UsedBYOK)
}

func TestResolveProviderAlias(t *testing.T) {
	dec := newTestDecrypter(t)
	store := NewMemoryKeyStore()

	// Key stored under the surface name "google" resolves for "gemini".
	blob, err := dec.Encrypt("user-google-key")
	require.NoError(t, err)
	store.Put("user-1", "google", blob)

	resolver := NewResolver(store, dec, systemKeys(), zap.NewNop())

	res, err := resolver.Resolve(context.Background(), "user-1", "gemini", true)
	require.NoError(t, err)
	assert.Equal(t, "user-google-key", res.Credential)
	assert.True(t, res.UsedBYOK)
}

func TestStrictModeFailures(t *testing.T) {
	dec := newTestDecrypter(t)

	corrupted := func(t *testing.T, store *MemoryKeyStore) {
		blob, err := dec.Encrypt("key")
		require.NoError(t, err)
		blob[len(blob)-1] ^= 0xff
		store.Put("user-1", "claude", blob)
	}
	empty := func(t *testing.T, store *MemoryKeyStore) {
		blob, err := dec.Encrypt("")
		require.NoError(t, err)
		store.Put("user-1", "claude", blob)
	}

	tests := []struct {
		name       string
		setup      func(*testing.T, *MemoryKeyStore)
		wantReason FailureReason
	}{
		{"no stored key", func(*testing.T, *MemoryKeyStore) {}, ReasonNoKeyFound},
		{"corrupted blob", corrupted, ReasonDecryptionFailed},
		{"empty plaintext", empty, ReasonNullKeyReturned},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := NewMemoryKeyStore()
			tt.setup(t, store)
			resolver := NewResolver(store, dec, systemKeys(), zap.NewNop())

			res, err := resolver.Resolve(context.Background(), "user-1", "claude", true)
			assert.Nil(t, res)

			var byokErr *BYOKError
			require.ErrorAs(t, err, &byokErr)
			assert.Equal(t, "claude", byokErr.Provider)
			assert.Equal(t, tt.wantReason, byokErr.Reason)
		})
	}
}

func TestLenientModeDowngradesToSystemKey(t *testing.T) {
	dec := newTestDecrypter(t)
	store := NewMemoryKeyStore()

	blob, err := dec.Encrypt("key")
	require.NoError(t, err)
	blob[0] ^= 0xff // corrupt the nonce
	store.Put("user-1", "claude", blob)

	resolver := NewResolver(store, dec, systemKeys(), zap.NewNop())

	res, err := resolver.Resolve(context.Background(), "user-1", "claude", false)
	require.NoError(t, err)
	assert.Equal(t, "system-claude-key", res.Credential)
	assert.False(t, res.UsedBYOK)
}

type failingStore struct{}

func (failingStore) Lookup(context.Context, string, string) ([]byte, bool, error) {
	return nil, false, errors.New("storage offline")
}

func TestStoreErrorTreatedAsNoKey(t *testing.T) {
	resolver := NewResolver(failingStore{}, newTestDecrypter(t), systemKeys(), zap.NewNop())

	res, err := resolver.Resolve(context.Background(), "user-1", "claude", false)
	require.NoError(t, err)
	assert.Equal(t, "system-claude-key", res.Credential)

	_, err = resolver.Resolve(context.Background(), "user-1", "claude", true)
	var byokErr *BYOKError
	require.ErrorAs(t, err, &byokErr)
	assert.Equal(t, ReasonNoKeyFound, byokErr.Reason)
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	dec := newTestDecrypter(t)

	blob, err := dec.Encrypt("sk-test-credential")
	require.NoError(t, err)
	assert.False(t, bytes.Contains(blob, []byte("sk-test-credential")))

	plaintext, err := dec.Decrypt(blob)
	require.NoError(t, err)
	assert.Equal(t, "sk-test-credential", plaintext)
}

func TestDecryptRejectsShortBlob(t *testing.T) {
	dec := newTestDecrypter(t)

	_, err := dec.Decrypt([]byte{0x01, 0x02})
	assert.Error(t, err)
}

func TestNewAESGCMDecrypterRejectsBadKeySize(t *testing.T) {
	_, err := NewAESGCMDecrypter(make([]byte, 16))
	assert.Error(t, err)
}
