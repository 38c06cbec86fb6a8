package credentials

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"sync"
)

// MemoryKeyStore is an in-memory KeyStore for tests and single-process
// deployments. Keys are held encrypted; plaintext never rests here.
type MemoryKeyStore struct {
	mu    sync.RWMutex
	blobs map[string][]byte
}

// NewMemoryKeyStore creates an empty in-memory key store
func NewMemoryKeyStore() *MemoryKeyStore {
	return &MemoryKeyStore{blobs: make(map[string][]byte)}
}

// Put stores an encrypted credential blob for a user and provider
func (s *MemoryKeyStore) Put(userID, provider string, blob []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.blobs[userID+":"+provider] = blob
}

// Lookup implements KeyStore
func (s *MemoryKeyStore) Lookup(_ context.Context, userID, provider string) ([]byte, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	blob, ok := s.blobs[userID+":"+provider]
	return blob, ok, nil
}

// Delete removes a stored credential
func (s *MemoryKeyStore) Delete(userID, provider string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.blobs, userID+":"+provider)
}

// AESGCMDecrypter decrypts blobs sealed with AES-256-GCM. The blob layout is
// nonce || ciphertext.
type AESGCMDecrypter struct {
	aead cipher.AEAD
}

// NewAESGCMDecrypter creates a decrypter from a 32-byte key
func NewAESGCMDecrypter(key []byte) (*AESGCMDecrypter, error) {
	if len(key) != 32 {
		return nil, fmt.Errorf("encryption key must be 32 bytes, got %d", len(key))
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	return &AESGCMDecrypter{aead: aead}, nil
}

// Decrypt implements Decrypter
func (d *AESGCMDecrypter) Decrypt(blob []byte) (string, error) {
	nonceSize := d.aead.NonceSize()
	if len(blob) < nonceSize {
		return "", errors.New("credential blob too short")
	}
	plaintext, err := d.aead.Open(nil, blob[:nonceSize], blob[nonceSize:], nil)
	if err != nil {
		return "", err
	}
	return string(plaintext), nil
}

// Encrypt seals a plaintext credential into the blob layout Decrypt expects.
// Provided for the key-storage path and tests.
func (d *AESGCMDecrypter) Encrypt(plaintext string) ([]byte, error) {
	nonce := make([]byte, d.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}
	return d.aead.Seal(nonce, nonce, []byte(plaintext), nil), nil
}
