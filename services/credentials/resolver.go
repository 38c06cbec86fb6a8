package credentials

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// FailureReason describes why a per-user credential could not be used
type FailureReason string

const (
	ReasonNoKeyFound       FailureReason = "no_key_found"
	ReasonDecryptionFailed FailureReason = "decryption_failed"
	ReasonNullKeyReturned  FailureReason = "null_key_returned"
)

// BYOKError is the typed failure returned by strict-mode resolution
type BYOKError struct {
	Provider string
	Reason   FailureReason
}

// Error implements the error interface
func (e *BYOKError) Error() string {
	return fmt.Sprintf("byok credential resolution failed for %s: %s", e.Provider, e.Reason)
}

// KeyStore provides per-user encrypted credential lookup. Implementations
// own storage; the resolver never sees where blobs live.
type KeyStore interface {
	// Lookup returns the encrypted credential blob for a user and provider,
	// or found=false when the user has no stored key for that provider.
	Lookup(ctx context.Context, userID, provider string) (blob []byte, found bool, err error)
}

// Decrypter decrypts stored credential blobs
type Decrypter interface {
	Decrypt(blob []byte) (string, error)
}

// providerAliases maps surface names to the same underlying backend, so a key
// stored under either name resolves for both.
var providerAliases = map[string][]string{
	"gemini":    {"google"},
	"google":    {"gemini"},
	"claude":    {"anthropic"},
	"anthropic": {"claude"},
	"openai":    {"gpt"},
}

// Resolution is the outcome of a credential lookup
type Resolution struct {
	// Credential is the plaintext key to send to the backend
	Credential string

	// UsedBYOK reports whether the per-user key was used (vs the system key)
	UsedBYOK bool
}

// Resolver resolves the credential for a backend: the user's own key when one
// is stored and decryptable, otherwise the system-wide key.
type Resolver struct {
	store      KeyStore
	decrypter  Decrypter
	systemKeys map[string]string
	logger     *zap.Logger
}

// NewResolver creates a credential resolver. systemKeys maps backend id to
// the system-wide credential for that backend (may be empty for local
// backends, which need no key).
func NewResolver(store KeyStore, decrypter Decrypter, systemKeys map[string]string, logger *zap.Logger) *Resolver {
	if systemKeys == nil {
		systemKeys = make(map[string]string)
	}
	return &Resolver{
		store:      store,
		decrypter:  decrypter,
		systemKeys: systemKeys,
		logger:     logger,
	}
}

// Resolve returns the credential to use for a backend on behalf of a user.
//
// With an empty userID only the system key is consulted. Otherwise the user's
// stored key is looked up under the backend id and its provider aliases and
// decrypted. On any BYOK failure: strict mode returns a typed *BYOKError and
// the caller must not fall back to another provider; lenient mode logs the
// downgrade and silently uses the system key. Strict mode exists for contexts
// where billing a system credential would be a policy violation.
func (r *Resolver) Resolve(ctx context.Context, userID, backendID string, strict bool) (*Resolution, error) {
	if userID == "" || r.store == nil {
		return r.systemResolution(backendID), nil
	}

	blob, found, err := r.lookupWithAliases(ctx, userID, backendID)
	if err != nil || !found {
		return r.downgrade(backendID, ReasonNoKeyFound, strict)
	}

	plaintext, err := r.decrypter.Decrypt(blob)
	if err != nil {
		r.logger.Warn("user credential decryption failed",
			zap.String("backend", backendID),
			zap.String("reason", string(ReasonDecryptionFailed)))
		return r.downgrade(backendID, ReasonDecryptionFailed, strict)
	}
	if plaintext == "" {
		return r.downgrade(backendID, ReasonNullKeyReturned, strict)
	}

	return &Resolution{Credential: plaintext, UsedBYOK: true}, nil
}

// lookupWithAliases tries the backend id, then each known alias
func (r *Resolver) lookupWithAliases(ctx context.Context, userID, backendID string) ([]byte, bool, error) {
	blob, found, err := r.store.Lookup(ctx, userID, backendID)
	if err != nil || found {
		return blob, found, err
	}
	for _, alias := range providerAliases[backendID] {
		blob, found, err = r.store.Lookup(ctx, userID, alias)
		if err != nil || found {
			return blob, found, err
		}
	}
	return nil, false, nil
}

// downgrade applies the strict/lenient failure policy
func (r *Resolver) downgrade(backendID string, reason FailureReason, strict bool) (*Resolution, error) {
	if strict {
		return nil, &BYOKError{Provider: backendID, Reason: reason}
	}
	if reason != ReasonNoKeyFound {
		r.logger.Info("falling back to system credential",
			zap.String("backend", backendID),
			zap.String("reason", string(reason)))
	}
	return r.systemResolution(backendID), nil
}

// systemResolution returns the system-wide credential for a backend
func (r *Resolver) systemResolution(backendID string) *Resolution {
	return &Resolution{Credential: r.systemKeys[backendID], UsedBYOK: false}
}
