// Package hostkeys holds H's process-wide private key material: the
// mutex-guarded HostKeyPairs cell, populated once at startup by exchanging
// the key-fetch handshake with WS over the util channel, and decrypted in
// place by whichever KeyService the handshake response selects.
package hostkeys

import (
	"sync"

	"github.com/gl-zkPass/zkpass-core/internal/keys"
)

// KeyPair is one of H's two managed key pairs (signing, ECDH). PrivateKey
// holds ciphertext until Decrypted is true, at which point it holds
// cleartext key material ready to use.
type KeyPair struct {
	PrivateKey string
	Decrypted  bool
	PublicKey  keys.PublicKey
	Kid        string
}

// IsPlaceholder reports whether this pair has not yet been decrypted —
// either because the startup handshake never ran (PrivateKey is empty) or
// because it ran but KeyService.Decrypt has not yet replaced the
// ciphertext.
func (kp KeyPair) IsPlaceholder() bool {
	return kp.PrivateKey == "" || !kp.Decrypted
}

// HostKeyPairs is H's process-global, mutex-guarded key cell: the Signing
// pair (used to JWS-sign ZkPassProof) and the ECDH pair (used to decrypt
// incoming JWE envelopes). Written once at startup, read on every request.
type HostKeyPairs struct {
	mu      sync.RWMutex
	signing KeyPair
	ecdh    KeyPair
}

// NewHostKeyPairs constructs an empty cell; Set populates it after the
// startup handshake completes.
func NewHostKeyPairs() *HostKeyPairs {
	return &HostKeyPairs{}
}

// Set replaces both pairs, e.g. immediately after the handshake response
// arrives (still holding ciphertext) and again after KeyService.Decrypt
// replaces the ciphertext with cleartext.
func (h *HostKeyPairs) Set(signing, ecdh KeyPair) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.signing = signing
	h.ecdh = ecdh
}

// Signing returns the current signing key pair.
func (h *HostKeyPairs) Signing() KeyPair {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.signing
}

// ECDH returns the current ECDH key pair.
func (h *HostKeyPairs) ECDH() KeyPair {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.ecdh
}

// NeedsHandshake reports whether either pair is still a placeholder,
// meaning the startup handshake (or its decryption step) has not yet
// completed and must be re-run before a generate_proof request proceeds.
func (h *HostKeyPairs) NeedsHandshake() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.signing.IsPlaceholder() || h.ecdh.IsPlaceholder()
}
