package hostkeys

import "github.com/gl-zkPass/zkpass-core/internal/keys"

// KeyServiceKind selects how H decrypts the ciphertext private keys it
// receives from WS.
type KeyServiceKind string

const (
	// KeyServiceNative decrypts locally via AES-256-GCM under a
	// SHA-256-derived key from an env-sourced secret.
	KeyServiceNative KeyServiceKind = "native"

	// KeyServiceKMS decrypts by shelling out to kmstool_enclave_cli, fed
	// the transient AWS credentials carried in DecryptionRequest.
	KeyServiceKMS KeyServiceKind = "kms"
)

// DecryptionRequest carries the transient AWS STS credentials WS resolved
// (via AssumeRole) so H's kmstool_enclave_cli subprocess can unwrap the
// ciphertext without H ever holding long-lived AWS credentials itself.
type DecryptionRequest struct {
	AccessKeyID     string `json:"access_key_id"`
	SecretAccessKey string `json:"secret_access_key"`
	SessionToken    string `json:"session_token"`
	Region          string `json:"region"`
	KeyID           string `json:"key_id"`
}

// WireKeyPair is the JSON shape of one key pair as sent over the util
// channel: still-encrypted private key material plus its public half.
type WireKeyPair struct {
	PrivateKeyCiphertext string         `json:"private_key"`
	PublicKey            keys.PublicKey `json:"public_key"`
	Kid                  string         `json:"kid"`
}

// HostKeyPairsWire is the full response to request_fetching_private_keys_by_host:
// both ciphertext key pairs, which decrypt path to use, and (for KMS mode)
// the transient credentials to use with it.
type HostKeyPairsWire struct {
	Signing           WireKeyPair        `json:"signing"`
	ECDH              WireKeyPair        `json:"ecdh"`
	KeyService        KeyServiceKind     `json:"key_service"`
	DecryptionRequest *DecryptionRequest `json:"decryption_request,omitempty"`
}

// ToPlaceholderPairs converts the wire response into KeyPairs still holding
// ciphertext in PrivateKey, ready for a KeyService to decrypt in place.
func (w HostKeyPairsWire) ToPlaceholderPairs() (signing, ecdh KeyPair) {
	signing = KeyPair{PrivateKey: w.Signing.PrivateKeyCiphertext, PublicKey: w.Signing.PublicKey, Kid: w.Signing.Kid}
	ecdh = KeyPair{PrivateKey: w.ECDH.PrivateKeyCiphertext, PublicKey: w.ECDH.PublicKey, Kid: w.ECDH.Kid}
	return
}
