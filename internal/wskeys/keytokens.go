// Package wskeys is WS's half of the key lifecycle: it owns the key-token
// file on disk, verifies the two JWS key tokens it contains at load time,
// and answers H's request_fetching_private_keys_by_host over the util
// channel with the still-encrypted key material plus how to decrypt it.
package wskeys

import (
	"crypto/ecdsa"
	"encoding/json"
	"fmt"
	"os"

	"github.com/gl-zkPass/zkpass-core/internal/hostkeys"
	"github.com/gl-zkPass/zkpass-core/internal/jose"
	"github.com/gl-zkPass/zkpass-core/internal/keys"
	"github.com/gl-zkPass/zkpass-core/internal/zkerr"
)

// keyTokenBody is the claim carried inside each signed key token: a
// still-encrypted private key plus its public half.
type keyTokenBody struct {
	PrivateKey string         `json:"private_key"`
	PublicKey  keys.PublicKey `json:"public_key"`
}

// keyTokenFile is the on-disk JSON format at PRIVATE_KEY_FILE_PATH: two JWS
// compact-serialization strings, one per managed key pair.
type keyTokenFile struct {
	SigningKeyToken string `json:"signing_key_token"`
	ECDHKeyToken    string `json:"ecdh_key_token"`
}

// KeyTokens holds the two verified key-token bodies loaded from disk, ready
// to be packaged into a HostKeyPairsWire response.
type KeyTokens struct {
	Signing keyTokenBody
	ECDH    keyTokenBody
}

// LoadKeyTokens reads path, verifies both JWS key tokens under
// verifyingKey, and returns their decoded bodies. verifyingKey is the
// service's long-lived key-management verifying key (its public part is
// what H's operator provisioned out of band, not something fetched from
// the service's own runtime JWKS — a token that authenticates its own
// signer would be circular).
func LoadKeyTokens(path string, verifyingKey *ecdsa.PublicKey) (*KeyTokens, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, zkerr.Wrap(zkerr.KindIO, fmt.Sprintf("read key token file %s", path), err)
	}

	var file keyTokenFile
	if err := json.Unmarshal(raw, &file); err != nil {
		return nil, zkerr.Wrap(zkerr.KindDeserialize, "decode key token file", err)
	}

	var signing, ecdh keyTokenBody
	if err := jose.VerifyJWS(file.SigningKeyToken, verifyingKey, &signing); err != nil {
		return nil, fmt.Errorf("verify signing key token: %w", err)
	}
	if err := jose.VerifyJWS(file.ECDHKeyToken, verifyingKey, &ecdh); err != nil {
		return nil, fmt.Errorf("verify ecdh key token: %w", err)
	}

	return &KeyTokens{Signing: signing, ECDH: ecdh}, nil
}
