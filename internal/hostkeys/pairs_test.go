package hostkeys

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/gl-zkPass/zkpass-core/internal/keys"
)

func TestHostKeyPairs_NeedsHandshakeInitially(t *testing.T) {
	cell := NewHostKeyPairs()
	assert.True(t, cell.NeedsHandshake())
}

func TestHostKeyPairs_StillNeedsHandshakeUntilDecrypted(t *testing.T) {
	cell := NewHostKeyPairs()
	cell.Set(
		KeyPair{PrivateKey: "ciphertext", PublicKey: keys.PublicKey{X: "x1", Y: "y1"}},
		KeyPair{PrivateKey: "ciphertext", PublicKey: keys.PublicKey{X: "x2", Y: "y2"}},
	)
	assert.True(t, cell.NeedsHandshake(), "ciphertext without Decrypted=true is still a placeholder")
}

func TestHostKeyPairs_NoLongerNeedsHandshakeOnceDecrypted(t *testing.T) {
	cell := NewHostKeyPairs()
	cell.Set(
		KeyPair{PrivateKey: "cleartext-signing", Decrypted: true, PublicKey: keys.PublicKey{X: "x1", Y: "y1"}},
		KeyPair{PrivateKey: "cleartext-ecdh", Decrypted: true, PublicKey: keys.PublicKey{X: "x2", Y: "y2"}},
	)
	assert.False(t, cell.NeedsHandshake())
	assert.Equal(t, "cleartext-signing", cell.Signing().PrivateKey)
	assert.Equal(t, "cleartext-ecdh", cell.ECDH().PrivateKey)
}
