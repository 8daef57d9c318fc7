package wskeys

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gl-zkPass/zkpass-core/internal/hostkeys"
	"github.com/gl-zkPass/zkpass-core/internal/keys"
)

func TestBuildHostKeyPairsResponse_Native(t *testing.T) {
	tokens := &KeyTokens{
		Signing: keyTokenBody{PrivateKey: "enc-signing", PublicKey: keys.PublicKey{X: "sx", Y: "sy"}},
		ECDH:    keyTokenBody{PrivateKey: "enc-ecdh", PublicKey: keys.PublicKey{X: "ex", Y: "ey"}},
	}

	resp, err := BuildHostKeyPairsResponse(context.Background(), tokens, Config{
		KeyService: hostkeys.KeyServiceNative,
		SigningKid: "signing-1",
		ECDHKid:    "ecdh-1",
	})
	require.NoError(t, err)

	assert.Equal(t, hostkeys.KeyServiceNative, resp.KeyService)
	assert.Equal(t, "enc-signing", resp.Signing.PrivateKeyCiphertext)
	assert.Equal(t, "signing-1", resp.Signing.Kid)
	assert.Nil(t, resp.DecryptionRequest)
}

func TestConfigFromEnv_DefaultsToNative(t *testing.T) {
	t.Setenv("KEY_SERVICE", "")
	cfg := ConfigFromEnv()
	assert.Equal(t, hostkeys.KeyServiceNative, cfg.KeyService)
	assert.Equal(t, "host-signing-key", cfg.SigningKid)
}

func TestConfigFromEnv_KMSSelected(t *testing.T) {
	t.Setenv("KEY_SERVICE", "kms")
	cfg := ConfigFromEnv()
	assert.Equal(t, hostkeys.KeyServiceKMS, cfg.KeyService)
}
