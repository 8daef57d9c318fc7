package jose

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func genKey(t *testing.T) *ecdsa.PrivateKey {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	return key
}

type samplePayload struct {
	Greeting string `json:"greeting"`
}

func TestJWS_SignVerifyRoundTrip(t *testing.T) {
	key := genKey(t)

	token, err := SignJWS(samplePayload{Greeting: "hello"}, key, "https://ws.example/.well-known/jwks.json", "kid-1")
	require.NoError(t, err)

	var got samplePayload
	require.NoError(t, VerifyJWS(token, &key.PublicKey, &got))
	assert.Equal(t, "hello", got.Greeting)
}

func TestJWS_VerifyFailsWithWrongKey(t *testing.T) {
	key := genKey(t)
	other := genKey(t)

	token, err := SignJWS(samplePayload{Greeting: "hello"}, key, "", "")
	require.NoError(t, err)

	var got samplePayload
	err = VerifyJWS(token, &other.PublicKey, &got)
	assert.Error(t, err)
}

func TestJWS_PeekHeader(t *testing.T) {
	key := genKey(t)
	token, err := SignJWS(samplePayload{Greeting: "hi"}, key, "https://issuer.example/jwks.json", "kid-42")
	require.NoError(t, err)

	jku, kid, err := PeekHeader(token)
	require.NoError(t, err)
	assert.Equal(t, "https://issuer.example/jwks.json", jku)
	assert.Equal(t, "kid-42", kid)
}

func TestJWS_PeekDataClaim_DoesNotRequireVerification(t *testing.T) {
	key := genKey(t)
	token, err := SignJWS(samplePayload{Greeting: "peeked"}, key, "", "")
	require.NoError(t, err)

	var got samplePayload
	require.NoError(t, PeekDataClaim(token, &got))
	assert.Equal(t, "peeked", got.Greeting)
}

func TestJWE_EncryptDecryptRoundTrip(t *testing.T) {
	key := genKey(t)

	token, err := EncryptJWE(samplePayload{Greeting: "secret"}, &key.PublicKey)
	require.NoError(t, err)

	var got samplePayload
	require.NoError(t, DecryptJWEInto(token, key, &got))
	assert.Equal(t, "secret", got.Greeting)
}

func TestJWE_DecryptFailsWithWrongKey(t *testing.T) {
	key := genKey(t)
	other := genKey(t)

	token, err := EncryptJWE(samplePayload{Greeting: "secret"}, &key.PublicKey)
	require.NoError(t, err)

	var got samplePayload
	err = DecryptJWEInto(token, other, &got)
	assert.Error(t, err)
}

func TestNestedJWEOfJWS_RoundTrip(t *testing.T) {
	signingKey := genKey(t)
	encryptingKey := genKey(t)

	inner, err := SignJWS(samplePayload{Greeting: "nested"}, signingKey, "", "kid-signer")
	require.NoError(t, err)

	outer, err := EncryptJWE(inner, &encryptingKey.PublicKey)
	require.NoError(t, err)

	innerBack, err := DecryptJWEString(outer, encryptingKey)
	require.NoError(t, err)
	assert.Equal(t, inner, innerBack)

	var got samplePayload
	require.NoError(t, VerifyJWS(innerBack, &signingKey.PublicKey, &got))
	assert.Equal(t, "nested", got.Greeting)
}
