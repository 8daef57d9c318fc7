package hostkeys

import (
	"context"
	"crypto/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNativeKeyService_SealDecryptRoundTrip(t *testing.T) {
	svc, err := NewNativeKeyService("test-secret")
	require.NoError(t, err)

	nonce := make([]byte, 12)
	_, err = rand.Read(nonce)
	require.NoError(t, err)

	ciphertext, err := svc.Seal("super-secret-key-material", nonce)
	require.NoError(t, err)

	cleartext, err := svc.Decrypt(context.Background(), ciphertext)
	require.NoError(t, err)
	assert.Equal(t, "super-secret-key-material", cleartext)
}

func TestNativeKeyService_WrongSecretFailsToDecrypt(t *testing.T) {
	svc, err := NewNativeKeyService("correct-secret")
	require.NoError(t, err)
	nonce := make([]byte, 12)

	ciphertext, err := svc.Seal("secret-data", nonce)
	require.NoError(t, err)

	wrongSvc, err := NewNativeKeyService("wrong-secret")
	require.NoError(t, err)

	_, err = wrongSvc.Decrypt(context.Background(), ciphertext)
	assert.Error(t, err)
}

func TestNativeKeyService_TruncatedCiphertextErrors(t *testing.T) {
	svc, err := NewNativeKeyService("test-secret")
	require.NoError(t, err)

	_, err = svc.Decrypt(context.Background(), "dG9vc2hvcnQ=")
	assert.Error(t, err)
}
