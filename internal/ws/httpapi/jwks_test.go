package httpapi

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gl-zkPass/zkpass-core/internal/keys"
)

func writeJWKSFile(t *testing.T, jwks keys.JWKS) string {
	t.Helper()
	data, err := json.Marshal(jwks)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "jwks.json")
	require.NoError(t, os.WriteFile(path, data, 0o600))
	return path
}

func TestJWKSPublisher_ServeAndFind(t *testing.T) {
	priv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	jwk := keys.JwkFromECDSA(&priv.PublicKey, "service-signing-kid")

	path := writeJWKSFile(t, keys.JWKS{Keys: []keys.Jwk{jwk}})

	pub, err := NewJWKSPublisher(path)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/.well-known/jwks.json", nil)
	rec := httptest.NewRecorder()
	pub.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var got keys.JWKS
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got.Keys, 1)

	_, ok := pub.Find("service-signing-kid")
	assert.True(t, ok)

	_, ok = pub.Find("no-such-kid")
	assert.False(t, ok)
}

func TestNewJWKSPublisher_MissingFile(t *testing.T) {
	_, err := NewJWKSPublisher(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}
