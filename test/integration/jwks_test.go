package integration

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gl-zkPass/zkpass-core/internal/apikeys"
	"github.com/gl-zkPass/zkpass-core/internal/clock"
	"github.com/gl-zkPass/zkpass-core/internal/keys"
	"github.com/gl-zkPass/zkpass-core/internal/pkcache"
	"github.com/gl-zkPass/zkpass-core/internal/ws/httpapi"
	"github.com/gl-zkPass/zkpass-core/internal/ws/mainsock"
)

// writeJWKSFixture writes a one-key JWKS file derived from a freshly
// generated P-256 key pair, returning its path and the key's kid.
func writeJWKSFixture(t *testing.T) (path, kid string) {
	t.Helper()
	priv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	kid = "test-key-1"
	jwks := keys.JWKS{Keys: []keys.Jwk{{
		Kty: "EC",
		Crv: "P-256",
		X:   base64.RawURLEncoding.EncodeToString(priv.PublicKey.X.Bytes()),
		Y:   base64.RawURLEncoding.EncodeToString(priv.PublicKey.Y.Bytes()),
		Kid: kid,
	}}}

	raw, err := json.Marshal(jwks)
	require.NoError(t, err)

	path = filepath.Join(t.TempDir(), "jwks.json")
	require.NoError(t, os.WriteFile(path, raw, 0o600))
	return path, kid
}

// writeAPIKeyFixture writes a one-entry API key file and returns the
// key/secret pair.
func writeAPIKeyFixture(t *testing.T) (path, apiKey, secret string) {
	t.Helper()
	apiKey, secret = "test-api-key", "test-secret"

	raw, err := json.Marshal([]apikeys.Entry{{APIKey: apiKey, SecretAPIKey: secret}})
	require.NoError(t, err)

	path = filepath.Join(t.TempDir(), "api_keys.json")
	require.NoError(t, os.WriteFile(path, raw, 0o600))
	return path, apiKey, secret
}

// newTestRouter assembles a real Router over real (file-backed, in-process)
// dependencies, with the only unconnected piece being H's main socket —
// this test exercises the public endpoints that don't require it.
func newTestRouter(t *testing.T) (http.Handler, string) {
	t.Helper()

	jwksPath, kid := writeJWKSFixture(t)
	jwksPub, err := httpapi.NewJWKSPublisher(jwksPath)
	require.NoError(t, err)

	apiKeyPath, _, _ := writeAPIKeyFixture(t)
	store, err := apikeys.New(context.Background(), apikeys.Config{Source: apikeys.SourceFile, FilePath: apiKeyPath})
	require.NoError(t, err)

	hostECDH, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	hostECDHPub, err := keys.NewPublicKeyFromECDSA(&hostECDH.PublicKey)
	require.NoError(t, err)
	health, err := httpapi.NewHealthChecker(mainsock.New(nil), hostECDHPub, []string{"r0"})
	require.NoError(t, err)

	router := httpapi.NewRouter(httpapi.Config{
		Main:       mainsock.New(nil),
		APIKeys:    store,
		Cache:      pkcache.NewTimedCache(0, clock.NewSystemClock()),
		JWKS:       jwksPub,
		Health:     health,
		ServiceVer: "0.1.0",
	})
	return router, kid
}

// TestJWKSEndpoint exercises WS's published JWKS over its documented
// path, confirming the fixture key round-trips through the real router,
// JWKSPublisher, and JSON encoding end to end.
func TestJWKSEndpoint(t *testing.T) {
	router, kid := newTestRouter(t)
	srv := httptest.NewServer(router)
	defer srv.Close()

	for _, path := range []string{"/.well-known/jwks.json"} {
		t.Run(path, func(t *testing.T) {
			resp, err := http.Get(srv.URL + path)
			require.NoError(t, err)
			defer resp.Body.Close()

			require.Equal(t, http.StatusOK, resp.StatusCode)

			var jwks keys.JWKS
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&jwks))
			require.Len(t, jwks.Keys, 1)

			found, ok := jwks.FindKid(kid)
			require.True(t, ok)
			require.Equal(t, "EC", found.Kty)
			require.Equal(t, "P-256", found.Crv)

			_, err = found.PublicKey()
			require.NoError(t, err)
		})
	}
}

// TestProtectedEndpointsRequireAPIKey confirms the Basic-auth gate rejects
// requests to the protected surface without valid credentials, independent
// of whatever H-side behavior the request would otherwise trigger.
func TestProtectedEndpointsRequireAPIKey(t *testing.T) {
	router, _ := newTestRouter(t)
	srv := httptest.NewServer(router)
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/v1/proof", "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}
