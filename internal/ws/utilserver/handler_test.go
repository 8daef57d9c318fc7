package utilserver

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gl-zkPass/zkpass-core/internal/clock"
	"github.com/gl-zkPass/zkpass-core/internal/hostkeys"
	"github.com/gl-zkPass/zkpass-core/internal/jose"
	"github.com/gl-zkPass/zkpass-core/internal/jwksclient"
	"github.com/gl-zkPass/zkpass-core/internal/keys"
	"github.com/gl-zkPass/zkpass-core/internal/pkcache"
	"github.com/gl-zkPass/zkpass-core/internal/wire"
	"github.com/gl-zkPass/zkpass-core/internal/wskeys"
)

// pipe wires an H-side *wire.Conn directly to a WS-side connection running
// deps' handler, mirroring the real topology where H dials WS's util
// listener.
func pipe(t *testing.T, deps Deps) *wire.Conn {
	t.Helper()
	client, server := net.Pipe()
	log := logrus.NewEntry(logrus.New())

	serverConn := wire.NewConn(server, nil, log)
	go NewHandler(deps)(context.Background(), serverConn)

	return wire.NewConn(client, nil, log)
}

func loadKeyTokens(t *testing.T) (*wskeys.KeyTokens, *ecdsa.PublicKey) {
	t.Helper()
	mgmtKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	type body struct {
		PrivateKey string         `json:"private_key"`
		PublicKey  keys.PublicKey `json:"public_key"`
	}
	signingToken, err := jose.SignJWS(body{PrivateKey: "enc-signing", PublicKey: keys.PublicKey{X: "sx", Y: "sy"}}, mgmtKey, "", "")
	require.NoError(t, err)
	ecdhToken, err := jose.SignJWS(body{PrivateKey: "enc-ecdh", PublicKey: keys.PublicKey{X: "ex", Y: "ey"}}, mgmtKey, "", "")
	require.NoError(t, err)

	raw, err := json.Marshal(struct {
		SigningKeyToken string `json:"signing_key_token"`
		ECDHKeyToken    string `json:"ecdh_key_token"`
	}{signingToken, ecdhToken})
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "keys.json")
	require.NoError(t, os.WriteFile(path, raw, 0o600))

	tokens, err := wskeys.LoadKeyTokens(path, &mgmtKey.PublicKey)
	require.NoError(t, err)
	return tokens, &mgmtKey.PublicKey
}

func TestHandler_FetchKeys_CacheMissFetchesAndStores(t *testing.T) {
	signerPriv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	jwk := keys.JwkFromECDSA(&signerPriv.PublicKey, "remote-kid")

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(keys.JWKS{Keys: []keys.Jwk{jwk}})
	}))
	defer srv.Close()

	cache := pkcache.NewTimedCache(time.Hour, clock.NewFixtureClock(time.Now()))
	deps := Deps{
		JWKS:  jwksclient.New(time.Second),
		Cache: cache,
		Log:   logrus.New(),
	}

	conn := pipe(t, deps)
	payload, err := wire.EncodePayload(wire.OpRequestFetchingKeysByHost, wire.FetchKeysArgs{JKU: srv.URL, Kid: "remote-kid"})
	require.NoError(t, err)

	resp, err := conn.SendRecv(context.Background(), payload)
	require.NoError(t, err)
	require.False(t, wire.IsErrorBody(resp))

	var pk keys.PublicKey
	require.NoError(t, json.Unmarshal(resp, &pk))
	assert.NotEmpty(t, pk.X)

	entry, ok := cache.Get(keys.KeysetEndpoint{JKU: srv.URL, Kid: "remote-kid"})
	require.True(t, ok)
	assert.Equal(t, pk.X, entry.PublicKey.X)
}

func TestHandler_FetchKeys_UnreachableEndpointReturnsError(t *testing.T) {
	cache := pkcache.NewTimedCache(time.Hour, clock.NewFixtureClock(time.Now()))
	deps := Deps{JWKS: jwksclient.New(time.Second), Cache: cache, Log: logrus.New()}

	conn := pipe(t, deps)
	payload, err := wire.EncodePayload(wire.OpRequestFetchingKeysByHost, wire.FetchKeysArgs{JKU: "http://127.0.0.1:0", Kid: "x"})
	require.NoError(t, err)

	resp, err := conn.SendRecv(context.Background(), payload)
	require.NoError(t, err)
	assert.True(t, wire.IsErrorBody(resp))
}

func TestHandler_FetchPrivateKeys(t *testing.T) {
	tokens, _ := loadKeyTokens(t)
	deps := Deps{
		KeyTokens: tokens,
		KeyConfig: wskeys.Config{KeyService: hostkeys.KeyServiceNative, SigningKid: "sk", ECDHKid: "ek"},
		Log:       logrus.New(),
	}

	conn := pipe(t, deps)
	payload, err := wire.EncodePayload(wire.OpRequestFetchingPrivateKeysHost, "")
	require.NoError(t, err)

	resp, err := conn.SendRecv(context.Background(), payload)
	require.NoError(t, err)
	require.False(t, wire.IsErrorBody(resp))

	var got hostkeys.HostKeyPairsWire
	require.NoError(t, json.Unmarshal(resp, &got))
	assert.Equal(t, "enc-signing", got.Signing.PrivateKeyCiphertext)
	assert.Equal(t, "sk", got.Signing.Kid)
	assert.Equal(t, hostkeys.KeyServiceNative, got.KeyService)
	assert.Nil(t, got.DecryptionRequest)
}

func TestHandler_PrintLogs_Acknowledges(t *testing.T) {
	deps := Deps{Log: logrus.New()}
	conn := pipe(t, deps)

	payload, err := wire.EncodePayload(wire.OpRequestPrintingLogsByHost, wire.PrintLogsArgs{Level: "warning", Message: "zkvm execution took 3s"})
	require.NoError(t, err)

	resp, err := conn.SendRecv(context.Background(), payload)
	require.NoError(t, err)
	assert.Equal(t, "ok", string(resp))
}

func TestHandler_UnrecognizedOp(t *testing.T) {
	deps := Deps{Log: logrus.New()}
	conn := pipe(t, deps)

	payload, err := wire.EncodePayload(wire.OpName("request_something_unknown"), "")
	require.NoError(t, err)

	resp, err := conn.SendRecv(context.Background(), payload)
	require.NoError(t, err)
	assert.True(t, wire.IsErrorBody(resp))
}
