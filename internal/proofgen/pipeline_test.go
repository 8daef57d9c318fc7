package proofgen

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gl-zkPass/zkpass-core/internal/dvrmodel"
	"github.com/gl-zkPass/zkpass-core/internal/hostkeys"
	"github.com/gl-zkPass/zkpass-core/internal/jose"
	"github.com/gl-zkPass/zkpass-core/internal/keys"
	"github.com/gl-zkPass/zkpass-core/internal/wire"
	"github.com/gl-zkPass/zkpass-core/internal/zkvm"
)

type fakeEngine struct {
	lastInput zkvm.ExecuteInput
}

func (f *fakeEngine) Execute(ctx context.Context, input zkvm.ExecuteInput) (zkvm.ExecuteOutput, error) {
	f.lastInput = input
	return zkvm.ExecuteOutput{ReceiptB64: "receipt-abc"}, nil
}

func (f *fakeEngine) Verify(ctx context.Context, receiptB64 string) (zkvm.VerifyOutput, error) {
	return zkvm.VerifyOutput{}, nil
}

func (f *fakeEngine) QueryMethodVersion() string { return "method-v1" }
func (f *fakeEngine) QueryEngineVersion() string { return "engine-v1" }

func genKeyPair(t *testing.T) (*ecdsa.PrivateKey, keys.PublicKey) {
	t.Helper()
	priv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	pk, err := keys.NewPublicKeyFromECDSA(&priv.PublicKey)
	require.NoError(t, err)
	return priv, pk
}

func pemPrivateKeyPipeline(t *testing.T, priv *ecdsa.PrivateKey) string {
	t.Helper()
	der, err := x509.MarshalPKCS8PrivateKey(priv)
	require.NoError(t, err)
	return string(pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der}))
}

func newHostKeys(t *testing.T, signingPriv, ecdhPriv *ecdsa.PrivateKey, signingPK, ecdhPK keys.PublicKey) *hostkeys.HostKeyPairs {
	t.Helper()
	cell := hostkeys.NewHostKeyPairs()
	cell.Set(
		hostkeys.KeyPair{PrivateKey: pemPrivateKeyPipeline(t, signingPriv), Decrypted: true, PublicKey: signingPK, Kid: "signing-1"},
		hostkeys.KeyPair{PrivateKey: pemPrivateKeyPipeline(t, ecdhPriv), Decrypted: true, PublicKey: ecdhPK, Kid: "ecdh-1"},
	)
	return cell
}

func buildDVR(t *testing.T, dvrSigningPriv *ecdsa.PrivateKey, userDataVerifyingKey keys.PublicKeyOption) dvrmodel.DataVerificationRequest {
	t.Helper()
	return dvrmodel.DataVerificationRequest{
		ZkVM:           "r0",
		DVRTitle:       "age-over-18",
		DVRID:          "dvr-1",
		QueryEngineVer: "engine-v1",
		QueryMethodVer: "method-v1",
		Query:          "$.age > 18",
		UserDataRequests: map[string]dvrmodel.UserDataRequest{
			"": {UserDataVerifyingKey: userDataVerifyingKey},
		},
	}
}

func sealDoubleEnvelope(t *testing.T, ecdhPub *ecdsa.PublicKey, dvrJWS string) string {
	t.Helper()
	env, err := jose.EncryptJWE(dvrJWS, ecdhPub)
	require.NoError(t, err)
	return env
}

func TestPipeline_Generate_InlineKeysSingleTag(t *testing.T) {
	hostSigningPriv, hostSigningPK := genKeyPair(t)
	hostECDHPriv, hostECDHPK := genKeyPair(t)
	cell := newHostKeys(t, hostSigningPriv, hostECDHPriv, hostSigningPK, hostECDHPK)

	dvrSigningPriv, dvrSigningPK := genKeyPair(t)
	userDataPriv, userDataPK := genKeyPair(t)

	dvr := buildDVR(t, dvrSigningPriv, keys.PublicKeyOption{Inline: &userDataPK})
	dvr.DVRVerifyingKey = keys.PublicKeyOption{Inline: &dvrSigningPK}

	dvrJWS, err := jose.SignJWS(dvr, dvrSigningPriv, "", "dvr-key-1")
	require.NoError(t, err)

	userPayload := map[string]any{"age": 21}
	userJWS, err := jose.SignJWS(userPayload, userDataPriv, "", "user-key-1")
	require.NoError(t, err)

	tagged := dvrmodel.TaggedTokens{"": userJWS}
	taggedJSON, err := json.Marshal(tagged)
	require.NoError(t, err)

	dvrEnvelope := sealDoubleEnvelope(t, &hostECDHPriv.PublicKey, dvrJWS)
	userDataEnvelope := sealDoubleEnvelope(t, &hostECDHPriv.PublicKey, string(taggedJSON))

	backends := zkvm.NewRegistry()
	engine := &fakeEngine{}
	require.NoError(t, backends.Register("r0", engine))

	p := NewPipeline(cell, nil, backends)
	p.Now = func() time.Time { return time.Date(2026, 7, 30, 0, 0, 0, 0, time.UTC) }

	signed, err := p.Generate(context.Background(), wire.GenerateProofArgs{
		DVRToken:      dvrEnvelope,
		UserDataToken: userDataEnvelope,
	})
	require.NoError(t, err)

	var proof dvrmodel.ZkPassProof
	require.NoError(t, jose.VerifyJWS(signed, &hostSigningPriv.PublicKey, &proof))

	assert.Equal(t, "receipt-abc", proof.ZkProof)
	assert.Equal(t, "dvr-1", proof.DVRID)
	assert.Equal(t, "age-over-18", proof.DVRTitle)
	assert.Equal(t, dvrSigningPK, proof.DVRVerifyingKey)
	assert.Equal(t, userDataPK, proof.UserDataVerifyingKey)
	assert.NotEmpty(t, proof.DVRDigest)

	assert.Equal(t, "$.age > 18", engine.lastInput.Query)
	assert.Equal(t, int32(20664), engine.lastInput.CurrentDate)

	var gotPayload map[string]any
	require.NoError(t, json.Unmarshal(engine.lastInput.UserData, &gotPayload))
	assert.Equal(t, float64(21), gotPayload["age"])
}

func TestPipeline_Generate_FetchesDVRKeyOverUtilChannel(t *testing.T) {
	hostSigningPriv, hostSigningPK := genKeyPair(t)
	hostECDHPriv, hostECDHPK := genKeyPair(t)
	cell := newHostKeys(t, hostSigningPriv, hostECDHPriv, hostSigningPK, hostECDHPK)

	dvrSigningPriv, dvrSigningPK := genKeyPair(t)
	userDataPriv, userDataPK := genKeyPair(t)

	dvr := buildDVR(t, dvrSigningPriv, keys.PublicKeyOption{Inline: &userDataPK})
	// no DVRVerifyingKey in body; verifying key comes from the JWS header jku/kid instead.

	dvrJWS, err := jose.SignJWS(dvr, dvrSigningPriv, "https://issuer.example/jwks.json", "dvr-key-1")
	require.NoError(t, err)

	userPayload := map[string]any{"age": 21}
	userJWS, err := jose.SignJWS(userPayload, userDataPriv, "", "user-key-1")
	require.NoError(t, err)

	tagged := dvrmodel.TaggedTokens{"": userJWS}
	taggedJSON, err := json.Marshal(tagged)
	require.NoError(t, err)

	dvrEnvelope := sealDoubleEnvelope(t, &hostECDHPriv.PublicKey, dvrJWS)
	userDataEnvelope := sealDoubleEnvelope(t, &hostECDHPriv.PublicKey, string(taggedJSON))

	dir := t.TempDir()
	sockPath := filepath.Join(dir, "util.sock")
	ln, err := wire.ListenUnix(sockPath)
	require.NoError(t, err)
	defer ln.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		nc, err := ln.Accept()
		if err != nil {
			return
		}
		conn := wire.NewConn(nc, nil, nil)
		frame, err := conn.Recv()
		if err != nil {
			return
		}
		p, err := wire.DecodePayload(frame)
		if err != nil || p.Op != wire.OpRequestFetchingKeysByHost {
			return
		}
		var args wire.FetchKeysArgs
		if err := json.Unmarshal(p.Arg, &args); err != nil {
			return
		}
		if args.JKU != "https://issuer.example/jwks.json" || args.Kid != "dvr-key-1" {
			resp, _ := json.Marshal("error: unexpected fetch args")
			_ = conn.Send(ctx, resp)
			return
		}
		resp, _ := json.Marshal(dvrSigningPK)
		_ = conn.Send(ctx, resp)
	}()

	util, err := wire.Dial(ctx, wire.UnixDialer(sockPath), nil, nil)
	require.NoError(t, err)
	defer util.Close()

	backends := zkvm.NewRegistry()
	engine := &fakeEngine{}
	require.NoError(t, backends.Register("r0", engine))

	p := NewPipeline(cell, util, backends)
	p.Now = func() time.Time { return time.Date(2026, 7, 30, 0, 0, 0, 0, time.UTC) }

	signed, err := p.Generate(ctx, wire.GenerateProofArgs{
		DVRToken:      dvrEnvelope,
		UserDataToken: userDataEnvelope,
	})
	require.NoError(t, err)

	var proof dvrmodel.ZkPassProof
	require.NoError(t, jose.VerifyJWS(signed, &hostSigningPriv.PublicKey, &proof))
	assert.Equal(t, dvrSigningPK, proof.DVRVerifyingKey)
}

func TestPipeline_Generate_MissingDVRVerifyingKeyFails(t *testing.T) {
	hostSigningPriv, hostSigningPK := genKeyPair(t)
	hostECDHPriv, hostECDHPK := genKeyPair(t)
	cell := newHostKeys(t, hostSigningPriv, hostECDHPriv, hostSigningPK, hostECDHPK)

	dvrSigningPriv, _ := genKeyPair(t)
	_, userDataPK := genKeyPair(t)

	dvr := buildDVR(t, dvrSigningPriv, keys.PublicKeyOption{Inline: &userDataPK})
	dvrJWS, err := jose.SignJWS(dvr, dvrSigningPriv, "", "")
	require.NoError(t, err)

	dvrEnvelope := sealDoubleEnvelope(t, &hostECDHPriv.PublicKey, dvrJWS)

	backends := zkvm.NewRegistry()
	p := NewPipeline(cell, nil, backends)

	_, err = p.Generate(context.Background(), wire.GenerateProofArgs{
		DVRToken:      dvrEnvelope,
		UserDataToken: dvrEnvelope,
	})
	assert.Error(t, err)
}
