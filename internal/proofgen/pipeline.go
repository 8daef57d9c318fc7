// Package proofgen implements H's end-to-end proof-generation sequence: it
// unwraps the two JWE(JWS(...)) envelopes WS hands over (dvr_token,
// user_data_token), resolves and verifies both signatures, validates the
// DVR's user_data_requests map, invokes the selected zkVM backend, and
// signs the resulting ZkPassProof under H's own signing key.
package proofgen

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/gl-zkPass/zkpass-core/internal/dvrmodel"
	"github.com/gl-zkPass/zkpass-core/internal/hostkeys"
	"github.com/gl-zkPass/zkpass-core/internal/jose"
	"github.com/gl-zkPass/zkpass-core/internal/keys"
	"github.com/gl-zkPass/zkpass-core/internal/wire"
	"github.com/gl-zkPass/zkpass-core/internal/zkerr"
	"github.com/gl-zkPass/zkpass-core/internal/zkvm"
)

const secondsPerDay = 86400

// Pipeline wires together the pieces a generate_proof request needs: the
// process-global key-pair cell, the util-channel connection (for key fetch
// and, if needed, a fresh key handshake), and the zkVM backend registry.
type Pipeline struct {
	HostKeys *hostkeys.HostKeyPairs
	Util     wire.UtilChannel
	Backends *zkvm.Registry

	// Now is overridable for deterministic tests; defaults to time.Now.
	Now func() time.Time
}

// NewPipeline builds a Pipeline with the real wall clock.
func NewPipeline(hostKeys *hostkeys.HostKeyPairs, util wire.UtilChannel, backends *zkvm.Registry) *Pipeline {
	return &Pipeline{HostKeys: hostKeys, Util: util, Backends: backends, Now: time.Now}
}

// Generate runs the 8-step pipeline and returns the signed ZkPassProof JWS
// compact string H hands back to WS over the main channel.
func (p *Pipeline) Generate(ctx context.Context, args wire.GenerateProofArgs) (string, error) {
	if p.HostKeys.NeedsHandshake() {
		if err := hostkeys.RunHandshake(ctx, p.Util, p.HostKeys); err != nil {
			return "", fmt.Errorf("re-fetch host key pairs: %w", err)
		}
	}

	ecdhPriv, err := keys.ParseECDSAPrivateKeyPEM(p.HostKeys.ECDH().PrivateKey)
	if err != nil {
		return "", zkerr.Wrap(zkerr.KindJOSE, "parse host ecdh private key", err)
	}
	signingPriv, err := keys.ParseECDSAPrivateKeyPEM(p.HostKeys.Signing().PrivateKey)
	if err != nil {
		return "", zkerr.Wrap(zkerr.KindJOSE, "parse host signing private key", err)
	}

	// step 1: unwrap the DVR envelope.
	dvrJWS, err := jose.DecryptJWEString(args.DVRToken, ecdhPriv)
	if err != nil {
		return "", fmt.Errorf("unwrap dvr envelope: %w", err)
	}

	// steps 2-4: resolve the dvr verifying key, verify, validate, digest.
	dvr, dvrVerifyingKey, err := p.verifyDVR(ctx, dvrJWS)
	if err != nil {
		return "", err
	}
	if err := dvr.Validate(); err != nil {
		return "", err
	}
	digest, err := dvr.Digest()
	if err != nil {
		return "", fmt.Errorf("compute dvr digest: %w", err)
	}

	// step 5: unwrap and verify the user-data envelope.
	userDataJWS, err := jose.DecryptJWEString(args.UserDataToken, ecdhPriv)
	if err != nil {
		return "", fmt.Errorf("unwrap user data envelope: %w", err)
	}
	userDataPayload, userDataVerifyingKey, err := p.verifyUserData(ctx, userDataJWS, dvr)
	if err != nil {
		return "", err
	}

	// step 6: invoke the selected zkVM backend.
	backend, err := p.Backends.Get(string(dvr.ZkVM))
	if err != nil {
		return "", zkerr.Wrap(zkerr.KindInvalidZkVM, fmt.Sprintf("unknown zkvm %q", dvr.ZkVM), err)
	}

	out, err := backend.Execute(ctx, zkvm.ExecuteInput{
		UserData:    userDataPayload,
		Query:       dvr.Query,
		CurrentDate: daysSinceEpoch(p.Now()),
	})
	if err != nil {
		return "", err
	}

	// step 7: assemble the proof.
	proof := dvrmodel.ZkPassProof{
		ZkProof:              out.ReceiptB64,
		DVRTitle:             dvr.DVRTitle,
		DVRID:                dvr.DVRID,
		DVRDigest:            digest,
		UserDataVerifyingKey: userDataVerifyingKey,
		DVRVerifyingKey:      dvrVerifyingKey,
		TimeStamp:            p.Now().Unix(),
	}

	// step 8: sign the proof under H's signing key.
	signingKeyPair := p.HostKeys.Signing()
	signed, err := jose.SignJWS(proof, signingPriv, "", signingKeyPair.Kid)
	if err != nil {
		return "", fmt.Errorf("sign proof: %w", err)
	}

	return signed, nil
}

// verifyDVR decodes the DVR JWS without verifying it to find the verifying
// key (header jku/kid first, else the body's dvr_verifying_key), resolves
// it, and re-verifies the signature under the resolved key.
func (p *Pipeline) verifyDVR(ctx context.Context, dvrJWS string) (*dvrmodel.DataVerificationRequest, keys.PublicKey, error) {
	jku, kid, _ := jose.PeekHeader(dvrJWS)

	var option keys.PublicKeyOption
	if jku != "" && kid != "" {
		option = keys.PublicKeyOption{Endpoint: &keys.KeysetEndpoint{JKU: jku, Kid: kid}}
	} else {
		var peek dvrmodel.DataVerificationRequest
		if err := jose.PeekDataClaim(dvrJWS, &peek); err != nil {
			return nil, keys.PublicKey{}, zkerr.Wrap(zkerr.KindMissingRootDataElement, "peek dvr payload for verifying key", err)
		}
		if peek.DVRVerifyingKey.IsEmpty() {
			return nil, keys.PublicKey{}, zkerr.New(zkerr.KindMissingPublicKey, "dvr carries no verifying key in header or body")
		}
		option = peek.DVRVerifyingKey
	}

	verifyingKey, err := p.resolveKey(ctx, option)
	if err != nil {
		return nil, keys.PublicKey{}, err
	}

	ecdsaKey, err := verifyingKey.ToECDSA()
	if err != nil {
		return nil, keys.PublicKey{}, zkerr.Wrap(zkerr.KindJOSE, "parse dvr verifying key", err)
	}

	var dvr dvrmodel.DataVerificationRequest
	if err := jose.VerifyJWS(dvrJWS, ecdsaKey, &dvr); err != nil {
		return nil, keys.PublicKey{}, zkerr.Wrap(zkerr.KindMismatchedDVRVerifyingKey, "verify dvr signature", err)
	}

	return &dvr, verifyingKey, nil
}

// verifyUserData splits the per-tag JWS map, verifies each tag's signature
// under its DVR-declared verifying key, and collapses to the bare payload
// for the single-entry empty-tag case. The returned PublicKey is the
// verifying key of the lexicographically first tag, which is the proof's
// single user_data_verifying_key slot for the (common) single-tag case;
// see DESIGN.md for the multi-tag tie-break rationale.
func (p *Pipeline) verifyUserData(ctx context.Context, userDataJWS string, dvr *dvrmodel.DataVerificationRequest) (json.RawMessage, keys.PublicKey, error) {
	var tokens dvrmodel.TaggedTokens
	if err := json.Unmarshal([]byte(userDataJWS), &tokens); err != nil {
		return nil, keys.PublicKey{}, zkerr.Wrap(zkerr.KindDeserialize, "decode user data token map", err)
	}

	tags := make([]string, 0, len(tokens))
	for tag := range tokens {
		tags = append(tags, tag)
	}
	sort.Strings(tags)

	payloads := make(map[string]json.RawMessage, len(tokens))
	var firstKey keys.PublicKey
	for i, tag := range tags {
		req, ok := dvr.UserDataRequests[tag]
		if !ok {
			return nil, keys.PublicKey{}, zkerr.New(zkerr.KindMissingPublicKey, fmt.Sprintf("no user_data_requests entry for tag %q", tag))
		}

		verifyingKey, err := p.resolveKey(ctx, req.UserDataVerifyingKey)
		if err != nil {
			return nil, keys.PublicKey{}, err
		}
		ecdsaKey, err := verifyingKey.ToECDSA()
		if err != nil {
			return nil, keys.PublicKey{}, zkerr.Wrap(zkerr.KindJOSE, "parse user data verifying key", err)
		}

		var payload json.RawMessage
		if err := jose.VerifyJWS(tokens[tag], ecdsaKey, &payload); err != nil {
			return nil, keys.PublicKey{}, zkerr.Wrap(zkerr.KindMismatchedUserDataVerifyKey, fmt.Sprintf("verify user data signature for tag %q", tag), err)
		}
		payloads[tag] = payload

		if i == 0 {
			firstKey = verifyingKey
		}
	}

	if len(tags) == 1 && tags[0] == "" {
		return payloads[""], firstKey, nil
	}

	combined, err := json.Marshal(payloads)
	if err != nil {
		return nil, keys.PublicKey{}, fmt.Errorf("marshal combined user data payload: %w", err)
	}
	return combined, firstKey, nil
}

// resolveKey resolves a PublicKeyOption to a concrete key, fetching over the
// util channel (WS's cached JWKS client) when it's a KeysetEndpoint.
func (p *Pipeline) resolveKey(ctx context.Context, option keys.PublicKeyOption) (keys.PublicKey, error) {
	switch {
	case option.Inline != nil:
		return *option.Inline, nil
	case option.IsEndpoint():
		return p.fetchKeyOverUtilChannel(ctx, *option.Endpoint)
	default:
		return keys.PublicKey{}, zkerr.New(zkerr.KindMissingPublicKey, "no verifying key supplied")
	}
}

func (p *Pipeline) fetchKeyOverUtilChannel(ctx context.Context, ep keys.KeysetEndpoint) (keys.PublicKey, error) {
	payload, err := wire.EncodePayload(wire.OpRequestFetchingKeysByHost, wire.FetchKeysArgs{JKU: ep.JKU, Kid: ep.Kid})
	if err != nil {
		return keys.PublicKey{}, fmt.Errorf("encode fetch-keys request: %w", err)
	}

	resp, err := p.Util.SendRecv(ctx, payload)
	if err != nil {
		return keys.PublicKey{}, zkerr.Wrap(zkerr.KindConnection, "fetch keys over util channel", err)
	}
	if wire.IsErrorBody(resp) {
		return keys.PublicKey{}, zkerr.New(zkerr.KindMissingPublicKey, string(resp))
	}

	var pk keys.PublicKey
	if err := json.Unmarshal(resp, &pk); err != nil {
		return keys.PublicKey{}, zkerr.Wrap(zkerr.KindDeserialize, "decode fetched public key", err)
	}
	return pk, nil
}

func daysSinceEpoch(t time.Time) int32 {
	return int32(t.UTC().Unix() / secondsPerDay)
}
