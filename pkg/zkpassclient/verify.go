// Package zkpassclient is the importable client surface a Proof Verifier's
// own Go service links against: it authors DVRs, tracks which ones it has
// issued, and verifies the signed proofs that eventually come back for
// them. It never talks to WS or H's IPC channels directly — those are
// internal to this module — only to WS's public HTTP surface and JWKS
// endpoint.
package zkpassclient

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gl-zkPass/zkpass-core/internal/dvrmodel"
	"github.com/gl-zkPass/zkpass-core/internal/jose"
	"github.com/gl-zkPass/zkpass-core/internal/jwksclient"
	"github.com/gl-zkPass/zkpass-core/internal/keys"
	"github.com/gl-zkPass/zkpass-core/internal/zkerr"
	"github.com/gl-zkPass/zkpass-core/internal/zkvm"
)

// ServiceSigningKid is the well-known kid under which WS publishes the key
// that signs every ZkPassProof, per its /.well-known/jwks.json entry.
const ServiceSigningKid = "ServiceSigningPubK"

// MetadataValidator looks up what a Proof Verifier expects for dvrID: the
// DVR it issued, the key it expects to have signed that DVR, and how long a
// proof referencing it stays valid. A zero expectedTTL means no expiry
// check.
type MetadataValidator func(dvrID string) (expectedDVR dvrmodel.DataVerificationRequest, expectedDVRVerifyingKey keys.PublicKey, expectedTTL time.Duration, err error)

// VerifierConfig configures a Verifier.
type VerifierConfig struct {
	// JKU is the zkpass service's JWKS endpoint URL.
	JKU string
	// Backend is the zkVM engine used to check proof.ZkProof and extract
	// its journal — must match whichever backend produced the proof.
	Backend zkvm.ZkPassQueryEngine
	// JWKSClient fetches the service's published keys, with no caching:
	// each verification fetches them again. Optional;
	// defaults to jwksclient.New(0).
	JWKSClient *jwksclient.Client
	// Now is overridable for deterministic TTL tests; defaults to time.Now.
	Now func() time.Time
}

// Verifier runs the proof-verification pipeline: signature check, zkVM
// journal extraction, and DVR-binding validation via a caller-supplied
// MetadataValidator.
type Verifier struct {
	cfg VerifierConfig
}

// NewVerifier builds a Verifier, filling in defaults for an unset
// JWKSClient/Now.
func NewVerifier(cfg VerifierConfig) *Verifier {
	if cfg.JWKSClient == nil {
		cfg.JWKSClient = jwksclient.New(0)
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Verifier{cfg: cfg}
}

// Verify checks proofToken's signature under the service's published
// signing key, extracts the zkVM's query-output journal, and binds the
// proof to the DVR the validator expects. It returns the query's
// output-object JSON and the decoded ZkPassProof.
func (v *Verifier) Verify(ctx context.Context, proofToken string, validate MetadataValidator) (json.RawMessage, dvrmodel.ZkPassProof, error) {
	servicePK, err := v.cfg.JWKSClient.Fetch(ctx, v.cfg.JKU, ServiceSigningKid)
	if err != nil {
		return nil, dvrmodel.ZkPassProof{}, fmt.Errorf("fetch service signing key: %w", err)
	}
	servicePub, err := servicePK.ToECDSA()
	if err != nil {
		return nil, dvrmodel.ZkPassProof{}, zkerr.Wrap(zkerr.KindJOSE, "parse service signing key", err)
	}

	var proof dvrmodel.ZkPassProof
	if err := jose.VerifyJWS(proofToken, servicePub, &proof); err != nil {
		return nil, dvrmodel.ZkPassProof{}, zkerr.Wrap(zkerr.KindJOSE, "verify proof signature", err)
	}

	verifyOut, err := v.cfg.Backend.Verify(ctx, proof.ZkProof)
	if err != nil {
		return nil, dvrmodel.ZkPassProof{}, err
	}

	expectedDVR, expectedDVRVerifyingKey, expectedTTL, err := validate(proof.DVRID)
	if err != nil {
		return nil, dvrmodel.ZkPassProof{}, err
	}

	if err := bindProof(proof, expectedDVR, expectedDVRVerifyingKey, expectedTTL, v.cfg.Now()); err != nil {
		return nil, dvrmodel.ZkPassProof{}, err
	}

	return verifyOut.JournalJSON, proof, nil
}

// bindProof checks the proof's digest, both verifying keys, and its age
// against the validator's expectations.
func bindProof(proof dvrmodel.ZkPassProof, expectedDVR dvrmodel.DataVerificationRequest, expectedDVRVerifyingKey keys.PublicKey, expectedTTL time.Duration, now time.Time) error {
	expectedDigest, err := expectedDVR.Digest()
	if err != nil {
		return fmt.Errorf("compute expected dvr digest: %w", err)
	}
	if proof.DVRDigest != expectedDigest {
		return zkerr.New(zkerr.KindMismatchedDVRDigest, "proof dvr_digest does not match the expected dvr")
	}

	// Only checked when the expected DVR carries exactly one user-data
	// entry with an inline key — an endpoint reference has no fixed key to
	// compare against up front, per PublicKeyOption's resolution rules.
	if len(expectedDVR.UserDataRequests) == 1 {
		for _, req := range expectedDVR.UserDataRequests {
			if req.UserDataVerifyingKey.Inline != nil && !req.UserDataVerifyingKey.Inline.Equal(proof.UserDataVerifyingKey) {
				return zkerr.New(zkerr.KindMismatchedUserDataVerifyKey, "proof user_data_verifying_key does not match the expected dvr")
			}
		}
	}

	if !proof.DVRVerifyingKey.Equal(expectedDVRVerifyingKey) {
		return zkerr.New(zkerr.KindMismatchedDVRVerifyingKey, "proof dvr_verifying_key does not match the expected key")
	}

	if expectedTTL > 0 {
		proofTime := time.Unix(proof.TimeStamp, 0)
		if now.After(proofTime) && now.Sub(proofTime) > expectedTTL {
			return zkerr.New(zkerr.KindExpiredProof, "proof has exceeded its expected ttl")
		}
	}

	return nil
}
