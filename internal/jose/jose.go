// Package jose implements the three token envelope shapes used on the wire:
// JWS (signed JSON under a "data" claim), JWE (ECDH-ES + A256GCM encrypted
// JSON under a "data" claim), and the nested JWE(JWS(...)) envelope a client
// uses to both sign and keep a payload confidential in transit. Built on
// lestrrat-go/jwx/v2, the same JOSE library the host module already depends
// on for its own token issuance.
package jose

import (
	"crypto/ecdsa"
	"encoding/json"
	"fmt"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwe"
	"github.com/lestrrat-go/jwx/v2/jws"

	"github.com/gl-zkPass/zkpass-core/internal/zkerr"
)

// dataClaim is the envelope shape every payload is wrapped in before
// signing or encrypting: {"data": <value>}.
type dataClaim struct {
	Data json.RawMessage `json:"data"`
}

// SignJWS signs value under signingKey, wrapping it in the {"data": value}
// claim, with jku/kid carried in the protected header when non-empty so a
// verifier can locate the right verifying key without an out-of-band hint.
func SignJWS(value any, signingKey *ecdsa.PrivateKey, jku, kid string) (string, error) {
	payload, err := json.Marshal(value)
	if err != nil {
		return "", fmt.Errorf("marshal jws payload: %w", err)
	}

	claim, err := json.Marshal(dataClaim{Data: payload})
	if err != nil {
		return "", fmt.Errorf("marshal jws data claim: %w", err)
	}

	headers := jws.NewHeaders()
	if kid != "" {
		if err := headers.Set(jws.KeyIDKey, kid); err != nil {
			return "", fmt.Errorf("set kid header: %w", err)
		}
	}
	if jku != "" {
		if err := headers.Set(jws.JWKSetURLKey, jku); err != nil {
			return "", fmt.Errorf("set jku header: %w", err)
		}
	}

	signed, err := jws.Sign(claim, jws.WithKey(jwa.ES256, signingKey, jws.WithProtectedHeaders(headers)))
	if err != nil {
		return "", zkerr.Wrap(zkerr.KindJOSE, "sign jws", err)
	}

	return string(signed), nil
}

// VerifyJWS verifies token under verifyingKey and decodes its "data" claim
// into out.
func VerifyJWS(token string, verifyingKey *ecdsa.PublicKey, out any) error {
	claim, err := jws.Verify([]byte(token), jws.WithKey(jwa.ES256, verifyingKey))
	if err != nil {
		return zkerr.Wrap(zkerr.KindJOSE, "verify jws", err)
	}
	return decodeDataClaim(claim, out)
}

// PeekHeader decodes the JWS's protected header without verifying the
// signature, returning its jku/kid if present. Used to choose a verifying
// key before the signature can be checked.
func PeekHeader(token string) (jku, kid string, err error) {
	msg, err := jws.Parse([]byte(token))
	if err != nil {
		return "", "", zkerr.Wrap(zkerr.KindJOSE, "parse jws header", err)
	}
	sigs := msg.Signatures()
	if len(sigs) == 0 {
		return "", "", zkerr.New(zkerr.KindJOSE, "jws has no signatures")
	}
	h := sigs[0].ProtectedHeaders()
	return h.JWKSetURL(), h.KeyID(), nil
}

// PeekDataClaim decodes a JWS's "data" claim without verifying its
// signature. Used only where the spec calls for reading a DVR's body before
// its verifying key is known (the DVR-verifying-key fallback path).
func PeekDataClaim(token string, out any) error {
	msg, err := jws.Parse([]byte(token))
	if err != nil {
		return zkerr.Wrap(zkerr.KindJOSE, "parse jws", err)
	}
	return decodeDataClaim(msg.Payload(), out)
}

// EncryptJWE encrypts value with ECDH-ES key agreement against recipientKey
// and A256GCM content encryption, wrapping it in the {"data": value} claim.
func EncryptJWE(value any, recipientKey *ecdsa.PublicKey) (string, error) {
	payload, err := json.Marshal(value)
	if err != nil {
		return "", fmt.Errorf("marshal jwe payload: %w", err)
	}

	claim, err := json.Marshal(dataClaim{Data: payload})
	if err != nil {
		return "", fmt.Errorf("marshal jwe data claim: %w", err)
	}

	encrypted, err := jwe.Encrypt(claim, jwe.WithKey(jwa.ECDH_ES, recipientKey), jwe.WithContentEncryption(jwa.A256GCM))
	if err != nil {
		return "", zkerr.Wrap(zkerr.KindJOSE, "encrypt jwe", err)
	}

	return string(encrypted), nil
}

// DecryptJWEInto decrypts token under recipientPrivateKey and decodes its
// "data" claim into out.
func DecryptJWEInto(token string, recipientPrivateKey *ecdsa.PrivateKey, out any) error {
	claim, err := jwe.Decrypt([]byte(token), jwe.WithKey(jwa.ECDH_ES, recipientPrivateKey))
	if err != nil {
		return zkerr.Wrap(zkerr.KindJOSE, "decrypt jwe", err)
	}
	return decodeDataClaim(claim, out)
}

// DecryptJWEString decrypts token under recipientPrivateKey and returns its
// "data" claim as a raw string, for the nested JWE(JWS(...)) envelope where
// the inner value is itself a JWS compact-serialization string rather than a
// structured object.
func DecryptJWEString(token string, recipientPrivateKey *ecdsa.PrivateKey) (string, error) {
	var s string
	if err := DecryptJWEInto(token, recipientPrivateKey, &s); err != nil {
		return "", err
	}
	return s, nil
}

func decodeDataClaim(raw []byte, out any) error {
	var claim dataClaim
	if err := json.Unmarshal(raw, &claim); err != nil {
		return zkerr.Wrap(zkerr.KindDeserialize, "decode data claim envelope", err)
	}
	if err := json.Unmarshal(claim.Data, out); err != nil {
		return zkerr.Wrap(zkerr.KindDeserialize, "decode data claim value", err)
	}
	return nil
}
