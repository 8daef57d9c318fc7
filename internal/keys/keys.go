// Package keys defines the public-key shapes shared across the wire: the
// inline P-256 point pair used when a party carries its own verifying key,
// the remote JWKS reference used when it doesn't, and the JWK entry WS
// publishes at its well-known endpoint.
package keys

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/x509"
	"encoding/base64"
	"encoding/json"
	"encoding/pem"
	"fmt"
	"math/big"
	"strings"
)

const (
	pemHeader = "-----BEGIN PUBLIC KEY-----\n"
	pemFooter = "-----END PUBLIC KEY-----"
)

// PublicKey carries a P-256 ECDSA public key as the two base64 body lines of
// its standard SPKI PEM encoding (not JOSE JWK point coordinates — a P-256
// SPKI DER block is always short enough to wrap to exactly two PEM body
// lines, which is what X/Y hold). PEM/ToECDSA round-trip this representation
// against crypto/ecdsa; NewPublicKeyFromECDSA builds it the other way.
type PublicKey struct {
	X string `json:"x"`
	Y string `json:"y"`
}

// Equal compares two PublicKeys component-wise.
func (k PublicKey) Equal(other PublicKey) bool {
	return k.X == other.X && k.Y == other.Y
}

// PEM renders the key as a standard SPKI PEM block.
func (k PublicKey) PEM() string {
	return pemHeader + k.X + "\n" + k.Y + "\n" + pemFooter
}

// ToECDSA parses the key back into a *ecdsa.PublicKey for use with
// crypto/ecdsa or jwx signing/verification calls.
func (k PublicKey) ToECDSA() (*ecdsa.PublicKey, error) {
	block, _ := pem.Decode([]byte(k.PEM()))
	if block == nil {
		return nil, fmt.Errorf("decode public key pem")
	}
	pub, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("parse public key: %w", err)
	}
	ecdsaPub, ok := pub.(*ecdsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("public key is not ECDSA")
	}
	return ecdsaPub, nil
}

// NewPublicKeyFromECDSA renders pub as the two-line SPKI PEM body this
// module's wire types carry. Only valid for P-256 keys: the SPKI DER for any
// larger curve would wrap to more than two PEM lines and this function would
// return an error rather than silently drop data.
func NewPublicKeyFromECDSA(pub *ecdsa.PublicKey) (PublicKey, error) {
	der, err := x509.MarshalPKIXPublicKey(pub)
	if err != nil {
		return PublicKey{}, fmt.Errorf("marshal public key: %w", err)
	}

	encoded := pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der})
	lines := strings.Split(strings.TrimSpace(string(encoded)), "\n")
	body := lines[1 : len(lines)-1]
	if len(body) != 2 {
		return PublicKey{}, fmt.Errorf("unexpected PEM body line count %d (expected a P-256 key)", len(body))
	}

	return PublicKey{X: body[0], Y: body[1]}, nil
}

// ParseECDSAPrivateKeyPEM parses a PKCS8 "BEGIN PRIVATE KEY" PEM block (the
// format HostKeyPairs carries once decrypted) into an *ecdsa.PrivateKey.
func ParseECDSAPrivateKeyPEM(pemStr string) (*ecdsa.PrivateKey, error) {
	block, _ := pem.Decode([]byte(pemStr))
	if block == nil {
		return nil, fmt.Errorf("decode private key pem")
	}
	key, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}
	ecdsaKey, ok := key.(*ecdsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("private key is not ECDSA")
	}
	return ecdsaKey, nil
}

// KeysetEndpoint references a remote JWKS by URL plus the kid to select
// within it.
type KeysetEndpoint struct {
	JKU string `json:"jku"`
	Kid string `json:"kid"`
}

// PublicKeyOption is a discriminated union: either an inline PublicKey or a
// KeysetEndpoint naming where to fetch one. Exactly one of Inline/Endpoint is
// set; the zero value (both nil) means "no verifying key supplied".
type PublicKeyOption struct {
	Inline   *PublicKey      `json:"-"`
	Endpoint *KeysetEndpoint `json:"-"`
}

// IsEndpoint reports whether this option must be resolved via JWKS fetch.
func (o PublicKeyOption) IsEndpoint() bool {
	return o.Endpoint != nil
}

// IsEmpty reports whether no verifying key was supplied at all.
func (o PublicKeyOption) IsEmpty() bool {
	return o.Inline == nil && o.Endpoint == nil
}

// MarshalJSON emits the inline key's fields directly, or the endpoint's
// fields directly, matching the wire's untagged-union convention: the
// receiver distinguishes the two shapes by field presence (x/y vs jku/kid).
func (o PublicKeyOption) MarshalJSON() ([]byte, error) {
	switch {
	case o.Inline != nil:
		return json.Marshal(o.Inline)
	case o.Endpoint != nil:
		return json.Marshal(o.Endpoint)
	default:
		return []byte("null"), nil
	}
}

func (o *PublicKeyOption) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*o = PublicKeyOption{}
		return nil
	}

	var probe struct {
		X   *string `json:"x"`
		Y   *string `json:"y"`
		JKU *string `json:"jku"`
		Kid *string `json:"kid"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return fmt.Errorf("decode public key option: %w", err)
	}

	switch {
	case probe.X != nil && probe.Y != nil:
		var pk PublicKey
		if err := json.Unmarshal(data, &pk); err != nil {
			return fmt.Errorf("decode inline public key: %w", err)
		}
		*o = PublicKeyOption{Inline: &pk}
	case probe.JKU != nil:
		var ke KeysetEndpoint
		if err := json.Unmarshal(data, &ke); err != nil {
			return fmt.Errorf("decode keyset endpoint: %w", err)
		}
		*o = PublicKeyOption{Endpoint: &ke}
	default:
		return fmt.Errorf("public key option has neither x/y nor jku fields")
	}
	return nil
}

// Jwk is one entry of the JWKS WS publishes at its well-known endpoint — a
// standard JOSE JWK, whose X/Y are base64url EC point coordinates per RFC
// 7518, unlike the PEM-body-line encoding keys.PublicKey uses elsewhere on
// the wire. The two are genuinely different encodings of the same curve
// point; PublicKey() below converts between them rather than copying fields.
type Jwk struct {
	Kty string `json:"kty"`
	Crv string `json:"crv"`
	X   string `json:"x"`
	Y   string `json:"y"`
	Kid string `json:"kid"`
}

// JWKS is the standard { "keys": [...] } envelope.
type JWKS struct {
	Keys []Jwk `json:"keys"`
}

// FindKid returns the first entry in the set whose kid matches, or false if
// none does.
func (s JWKS) FindKid(kid string) (Jwk, bool) {
	for _, k := range s.Keys {
		if k.Kid == kid {
			return k, true
		}
	}
	return Jwk{}, false
}

// PublicKey converts a Jwk's real EC point coordinates into the PEM-body-line
// PublicKey shape used elsewhere on the wire.
func (k Jwk) PublicKey() (PublicKey, error) {
	xb, err := base64.RawURLEncoding.DecodeString(k.X)
	if err != nil {
		return PublicKey{}, fmt.Errorf("decode jwk x: %w", err)
	}
	yb, err := base64.RawURLEncoding.DecodeString(k.Y)
	if err != nil {
		return PublicKey{}, fmt.Errorf("decode jwk y: %w", err)
	}

	pub := &ecdsa.PublicKey{
		Curve: elliptic.P256(),
		X:     new(big.Int).SetBytes(xb),
		Y:     new(big.Int).SetBytes(yb),
	}
	return NewPublicKeyFromECDSA(pub)
}

// JwkFromECDSA builds a standard JOSE JWK entry from an ECDSA P-256 public
// key, for publishing at the well-known JWKS endpoint.
func JwkFromECDSA(pub *ecdsa.PublicKey, kid string) Jwk {
	return Jwk{
		Kty: "EC",
		Crv: "P-256",
		X:   base64.RawURLEncoding.EncodeToString(pub.X.Bytes()),
		Y:   base64.RawURLEncoding.EncodeToString(pub.Y.Bytes()),
		Kid: kid,
	}
}
