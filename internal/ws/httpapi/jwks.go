package httpapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"

	"github.com/gl-zkPass/zkpass-core/internal/keys"
)

// JWKSPublisher serves the service's own JWKS — at least ServiceEncryptionPubK,
// ServiceSigningPubK, and VerifyingPubK — loaded once from JWKS_FILE_PATH.
type JWKSPublisher struct {
	jwks keys.JWKS
}

// NewJWKSPublisher reads and parses the JWKS file at path.
func NewJWKSPublisher(path string) (*JWKSPublisher, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read jwks file %s: %w", path, err)
	}

	var jwks keys.JWKS
	if err := json.Unmarshal(raw, &jwks); err != nil {
		return nil, fmt.Errorf("decode jwks file %s: %w", path, err)
	}

	return &JWKSPublisher{jwks: jwks}, nil
}

// ServeHTTP answers GET /.well-known/jwks.json with the loaded key set.
func (p *JWKSPublisher) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(p.jwks)
}

// Find returns the public key for kid from the loaded JWKS, without another
// HTTP round trip.
func (p *JWKSPublisher) Find(kid string) (keys.PublicKey, bool) {
	jwk, ok := p.jwks.FindKid(kid)
	if !ok {
		return keys.PublicKey{}, false
	}
	pk, err := jwk.PublicKey()
	if err != nil {
		return keys.PublicKey{}, false
	}
	return pk, true
}
