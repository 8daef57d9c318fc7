// Package jwksclient fetches a remote JWKS document and resolves a kid
// within it, the shared leaf operation behind both WS's public-key cache
// miss path and the SDK's resolution of a service's own signing key.
package jwksclient

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gl-zkPass/zkpass-core/internal/keys"
	"github.com/gl-zkPass/zkpass-core/internal/zkerr"
)

// Client fetches JWKS documents over HTTP.
type Client struct {
	httpClient *http.Client
}

// New returns a Client with the given request timeout. A zero timeout
// falls back to 10s.
func New(timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{httpClient: &http.Client{Timeout: timeout}}
}

// Fetch retrieves the JWKS at jku and returns the entry whose kid matches.
func (c *Client) Fetch(ctx context.Context, jku, kid string) (keys.PublicKey, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, jku, nil)
	if err != nil {
		return keys.PublicKey{}, zkerr.Wrap(zkerr.KindMissingPublicKey, "build jwks request", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return keys.PublicKey{}, zkerr.Wrap(zkerr.KindMissingPublicKey, fmt.Sprintf("fetch jwks from %s", jku), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return keys.PublicKey{}, zkerr.New(zkerr.KindMissingPublicKey, fmt.Sprintf("jwks endpoint %s returned status %d", jku, resp.StatusCode))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return keys.PublicKey{}, zkerr.Wrap(zkerr.KindMissingPublicKey, "read jwks response", err)
	}

	var set keys.JWKS
	if err := json.Unmarshal(body, &set); err != nil {
		return keys.PublicKey{}, zkerr.Wrap(zkerr.KindDeserialize, "decode jwks response", err)
	}

	jwk, ok := set.FindKid(kid)
	if !ok {
		return keys.PublicKey{}, zkerr.New(zkerr.KindMissingPublicKey, fmt.Sprintf("kid %q not found in jwks at %s", kid, jku))
	}

	pk, err := jwk.PublicKey()
	if err != nil {
		return keys.PublicKey{}, zkerr.Wrap(zkerr.KindMissingPublicKey, fmt.Sprintf("decode jwk %q from %s", kid, jku), err)
	}
	return pk, nil
}

// Resolve resolves an endpoint to its public key, consulting cache first via
// the supplied getter/inserter closures so callers can plug in any Cache
// implementation without jwksclient depending on pkcache directly.
func (c *Client) Resolve(ctx context.Context, endpoint keys.KeysetEndpoint, cached func() (keys.PublicKey, bool), store func(keys.PublicKey)) (keys.PublicKey, error) {
	if pk, ok := cached(); ok {
		return pk, nil
	}

	pk, err := c.Fetch(ctx, endpoint.JKU, endpoint.Kid)
	if err != nil {
		return keys.PublicKey{}, err
	}

	store(pk)
	return pk, nil
}
