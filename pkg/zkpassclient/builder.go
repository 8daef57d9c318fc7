package zkpassclient

import (
	"context"
	"crypto/ecdsa"
	"fmt"

	"github.com/google/uuid"

	"github.com/gl-zkPass/zkpass-core/internal/dvrmodel"
	"github.com/gl-zkPass/zkpass-core/internal/jose"
	"github.com/gl-zkPass/zkpass-core/internal/keys"
)

// UserDataRequestInput is one entry a DVRBuilder adds via WithUserData.
type UserDataRequestInput struct {
	Tag                  string
	UserDataURL          string
	UserDataVerifyingKey keys.PublicKeyOption
}

// DVRBuilder assembles a DataVerificationRequest the way a Proof Verifier's
// service authors one: a fresh dvr_id, the query engine's version tags, one
// or more tagged user-data requests, and (optionally) the key the DVR's own
// signature should be verified under.
type DVRBuilder struct {
	dvr dvrmodel.DataVerificationRequest
}

// NewDVRBuilder starts a builder for zkvm backend zkvmName (e.g. "r0", "sp1"),
// stamping query_engine_ver/query_method_ver with the caller-supplied
// queryEngineVer and queryMethodVer, which the digest invariant uses to bind
// a proof to a specific program image.
func NewDVRBuilder(zkvmName string, queryEngineVer, queryMethodVer, title, query string) *DVRBuilder {
	return &DVRBuilder{
		dvr: dvrmodel.DataVerificationRequest{
			ZkVM:             dvrmodel.ZkVM(zkvmName),
			DVRTitle:         title,
			DVRID:            uuid.NewString(),
			QueryEngineVer:   queryEngineVer,
			QueryMethodVer:   queryMethodVer,
			Query:            query,
			UserDataRequests: make(map[string]dvrmodel.UserDataRequest),
		},
	}
}

// WithUserDataURL sets the DVR-level user_data_url hint.
func (b *DVRBuilder) WithUserDataURL(url string) *DVRBuilder {
	b.dvr.UserDataURL = url
	return b
}

// WithUserData adds one tagged user-data request. Calling it once with an
// empty tag produces the single-entry empty-tag DVR shape.
func (b *DVRBuilder) WithUserData(in UserDataRequestInput) *DVRBuilder {
	b.dvr.UserDataRequests[in.Tag] = dvrmodel.UserDataRequest{
		UserDataURL:          in.UserDataURL,
		UserDataVerifyingKey: in.UserDataVerifyingKey,
	}
	return b
}

// WithDVRVerifyingKey sets the key a verifier should use to check the DVR's
// own signature, as an alternative to carrying jku/kid in the JWS header.
func (b *DVRBuilder) WithDVRVerifyingKey(option keys.PublicKeyOption) *DVRBuilder {
	b.dvr.DVRVerifyingKey = option
	return b
}

// Build validates and returns the assembled DVR without signing it.
func (b *DVRBuilder) Build() (dvrmodel.DataVerificationRequest, error) {
	if err := b.dvr.Validate(); err != nil {
		return dvrmodel.DataVerificationRequest{}, err
	}
	return b.dvr, nil
}

// Sign validates, signs the DVR as a JWS under signingKey, and returns both
// the signed token and the DVR itself (for the caller to record in a
// DVRTable). jku/kid are carried in the JWS header when non-empty.
func (b *DVRBuilder) Sign(ctx context.Context, signingKey *ecdsa.PrivateKey, jku, kid string) (string, dvrmodel.DataVerificationRequest, error) {
	dvr, err := b.Build()
	if err != nil {
		return "", dvrmodel.DataVerificationRequest{}, err
	}

	token, err := jose.SignJWS(dvr, signingKey, jku, kid)
	if err != nil {
		return "", dvrmodel.DataVerificationRequest{}, fmt.Errorf("sign dvr: %w", err)
	}

	return token, dvr, nil
}
