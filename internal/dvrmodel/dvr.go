// Package dvrmodel defines the Data Verification Request and its companion
// wire types: the query binding a Proof Verifier hands to a Data Holder, the
// digest that pins its content, and the signed proof that comes back.
package dvrmodel

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"regexp"
	"sort"

	"github.com/gl-zkPass/zkpass-core/internal/keys"
	"github.com/gl-zkPass/zkpass-core/internal/zkerr"
)

// ZkVM names a query-engine backend. Only "r0" and "sp1" are recognized at
// runtime; this type does not enumerate them so new backends can register
// themselves without a dvrmodel change.
type ZkVM string

// UserDataRequest is one entry of a DVR's user_data_requests map: where to
// fetch that tag's user-data token, and the key that must have signed it.
type UserDataRequest struct {
	UserDataURL          string               `json:"user_data_url"`
	UserDataVerifyingKey keys.PublicKeyOption `json:"user_data_verifying_key"`
}

// DataVerificationRequest is the payload carried inside the signed DVR
// token.
type DataVerificationRequest struct {
	ZkVM             ZkVM                       `json:"zkvm"`
	DVRTitle         string                     `json:"dvr_title"`
	DVRID            string                     `json:"dvr_id"`
	QueryEngineVer   string                     `json:"query_engine_ver"`
	QueryMethodVer   string                     `json:"query_method_ver"`
	Query            string                     `json:"query"`
	UserDataURL      string                     `json:"user_data_url,omitempty"`
	UserDataRequests map[string]UserDataRequest `json:"user_data_requests"`
	DVRVerifyingKey  keys.PublicKeyOption       `json:"dvr_verifying_key,omitempty"`
}

var tagPattern = regexp.MustCompile(`^[A-Za-z0-9_]+$`)

// Validate checks the user_data_requests invariants: the map must be
// non-empty; a single entry may carry the empty tag; with two or more
// entries every tag must be non-empty and match [A-Za-z0-9_]+.
func (dvr *DataVerificationRequest) Validate() error {
	n := len(dvr.UserDataRequests)
	if n == 0 {
		return zkerr.New(zkerr.KindInvalidParameter, "user_data_requests must not be empty")
	}

	if n == 1 {
		for tag := range dvr.UserDataRequests {
			if tag == "" {
				return nil
			}
			if !tagPattern.MatchString(tag) {
				return zkerr.New(zkerr.KindInvalidParameter, fmt.Sprintf("tag %q does not match [A-Za-z0-9_]+", tag))
			}
		}
		return nil
	}

	for tag := range dvr.UserDataRequests {
		if tag == "" {
			return zkerr.New(zkerr.KindInvalidParameter, "tag must not be empty when user_data_requests has more than one entry")
		}
		if !tagPattern.MatchString(tag) {
			return zkerr.New(zkerr.KindInvalidParameter, fmt.Sprintf("tag %q does not match [A-Za-z0-9_]+", tag))
		}
	}
	return nil
}

// CanonicalJSON serializes dvr with map keys sorted at every level, so the
// resulting bytes (and thus Digest) are independent of user_data_requests'
// original ordering.
func (dvr *DataVerificationRequest) CanonicalJSON() ([]byte, error) {
	raw, err := json.Marshal(dvr)
	if err != nil {
		return nil, fmt.Errorf("marshal dvr: %w", err)
	}

	var generic any
	if err := json.Unmarshal(raw, &generic); err != nil {
		return nil, fmt.Errorf("decode dvr for canonicalization: %w", err)
	}

	return canonicalMarshal(generic)
}

// Digest returns the SHA-256 of the DVR's canonical JSON, hex-encoded. This
// is the dvr_digest a Proof Verifier recomputes to bind a ZkPassProof back
// to the DVR it issued.
func (dvr *DataVerificationRequest) Digest() (string, error) {
	canonical, err := dvr.CanonicalJSON()
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:]), nil
}

// canonicalMarshal re-encodes a decoded JSON value with object keys sorted,
// recursively. encoding/json already sorts map[string]any keys on encode, so
// this mainly matters for documenting and testing the invariant rather than
// changing encoding/json's own behavior.
func canonicalMarshal(v any) ([]byte, error) {
	switch val := v.(type) {
	case map[string]any:
		keysSorted := make([]string, 0, len(val))
		for k := range val {
			keysSorted = append(keysSorted, k)
		}
		sort.Strings(keysSorted)

		buf := []byte{'{'}
		for i, k := range keysSorted {
			if i > 0 {
				buf = append(buf, ',')
			}
			kb, err := json.Marshal(k)
			if err != nil {
				return nil, err
			}
			buf = append(buf, kb...)
			buf = append(buf, ':')
			vb, err := canonicalMarshal(val[k])
			if err != nil {
				return nil, err
			}
			buf = append(buf, vb...)
		}
		buf = append(buf, '}')
		return buf, nil

	case []any:
		buf := []byte{'['}
		for i, item := range val {
			if i > 0 {
				buf = append(buf, ',')
			}
			ib, err := canonicalMarshal(item)
			if err != nil {
				return nil, err
			}
			buf = append(buf, ib...)
		}
		buf = append(buf, ']')
		return buf, nil

	default:
		return json.Marshal(val)
	}
}
