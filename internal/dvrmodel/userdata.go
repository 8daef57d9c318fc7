package dvrmodel

import (
	"encoding/json"
	"fmt"
	"strings"
)

// publicAnnotationPrefix/Suffix bracket the sibling boolean key that marks a
// field as queryable without a zkVM proof, e.g. "_age_zkpass_public_".
const (
	publicAnnotationPrefix = "_"
	publicAnnotationSuffix = "_zkpass_public_"
)

// UserData is an arbitrary JSON object signed by a Data Issuer. Leaf fields
// may be annotated public via a sibling boolean key of the form
// "_<field>_zkpass_public_" set to true.
type UserData map[string]any

// PublicAnnotationKey returns the sibling key name that marks field as
// public.
func PublicAnnotationKey(field string) string {
	return publicAnnotationPrefix + field + publicAnnotationSuffix
}

// IsPublicField reports whether field is marked public in data: the sibling
// "_<field>_zkpass_public_" key exists and is exactly the boolean true.
func (d UserData) IsPublicField(field string) bool {
	v, ok := d[PublicAnnotationKey(field)]
	if !ok {
		return false
	}
	b, ok := v.(bool)
	return ok && b
}

// FieldForAnnotationKey extracts the field name from a public-annotation key,
// returning ("", false) if key is not one.
func FieldForAnnotationKey(key string) (string, bool) {
	if !strings.HasPrefix(key, publicAnnotationPrefix) || !strings.HasSuffix(key, publicAnnotationSuffix) ||
		len(key) <= len(publicAnnotationPrefix)+len(publicAnnotationSuffix) {
		return "", false
	}
	field := key[len(publicAnnotationPrefix) : len(key)-len(publicAnnotationSuffix)]
	if field == "" {
		return "", false
	}
	return field, true
}

// ParseUserData decodes a JWS payload's data claim into a UserData map.
func ParseUserData(raw json.RawMessage) (UserData, error) {
	var ud UserData
	if err := json.Unmarshal(raw, &ud); err != nil {
		return nil, fmt.Errorf("decode user data payload: %w", err)
	}
	return ud, nil
}

// TaggedTokens is the shape of the outer user-data JWS payload when a DVR
// names more than one user_data_requests tag: a map from tag to that tag's
// inner JWS compact-serialization string.
type TaggedTokens map[string]string
