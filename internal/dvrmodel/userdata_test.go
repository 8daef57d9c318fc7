package dvrmodel

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserData_IsPublicField(t *testing.T) {
	ud, err := ParseUserData([]byte(`{
		"age": 25,
		"_age_zkpass_public_": true,
		"ssn": "123-45-6789"
	}`))
	require.NoError(t, err)

	assert.True(t, ud.IsPublicField("age"))
	assert.False(t, ud.IsPublicField("ssn"))
	assert.False(t, ud.IsPublicField("missing"))
}

func TestFieldForAnnotationKey(t *testing.T) {
	field, ok := FieldForAnnotationKey("_age_zkpass_public_")
	require.True(t, ok)
	assert.Equal(t, "age", field)

	_, ok = FieldForAnnotationKey("age")
	assert.False(t, ok)

	_, ok = FieldForAnnotationKey("_zkpass_public_")
	assert.False(t, ok)
}

func TestPublicAnnotationKey(t *testing.T) {
	assert.Equal(t, "_age_zkpass_public_", PublicAnnotationKey("age"))
}
