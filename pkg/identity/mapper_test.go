package identity

import (
	"testing"

	"github.com/platinummonkey/vestibule/pkg/cognito"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMapAttributes_DefaultMapping(t *testing.T) {
	attrs := []cognito.Attribute{
		{Name: "email", Value: "a@x.com"},
		{Name: "given_name", Value: "A"},
		{Name: "family_name", Value: "B"},
	}

	fields, extra := MapAttributes(attrs, DefaultAttributeMap())

	assert.Equal(t, map[string]string{
		"email":      "a@x.com",
		"first_name": "A",
		"last_name":  "B",
	}, fields)
	assert.Empty(t, extra)
}

func TestMapAttributes_PartitionsEveryKey(t *testing.T) {
	attrs := []cognito.Attribute{
		{Name: "email", Value: "a@x.com"},
		{Name: "sub", Value: "uuid-1"},
		{Name: "custom:api_key", Value: "k-123"},
		{Name: "phone_number", Value: "+15551234"},
	}
	mapping := AttributeMap{
		"email":          "email",
		"custom:api_key": "api_key",
	}

	fields, extra := MapAttributes(attrs, mapping)

	// Every key lands in exactly one map, none duplicated or dropped
	assert.Len(t, fields, 2)
	assert.Len(t, extra, 2)
	assert.Equal(t, "a@x.com", fields["email"])
	assert.Equal(t, "k-123", fields["api_key"])
	assert.Equal(t, "uuid-1", extra["sub"])
	assert.Equal(t, "+15551234", extra["phone_number"])

	for name := range extra {
		_, mapped := mapping[name]
		assert.False(t, mapped, "extra key %q must not be in the mapping", name)
	}
}

func TestMapAttributes_EmptyInputs(t *testing.T) {
	fields, extra := MapAttributes(nil, DefaultAttributeMap())
	assert.Empty(t, fields)
	assert.Empty(t, extra)

	fields, extra = MapAttributes([]cognito.Attribute{{Name: "sub", Value: "u"}}, nil)
	assert.Empty(t, fields)
	assert.Equal(t, map[string]string{"sub": "u"}, extra)
}

func TestMapAttributes_ValuesPassThroughUntouched(t *testing.T) {
	// No coercion: provider-typed strings come back verbatim
	attrs := []cognito.Attribute{
		{Name: "email_verified", Value: "true"},
		{Name: "custom:count", Value: "42"},
	}
	fields, extra := MapAttributes(attrs, AttributeMap{"custom:count": "count"})
	assert.Equal(t, "42", fields["count"])
	assert.Equal(t, "true", extra["email_verified"])
}

func TestReverse(t *testing.T) {
	inverse := DefaultAttributeMap().Reverse()
	assert.Equal(t, map[string]string{
		"email":      "email",
		"first_name": "given_name",
		"last_name":  "family_name",
	}, inverse)
}

func TestToProviderAttributes(t *testing.T) {
	attrs := ToProviderAttributes(map[string]string{
		"email":      "a@x.com",
		"first_name": "A",
		"last_name":  "B",
	}, DefaultAttributeMap())

	require.Len(t, attrs, 3)
	byName := map[string]string{}
	for _, a := range attrs {
		byName[a.Name] = a.Value
	}
	assert.Equal(t, "a@x.com", byName["email"])
	assert.Equal(t, "A", byName["given_name"])
	assert.Equal(t, "B", byName["family_name"])
}

func TestToProviderAttributes_UnmappedFieldKeepsItsName(t *testing.T) {
	attrs := ToProviderAttributes(map[string]string{"custom:plan": "pro"}, DefaultAttributeMap())
	require.Len(t, attrs, 1)
	assert.Equal(t, cognito.Attribute{Name: "custom:plan", Value: "pro"}, attrs[0])
}
