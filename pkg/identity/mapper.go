package identity

import (
	"github.com/platinummonkey/vestibule/pkg/cognito"
)

// AttributeMap maps Cognito attribute names to local field names. It
// is configured once and applied identically on every authentication.
type AttributeMap map[string]string

// DefaultAttributeMap returns the mapping used when none is configured.
func DefaultAttributeMap() AttributeMap {
	return AttributeMap{
		"email":       "email",
		"given_name":  "first_name",
		"family_name": "last_name",
	}
}

// Reverse returns the local-field-to-provider-attribute inverse,
// used when pushing values back to Cognito (sign-up, profile update).
func (m AttributeMap) Reverse() map[string]string {
	inverse := make(map[string]string, len(m))
	for provider, field := range m {
		inverse[field] = provider
	}
	return inverse
}

// MapAttributes partitions a provider attribute list against the
// mapping: attributes whose name appears in m come back under their
// local field name, the leftovers under their raw provider name.
// Every input key lands in exactly one of the two maps; values pass
// through untouched.
func MapAttributes(attrs []cognito.Attribute, m AttributeMap) (fields, extra map[string]string) {
	fields = make(map[string]string)
	extra = make(map[string]string)
	for _, attr := range attrs {
		if field, ok := m[attr.Name]; ok {
			fields[field] = attr.Value
		} else {
			extra[attr.Name] = attr.Value
		}
	}
	return fields, extra
}

// ToProviderAttributes converts local field values back into provider
// attributes via the reverse mapping. Fields with no provider name are
// passed through under their own name, which lets callers address raw
// or custom attributes directly.
func ToProviderAttributes(fields map[string]string, m AttributeMap) []cognito.Attribute {
	inverse := m.Reverse()
	attrs := make([]cognito.Attribute, 0, len(fields))
	for field, value := range fields {
		name := field
		if provider, ok := inverse[field]; ok {
			name = provider
		}
		attrs = append(attrs, cognito.Attribute{Name: name, Value: value})
	}
	return attrs
}
