package auth

import (
	"strings"
)

// Claims is the structured result of token validation or introspection.
// The well-known OAuth2/SMART fields are typed; everything else the issuer
// put in the token lands in Extra so context derivation hooks can read
// deployment-specific claims (patient, encounter, fhirUser, ...).
type Claims struct {
	Active bool
	Sub    string
	Exp    int64 // epoch seconds; 0 means no time-based expiry
	Aud    []string
	Scope  string
	Extra  map[string]interface{}
}

// ParseClaimsMap converts a raw JSON claim document into typed Claims.
// Unrecognized fields are preserved verbatim in Extra.
func ParseClaimsMap(m map[string]interface{}) *Claims {
	c := &Claims{Extra: make(map[string]interface{})}
	for k, v := range m {
		switch k {
		case "active":
			b, _ := v.(bool)
			c.Active = b
		case "sub":
			s, _ := v.(string)
			c.Sub = s
		case "exp":
			c.Exp = toEpoch(v)
		case "aud":
			c.Aud = toStringList(v)
		case "scope":
			s, _ := v.(string)
			c.Scope = s
		default:
			c.Extra[k] = v
		}
	}
	c.normalizeScope()
	return c
}

// String returns the named claim as a string, or "" when absent or not
// string-valued. Typed fields are consulted before Extra.
func (c *Claims) String(name string) string {
	if c == nil {
		return ""
	}
	switch name {
	case "sub":
		return c.Sub
	case "scope":
		return c.Scope
	}
	s, _ := c.Extra[name].(string)
	return s
}

// normalizeScope compensates for issuers that put scopes in an "scp" claim
// instead of "scope". The alternate value may be a space-delimited string or
// an array of plain strings; anything else abandons reconstruction, leaving
// the scope empty (which later fails the must-have-scopes invariant).
func (c *Claims) normalizeScope() {
	if c.Scope != "" {
		return
	}
	switch v := c.Extra["scp"].(type) {
	case string:
		c.Scope = v
	case []interface{}:
		parts := make([]string, 0, len(v))
		for _, e := range v {
			s, ok := e.(string)
			if !ok {
				return
			}
			parts = append(parts, s)
		}
		c.Scope = strings.Join(parts, " ")
	}
}

// toEpoch coerces the various JSON encodings of an exp claim to epoch seconds.
func toEpoch(v interface{}) int64 {
	switch n := v.(type) {
	case float64:
		return int64(n)
	case int64:
		return n
	case int:
		return int64(n)
	}
	return 0
}

// toStringList coerces an aud claim, which may be a single string or a list.
func toStringList(v interface{}) []string {
	switch a := v.(type) {
	case string:
		return []string{a}
	case []interface{}:
		var out []string
		for _, e := range a {
			if s, ok := e.(string); ok {
				out = append(out, s)
			}
		}
		return out
	case []string:
		return a
	}
	return nil
}
