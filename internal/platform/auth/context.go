package auth

import (
	"regexp"
	"strings"
)

// ContextFunc derives launch-context bindings (patient, encounter, ...) from
// the raw scope list and the validated claims. Deployments whose issuer
// encodes launch context differently install their own ContextFunc on the
// session config; DefaultContextValues covers the common SMART encodings.
type ContextFunc func(scopeList []string, claims *Claims) map[string]string

var contextNamePattern = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9_-]*$`)

// DefaultContextValues resolves launch context from scopes of the form
// launch/<name>/<value> (value baked into the scope by the issuer) or
// launch/<name> (value carried in a claim of the same name). The well-known
// names "patient" and "encounter" are additionally read straight from claims
// when no scope bound them.
func DefaultContextValues(scopeList []string, claims *Claims) map[string]string {
	values := make(map[string]string)

	for _, raw := range scopeList {
		if !strings.HasPrefix(raw, "launch/") {
			continue
		}
		parts := strings.Split(raw, "/")
		if len(parts) != 2 && len(parts) != 3 {
			continue
		}
		name := parts[1]
		if !contextNamePattern.MatchString(name) {
			continue
		}
		value := ""
		if len(parts) == 3 {
			value = parts[2]
		}
		if value == "" {
			value = claims.String(name)
		}
		if value != "" {
			values[name] = value
		}
	}

	for _, name := range []string{"patient", "encounter"} {
		if values[name] != "" {
			continue
		}
		if v := claims.String(name); v != "" {
			values[name] = v
		}
	}

	return values
}
