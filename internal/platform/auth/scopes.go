package auth

import (
	"strings"
)

// ScopeClass is the SMART clinical scope class: patient-level scopes bind
// access to the patient in launch context, user-level scopes to the
// authenticated user's own privileges.
type ScopeClass string

const (
	ScopeClassPatient ScopeClass = "patient"
	ScopeClassUser    ScopeClass = "user"
)

// ClinicalScope is one parsed clinical scope entry. Either field may be the
// wildcard "*".
type ClinicalScope struct {
	ResourceType string
	Privilege    string // "read", "write", or "*"
}

// Privilege constants for the per-interaction checks.
const (
	PrivilegeRead  = "read"
	PrivilegeWrite = "write"
)

// SplitScopes breaks a space-delimited scope claim into its raw scope
// tokens, dropping empty runs.
func SplitScopes(scope string) []string {
	return strings.Fields(scope)
}

// ParseClinicalScopes classifies raw scope tokens into patient- and
// user-class clinical scopes. Tokens that are not clinical scopes (openid,
// launch/..., fhirUser, ...) are silently ignored; they are not an error.
// Order within each class is preserved.
func ParseClinicalScopes(scopeList []string) map[ScopeClass][]ClinicalScope {
	out := make(map[ScopeClass][]ClinicalScope)
	for _, raw := range scopeList {
		var class ScopeClass
		switch {
		case strings.HasPrefix(raw, "patient/"):
			class = ScopeClassPatient
		case strings.HasPrefix(raw, "user/"):
			class = ScopeClassUser
		default:
			continue
		}

		rest := raw[len(class)+1:]
		resourceType := rest
		privilege := ""
		if i := strings.Index(rest, "."); i >= 0 {
			resourceType = rest[:i]
			privilege = rest[i+1:]
		}
		out[class] = append(out[class], ClinicalScope{
			ResourceType: resourceType,
			Privilege:    privilege,
		})
	}
	return out
}

// HasScope reports whether any entry in the list covers the requested
// resource type and privilege. Wildcards on either side of a granted entry
// match everything, so a grant of "*.*" covers every concrete pair.
func HasScope(scopes []ClinicalScope, resourceType, privilege string) bool {
	for _, s := range scopes {
		if !scopeSegmentMatches(s.ResourceType, resourceType) {
			continue
		}
		if !scopeSegmentMatches(s.Privilege, privilege) {
			continue
		}
		return true
	}
	return false
}

func scopeSegmentMatches(granted, requested string) bool {
	return granted == "*" || granted == requested
}
