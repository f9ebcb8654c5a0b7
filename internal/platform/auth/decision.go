package auth

import (
	"context"
	"fmt"
	"strings"
)

// SearchParam is one query parameter of a search interaction, in declaration
// order. Name keeps any modifier suffix (":exact", ":iterate", ...); Value
// is the raw value, possibly a comma-delimited OR list.
type SearchParam struct {
	Name  string
	Value string
}

// VerifyResourceIDRequest authorizes a read-by-id interaction. Instance-level
// compartment membership cannot be decided without the resource body, so it
// is deferred to VerifyResourceContentRequest once the body is available.
func (s *TokenSession) VerifyResourceIDRequest(ctx context.Context, resourceType, resourceID, privilege string) error {
	return s.finish("read", s.verifyResourceID(ctx, resourceType, resourceID, privilege))
}

func (s *TokenSession) verifyResourceID(ctx context.Context, resourceType, resourceID, privilege string) error {
	enforced, err := s.begin(ctx)
	if err != nil || !enforced {
		return err
	}
	if !HasScope(s.dominantScopes(), resourceType, privilege) {
		return s.missingScope(resourceType, privilege)
	}
	return nil
}

// VerifyResourceContentRequest authorizes access to a concrete resource
// document. Under patient scopes a Patient resource must be the patient in
// context, a globally shared resource type passes only when the caller opts
// in via allowShared, and anything else must belong to the patient
// compartment.
func (s *TokenSession) VerifyResourceContentRequest(ctx context.Context, resource map[string]interface{}, privilege string, allowShared bool) error {
	return s.finish("content", s.verifyResourceContent(ctx, resource, privilege, allowShared))
}

func (s *TokenSession) verifyResourceContent(ctx context.Context, resource map[string]interface{}, privilege string, allowShared bool) error {
	enforced, err := s.begin(ctx)
	if err != nil || !enforced {
		return err
	}
	resourceType := resourceTypeOf(resource)
	if !HasScope(s.dominantScopes(), resourceType, privilege) {
		return s.missingScope(resourceType, privilege)
	}
	if s.dominantClass() == ScopeClassPatient {
		return s.verifyPatientContent(resource, allowShared)
	}
	return nil
}

// verifyPatientContent applies the patient-scope content rules to a single
// resource document.
func (s *TokenSession) verifyPatientContent(resource map[string]interface{}, allowShared bool) error {
	resourceType := resourceTypeOf(resource)
	patientCtx := s.PatientContext()

	if resourceType == "Patient" {
		if resourceIDOf(resource) != patientCtx {
			return Forbidden("patient_mismatch", "Patient/%s is not the patient in context (Patient/%s)", resourceIDOf(resource), patientCtx)
		}
		return nil
	}

	if s.cfg.Schema.IsSharedResourceType(resourceType) {
		if !allowShared {
			return Forbidden("shared_resource", "shared resource type %s is not readable in this interaction under patient scopes", resourceType)
		}
		return nil
	}

	want := "Patient/" + patientCtx
	for _, ref := range s.cfg.Schema.CompartmentsOf(resource) {
		if ref == want {
			return nil
		}
	}
	return Forbidden("outside_compartment", "%s/%s is outside the %s compartment", resourceType, resourceIDOf(resource), want)
}

// VerifyHistoryResponse authorizes an instance-history response bundle.
// Under patient scopes only the most recent entry matching the requested
// resource type is checked for compartment membership; older versions are
// not re-checked. Entries of other types or without a resource are skipped,
// and an empty bundle passes trivially.
func (s *TokenSession) VerifyHistoryResponse(ctx context.Context, resourceType string, bundle map[string]interface{}, privilege string) error {
	return s.finish("history", s.verifyHistoryResponse(ctx, resourceType, bundle, privilege))
}

func (s *TokenSession) verifyHistoryResponse(ctx context.Context, resourceType string, bundle map[string]interface{}, privilege string) error {
	enforced, err := s.begin(ctx)
	if err != nil || !enforced {
		return err
	}
	if !HasScope(s.dominantScopes(), resourceType, privilege) {
		return s.missingScope(resourceType, privilege)
	}
	if s.dominantClass() != ScopeClassPatient || bundle == nil {
		return nil
	}

	entries, _ := bundle["entry"].([]interface{})
	for _, e := range entries {
		entry, ok := e.(map[string]interface{})
		if !ok {
			continue
		}
		resource, ok := entry["resource"].(map[string]interface{})
		if !ok {
			continue
		}
		if resourceTypeOf(resource) != resourceType {
			continue
		}
		// History bundles are newest-first; only the current version
		// carries reliable compartment references.
		return s.verifyPatientContent(resource, false)
	}
	return nil
}

// VerifySearchRequest authorizes a search interaction before execution. It
// resets and may set the VerifySearchResults flag: when the query cannot be
// proven safe in advance (no patient pin, or an ambiguous include), the
// caller must re-check every returned resource after executing the search.
func (s *TokenSession) VerifySearchRequest(ctx context.Context, resourceType, compartmentType, compartmentID string, params []SearchParam, privilege string) error {
	return s.finish("search", s.verifySearchRequest(ctx, resourceType, compartmentType, compartmentID, params, privilege))
}

func (s *TokenSession) verifySearchRequest(ctx context.Context, resourceType, compartmentType, compartmentID string, params []SearchParam, privilege string) error {
	s.verifySearchResults = false

	enforced, err := s.begin(ctx)
	if err != nil || !enforced {
		return err
	}
	if s.dominantClass() == ScopeClassPatient {
		return s.verifyPatientSearch(resourceType, compartmentType, compartmentID, params, privilege)
	}
	return s.verifyUserSearch(resourceType, params, privilege)
}

func (s *TokenSession) verifyPatientSearch(resourceType, compartmentType, compartmentID string, params []SearchParam, privilege string) error {
	scopes := s.clinicalScopes[ScopeClassPatient]
	if !HasScope(scopes, resourceType, privilege) {
		return s.missingScope(resourceType, privilege)
	}

	patientCtx := s.PatientContext()
	if compartmentType == "Patient" && compartmentID != patientCtx {
		return Forbidden("compartment_mismatch", "Patient compartment %s is not the patient in context (%s)", compartmentID, patientCtx)
	}

	pinned := false
	ambiguous := false

	for i := len(params) - 1; i >= 0; i-- {
		p := params[i]
		name, _ := splitParamModifier(p.Name)

		switch {
		case name == "_id":
			if resourceType != "Patient" {
				continue
			}
			// Repeating the context id is fine; naming anyone else is not.
			for _, v := range splitParamValues(p.Value) {
				if v != patientCtx {
					return Forbidden("id_mismatch", "_id %q on a Patient search names a patient outside the launch context", v)
				}
			}
			pinned = true

		case name == "_include" || name == "_revinclude":
			targets, err := s.includeTargets(name, p.Value)
			if err != nil {
				return err
			}
			if len(targets) == 1 {
				if !HasScope(scopes, targets[0], privilege) {
					return s.missingScope(targets[0], privilege)
				}
			} else if len(targets) > 1 {
				if !anyScope(scopes, targets, privilege) {
					return Forbidden("insufficient_scope", "no patient-class scope covers any %s target of %q", name, p.Value)
				}
				// Cannot prove which target type the server will return.
				ambiguous = true
			}

		case isChainedParam(name):
			return Forbidden("chained_param", "chained search parameter %q is not allowed under patient scopes", p.Name)

		default:
			def, err := s.cfg.Schema.SearchParamDef(resourceType, name)
			if err != nil {
				return fmt.Errorf("resolving search parameter %q on %s: %w", name, resourceType, err)
			}
			if def.Type != "reference" || !containsType(def.Target, "Patient") {
				continue
			}
			singleTarget := len(def.Target) == 1
			for _, v := range splitParamValues(p.Value) {
				prefixed := strings.HasPrefix(v, "Patient/")
				if !singleTarget && !prefixed {
					// Could reference a non-Patient target; undecidable here.
					continue
				}
				id := strings.TrimPrefix(v, "Patient/")
				if id != patientCtx {
					return Forbidden("reference_mismatch", "parameter %q references Patient/%s outside the launch context", p.Name, id)
				}
				pinned = true
			}
		}
	}

	if !pinned || ambiguous {
		s.verifySearchResults = true
	}
	return nil
}

func (s *TokenSession) verifyUserSearch(resourceType string, params []SearchParam, privilege string) error {
	scopes := s.clinicalScopes[ScopeClassUser]
	if !HasScope(scopes, resourceType, privilege) {
		return s.missingScope(resourceType, privilege)
	}

	for i := len(params) - 1; i >= 0; i-- {
		p := params[i]
		name, _ := splitParamModifier(p.Name)

		switch {
		case name == "_include" || name == "_revinclude":
			targets, err := s.includeTargets(name, p.Value)
			if err != nil {
				return err
			}
			if len(targets) == 1 {
				if !HasScope(scopes, targets[0], privilege) {
					return s.missingScope(targets[0], privilege)
				}
			} else if len(targets) > 1 {
				if !anyScope(scopes, targets, privilege) {
					return Forbidden("insufficient_scope", "no user-class scope covers any %s target of %q", name, p.Value)
				}
				s.verifySearchResults = true
			}

		case strings.HasPrefix(name, "_has"):
			// Reverse chain: _has:Type:param:field.
			parts := strings.Split(p.Name, ":")
			if len(parts) < 3 {
				return fmt.Errorf("malformed reverse-chain parameter %q", p.Name)
			}
			if !HasScope(scopes, parts[1], privilege) {
				return s.missingScope(parts[1], privilege)
			}

		case strings.Contains(name, "."):
			// Forward chain: param.field or param:Type.field.
			target, targets, err := s.chainTargets(resourceType, p.Name)
			if err != nil {
				return err
			}
			if target != "" {
				if !HasScope(scopes, target, privilege) {
					return s.missingScope(target, privilege)
				}
			} else if len(targets) == 1 {
				if !HasScope(scopes, targets[0], privilege) {
					return s.missingScope(targets[0], privilege)
				}
			} else if len(targets) > 1 {
				if !anyScope(scopes, targets, privilege) {
					return Forbidden("insufficient_scope", "no user-class scope covers any chain target of %q", p.Name)
				}
				s.verifySearchResults = true
			}
		}
	}
	return nil
}

// VerifySystemLevelRequest authorizes history or search across all resource
// types. Only a wildcard user-class read scope satisfies it; patient scopes
// never do.
func (s *TokenSession) VerifySystemLevelRequest(ctx context.Context) error {
	return s.finish("system", s.verifySystemLevel(ctx))
}

func (s *TokenSession) verifySystemLevel(ctx context.Context) error {
	enforced, err := s.begin(ctx)
	if err != nil || !enforced {
		return err
	}
	if s.dominantClass() == ScopeClassPatient {
		return Forbidden("system_level", "system-level interactions are not available under patient scopes")
	}
	if !HasScope(s.clinicalScopes[ScopeClassUser], "*", PrivilegeRead) {
		return Forbidden("insufficient_scope", "system-level interactions require user/*.read or user/*.*")
	}
	return nil
}

// VerifyEverythingRequest authorizes a $everything operation, which can pull
// in any resource type and therefore requires a wildcard read scope in the
// dominant class. Under patient scopes a Patient target must be the patient
// in context and an Encounter target must belong to the patient compartment.
func (s *TokenSession) VerifyEverythingRequest(ctx context.Context, resourceType, resourceID string, resource map[string]interface{}) error {
	return s.finish("everything", s.verifyEverything(ctx, resourceType, resourceID, resource))
}

func (s *TokenSession) verifyEverything(ctx context.Context, resourceType, resourceID string, resource map[string]interface{}) error {
	enforced, err := s.begin(ctx)
	if err != nil || !enforced {
		return err
	}
	class := s.dominantClass()
	if !HasScope(s.clinicalScopes[class], "*", PrivilegeRead) {
		return Forbidden("insufficient_scope", "$everything requires %s/*.read or %s/*.*", class, class)
	}
	if class != ScopeClassPatient {
		return nil
	}

	switch resourceType {
	case "Patient":
		id := resourceID
		if id == "" {
			id = resourceIDOf(resource)
		}
		if id != s.PatientContext() {
			return Forbidden("patient_mismatch", "Patient/%s $everything is not the patient in context", id)
		}
	case "Encounter":
		want := "Patient/" + s.PatientContext()
		for _, ref := range s.cfg.Schema.CompartmentsOf(resource) {
			if ref == want {
				return nil
			}
		}
		return Forbidden("outside_compartment", "Encounter/%s is outside the %s compartment", resourceID, want)
	}
	return nil
}

// VerifyResourceTypesList authorizes an interaction spanning a list of
// resource types (e.g. _type on history). Only one scope class is
// evaluated, patient-class first when both are present.
func (s *TokenSession) VerifyResourceTypesList(ctx context.Context, resourceTypes []string, privilege string) error {
	return s.finish("type-list", s.verifyResourceTypesList(ctx, resourceTypes, privilege))
}

func (s *TokenSession) verifyResourceTypesList(ctx context.Context, resourceTypes []string, privilege string) error {
	enforced, err := s.begin(ctx)
	if err != nil || !enforced {
		return err
	}
	scopes := s.clinicalScopes[ScopeClassPatient]
	if len(scopes) == 0 {
		scopes = s.clinicalScopes[ScopeClassUser]
	}
	for _, rt := range resourceTypes {
		if !HasScope(scopes, rt, privilege) {
			return s.missingScope(rt, privilege)
		}
	}
	return nil
}

// includeTargets resolves the resource type(s) an _include or _revinclude
// directive may pull into the result set. Values have the shape
// "Source:param" with an optional ":Target" narrowing the target type.
func (s *TokenSession) includeTargets(kind, value string) ([]string, error) {
	parts := strings.Split(value, ":")
	if len(parts) < 2 {
		return nil, fmt.Errorf("malformed %s value %q", kind, value)
	}
	source, param := parts[0], parts[1]

	if kind == "_revinclude" {
		// The included resources are of the source type.
		return []string{source}, nil
	}
	if len(parts) >= 3 && parts[2] != "" {
		return []string{parts[2]}, nil
	}

	def, err := s.cfg.Schema.SearchParamDef(source, param)
	if err != nil {
		return nil, fmt.Errorf("resolving %s parameter %q on %s: %w", kind, param, source, err)
	}
	return def.Target, nil
}

// chainTargets resolves a forward-chained parameter "param.field" or
// "param:Type.field". The explicit type, when present, is returned first;
// otherwise the declared targets of the reference parameter.
func (s *TokenSession) chainTargets(resourceType, name string) (string, []string, error) {
	head := name[:strings.Index(name, ".")]
	if i := strings.Index(head, ":"); i >= 0 {
		return head[i+1:], nil, nil
	}
	def, err := s.cfg.Schema.SearchParamDef(resourceType, head)
	if err != nil {
		return "", nil, fmt.Errorf("resolving chained parameter %q on %s: %w", head, resourceType, err)
	}
	return "", def.Target, nil
}

func (s *TokenSession) missingScope(resourceType, privilege string) *AuthError {
	class := s.dominantClass()
	return Forbidden("insufficient_scope", "no %s-class scope grants %s.%s", class, resourceType, privilege)
}

// isChainedParam reports whether a (modifier-stripped) parameter name is a
// forward or reverse chain.
func isChainedParam(name string) bool {
	return strings.Contains(name, ".") || strings.HasPrefix(name, "_has")
}

// splitParamModifier separates "param:modifier" into its parts. Chained
// names like "subject:Patient.name" and "_has:..." are left intact for the
// chain handlers; only plain trailing modifiers are stripped.
func splitParamModifier(name string) (string, string) {
	if strings.HasPrefix(name, "_has") || strings.Contains(name, ".") {
		return name, ""
	}
	if i := strings.Index(name, ":"); i >= 0 {
		return name[:i], name[i+1:]
	}
	return name, ""
}

// splitParamValues breaks a comma-delimited OR value list.
func splitParamValues(value string) []string {
	return strings.Split(value, ",")
}

func anyScope(scopes []ClinicalScope, resourceTypes []string, privilege string) bool {
	for _, rt := range resourceTypes {
		if HasScope(scopes, rt, privilege) {
			return true
		}
	}
	return false
}

func containsType(list []string, want string) bool {
	for _, t := range list {
		if t == want {
			return true
		}
	}
	return false
}

func resourceTypeOf(resource map[string]interface{}) string {
	t, _ := resource["resourceType"].(string)
	return t
}

func resourceIDOf(resource map[string]interface{}) string {
	id, _ := resource["id"].(string)
	return id
}
