package auth

// SearchParamDef describes a search parameter as the decision engine needs
// it: its type and, for reference parameters, the resource types it can
// point at.
type SearchParamDef struct {
	Type   string // "reference", "token", "string", ...
	Target []string
}

// Schema is the resource-model capability the decision engine consults. It
// is supplied by the deployment (see the fhir package for the R4 model);
// the engine itself knows nothing about resource structure.
type Schema interface {
	// CompartmentsOf returns the compartment memberships of a resource
	// document as "ResourceType/id" reference strings.
	CompartmentsOf(resource map[string]interface{}) []string

	// IsSharedResourceType reports whether the resource type is globally
	// shared rather than patient-bound (Medication, Organization, ...).
	IsSharedResourceType(resourceType string) bool

	// SearchParamDef resolves a search parameter definition. An unknown
	// parameter name is a caller contract violation and returns an error
	// that is not part of the 401/403 taxonomy.
	SearchParamDef(resourceType, name string) (*SearchParamDef, error)
}
