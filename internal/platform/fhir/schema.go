package fhir

import (
	"fmt"

	"github.com/fhirgate/fhirgate/internal/platform/auth"
)

// Schema is the R4 resource-model capability handed to the authorization
// engine: compartment membership, shared-type classification, and search
// parameter resolution.
type Schema struct{}

// NewSchema returns the built-in R4 schema.
func NewSchema() *Schema {
	return &Schema{}
}

// CompartmentsOf implements auth.Schema.
func (s *Schema) CompartmentsOf(resource map[string]interface{}) []string {
	return CompartmentsOf(resource)
}

// sharedResourceTypes are the definitional and infrastructure resource types
// that carry no patient data of their own and are shared across patients.
var sharedResourceTypes = map[string]bool{
	"CodeSystem":          true,
	"ConceptMap":          true,
	"Endpoint":            true,
	"HealthcareService":   true,
	"Location":            true,
	"Medication":          true,
	"MedicationKnowledge": true,
	"Organization":        true,
	"Practitioner":        true,
	"PractitionerRole":    true,
	"Questionnaire":       true,
	"Schedule":            true,
	"Slot":                true,
	"StructureDefinition": true,
	"Substance":           true,
	"ValueSet":            true,
}

// IsSharedResourceType implements auth.Schema.
func (s *Schema) IsSharedResourceType(resourceType string) bool {
	return sharedResourceTypes[resourceType]
}

// SearchParamDef implements auth.Schema. An unknown parameter name for the
// resource type is a caller contract violation, not an authorization
// failure, and is returned as a plain error.
func (s *Schema) SearchParamDef(resourceType, name string) (*auth.SearchParamDef, error) {
	if def, ok := universalParams[name]; ok {
		d := def
		return &d, nil
	}
	if params, ok := resourceParams[resourceType]; ok {
		if def, ok := params[name]; ok {
			d := def
			return &d, nil
		}
	}
	return nil, fmt.Errorf("search parameter %q is not defined for %s", name, resourceType)
}
