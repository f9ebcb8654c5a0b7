package fhir

// CompartmentDefinition maps resource types that belong to a compartment to
// the document elements whose references link them to the compartment owner.
type CompartmentDefinition struct {
	// Type is the compartment type (e.g. "Patient").
	Type string
	// Resources maps resource type -> document element names holding the
	// linking reference. An entry with no elements means the type belongs
	// to the compartment model but never links to a specific owner.
	Resources map[string][]string
}

// PatientCompartment defines which resource types belong to the Patient
// compartment and which elements link them, per the FHIR R4 spec.
var PatientCompartment = CompartmentDefinition{
	Type: "Patient",
	Resources: map[string][]string{
		"AllergyIntolerance":       {"patient"},
		"Appointment":              {"participant"},
		"CarePlan":                 {"subject"},
		"CareTeam":                 {"subject"},
		"Claim":                    {"patient"},
		"Communication":            {"subject"},
		"Composition":              {"subject"},
		"Condition":                {"subject"},
		"Consent":                  {"patient"},
		"Coverage":                 {"beneficiary"},
		"DiagnosticReport":         {"subject"},
		"DocumentReference":        {"subject"},
		"Encounter":                {"subject"},
		"Goal":                     {"subject"},
		"ImagingStudy":             {"subject"},
		"Immunization":             {"patient"},
		"MedicationAdministration": {"subject"},
		"MedicationDispense":       {"subject"},
		"MedicationRequest":        {"subject"},
		"MedicationStatement":      {"subject"},
		"Observation":              {"subject"},
		"Procedure":                {"subject"},
		"Provenance":               {"patient"},
		"QuestionnaireResponse":    {"subject"},
		"RelatedPerson":            {"patient"},
		"ServiceRequest":           {"subject"},
		"Specimen":                 {"subject"},
	},
}

// CompartmentsOf returns the compartment memberships of a resource document
// as "ResourceType/id" reference strings. A Patient resource is a member of
// its own compartment; every other type contributes the references held in
// its linking elements.
func CompartmentsOf(resource map[string]interface{}) []string {
	resourceType, _ := resource["resourceType"].(string)
	if resourceType == "" {
		return nil
	}

	if resourceType == "Patient" {
		if id, _ := resource["id"].(string); id != "" {
			return []string{"Patient/" + id}
		}
		return nil
	}

	var out []string
	for _, element := range PatientCompartment.Resources[resourceType] {
		out = append(out, referencesIn(resource[element])...)
	}
	return out
}

// referencesIn extracts "Type/id" reference strings from a document element,
// which may be a single Reference object or a list of them.
func referencesIn(v interface{}) []string {
	switch e := v.(type) {
	case map[string]interface{}:
		if ref, _ := e["reference"].(string); ref != "" {
			return []string{ref}
		}
		// Appointment.participant nests the reference under "actor".
		if actor, ok := e["actor"].(map[string]interface{}); ok {
			if ref, _ := actor["reference"].(string); ref != "" {
				return []string{ref}
			}
		}
	case []interface{}:
		var out []string
		for _, item := range e {
			out = append(out, referencesIn(item)...)
		}
		return out
	}
	return nil
}

// IsInCompartment reports whether a resource type participates in the given
// compartment model at all.
func IsInCompartment(compartment *CompartmentDefinition, resourceType string) bool {
	_, ok := compartment.Resources[resourceType]
	return ok
}
