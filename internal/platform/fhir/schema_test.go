package fhir

import "testing"

func TestSchema_SearchParamDef(t *testing.T) {
	s := NewSchema()

	def, err := s.SearchParamDef("Observation", "subject")
	if err != nil {
		t.Fatalf("SearchParamDef: %v", err)
	}
	if def.Type != "reference" || len(def.Target) == 0 {
		t.Errorf("Observation.subject def = %+v", def)
	}

	def, err = s.SearchParamDef("Condition", "_id")
	if err != nil {
		t.Fatalf("universal param: %v", err)
	}
	if def.Type != "token" {
		t.Errorf("_id type = %q", def.Type)
	}

	if _, err := s.SearchParamDef("Observation", "no-such-param"); err == nil {
		t.Error("unknown parameter should error")
	}
}

func TestSchema_ResultParamsAreUniversal(t *testing.T) {
	s := NewSchema()
	for _, name := range []string{"_format", "_pretty", "_summary", "_elements", "_total", "_contained"} {
		def, err := s.SearchParamDef("Observation", name)
		if err != nil {
			t.Errorf("%s: %v", name, err)
			continue
		}
		if def.Type == "reference" {
			t.Errorf("%s must not be a reference parameter", name)
		}
	}
}

func TestSchema_IsSharedResourceType(t *testing.T) {
	s := NewSchema()
	for _, rt := range []string{"Medication", "Organization", "Practitioner", "ValueSet"} {
		if !s.IsSharedResourceType(rt) {
			t.Errorf("%s should be shared", rt)
		}
	}
	for _, rt := range []string{"Observation", "Patient", "Encounter"} {
		if s.IsSharedResourceType(rt) {
			t.Errorf("%s should not be shared", rt)
		}
	}
}
