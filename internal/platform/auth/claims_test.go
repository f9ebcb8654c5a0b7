package auth

import (
	"reflect"
	"testing"
)

func TestParseClaimsMap(t *testing.T) {
	c := ParseClaimsMap(map[string]interface{}{
		"active":  true,
		"sub":     "user-1",
		"exp":     float64(1700000000),
		"aud":     "https://fhir.example.com",
		"scope":   "patient/*.read",
		"patient": "123",
	})

	if !c.Active || c.Sub != "user-1" || c.Exp != 1700000000 {
		t.Errorf("unexpected typed fields: %+v", c)
	}
	if !reflect.DeepEqual(c.Aud, []string{"https://fhir.example.com"}) {
		t.Errorf("aud = %v", c.Aud)
	}
	if c.String("patient") != "123" {
		t.Errorf("patient claim = %q, want 123", c.String("patient"))
	}
	if c.String("sub") != "user-1" || c.String("scope") != "patient/*.read" {
		t.Errorf("typed claim lookup broken: %+v", c)
	}
	if c.String("missing") != "" {
		t.Errorf("missing claim should be empty")
	}
}

func TestParseClaimsMap_AudList(t *testing.T) {
	c := ParseClaimsMap(map[string]interface{}{
		"aud": []interface{}{"https://a.example.com", "https://b.example.com"},
	})
	want := []string{"https://a.example.com", "https://b.example.com"}
	if !reflect.DeepEqual(c.Aud, want) {
		t.Errorf("aud = %v, want %v", c.Aud, want)
	}
}

func TestNormalizeScope_ScpString(t *testing.T) {
	c := ParseClaimsMap(map[string]interface{}{"scp": "patient/Observation.read launch/patient/9"})
	if c.Scope != "patient/Observation.read launch/patient/9" {
		t.Errorf("scope = %q", c.Scope)
	}
}

func TestNormalizeScope_ScpArray(t *testing.T) {
	c := ParseClaimsMap(map[string]interface{}{
		"scp": []interface{}{"patient/Observation.read", "launch/patient/9"},
	})
	if c.Scope != "patient/Observation.read launch/patient/9" {
		t.Errorf("scope = %q", c.Scope)
	}
}

func TestNormalizeScope_ScpMixedArrayAbandoned(t *testing.T) {
	c := ParseClaimsMap(map[string]interface{}{
		"scp": []interface{}{"patient/Observation.read", float64(7)},
	})
	if c.Scope != "" {
		t.Errorf("mixed-type scp should leave scope empty, got %q", c.Scope)
	}
}

func TestNormalizeScope_ScopeWins(t *testing.T) {
	c := ParseClaimsMap(map[string]interface{}{
		"scope": "user/*.read",
		"scp":   "patient/*.read",
	})
	if c.Scope != "user/*.read" {
		t.Errorf("scope claim should take precedence, got %q", c.Scope)
	}
}
