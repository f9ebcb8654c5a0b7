package auth

import "testing"

func TestValidateAudience(t *testing.T) {
	tests := []struct {
		name     string
		baseURL  string
		audience string
		want     bool
	}{
		{"exact", "https://fhir.example.com/r4", "https://fhir.example.com/r4", true},
		{"trailing slash on audience", "https://fhir.example.com/r4", "https://fhir.example.com/r4/", true},
		{"trailing slash on base", "https://fhir.example.com/r4/", "https://fhir.example.com/r4", true},
		{"host case-insensitive", "https://fhir.example.com/App", "https://FHIR.Example.COM/App", true},
		{"scheme case-insensitive", "https://fhir.example.com/App", "HTTPS://fhir.example.com/App", true},
		{"path case-sensitive", "https://fhir.example.com/App", "https://fhir.example.com/app", false},
		{"different host", "https://fhir.example.com/r4", "https://other.example.com/r4", false},
		{"non-url full case-insensitive", "fhir-server", "FHIR-Server", true},
		{"non-url mismatch", "fhir-server", "other-server", false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := ValidateAudience(tc.baseURL, []string{tc.audience}); got != tc.want {
				t.Errorf("ValidateAudience(%q, %q) = %v, want %v", tc.baseURL, tc.audience, got, tc.want)
			}
		})
	}
}

func TestValidateAudience_AnyOfList(t *testing.T) {
	auds := []string{"https://other.example.com", "https://fhir.example.com/r4/"}
	if !ValidateAudience("https://fhir.example.com/r4", auds) {
		t.Error("one matching audience in the list should be enough")
	}
	if ValidateAudience("https://fhir.example.com/r4", nil) {
		t.Error("empty audience list should not match")
	}
}
