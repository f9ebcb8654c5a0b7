package config

import (
	"os"
	"testing"
	"time"
)

func TestLoad_RequiresUpstreamURL(t *testing.T) {
	os.Unsetenv("UPSTREAM_FHIR_URL")
	_, err := Load()
	if err == nil {
		t.Fatal("expected error when UPSTREAM_FHIR_URL is missing")
	}
}

func TestLoad_Defaults(t *testing.T) {
	os.Setenv("UPSTREAM_FHIR_URL", "http://localhost:8080/fhir")
	defer os.Unsetenv("UPSTREAM_FHIR_URL")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Port != "8000" {
		t.Errorf("expected default port 8000, got %s", cfg.Port)
	}
	if cfg.IntrospectionInterval != 5*time.Second {
		t.Errorf("expected default introspection interval 5s, got %s", cfg.IntrospectionInterval)
	}
	if cfg.AudienceValidation {
		t.Error("audience validation must default to off")
	}
	if cfg.TokensPreValidated {
		t.Error("tokens must not be treated as pre-validated by default")
	}
	if !cfg.IsDev() {
		t.Errorf("expected development env by default, got %s", cfg.Env)
	}
}

func TestLoad_FromEnv(t *testing.T) {
	os.Setenv("UPSTREAM_FHIR_URL", "http://hapi:8080/fhir")
	os.Setenv("AUTH_CLIENT_ID", "fhir-gateway")
	os.Setenv("INTROSPECTION_URL", "http://keycloak:8080/introspect")
	os.Setenv("INTROSPECTION_INTERVAL", "10s")
	defer func() {
		os.Unsetenv("UPSTREAM_FHIR_URL")
		os.Unsetenv("AUTH_CLIENT_ID")
		os.Unsetenv("INTROSPECTION_URL")
		os.Unsetenv("INTROSPECTION_INTERVAL")
	}()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.UpstreamFHIRURL != "http://hapi:8080/fhir" {
		t.Errorf("UpstreamFHIRURL = %s", cfg.UpstreamFHIRURL)
	}
	if cfg.AuthClientID != "fhir-gateway" {
		t.Errorf("AuthClientID = %s", cfg.AuthClientID)
	}
	if cfg.IntrospectionInterval != 10*time.Second {
		t.Errorf("IntrospectionInterval = %s", cfg.IntrospectionInterval)
	}
}

func TestConfig_EnforcesAuth(t *testing.T) {
	c := &Config{}
	if c.EnforcesAuth() {
		t.Error("no client id should mean open mode")
	}
	c.AuthClientID = "fhir-gateway"
	if !c.EnforcesAuth() {
		t.Error("configured client id should enforce auth")
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{
			name: "open mode in development",
			cfg:  Config{Env: "development"},
		},
		{
			name:    "open mode refused in production",
			cfg:     Config{Env: "production"},
			wantErr: true,
		},
		{
			name:    "client without introspection url",
			cfg:     Config{AuthClientID: "c"},
			wantErr: true,
		},
		{
			name:    "client without any validation source",
			cfg:     Config{AuthClientID: "c", IntrospectionURL: "http://x/introspect"},
			wantErr: true,
		},
		{
			name: "pre-validated tokens need no jwks",
			cfg:  Config{AuthClientID: "c", IntrospectionURL: "http://x/introspect", TokensPreValidated: true},
		},
		{
			name: "jwks url suffices",
			cfg:  Config{AuthClientID: "c", IntrospectionURL: "http://x/introspect", AuthJWKSURL: "http://x/certs"},
		},
		{
			name: "issuer suffices",
			cfg:  Config{AuthClientID: "c", IntrospectionURL: "http://x/introspect", AuthIssuer: "http://x/realms/r"},
		},
		{
			name:    "audience validation needs base url",
			cfg:     Config{AuthClientID: "c", IntrospectionURL: "http://x/introspect", TokensPreValidated: true, AudienceValidation: true},
			wantErr: true,
		},
		{
			name: "audience validation with base url",
			cfg:  Config{AuthClientID: "c", IntrospectionURL: "http://x/introspect", TokensPreValidated: true, AudienceValidation: true, BaseURL: "http://x/fhir"},
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.cfg.Validate()
			if (err != nil) != tc.wantErr {
				t.Errorf("Validate() = %v, wantErr %v", err, tc.wantErr)
			}
		})
	}
}

func TestConfig_IsDev(t *testing.T) {
	c := &Config{Env: "development"}
	if !c.IsDev() {
		t.Error("expected IsDev() to return true for development")
	}

	c.Env = "production"
	if c.IsDev() {
		t.Error("expected IsDev() to return false for production")
	}
	if !c.IsProduction() {
		t.Error("expected IsProduction() to return true for production")
	}
}
