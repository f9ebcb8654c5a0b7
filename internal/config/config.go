package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Port                  string        `mapstructure:"PORT"`
	Env                   string        `mapstructure:"ENV"`
	UpstreamFHIRURL       string        `mapstructure:"UPSTREAM_FHIR_URL"`
	BaseURL               string        `mapstructure:"BASE_URL"`
	AuthIssuer            string        `mapstructure:"AUTH_ISSUER"`
	AuthClientID          string        `mapstructure:"AUTH_CLIENT_ID"`
	AuthClientSecret      string        `mapstructure:"AUTH_CLIENT_SECRET"`
	AuthJWKSURL           string        `mapstructure:"AUTH_JWKS_URL"`
	AuthSigningKey        string        `mapstructure:"AUTH_SIGNING_KEY"`
	IntrospectionURL      string        `mapstructure:"INTROSPECTION_URL"`
	IntrospectionInterval time.Duration `mapstructure:"INTROSPECTION_INTERVAL"`
	TokensPreValidated    bool          `mapstructure:"TOKENS_PREVALIDATED"`
	AudienceValidation    bool          `mapstructure:"AUDIENCE_VALIDATION"`
	CORSOrigins           []string      `mapstructure:"CORS_ORIGINS"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("BASE_URL", "http://localhost:8000/fhir")
	v.SetDefault("INTROSPECTION_INTERVAL", "5s")
	v.SetDefault("TOKENS_PREVALIDATED", false)
	v.SetDefault("AUDIENCE_VALIDATION", false)
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")

	// Bind env vars explicitly so Unmarshal picks them up
	v.BindEnv("PORT")
	v.BindEnv("ENV")
	v.BindEnv("UPSTREAM_FHIR_URL")
	v.BindEnv("BASE_URL")
	v.BindEnv("AUTH_ISSUER")
	v.BindEnv("AUTH_CLIENT_ID")
	v.BindEnv("AUTH_CLIENT_SECRET")
	v.BindEnv("AUTH_JWKS_URL")
	v.BindEnv("AUTH_SIGNING_KEY")
	v.BindEnv("INTROSPECTION_URL")
	v.BindEnv("INTROSPECTION_INTERVAL")
	v.BindEnv("TOKENS_PREVALIDATED")
	v.BindEnv("AUDIENCE_VALIDATION")
	v.BindEnv("CORS_ORIGINS")

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.CORSOrigins == nil {
		origins := v.GetString("CORS_ORIGINS")
		if origins != "" {
			cfg.CORSOrigins = strings.Split(origins, ",")
		}
	}

	if cfg.UpstreamFHIRURL == "" {
		return nil, fmt.Errorf("UPSTREAM_FHIR_URL is required")
	}

	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// IsProduction returns true when the gateway is configured for production mode.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// EnforcesAuth reports whether bearer tokens will be demanded and validated.
// With no AUTH_CLIENT_ID configured the gateway runs in open mode: every
// request is allowed through without authorization, which is only acceptable
// for development and public read-only deployments.
func (c *Config) EnforcesAuth() bool {
	return c.AuthClientID != ""
}

// Validate checks that the configuration is safe to run. A configured OAuth
// client needs an introspection endpoint, and outside development it also
// needs either a JWKS endpoint (or issuer to discover it from) or an
// explicit pre-validation declaration.
func (c *Config) Validate() error {
	if !c.EnforcesAuth() {
		if c.IsProduction() {
			return fmt.Errorf("AUTH_CLIENT_ID is required in production; refusing to start an open gateway")
		}
		return nil
	}
	if c.IntrospectionURL == "" {
		return fmt.Errorf("INTROSPECTION_URL is required when AUTH_CLIENT_ID is set")
	}
	if !c.TokensPreValidated && c.AuthJWKSURL == "" && c.AuthIssuer == "" && c.AuthSigningKey == "" {
		return fmt.Errorf("one of AUTH_JWKS_URL, AUTH_ISSUER, or AUTH_SIGNING_KEY is required unless TOKENS_PREVALIDATED is set")
	}
	if c.AudienceValidation && c.BaseURL == "" {
		return fmt.Errorf("BASE_URL is required when AUDIENCE_VALIDATION is enabled")
	}
	return nil
}
