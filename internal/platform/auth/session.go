package auth

import (
	"context"
	"time"
)

// DefaultIntrospectionInterval is the lease during which a previously
// confirmed-active token is treated as still active without re-querying the
// issuer.
const DefaultIntrospectionInterval = 5 * time.Second

// UserInfo is the identity the REST layer reports for the session's user.
type UserInfo struct {
	Username string
	Roles    []string
}

// UserInfoFunc derives user info from validated claims. The default uses the
// sub claim and leaves Roles empty; deployments that encode roles in custom
// claims override this on the session config.
type UserInfoFunc func(claims *Claims) UserInfo

// SessionConfig carries the deployment-fixed collaborators and policy knobs
// of a token session. One config is built at startup and shared (read-only)
// by every per-request session.
type SessionConfig struct {
	// OAuthClient identifies the configured OAuth2 client/issuer binding.
	// Mandatory whenever a token is presented.
	OAuthClient string

	// BaseURL is the audience value expected for this deployment endpoint.
	BaseURL string

	// PreValidated declares that an upstream layer already verified the
	// token signature; the session then runs only introspection.
	PreValidated bool

	// ValidateAudience enables the audience check during validation. Off by
	// default; enabling it changes which tokens are accepted.
	ValidateAudience bool

	// IntrospectionInterval bounds how long a confirmed-active token is
	// trusted without re-introspection. Zero selects the default (5s).
	IntrospectionInterval time.Duration

	Validator    TokenValidator
	Introspector Introspector
	Schema       Schema

	// ContextValues overrides launch-context derivation; nil selects
	// DefaultContextValues.
	ContextValues ContextFunc

	// UserInfo overrides user-info derivation.
	UserInfo UserInfoFunc

	// Now overrides the clock, for tests. Nil selects time.Now.
	Now func() time.Time
}

// TokenSession owns the token lifecycle for one in-flight request: validate
// once, cache the derived privilege and context state, and periodically
// re-verify liveness against the introspection lease. It is owned
// exclusively by a single request context and is not safe for concurrent
// use.
type TokenSession struct {
	cfg SessionConfig

	token               string
	claims              *Claims
	scopeList           []string
	clinicalScopes      map[ScopeClass][]ClinicalScope
	contextValues       map[string]string
	lastIntrospection   int64 // epoch seconds; 0 means never
	verifySearchResults bool
}

// NewTokenSession constructs an empty session. SetInstance must be called
// before any authorization check.
func NewTokenSession(cfg SessionConfig) *TokenSession {
	if cfg.IntrospectionInterval <= 0 {
		cfg.IntrospectionInterval = DefaultIntrospectionInterval
	}
	if cfg.ContextValues == nil {
		cfg.ContextValues = DefaultContextValues
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &TokenSession{cfg: cfg}
}

// SetInstance resets the session and validates the given token. An empty
// token leaves the session in no-enforcement mode: every authorization check
// becomes a no-op allow, which is how unauthenticated/public deployments
// run. Any validation failure clears all state before returning, so a
// partially validated session can never leak into subsequent checks.
func (s *TokenSession) SetInstance(ctx context.Context, token string) error {
	s.reset()
	if token == "" {
		return nil
	}
	if s.cfg.OAuthClient == "" {
		return Forbidden("no_oauth_client", "bearer token presented but no OAuth client is configured")
	}

	s.token = token
	if err := s.validate(ctx); err != nil {
		s.reset()
		return err
	}
	return nil
}

func (s *TokenSession) reset() {
	s.token = ""
	s.claims = nil
	s.scopeList = nil
	s.clinicalScopes = nil
	s.contextValues = nil
	s.lastIntrospection = 0
	s.verifySearchResults = false
}

// validate runs the full validation sequence: signature verification (unless
// pre-validated), unconditional introspection, scope parsing, context
// derivation, and the provisioning invariants.
func (s *TokenSession) validate(ctx context.Context) error {
	if !s.cfg.PreValidated {
		claims, err := s.cfg.Validator.Validate(ctx, s.cfg.OAuthClient, s.token)
		if err != nil {
			return Unauthenticated("invalid_token", "token validation failed: %v", err)
		}
		if claims.Sub == "" {
			return Unauthenticated("no_subject", "token has no sub claim")
		}
		if s.cfg.ValidateAudience && !ValidateAudience(s.cfg.BaseURL, claims.Aud) {
			return Unauthenticated("audience_mismatch", "token audience %v does not match %s", claims.Aud, s.cfg.BaseURL)
		}
		s.claims = claims
	}

	if err := s.introspect(ctx, true); err != nil {
		return err
	}

	s.scopeList = SplitScopes(s.claims.Scope)
	s.clinicalScopes = ParseClinicalScopes(s.scopeList)
	s.contextValues = s.cfg.ContextValues(s.scopeList, s.claims)

	return s.checkProvisioning()
}

// introspect confirms liveness with the authorization server. During initial
// validation the working claims are replaced with the introspection result;
// on lease refresh only the lease timestamp moves.
func (s *TokenSession) introspect(ctx context.Context, replaceClaims bool) error {
	claims, err := s.cfg.Introspector.Introspect(ctx, s.cfg.OAuthClient, s.token)
	if err != nil {
		return Unauthenticated("introspection_failed", "token introspection failed: %v", err)
	}
	if !claims.Active {
		return Unauthenticated("inactive_token", "introspection reports token inactive")
	}
	if replaceClaims {
		s.claims = claims
	}
	s.lastIntrospection = s.cfg.Now().Unix()
	return nil
}

// checkProvisioning enforces the post-validation invariants atomically: at
// least one scope, at least one clinical scope class, and patient-class
// scopes paired with a patient context (in both directions). Violations are
// 403s: the token authenticated fine but is insufficiently provisioned.
func (s *TokenSession) checkProvisioning() error {
	if len(s.scopeList) == 0 {
		return Forbidden("no_scopes", "token carries no scopes")
	}
	patient := s.clinicalScopes[ScopeClassPatient]
	user := s.clinicalScopes[ScopeClassUser]
	if len(patient) == 0 && len(user) == 0 {
		return Forbidden("no_clinical_scopes", "token carries no patient- or user-class clinical scopes")
	}
	patientCtx := s.contextValues["patient"]
	if len(patient) > 0 && patientCtx == "" {
		return Forbidden("no_patient_context", "patient-class scopes require a patient launch context")
	}
	if patientCtx != "" && len(patient) == 0 {
		return Forbidden("no_patient_scope", "patient launch context requires patient-class scopes")
	}
	return nil
}

// checkAlive re-verifies token liveness before an authorization decision:
// hard expiry first, then the introspection lease. exp is optional; a token
// without one never expires by time and is subject only to the active-flag
// recheck.
func (s *TokenSession) checkAlive(ctx context.Context) error {
	now := s.cfg.Now().Unix()
	if s.claims != nil && s.claims.Exp > 0 && now > s.claims.Exp {
		return Unauthenticated("expired", "token expired at %d (now %d)", s.claims.Exp, now)
	}
	if now > s.lastIntrospection+int64(s.cfg.IntrospectionInterval/time.Second) {
		return s.introspect(ctx, false)
	}
	return nil
}

// begin is the shared preamble of every authorization check. It reports
// whether enforcement applies: a session with no token allows everything.
func (s *TokenSession) begin(ctx context.Context) (bool, error) {
	if s.token == "" {
		return false, nil
	}
	if err := s.checkAlive(ctx); err != nil {
		return false, err
	}
	return true, nil
}

// dominantClass returns the scope class governing decisions. Patient-class
// scopes dominate: when both classes are present, user scopes are ignored.
func (s *TokenSession) dominantClass() ScopeClass {
	if len(s.clinicalScopes[ScopeClassPatient]) > 0 {
		return ScopeClassPatient
	}
	return ScopeClassUser
}

func (s *TokenSession) dominantScopes() []ClinicalScope {
	return s.clinicalScopes[s.dominantClass()]
}

// HasScope reports whether the given scope class grants the resource type
// and privilege, honoring wildcards on either side.
func (s *TokenSession) HasScope(class ScopeClass, resourceType, privilege string) bool {
	return HasScope(s.clinicalScopes[class], resourceType, privilege)
}

// PatientContext returns the patient the session is scoped to, or "".
func (s *TokenSession) PatientContext() string {
	return s.contextValues["patient"]
}

// ContextValues returns a copy of all derived launch-context bindings.
func (s *TokenSession) ContextValues() map[string]string {
	out := make(map[string]string, len(s.contextValues))
	for k, v := range s.contextValues {
		out[k] = v
	}
	return out
}

// ScopeList returns the raw scope strings in their original order.
func (s *TokenSession) ScopeList() []string {
	return append([]string(nil), s.scopeList...)
}

// VerifySearchResults reports whether the last VerifySearchRequest could not
// prove the result set safe in advance; the caller must then re-check each
// returned resource after executing the search.
func (s *TokenSession) VerifySearchResults() bool {
	return s.verifySearchResults
}

// Enforced reports whether the session carries a token and therefore
// enforces authorization.
func (s *TokenSession) Enforced() bool {
	return s.token != ""
}

// UserInfo returns the identity derived from the session claims.
func (s *TokenSession) UserInfo() UserInfo {
	if s.cfg.UserInfo != nil {
		return s.cfg.UserInfo(s.claims)
	}
	if s.claims == nil {
		return UserInfo{}
	}
	return UserInfo{Username: s.claims.Sub}
}
