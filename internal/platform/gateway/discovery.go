package gateway

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// SMARTConfiguration is the SMART on FHIR well-known discovery document
// advertised by the gateway on behalf of its authorization server.
type SMARTConfiguration struct {
	AuthorizationEndpoint         string   `json:"authorization_endpoint"`
	TokenEndpoint                 string   `json:"token_endpoint"`
	IntrospectionEndpoint         string   `json:"introspection_endpoint,omitempty"`
	TokenEndpointAuthMethods      []string `json:"token_endpoint_auth_methods_supported"`
	GrantTypes                    []string `json:"grant_types_supported"`
	Scopes                        []string `json:"scopes_supported"`
	ResponseTypes                 []string `json:"response_types_supported"`
	Capabilities                  []string `json:"capabilities"`
	CodeChallengeMethodsSupported []string `json:"code_challenge_methods_supported"`
}

// RegisterDiscovery mounts the SMART well-known endpoint for the given
// issuer on a route group.
func RegisterDiscovery(grp *echo.Group, issuer, introspectionURL string) {
	grp.GET("/.well-known/smart-configuration", func(c echo.Context) error {
		cfg := SMARTConfiguration{
			AuthorizationEndpoint:    issuer + "/protocol/openid-connect/auth",
			TokenEndpoint:            issuer + "/protocol/openid-connect/token",
			IntrospectionEndpoint:    introspectionURL,
			TokenEndpointAuthMethods: []string{"client_secret_basic", "client_secret_post"},
			GrantTypes:               []string{"authorization_code", "client_credentials"},
			Scopes: []string{
				"openid", "profile", "fhirUser",
				"launch", "launch/patient",
				"patient/*.read", "patient/*.write",
				"user/*.read", "user/*.write",
			},
			ResponseTypes: []string{"code"},
			Capabilities: []string{
				"launch-ehr", "launch-standalone",
				"client-public", "client-confidential-symmetric",
				"context-ehr-patient",
				"permission-patient", "permission-user",
			},
			CodeChallengeMethodsSupported: []string{"S256"},
		}
		return c.JSON(http.StatusOK, cfg)
	})
}
