package auth

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goccy/go-json"
)

// Introspector presents a token to the authorization server's RFC 7662
// introspection endpoint and returns its claims. Implementations own their
// transport, timeout, and retry policy; the session only requires that a
// failure is reported as an error, never as a silent allow.
type Introspector interface {
	Introspect(ctx context.Context, clientID, token string) (*Claims, error)
}

// IntrospectorFunc adapts a function to the Introspector interface, letting
// deployments normalize nonstandard introspection responses without a
// wrapper type.
type IntrospectorFunc func(ctx context.Context, clientID, token string) (*Claims, error)

func (f IntrospectorFunc) Introspect(ctx context.Context, clientID, token string) (*Claims, error) {
	return f(ctx, clientID, token)
}

// HTTPIntrospector calls an OAuth2 token introspection endpoint over HTTP
// with client_secret_basic authentication.
type HTTPIntrospector struct {
	Endpoint     string
	ClientSecret string
	Client       *http.Client
}

// NewHTTPIntrospector creates an introspection client for the given endpoint
// with a 10-second default timeout.
func NewHTTPIntrospector(endpoint, clientSecret string) *HTTPIntrospector {
	return &HTTPIntrospector{
		Endpoint:     endpoint,
		ClientSecret: clientSecret,
		Client:       &http.Client{Timeout: 10 * time.Second},
	}
}

// Introspect POSTs the token to the introspection endpoint and decodes the
// claim document. A non-200 status or malformed body is an error; the caller
// decides how errors map to the 401/403 taxonomy.
func (i *HTTPIntrospector) Introspect(ctx context.Context, clientID, token string) (*Claims, error) {
	form := url.Values{}
	form.Set("token", token)
	form.Set("token_type_hint", "access_token")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, i.Endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("building introspection request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	req.SetBasicAuth(clientID, i.ClientSecret)

	resp, err := i.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling introspection endpoint: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("introspection endpoint returned status %d", resp.StatusCode)
	}

	var doc map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decoding introspection response: %w", err)
	}

	return ParseClaimsMap(doc), nil
}
