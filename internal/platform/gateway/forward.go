package gateway

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/goccy/go-json"
	"github.com/labstack/echo/v4"

	"github.com/fhirgate/fhirgate/internal/platform/auth"
)

// forward relays the request upstream and post-processes the response where
// the decision engine requires it: instance reads and history bundles are
// content-verified, and search bundles are filtered per item when the
// request-time pass could not prove the result set safe.
func (g *Gateway) forward(c echo.Context, session *auth.TokenSession, shape *requestShape) error {
	resp, body, err := g.roundTrip(c, session.Enforced())
	if err != nil {
		g.logger.Error().Err(err).Str("path", c.Request().URL.Path).Msg("upstream request failed")
		return echo.NewHTTPError(http.StatusBadGateway)
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/fhir+json"
	}

	if resp.StatusCode != http.StatusOK || !session.Enforced() {
		return c.Blob(resp.StatusCode, contentType, body)
	}

	ctx := c.Request().Context()
	switch shape.Kind {
	case kindRead, kindVersionRead:
		resource, err := decodeDocument(body)
		if err != nil {
			return g.unverifiableUpstream(c, err)
		}
		if err := session.VerifyResourceContentRequest(ctx, resource, auth.PrivilegeRead, true); err != nil {
			return auth.RenderDenial(c, g.logger, err)
		}

	case kindInstanceHistory:
		bundle, err := decodeDocument(body)
		if err != nil {
			return g.unverifiableUpstream(c, err)
		}
		if err := session.VerifyHistoryResponse(ctx, shape.ResourceType, bundle, auth.PrivilegeRead); err != nil {
			return auth.RenderDenial(c, g.logger, err)
		}

	case kindSearch, kindCompartmentSearch:
		if session.VerifySearchResults() {
			filtered, err := g.filterBundle(ctx, session, body)
			if err != nil {
				var ae *auth.AuthError
				if errors.As(err, &ae) {
					return auth.RenderDenial(c, g.logger, err)
				}
				return g.unverifiableUpstream(c, err)
			}
			return c.Blob(resp.StatusCode, contentType, filtered)
		}
	}

	return c.Blob(resp.StatusCode, contentType, body)
}

// unverifiableUpstream rejects an upstream response that an enforced session
// needed to inspect but could not parse. Relaying it would skip the
// compartment checks, so the gateway fails closed.
func (g *Gateway) unverifiableUpstream(c echo.Context, err error) error {
	g.logger.Error().Err(err).Str("path", c.Request().URL.Path).Msg("upstream response is not verifiable")
	return echo.NewHTTPError(http.StatusBadGateway)
}

// roundTrip sends the (possibly rewound) request to the upstream server.
// The bearer token is not forwarded; the upstream trusts the gateway. An
// enforced session overrides the caller's Accept header: the post-execution
// checks parse the response, so the upstream must not content-negotiate
// away from JSON.
func (g *Gateway) roundTrip(c echo.Context, forceJSON bool) (*http.Response, []byte, error) {
	req := c.Request()

	target := *g.upstream
	target.Path = strings.TrimSuffix(g.upstream.Path, "/") + strings.TrimPrefix(req.URL.Path, "/fhir")
	target.RawQuery = req.URL.RawQuery

	up, err := http.NewRequestWithContext(req.Context(), req.Method, target.String(), req.Body)
	if err != nil {
		return nil, nil, fmt.Errorf("building upstream request: %w", err)
	}
	for name, values := range req.Header {
		if name == "Authorization" || name == "Host" {
			continue
		}
		if forceJSON && name == "Accept" {
			continue
		}
		up.Header[name] = values
	}
	if forceJSON {
		up.Header.Set("Accept", "application/fhir+json")
	}

	resp, err := g.client.Do(up)
	if err != nil {
		return nil, nil, fmt.Errorf("calling upstream: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, fmt.Errorf("reading upstream response: %w", err)
	}
	return resp, body, nil
}

// fetchResource reads a single resource from the upstream server, used when
// an authorization rule needs the document before the main round trip. A
// resource that does not exist yields (nil, nil); other non-200 statuses
// are errors.
func (g *Gateway) fetchResource(ctx context.Context, resourceType, id string) (map[string]interface{}, error) {
	target := *g.upstream
	target.Path = strings.TrimSuffix(g.upstream.Path, "/") + "/" + resourceType + "/" + id

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/fhir+json")

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("upstream returned status %d for %s/%s", resp.StatusCode, resourceType, id)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 16<<20))
	if err != nil {
		return nil, err
	}
	return decodeDocument(body)
}

// filterBundle re-checks every search result against the session and drops
// entries the patient context may not see. Shared resource types pulled in
// by _include directives remain readable.
func (g *Gateway) filterBundle(ctx context.Context, session *auth.TokenSession, body []byte) ([]byte, error) {
	bundle, err := decodeDocument(body)
	if err != nil {
		return nil, fmt.Errorf("decoding search bundle: %w", err)
	}

	entries, _ := bundle["entry"].([]interface{})
	if len(entries) == 0 {
		return body, nil
	}

	kept := make([]interface{}, 0, len(entries))
	for _, e := range entries {
		entry, ok := e.(map[string]interface{})
		if !ok {
			continue
		}
		resource, ok := entry["resource"].(map[string]interface{})
		if !ok {
			continue
		}
		err := session.VerifyResourceContentRequest(ctx, resource, auth.PrivilegeRead, true)
		if err == nil {
			kept = append(kept, entry)
			continue
		}
		var ae *auth.AuthError
		if errors.As(err, &ae) && ae.Status == http.StatusForbidden {
			// Outside the compartment; silently dropped from the result set.
			continue
		}
		return nil, err
	}

	bundle["entry"] = kept
	if _, ok := bundle["total"]; ok {
		bundle["total"] = len(kept)
	}
	return json.Marshal(bundle)
}

func decodeDocument(body []byte) (map[string]interface{}, error) {
	var doc map[string]interface{}
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, err
	}
	return doc, nil
}
