// Package gateway authorizes and forwards FHIR REST interactions to an
// upstream FHIR server. It classifies each inbound request into its
// interaction shape, runs the matching authorization check on the request's
// token session, and relays the upstream response -- filtering search and
// history bundles when the decision engine could not prove the result set
// safe in advance.
package gateway

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/fhirgate/fhirgate/internal/platform/auth"
)

// Gateway proxies FHIR interactions to the upstream server after
// authorization.
type Gateway struct {
	upstream *url.URL
	logger   zerolog.Logger
	client   *http.Client
}

// New creates a gateway for the given upstream FHIR base URL.
func New(upstreamURL string, logger zerolog.Logger) (*Gateway, error) {
	u, err := url.Parse(upstreamURL)
	if err != nil {
		return nil, fmt.Errorf("parsing upstream URL: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("upstream URL %q is not absolute", upstreamURL)
	}
	return &Gateway{
		upstream: u,
		logger:   logger,
		client:   &http.Client{Timeout: 30 * time.Second},
	}, nil
}

// Register mounts the gateway on a route group (normally /fhir).
func (g *Gateway) Register(grp *echo.Group) {
	grp.Any("", g.handle)
	grp.Any("/*", g.handle)
}

// handle authorizes one FHIR interaction and forwards it upstream.
func (g *Gateway) handle(c echo.Context) error {
	if auth.IsPublicPath(c.Request().URL.Path) {
		// Discovery and capability endpoints relay without authorization.
		resp, body, err := g.roundTrip(c, false)
		if err != nil {
			g.logger.Error().Err(err).Str("path", c.Request().URL.Path).Msg("upstream request failed")
			return echo.NewHTTPError(http.StatusBadGateway)
		}
		contentType := resp.Header.Get("Content-Type")
		if contentType == "" {
			contentType = "application/fhir+json"
		}
		return c.Blob(resp.StatusCode, contentType, body)
	}

	session := auth.SessionFromEcho(c)
	if session == nil {
		// Route was mounted without the auth middleware; refuse rather
		// than silently allow.
		return echo.NewHTTPError(http.StatusInternalServerError)
	}

	shape, err := classify(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	if err := g.authorize(c, session, shape); err != nil {
		var ae *auth.AuthError
		if errors.As(err, &ae) {
			return auth.RenderDenial(c, g.logger, err)
		}
		var he *echo.HTTPError
		if errors.As(err, &he) {
			return err
		}
		// Caller contract violation: unknown parameter, malformed value.
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	return g.forward(c, session, shape)
}
