package auth

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

const sessionContextKey = "auth_session"

// Middleware builds a per-request TokenSession from the Authorization header
// and validates it. This is the single place the 401/403 taxonomy is mapped
// to HTTP: denials respond with the bare status code only, while the
// diagnostic is written to the operational log.
//
// A request without a bearer token gets a session in no-enforcement mode;
// whether that is acceptable is the deployment's decision (public discovery
// endpoints are skipped here entirely).
func Middleware(cfg SessionConfig, logger zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if IsPublicPath(c.Request().URL.Path) {
				return next(c)
			}

			token, err := bearerToken(c.Request())
			if err != nil {
				logDenial(logger, c, Unauthenticated("malformed_header", "%v", err))
				return echo.NewHTTPError(http.StatusUnauthorized)
			}

			session := NewTokenSession(cfg)
			if err := session.SetInstance(c.Request().Context(), token); err != nil {
				return RenderDenial(c, logger, err)
			}

			c.Set(sessionContextKey, session)
			return next(c)
		}
	}
}

// SessionFromEcho returns the validated session stashed by Middleware, or
// nil when the route was not behind it.
func SessionFromEcho(c echo.Context) *TokenSession {
	s, _ := c.Get(sessionContextKey).(*TokenSession)
	return s
}

// RenderDenial maps an authorization error to its HTTP response: the bare
// status for the 401/403 taxonomy, 500 for anything else. The diagnostic
// never reaches the caller.
func RenderDenial(c echo.Context, logger zerolog.Logger, err error) error {
	var ae *AuthError
	if errors.As(err, &ae) {
		logDenial(logger, c, ae)
		return echo.NewHTTPError(ae.Status)
	}
	logger.Error().
		Err(err).
		Str("method", c.Request().Method).
		Str("path", c.Request().URL.Path).
		Msg("authorization check failed")
	return echo.NewHTTPError(http.StatusInternalServerError)
}

func logDenial(logger zerolog.Logger, c echo.Context, ae *AuthError) {
	rid, _ := c.Get("request_id").(string)
	logger.Warn().
		Str("request_id", rid).
		Str("method", c.Request().Method).
		Str("path", c.Request().URL.Path).
		Int("status", ae.Status).
		Str("code", ae.Code).
		Str("diagnostic", ae.Diagnostic).
		Msg("request denied")
}

// bearerToken extracts the bearer token from the Authorization header. A
// missing header is not an error; it selects no-enforcement mode.
func bearerToken(r *http.Request) (string, error) {
	h := r.Header.Get("Authorization")
	if h == "" {
		return "", nil
	}
	parts := strings.SplitN(h, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return "", errors.New("authorization header is not a bearer token")
	}
	return parts[1], nil
}
