package gateway

import (
	"bytes"
	"fmt"
	"io"
	"net/http"

	"github.com/goccy/go-json"
	"github.com/labstack/echo/v4"

	"github.com/fhirgate/fhirgate/internal/platform/auth"
)

// authorize runs the authorization check matching the request's interaction
// shape. Write interactions additionally verify the submitted resource
// content, since the compartment rules need the document body.
func (g *Gateway) authorize(c echo.Context, session *auth.TokenSession, shape *requestShape) error {
	ctx := c.Request().Context()

	switch shape.Kind {
	case kindRead, kindVersionRead, kindTypeHistory:
		return session.VerifyResourceIDRequest(ctx, shape.ResourceType, shape.ResourceID, shape.Privilege)

	case kindInstanceHistory:
		// The returned bundle is re-checked after execution.
		return session.VerifyResourceIDRequest(ctx, shape.ResourceType, shape.ResourceID, auth.PrivilegeRead)

	case kindCreate, kindUpdate:
		if err := session.VerifyResourceIDRequest(ctx, shape.ResourceType, shape.ResourceID, auth.PrivilegeWrite); err != nil {
			return err
		}
		if shape.Kind == kindUpdate {
			if err := g.verifyStoredResource(c, session, shape); err != nil {
				return err
			}
		}
		resource, err := peekResourceBody(c)
		if err != nil {
			return err
		}
		if resource == nil {
			return nil
		}
		return session.VerifyResourceContentRequest(ctx, resource, auth.PrivilegeWrite, false)

	case kindDelete:
		if err := session.VerifyResourceIDRequest(ctx, shape.ResourceType, shape.ResourceID, auth.PrivilegeWrite); err != nil {
			return err
		}
		return g.verifyStoredResource(c, session, shape)

	case kindSearch:
		return session.VerifySearchRequest(ctx, shape.ResourceType, "", "", shape.Params, auth.PrivilegeRead)

	case kindCompartmentSearch:
		return session.VerifySearchRequest(ctx, shape.ResourceType, shape.CompartmentType, shape.CompartmentID, shape.Params, auth.PrivilegeRead)

	case kindSystem:
		if len(shape.Types) > 0 {
			return session.VerifyResourceTypesList(ctx, shape.Types, auth.PrivilegeRead)
		}
		return session.VerifySystemLevelRequest(ctx)

	case kindEverything:
		var resource map[string]interface{}
		if session.Enforced() && shape.ResourceType == "Encounter" && shape.ResourceID != "" {
			// The Encounter compartment rule needs the document.
			doc, err := g.fetchResource(ctx, shape.ResourceType, shape.ResourceID)
			if err != nil {
				g.logger.Error().Err(err).Str("path", c.Request().URL.Path).Msg("authorization pre-fetch failed")
				return echo.NewHTTPError(http.StatusBadGateway)
			}
			resource = doc
		}
		return session.VerifyEverythingRequest(ctx, shape.ResourceType, shape.ResourceID, resource)
	}

	return fmt.Errorf("unclassified interaction kind %d", shape.Kind)
}

// verifyStoredResource checks the resource an update or delete will replace
// or remove. The submitted body says nothing about what is currently stored,
// so without this check a token scoped to one patient could overwrite or
// delete another patient's resource by supplying a body inside its own
// compartment.
func (g *Gateway) verifyStoredResource(c echo.Context, session *auth.TokenSession, shape *requestShape) error {
	if !session.Enforced() || shape.ResourceID == "" {
		return nil
	}
	ctx := c.Request().Context()
	current, err := g.fetchResource(ctx, shape.ResourceType, shape.ResourceID)
	if err != nil {
		g.logger.Error().Err(err).Str("path", c.Request().URL.Path).Msg("authorization pre-fetch failed")
		return echo.NewHTTPError(http.StatusBadGateway)
	}
	if current == nil {
		// Nothing stored yet: update-as-create, or deleting what is
		// already gone. The body check decides.
		return nil
	}
	return session.VerifyResourceContentRequest(ctx, current, auth.PrivilegeWrite, false)
}

// peekResourceBody decodes the request body as a resource document and
// restores it for forwarding. An empty body yields nil.
func peekResourceBody(c echo.Context) (map[string]interface{}, error) {
	body, err := io.ReadAll(io.LimitReader(c.Request().Body, 16<<20))
	if err != nil {
		return nil, fmt.Errorf("reading request body: %w", err)
	}
	c.Request().Body = io.NopCloser(bytes.NewReader(body))
	if len(body) == 0 {
		return nil, nil
	}
	var resource map[string]interface{}
	if err := json.Unmarshal(body, &resource); err != nil {
		return nil, fmt.Errorf("decoding resource body: %w", err)
	}
	return resource, nil
}
