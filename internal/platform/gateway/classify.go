package gateway

import (
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/fhirgate/fhirgate/internal/platform/auth"
)

// interactionKind enumerates the FHIR REST interaction shapes the gateway
// distinguishes; each maps to one authorization check.
type interactionKind int

const (
	kindRead interactionKind = iota
	kindVersionRead
	kindSearch
	kindCompartmentSearch
	kindInstanceHistory
	kindTypeHistory
	kindSystem
	kindEverything
	kindCreate
	kindUpdate
	kindDelete
)

// requestShape is the classified form of one inbound FHIR request.
type requestShape struct {
	Kind            interactionKind
	ResourceType    string
	ResourceID      string
	CompartmentType string
	CompartmentID   string
	Types           []string // _type on system-level interactions
	Params          []auth.SearchParam
	Privilege       string
}

// classify breaks a request path under /fhir into its interaction shape.
// Unknown shapes are caller errors, not authorization failures.
func classify(c echo.Context) (*requestShape, error) {
	req := c.Request()
	path := strings.TrimPrefix(req.URL.Path, "/fhir")
	segs := splitPath(path)
	method := req.Method

	shape := &requestShape{Privilege: privilegeFor(method)}

	params, err := queryParams(req)
	if err != nil {
		return nil, err
	}
	shape.Params = params

	switch len(segs) {
	case 0:
		// Whole-system interaction: GET /fhir?_type=..., /fhir/_history
		// and /fhir/_search collapse here after segment filtering.
		shape.Kind = kindSystem
		shape.Types = typeList(params)
		return shape, nil

	case 1:
		switch {
		case segs[0] == "_history" || segs[0] == "_search":
			shape.Kind = kindSystem
			shape.Types = typeList(params)
		case method == http.MethodPost:
			shape.Kind = kindCreate
			shape.ResourceType = segs[0]
		default:
			shape.Kind = kindSearch
			shape.ResourceType = segs[0]
		}
		return shape, nil

	case 2:
		shape.ResourceType = segs[0]
		switch {
		case segs[1] == "_search":
			shape.Kind = kindSearch
			shape.Privilege = auth.PrivilegeRead
			form, err := formParams(c)
			if err != nil {
				return nil, err
			}
			shape.Params = append(shape.Params, form...)
		case segs[1] == "_history":
			shape.Kind = kindTypeHistory
		case strings.HasPrefix(segs[1], "$"):
			if segs[1] != "$everything" {
				return nil, fmt.Errorf("operation %s is not supported", segs[1])
			}
			shape.Kind = kindEverything
		default:
			shape.ResourceID = segs[1]
			switch method {
			case http.MethodGet, http.MethodHead:
				shape.Kind = kindRead
			case http.MethodPut, http.MethodPatch:
				shape.Kind = kindUpdate
			case http.MethodDelete:
				shape.Kind = kindDelete
			default:
				return nil, fmt.Errorf("method %s is not supported on an instance", method)
			}
		}
		return shape, nil

	case 3:
		shape.ResourceType = segs[0]
		shape.ResourceID = segs[1]
		switch {
		case segs[2] == "_history":
			shape.Kind = kindInstanceHistory
		case strings.HasPrefix(segs[2], "$"):
			if segs[2] != "$everything" {
				return nil, fmt.Errorf("operation %s is not supported", segs[2])
			}
			shape.Kind = kindEverything
		case isResourceTypeSegment(segs[2]):
			// Compartment search: /Patient/123/Observation.
			shape.Kind = kindCompartmentSearch
			shape.CompartmentType = segs[0]
			shape.CompartmentID = segs[1]
			shape.ResourceType = segs[2]
			shape.ResourceID = ""
		default:
			return nil, fmt.Errorf("unrecognized interaction path %s", path)
		}
		return shape, nil

	case 4:
		if segs[2] == "_history" {
			shape.Kind = kindVersionRead
			shape.ResourceType = segs[0]
			shape.ResourceID = segs[1]
			return shape, nil
		}
	}

	return nil, fmt.Errorf("unrecognized interaction path %s", path)
}

func splitPath(path string) []string {
	var segs []string
	for _, s := range strings.Split(path, "/") {
		if s != "" {
			segs = append(segs, s)
		}
	}
	return segs
}

func privilegeFor(method string) string {
	switch method {
	case http.MethodGet, http.MethodHead:
		return auth.PrivilegeRead
	default:
		return auth.PrivilegeWrite
	}
}

// queryParams parses the raw query preserving declaration order, which the
// search authorization pass depends on.
func queryParams(req *http.Request) ([]auth.SearchParam, error) {
	raw := req.URL.RawQuery
	if raw == "" {
		return nil, nil
	}
	var params []auth.SearchParam
	for _, pair := range strings.Split(raw, "&") {
		if pair == "" {
			continue
		}
		name, value, _ := strings.Cut(pair, "=")
		n, err := url.QueryUnescape(name)
		if err != nil {
			return nil, fmt.Errorf("malformed query parameter %q", pair)
		}
		v, err := url.QueryUnescape(value)
		if err != nil {
			return nil, fmt.Errorf("malformed query parameter %q", pair)
		}
		params = append(params, auth.SearchParam{Name: n, Value: v})
	}
	return params, nil
}

// formParams parses a POST _search body, preserving declaration order.
func formParams(c echo.Context) ([]auth.SearchParam, error) {
	body, err := io.ReadAll(io.LimitReader(c.Request().Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("reading search body: %w", err)
	}
	var params []auth.SearchParam
	for _, pair := range strings.Split(string(body), "&") {
		if pair == "" {
			continue
		}
		name, value, _ := strings.Cut(pair, "=")
		n, err := url.QueryUnescape(name)
		if err != nil {
			return nil, fmt.Errorf("malformed form parameter %q", pair)
		}
		v, err := url.QueryUnescape(value)
		if err != nil {
			return nil, fmt.Errorf("malformed form parameter %q", pair)
		}
		params = append(params, auth.SearchParam{Name: n, Value: v})
	}
	return params, nil
}

// typeList pulls the _type parameter of a system-level interaction.
func typeList(params []auth.SearchParam) []string {
	for _, p := range params {
		if p.Name == "_type" && p.Value != "" {
			return strings.Split(p.Value, ",")
		}
	}
	return nil
}

// isResourceTypeSegment reports whether a path segment looks like a FHIR
// resource type name (leading uppercase, alphabetic).
func isResourceTypeSegment(s string) bool {
	if s == "" || s[0] < 'A' || s[0] > 'Z' {
		return false
	}
	for _, r := range s {
		if (r < 'a' || r > 'z') && (r < 'A' || r > 'Z') {
			return false
		}
	}
	return true
}
