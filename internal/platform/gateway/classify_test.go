package gateway

import (
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/fhirgate/fhirgate/internal/platform/auth"
)

func classifyRequest(t *testing.T, method, target string, body string) (*requestShape, error) {
	t.Helper()
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	rec := httptest.NewRecorder()
	c := echo.New().NewContext(req, rec)
	return classify(c)
}

func TestClassify_InstanceInteractions(t *testing.T) {
	shape, err := classifyRequest(t, http.MethodGet, "/fhir/Observation/o1", "")
	if err != nil {
		t.Fatal(err)
	}
	if shape.Kind != kindRead || shape.ResourceType != "Observation" || shape.ResourceID != "o1" {
		t.Errorf("read shape = %+v", shape)
	}
	if shape.Privilege != auth.PrivilegeRead {
		t.Errorf("privilege = %q", shape.Privilege)
	}

	shape, err = classifyRequest(t, http.MethodPut, "/fhir/Observation/o1", "{}")
	if err != nil {
		t.Fatal(err)
	}
	if shape.Kind != kindUpdate || shape.Privilege != auth.PrivilegeWrite {
		t.Errorf("update shape = %+v", shape)
	}

	shape, err = classifyRequest(t, http.MethodDelete, "/fhir/Observation/o1", "")
	if err != nil {
		t.Fatal(err)
	}
	if shape.Kind != kindDelete {
		t.Errorf("delete shape = %+v", shape)
	}

	shape, err = classifyRequest(t, http.MethodGet, "/fhir/Observation/o1/_history/3", "")
	if err != nil {
		t.Fatal(err)
	}
	if shape.Kind != kindVersionRead || shape.ResourceID != "o1" {
		t.Errorf("vread shape = %+v", shape)
	}
}

func TestClassify_Create(t *testing.T) {
	shape, err := classifyRequest(t, http.MethodPost, "/fhir/Observation", "{}")
	if err != nil {
		t.Fatal(err)
	}
	if shape.Kind != kindCreate || shape.ResourceType != "Observation" || shape.Privilege != auth.PrivilegeWrite {
		t.Errorf("create shape = %+v", shape)
	}
}

func TestClassify_SearchPreservesParamOrder(t *testing.T) {
	shape, err := classifyRequest(t, http.MethodGet, "/fhir/Observation?code=1234-5&patient=123&status=final", "")
	if err != nil {
		t.Fatal(err)
	}
	if shape.Kind != kindSearch {
		t.Fatalf("kind = %v", shape.Kind)
	}
	want := []auth.SearchParam{
		{Name: "code", Value: "1234-5"},
		{Name: "patient", Value: "123"},
		{Name: "status", Value: "final"},
	}
	if !reflect.DeepEqual(shape.Params, want) {
		t.Errorf("params = %v, want %v", shape.Params, want)
	}
}

func TestClassify_PostSearch(t *testing.T) {
	shape, err := classifyRequest(t, http.MethodPost, "/fhir/Observation/_search", "code=1234-5&patient=123")
	if err != nil {
		t.Fatal(err)
	}
	if shape.Kind != kindSearch {
		t.Fatalf("kind = %v", shape.Kind)
	}
	// POST _search reads as a search, not a write.
	if shape.Privilege != auth.PrivilegeRead {
		t.Errorf("privilege = %q, want read", shape.Privilege)
	}
	want := []auth.SearchParam{
		{Name: "code", Value: "1234-5"},
		{Name: "patient", Value: "123"},
	}
	if !reflect.DeepEqual(shape.Params, want) {
		t.Errorf("params = %v, want %v", shape.Params, want)
	}
}

func TestClassify_History(t *testing.T) {
	shape, err := classifyRequest(t, http.MethodGet, "/fhir/Observation/o1/_history", "")
	if err != nil {
		t.Fatal(err)
	}
	if shape.Kind != kindInstanceHistory {
		t.Errorf("instance history = %+v", shape)
	}

	shape, err = classifyRequest(t, http.MethodGet, "/fhir/Observation/_history", "")
	if err != nil {
		t.Fatal(err)
	}
	if shape.Kind != kindTypeHistory || shape.ResourceType != "Observation" {
		t.Errorf("type history = %+v", shape)
	}

	shape, err = classifyRequest(t, http.MethodGet, "/fhir/_history?_type=Observation,Encounter", "")
	if err != nil {
		t.Fatal(err)
	}
	if shape.Kind != kindSystem {
		t.Errorf("system history = %+v", shape)
	}
	if !reflect.DeepEqual(shape.Types, []string{"Observation", "Encounter"}) {
		t.Errorf("types = %v", shape.Types)
	}
}

func TestClassify_SystemRoot(t *testing.T) {
	shape, err := classifyRequest(t, http.MethodGet, "/fhir", "")
	if err != nil {
		t.Fatal(err)
	}
	if shape.Kind != kindSystem || shape.Types != nil {
		t.Errorf("system root = %+v", shape)
	}
}

func TestClassify_CompartmentSearch(t *testing.T) {
	shape, err := classifyRequest(t, http.MethodGet, "/fhir/Patient/123/Observation?code=1234-5", "")
	if err != nil {
		t.Fatal(err)
	}
	if shape.Kind != kindCompartmentSearch {
		t.Fatalf("kind = %v", shape.Kind)
	}
	if shape.CompartmentType != "Patient" || shape.CompartmentID != "123" || shape.ResourceType != "Observation" {
		t.Errorf("compartment shape = %+v", shape)
	}
}

func TestClassify_Everything(t *testing.T) {
	shape, err := classifyRequest(t, http.MethodGet, "/fhir/Patient/123/$everything", "")
	if err != nil {
		t.Fatal(err)
	}
	if shape.Kind != kindEverything || shape.ResourceType != "Patient" || shape.ResourceID != "123" {
		t.Errorf("instance $everything = %+v", shape)
	}

	shape, err = classifyRequest(t, http.MethodGet, "/fhir/Patient/$everything", "")
	if err != nil {
		t.Fatal(err)
	}
	if shape.Kind != kindEverything || shape.ResourceType != "Patient" || shape.ResourceID != "" {
		t.Errorf("type $everything = %+v", shape)
	}
}

func TestClassify_UnsupportedOperation(t *testing.T) {
	if _, err := classifyRequest(t, http.MethodPost, "/fhir/Patient/123/$validate", "{}"); err == nil {
		t.Error("unsupported operation should be rejected")
	}
	if _, err := classifyRequest(t, http.MethodGet, "/fhir/Observation/o1/oops", ""); err == nil {
		t.Error("unrecognized path should be rejected")
	}
}
