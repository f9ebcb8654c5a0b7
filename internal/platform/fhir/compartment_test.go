package fhir

import (
	"reflect"
	"testing"
)

func TestCompartmentsOf_PatientOwnsItself(t *testing.T) {
	got := CompartmentsOf(map[string]interface{}{"resourceType": "Patient", "id": "123"})
	if !reflect.DeepEqual(got, []string{"Patient/123"}) {
		t.Errorf("CompartmentsOf(Patient) = %v", got)
	}
}

func TestCompartmentsOf_SubjectLink(t *testing.T) {
	obs := map[string]interface{}{
		"resourceType": "Observation",
		"id":           "o1",
		"subject":      map[string]interface{}{"reference": "Patient/123"},
	}
	got := CompartmentsOf(obs)
	if !reflect.DeepEqual(got, []string{"Patient/123"}) {
		t.Errorf("CompartmentsOf(Observation) = %v", got)
	}
}

func TestCompartmentsOf_PatientElementLink(t *testing.T) {
	imm := map[string]interface{}{
		"resourceType": "Immunization",
		"patient":      map[string]interface{}{"reference": "Patient/456"},
	}
	got := CompartmentsOf(imm)
	if !reflect.DeepEqual(got, []string{"Patient/456"}) {
		t.Errorf("CompartmentsOf(Immunization) = %v", got)
	}
}

func TestCompartmentsOf_ParticipantActorList(t *testing.T) {
	appt := map[string]interface{}{
		"resourceType": "Appointment",
		"participant": []interface{}{
			map[string]interface{}{"actor": map[string]interface{}{"reference": "Practitioner/p1"}},
			map[string]interface{}{"actor": map[string]interface{}{"reference": "Patient/123"}},
		},
	}
	got := CompartmentsOf(appt)
	want := []string{"Practitioner/p1", "Patient/123"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("CompartmentsOf(Appointment) = %v, want %v", got, want)
	}
}

func TestCompartmentsOf_OutsideCompartmentModel(t *testing.T) {
	med := map[string]interface{}{"resourceType": "Medication", "id": "m1"}
	if got := CompartmentsOf(med); len(got) != 0 {
		t.Errorf("CompartmentsOf(Medication) = %v, want none", got)
	}
	if got := CompartmentsOf(map[string]interface{}{}); got != nil {
		t.Errorf("CompartmentsOf(no type) = %v", got)
	}
}

func TestIsInCompartment(t *testing.T) {
	if !IsInCompartment(&PatientCompartment, "Observation") {
		t.Error("Observation belongs to the Patient compartment model")
	}
	if IsInCompartment(&PatientCompartment, "Medication") {
		t.Error("Medication does not belong to the Patient compartment model")
	}
}
