package fhir

import (
	"github.com/fhirgate/fhirgate/internal/platform/auth"
)

// universalParams are the search result/metadata parameters every resource
// type supports.
var universalParams = map[string]auth.SearchParamDef{
	"_id":          {Type: "token"},
	"_lastUpdated": {Type: "date"},
	"_tag":         {Type: "token"},
	"_profile":     {Type: "uri"},
	"_security":    {Type: "token"},
	"_source":      {Type: "uri"},
	"_text":        {Type: "string"},
	"_content":     {Type: "string"},
	"_count":       {Type: "number"},
	"_sort":        {Type: "string"},
	"_format":      {Type: "string"},
	"_pretty":      {Type: "token"},
	"_summary":     {Type: "token"},
	"_elements":    {Type: "string"},
	"_total":       {Type: "token"},
	"_contained":   {Type: "token"},
}

// resourceParams holds the per-type R4 search parameter definitions the
// gateway ships with. Reference parameters carry their declared target
// resource types, which drive the _include/chain authorization rules.
var resourceParams = map[string]map[string]auth.SearchParamDef{
	"Patient": {
		"identifier":           {Type: "token"},
		"name":                 {Type: "string"},
		"family":               {Type: "string"},
		"given":                {Type: "string"},
		"birthdate":            {Type: "date"},
		"gender":               {Type: "token"},
		"general-practitioner": {Type: "reference", Target: []string{"Practitioner", "PractitionerRole", "Organization"}},
		"organization":         {Type: "reference", Target: []string{"Organization"}},
		"link":                 {Type: "reference", Target: []string{"Patient", "RelatedPerson"}},
	},
	"Observation": {
		"category":  {Type: "token"},
		"code":      {Type: "token"},
		"date":      {Type: "date"},
		"status":    {Type: "token"},
		"patient":   {Type: "reference", Target: []string{"Patient"}},
		"subject":   {Type: "reference", Target: []string{"Patient", "Group", "Device", "Location"}},
		"encounter": {Type: "reference", Target: []string{"Encounter"}},
		"performer": {Type: "reference", Target: []string{"Practitioner", "PractitionerRole", "Organization", "CareTeam", "Patient", "RelatedPerson"}},
	},
	"Encounter": {
		"class":            {Type: "token"},
		"date":             {Type: "date"},
		"status":           {Type: "token"},
		"patient":          {Type: "reference", Target: []string{"Patient"}},
		"subject":          {Type: "reference", Target: []string{"Patient", "Group"}},
		"participant":      {Type: "reference", Target: []string{"Practitioner", "PractitionerRole", "RelatedPerson"}},
		"service-provider": {Type: "reference", Target: []string{"Organization"}},
	},
	"Condition": {
		"category":        {Type: "token"},
		"clinical-status": {Type: "token"},
		"code":            {Type: "token"},
		"onset-date":      {Type: "date"},
		"patient":         {Type: "reference", Target: []string{"Patient"}},
		"subject":         {Type: "reference", Target: []string{"Patient", "Group"}},
		"encounter":       {Type: "reference", Target: []string{"Encounter"}},
	},
	"MedicationRequest": {
		"intent":     {Type: "token"},
		"status":     {Type: "token"},
		"authoredon": {Type: "date"},
		"medication": {Type: "reference", Target: []string{"Medication"}},
		"patient":    {Type: "reference", Target: []string{"Patient"}},
		"subject":    {Type: "reference", Target: []string{"Patient", "Group"}},
		"encounter":  {Type: "reference", Target: []string{"Encounter"}},
		"requester":  {Type: "reference", Target: []string{"Practitioner", "PractitionerRole", "Organization", "Patient", "RelatedPerson", "Device"}},
	},
	"DiagnosticReport": {
		"category":  {Type: "token"},
		"code":      {Type: "token"},
		"date":      {Type: "date"},
		"status":    {Type: "token"},
		"patient":   {Type: "reference", Target: []string{"Patient"}},
		"subject":   {Type: "reference", Target: []string{"Patient", "Group", "Device", "Location"}},
		"encounter": {Type: "reference", Target: []string{"Encounter"}},
		"performer": {Type: "reference", Target: []string{"Practitioner", "PractitionerRole", "Organization", "CareTeam"}},
		"result":    {Type: "reference", Target: []string{"Observation"}},
	},
	"AllergyIntolerance": {
		"clinical-status": {Type: "token"},
		"code":            {Type: "token"},
		"date":            {Type: "date"},
		"patient":         {Type: "reference", Target: []string{"Patient"}},
		"recorder":        {Type: "reference", Target: []string{"Practitioner", "PractitionerRole", "Patient", "RelatedPerson"}},
	},
	"Procedure": {
		"code":      {Type: "token"},
		"date":      {Type: "date"},
		"status":    {Type: "token"},
		"patient":   {Type: "reference", Target: []string{"Patient"}},
		"subject":   {Type: "reference", Target: []string{"Patient", "Group"}},
		"encounter": {Type: "reference", Target: []string{"Encounter"}},
	},
	"Immunization": {
		"date":         {Type: "date"},
		"status":       {Type: "token"},
		"vaccine-code": {Type: "token"},
		"patient":      {Type: "reference", Target: []string{"Patient"}},
	},
	"CarePlan": {
		"category": {Type: "token"},
		"date":     {Type: "date"},
		"status":   {Type: "token"},
		"patient":  {Type: "reference", Target: []string{"Patient"}},
		"subject":  {Type: "reference", Target: []string{"Patient", "Group"}},
	},
	"DocumentReference": {
		"category": {Type: "token"},
		"date":     {Type: "date"},
		"status":   {Type: "token"},
		"type":     {Type: "token"},
		"patient":  {Type: "reference", Target: []string{"Patient"}},
		"subject":  {Type: "reference", Target: []string{"Patient", "Practitioner", "Group", "Device"}},
		"author":   {Type: "reference", Target: []string{"Practitioner", "PractitionerRole", "Organization", "Device", "Patient", "RelatedPerson"}},
	},
}
