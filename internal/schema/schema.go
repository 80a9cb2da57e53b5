// Package schema implements C1: a pure, boot-time-loaded validator for the
// aviation data model v1.0 fixed schema set. It performs no I/O once Load
// has returned.
//
// A full JSON-Schema engine (draft-07 or later) is not used here: none of
// the retrieval pack's repositories import one, and the validation surface
// is four small, versioned, hand-authored schemas rather than an open-ended
// document shape — a generic engine would add a large dependency for no
// behavioral gain. See DESIGN.md.
package schema

import (
	"embed"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/airwave/airwave/internal/apperr"
)

//go:embed schemas/*.json
var schemaFS embed.FS

// FieldError is one validation failure, addressed by JSON-pointer path.
type FieldError struct {
	Pointer string `json:"pointer"`
	Message string `json:"message"`
}

// Result is the outcome of validating a document against a named schema.
type Result struct {
	Valid  bool         `json:"valid"`
	Errors []FieldError `json:"errors,omitempty"`
}

type propertyDescriptor struct {
	Type string   `json:"type"`
	Enum []string `json:"enum,omitempty"`
}

type schemaDescriptor struct {
	Name        string                         `json:"name"`
	Description string                         `json:"description"`
	Required    []string                       `json:"required"`
	Properties  map[string]propertyDescriptor `json:"properties"`
}

// Validator holds the fixed set of schemas loaded at boot.
type Validator struct {
	schemas map[string]schemaDescriptor
}

// Load reads every embedded schema file. It is called once at boot; a
// malformed embedded schema is a Fatal error since the binary cannot run
// without its schema set.
func Load() (*Validator, error) {
	entries, err := schemaFS.ReadDir("schemas")
	if err != nil {
		return nil, apperr.Wrap(apperr.Fatal, "schema.readdir", "failed to read embedded schemas", err)
	}

	v := &Validator{schemas: make(map[string]schemaDescriptor, len(entries))}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		data, err := schemaFS.ReadFile("schemas/" + e.Name())
		if err != nil {
			return nil, apperr.Wrap(apperr.Fatal, "schema.read", "failed to read schema "+e.Name(), err)
		}
		var d schemaDescriptor
		if err := json.Unmarshal(data, &d); err != nil {
			return nil, apperr.Wrap(apperr.Fatal, "schema.parse", "failed to parse schema "+e.Name(), err)
		}
		v.schemas[d.Name] = d
	}
	return v, nil
}

// Names returns the loaded schema names, sorted, mostly for diagnostics.
func (v *Validator) Names() []string {
	names := make([]string, 0, len(v.schemas))
	for n := range v.schemas {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Validate checks doc (already decoded to a map, e.g. via json.Marshal then
// json.Unmarshal of a Message) against the named schema.
func (v *Validator) Validate(schemaName string, doc map[string]any) (Result, error) {
	d, ok := v.schemas[schemaName]
	if !ok {
		return Result{}, apperr.New(apperr.NotFound, "schema.not_found", fmt.Sprintf("unknown schema %q", schemaName))
	}

	var errs []FieldError
	for _, req := range d.Required {
		if _, present := doc[req]; !present {
			errs = append(errs, FieldError{Pointer: "/" + req, Message: "required field missing"})
		}
	}

	for field, prop := range d.Properties {
		val, present := doc[field]
		if !present || val == nil {
			continue
		}
		if !matchesType(val, prop.Type) {
			errs = append(errs, FieldError{Pointer: "/" + field, Message: fmt.Sprintf("expected type %s", prop.Type)})
			continue
		}
		if len(prop.Enum) > 0 {
			if s, ok := val.(string); ok && !contains(prop.Enum, s) {
				errs = append(errs, FieldError{Pointer: "/" + field, Message: fmt.Sprintf("value %q not in enum %v", s, prop.Enum)})
			}
		}
	}

	return Result{Valid: len(errs) == 0, Errors: errs}, nil
}

// ValidateACARSMessage picks the schema by source_type and validates.
// doc must already contain "source_type".
func (v *Validator) ValidateACARSMessage(doc map[string]any) (Result, error) {
	st, _ := doc["source_type"].(string)
	name := schemaForSourceType(st)
	return v.Validate(name, doc)
}

func schemaForSourceType(sourceType string) string {
	switch sourceType {
	case "adsb":
		return "adsb.v1"
	case "eam":
		return "eam.v1"
	case "hfgcs":
		return "hfgcs.v1"
	default:
		return "acars.v1"
	}
}

func matchesType(v any, t string) bool {
	switch t {
	case "string":
		_, ok := v.(string)
		return ok
	case "number":
		_, ok := v.(float64)
		return ok
	case "boolean":
		_, ok := v.(bool)
		return ok
	case "object":
		_, ok := v.(map[string]any)
		return ok
	case "array":
		_, ok := v.([]any)
		return ok
	default:
		return true
	}
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
