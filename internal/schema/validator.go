// Package schema validates scenario documents against the embedded JSON
// Schema before they are decoded, so malformed base files fail with a
// precise location instead of surfacing as odd mutator behavior.
package schema

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed schemas
var schemaFS embed.FS

const scenarioSchemaName = "scenario.schema.json"

// Error is a single schema violation with its JSON-pointer location.
type Error struct {
	Location string `json:"location"`
	Message  string `json:"message"`
}

func (e Error) String() string {
	if e.Location == "" || e.Location == "/" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Location, e.Message)
}

// Validator checks scenario documents against the embedded schema.
type Validator struct {
	schema *jsonschema.Schema
}

// NewValidator compiles the embedded scenario schema.
func NewValidator() (*Validator, error) {
	data, err := schemaFS.ReadFile("schemas/" + scenarioSchemaName)
	if err != nil {
		return nil, fmt.Errorf("read embedded schema: %w", err)
	}

	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(scenarioSchemaName, bytes.NewReader(data)); err != nil {
		return nil, fmt.Errorf("add schema resource: %w", err)
	}
	compiled, err := compiler.Compile(scenarioSchemaName)
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}

	return &Validator{schema: compiled}, nil
}

// ValidateDocument checks a raw scenario document. A non-empty result
// lists every leaf violation; a JSON parse failure is reported as a
// single error with an empty location.
func (v *Validator) ValidateDocument(raw []byte) []Error {
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return []Error{{Message: fmt.Sprintf("invalid JSON: %v", err)}}
	}

	err := v.schema.Validate(doc)
	if err == nil {
		return nil
	}

	ve, ok := err.(*jsonschema.ValidationError)
	if !ok {
		return []Error{{Message: err.Error()}}
	}
	return flatten(ve)
}

// flatten walks the cause tree and keeps only leaves, which carry the
// specific keyword failures.
func flatten(ve *jsonschema.ValidationError) []Error {
	if len(ve.Causes) == 0 {
		return []Error{{
			Location: ve.InstanceLocation,
			Message:  ve.Message,
		}}
	}
	var out []Error
	for _, cause := range ve.Causes {
		out = append(out, flatten(cause)...)
	}
	return out
}
