// Package responses validates the result object a stream resolves with
// against a JSON schema agreed with the backend.
package responses

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// Validator validates done payloads against a compiled JSON schema.
type Validator struct {
	schema *gojsonschema.Schema
}

// NewValidator compiles a schema given as a Go map.
func NewValidator(schema map[string]any) (*Validator, error) {
	compiled, err := gojsonschema.NewSchema(gojsonschema.NewGoLoader(schema))
	if err != nil {
		return nil, fmt.Errorf("failed to compile result schema: %w", err)
	}
	return &Validator{schema: compiled}, nil
}

// NewValidatorFromFile compiles a schema from a JSON file.
func NewValidatorFromFile(path string) (*Validator, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read result schema: %w", err)
	}
	compiled, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to compile result schema: %w", err)
	}
	return &Validator{schema: compiled}, nil
}

// Validate checks doc against the schema, returning all violations joined
// into one error.
func (v *Validator) Validate(doc json.RawMessage) error {
	result, err := v.schema.Validate(gojsonschema.NewBytesLoader(doc))
	if err != nil {
		return fmt.Errorf("schema validation failed: %w", err)
	}
	if !result.Valid() {
		var errs []string
		for _, verr := range result.Errors() {
			errs = append(errs, verr.String())
		}
		return fmt.Errorf("result does not match schema: %s", strings.Join(errs, "; "))
	}
	return nil
}
