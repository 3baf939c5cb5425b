// SPDX-License-Identifier: AGPL-3.0-or-later

// Package jsonschemavalidator is a concrete schemavalidator.Validator
// backed by santhosh-tekuri/jsonschema/v5, compiled once at construction
// time from the schema document named in service configuration.
package jsonschemavalidator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"journeydynamics/internal/schemavalidator"
)

// Validator wraps a compiled JSON Schema.
type Validator struct {
	schema *jsonschema.Schema
}

var _ schemavalidator.Validator = (*Validator)(nil)

// Load compiles the schema document at path.
func Load(path string) (*Validator, error) {
	compiler := jsonschema.NewCompiler()
	compiler.Draft = jsonschema.Draft2020

	// nolint:gosec // G304: path comes from trusted service configuration
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("jsonschemavalidator: reading schema %s: %w", path, err)
	}

	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("jsonschemavalidator: parsing schema %s: %w", path, err)
	}
	if err := compiler.AddResource(path, doc); err != nil {
		return nil, fmt.Errorf("jsonschemavalidator: adding schema resource: %w", err)
	}

	schema, err := compiler.Compile(path)
	if err != nil {
		return nil, fmt.Errorf("jsonschemavalidator: compiling schema %s: %w", path, err)
	}

	return &Validator{schema: schema}, nil
}

// New wraps an already-compiled schema, for callers that build one inline
// (tests, or a schema embedded rather than loaded from disk).
func New(schema *jsonschema.Schema) *Validator {
	return &Validator{schema: schema}
}

// Validate implements schemavalidator.Validator.
func (v *Validator) Validate(_ context.Context, document json.RawMessage) error {
	var doc any
	if err := json.Unmarshal(document, &doc); err != nil {
		return &schemavalidator.ValidationError{Reasons: []string{fmt.Sprintf("document is not valid JSON: %v", err)}}
	}

	if err := v.schema.Validate(doc); err != nil {
		var verr *jsonschema.ValidationError
		if ve, ok := err.(*jsonschema.ValidationError); ok {
			verr = ve
		}
		return &schemavalidator.ValidationError{Reasons: reasonsFor(verr, err)}
	}

	return nil
}

func reasonsFor(verr *jsonschema.ValidationError, fallback error) []string {
	if verr == nil {
		return []string{fallback.Error()}
	}

	var reasons []string
	var walk func(e *jsonschema.ValidationError)
	walk = func(e *jsonschema.ValidationError) {
		if e == nil {
			return
		}
		if len(e.Causes) == 0 {
			reasons = append(reasons, fmt.Sprintf("%s: %s", e.InstanceLocation, e.Message))
			return
		}
		for _, cause := range e.Causes {
			walk(cause)
		}
	}
	walk(verr)

	if len(reasons) == 0 {
		reasons = []string{fallback.Error()}
	}
	return reasons
}
