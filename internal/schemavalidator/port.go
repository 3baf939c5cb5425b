// SPDX-License-Identifier: AGPL-3.0-or-later

// Package schemavalidator defines the capability the Journey aggregate
// consults during Capture to validate the document that would become
// accumulated_data after the merge. The active schema is selected at
// service configuration time and does not vary per request (§4.E).
package schemavalidator

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
)

// ErrValidation is the sentinel a ValidationError satisfies errors.Is
// against.
var ErrValidation = errors.New("schemavalidator: validation failed")

// ValidationError carries the human-readable reasons a document was
// rejected.
type ValidationError struct {
	Reasons []string
}

func (e *ValidationError) Error() string {
	return "schema validation failed: " + strings.Join(e.Reasons, "; ")
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// Validator is the capability interface.
type Validator interface {
	// Validate returns a *ValidationError (via errors.As) when document does
	// not conform to the active schema, and nil on success.
	Validate(ctx context.Context, document json.RawMessage) error
}
