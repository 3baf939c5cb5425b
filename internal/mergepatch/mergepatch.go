// SPDX-License-Identifier: AGPL-3.0-or-later

// Package mergepatch implements the RFC 7386 JSON merge-patch primitive
// the Journey aggregate folds Modified payloads through: object keys
// replace or add, null removes, arrays replace wholesale. It is a thin
// wrapper over evanphx/json-patch/v5 rather than a hand-rolled
// implementation (see DESIGN.md).
package mergepatch

import (
	"encoding/json"
	"fmt"

	jsonpatch "github.com/evanphx/json-patch/v5"
)

// Empty is the zero-value accumulated document: an empty JSON object.
var Empty = json.RawMessage(`{}`)

// Apply returns the result of merge-patching original with patch per
// RFC 7386. A nil/empty original is treated as an empty object.
func Apply(original, patch json.RawMessage) (json.RawMessage, error) {
	if len(original) == 0 {
		original = Empty
	}
	if len(patch) == 0 {
		patch = Empty
	}

	merged, err := jsonpatch.MergePatch(original, patch)
	if err != nil {
		return nil, fmt.Errorf("mergepatch: applying patch: %w", err)
	}
	return json.RawMessage(merged), nil
}

// Fold applies a left fold of Apply over patches in order, starting from
// an empty document. It is the reference semantics §8 property 3 pins
// accumulated_data to.
func Fold(patches ...json.RawMessage) (json.RawMessage, error) {
	doc := Empty
	for _, p := range patches {
		merged, err := Apply(doc, p)
		if err != nil {
			return nil, err
		}
		doc = merged
	}
	return doc, nil
}
