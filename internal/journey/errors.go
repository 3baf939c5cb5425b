// SPDX-License-Identifier: AGPL-3.0-or-later

package journey

import "errors"

// Error kinds from spec §7. Each is a sentinel so callers can distinguish
// them with errors.Is regardless of the wrapping added along the way.
var (
	// ErrNotFound is returned for a query or command against an aggregate
	// with zero events.
	ErrNotFound = errors.New("journey: not found")

	// ErrAlreadyStarted is returned for Start on a non-empty aggregate.
	ErrAlreadyStarted = errors.New("journey: already started")

	// ErrNotInProgress is returned for a data-modifying command on a
	// Complete aggregate.
	ErrNotInProgress = errors.New("journey: not in progress")
)
