// SPDX-License-Identifier: AGPL-3.0-or-later

package journey

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// AggregateType is the constant discriminator stamped on every event this
// aggregate produces, and the key component under which its stream is
// stored and loaded.
const AggregateType = "journey"

// EventVersion1 is the wire schema version for every event variant below.
// New variants are additive; this one never changes in place.
const EventVersion1 = "1.0"

// Event type discriminators.
const (
	EventTypeStarted           = "Started"
	EventTypeModified          = "Modified"
	EventTypePersonCaptured    = "PersonCaptured"
	EventTypeWorkflowEvaluated = "WorkflowEvaluated"
	EventTypeStepProgressed    = "StepProgressed"
	EventTypeCompleted         = "Completed"
)

// Event is the domain-level event produced by Handle and consumed by
// Apply, independent of how the framework persists it (see
// internal/eventstore for the persisted envelope).
type Event struct {
	Type    string
	Version string
	Payload json.RawMessage
}

// StartedPayload is the payload of a Started event.
type StartedPayload struct {
	ID uuid.UUID `json:"id"`
}

// ModifiedPayload is the payload of a Modified event.
type ModifiedPayload struct {
	Step string          `json:"step"`
	Data json.RawMessage `json:"data"`
}

// PersonCapturedPayload is the payload of a PersonCaptured event.
type PersonCapturedPayload struct {
	Name  string  `json:"name"`
	Email string  `json:"email"`
	Phone *string `json:"phone,omitempty"`
}

// WorkflowEvaluatedPayload is the payload of a WorkflowEvaluated event.
type WorkflowEvaluatedPayload struct {
	SuggestedActions []string `json:"suggested_actions"`
}

// StepProgressedPayload is the payload of a StepProgressed event.
type StepProgressedPayload struct {
	FromStep *string `json:"from_step,omitempty"`
	ToStep   string  `json:"to_step"`
}

// CompletedPayload is the (empty) payload of a Completed event.
type CompletedPayload struct{}

func newEvent(eventType string, payload any) (Event, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Event{}, fmt.Errorf("journey: marshalling %s payload: %w", eventType, err)
	}
	return Event{Type: eventType, Version: EventVersion1, Payload: data}, nil
}

func decodePayload[T any](ev Event) (T, error) {
	var payload T
	if err := json.Unmarshal(ev.Payload, &payload); err != nil {
		return payload, fmt.Errorf("journey: decoding %s payload: %w", ev.Type, err)
	}
	return payload, nil
}
