// SPDX-License-Identifier: AGPL-3.0-or-later

package journey

import (
	"encoding/json"
	"fmt"

	"journeydynamics/internal/eventstore"
)

// ToNewEvent adapts a domain Event to the shape eventstore.Store.Append
// expects, attaching framework metadata the aggregate itself has no
// opinion about.
func ToNewEvent(ev Event, metadata eventstore.Metadata) eventstore.NewEvent {
	return eventstore.NewEvent{
		EventType:    ev.Type,
		EventVersion: ev.Version,
		Payload:      ev.Payload,
		Metadata:     metadata,
	}
}

// FromEnvelope strips framework metadata from a persisted envelope,
// yielding the domain Event that Apply and Replay operate on.
func FromEnvelope(env eventstore.Envelope) Event {
	return Event{
		Type:    env.EventType,
		Version: env.EventVersion,
		Payload: env.Payload,
	}
}

// UnmarshalPayload decodes a persisted envelope's payload into dest,
// letting projections (which receive eventstore.Envelope, not the domain
// Event) decode a variant's payload without reaching into encoding/json
// themselves.
func UnmarshalPayload(env eventstore.Envelope, dest any) error {
	if err := json.Unmarshal(env.Payload, dest); err != nil {
		return fmt.Errorf("journey: decoding %s payload: %w", env.EventType, err)
	}
	return nil
}
