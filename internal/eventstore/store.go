// SPDX-License-Identifier: AGPL-3.0-or-later

// Package eventstore defines the append-only event log contract every
// aggregate is persisted through: events keyed by
// (aggregate_type, aggregate_id, sequence), with the primary key's
// uniqueness as the sole concurrency guard (see DESIGN.md).
package eventstore

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

// ErrConcurrencyConflict is returned by Append when the given
// expectedNextSequence collided with an event already written by a
// concurrent command on the same aggregate. It is recoverable: the caller
// reloads the aggregate and retries.
var ErrConcurrencyConflict = errors.New("eventstore: concurrency conflict")

// ErrStorage wraps irrecoverable storage failures (connectivity, constraint
// failures other than a sequence collision).
var ErrStorage = errors.New("eventstore: storage error")

// Metadata carries framework-supplied context about an event, independent
// of its domain payload.
type Metadata struct {
	RecordedAt    time.Time `json:"recorded_at"`
	CorrelationID string    `json:"correlation_id"`
}

// Envelope is a single persisted event: the unit the store appends and
// loads. EventType/EventVersion discriminate the payload; Payload and
// Metadata are opaque to the store itself.
type Envelope struct {
	AggregateType string          `json:"aggregate_type"`
	AggregateID   string          `json:"aggregate_id"`
	Sequence      int             `json:"sequence"`
	EventType     string          `json:"event_type"`
	EventVersion  string          `json:"event_version"`
	Payload       json.RawMessage `json:"payload"`
	Metadata      Metadata        `json:"metadata"`
}

// NewEvent is what a caller constructs before it has been assigned a
// sequence number by Append; it is identical in shape to Envelope except
// that AggregateType/AggregateID/Sequence are filled in by the store.
type NewEvent struct {
	EventType    string
	EventVersion string
	Payload      json.RawMessage
	Metadata     Metadata
}

// Store is the append-only persistence contract. A single implementation
// backs one aggregate type at a time is not required — AggregateType is
// part of every call so one Store can multiplex aggregate kinds.
type Store interface {
	// Append writes events in one transaction with sequence values
	// expectedNextSequence, expectedNextSequence+1, ... It fails atomically,
	// with ErrConcurrencyConflict, if any (aggregateType, aggregateID,
	// sequence) already exists.
	Append(ctx context.Context, aggregateType, aggregateID string, events []NewEvent, expectedNextSequence int) error

	// Load returns all events for the aggregate in strictly ascending
	// sequence order. An aggregate with no events yields an empty, nil-error
	// result — callers distinguish "not found" from state, not from Load.
	Load(ctx context.Context, aggregateType, aggregateID string) ([]Envelope, error)
}
