// SPDX-License-Identifier: AGPL-3.0-or-later

// Package memstore is an in-memory eventstore.Store, used by the command
// framework's tests. Its concurrency
// control mirrors the Postgres implementation's unique-key semantics
// without a database: a mutex-guarded map keyed by
// (aggregate_type, aggregate_id), each holding a slice ordered by sequence.
package memstore

import (
	"context"
	"fmt"
	"sync"

	"journeydynamics/internal/eventstore"
)

type aggregateKey struct {
	aggregateType string
	aggregateID   string
}

// Store is a mutex-guarded, in-memory eventstore.Store.
type Store struct {
	mu      sync.Mutex
	streams map[aggregateKey][]eventstore.Envelope
	now     func() eventstore.Metadata
}

var _ eventstore.Store = (*Store)(nil)

// New creates an empty in-memory store.
func New() *Store {
	return &Store{
		streams: make(map[aggregateKey][]eventstore.Envelope),
	}
}

// Append implements eventstore.Store.
func (s *Store) Append(_ context.Context, aggregateType, aggregateID string, events []eventstore.NewEvent, expectedNextSequence int) error {
	if len(events) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := aggregateKey{aggregateType, aggregateID}
	existing := s.streams[key]

	if len(existing) != expectedNextSequence {
		return fmt.Errorf("%w: aggregate %s/%s expected next sequence %d, stream has %d events",
			eventstore.ErrConcurrencyConflict, aggregateType, aggregateID, expectedNextSequence, len(existing))
	}

	appended := make([]eventstore.Envelope, 0, len(events))
	for i, e := range events {
		appended = append(appended, eventstore.Envelope{
			AggregateType: aggregateType,
			AggregateID:   aggregateID,
			Sequence:      expectedNextSequence + i,
			EventType:     e.EventType,
			EventVersion:  e.EventVersion,
			Payload:       e.Payload,
			Metadata:      e.Metadata,
		})
	}

	// Copy-on-write so callers holding a previously Loaded slice never
	// observe a racing append mutate it in place.
	next := make([]eventstore.Envelope, len(existing), len(existing)+len(appended))
	copy(next, existing)
	next = append(next, appended...)
	s.streams[key] = next

	return nil
}

// Load implements eventstore.Store.
func (s *Store) Load(_ context.Context, aggregateType, aggregateID string) ([]eventstore.Envelope, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing := s.streams[aggregateKey{aggregateType, aggregateID}]
	out := make([]eventstore.Envelope, len(existing))
	copy(out, existing)
	return out, nil
}
