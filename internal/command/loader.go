// SPDX-License-Identifier: AGPL-3.0-or-later

// Package command owns the load -> handle -> append -> project command
// lifecycle (§5, component I), including the optimistic-concurrency retry
// loop around eventstore.ErrConcurrencyConflict.
package command

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"journeydynamics/internal/eventstore"
	"journeydynamics/internal/journey"
)

// Load replays an aggregate's full event stream into its current State.
// It carries no state across calls (component B) — every invocation
// starts from a fresh read of the store. The returned int is the
// aggregate's next sequence number (the count of events loaded),
// suitable as Append's expectedNextSequence.
func Load(ctx context.Context, store eventstore.Store, aggregateID uuid.UUID) (journey.State, int, error) {
	envelopes, err := store.Load(ctx, journey.AggregateType, aggregateID.String())
	if err != nil {
		return journey.State{}, 0, fmt.Errorf("command: loading aggregate %s: %w", aggregateID, err)
	}

	events := make([]journey.Event, len(envelopes))
	for i, env := range envelopes {
		events[i] = journey.FromEnvelope(env)
	}

	state, err := journey.Replay(events)
	if err != nil {
		return journey.State{}, 0, fmt.Errorf("command: replaying aggregate %s: %w", aggregateID, err)
	}
	return state, len(events), nil
}
