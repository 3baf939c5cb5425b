// SPDX-License-Identifier: AGPL-3.0-or-later

package command

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"journeydynamics/internal/decisionengine"
	"journeydynamics/internal/eventstore"
	"journeydynamics/internal/journey"
	"journeydynamics/internal/projection"
	"journeydynamics/internal/schemavalidator"
)

// DefaultMaxRetries bounds the optimistic-concurrency retry loop (§5):
// enough to absorb brief contention without risking livelock.
const DefaultMaxRetries = 3

// Framework executes commands against the journey aggregate: it loads the
// current state, hands it to journey.Handle, appends the resulting events,
// and dispatches them to every registered projection — retrying the whole
// cycle on eventstore.ErrConcurrencyConflict up to MaxRetries times.
type Framework struct {
	Store      eventstore.Store
	Validator  schemavalidator.Validator
	Engine     decisionengine.Engine
	Dispatcher *projection.Dispatcher
	MaxRetries int

	// Now and NewCorrelationID are overridable for deterministic tests;
	// they default to time.Now and a fresh uuid respectively.
	Now             func() time.Time
	NewCorrelationID func() string
}

// NewFramework constructs a Framework with production defaults for Now,
// NewCorrelationID, and MaxRetries.
func NewFramework(store eventstore.Store, validator schemavalidator.Validator, engine decisionengine.Engine, dispatcher *projection.Dispatcher) *Framework {
	return &Framework{
		Store:            store,
		Validator:        validator,
		Engine:           engine,
		Dispatcher:       dispatcher,
		MaxRetries:       DefaultMaxRetries,
		Now:              time.Now,
		NewCorrelationID: func() string { return uuid.New().String() },
	}
}

// Execute runs cmd against the aggregate identified by aggregateID. On
// success it returns the aggregate's state after the command's events have
// been applied. correlationID is stamped onto every event's metadata; an
// empty string is replaced with a freshly minted one.
func (f *Framework) Execute(ctx context.Context, aggregateID uuid.UUID, cmd any, correlationID string) (journey.State, error) {
	if correlationID == "" {
		correlationID = f.NewCorrelationID()
	}

	maxRetries := f.MaxRetries
	if maxRetries <= 0 {
		maxRetries = DefaultMaxRetries
	}

	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		state, nextSequence, err := Load(ctx, f.Store, aggregateID)
		if err != nil {
			return journey.State{}, err
		}

		// A retried Capture re-invokes the schema validator and decision
		// engine against the freshly reloaded state (§5) — Handle is called
		// fresh on every attempt, never replayed from a cached result.
		newEvents, err := journey.Handle(ctx, state, cmd, f.Validator, f.Engine)
		if err != nil {
			return journey.State{}, err
		}

		recordedAt := f.Now()
		storeEvents := make([]eventstore.NewEvent, len(newEvents))
		for i, ev := range newEvents {
			storeEvents[i] = journey.ToNewEvent(ev, eventstore.Metadata{
				RecordedAt:    recordedAt,
				CorrelationID: correlationID,
			})
		}

		appendErr := f.Store.Append(ctx, journey.AggregateType, aggregateID.String(), storeEvents, nextSequence)
		if appendErr != nil {
			if errors.Is(appendErr, eventstore.ErrConcurrencyConflict) {
				lastErr = appendErr
				continue
			}
			return journey.State{}, appendErr
		}

		envelopes := make([]eventstore.Envelope, len(storeEvents))
		for i, se := range storeEvents {
			envelopes[i] = eventstore.Envelope{
				AggregateType: journey.AggregateType,
				AggregateID:   aggregateID.String(),
				Sequence:      nextSequence + i,
				EventType:     se.EventType,
				EventVersion:  se.EventVersion,
				Payload:       se.Payload,
				Metadata:      se.Metadata,
			}
		}

		if f.Dispatcher != nil {
			if err := f.Dispatcher.Dispatch(ctx, journey.AggregateType, aggregateID.String(), envelopes); err != nil {
				return journey.State{}, fmt.Errorf("command: dispatching projections: %w", err)
			}
		}

		for _, ev := range newEvents {
			state, err = journey.Apply(state, ev)
			if err != nil {
				return journey.State{}, fmt.Errorf("command: applying appended event: %w", err)
			}
		}
		return state, nil
	}

	return journey.State{}, fmt.Errorf("%w: exhausted %d retries appending aggregate %s: %v",
		eventstore.ErrStorage, maxRetries, aggregateID, lastErr)
}
