// SPDX-License-Identifier: AGPL-3.0-or-later

// Package projection implements the synchronous, ordered, in-process fan-out
// of newly appended events to every registered read-model projection
// (§4.F). A projection failure never rolls back the events already
// committed to the event store; it instead leaves a lagging checkpoint
// that `journeyd replay` uses to catch the read models back up.
package projection

import (
	"context"
	"fmt"

	"journeydynamics/internal/eventstore"
)

// StatusOK marks a checkpoint whose projections are caught up with the
// event log as of LastProjectedSequence.
const StatusOK = "ok"

// StatusLagging marks a checkpoint where a projection failed partway
// through dispatch; LastProjectedSequence is the last event it applied
// successfully, and Error carries the failure.
const StatusLagging = "lagging"

// Checkpoint records how far a projection dispatch has progressed for one
// aggregate stream.
type Checkpoint struct {
	AggregateType          string
	AggregateID            string
	LastProjectedSequence  int
	Status                 string
	Error                  string
}

// CheckpointStore persists Checkpoint rows.
type CheckpointStore interface {
	Save(ctx context.Context, checkpoint Checkpoint) error
	Get(ctx context.Context, aggregateType, aggregateID string) (Checkpoint, bool, error)
}

// Projection applies one persisted event to its read model. Implementations
// must be idempotent for a given envelope, since replay can re-dispatch an
// event that was already partially applied.
type Projection interface {
	Name() string
	Handle(ctx context.Context, event eventstore.Envelope) error
}

// Dispatcher fans a stream of envelopes out to every registered Projection,
// in order, tracking progress in a CheckpointStore.
type Dispatcher struct {
	projections []Projection
	checkpoints CheckpointStore
}

// NewDispatcher constructs a Dispatcher over the given projections, applied
// in the order given. Order matters only insofar as a later projection's
// failure leaves earlier ones already applied — each projection owns a
// disjoint read table, so that is harmless.
func NewDispatcher(checkpoints CheckpointStore, projections ...Projection) *Dispatcher {
	return &Dispatcher{projections: projections, checkpoints: checkpoints}
}

// Dispatch applies envelopes, in order, to every registered projection. It
// stops at the first envelope/projection pair that fails, records a
// lagging checkpoint there, and returns the error — envelopes already
// fully projected remain applied; nothing is rolled back.
func (d *Dispatcher) Dispatch(ctx context.Context, aggregateType, aggregateID string, envelopes []eventstore.Envelope) error {
	for _, envelope := range envelopes {
		for _, proj := range d.projections {
			if err := proj.Handle(ctx, envelope); err != nil {
				saveErr := d.checkpoints.Save(ctx, Checkpoint{
					AggregateType:         aggregateType,
					AggregateID:           aggregateID,
					LastProjectedSequence: envelope.Sequence - 1,
					Status:                StatusLagging,
					Error:                 err.Error(),
				})
				if saveErr != nil {
					return fmt.Errorf("projection: %s failed on sequence %d (%w); recording checkpoint also failed: %v",
						proj.Name(), envelope.Sequence, err, saveErr)
				}
				return fmt.Errorf("projection: %s failed on sequence %d: %w", proj.Name(), envelope.Sequence, err)
			}
		}

		if err := d.checkpoints.Save(ctx, Checkpoint{
			AggregateType:         aggregateType,
			AggregateID:           aggregateID,
			LastProjectedSequence: envelope.Sequence,
			Status:                StatusOK,
		}); err != nil {
			return fmt.Errorf("projection: recording checkpoint at sequence %d: %w", envelope.Sequence, err)
		}
	}
	return nil
}
