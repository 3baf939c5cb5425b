// SPDX-License-Identifier: AGPL-3.0-or-later

package projection

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"journeydynamics/internal/eventstore"
	"journeydynamics/internal/journey"
	"journeydynamics/internal/mergepatch"
	"journeydynamics/internal/readmodel"
)

// JourneyView maintains the journey_view table: one row per aggregate,
// version equal to the count of events projected, current_step and state
// kept current, accumulated_data merge-patched on every Modified event
// (§4.G's materialised-accumulated_data choice).
type JourneyView struct {
	views readmodel.ViewStore
}

// NewJourneyView constructs a JourneyView projection over views.
func NewJourneyView(views readmodel.ViewStore) *JourneyView {
	return &JourneyView{views: views}
}

var _ Projection = (*JourneyView)(nil)

// Name implements Projection.
func (p *JourneyView) Name() string { return "journey_view" }

// Handle implements Projection.
func (p *JourneyView) Handle(ctx context.Context, event eventstore.Envelope) error {
	aggregateID, err := uuid.Parse(event.AggregateID)
	if err != nil {
		return fmt.Errorf("journey_view: parsing aggregate id: %w", err)
	}

	if event.EventType == journey.EventTypeStarted {
		return p.views.Insert(ctx, readmodel.JourneyView{
			ID:              aggregateID,
			State:           string(journey.StateInProgress),
			AccumulatedData: mergepatch.Empty,
			Version:         1,
			CreatedAt:       event.Metadata.RecordedAt,
			UpdatedAt:       event.Metadata.RecordedAt,
		})
	}

	return p.views.Update(ctx, aggregateID, func(view readmodel.JourneyView) readmodel.JourneyView {
		view.Version++
		view.UpdatedAt = event.Metadata.RecordedAt

		switch event.EventType {
		case journey.EventTypeModified:
			var payload journey.ModifiedPayload
			if err := journey.UnmarshalPayload(event, &payload); err == nil {
				if merged, mergeErr := mergepatch.Apply(view.AccumulatedData, payload.Data); mergeErr == nil {
					view.AccumulatedData = merged
				}
			}
		case journey.EventTypeStepProgressed:
			var payload journey.StepProgressedPayload
			if err := journey.UnmarshalPayload(event, &payload); err == nil {
				toStep := payload.ToStep
				view.CurrentStep = &toStep
			}
		case journey.EventTypeCompleted:
			view.State = string(journey.StateComplete)
		}
		return view
	})
}
