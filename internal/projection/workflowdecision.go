// SPDX-License-Identifier: AGPL-3.0-or-later

package projection

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"journeydynamics/internal/eventstore"
	"journeydynamics/internal/journey"
	"journeydynamics/internal/readmodel"
)

// WorkflowDecision maintains the journey_workflow_decision table: on every
// WorkflowEvaluated event, clear is_latest on prior rows and insert a new
// latest row (§4.G).
type WorkflowDecision struct {
	decisions readmodel.DecisionStore
	newID     func() uuid.UUID
}

// NewWorkflowDecision constructs a WorkflowDecision projection over
// decisions. Row IDs are minted with uuid.New by default.
func NewWorkflowDecision(decisions readmodel.DecisionStore) *WorkflowDecision {
	return &WorkflowDecision{decisions: decisions, newID: uuid.New}
}

var _ Projection = (*WorkflowDecision)(nil)

// Name implements Projection.
func (p *WorkflowDecision) Name() string { return "journey_workflow_decision" }

// Handle implements Projection.
func (p *WorkflowDecision) Handle(ctx context.Context, event eventstore.Envelope) error {
	if event.EventType != journey.EventTypeWorkflowEvaluated {
		return nil
	}

	aggregateID, err := uuid.Parse(event.AggregateID)
	if err != nil {
		return fmt.Errorf("journey_workflow_decision: parsing aggregate id: %w", err)
	}

	var payload journey.WorkflowEvaluatedPayload
	if err := journey.UnmarshalPayload(event, &payload); err != nil {
		return fmt.Errorf("journey_workflow_decision: %w", err)
	}

	var primary *string
	if len(payload.SuggestedActions) > 0 {
		primary = &payload.SuggestedActions[0]
	}

	return p.decisions.InsertLatest(ctx, readmodel.WorkflowDecision{
		ID:               p.newID(),
		JourneyID:        aggregateID,
		AvailableActions: payload.SuggestedActions,
		PrimaryNextStep:  primary,
		CreatedAt:        event.Metadata.RecordedAt,
	})
}
