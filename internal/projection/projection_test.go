// SPDX-License-Identifier: AGPL-3.0-or-later

package projection

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"journeydynamics/internal/eventstore"
	"journeydynamics/internal/journey"
	"journeydynamics/internal/readmodel"
	"journeydynamics/internal/readmodel/memory"
)

func envelope(t *testing.T, aggregateID string, sequence int, eventType string, payload any) eventstore.Envelope {
	t.Helper()
	data, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshalling payload: %v", err)
	}
	return eventstore.Envelope{
		AggregateType: journey.AggregateType,
		AggregateID:   aggregateID,
		Sequence:      sequence,
		EventType:     eventType,
		EventVersion:  journey.EventVersion1,
		Payload:       data,
		Metadata:      eventstore.Metadata{RecordedAt: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)},
	}
}

func TestDispatcher_AppliesEventsInOrderAndRecordsOKCheckpoint(t *testing.T) {
	views := memory.NewViewStore()
	decisions := memory.NewDecisionStore()
	people := memory.NewPersonStore()
	checkpoints := NewMemoryCheckpointStore()

	dispatcher := NewDispatcher(checkpoints,
		NewJourneyView(views),
		NewWorkflowDecision(decisions),
		NewPerson(people),
	)

	id := uuid.New()
	events := []eventstore.Envelope{
		envelope(t, id.String(), 0, journey.EventTypeStarted, journey.StartedPayload{ID: id}),
		envelope(t, id.String(), 1, journey.EventTypeModified, journey.ModifiedPayload{
			Step: "origin", Data: json.RawMessage(`{"origin":"JFK"}`),
		}),
		envelope(t, id.String(), 2, journey.EventTypeWorkflowEvaluated, journey.WorkflowEvaluatedPayload{
			SuggestedActions: []string{"destination"},
		}),
		envelope(t, id.String(), 3, journey.EventTypeStepProgressed, journey.StepProgressedPayload{ToStep: "origin"}),
	}

	if err := dispatcher.Dispatch(context.Background(), journey.AggregateType, id.String(), events); err != nil {
		t.Fatalf("Dispatch error: %v", err)
	}

	view, err := views.Get(context.Background(), id)
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if view.Version != 4 {
		t.Fatalf("expected version 4, got %d", view.Version)
	}
	if view.CurrentStep == nil || *view.CurrentStep != "origin" {
		t.Fatalf("expected CurrentStep origin, got %v", view.CurrentStep)
	}

	decision, err := decisions.Latest(context.Background(), id)
	if err != nil {
		t.Fatalf("Latest error: %v", err)
	}
	if len(decision.AvailableActions) != 1 || decision.AvailableActions[0] != "destination" {
		t.Fatalf("expected decision recorded, got %+v", decision)
	}

	checkpoint, ok, err := checkpoints.Get(context.Background(), journey.AggregateType, id.String())
	if err != nil {
		t.Fatalf("Get checkpoint error: %v", err)
	}
	if !ok {
		t.Fatalf("expected checkpoint to exist")
	}
	if checkpoint.Status != StatusOK || checkpoint.LastProjectedSequence != 3 {
		t.Fatalf("expected ok checkpoint at sequence 3, got %+v", checkpoint)
	}
}

// failingProjection always fails, to exercise the lagging-checkpoint path.
type failingProjection struct{ err error }

func (p failingProjection) Name() string { return "failing" }

func (p failingProjection) Handle(context.Context, eventstore.Envelope) error {
	return p.err
}

func TestDispatcher_FailureLeavesLaggingCheckpointAndPropagatesError(t *testing.T) {
	views := memory.NewViewStore()
	checkpoints := NewMemoryCheckpointStore()
	failure := errors.New("projection boom")

	dispatcher := NewDispatcher(checkpoints, NewJourneyView(views), failingProjection{err: failure})

	id := uuid.New()
	events := []eventstore.Envelope{
		envelope(t, id.String(), 0, journey.EventTypeStarted, journey.StartedPayload{ID: id}),
	}

	err := dispatcher.Dispatch(context.Background(), journey.AggregateType, id.String(), events)
	if !errors.Is(err, failure) {
		t.Fatalf("expected wrapped failure, got %v", err)
	}

	// The already-applied journey_view projection is not rolled back.
	view, getErr := views.Get(context.Background(), id)
	if getErr != nil {
		t.Fatalf("expected journey_view row to remain despite failure, got error: %v", getErr)
	}
	if view.Version != 1 {
		t.Fatalf("expected version 1, got %d", view.Version)
	}

	checkpoint, ok, err := checkpoints.Get(context.Background(), journey.AggregateType, id.String())
	if err != nil {
		t.Fatalf("Get checkpoint error: %v", err)
	}
	if !ok {
		t.Fatalf("expected a lagging checkpoint to be recorded")
	}
	if checkpoint.Status != StatusLagging || checkpoint.LastProjectedSequence != -1 {
		t.Fatalf("expected lagging checkpoint at sequence -1, got %+v", checkpoint)
	}
}

func TestPersonProjection_UpsertOnPersonCaptured(t *testing.T) {
	people := memory.NewPersonStore()
	checkpoints := NewMemoryCheckpointStore()
	dispatcher := NewDispatcher(checkpoints, NewPerson(people))

	id := uuid.New()
	phone := "+15555550100"
	events := []eventstore.Envelope{
		envelope(t, id.String(), 0, journey.EventTypePersonCaptured, journey.PersonCapturedPayload{
			Name: "A. Traveler", Email: "a@example.com", Phone: &phone,
		}),
	}

	if err := dispatcher.Dispatch(context.Background(), journey.AggregateType, id.String(), events); err != nil {
		t.Fatalf("Dispatch error: %v", err)
	}

	ids, err := people.FindByEmail(context.Background(), "a@example.com")
	if err != nil {
		t.Fatalf("FindByEmail error: %v", err)
	}
	if len(ids) != 1 || ids[0] != id {
		t.Fatalf("expected [%v], got %v", id, ids)
	}
}

func TestWorkflowDecisionProjection_IgnoresUnrelatedEventTypes(t *testing.T) {
	decisions := memory.NewDecisionStore()
	proj := NewWorkflowDecision(decisions)

	id := uuid.New()
	err := proj.Handle(context.Background(), envelope(t, id.String(), 0, journey.EventTypeStarted, journey.StartedPayload{ID: id}))
	if err != nil {
		t.Fatalf("Handle error: %v", err)
	}

	if _, err := decisions.Latest(context.Background(), id); !errors.Is(err, readmodel.ErrNotFound) {
		t.Fatalf("expected no decision row for a Started event, got %v", err)
	}
}
