// SPDX-License-Identifier: AGPL-3.0-or-later

package journey

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/uuid"

	"journeydynamics/internal/decisionengine"
	"journeydynamics/internal/schemavalidator"
)

// acceptingValidator never rejects a document.
type acceptingValidator struct{}

func (acceptingValidator) Validate(context.Context, json.RawMessage) error { return nil }

// rejectingValidator always rejects with the given reasons.
type rejectingValidator struct{ reasons []string }

func (r rejectingValidator) Validate(context.Context, json.RawMessage) error {
	return &schemavalidator.ValidationError{Reasons: r.reasons}
}

// stubEngine returns a fixed Decision, or a fixed error, regardless of
// Context, and records the last Context it was called with for
// assertions about what the aggregate shares with it.
type stubEngine struct {
	decision  decisionengine.Decision
	err       error
	lastCtx   decisionengine.Context
	wasCalled bool
}

func (s *stubEngine) Evaluate(_ context.Context, dctx decisionengine.Context) (decisionengine.Decision, error) {
	s.wasCalled = true
	s.lastCtx = dctx
	if s.err != nil {
		return decisionengine.Decision{}, s.err
	}
	return s.decision, nil
}

func TestHandle_StartOnEmptyStateEmitsStarted(t *testing.T) {
	id := uuid.New()
	events, err := Handle(context.Background(), State{}, StartCommand{ID: id}, acceptingValidator{}, &stubEngine{})
	if err != nil {
		t.Fatalf("Handle error: %v", err)
	}
	if len(events) != 1 || events[0].Type != EventTypeStarted {
		t.Fatalf("expected single Started event, got %v", events)
	}
}

func TestHandle_StartOnExistingStateFailsAlreadyStarted(t *testing.T) {
	state, err := Replay([]Event{mustEvent(t, EventTypeStarted, StartedPayload{ID: uuid.New()})})
	if err != nil {
		t.Fatalf("Replay error: %v", err)
	}
	_, err = Handle(context.Background(), state, StartCommand{ID: uuid.New()}, acceptingValidator{}, &stubEngine{})
	if !errors.Is(err, ErrAlreadyStarted) {
		t.Fatalf("expected ErrAlreadyStarted, got %v", err)
	}
}

func TestHandle_CaptureOnNonExistentStateFailsNotFound(t *testing.T) {
	_, err := Handle(context.Background(), State{}, CaptureCommand{Step: "origin"}, acceptingValidator{}, &stubEngine{})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestHandle_CaptureOnCompleteStateFailsNotInProgress(t *testing.T) {
	state, err := Replay([]Event{
		mustEvent(t, EventTypeStarted, StartedPayload{ID: uuid.New()}),
		mustEvent(t, EventTypeCompleted, CompletedPayload{}),
	})
	if err != nil {
		t.Fatalf("Replay error: %v", err)
	}
	_, err = Handle(context.Background(), state, CaptureCommand{Step: "origin"}, acceptingValidator{}, &stubEngine{})
	if !errors.Is(err, ErrNotInProgress) {
		t.Fatalf("expected ErrNotInProgress, got %v", err)
	}
}

// TestHandle_FirstCaptureProducesStepProgressed exercises S2 from §8: the
// very first Capture always differs from the nil current_step, so it
// emits Modified, WorkflowEvaluated, and StepProgressed.
func TestHandle_FirstCaptureProducesStepProgressed(t *testing.T) {
	state, err := Replay([]Event{mustEvent(t, EventTypeStarted, StartedPayload{ID: uuid.New()})})
	if err != nil {
		t.Fatalf("Replay error: %v", err)
	}

	engine := &stubEngine{decision: decisionengine.Decision{SuggestedActions: []string{"destination"}}}
	events, err := Handle(context.Background(), state, CaptureCommand{
		Step: "origin",
		Data: json.RawMessage(`{"origin":"JFK"}`),
	}, acceptingValidator{}, engine)
	if err != nil {
		t.Fatalf("Handle error: %v", err)
	}

	wantTypes := []string{EventTypeModified, EventTypeWorkflowEvaluated, EventTypeStepProgressed}
	if len(events) != len(wantTypes) {
		t.Fatalf("expected %d events, got %d: %v", len(wantTypes), len(events), events)
	}
	for i, want := range wantTypes {
		if events[i].Type != want {
			t.Fatalf("event %d: expected %s, got %s", i, want, events[i].Type)
		}
	}

	if !engine.wasCalled {
		t.Fatalf("expected decision engine to be consulted")
	}
	if engine.lastCtx.CurrentStep != nil {
		t.Fatalf("expected engine to see nil CurrentStep, got %v", *engine.lastCtx.CurrentStep)
	}
	// The engine must see pre-merge accumulated_data, not the document
	// Capture would produce after merging.
	var seenBefore map[string]any
	if err := json.Unmarshal(engine.lastCtx.AccumulatedData, &seenBefore); err != nil {
		t.Fatalf("invalid accumulated_data seen by engine: %v", err)
	}
	if _, ok := seenBefore["origin"]; ok {
		t.Fatalf("expected engine to see pre-merge accumulated_data, got %v", seenBefore)
	}
}

// TestHandle_RepeatedCaptureOfSameStepOmitsStepProgressed exercises S3:
// capturing the same step twice in a row emits no second StepProgressed.
func TestHandle_RepeatedCaptureOfSameStepOmitsStepProgressed(t *testing.T) {
	state, err := Replay([]Event{
		mustEvent(t, EventTypeStarted, StartedPayload{ID: uuid.New()}),
		mustEvent(t, EventTypeStepProgressed, StepProgressedPayload{ToStep: "origin"}),
	})
	if err != nil {
		t.Fatalf("Replay error: %v", err)
	}

	events, err := Handle(context.Background(), state, CaptureCommand{
		Step: "origin",
		Data: json.RawMessage(`{"origin":"EWR"}`),
	}, acceptingValidator{}, &stubEngine{})
	if err != nil {
		t.Fatalf("Handle error: %v", err)
	}

	if len(events) != 2 {
		t.Fatalf("expected exactly Modified and WorkflowEvaluated, got %v", events)
	}
	for _, ev := range events {
		if ev.Type == EventTypeStepProgressed {
			t.Fatalf("unexpected StepProgressed for same-step capture")
		}
	}
}

// TestHandle_CaptureRejectedBySchemaEmitsNoEvents exercises S4: a
// post-merge document failing validation produces zero events and the
// decision engine is never consulted.
func TestHandle_CaptureRejectedBySchemaEmitsNoEvents(t *testing.T) {
	state, err := Replay([]Event{mustEvent(t, EventTypeStarted, StartedPayload{ID: uuid.New()})})
	if err != nil {
		t.Fatalf("Replay error: %v", err)
	}

	engine := &stubEngine{}
	validator := rejectingValidator{reasons: []string{"passengers.total: must be >= 1"}}
	events, err := Handle(context.Background(), state, CaptureCommand{
		Step: "passengers",
		Data: json.RawMessage(`{"passengers":{"total":0}}`),
	}, validator, engine)

	var verr *schemavalidator.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected *schemavalidator.ValidationError, got %v", err)
	}
	if events != nil {
		t.Fatalf("expected no events on validation failure, got %v", events)
	}
	if engine.wasCalled {
		t.Fatalf("expected decision engine not to be consulted after validation failure")
	}
}

func TestHandle_CaptureWithEngineFailureEmitsNoEvents(t *testing.T) {
	state, err := Replay([]Event{mustEvent(t, EventTypeStarted, StartedPayload{ID: uuid.New()})})
	if err != nil {
		t.Fatalf("Replay error: %v", err)
	}

	engine := &stubEngine{err: decisionengine.ErrEngine}
	events, err := Handle(context.Background(), state, CaptureCommand{
		Step: "origin",
		Data: json.RawMessage(`{"origin":"JFK"}`),
	}, acceptingValidator{}, engine)

	if !errors.Is(err, decisionengine.ErrEngine) {
		t.Fatalf("expected wrapped ErrEngine, got %v", err)
	}
	if events != nil {
		t.Fatalf("expected no events on engine failure, got %v", events)
	}
}

func TestHandle_CapturePersonOnInProgressStateEmitsPersonCaptured(t *testing.T) {
	state, err := Replay([]Event{mustEvent(t, EventTypeStarted, StartedPayload{ID: uuid.New()})})
	if err != nil {
		t.Fatalf("Replay error: %v", err)
	}

	phone := "+15555550100"
	events, err := Handle(context.Background(), state, CapturePersonCommand{
		Name: "A. Traveler", Email: "a@example.com", Phone: &phone,
	}, acceptingValidator{}, &stubEngine{})
	if err != nil {
		t.Fatalf("Handle error: %v", err)
	}
	if len(events) != 1 || events[0].Type != EventTypePersonCaptured {
		t.Fatalf("expected single PersonCaptured event, got %v", events)
	}
}

// TestHandle_CompleteOnInProgressStateEmitsCompleted exercises S5.
func TestHandle_CompleteOnInProgressStateEmitsCompleted(t *testing.T) {
	state, err := Replay([]Event{mustEvent(t, EventTypeStarted, StartedPayload{ID: uuid.New()})})
	if err != nil {
		t.Fatalf("Replay error: %v", err)
	}

	events, err := Handle(context.Background(), state, CompleteCommand{}, acceptingValidator{}, &stubEngine{})
	if err != nil {
		t.Fatalf("Handle error: %v", err)
	}
	if len(events) != 1 || events[0].Type != EventTypeCompleted {
		t.Fatalf("expected single Completed event, got %v", events)
	}
}

func TestHandle_CompleteOnAlreadyCompleteStateFailsNotInProgress(t *testing.T) {
	state, err := Replay([]Event{
		mustEvent(t, EventTypeStarted, StartedPayload{ID: uuid.New()}),
		mustEvent(t, EventTypeCompleted, CompletedPayload{}),
	})
	if err != nil {
		t.Fatalf("Replay error: %v", err)
	}

	_, err = Handle(context.Background(), state, CompleteCommand{}, acceptingValidator{}, &stubEngine{})
	if !errors.Is(err, ErrNotInProgress) {
		t.Fatalf("expected ErrNotInProgress, got %v", err)
	}
}

func TestHandle_UnrecognizedCommandFails(t *testing.T) {
	state, err := Replay([]Event{mustEvent(t, EventTypeStarted, StartedPayload{ID: uuid.New()})})
	if err != nil {
		t.Fatalf("Replay error: %v", err)
	}
	if _, err := Handle(context.Background(), state, struct{}{}, acceptingValidator{}, &stubEngine{}); err == nil {
		t.Fatalf("expected error for unrecognized command type")
	}
}
