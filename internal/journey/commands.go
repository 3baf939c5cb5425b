// SPDX-License-Identifier: AGPL-3.0-or-later

package journey

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"journeydynamics/internal/decisionengine"
	"journeydynamics/internal/mergepatch"
	"journeydynamics/internal/schemavalidator"
)

// StartCommand begins a new journey under the given aggregate ID.
type StartCommand struct {
	ID uuid.UUID
}

// CaptureCommand submits a step's data for merging into accumulated_data.
type CaptureCommand struct {
	Step string
	Data json.RawMessage
}

// CapturePersonCommand records respondent contact details.
type CapturePersonCommand struct {
	Name  string
	Email string
	Phone *string
}

// CompleteCommand marks a journey terminal.
type CompleteCommand struct{}

// Handle decides the events, if any, that applying cmd to state produces.
// It never mutates state; callers fold the returned events through Apply
// (directly, or via Replay on the next load) to obtain the new state.
//
// The precondition table, schema-validation point, and decision-engine
// invocation order follow §4.C exactly: Capture validates the
// post-merge document before consulting the engine, the engine sees only
// pre-merge accumulated_data, and StepProgressed is emitted iff the
// submitted step differs from the prior current_step.
func Handle(
	ctx context.Context,
	state State,
	cmd any,
	validator schemavalidator.Validator,
	engine decisionengine.Engine,
) ([]Event, error) {
	switch c := cmd.(type) {
	case StartCommand:
		if state.Exists() {
			return nil, ErrAlreadyStarted
		}
		ev, err := newEvent(EventTypeStarted, StartedPayload{ID: c.ID})
		if err != nil {
			return nil, err
		}
		return []Event{ev}, nil

	case CaptureCommand:
		if !state.Exists() {
			return nil, ErrNotFound
		}
		if state.JourneyState != StateInProgress {
			return nil, ErrNotInProgress
		}
		return handleCapture(ctx, state, c, validator, engine)

	case CapturePersonCommand:
		if !state.Exists() {
			return nil, ErrNotFound
		}
		if state.JourneyState != StateInProgress {
			return nil, ErrNotInProgress
		}
		ev, err := newEvent(EventTypePersonCaptured, PersonCapturedPayload{
			Name:  c.Name,
			Email: c.Email,
			Phone: c.Phone,
		})
		if err != nil {
			return nil, err
		}
		return []Event{ev}, nil

	case CompleteCommand:
		if !state.Exists() {
			return nil, ErrNotFound
		}
		if state.JourneyState != StateInProgress {
			return nil, ErrNotInProgress
		}
		ev, err := newEvent(EventTypeCompleted, CompletedPayload{})
		if err != nil {
			return nil, err
		}
		return []Event{ev}, nil

	default:
		return nil, fmt.Errorf("journey: unrecognized command %T", cmd)
	}
}

func handleCapture(
	ctx context.Context,
	state State,
	c CaptureCommand,
	validator schemavalidator.Validator,
	engine decisionengine.Engine,
) ([]Event, error) {
	merged, err := mergepatch.Apply(state.AccumulatedData, c.Data)
	if err != nil {
		return nil, fmt.Errorf("journey: merging capture data: %w", err)
	}

	if err := validator.Validate(ctx, merged); err != nil {
		return nil, err
	}

	decision, err := engine.Evaluate(ctx, decisionengine.Context{
		CurrentStep:     state.CurrentStep,
		AccumulatedData: state.AccumulatedData,
		NewStep:         c.Step,
		NewData:         c.Data,
	})
	if err != nil {
		return nil, fmt.Errorf("journey: evaluating decision engine: %w", err)
	}

	events := make([]Event, 0, 3)

	modifiedEv, err := newEvent(EventTypeModified, ModifiedPayload{Step: c.Step, Data: c.Data})
	if err != nil {
		return nil, err
	}
	events = append(events, modifiedEv)

	evaluatedEv, err := newEvent(EventTypeWorkflowEvaluated, WorkflowEvaluatedPayload{
		SuggestedActions: decision.SuggestedActions,
	})
	if err != nil {
		return nil, err
	}
	events = append(events, evaluatedEv)

	if state.CurrentStep == nil || *state.CurrentStep != c.Step {
		progressedEv, err := newEvent(EventTypeStepProgressed, StepProgressedPayload{
			FromStep: state.CurrentStep,
			ToStep:   c.Step,
		})
		if err != nil {
			return nil, err
		}
		events = append(events, progressedEv)
	}

	return events, nil
}
