// SPDX-License-Identifier: AGPL-3.0-or-later

package journey

import (
	"fmt"

	"github.com/google/uuid"

	"journeydynamics/internal/mergepatch"
)

// JourneyState is the aggregate's coarse lifecycle position (§4.C).
type JourneyState string

const (
	// StateInProgress is the state from Started until Completed.
	StateInProgress JourneyState = "in_progress"
	// StateComplete is terminal: no further data-modifying command applies.
	StateComplete JourneyState = "complete"
)

// Decision is the aggregate-state projection of the last
// WorkflowEvaluated event's payload.
type Decision struct {
	SuggestedActions []string
}

// State is the current materialization of a journey aggregate, obtained
// by folding Apply over its event stream. The zero value represents an
// aggregate with no events yet (exists is false).
type State struct {
	ID              uuid.UUID
	JourneyState    JourneyState
	AccumulatedData []byte
	CurrentStep     *string
	LatestDecision  *Decision
	exists          bool
}

// Exists reports whether any event has been applied to this state.
func (s State) Exists() bool {
	return s.exists
}

// Replay folds Apply over events in order, starting from the zero State.
// It is used both to reconstruct an aggregate before handling a command
// and, identically, to rebuild it for inspection or projection replay
// (§8 property 2: replay is deterministic and idempotent).
func Replay(events []Event) (State, error) {
	var state State
	for _, ev := range events {
		next, err := Apply(state, ev)
		if err != nil {
			return State{}, err
		}
		state = next
	}
	return state, nil
}

// Apply is the pure state transition function: given the state prior to
// ev and ev itself, it returns the state after. Apply never fails for
// well-formed events produced by Handle; the error return exists for
// malformed payloads encountered when replaying a foreign or corrupted
// stream.
func Apply(state State, ev Event) (State, error) {
	switch ev.Type {
	case EventTypeStarted:
		payload, err := decodePayload[StartedPayload](ev)
		if err != nil {
			return State{}, err
		}
		return State{
			ID:              payload.ID,
			JourneyState:    StateInProgress,
			AccumulatedData: mergepatch.Empty,
			CurrentStep:     nil,
			LatestDecision:  nil,
			exists:          true,
		}, nil

	case EventTypeModified:
		payload, err := decodePayload[ModifiedPayload](ev)
		if err != nil {
			return State{}, err
		}
		merged, err := mergepatch.Apply(state.AccumulatedData, payload.Data)
		if err != nil {
			return State{}, fmt.Errorf("journey: applying Modified event: %w", err)
		}
		state.AccumulatedData = merged
		return state, nil

	case EventTypeStepProgressed:
		payload, err := decodePayload[StepProgressedPayload](ev)
		if err != nil {
			return State{}, err
		}
		toStep := payload.ToStep
		state.CurrentStep = &toStep
		return state, nil

	case EventTypeWorkflowEvaluated:
		payload, err := decodePayload[WorkflowEvaluatedPayload](ev)
		if err != nil {
			return State{}, err
		}
		state.LatestDecision = &Decision{SuggestedActions: payload.SuggestedActions}
		return state, nil

	case EventTypePersonCaptured:
		// Person details are projected into the journey_person read model
		// (internal/projection/person.go) and carry no aggregate state.
		return state, nil

	case EventTypeCompleted:
		state.JourneyState = StateComplete
		return state, nil

	default:
		return State{}, fmt.Errorf("journey: unknown event type %q", ev.Type)
	}
}
