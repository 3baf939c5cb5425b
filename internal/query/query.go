// SPDX-License-Identifier: AGPL-3.0-or-later

// Package query implements the read side's single entry point (§4.H): a
// JourneyView assembled by joining journey_view with the latest
// journey_workflow_decision row, plus a find_by_email lookup through
// journey_person.
package query

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"journeydynamics/internal/readmodel"
)

// JourneyView is the query response shape §4.H names: the materialised
// journey_view row joined with its latest workflow decision, if any.
type JourneyView struct {
	ID                     uuid.UUID
	State                  string
	CurrentStep            *string
	AccumulatedData        json.RawMessage
	LatestWorkflowDecision *WorkflowDecision
}

// WorkflowDecision is the suggested-actions half of a JourneyView.
type WorkflowDecision struct {
	SuggestedActions []string
}

// API is the query-side entry point, reading through the three
// readmodel stores the projections maintain.
type API struct {
	Views     readmodel.ViewStore
	Decisions readmodel.DecisionStore
	People    readmodel.PersonStore
}

// New constructs an API over the given readmodel stores.
func New(views readmodel.ViewStore, decisions readmodel.DecisionStore, people readmodel.PersonStore) *API {
	return &API{Views: views, Decisions: decisions, People: people}
}

// Get assembles the JourneyView for id by joining journey_view with its
// latest decision row. It returns readmodel.ErrNotFound if the aggregate
// has no journey_view row (i.e. has never been started, or the dispatcher
// has not yet caught up).
func (a *API) Get(ctx context.Context, id uuid.UUID) (JourneyView, error) {
	view, err := a.Views.Get(ctx, id)
	if err != nil {
		return JourneyView{}, fmt.Errorf("query: getting journey %s: %w", id, err)
	}

	result := JourneyView{
		ID:              view.ID,
		State:           view.State,
		CurrentStep:     view.CurrentStep,
		AccumulatedData: view.AccumulatedData,
	}

	decision, err := a.Decisions.Latest(ctx, id)
	switch {
	case err == nil:
		result.LatestWorkflowDecision = &WorkflowDecision{SuggestedActions: decision.AvailableActions}
	case errors.Is(err, readmodel.ErrNotFound):
		// No WorkflowEvaluated event yet; LatestWorkflowDecision stays nil.
	default:
		return JourneyView{}, fmt.Errorf("query: getting latest decision for journey %s: %w", id, err)
	}

	return result, nil
}

// FindByEmail returns every journey associated with email, newest-first
// by journey_view.updated_at, regardless of journey state — the Open
// Question resolution in §4.C: a caller wanting only in-progress
// journeys filters client-side.
func (a *API) FindByEmail(ctx context.Context, email string) ([]JourneyView, error) {
	ids, err := a.People.FindByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("query: finding journeys for %s: %w", email, err)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	views, err := a.Views.ListNewestFirst(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("query: listing journeys for %s: %w", email, err)
	}

	results := make([]JourneyView, len(views))
	for i, view := range views {
		result := JourneyView{
			ID:              view.ID,
			State:           view.State,
			CurrentStep:     view.CurrentStep,
			AccumulatedData: view.AccumulatedData,
		}
		decision, err := a.Decisions.Latest(ctx, view.ID)
		if err == nil {
			result.LatestWorkflowDecision = &WorkflowDecision{SuggestedActions: decision.AvailableActions}
		} else if !errors.Is(err, readmodel.ErrNotFound) {
			return nil, fmt.Errorf("query: getting latest decision for journey %s: %w", view.ID, err)
		}
		results[i] = result
	}
	return results, nil
}
