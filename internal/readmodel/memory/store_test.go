// SPDX-License-Identifier: AGPL-3.0-or-later

package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"journeydynamics/internal/readmodel"
)

func TestViewStore_GetOnMissingJourneyReturnsErrNotFound(t *testing.T) {
	store := NewViewStore()
	_, err := store.Get(context.Background(), uuid.New())
	if !errors.Is(err, readmodel.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestViewStore_InsertThenGetRoundTrips(t *testing.T) {
	store := NewViewStore()
	id := uuid.New()
	view := readmodel.JourneyView{ID: id, State: "in_progress", Version: 1}
	if err := store.Insert(context.Background(), view); err != nil {
		t.Fatalf("Insert error: %v", err)
	}

	got, err := store.Get(context.Background(), id)
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if got.Version != 1 || got.State != "in_progress" {
		t.Fatalf("expected round-tripped view, got %+v", got)
	}
}

func TestViewStore_UpdateOnMissingJourneyReturnsErrNotFound(t *testing.T) {
	store := NewViewStore()
	err := store.Update(context.Background(), uuid.New(), func(v readmodel.JourneyView) readmodel.JourneyView { return v })
	if !errors.Is(err, readmodel.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestViewStore_UpdateIncrementsVersion(t *testing.T) {
	store := NewViewStore()
	id := uuid.New()
	if err := store.Insert(context.Background(), readmodel.JourneyView{ID: id, Version: 1}); err != nil {
		t.Fatalf("Insert error: %v", err)
	}

	err := store.Update(context.Background(), id, func(v readmodel.JourneyView) readmodel.JourneyView {
		v.Version++
		return v
	})
	if err != nil {
		t.Fatalf("Update error: %v", err)
	}

	got, err := store.Get(context.Background(), id)
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if got.Version != 2 {
		t.Fatalf("expected version 2, got %d", got.Version)
	}
}

func TestViewStore_ListNewestFirstOrdersByUpdatedAtDescending(t *testing.T) {
	store := NewViewStore()
	older := uuid.New()
	newer := uuid.New()
	now := time.Now()

	if err := store.Insert(context.Background(), readmodel.JourneyView{ID: older, UpdatedAt: now.Add(-time.Hour)}); err != nil {
		t.Fatalf("Insert error: %v", err)
	}
	if err := store.Insert(context.Background(), readmodel.JourneyView{ID: newer, UpdatedAt: now}); err != nil {
		t.Fatalf("Insert error: %v", err)
	}

	views, err := store.ListNewestFirst(context.Background(), []uuid.UUID{older, newer})
	if err != nil {
		t.Fatalf("ListNewestFirst error: %v", err)
	}
	if len(views) != 2 || views[0].ID != newer || views[1].ID != older {
		t.Fatalf("expected newest-first order, got %v", views)
	}
}

func TestDecisionStore_InsertLatestClearsPriorIsLatest(t *testing.T) {
	store := NewDecisionStore()
	journeyID := uuid.New()

	if err := store.InsertLatest(context.Background(), readmodel.WorkflowDecision{
		ID: uuid.New(), JourneyID: journeyID, AvailableActions: []string{"a"},
	}); err != nil {
		t.Fatalf("InsertLatest error: %v", err)
	}
	if err := store.InsertLatest(context.Background(), readmodel.WorkflowDecision{
		ID: uuid.New(), JourneyID: journeyID, AvailableActions: []string{"b"},
	}); err != nil {
		t.Fatalf("InsertLatest error: %v", err)
	}

	latest, err := store.Latest(context.Background(), journeyID)
	if err != nil {
		t.Fatalf("Latest error: %v", err)
	}
	if len(latest.AvailableActions) != 1 || latest.AvailableActions[0] != "b" {
		t.Fatalf("expected second decision to be latest, got %+v", latest)
	}
}

func TestDecisionStore_LatestOnMissingJourneyReturnsErrNotFound(t *testing.T) {
	store := NewDecisionStore()
	_, err := store.Latest(context.Background(), uuid.New())
	if !errors.Is(err, readmodel.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestPersonStore_UpsertThenFindByEmail(t *testing.T) {
	store := NewPersonStore()
	journeyID := uuid.New()

	if err := store.Upsert(context.Background(), readmodel.Person{
		JourneyID: journeyID, Name: "A. Traveler", Email: "a@example.com",
	}); err != nil {
		t.Fatalf("Upsert error: %v", err)
	}

	ids, err := store.FindByEmail(context.Background(), "a@example.com")
	if err != nil {
		t.Fatalf("FindByEmail error: %v", err)
	}
	if len(ids) != 1 || ids[0] != journeyID {
		t.Fatalf("expected [%v], got %v", journeyID, ids)
	}
}

func TestPersonStore_UpsertReplacesExistingRow(t *testing.T) {
	store := NewPersonStore()
	journeyID := uuid.New()

	if err := store.Upsert(context.Background(), readmodel.Person{JourneyID: journeyID, Email: "old@example.com"}); err != nil {
		t.Fatalf("Upsert error: %v", err)
	}
	if err := store.Upsert(context.Background(), readmodel.Person{JourneyID: journeyID, Email: "new@example.com"}); err != nil {
		t.Fatalf("Upsert error: %v", err)
	}

	ids, err := store.FindByEmail(context.Background(), "old@example.com")
	if err != nil {
		t.Fatalf("FindByEmail error: %v", err)
	}
	if len(ids) != 0 {
		t.Fatalf("expected no matches for superseded email, got %v", ids)
	}
}
