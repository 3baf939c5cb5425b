// SPDX-License-Identifier: AGPL-3.0-or-later

// Package memory provides in-memory readmodel store implementations used
// by command, projection and query tests.
// Each store follows the teacher's state-manager shape: a mutex-guarded
// map, cloned on read and replaced wholesale on write, so callers never
// observe a partially written row.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"journeydynamics/internal/readmodel"
)

// ViewStore is an in-memory readmodel.ViewStore.
type ViewStore struct {
	mu    sync.Mutex
	views map[uuid.UUID]readmodel.JourneyView
}

// NewViewStore constructs an empty ViewStore.
func NewViewStore() *ViewStore {
	return &ViewStore{views: make(map[uuid.UUID]readmodel.JourneyView)}
}

var _ readmodel.ViewStore = (*ViewStore)(nil)

// Insert implements readmodel.ViewStore.
func (s *ViewStore) Insert(_ context.Context, view readmodel.JourneyView) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.views[view.ID] = view
	return nil
}

// Update implements readmodel.ViewStore.
func (s *ViewStore) Update(_ context.Context, journeyID uuid.UUID, mutate func(readmodel.JourneyView) readmodel.JourneyView) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.views[journeyID]
	if !ok {
		return readmodel.ErrNotFound
	}
	s.views[journeyID] = mutate(existing)
	return nil
}

// Get implements readmodel.ViewStore.
func (s *ViewStore) Get(_ context.Context, journeyID uuid.UUID) (readmodel.JourneyView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	view, ok := s.views[journeyID]
	if !ok {
		return readmodel.JourneyView{}, readmodel.ErrNotFound
	}
	return view, nil
}

// ListNewestFirst implements readmodel.ViewStore.
func (s *ViewStore) ListNewestFirst(_ context.Context, ids []uuid.UUID) ([]readmodel.JourneyView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	views := make([]readmodel.JourneyView, 0, len(ids))
	for _, id := range ids {
		if view, ok := s.views[id]; ok {
			views = append(views, view)
		}
	}
	sort.Slice(views, func(i, j int) bool {
		return views[i].UpdatedAt.After(views[j].UpdatedAt)
	})
	return views, nil
}

// DecisionStore is an in-memory readmodel.DecisionStore.
type DecisionStore struct {
	mu        sync.Mutex
	decisions map[uuid.UUID][]readmodel.WorkflowDecision
}

// NewDecisionStore constructs an empty DecisionStore.
func NewDecisionStore() *DecisionStore {
	return &DecisionStore{decisions: make(map[uuid.UUID][]readmodel.WorkflowDecision)}
}

var _ readmodel.DecisionStore = (*DecisionStore)(nil)

// InsertLatest implements readmodel.DecisionStore.
func (s *DecisionStore) InsertLatest(_ context.Context, decision readmodel.WorkflowDecision) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing := s.decisions[decision.JourneyID]
	cleared := make([]readmodel.WorkflowDecision, len(existing))
	for i, d := range existing {
		d.IsLatest = false
		cleared[i] = d
	}
	decision.IsLatest = true
	s.decisions[decision.JourneyID] = append(cleared, decision)
	return nil
}

// Latest implements readmodel.DecisionStore.
func (s *DecisionStore) Latest(_ context.Context, journeyID uuid.UUID) (readmodel.WorkflowDecision, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, d := range s.decisions[journeyID] {
		if d.IsLatest {
			return d, nil
		}
	}
	return readmodel.WorkflowDecision{}, readmodel.ErrNotFound
}

// PersonStore is an in-memory readmodel.PersonStore.
type PersonStore struct {
	mu      sync.Mutex
	byJourn map[uuid.UUID]readmodel.Person
}

// NewPersonStore constructs an empty PersonStore.
func NewPersonStore() *PersonStore {
	return &PersonStore{byJourn: make(map[uuid.UUID]readmodel.Person)}
}

var _ readmodel.PersonStore = (*PersonStore)(nil)

// Upsert implements readmodel.PersonStore. CreatedAt is preserved from
// any existing row, matching the insert-or-update semantics of the
// Postgres ON CONFLICT implementation.
func (s *PersonStore) Upsert(_ context.Context, person readmodel.Person) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.byJourn[person.JourneyID]; ok {
		person.CreatedAt = existing.CreatedAt
	}
	s.byJourn[person.JourneyID] = person
	return nil
}

// FindByEmail implements readmodel.PersonStore.
func (s *PersonStore) FindByEmail(_ context.Context, email string) ([]uuid.UUID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var ids []uuid.UUID
	for journeyID, person := range s.byJourn {
		if person.Email == email {
			ids = append(ids, journeyID)
		}
	}
	return ids, nil
}
