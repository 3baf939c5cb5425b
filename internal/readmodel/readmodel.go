// SPDX-License-Identifier: AGPL-3.0-or-later

// Package readmodel defines the three query-side tables the projection
// dispatcher maintains (§4.G) and the store contracts the query API and
// projections share, independent of backing storage.
package readmodel

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned by a single-row lookup that matches nothing.
var ErrNotFound = errors.New("readmodel: not found")

// JourneyView is the journey_view row: one per aggregate, version equal
// to the count of events projected into it.
type JourneyView struct {
	ID              uuid.UUID
	State           string
	CurrentStep     *string
	AccumulatedData []byte
	Version         int
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// WorkflowDecision is a journey_workflow_decision row: inserted on every
// WorkflowEvaluated event, at most one per journey with IsLatest true.
type WorkflowDecision struct {
	ID               uuid.UUID
	JourneyID        uuid.UUID
	AvailableActions []string
	PrimaryNextStep  *string
	IsLatest         bool
	CreatedAt        time.Time
}

// Person is the journey_person row: at most one per journey, indexed by
// Email for find_by_email.
type Person struct {
	ID        uuid.UUID
	JourneyID uuid.UUID
	Name      string
	Email     string
	Phone     *string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ViewStore is the journey_view read/write contract. Projections write
// through it; the query API reads through it.
type ViewStore interface {
	// Insert creates the initial row for a journey, on Started.
	Insert(ctx context.Context, view JourneyView) error

	// Update applies a mutation to the existing row for journeyID inside
	// a read-modify-write the caller controls, then persists the result.
	// It fails with ErrNotFound if no row exists yet.
	Update(ctx context.Context, journeyID uuid.UUID, mutate func(JourneyView) JourneyView) error

	// Get returns the current row for journeyID, or ErrNotFound.
	Get(ctx context.Context, journeyID uuid.UUID) (JourneyView, error)

	// ListNewestFirst returns every row whose journey ID is in ids,
	// ordered by UpdatedAt descending.
	ListNewestFirst(ctx context.Context, ids []uuid.UUID) ([]JourneyView, error)
}

// DecisionStore is the journey_workflow_decision read/write contract.
type DecisionStore interface {
	// InsertLatest clears IsLatest on every existing row for journeyID,
	// then inserts decision as the new latest row, atomically.
	InsertLatest(ctx context.Context, decision WorkflowDecision) error

	// Latest returns the IsLatest row for journeyID, or ErrNotFound if
	// the journey has never had a WorkflowEvaluated event.
	Latest(ctx context.Context, journeyID uuid.UUID) (WorkflowDecision, error)
}

// PersonStore is the journey_person read/write contract.
type PersonStore interface {
	// Upsert inserts or updates the single row keyed by person.JourneyID.
	Upsert(ctx context.Context, person Person) error

	// FindByEmail returns the journey IDs of every person row matching
	// email, in no particular order — callers order via ViewStore.
	FindByEmail(ctx context.Context, email string) ([]uuid.UUID, error)
}
