// SPDX-License-Identifier: AGPL-3.0-or-later

package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"journeydynamics/internal/readmodel"
)

// DecisionStore is a *sql.DB-backed readmodel.DecisionStore.
type DecisionStore struct {
	db *sql.DB
}

// NewDecisionStore wraps db.
func NewDecisionStore(db *sql.DB) *DecisionStore { return &DecisionStore{db: db} }

var _ readmodel.DecisionStore = (*DecisionStore)(nil)

// InsertLatest implements readmodel.DecisionStore: clearing every existing
// is_latest row for the journey and inserting decision as the new one,
// inside a single transaction (§4.G).
func (s *DecisionStore) InsertLatest(ctx context.Context, decision readmodel.WorkflowDecision) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("readmodel/postgres: starting transaction: %v", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx, `
		UPDATE journey_workflow_decision SET is_latest = false WHERE journey_id = $1
	`, decision.JourneyID.String()); err != nil {
		return fmt.Errorf("readmodel/postgres: clearing is_latest: %v", err)
	}

	actions, err := json.Marshal(decision.AvailableActions)
	if err != nil {
		return fmt.Errorf("readmodel/postgres: marshalling available_actions: %v", err)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO journey_workflow_decision
			(id, journey_id, available_actions, primary_next_step, is_latest, created_at)
		VALUES ($1, $2, $3, $4, true, $5)
	`, decision.ID.String(), decision.JourneyID.String(), actions, decision.PrimaryNextStep, decision.CreatedAt); err != nil {
		return fmt.Errorf("readmodel/postgres: inserting journey_workflow_decision: %v", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("readmodel/postgres: committing decision insert: %v", err)
	}
	return nil
}

// Latest implements readmodel.DecisionStore.
func (s *DecisionStore) Latest(ctx context.Context, journeyID uuid.UUID) (readmodel.WorkflowDecision, error) {
	var decision readmodel.WorkflowDecision
	var idStr, journeyIDStr string
	var actions []byte

	row := s.db.QueryRowContext(ctx, `
		SELECT id, journey_id, available_actions, primary_next_step, created_at
		FROM journey_workflow_decision
		WHERE journey_id = $1 AND is_latest = true
	`, journeyID.String())
	if err := row.Scan(&idStr, &journeyIDStr, &actions, &decision.PrimaryNextStep, &decision.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return readmodel.WorkflowDecision{}, readmodel.ErrNotFound
		}
		return readmodel.WorkflowDecision{}, fmt.Errorf("readmodel/postgres: scanning journey_workflow_decision row: %v", err)
	}

	if err := json.Unmarshal(actions, &decision.AvailableActions); err != nil {
		return readmodel.WorkflowDecision{}, fmt.Errorf("readmodel/postgres: unmarshalling available_actions: %v", err)
	}

	id, err := uuid.Parse(idStr)
	if err != nil {
		return readmodel.WorkflowDecision{}, fmt.Errorf("readmodel/postgres: parsing decision id: %v", err)
	}
	jID, err := uuid.Parse(journeyIDStr)
	if err != nil {
		return readmodel.WorkflowDecision{}, fmt.Errorf("readmodel/postgres: parsing journey id: %v", err)
	}
	decision.ID = id
	decision.JourneyID = jID
	decision.IsLatest = true
	return decision, nil
}
