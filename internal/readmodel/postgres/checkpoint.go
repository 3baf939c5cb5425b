// SPDX-License-Identifier: AGPL-3.0-or-later

package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"journeydynamics/internal/projection"
)

// CheckpointStore is a *sql.DB-backed projection.CheckpointStore over the
// projection_checkpoint table.
type CheckpointStore struct {
	db *sql.DB
}

// NewCheckpointStore wraps db.
func NewCheckpointStore(db *sql.DB) *CheckpointStore { return &CheckpointStore{db: db} }

var _ projection.CheckpointStore = (*CheckpointStore)(nil)

// Save implements projection.CheckpointStore.
func (s *CheckpointStore) Save(ctx context.Context, checkpoint projection.Checkpoint) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO projection_checkpoint (aggregate_type, aggregate_id, last_projected_sequence, status, error)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (aggregate_type, aggregate_id) DO UPDATE SET
			last_projected_sequence = EXCLUDED.last_projected_sequence,
			status = EXCLUDED.status,
			error = EXCLUDED.error
	`, checkpoint.AggregateType, checkpoint.AggregateID, checkpoint.LastProjectedSequence, checkpoint.Status, nullableString(checkpoint.Error))
	if err != nil {
		return fmt.Errorf("readmodel/postgres: saving checkpoint: %v", err)
	}
	return nil
}

// Get implements projection.CheckpointStore.
func (s *CheckpointStore) Get(ctx context.Context, aggregateType, aggregateID string) (projection.Checkpoint, bool, error) {
	var checkpoint projection.Checkpoint
	var errMsg sql.NullString

	row := s.db.QueryRowContext(ctx, `
		SELECT aggregate_type, aggregate_id, last_projected_sequence, status, error
		FROM projection_checkpoint WHERE aggregate_type = $1 AND aggregate_id = $2
	`, aggregateType, aggregateID)
	if err := row.Scan(&checkpoint.AggregateType, &checkpoint.AggregateID, &checkpoint.LastProjectedSequence, &checkpoint.Status, &errMsg); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return projection.Checkpoint{}, false, nil
		}
		return projection.Checkpoint{}, false, fmt.Errorf("readmodel/postgres: scanning checkpoint row: %v", err)
	}
	checkpoint.Error = errMsg.String
	return checkpoint, true, nil
}

func nullableString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// ListLagging returns every checkpoint whose Status is projection.StatusLagging,
// the set `journeyd replay` re-dispatches from.
func (s *CheckpointStore) ListLagging(ctx context.Context) ([]projection.Checkpoint, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT aggregate_type, aggregate_id, last_projected_sequence, status, error
		FROM projection_checkpoint WHERE status = $1
	`, projection.StatusLagging)
	if err != nil {
		return nil, fmt.Errorf("readmodel/postgres: querying lagging checkpoints: %v", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var out []projection.Checkpoint
	for rows.Next() {
		var checkpoint projection.Checkpoint
		var errMsg sql.NullString
		if err := rows.Scan(&checkpoint.AggregateType, &checkpoint.AggregateID, &checkpoint.LastProjectedSequence, &checkpoint.Status, &errMsg); err != nil {
			return nil, fmt.Errorf("readmodel/postgres: scanning checkpoint row: %v", err)
		}
		checkpoint.Error = errMsg.String
		out = append(out, checkpoint)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("readmodel/postgres: iterating checkpoint rows: %v", err)
	}
	return out, nil
}
