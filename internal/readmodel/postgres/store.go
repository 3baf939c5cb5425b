// SPDX-License-Identifier: AGPL-3.0-or-later

// Package postgres holds the Postgres-backed readmodel stores: journey_view,
// journey_workflow_decision, journey_person (§4.G), plus the
// projection_checkpoint table the dispatcher uses to track lagging
// projections (§4.F).
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/google/uuid"

	"journeydynamics/internal/readmodel"
)

// Schema is the DDL for the three read tables plus the checkpoint table.
const Schema = `
CREATE TABLE IF NOT EXISTS journey_view (
	id              TEXT PRIMARY KEY,
	state           TEXT NOT NULL,
	current_step    TEXT,
	accumulated_data JSONB NOT NULL DEFAULT '{}',
	version         INTEGER NOT NULL,
	created_at      TIMESTAMPTZ NOT NULL,
	updated_at      TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS journey_workflow_decision (
	id                TEXT PRIMARY KEY,
	journey_id        TEXT NOT NULL REFERENCES journey_view(id),
	available_actions JSONB NOT NULL,
	primary_next_step TEXT,
	is_latest         BOOLEAN NOT NULL,
	created_at        TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS journey_workflow_decision_journey_id_idx
	ON journey_workflow_decision (journey_id);

CREATE TABLE IF NOT EXISTS journey_person (
	id         TEXT PRIMARY KEY,
	journey_id TEXT NOT NULL UNIQUE REFERENCES journey_view(id),
	name       TEXT NOT NULL,
	email      TEXT NOT NULL,
	phone      TEXT,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS journey_person_email_idx ON journey_person (email);

CREATE TABLE IF NOT EXISTS projection_checkpoint (
	aggregate_type         TEXT NOT NULL,
	aggregate_id           TEXT NOT NULL,
	last_projected_sequence INTEGER NOT NULL,
	status                 TEXT NOT NULL,
	error                  TEXT,
	PRIMARY KEY (aggregate_type, aggregate_id)
);
`

// EnsureSchema creates every readmodel table if it does not already exist.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("readmodel/postgres: creating tables: %v", err)
	}
	return nil
}

// ViewStore is a *sql.DB-backed readmodel.ViewStore.
type ViewStore struct {
	db *sql.DB
}

// NewViewStore wraps db.
func NewViewStore(db *sql.DB) *ViewStore { return &ViewStore{db: db} }

var _ readmodel.ViewStore = (*ViewStore)(nil)

// Insert implements readmodel.ViewStore.
func (s *ViewStore) Insert(ctx context.Context, view readmodel.JourneyView) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO journey_view (id, state, current_step, accumulated_data, version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, view.ID.String(), view.State, view.CurrentStep, nullableJSON(view.AccumulatedData), view.Version, view.CreatedAt, view.UpdatedAt)
	if err != nil {
		return fmt.Errorf("readmodel/postgres: inserting journey_view: %v", err)
	}
	return nil
}

// Update implements readmodel.ViewStore: it loads the row, applies mutate,
// and writes the result back inside one transaction.
func (s *ViewStore) Update(ctx context.Context, journeyID uuid.UUID, mutate func(readmodel.JourneyView) readmodel.JourneyView) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("readmodel/postgres: starting transaction: %v", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	view, err := scanView(tx.QueryRowContext(ctx, `
		SELECT id, state, current_step, accumulated_data, version, created_at, updated_at
		FROM journey_view WHERE id = $1 FOR UPDATE
	`, journeyID.String()))
	if err != nil {
		return err
	}

	next := mutate(view)
	if _, err := tx.ExecContext(ctx, `
		UPDATE journey_view
		SET state = $2, current_step = $3, accumulated_data = $4, version = $5, updated_at = $6
		WHERE id = $1
	`, journeyID.String(), next.State, next.CurrentStep, nullableJSON(next.AccumulatedData), next.Version, next.UpdatedAt); err != nil {
		return fmt.Errorf("readmodel/postgres: updating journey_view: %v", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("readmodel/postgres: committing journey_view update: %v", err)
	}
	return nil
}

// Get implements readmodel.ViewStore.
func (s *ViewStore) Get(ctx context.Context, journeyID uuid.UUID) (readmodel.JourneyView, error) {
	return scanView(s.db.QueryRowContext(ctx, `
		SELECT id, state, current_step, accumulated_data, version, created_at, updated_at
		FROM journey_view WHERE id = $1
	`, journeyID.String()))
}

// ListNewestFirst implements readmodel.ViewStore.
func (s *ViewStore) ListNewestFirst(ctx context.Context, ids []uuid.UUID) ([]readmodel.JourneyView, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	idStrings := make([]string, len(ids))
	for i, id := range ids {
		idStrings[i] = id.String()
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, state, current_step, accumulated_data, version, created_at, updated_at
		FROM journey_view WHERE id = ANY($1)
		ORDER BY updated_at DESC
	`, idStrings)
	if err != nil {
		return nil, fmt.Errorf("readmodel/postgres: querying journey_view: %v", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var out []readmodel.JourneyView
	for rows.Next() {
		view, err := scanViewRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, view)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("readmodel/postgres: iterating journey_view rows: %v", err)
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanView(row rowScanner) (readmodel.JourneyView, error) {
	return scanViewRow(row)
}

func scanViewRow(row rowScanner) (readmodel.JourneyView, error) {
	var view readmodel.JourneyView
	var idStr string
	var data []byte

	if err := row.Scan(&idStr, &view.State, &view.CurrentStep, &data, &view.Version, &view.CreatedAt, &view.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return readmodel.JourneyView{}, readmodel.ErrNotFound
		}
		return readmodel.JourneyView{}, fmt.Errorf("readmodel/postgres: scanning journey_view row: %v", err)
	}

	id, err := uuid.Parse(idStr)
	if err != nil {
		return readmodel.JourneyView{}, fmt.Errorf("readmodel/postgres: parsing journey_view id: %v", err)
	}
	view.ID = id
	view.AccumulatedData = data
	return view, nil
}

func nullableJSON(data []byte) []byte {
	if len(data) == 0 {
		return []byte(`{}`)
	}
	return data
}
