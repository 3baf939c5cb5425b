// SPDX-License-Identifier: AGPL-3.0-or-later

package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"journeydynamics/internal/readmodel"
)

// PersonStore is a *sql.DB-backed readmodel.PersonStore.
type PersonStore struct {
	db *sql.DB
}

// NewPersonStore wraps db.
func NewPersonStore(db *sql.DB) *PersonStore { return &PersonStore{db: db} }

var _ readmodel.PersonStore = (*PersonStore)(nil)

// Upsert implements readmodel.PersonStore via an ON CONFLICT clause keyed
// by the journey_id unique constraint.
func (s *PersonStore) Upsert(ctx context.Context, person readmodel.Person) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO journey_person (id, journey_id, name, email, phone, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (journey_id) DO UPDATE SET
			name = EXCLUDED.name,
			email = EXCLUDED.email,
			phone = EXCLUDED.phone,
			updated_at = EXCLUDED.updated_at
	`, person.ID.String(), person.JourneyID.String(), person.Name, person.Email, person.Phone, person.CreatedAt, person.UpdatedAt)
	if err != nil {
		return fmt.Errorf("readmodel/postgres: upserting journey_person: %v", err)
	}
	return nil
}

// FindByEmail implements readmodel.PersonStore via the email index.
func (s *PersonStore) FindByEmail(ctx context.Context, email string) ([]uuid.UUID, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT journey_id FROM journey_person WHERE email = $1`, email)
	if err != nil {
		return nil, fmt.Errorf("readmodel/postgres: querying journey_person: %v", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var ids []uuid.UUID
	for rows.Next() {
		var idStr string
		if err := rows.Scan(&idStr); err != nil {
			return nil, fmt.Errorf("readmodel/postgres: scanning journey_person row: %v", err)
		}
		id, err := uuid.Parse(idStr)
		if err != nil {
			return nil, fmt.Errorf("readmodel/postgres: parsing journey id: %v", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("readmodel/postgres: iterating journey_person rows: %v", err)
	}
	return ids, nil
}
