// SPDX-License-Identifier: AGPL-3.0-or-later

// Package postgres is the Postgres-backed eventstore.Store: events are
// persisted one row per (aggregate_type, aggregate_id, sequence), with a
// unique index on that triple as the only concurrency control (see
// DESIGN.md and spec §4.A/§9 — no row-level locks).
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"journeydynamics/internal/eventstore"
)

// Schema is the DDL for the event log table. It is exposed so the `journeyd
// migrate` command and tests (via sqlite-less integration harnesses) can
// apply it without a separate migration file format.
const Schema = `
CREATE TABLE IF NOT EXISTS journey_events (
	aggregate_type TEXT NOT NULL,
	aggregate_id   TEXT NOT NULL,
	sequence       INTEGER NOT NULL,
	event_type     TEXT NOT NULL,
	event_version  TEXT NOT NULL,
	payload        JSONB NOT NULL,
	metadata       JSONB NOT NULL,
	PRIMARY KEY (aggregate_type, aggregate_id, sequence)
);
`

const uniqueViolationCode = "23505"

// Store is a *sql.DB-backed eventstore.Store using the pgx stdlib driver.
type Store struct {
	db *sql.DB
}

var _ eventstore.Store = (*Store)(nil)

// Open opens a connection pool against dsn and verifies connectivity.
func Open(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: opening connection: %v", eventstore.ErrStorage, err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: pinging database: %v", eventstore.ErrStorage, err)
	}
	return &Store{db: db}, nil
}

// New wraps an already-opened *sql.DB, for callers that manage the pool
// themselves (e.g. sharing it with the read-model stores).
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// Close closes the underlying connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying connection pool, so callers can share it with
// the read-model stores rather than opening a second pool.
func (s *Store) DB() *sql.DB {
	return s.db
}

// EnsureSchema creates the event log table if it does not already exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("%w: creating journey_events table: %v", eventstore.ErrStorage, err)
	}
	return nil
}

// Append implements eventstore.Store.
func (s *Store) Append(ctx context.Context, aggregateType, aggregateID string, events []eventstore.NewEvent, expectedNextSequence int) error {
	if len(events) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: starting transaction: %v", eventstore.ErrStorage, err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO journey_events
			(aggregate_type, aggregate_id, sequence, event_type, event_version, payload, metadata)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`)
	if err != nil {
		return fmt.Errorf("%w: preparing insert: %v", eventstore.ErrStorage, err)
	}
	defer func() {
		_ = stmt.Close()
	}()

	for i, e := range events {
		metadata, err := marshalMetadata(e.Metadata)
		if err != nil {
			return fmt.Errorf("%w: marshalling metadata: %v", eventstore.ErrStorage, err)
		}

		seq := expectedNextSequence + i
		if _, err := stmt.ExecContext(ctx,
			aggregateType, aggregateID, seq, e.EventType, e.EventVersion, []byte(e.Payload), metadata,
		); err != nil {
			if isUniqueViolation(err) {
				return fmt.Errorf("%w: aggregate %s/%s sequence %d already exists",
					eventstore.ErrConcurrencyConflict, aggregateType, aggregateID, seq)
			}
			return fmt.Errorf("%w: inserting event: %v", eventstore.ErrStorage, err)
		}
	}

	if err := tx.Commit(); err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: aggregate %s/%s sequence collision on commit",
				eventstore.ErrConcurrencyConflict, aggregateType, aggregateID)
		}
		return fmt.Errorf("%w: committing append: %v", eventstore.ErrStorage, err)
	}

	return nil
}

// Load implements eventstore.Store.
func (s *Store) Load(ctx context.Context, aggregateType, aggregateID string) ([]eventstore.Envelope, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT sequence, event_type, event_version, payload, metadata
		FROM journey_events
		WHERE aggregate_type = $1 AND aggregate_id = $2
		ORDER BY sequence ASC
	`, aggregateType, aggregateID)
	if err != nil {
		return nil, fmt.Errorf("%w: querying events: %v", eventstore.ErrStorage, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var out []eventstore.Envelope
	for rows.Next() {
		var env eventstore.Envelope
		var metadata []byte
		var payload []byte

		if err := rows.Scan(&env.Sequence, &env.EventType, &env.EventVersion, &payload, &metadata); err != nil {
			return nil, fmt.Errorf("%w: scanning event row: %v", eventstore.ErrStorage, err)
		}

		env.AggregateType = aggregateType
		env.AggregateID = aggregateID
		env.Payload = payload

		meta, err := unmarshalMetadata(metadata)
		if err != nil {
			return nil, fmt.Errorf("%w: unmarshalling metadata: %v", eventstore.ErrStorage, err)
		}
		env.Metadata = meta

		out = append(out, env)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterating event rows: %v", eventstore.ErrStorage, err)
	}

	return out, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == uniqueViolationCode
	}
	return false
}
