// SPDX-License-Identifier: AGPL-3.0-or-later

// Package commands holds journeyd's subcommands. Each wires the injected
// capabilities (event store, decision engine, schema validator, read
// models) from Config, then runs; this file holds the shared wiring every
// subcommand needs, the composition root component P names.
//
// Error-to-status mapping for a future transport adapter (§6, out of
// scope here): JourneyNotFound -> 404, JourneyAlreadyStarted -> 409,
// JourneyNotInProgress -> 409, SchemaValidationFailed -> 422,
// DecisionEngineError -> 502, ConcurrencyConflict -> transparent
// (retried within the command framework; exhausting the retries surfaces
// as StorageError), StorageError -> 500.
package commands

import (
	"context"
	"database/sql"
	"fmt"

	"journeydynamics/internal/command"
	"journeydynamics/internal/decisionengine/graphengine"
	"journeydynamics/internal/eventstore"
	eventstorepg "journeydynamics/internal/eventstore/postgres"
	"journeydynamics/internal/projection"
	"journeydynamics/internal/query"
	"journeydynamics/internal/readmodel"
	readmodelpg "journeydynamics/internal/readmodel/postgres"
	"journeydynamics/internal/schemavalidator/jsonschemavalidator"
	"journeydynamics/pkg/config"
	"journeydynamics/pkg/logging"
)

// App bundles every wired capability a subcommand operates on.
type App struct {
	Config      *config.Config
	Logger      logging.Logger
	DB          *sql.DB
	Store       eventstore.Store
	Views       readmodel.ViewStore
	Decisions   readmodel.DecisionStore
	People      readmodel.PersonStore
	Checkpoints *readmodelpg.CheckpointStore
	Dispatcher  *projection.Dispatcher
	Framework   *command.Framework
	Query       *query.API
}

// Close releases the connection pool, if one was opened.
func (a *App) Close() error {
	if a.DB == nil {
		return nil
	}
	return a.DB.Close()
}

// Build wires every capability named in Config against a live Postgres
// connection: the event store, the three read-model projections, the
// checkpointed dispatcher, the command framework, and the query API.
// The decision engine and schema validator are compiled once from the
// documents Config names — the core itself never knows their concrete
// types (§6).
func Build(ctx context.Context, cfg *config.Config, logger logging.Logger) (*App, error) {
	dsn, err := cfg.ConnectionString()
	if err != nil {
		return nil, fmt.Errorf("resolving database connection: %w", err)
	}

	eventStore, err := eventstorepg.Open(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("opening event store: %w", err)
	}
	if err := eventStore.EnsureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensuring event store schema: %w", err)
	}

	db := eventStore.DB()
	if err := readmodelpg.EnsureSchema(ctx, db); err != nil {
		return nil, fmt.Errorf("ensuring read-model schema: %w", err)
	}

	engine, err := graphengine.Load(cfg.DecisionEngine.GraphPath)
	if err != nil {
		return nil, fmt.Errorf("loading decision graph: %w", err)
	}

	validator, err := jsonschemavalidator.Load(cfg.Schema.SchemaPath)
	if err != nil {
		return nil, fmt.Errorf("loading schema: %w", err)
	}

	views := readmodelpg.NewViewStore(db)
	decisions := readmodelpg.NewDecisionStore(db)
	people := readmodelpg.NewPersonStore(db)
	checkpoints := readmodelpg.NewCheckpointStore(db)

	dispatcher := projection.NewDispatcher(checkpoints,
		projection.NewJourneyView(views),
		projection.NewWorkflowDecision(decisions),
		projection.NewPerson(people),
	)

	framework := command.NewFramework(eventStore, validator, engine, dispatcher)
	queryAPI := query.New(views, decisions, people)

	logger.Info("capabilities wired",
		logging.NewField("decision_graph", cfg.DecisionEngine.GraphPath),
		logging.NewField("schema", cfg.Schema.SchemaPath),
	)

	return &App{
		Config:      cfg,
		Logger:      logger,
		DB:          db,
		Store:       eventStore,
		Views:       views,
		Decisions:   decisions,
		People:      people,
		Checkpoints: checkpoints,
		Dispatcher:  dispatcher,
		Framework:   framework,
		Query:       queryAPI,
	}, nil
}
