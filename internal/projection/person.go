// SPDX-License-Identifier: AGPL-3.0-or-later

package projection

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"journeydynamics/internal/eventstore"
	"journeydynamics/internal/journey"
	"journeydynamics/internal/readmodel"
)

// Person maintains the journey_person table: upserts a single row keyed
// by journey_id on every PersonCaptured event (§4.G).
type Person struct {
	people readmodel.PersonStore
	newID  func() uuid.UUID
}

// NewPerson constructs a Person projection over people.
func NewPerson(people readmodel.PersonStore) *Person {
	return &Person{people: people, newID: uuid.New}
}

var _ Projection = (*Person)(nil)

// Name implements Projection.
func (p *Person) Name() string { return "journey_person" }

// Handle implements Projection.
func (p *Person) Handle(ctx context.Context, event eventstore.Envelope) error {
	if event.EventType != journey.EventTypePersonCaptured {
		return nil
	}

	aggregateID, err := uuid.Parse(event.AggregateID)
	if err != nil {
		return fmt.Errorf("journey_person: parsing aggregate id: %w", err)
	}

	var payload journey.PersonCapturedPayload
	if err := journey.UnmarshalPayload(event, &payload); err != nil {
		return fmt.Errorf("journey_person: %w", err)
	}

	return p.people.Upsert(ctx, readmodel.Person{
		ID:        p.newID(),
		JourneyID: aggregateID,
		Name:      payload.Name,
		Email:     payload.Email,
		Phone:     payload.Phone,
		CreatedAt: event.Metadata.RecordedAt,
		UpdatedAt: event.Metadata.RecordedAt,
	})
}
