// Copyright (c) 2024 Behnam Momeni
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package repo

import (
	"context"

	"github.com/google/uuid"
	"github.com/momeni/schema-forge/pkg/core/model"
)

// Migrations interface presents expectations from the generated
// migration scripts repository.
type Migrations interface {
	Conn(Conn) MigrationsConnQueryer
	Tx(Tx) MigrationsTxQueryer
}

type MigrationsConnQueryer interface {
	MigrationsQueryer
}

type MigrationsTxQueryer interface {
	MigrationsQueryer

	// Create inserts the given migration record. A name collision is
	// reported as a *cerr.MigrationNameConflictError.
	Create(ctx context.Context, m *model.MigrationRecord) error

	// DeleteByID removes the given record, so a regeneration request
	// can replace a pending migration atomically.
	DeleteByID(ctx context.Context, id uuid.UUID) error
}

// MigrationsQueryer interface lists the migration read operations
// which may run with either a connection or an ongoing transaction.
type MigrationsQueryer interface {
	// GetByID returns the record with the given ID or a
	// *cerr.NotFoundError.
	GetByID(
		ctx context.Context, id uuid.UUID,
	) (*model.MigrationRecord, error)

	// GetByName returns the record with the given unique name or a
	// *cerr.NotFoundError.
	GetByName(ctx context.Context, name string) (*model.MigrationRecord, error)

	// List returns the migration records, newest first. A non-empty
	// modelID restricts the listing to migrations whose target schema
	// belongs to that model.
	List(ctx context.Context, modelID string) ([]*model.MigrationRecord, error)

	// FindByVersionPair returns the migration transitioning the given
	// model between the given version pair, or a *cerr.NotFoundError.
	// The fromVersion is empty for initial creation migrations.
	FindByVersionPair(
		ctx context.Context, modelID, fromVersion, toVersion string,
	) (*model.MigrationRecord, error)
}
