// Copyright (c) 2024 Behnam Momeni
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package migrationsrp provides a reification of the repo.Migrations
// interface, persisting generated migration script pairs in the
// schema_migrations table.
package migrationsrp

import (
	"context"

	"github.com/google/uuid"
	"github.com/momeni/schema-forge/pkg/adapter/db/postgres"
	"github.com/momeni/schema-forge/pkg/core/model"
	"github.com/momeni/schema-forge/pkg/core/repo"
)

// Repo represents the migration records repository.
type Repo struct {
}

// New instantiates a migration records Repo struct.
func New() *Repo {
	return &Repo{}
}

type connQueryer struct {
	*postgres.Conn
}

// Conn unwraps the given repo.Conn instance, expecting to find an
// instance of *postgres.Conn as created by this adapter layer.
// Otherwise, it will panic. Unwrapped connection will be wrapped and
// returned as an instance of repo.MigrationsConnQueryer interface.
func (migrations *Repo) Conn(c repo.Conn) repo.MigrationsConnQueryer {
	cc := c.(*postgres.Conn)
	return connQueryer{Conn: cc}
}

func (cq connQueryer) GetByID(
	ctx context.Context, id uuid.UUID,
) (*model.MigrationRecord, error) {
	return GetByID(ctx, cq.Conn, id)
}

func (cq connQueryer) GetByName(
	ctx context.Context, name string,
) (*model.MigrationRecord, error) {
	return GetByName(ctx, cq.Conn, name)
}

func (cq connQueryer) List(
	ctx context.Context, modelID string,
) ([]*model.MigrationRecord, error) {
	return List(ctx, cq.Conn, modelID)
}

func (cq connQueryer) FindByVersionPair(
	ctx context.Context, modelID, fromVersion, toVersion string,
) (*model.MigrationRecord, error) {
	return FindByVersionPair(
		ctx, cq.Conn, modelID, fromVersion, toVersion,
	)
}

type txQueryer struct {
	*postgres.Tx
}

// Tx unwraps the given repo.Tx instance, expecting to find an instance
// of *postgres.Tx as created by this adapter layer. Otherwise, it will
// panic. Unwrapped transaction will be wrapped and returned as an
// instance of repo.MigrationsTxQueryer interface, so a regeneration
// request can delete and recreate a migration record atomically.
func (migrations *Repo) Tx(tx repo.Tx) repo.MigrationsTxQueryer {
	tt := tx.(*postgres.Tx)
	return txQueryer{Tx: tt}
}

func (tq txQueryer) Create(
	ctx context.Context, m *model.MigrationRecord,
) error {
	return Create(ctx, tq.Tx, m)
}

func (tq txQueryer) DeleteByID(
	ctx context.Context, id uuid.UUID,
) error {
	return DeleteByID(ctx, tq.Tx, id)
}

func (tq txQueryer) GetByID(
	ctx context.Context, id uuid.UUID,
) (*model.MigrationRecord, error) {
	return GetByID(ctx, tq.Tx, id)
}

func (tq txQueryer) GetByName(
	ctx context.Context, name string,
) (*model.MigrationRecord, error) {
	return GetByName(ctx, tq.Tx, name)
}

func (tq txQueryer) List(
	ctx context.Context, modelID string,
) ([]*model.MigrationRecord, error) {
	return List(ctx, tq.Tx, modelID)
}

func (tq txQueryer) FindByVersionPair(
	ctx context.Context, modelID, fromVersion, toVersion string,
) (*model.MigrationRecord, error) {
	return FindByVersionPair(
		ctx, tq.Tx, modelID, fromVersion, toVersion,
	)
}
