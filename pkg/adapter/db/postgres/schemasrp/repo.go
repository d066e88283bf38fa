// Copyright (c) 2024 Behnam Momeni
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package schemasrp provides a reification of the repo.Schemas
// interface, persisting versioned schema records together with their
// derived dependency edges in the schema_records and
// schema_dependency_edges tables.
package schemasrp

import (
	"context"

	"github.com/google/uuid"
	"github.com/momeni/schema-forge/pkg/adapter/db/postgres"
	"github.com/momeni/schema-forge/pkg/core/model"
	"github.com/momeni/schema-forge/pkg/core/repo"
)

// Repo represents the schema records repository.
type Repo struct {
}

// New instantiates a schema records Repo struct.
func New() *Repo {
	return &Repo{}
}

type connQueryer struct {
	*postgres.Conn
}

// Conn unwraps the given repo.Conn instance, expecting to find an
// instance of *postgres.Conn as created by this adapter layer.
// Otherwise, it will panic. Unwrapped connection will be wrapped and
// returned as an instance of repo.SchemasConnQueryer interface, so
// the read operations can run with auto-committed transactions.
func (schemas *Repo) Conn(c repo.Conn) repo.SchemasConnQueryer {
	cc := c.(*postgres.Conn)
	return connQueryer{Conn: cc}
}

func (cq connQueryer) GetByID(
	ctx context.Context, id uuid.UUID,
) (*model.SchemaRecord, error) {
	return GetByID(ctx, cq.Conn, id)
}

func (cq connQueryer) GetByModelAndVersion(
	ctx context.Context, modelID, version string,
) (*model.SchemaRecord, error) {
	return GetByModelAndVersion(ctx, cq.Conn, modelID, version)
}

func (cq connQueryer) List(
	ctx context.Context, filter repo.SchemaFilter,
) ([]*model.SchemaRecord, error) {
	return List(ctx, cq.Conn, filter)
}

func (cq connQueryer) LatestActiveByModel(
	ctx context.Context, modelID string,
) (*model.SchemaRecord, error) {
	return LatestActiveByModel(ctx, cq.Conn, modelID)
}

func (cq connQueryer) LatestActiveByTable(
	ctx context.Context, table string,
) (*model.SchemaRecord, error) {
	return LatestActiveByTable(ctx, cq.Conn, table)
}

func (cq connQueryer) ListEdges(
	ctx context.Context, from uuid.UUID,
) ([]*model.DependencyEdge, error) {
	return ListEdges(ctx, cq.Conn, from)
}

func (cq connQueryer) ListDependentEdges(
	ctx context.Context, to uuid.UUID,
) ([]*model.DependencyEdge, error) {
	return ListDependentEdges(ctx, cq.Conn, to)
}

func (cq connQueryer) ListAllEdges(
	ctx context.Context,
) ([]*model.DependencyEdge, error) {
	return ListAllEdges(ctx, cq.Conn)
}

type txQueryer struct {
	*postgres.Tx
}

// Tx unwraps the given repo.Tx instance, expecting to find an instance
// of *postgres.Tx as created by this adapter layer. Otherwise, it will
// panic. Unwrapped transaction will be wrapped and returned as an
// instance of repo.SchemasTxQueryer interface, so the lifecycle
// mutations can run atomically with the edge and change log writes of
// the caller's ongoing transaction.
func (schemas *Repo) Tx(tx repo.Tx) repo.SchemasTxQueryer {
	tt := tx.(*postgres.Tx)
	return txQueryer{Tx: tt}
}

func (tq txQueryer) Create(
	ctx context.Context,
	record *model.SchemaRecord,
	edges []*model.DependencyEdge,
) error {
	return Create(ctx, tq.Tx, record, edges)
}

func (tq txQueryer) Update(
	ctx context.Context,
	record *model.SchemaRecord,
	edges []*model.DependencyEdge,
) error {
	return Update(ctx, tq.Tx, record, edges)
}

func (tq txQueryer) SetStatus(
	ctx context.Context, id uuid.UUID, status model.SchemaStatus,
) (*model.SchemaRecord, error) {
	return SetStatus(ctx, tq.Tx, id, status)
}

func (tq txQueryer) Delete(ctx context.Context, id uuid.UUID) error {
	return Delete(ctx, tq.Tx, id)
}

func (tq txQueryer) RebindEdges(
	ctx context.Context, modelID string, to uuid.UUID,
) (int64, error) {
	return RebindEdges(ctx, tq.Tx, modelID, to)
}

func (tq txQueryer) GetByID(
	ctx context.Context, id uuid.UUID,
) (*model.SchemaRecord, error) {
	return GetByID(ctx, tq.Tx, id)
}

func (tq txQueryer) GetByModelAndVersion(
	ctx context.Context, modelID, version string,
) (*model.SchemaRecord, error) {
	return GetByModelAndVersion(ctx, tq.Tx, modelID, version)
}

func (tq txQueryer) List(
	ctx context.Context, filter repo.SchemaFilter,
) ([]*model.SchemaRecord, error) {
	return List(ctx, tq.Tx, filter)
}

func (tq txQueryer) LatestActiveByModel(
	ctx context.Context, modelID string,
) (*model.SchemaRecord, error) {
	return LatestActiveByModel(ctx, tq.Tx, modelID)
}

func (tq txQueryer) LatestActiveByTable(
	ctx context.Context, table string,
) (*model.SchemaRecord, error) {
	return LatestActiveByTable(ctx, tq.Tx, table)
}

func (tq txQueryer) ListEdges(
	ctx context.Context, from uuid.UUID,
) ([]*model.DependencyEdge, error) {
	return ListEdges(ctx, tq.Tx, from)
}

func (tq txQueryer) ListDependentEdges(
	ctx context.Context, to uuid.UUID,
) ([]*model.DependencyEdge, error) {
	return ListDependentEdges(ctx, tq.Tx, to)
}

func (tq txQueryer) ListAllEdges(
	ctx context.Context,
) ([]*model.DependencyEdge, error) {
	return ListAllEdges(ctx, tq.Tx)
}
