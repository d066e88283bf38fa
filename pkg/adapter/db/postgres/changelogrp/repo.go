// Copyright (c) 2024 Behnam Momeni
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package changelogrp provides a reification of the repo.ChangeLog
// interface, persisting the append-only schema change audit log in
// the schema_change_log table.
package changelogrp

import (
	"context"

	"github.com/google/uuid"
	"github.com/momeni/schema-forge/pkg/adapter/db/postgres"
	"github.com/momeni/schema-forge/pkg/core/model"
	"github.com/momeni/schema-forge/pkg/core/repo"
)

// Repo represents the change log repository.
type Repo struct {
}

// New instantiates a change log Repo struct.
func New() *Repo {
	return &Repo{}
}

type connQueryer struct {
	*postgres.Conn
}

// Conn unwraps the given repo.Conn instance, expecting to find an
// instance of *postgres.Conn as created by this adapter layer.
// Otherwise, it will panic. Unwrapped connection will be wrapped and
// returned as an instance of repo.ChangeLogConnQueryer interface.
func (log *Repo) Conn(c repo.Conn) repo.ChangeLogConnQueryer {
	cc := c.(*postgres.Conn)
	return connQueryer{Conn: cc}
}

func (cq connQueryer) ListBySchema(
	ctx context.Context, schemaID uuid.UUID,
) ([]*model.ChangeLogEntry, error) {
	return ListBySchema(ctx, cq.Conn, schemaID)
}

func (cq connQueryer) Recent(
	ctx context.Context, limit int,
) ([]*model.ChangeLogEntry, error) {
	return Recent(ctx, cq.Conn, limit)
}

type txQueryer struct {
	*postgres.Tx
}

// Tx unwraps the given repo.Tx instance, expecting to find an instance
// of *postgres.Tx as created by this adapter layer. Otherwise, it will
// panic. Unwrapped transaction will be wrapped and returned as an
// instance of repo.ChangeLogTxQueryer interface, so an audit entry can
// be appended in the same transaction as the mutation it records.
func (log *Repo) Tx(tx repo.Tx) repo.ChangeLogTxQueryer {
	tt := tx.(*postgres.Tx)
	return txQueryer{Tx: tt}
}

func (tq txQueryer) Append(
	ctx context.Context, e *model.ChangeLogEntry,
) error {
	return Append(ctx, tq.Tx, e)
}

func (tq txQueryer) ListBySchema(
	ctx context.Context, schemaID uuid.UUID,
) ([]*model.ChangeLogEntry, error) {
	return ListBySchema(ctx, tq.Tx, schemaID)
}

func (tq txQueryer) Recent(
	ctx context.Context, limit int,
) ([]*model.ChangeLogEntry, error) {
	return Recent(ctx, tq.Tx, limit)
}
