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

// ChangeLog interface presents expectations from the append-only
// schema change audit log repository. Entries are never updated or
// deleted; a schema deletion keeps its historical entries.
type ChangeLog interface {
	Conn(Conn) ChangeLogConnQueryer
	Tx(Tx) ChangeLogTxQueryer
}

type ChangeLogConnQueryer interface {
	ChangeLogQueryer
}

type ChangeLogTxQueryer interface {
	ChangeLogQueryer

	// Append inserts one audit entry in the caller's transaction, so
	// it commits or rolls back together with the mutation it records.
	Append(ctx context.Context, e *model.ChangeLogEntry) error
}

// ChangeLogQueryer interface lists the change log read operations
// which may run with either a connection or an ongoing transaction.
type ChangeLogQueryer interface {
	// ListBySchema returns the entries of the given schema, oldest
	// first, so they read as a history.
	ListBySchema(
		ctx context.Context, schemaID uuid.UUID,
	) ([]*model.ChangeLogEntry, error)

	// Recent returns at most limit entries over all schemas, newest
	// first.
	Recent(ctx context.Context, limit int) ([]*model.ChangeLogEntry, error)
}
