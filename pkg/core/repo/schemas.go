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

// SchemaFilter restricts a schema records listing. Zero fields match
// everything.
type SchemaFilter struct {
	ModelID string
	Status  model.SchemaStatus
}

// Schemas interface presents expectations from the schema records
// repository, persisting versioned schema definitions together with
// their derived dependency edges.
type Schemas interface {
	// Conn takes a Conn interface instance, unwraps it as required,
	// and returns a SchemasConnQueryer interface which (with access to
	// the implementation-dependent connection object) can query schema
	// records with auto-committed transactions.
	Conn(Conn) SchemasConnQueryer

	// Tx takes a Tx interface instance, unwraps it as required, and
	// returns a SchemasTxQueryer interface which (with access to the
	// implementation-dependent transaction object) can both query and
	// mutate schema records in the caller's ongoing transaction.
	Tx(Tx) SchemasTxQueryer
}

// SchemasConnQueryer interface lists the schema records operations
// which may run over a connection with auto-committed transactions.
// All of them are reads; every mutation takes part in a larger
// lifecycle operation (validation, edge derivation, change logging)
// and so belongs to the SchemasTxQueryer interface instead.
type SchemasConnQueryer interface {
	SchemasQueryer
}

// SchemasTxQueryer interface lists the schema records operations which
// require an ongoing transaction, so a lifecycle operation can combine
// them with edge and change log writes atomically, in addition to the
// common read operations of the embedded SchemasQueryer interface.
type SchemasTxQueryer interface {
	SchemasQueryer

	// Create inserts the given record together with its derived
	// dependency edges. The record ID must be assigned by the caller.
	// A (model_id, version) pair collision is reported as a
	// *cerr.DuplicateVersionError.
	Create(
		ctx context.Context,
		record *model.SchemaRecord,
		edges []*model.DependencyEdge,
	) error

	// Update overwrites the definition blob, name, and table name of
	// the given record and replaces all of its outgoing dependency
	// edges with the given ones. Status checks (draft only) belong to
	// the use cases layer; this operation applies whatever it is given.
	Update(
		ctx context.Context,
		record *model.SchemaRecord,
		edges []*model.DependencyEdge,
	) error

	// SetStatus moves the given record to the given lifecycle status
	// and returns the updated record. A missing record is reported as
	// a *cerr.NotFoundError.
	SetStatus(
		ctx context.Context, id uuid.UUID, status model.SchemaStatus,
	) (*model.SchemaRecord, error)

	// Delete removes the given record and its outgoing edges. Incoming
	// edges are unbound (their to_schema_id is set to null), keeping
	// the dependents' edge rows as unresolved references.
	Delete(ctx context.Context, id uuid.UUID) error

	// RebindEdges points all unbound edges naming the given model at
	// the given record, returning the number of rebound edges. It is
	// used on activation, so dependents which were created before
	// their dependency resolve to it retroactively.
	RebindEdges(
		ctx context.Context, modelID string, to uuid.UUID,
	) (int64, error)
}

// SchemasQueryer interface lists the schema records read operations
// which may run with either a connection or an ongoing transaction.
type SchemasQueryer interface {
	// GetByID returns the record with the given ID or a
	// *cerr.NotFoundError.
	GetByID(ctx context.Context, id uuid.UUID) (*model.SchemaRecord, error)

	// GetByModelAndVersion returns the record of the given model and
	// version pair or a *cerr.NotFoundError.
	GetByModelAndVersion(
		ctx context.Context, modelID, version string,
	) (*model.SchemaRecord, error)

	// List returns the records matching the given filter, ordered by
	// model_id ascending and then by creation time descending.
	List(
		ctx context.Context, filter SchemaFilter,
	) ([]*model.SchemaRecord, error)

	// LatestActiveByModel returns the active record of the given model.
	// At most one such record exists at any time; its absence is
	// reported as a *cerr.NotFoundError.
	LatestActiveByModel(
		ctx context.Context, modelID string,
	) (*model.SchemaRecord, error)

	// LatestActiveByTable returns the active record owning the given
	// table name or a *cerr.NotFoundError. It resolves foreign key
	// hints (which name tables, not models) to dependency edge targets.
	LatestActiveByTable(
		ctx context.Context, table string,
	) (*model.SchemaRecord, error)

	// ListEdges returns the outgoing dependency edges of the given
	// record.
	ListEdges(
		ctx context.Context, from uuid.UUID,
	) ([]*model.DependencyEdge, error)

	// ListDependentEdges returns the edges pointing at the given
	// record, that is, the edges of its direct dependents.
	ListDependentEdges(
		ctx context.Context, to uuid.UUID,
	) ([]*model.DependencyEdge, error)

	// ListAllEdges returns every dependency edge of the store, so a
	// whole-graph analysis can be materialized in one round-trip.
	ListAllEdges(ctx context.Context) ([]*model.DependencyEdge, error)
}
