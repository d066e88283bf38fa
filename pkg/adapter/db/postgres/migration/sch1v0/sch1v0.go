// Copyright (c) 2024 Behnam Momeni
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package sch1v0 provides the top-level Migrator type for store
// schema version 1.0.x which can be used for starting a store upgrade
// operation. This package contains the main logic for querying of the
// v1.0 store layout and converting it to the latest supported minor
// version within the major version 1 series.
//
// The v1.0 layout differs from v1.1 in three regards. The mutable
// settings were kept in a table named settings (renamed later to
// forge_settings), the schema_records table had no is_system column,
// and the schema_migrations table had no checksum column. Also, the
// schema_change_log table did not exist at all.
//
// Since schXvY packages only depend on their highest minor version
// implementation for creation of their corresponding upwards/downwards
// migrators and settlers, they can be adapted to a version-independent
// interface using a common Adapter interface which is provided by the
// schi.Adapter generic type (in contrast to the upwards/downwards
// migrator types in upmigN/dnmigN packages which have to ship their
// distinct Adapter types).
package sch1v0

import (
	"context"
	"fmt"

	"github.com/momeni/schema-forge/pkg/adapter/db/postgres/migration/down/dnmig1"
	"github.com/momeni/schema-forge/pkg/adapter/db/postgres/migration/schi"
	"github.com/momeni/schema-forge/pkg/adapter/db/postgres/migration/settle/stlmig1"
	"github.com/momeni/schema-forge/pkg/adapter/db/postgres/migration/up/upmig1"
	"github.com/momeni/schema-forge/pkg/core/repo"
	"github.com/momeni/schema-forge/pkg/core/usecase/storeuc"
)

// These constants define the major and minor version of the store
// schema which is managed by Migrator struct in this package.
const (
	Major = 1
	Minor = 0
	Patch = 0
)

// Following type aliases represent the version-dependent migrator
// related types. The U and D types represent the upwards and downwards
// migrator types. As Migrator.UpMigrator and Migrator.DownMigrator
// methods migrate a store schema from Minor minor version to the
// latest supported minor version (having the Major major version),
// they create an instance of U and D respectively which can be used
// for migrating to next/previous major versions. The S type represents
// the store schema settler type. If a migration reaches to the Major
// major version, an instance of S may be used for persisting the
// migration result. The Type combines these type aliases using the
// schi.Migrator generic interface.
type (
	// S is the store schema settler type.
	S = *stlmig1.Settler
	// U is an upwards migrator type.
	U = *upmig1.Migrator
	// D is downwards migrator type.
	D = *dnmig1.Migrator
	// Type is provided by Migrator type.
	Type = schi.Migrator[S, U, D]
)

// New creates a Migrator struct wrapping the given `tx` transaction
// of the engine database and the `srcSchema` name of the source store
// schema, like forge1_0_2 for a v1.0.2 store. The created Migrator
// instance is then wrapped by a schi.Adapter in order to adapt its
// version dependent interface (see Type type alias) to a version
// independent repo.Migrator[repo.StoreSettler] interface.
func New(
	tx repo.Tx, srcSchema string,
) repo.Migrator[repo.StoreSettler] {
	m := &Migrator{tx, srcSchema}
	return schi.Adapter[S, U, D]{M: m}
}

// Migrator implements Type generic interface in order to provide
// high-level store schema upgrade logic for the v1.0 layout.
// It may be created with an open transaction of the engine database
// and the name of the source store schema.
// The migration logic starts by calling the Load method which exposes
// the source store tables (having the v1.0 layout) as views in the
// src1_0 schema. Then UpMigrator or DownMigrator method should
// be called in order to convert them (by creating relevant views and
// without actual transfer of data items) into the latest available
// minor version within the v1 major version. Obtained
// upwards/downwards migrator object (having the U/D type) may be used
// for changing the major version (keeping the minor version at its
// latest supported version in each major version).
// Finally, the settler object is used to persist the migration. If
// the ultimate major version is v1 too, the Settler method may be used
// as a shortcut for migrating from the current minor version to the
// latest supported minor version and returning an instance of the
// settler object (having the S type) for persisting it.
type Migrator struct {
	tx        repo.Tx // an open transaction of the engine database
	srcSchema string  // name of the source store schema
}

// Settler returns a settler object for the store schema v1 major
// version. Beforehand, it migrates the store schema from its
// current minor version (represented by Minor const) to the latest
// available minor version, creating the mig1 schema views based on
// the src1_0 schema views (which must have been created by the Load
// method beforehand).
func (s1v0 *Migrator) Settler(
	ctx context.Context,
) (*stlmig1.Settler, error) {
	if err := s1v0.migrateToLastMinorVersion(ctx); err != nil {
		return nil, err
	}
	return stlmig1.New(s1v0.tx), nil
}

// Load exposes the v1.0 source store tables as pass-through views in
// the src1_0 schema, so the subsequent migration steps can query them
// uniformly without copying any data item.
// This method must be called (and returned without error) before it is
// possible to call any other method of the Migrator struct.
func (s1v0 *Migrator) Load(ctx context.Context) error {
	return schi.LoadSourceViews(
		ctx, s1v0.tx, Major, Minor, s1v0.srcSchema,
		[]string{
			"settings",
			"schema_records",
			"schema_dependency_edges",
			"schema_migrations",
		},
	)
}

// UpMigrator expects the src1_0 schema to contain the source store
// views (created by the Load method) and it fills the mig1 local
// schema using a series of views, keeping the v1.0 layout unchanged.
// Finally, it returns an instance of the upwards migrator object
// (having the U type) which can be used to migrate schema to the next
// major versions (if any) or obtain the settler object.
func (s1v0 *Migrator) UpMigrator(
	ctx context.Context,
) (*upmig1.Migrator, error) {
	if err := s1v0.migrateToLastMinorVersion(ctx); err != nil {
		return nil, err
	}
	return &upmig1.Migrator{Tx: s1v0.tx}, nil
}

// DownMigrator expects the src1_0 schema to contain the source store
// views (created by the Load method) and it fills the mig1 local
// schema using a series of views, keeping the v1.0 layout unchanged.
// Finally, it returns an instance of the downwards migrator object
// (having the D type) which can be used to migrate schema to the
// previous major versions (if any) or obtain the settler object.
func (s1v0 *Migrator) DownMigrator(
	ctx context.Context,
) (*dnmig1.Migrator, error) {
	if err := s1v0.migrateToLastMinorVersion(ctx); err != nil {
		return nil, err
	}
	return &dnmig1.Migrator{Tx: s1v0.tx}, nil
}

// migrateToLastMinorVersion expects the src1_0 schema to contain the
// source store views and it fills the mig1 local schema using a
// series of views, converting the v1.0 layout to the v1.1 layout.
// The conversion adds an is_system column (no v1.0 record is an
// engine-owned record), computes the checksum column from the
// forward_sql scripts, renames the settings table to forge_settings,
// and exposes an empty schema_change_log view (since v1.0 kept no
// change log, the upgraded store starts with an empty history).
func (s1v0 *Migrator) migrateToLastMinorVersion(
	ctx context.Context,
) error {
	src := storeuc.SourceViewsSchemaName(Major, Minor)
	mig := storeuc.MigrationSchemaName(Major)
	for _, stmt := range []string{
		fmt.Sprintf(`CREATE VIEW %q.schema_records AS
SELECT id, model_id, version, name, table_name, definition,
 status, false AS is_system, created_by, created_at, updated_at
FROM %q.schema_records`, mig, src),
		fmt.Sprintf(`CREATE VIEW %q.schema_dependency_edges AS
SELECT * FROM %q.schema_dependency_edges`, mig, src),
		fmt.Sprintf(`CREATE VIEW %q.schema_migrations AS
SELECT id, name, from_schema_id, to_schema_id, from_version,
 to_version, forward_sql, rollback_sql, is_breaking, status,
 applied_at, md5(forward_sql) AS checksum, created_at
FROM %q.schema_migrations`, mig, src),
		fmt.Sprintf(`CREATE VIEW %q.schema_change_log AS
SELECT NULL::uuid AS id, NULL::uuid AS schema_id,
 NULL::text AS change_type, NULL::jsonb AS previous_state,
 NULL::jsonb AS new_state, NULL::text AS actor,
 NULL::timestamptz AS occurred_at
WHERE false`, mig),
		fmt.Sprintf(`CREATE VIEW %q.forge_settings AS
SELECT component, config FROM %q.settings`, mig, src),
	} {
		if _, err := s1v0.tx.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("creating mig1 views: %w", err)
		}
	}
	return nil
}
